// ====================================
// File: cmd/middleware/output.go
// ====================================
package main

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/gagliardetto/solana-go"
	"github.com/rovshanmuradov/solana-middleware/internal/blockchain/solbc/transaction"
	"github.com/rovshanmuradov/solana-middleware/internal/middleware"
	"github.com/rovshanmuradov/solana-middleware/internal/service"
	"github.com/rovshanmuradov/solana-middleware/internal/storage/models"
	"github.com/spf13/cobra"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#626262")).Padding(0, 1)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#626262"))
)

// newTable таблица вывода CLI; первая колонка приглушена
func newTable(headers ...string) *table.Table {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers(headers...)
	return t.StyleFunc(func(row, col int) lipgloss.Style {
		if row == table.HeaderRow {
			return headerStyle
		}
		if col == 0 {
			return mutedStyle
		}
		return cellStyle
	})
}

func printCall(cmd *cobra.Command, call *middleware.Call) {
	out := cmd.OutOrStdout()
	data, _ := call.Data()

	fmt.Fprintf(out, "method    %s\n", call.Method())
	fmt.Fprintf(out, "program   %s\n", call.ProgramID())
	fmt.Fprintf(out, "layout    %s\n", call.Version())
	fmt.Fprintf(out, "selector  %s\n", call.Selector())
	fmt.Fprintf(out, "data      %s (%d bytes)\n\n", hex.EncodeToString(data), len(data))

	t := newTable("#", "ROLE", "ADDRESS", "SIGNER", "WRITABLE")
	for i, ref := range call.Refs() {
		t.Row(strconv.Itoa(i), string(ref.Role), ref.Address.String(),
			strconv.FormatBool(ref.Signer), strconv.FormatBool(ref.Writable))
	}
	fmt.Fprintln(out, t.Render())
}

func printOutcome(cmd *cobra.Command, o *transaction.Outcome) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "outcome    %s\n", o.Kind)
	if o.Signature != (solana.Signature{}) {
		fmt.Fprintf(out, "signature  %s\n", o.Signature)
	}
	if o.Slot > 0 {
		fmt.Fprintf(out, "slot       %d\n", o.Slot)
	}
	if o.UnitsConsumed > 0 {
		fmt.Fprintf(out, "units      %d\n", o.UnitsConsumed)
	}
	if o.FallbackUsed {
		fmt.Fprintln(out, "preflight  skipped (simulation unavailable)")
	}
	if o.Reason != "" {
		fmt.Fprintf(out, "reason     %s\n", o.Reason)
	}
	for _, line := range o.Logs {
		fmt.Fprintf(out, "  | %s\n", line)
	}
}

func printStatus(cmd *cobra.Command, s *transaction.Status) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "signature      %s\n", s.Signature)
	fmt.Fprintf(out, "status         %s\n", s.Status)
	if s.Slot > 0 {
		fmt.Fprintf(out, "slot           %d\n", s.Slot)
	}
	if s.Confirmations > 0 {
		fmt.Fprintf(out, "confirmations  %d\n", s.Confirmations)
	}
	if s.Error != "" {
		fmt.Fprintf(out, "error          %s\n", s.Error)
	}
}

func printInspection(cmd *cobra.Command, i *service.Inspection) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "program      %s (exists: %t, executable: %t)\n", i.ProgramID, i.ProgramExists, i.ProgramExecutable)
	fmt.Fprintf(out, "state        %s (bump %d, initialized: %t)\n", i.PDA, i.Bump, i.Initialized)
	if i.State != nil {
		fmt.Fprintf(out, "authority    %s\n", i.State.Authority)
		fmt.Fprintf(out, "hooks        %d\n", i.State.WhitelistedHooks)
	}
	if !i.Payer.IsZero() {
		fmt.Fprintf(out, "payer        %s (%s SOL)\n", i.Payer, service.FromBaseUnits(i.PayerBalance, 9))
	}
	for _, w := range i.Warnings() {
		fmt.Fprintf(out, "warning: %s\n", w)
	}
}

func printHistoryRow(cmd *cobra.Command, row *models.Submission) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\nrecorded     %s %s (%s)\n", row.CreatedAt.Format(time.RFC3339), row.Method, row.SubmissionID)
	for _, tr := range row.Transitions {
		marker := ""
		if tr.Fallback {
			marker = " (no preflight)"
		}
		fmt.Fprintf(out, "  %s  %s -> %s%s\n", tr.At.Format("15:04:05.000"), tr.FromState, tr.ToState, marker)
	}
	if row.ErrorMessage != "" {
		fmt.Fprintf(out, "error        %s: %s\n", row.ErrorKind, row.ErrorMessage)
	}
}

func printHistory(cmd *cobra.Command, rows []*models.Submission) {
	t := newTable("TIME", "METHOD", "STATE", "SIGNATURE", "ERROR")
	for _, r := range rows {
		t.Row(r.CreatedAt.Format(time.RFC3339), r.Method, r.State, r.Signature, r.ErrorKind)
	}
	fmt.Fprintln(cmd.OutOrStdout(), t.Render())
}
