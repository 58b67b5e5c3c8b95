package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/rovshanmuradov/solana-middleware/internal/blockchain"
	"github.com/rovshanmuradov/solana-middleware/internal/events"
	"github.com/rovshanmuradov/solana-middleware/internal/middleware"
	"github.com/rovshanmuradov/solana-middleware/internal/storage/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("MIDDLEWARE_LOG_FILE", filepath.Join(t.TempDir(), "test.log"))

	rootCmd := newRootCmd()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestDeriveCommand(t *testing.T) {
	pda, bump, err := middleware.MiddlewarePDA(middleware.DefaultProgramID)
	require.NoError(t, err)

	out, err := execute(t, "derive")
	require.NoError(t, err)
	assert.Contains(t, out, pda.String())
	assert.Contains(t, out, fmt.Sprintf("bump     %d", bump))
}

func TestEncodeCommand(t *testing.T) {
	authority := solana.NewWallet().PublicKey()
	hook := solana.NewWallet().PublicKey()

	out, err := execute(t, "encode", "add_whitelisted_hook",
		"--role", "authority="+authority.String(),
		"--arg", "hook_program="+hook.String())
	require.NoError(t, err)

	sel, _ := middleware.SelectorFor(middleware.MethodAddWhitelistedHook)
	assert.Contains(t, out, "selector  "+sel.String())
	assert.Contains(t, out, "(40 bytes)")
	assert.Contains(t, out, authority.String())

	pda, _ := mustPDA(t)
	pdaLine, authorityLine := -1, -1
	for i, line := range strings.Split(out, "\n") {
		if strings.Contains(line, pda.String()) {
			pdaLine = i
		}
		if strings.Contains(line, authority.String()) {
			authorityLine = i
		}
	}
	require.NotEqual(t, -1, pdaLine)
	require.NotEqual(t, -1, authorityLine)
	assert.Less(t, pdaLine, authorityLine, "state account comes first")
	assert.Contains(t, out, "WRITABLE")
}

func TestPrintHistoryTable(t *testing.T) {
	rows := []*models.Submission{
		{Method: "initialize", State: "confirmed", Signature: "5sigA"},
		{Method: "add_whitelisted_hook", State: "rejected", ErrorKind: "simulation_rejected"},
	}
	rows[0].CreatedAt = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	rows[1].CreatedAt = rows[0].CreatedAt.Add(time.Minute)

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	printHistory(cmd, rows)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 6, "border, header, separator, two rows, border")
	assert.Contains(t, lines[1], "METHOD")
	assert.Contains(t, lines[3], "2026-01-02T03:04:05Z")
	assert.Contains(t, lines[3], "5sigA")
	assert.Contains(t, lines[4], "simulation_rejected")
}

func TestEncodeMissingRole(t *testing.T) {
	_, err := execute(t, "encode", "initialize")
	require.Error(t, err)
	assert.Equal(t, blockchain.KindMissingAccountRole, blockchain.KindOf(err))
	assert.Equal(t, 2, exitCode(err))
}

func TestEncodeInvalidRoleAddress(t *testing.T) {
	_, err := execute(t, "encode", "initialize", "--role", "authority=not-a-key")
	assert.ErrorIs(t, err, blockchain.ErrValidation)
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{blockchain.Errorf(blockchain.KindEncoding, "x"), 2},
		{blockchain.Errorf(blockchain.KindSignatureDeclined, "x"), 3},
		{blockchain.Errorf(blockchain.KindSimulationRejected, "x"), 4},
		{blockchain.Errorf(blockchain.KindNetworkFailure, "x"), 5},
		{blockchain.Errorf(blockchain.KindTimeout, "x"), 6},
		{fmt.Errorf("open key.json: %w", os.ErrNotExist), 2},
		{errors.New("boom"), 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, exitCode(tt.err), tt.err.Error())
	}
}

func TestRetryAdvice(t *testing.T) {
	var out bytes.Buffer
	advise := retryAdvice(&out)

	require.NoError(t, advise(context.Background(), events.FailedEvent{Kind: string(blockchain.KindTimeout), Signature: "5sig"}))
	assert.Contains(t, out.String(), "middleware status 5sig")

	out.Reset()
	require.NoError(t, advise(context.Background(), events.FailedEvent{Kind: string(blockchain.KindNetworkFailure)}))
	assert.Contains(t, out.String(), "safe to retry")

	out.Reset()
	require.NoError(t, advise(context.Background(), events.FailedEvent{Kind: string(blockchain.KindSimulationRejected)}))
	assert.Empty(t, out.String())
}

func mustPDA(t *testing.T) (solana.PublicKey, uint8) {
	t.Helper()
	pda, bump, err := middleware.MiddlewarePDA(middleware.DefaultProgramID)
	require.NoError(t, err)
	return pda, bump
}
