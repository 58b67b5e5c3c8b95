// ====================================
// File: cmd/middleware/commands.go
// ====================================
package main

import (
	"errors"
	"fmt"
	"sort"

	"github.com/gagliardetto/solana-go"
	"github.com/rovshanmuradov/solana-middleware/internal/blockchain"
	"github.com/rovshanmuradov/solana-middleware/internal/blockchain/solbc/transaction"
	"github.com/rovshanmuradov/solana-middleware/internal/export"
	"github.com/rovshanmuradov/solana-middleware/internal/middleware"
	"github.com/rovshanmuradov/solana-middleware/internal/service"
	"github.com/rovshanmuradov/solana-middleware/internal/storage"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func deriveCmd() *cobra.Command {
	var seeds []string
	cmd := &cobra.Command{
		Use:   "derive",
		Short: "Derive the middleware program address (or one for custom seeds)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd, needOffline)
			if err != nil {
				return err
			}
			defer a.shutdown()

			pda, bump := a.builder.PDA()
			if len(seeds) > 0 {
				raw := make([][]byte, len(seeds))
				for i, s := range seeds {
					raw[i] = []byte(s)
				}
				if pda, bump, err = middleware.Derive(raw, a.builder.ProgramID()); err != nil {
					return err
				}
			} else {
				seeds = []string{middleware.MiddlewareSeed}
			}

			a.logger.Info("Program address derived",
				zap.String("program", a.builder.ProgramID().String()),
				zap.Strings("seeds", seeds),
				zap.String("pda", pda.String()),
				zap.Uint8("bump", bump))

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "program  %s\n", a.builder.ProgramID())
			fmt.Fprintf(out, "seeds    %q\n", seeds)
			fmt.Fprintf(out, "address  %s\n", pda)
			fmt.Fprintf(out, "bump     %d\n", bump)
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&seeds, "seed", nil, "Custom UTF-8 seed (repeatable)")
	return cmd
}

func encodeCmd() *cobra.Command {
	var (
		rawArgs  map[string]string
		rawRoles map[string]string
	)
	cmd := &cobra.Command{
		Use:       "encode <method>",
		Short:     "Encode a call without touching the network",
		Long:      "Prints the selector, instruction data and ordered account list of a call.",
		Args:      cobra.ExactArgs(1),
		ValidArgs: methodNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, needOffline)
			if err != nil {
				return err
			}
			defer a.shutdown()

			roles, err := parseRoles(rawRoles)
			if err != nil {
				return err
			}
			if _, ok := roles[middleware.RoleAuthority]; !ok && a.signer != nil {
				roles[middleware.RoleAuthority] = a.signer.PublicKey()
			}
			callArgs := make(middleware.Args, len(rawArgs))
			for k, v := range rawArgs {
				callArgs[k] = v
			}

			call, err := a.builder.Build(middleware.Method(args[0]), callArgs, roles)
			if err != nil {
				return err
			}
			printCall(cmd, call)
			return nil
		},
	}
	cmd.Flags().StringToStringVar(&rawArgs, "arg", nil, "Argument name=value (repeatable)")
	cmd.Flags().StringToStringVar(&rawRoles, "role", nil, "Account role=address (repeatable)")
	return cmd
}

func initializeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "initialize",
		Short: "Create the middleware state account with the signer as authority",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return submit(cmd, func(a *app) (*transaction.Outcome, error) {
				ctx, cancel := commandContext(cmd)
				defer cancel()
				return a.service.Initialize(ctx)
			})
		},
	}
}

func whitelistAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whitelist-add <hook-program>",
		Short: "Add a transfer-hook program to the whitelist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hook, err := parseKey("hook program", args[0])
			if err != nil {
				return err
			}
			return submit(cmd, func(a *app) (*transaction.Outcome, error) {
				ctx, cancel := commandContext(cmd)
				defer cancel()
				return a.service.AddWhitelistedHook(ctx, hook)
			})
		},
	}
}

func checkHookCmd() *cobra.Command {
	var (
		mint, source, destination, hook string
		amount                          string
		decimals                        uint8
	)
	cmd := &cobra.Command{
		Use:   "check-hook",
		Short: "Run the on-chain transfer-hook check for a transfer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req := service.TransferCheck{Decimals: decimals}
			var err error
			if req.Mint, err = parseKey("mint", mint); err != nil {
				return err
			}
			if req.Destination, err = parseKey("destination", destination); err != nil {
				return err
			}
			if req.HookProgram, err = parseKey("hook program", hook); err != nil {
				return err
			}
			if source != "" {
				if req.Source, err = parseKey("source", source); err != nil {
					return err
				}
			}
			if req.Amount, err = service.ToBaseUnits(amount, decimals); err != nil {
				return err
			}

			return submit(cmd, func(a *app) (*transaction.Outcome, error) {
				ctx, cancel := commandContext(cmd)
				defer cancel()
				return a.service.CheckTransferHook(ctx, req)
			})
		},
	}
	cmd.Flags().StringVar(&mint, "mint", "", "Token mint")
	cmd.Flags().StringVar(&source, "source", "", "Source token account (default: signer's ATA)")
	cmd.Flags().StringVar(&destination, "destination", "", "Destination token account")
	cmd.Flags().StringVar(&hook, "hook", "", "Transfer-hook program")
	cmd.Flags().StringVar(&amount, "amount", "", "Amount in token units, e.g. 1.5")
	cmd.Flags().Uint8Var(&decimals, "decimals", 0, "Mint decimals")
	for _, f := range []string{"mint", "destination", "hook", "amount"} {
		_ = cmd.MarkFlagRequired(f)
	}
	return cmd
}

func swapCmd() *cobra.Command {
	var (
		preset    string
		rawRoles  map[string]string
		amountIn  string
		minOut    string
		decimals  uint8
		outDigits uint8
	)
	cmd := &cobra.Command{
		Use:   "swap",
		Short: "Swap through the AMM after the transfer-hook check",
		Long: "Roles not given with --role are taken from the preset named by --preset.\n" +
			"The source token account defaults to the signer's associated token account for the mint.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			roles, err := parseRoles(rawRoles)
			if err != nil {
				return err
			}
			in, err := service.ToBaseUnits(amountIn, decimals)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("out-decimals") {
				outDigits = decimals
			}
			out, err := service.ToBaseUnits(minOut, outDigits)
			if err != nil {
				return err
			}

			return submit(cmd, func(a *app) (*transaction.Outcome, error) {
				ctx, cancel := commandContext(cmd)
				defer cancel()
				return a.service.ExecuteSwap(ctx, service.SwapRequest{
					Preset:       preset,
					Roles:        roles,
					AmountIn:     in,
					MinAmountOut: out,
					Decimals:     decimals,
				})
			})
		},
	}
	cmd.Flags().StringVar(&preset, "preset", "", "Swap preset from config (swap_presets)")
	cmd.Flags().StringToStringVar(&rawRoles, "role", nil, "Account role=address (repeatable)")
	cmd.Flags().StringVar(&amountIn, "amount-in", "", "Input amount in token units")
	cmd.Flags().StringVar(&minOut, "min-out", "0", "Minimum output amount in token units")
	cmd.Flags().Uint8Var(&decimals, "decimals", 0, "Input mint decimals")
	cmd.Flags().Uint8Var(&outDigits, "out-decimals", 0, "Output mint decimals (default: --decimals)")
	_ = cmd.MarkFlagRequired("amount-in")
	return cmd
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <signature>",
		Short: "Show the network status of a submitted transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sig, err := solana.SignatureFromBase58(args[0])
			if err != nil {
				return blockchain.NewError(blockchain.KindValidation, fmt.Errorf("invalid signature: %w", err))
			}
			a, err := newApp(cmd, needNetwork)
			if err != nil {
				return err
			}
			defer a.shutdown()

			ctx, cancel := commandContext(cmd)
			defer cancel()

			status, err := a.service.Status(ctx, sig)
			if err != nil {
				return err
			}
			printStatus(cmd, status)

			if a.store != nil {
				row, err := a.store.GetBySignature(ctx, sig.String())
				switch {
				case err == nil:
					printHistoryRow(cmd, row)
				case !errors.Is(err, storage.ErrNotFound):
					a.logger.Debug("History lookup failed", zap.Error(err))
				}
			}
			return nil
		},
	}
}

func inspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect",
		Short: "Check the program, its state account and the payer balance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd, needNetwork)
			if err != nil {
				return err
			}
			defer a.shutdown()

			ctx, cancel := commandContext(cmd)
			defer cancel()

			inspection, err := a.service.Inspect(ctx)
			if err != nil {
				return err
			}
			printInspection(cmd, inspection)
			return nil
		},
	}
}

func historyCmd() *cobra.Command {
	var (
		authority string
		limit     int
		offset    int
		format    string
		outDir    string
		method    string
		confirmed bool
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded submissions (requires postgres_url)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd, needNetwork)
			if err != nil {
				return err
			}
			defer a.shutdown()

			if a.store == nil {
				return blockchain.Errorf(blockchain.KindValidation, "history requires postgres_url")
			}
			if authority == "" && a.signer != nil {
				authority = a.signer.PublicKey().String()
			}

			ctx, cancel := commandContext(cmd)
			defer cancel()

			rows, err := a.store.ListSubmissions(ctx, authority, limit, offset)
			if err != nil {
				return err
			}
			if format == "" {
				printHistory(cmd, rows)
				return nil
			}

			path, err := export.NewExporter(a.logger).Export(rows, export.Options{
				Format:        export.Format(format),
				Method:        method,
				OnlyConfirmed: confirmed,
				OutputDir:     outDir,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	cmd.Flags().StringVar(&authority, "authority", "", "Authority address (default: signer)")
	cmd.Flags().IntVar(&limit, "limit", 20, "Rows to show")
	cmd.Flags().IntVar(&offset, "offset", 0, "Rows to skip")
	cmd.Flags().StringVar(&format, "export", "", "Write rows to a file instead: csv|json")
	cmd.Flags().StringVar(&outDir, "out", ".", "Export directory")
	cmd.Flags().StringVar(&method, "method", "", "Export only this method")
	cmd.Flags().BoolVar(&confirmed, "confirmed", false, "Export only confirmed submissions")
	return cmd
}

// submit собирает зависимости с подписантом, выполняет отправку и печатает итог
func submit(cmd *cobra.Command, run func(a *app) (*transaction.Outcome, error)) error {
	a, err := newApp(cmd, needSigner)
	if err != nil {
		return err
	}
	defer a.shutdown()

	outcome, err := run(a)
	if outcome != nil {
		printOutcome(cmd, outcome)
	}
	return err
}

func parseKey(name, raw string) (solana.PublicKey, error) {
	key, err := solana.PublicKeyFromBase58(raw)
	if err != nil {
		return solana.PublicKey{}, blockchain.NewError(blockchain.KindValidation,
			fmt.Errorf("invalid %s address %q: %w", name, raw, err))
	}
	return key, nil
}

func parseRoles(raw map[string]string) (map[middleware.Role]solana.PublicKey, error) {
	roles := make(map[middleware.Role]solana.PublicKey, len(raw))
	for name, addr := range raw {
		key, err := parseKey(name, addr)
		if err != nil {
			return nil, err
		}
		roles[middleware.Role(name)] = key
	}
	return roles, nil
}

func methodNames() []string {
	names := make([]string, 0, len(middleware.Methods))
	for _, m := range middleware.Methods {
		names = append(names, string(m))
	}
	sort.Strings(names)
	return names
}
