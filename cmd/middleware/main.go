// ====================================
// File: cmd/middleware/main.go
// ====================================
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var (
	flagConfig  string
	flagKeypair string
	flagYes     bool
	flagTimeout time.Duration
	flagDebug   bool
)

// newRootCmd собирает дерево команд; флаги сбрасываются при каждом вызове
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "middleware",
		Short:         "Client for the transfer-hook middleware program",
		Long:          "Build, sign, simulate and submit calls to the on-chain transfer-hook middleware program.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file (json|yaml|toml); env MIDDLEWARE_* overrides")
	rootCmd.PersistentFlags().StringVar(&flagKeypair, "keypair", "", "Keypair file (JSON array or base58); overrides config")
	rootCmd.PersistentFlags().BoolVarP(&flagYes, "yes", "y", false, "Sign without interactive approval")
	rootCmd.PersistentFlags().DurationVar(&flagTimeout, "timeout", 2*time.Minute, "Overall command timeout")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Debug logging")

	rootCmd.AddCommand(
		deriveCmd(),
		encodeCmd(),
		initializeCmd(),
		whitelistAddCmd(),
		checkHookCmd(),
		swapCmd(),
		statusCmd(),
		inspectCmd(),
		historyCmd(),
	)
	return rootCmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(exitCode(err))
	}
}
