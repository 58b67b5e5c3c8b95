// ====================================
// File: cmd/middleware/app.go
// ====================================
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rovshanmuradov/solana-middleware/internal/blockchain"
	"github.com/rovshanmuradov/solana-middleware/internal/blockchain/computebudget"
	"github.com/rovshanmuradov/solana-middleware/internal/blockchain/solbc"
	"github.com/rovshanmuradov/solana-middleware/internal/blockchain/solbc/transaction"
	"github.com/rovshanmuradov/solana-middleware/internal/config"
	"github.com/rovshanmuradov/solana-middleware/internal/events"
	"github.com/rovshanmuradov/solana-middleware/internal/logger"
	"github.com/rovshanmuradov/solana-middleware/internal/middleware"
	"github.com/rovshanmuradov/solana-middleware/internal/service"
	"github.com/rovshanmuradov/solana-middleware/internal/storage"
	"github.com/rovshanmuradov/solana-middleware/internal/storage/csvstore"
	"github.com/rovshanmuradov/solana-middleware/internal/storage/postgres"
	"github.com/rovshanmuradov/solana-middleware/internal/wallet"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// needs что требуется команде помимо конфигурации
type needs int

const (
	needOffline needs = iota // только конфигурация и builder
	needNetwork              // + RPC и история
	needSigner               // + ключ подписанта
)

type namedCloser struct {
	name  string
	close func(ctx context.Context) error
}

// app собранные зависимости одной команды
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	builder *middleware.Builder
	signer  transaction.Signer
	client  *solbc.Client
	store   storage.Storage
	service *service.Service

	closers []namedCloser
}

func newApp(cmd *cobra.Command, n needs) (*app, error) {
	cfg, err := config.LoadConfig(flagConfig)
	if err != nil {
		return nil, blockchain.NewError(blockchain.KindValidation, err)
	}
	if flagKeypair != "" {
		cfg.Keypair = flagKeypair
	}

	logCfg := logger.DefaultConfig()
	logCfg.LogFile = cfg.LogFile
	logCfg.Debug = cfg.DebugLogging || flagDebug
	log, err := logger.New(logCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	a := &app{cfg: cfg, logger: log}
	a.builder, err = middleware.NewBuilder(cfg.Program(), cfg.AMMProgram())
	if err != nil {
		return nil, err
	}

	if cfg.Keypair != "" {
		w, err := wallet.LoadKeypair(cfg.Keypair)
		if err != nil {
			return nil, blockchain.NewError(blockchain.KindValidation, err)
		}
		var approve wallet.Approver
		if !flagYes {
			approve = wallet.PromptApprover(cmd.InOrStdin(), cmd.ErrOrStderr())
		}
		a.signer = wallet.NewApprovingSigner(w, approve)
		log.Debug("Signer loaded", zap.String("wallet", w.String()))
	} else if n == needSigner {
		return nil, blockchain.Errorf(blockchain.KindValidation,
			"keypair is required: pass --keypair or set MIDDLEWARE_KEYPAIR")
	}

	if n == needOffline {
		return a, nil
	}

	if err := a.wireNetwork(cmd); err != nil {
		a.shutdown()
		return nil, err
	}
	return a, nil
}

func (a *app) wireNetwork(cmd *cobra.Command) error {
	cfg, log := a.cfg, a.logger

	client, err := solbc.NewClient(cfg.RPCList, log,
		solbc.WithCommitment(cfg.CommitmentType()),
		solbc.WithMaxRetryElapsed(cfg.RetryElapsed))
	if err != nil {
		return blockchain.NewError(blockchain.KindNetworkFailure, err)
	}
	a.client = client

	registry := prometheus.NewRegistry()
	if cfg.MetricsAddr != "" {
		a.serveMetrics(registry)
	}

	bus := events.NewBus(log, 64)
	bus.SubscribeFunc(events.SubmissionFailed, retryAdvice(cmd.ErrOrStderr()))
	a.onClose("event bus", bus.Shutdown)

	pipeline := transaction.NewPipeline(client, log, transaction.Config{
		PollInterval:   cfg.PollInterval,
		ConfirmTimeout: cfg.ConfirmTimeout,
		SkipPreflight:  cfg.SkipPreflight,
		Commitment:     cfg.CommitmentType(),
		ComputeBudget: computebudget.Config{
			Units:     cfg.ComputeUnits,
			UnitPrice: cfg.ComputePrice,
		},
	}, transaction.WithMetrics(transaction.NewMetrics(registry)), transaction.WithPublisher(bus))

	opts, err := a.serviceOptions()
	if err != nil {
		return err
	}
	a.service = service.New(a.builder, pipeline, client, a.signer, log, opts...)
	return nil
}

func (a *app) serviceOptions() ([]service.Option, error) {
	var opts []service.Option

	for name, raw := range a.cfg.SwapPresets {
		preset, err := middleware.ParseSwapPreset(name, raw)
		if err != nil {
			return nil, blockchain.NewError(blockchain.KindValidation, err)
		}
		opts = append(opts, service.WithPresets(preset))
	}

	switch {
	case a.cfg.PostgresURL != "":
		store, err := postgres.NewStorage(a.cfg.PostgresURL, a.logger)
		if err != nil {
			return nil, err
		}
		if err := store.RunMigrations(); err != nil {
			_ = store.Close()
			return nil, err
		}
		a.store = store
		a.onClose("postgres", func(context.Context) error { return store.Close() })
		opts = append(opts, service.WithRecorder(store))

	case a.cfg.HistoryCSV != "":
		rec, err := csvstore.NewRecorder(a.cfg.HistoryCSV, 5*time.Second, a.logger)
		if err != nil {
			return nil, err
		}
		a.onClose("csv history", func(context.Context) error { return rec.Close() })
		opts = append(opts, service.WithRecorder(rec))
	}
	return opts, nil
}

func (a *app) serveMetrics(registry *prometheus.Registry) {
	srv := &http.Server{
		Addr:              a.cfg.MetricsAddr,
		Handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Warn("Metrics endpoint stopped", zap.Error(err))
		}
	}()
	a.logger.Debug("Metrics endpoint started", zap.String("addr", a.cfg.MetricsAddr))
	a.onClose("metrics", srv.Shutdown)
}

func (a *app) onClose(name string, fn func(ctx context.Context) error) {
	a.closers = append(a.closers, namedCloser{name: name, close: fn})
}

// shutdown закрывает зависимости в обратном порядке
func (a *app) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.close(ctx); err != nil {
			a.logger.Warn("Failed to close", zap.String("service", c.name), zap.Error(err))
		}
	}
	a.closers = nil
	_ = logger.Sync(a.logger)
}

// retryAdvice печатает подсказку о повторе для неудачной отправки
func retryAdvice(out io.Writer) func(context.Context, events.Event) error {
	return func(_ context.Context, e events.Event) error {
		failed, ok := e.(events.FailedEvent)
		if !ok {
			return nil
		}
		kind := blockchain.ErrorKind(failed.Kind)
		switch {
		case kind == blockchain.KindTimeout && failed.Signature != "":
			fmt.Fprintf(out, "hint: status unknown, run `middleware status %s` before retrying\n", failed.Signature)
		case kind == blockchain.KindNetworkFailure && failed.Signature != "":
			fmt.Fprintf(out, "hint: transaction may have been sent, check `middleware status %s` before retrying\n", failed.Signature)
		case blockchain.Retryable(kind):
			fmt.Fprintln(out, "hint: transient failure, safe to retry")
		}
		return nil
	}
}

// commandContext ограничивает команду флагом --timeout
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if flagTimeout > 0 {
		return context.WithTimeout(ctx, flagTimeout)
	}
	return context.WithCancel(ctx)
}

// exitCode код выхода по виду ошибки
func exitCode(err error) int {
	switch blockchain.KindOf(err) {
	case blockchain.KindValidation, blockchain.KindMissingAccountRole,
		blockchain.KindEncoding, blockchain.KindDerivationExhausted:
		return 2
	case blockchain.KindSignatureDeclined:
		return 3
	case blockchain.KindSimulationRejected:
		return 4
	case blockchain.KindNetworkFailure:
		return 5
	case blockchain.KindTimeout:
		return 6
	default:
		if errors.Is(err, os.ErrNotExist) {
			return 2
		}
		return 1
	}
}
