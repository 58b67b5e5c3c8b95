// internal/blockchain/solbc/transaction/pipeline.go
package transaction

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"github.com/rovshanmuradov/solana-middleware/internal/blockchain"
	"github.com/rovshanmuradov/solana-middleware/internal/blockchain/computebudget"
	"github.com/rovshanmuradov/solana-middleware/internal/blockchain/solbc"
	"github.com/rovshanmuradov/solana-middleware/internal/blockchain/solbc/rpc"
	"github.com/rovshanmuradov/solana-middleware/internal/events"
	"go.uber.org/zap"
)

// Submission трасса одной отправки: переходы состояний и итог.
type Submission struct {
	ID        string
	Calls     []blockchain.CallInfo
	State     State
	Trace     []Transition
	Signature solana.Signature
	Outcome   *Outcome
	Err       error

	fallbacks int
}

// Info возвращает описание основного вызова отправки.
func (s *Submission) Info() blockchain.CallInfo {
	if len(s.Calls) == 0 {
		return blockchain.CallInfo{}
	}
	return s.Calls[len(s.Calls)-1]
}

// Pipeline проводит вызовы через build -> sign -> simulate -> send -> confirm.
// Безопасен для параллельного использования: состояние каждой отправки
// живёт в её Submission.
type Pipeline struct {
	client    blockchain.Client
	logger    *zap.Logger
	config    Config
	validator *Validator
	monitor   *Monitor
	analyzer  *solbc.ErrorAnalyzer
	metrics   *Metrics
	publisher events.Publisher

	mu     sync.Mutex
	active map[string]*Submission
}

// Option настраивает Pipeline
type Option func(*Pipeline)

// WithMetrics подключает метрики
func WithMetrics(m *Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithPublisher публикует события переходов в шину
func WithPublisher(pub events.Publisher) Option {
	return func(p *Pipeline) { p.publisher = pub }
}

// NewPipeline создает конвейер отправки
func NewPipeline(client blockchain.Client, logger *zap.Logger, config Config, opts ...Option) *Pipeline {
	defaults := DefaultConfig()
	if config.PollInterval <= 0 {
		config.PollInterval = defaults.PollInterval
	}
	if config.ConfirmTimeout <= 0 {
		config.ConfirmTimeout = defaults.ConfirmTimeout
	}
	if config.Commitment == "" {
		config.Commitment = defaults.Commitment
	}

	p := &Pipeline{
		client:    client,
		logger:    logger.Named("pipeline"),
		config:    config,
		validator: NewValidator(logger),
		monitor:   NewMonitor(client, logger, config),
		analyzer:  solbc.NewErrorAnalyzer(logger),
		active:    make(map[string]*Submission),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.metrics == nil {
		p.metrics = NewMetrics(nil)
	}
	if !config.ComputeBudget.Empty() {
		p.logger.Debug("Compute budget hints enabled",
			zap.Uint32("units", config.ComputeBudget.Units),
			zap.Uint64("unit_price", config.ComputeBudget.UnitPrice),
			zap.Uint64("priority_fee_lamports", computebudget.PriorityFeeLamports(config.ComputeBudget)))
	}
	return p
}

// Submit собирает, подписывает и отправляет вызовы одной транзакцией.
// Возвращает трассу всегда, ошибку классифицирует Classify. Если симуляция
// недоступна из-за транспорта, выполняется ровно одна отправка без preflight.
// Ошибка JSON-RPC от узла (кроме перегрузки) отклоняет отправку без fallback.
func (p *Pipeline) Submit(ctx context.Context, signer Signer, calls ...Call) (*Submission, error) {
	start := time.Now()
	sub := &Submission{ID: uuid.NewString()}
	for _, call := range calls {
		sub.Calls = append(sub.Calls, call.Info())
	}

	p.track(sub)
	defer p.untrack(sub)

	log := p.logger.With(zap.String("submission_id", sub.ID))

	outcome, cause := p.run(ctx, log, sub, signer, calls)

	sub.Outcome = outcome
	if classified := Classify(outcome, cause); classified != nil {
		classified.WithCall(sub.Info())
		// Транспортный сбой после подписи: транзакция могла дойти до сети
		if classified.Signature == "" && classified.Kind == blockchain.KindNetworkFailure &&
			sub.Signature != (solana.Signature{}) {
			classified.Signature = sub.Signature.String()
		}
		sub.Err = classified
	}

	p.metrics.TrackSubmission(start)
	p.finish(log, sub)
	return sub, sub.Err
}

func (p *Pipeline) run(ctx context.Context, log *zap.Logger, sub *Submission, signer Signer, calls []Call) (*Outcome, error) {
	if len(calls) == 0 {
		return nil, blockchain.Errorf(blockchain.KindValidation, "no calls to submit")
	}
	if signer == nil {
		return nil, blockchain.Errorf(blockchain.KindValidation, "signer is required")
	}
	if err := p.validator.ValidateSigners(calls, signer.PublicKey()); err != nil {
		return nil, err
	}

	// Свежий blockhash на каждую отправку
	latest, err := p.client.GetLatestBlockhash(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest blockhash: %w", err)
	}

	tx, err := p.buildTransaction(calls, signer.PublicKey(), latest.Blockhash)
	if err != nil {
		return nil, err
	}
	p.transition(log, sub, StateBuilt, false)

	if err := signer.SignTransaction(ctx, tx); err != nil {
		p.transition(log, sub, StateRejected, false)
		return nil, blockchain.NewError(blockchain.KindSignatureDeclined, err)
	}
	if err := p.validator.ValidateTransaction(tx); err != nil {
		p.transition(log, sub, StateRejected, false)
		return nil, err
	}
	sub.Signature = tx.Signatures[0]
	p.transition(log, sub, StateSigned, false)

	sim, simErr := p.client.SimulateTransaction(ctx, tx)
	if simErr != nil {
		if ctx.Err() != nil {
			p.transition(log, sub, StateRejected, false)
			return nil, ctx.Err()
		}
		// Узел ответил ошибкой JSON-RPC: симуляция выполнена, отказ окончательный
		if rpc.IsJSONRPCError(simErr) && !rpc.IsRetryableError(simErr) {
			p.transition(log, sub, StateRejected, false)
			analysis := p.analyzer.AnalyzeRPCError(simErr)
			return p.rejected(sub, "simulation refused by node: "+analysis.Describe(), analysis.Logs), nil
		}
		log.Warn("Simulation unavailable, sending once without preflight",
			zap.Error(simErr))
		return p.send(ctx, log, sub, tx, true)
	}

	p.transition(log, sub, StateSimulated, false)
	if sim.Err != nil {
		p.transition(log, sub, StateRejected, false)
		return p.rejected(sub, fmt.Sprintf("simulation failed: %v", sim.Err), sim.Logs), nil
	}

	log.Debug("Simulation accepted", zap.Uint64("units_consumed", sim.UnitsConsumed))
	p.transition(log, sub, StateAccepted, false)

	outcome, err := p.send(ctx, log, sub, tx, false)
	if outcome != nil {
		outcome.UnitsConsumed = sim.UnitsConsumed
	}
	return outcome, err
}

func (p *Pipeline) buildTransaction(calls []Call, payer solana.PublicKey, blockhash solana.Hash) (*solana.Transaction, error) {
	instructions, err := computebudget.BuildInstructions(p.config.ComputeBudget)
	if err != nil {
		return nil, blockchain.NewError(blockchain.KindValidation, err)
	}
	for _, call := range calls {
		instructions = append(instructions, call)
	}

	tx, err := solana.NewTransaction(instructions, blockhash, solana.TransactionPayer(payer))
	if err != nil {
		return nil, blockchain.NewError(blockchain.KindValidation,
			fmt.Errorf("failed to create transaction: %w", err))
	}
	return tx, nil
}

// send отправляет транзакцию; fallback означает отправку без preflight.
func (p *Pipeline) send(ctx context.Context, log *zap.Logger, sub *Submission, tx *solana.Transaction, fallback bool) (*Outcome, error) {
	if fallback {
		if sub.fallbacks > 0 {
			p.transition(log, sub, StateRejected, false)
			return nil, errors.New("preflight fallback already used")
		}
		sub.fallbacks++
		p.metrics.Fallback()
	}

	opts := blockchain.TransactionOptions{
		SkipPreflight:       fallback || p.config.SkipPreflight,
		PreflightCommitment: p.config.Commitment,
	}
	signature, err := p.client.SendTransactionWithOpts(ctx, tx, opts)
	if err != nil {
		p.transition(log, sub, StateRejected, fallback)
		if analysis := p.analyzer.AnalyzeRPCError(err); analysis != nil && analysis.SimulationFailed {
			return p.rejected(sub, analysis.Describe(), analysis.Logs), nil
		}
		return nil, fmt.Errorf("failed to send transaction: %w", err)
	}
	if signature != (solana.Signature{}) {
		sub.Signature = signature
	}
	p.transition(log, sub, StateSent, fallback)

	deadline := time.Now().Add(p.config.ConfirmTimeout)
	status, err := p.monitor.AwaitConfirmation(ctx, sub.Signature, deadline)
	if err != nil {
		p.transition(log, sub, StateTimedOut, false)
		outcome := &Outcome{
			Kind:         OutcomeTimedOut,
			Signature:    sub.Signature,
			FallbackUsed: fallback,
		}
		if status != nil {
			outcome.Slot = status.Slot
		}
		return outcome, nil
	}

	if status.Status == "failed" {
		p.transition(log, sub, StateRejected, false)
		outcome := p.rejected(sub, fmt.Sprintf("transaction failed on chain: %s", status.Error), nil)
		outcome.Slot = status.Slot
		outcome.FallbackUsed = fallback
		return outcome, nil
	}

	p.transition(log, sub, StateConfirmed, false)
	return &Outcome{
		Kind:         OutcomeConfirmed,
		Signature:    sub.Signature,
		Slot:         status.Slot,
		FallbackUsed: fallback,
	}, nil
}

func (p *Pipeline) rejected(sub *Submission, reason string, logs []string) *Outcome {
	return &Outcome{
		Kind:         OutcomeRejected,
		Signature:    sub.Signature,
		Reason:       reason,
		Logs:         logs,
		FallbackUsed: sub.fallbacks > 0,
	}
}

// transition фиксирует переход в трассе, логирует его и публикует событие.
func (p *Pipeline) transition(log *zap.Logger, sub *Submission, to State, fallback bool) {
	from := sub.State
	if !CanTransition(from, to) || (from == StateSigned && to == StateSent && !fallback) {
		log.Error("Invalid state transition",
			zap.String("from", string(from)),
			zap.String("to", string(to)))
	}

	sub.Trace = append(sub.Trace, Transition{From: from, To: to, At: time.Now(), Fallback: fallback})
	sub.State = to

	info := sub.Info()
	log.Info("Submission state changed",
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.Bool("fallback", fallback),
		zap.String("method", info.Method),
		zap.String("selector", info.Selector),
		zap.Strings("accounts", info.Accounts),
		zap.Int("data_len", info.DataLen))

	p.publish(log, events.StateChangedEvent{
		BaseEvent:    events.NewBase(events.SubmissionStateChanged),
		SubmissionID: sub.ID,
		Method:       info.Method,
		Selector:     info.Selector,
		From:         string(from),
		To:           string(to),
		Fallback:     fallback,
		Signature:    signatureString(sub.Signature),
	})
}

func (p *Pipeline) finish(log *zap.Logger, sub *Submission) {
	info := sub.Info()

	if sub.Err == nil && sub.Outcome != nil {
		p.metrics.Outcome(info.Method, string(sub.Outcome.Kind))
		log.Info("Submission confirmed",
			zap.String("signature", sub.Outcome.Signature.String()),
			zap.Uint64("slot", sub.Outcome.Slot),
			zap.Bool("fallback_used", sub.Outcome.FallbackUsed))
		p.publish(log, events.CompletedEvent{
			BaseEvent:    events.NewBase(events.SubmissionCompleted),
			SubmissionID: sub.ID,
			Method:       info.Method,
			Signature:    sub.Outcome.Signature.String(),
			Slot:         sub.Outcome.Slot,
			FallbackUsed: sub.Outcome.FallbackUsed,
		})
		return
	}

	kind := blockchain.KindOf(sub.Err)
	outcome := string(kind)
	var logs []string
	if sub.Outcome != nil {
		outcome = string(sub.Outcome.Kind)
		logs = sub.Outcome.Logs
	}
	p.metrics.Outcome(info.Method, outcome)

	log.Warn("Submission failed",
		zap.String("kind", string(kind)),
		zap.String("state", string(sub.State)),
		zap.Strings("logs", logs),
		zap.Error(sub.Err))

	p.publish(log, events.FailedEvent{
		BaseEvent:    events.NewBase(events.SubmissionFailed),
		SubmissionID: sub.ID,
		Method:       info.Method,
		Signature:    signatureString(sub.Signature),
		Kind:         string(kind),
		Reason:       sub.Err.Error(),
		Logs:         logs,
	})
}

func (p *Pipeline) publish(log *zap.Logger, event events.Event) {
	if p.publisher == nil {
		return
	}
	if err := p.publisher.Publish(event); err != nil {
		log.Debug("Event not published",
			zap.String("event_type", string(event.Type())),
			zap.Error(err))
	}
}

func (p *Pipeline) track(sub *Submission) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.active[sub.ID] = sub
}

func (p *Pipeline) untrack(sub *Submission) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.active, sub.ID)
}

// Active возвращает число отправок в процессе
func (p *Pipeline) Active() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.active)
}

// Status возвращает текущий статус подписи без ожидания.
func (p *Pipeline) Status(ctx context.Context, signature solana.Signature) (*Status, error) {
	return p.monitor.GetTransactionStatus(ctx, signature)
}

func signatureString(sig solana.Signature) string {
	if sig == (solana.Signature{}) {
		return ""
	}
	return sig.String()
}
