// internal/service/service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/gagliardetto/solana-go"
	"github.com/rovshanmuradov/solana-middleware/internal/blockchain"
	"github.com/rovshanmuradov/solana-middleware/internal/blockchain/solbc"
	"github.com/rovshanmuradov/solana-middleware/internal/blockchain/solbc/transaction"
	"github.com/rovshanmuradov/solana-middleware/internal/middleware"
	"github.com/rovshanmuradov/solana-middleware/internal/storage"
	"go.uber.org/zap"
)

// ataResolver кошелёк, умеющий вычислять свои ATA с кешем
type ataResolver interface {
	GetATA(mint solana.PublicKey) (solana.PublicKey, error)
}

// Service точка входа для вызывающего кода: собирает вызов программы
// middleware, отправляет его через конвейер и пишет историю.
type Service struct {
	builder  *middleware.Builder
	pipeline *transaction.Pipeline
	client   blockchain.Client
	signer   transaction.Signer
	analyzer *solbc.ErrorAnalyzer
	recorder storage.Recorder
	presets  map[string]middleware.SwapPreset
	logger   *zap.Logger
}

// Option настраивает Service
type Option func(*Service)

// WithRecorder включает запись истории отправок
func WithRecorder(r storage.Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

// WithPresets регистрирует пресеты свопа
func WithPresets(presets ...middleware.SwapPreset) Option {
	return func(s *Service) {
		for _, p := range presets {
			s.presets[p.Name] = p
		}
	}
}

func New(builder *middleware.Builder, pipeline *transaction.Pipeline, client blockchain.Client,
	signer transaction.Signer, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		builder:  builder,
		pipeline: pipeline,
		client:   client,
		signer:   signer,
		analyzer: solbc.NewErrorAnalyzer(logger),
		presets:  make(map[string]middleware.SwapPreset),
		logger:   logger.Named("service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Builder возвращает сборщик вызовов
func (s *Service) Builder() *middleware.Builder {
	return s.builder
}

// Presets возвращает имена зарегистрированных пресетов
func (s *Service) Presets() []string {
	names := make([]string, 0, len(s.presets))
	for name := range s.presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Build собирает вызов без отправки. Если authority не передан, подставляется
// ключ подписанта.
func (s *Service) Build(method middleware.Method, args middleware.Args, roles map[middleware.Role]solana.PublicKey) (*middleware.Call, error) {
	filled := make(map[middleware.Role]solana.PublicKey, len(roles)+1)
	for role, addr := range roles {
		filled[role] = addr
	}
	if _, ok := filled[middleware.RoleAuthority]; !ok && s.signer != nil {
		filled[middleware.RoleAuthority] = s.signer.PublicKey()
	}
	return s.builder.Build(method, args, filled)
}

// BuildAndSubmit собирает вызов и проводит его через конвейер.
// Структурные ошибки (Validation, MissingAccountRole, Encoding) возвращаются
// до обращения к сети.
func (s *Service) BuildAndSubmit(ctx context.Context, method middleware.Method, args middleware.Args,
	roles map[middleware.Role]solana.PublicKey) (*transaction.Outcome, error) {
	call, err := s.Build(method, args, roles)
	if err != nil {
		s.logger.Debug("Call rejected before submission",
			zap.String("method", string(method)),
			zap.Error(err))
		return nil, err
	}

	s.logger.Debug("Call built",
		zap.String("method", string(call.Method())),
		zap.String("selector", call.Selector().String()),
		zap.Strings("accounts", call.AccountStrings()),
		zap.Int("data_len", call.DataLen()))

	sub, err := s.pipeline.Submit(ctx, s.signer, call)
	if err != nil {
		err = s.explain(err)
	}
	s.record(ctx, sub, err)

	if sub == nil {
		return nil, err
	}
	return sub.Outcome, err
}

// explain дополняет отказ программы описанием ошибки из её таблицы
func (s *Service) explain(err error) error {
	var e *blockchain.Error
	if !errors.As(err, &e) || e.Kind != blockchain.KindSimulationRejected || len(e.Logs) == 0 {
		return err
	}
	anchor := s.analyzer.ParseLogs(e.Logs)
	if anchor == nil {
		return err
	}
	if pe, ok := middleware.LookupProgramError(anchor.Code); ok {
		e.Err = fmt.Errorf("%w: %s (%d): %s", e.Err, pe.Name, pe.Code, pe.Message)
	} else if anchor.Name != "" {
		e.Err = fmt.Errorf("%w: %s (%d): %s", e.Err, anchor.Name, anchor.Code, anchor.Msg)
	}
	return e
}

// Initialize создаёт аккаунт состояния программы с подписантом в роли authority.
func (s *Service) Initialize(ctx context.Context) (*transaction.Outcome, error) {
	pda, _ := s.builder.PDA()
	info, err := s.client.GetAccountInfo(ctx, pda)
	switch {
	case err == nil && info != nil && info.Value != nil:
		s.logger.Warn("Middleware account already exists, initialize will be rejected",
			zap.String("pda", pda.String()))
	case err != nil && !solbc.IsAccountNotFoundError(err):
		s.logger.Debug("Middleware account lookup failed", zap.Error(err))
	}
	return s.BuildAndSubmit(ctx, middleware.MethodInitialize, nil, nil)
}

// AddWhitelistedHook добавляет программу transfer hook в белый список.
func (s *Service) AddWhitelistedHook(ctx context.Context, hookProgram solana.PublicKey) (*transaction.Outcome, error) {
	if hookProgram.IsZero() {
		return nil, blockchain.Errorf(blockchain.KindValidation, "hook program address is required")
	}
	return s.BuildAndSubmit(ctx, middleware.MethodAddWhitelistedHook,
		middleware.Args{middleware.ArgHookProgram: hookProgram}, nil)
}

// TransferCheck параметры проверки transfer hook
type TransferCheck struct {
	Mint        solana.PublicKey
	Source      solana.PublicKey // пусто: ATA подписанта
	Destination solana.PublicKey
	HookProgram solana.PublicKey
	Amount      uint64
	Decimals    uint8
}

// CheckTransferHook вызывает проверку transfer hook для перевода.
func (s *Service) CheckTransferHook(ctx context.Context, req TransferCheck) (*transaction.Outcome, error) {
	roles := make(map[middleware.Role]solana.PublicKey, 4)
	for role, addr := range map[middleware.Role]solana.PublicKey{
		middleware.RoleMint:        req.Mint,
		middleware.RoleSource:      req.Source,
		middleware.RoleDestination: req.Destination,
		middleware.RoleHookProgram: req.HookProgram,
	} {
		// Незаданные поля запроса остаются отсутствующими ролями
		if !addr.IsZero() {
			roles[role] = addr
		}
	}
	if err := s.defaultSource(roles, middleware.RoleSource, req.Mint); err != nil {
		return nil, err
	}
	return s.BuildAndSubmit(ctx, middleware.MethodCheckTransferHook, middleware.Args{
		middleware.ArgAmount:   req.Amount,
		middleware.ArgDecimals: req.Decimals,
	}, roles)
}

// SwapRequest параметры свопа с проверкой hook
type SwapRequest struct {
	Preset       string
	Roles        map[middleware.Role]solana.PublicKey
	AmountIn     uint64
	MinAmountOut uint64
	Decimals     uint8
}

// ExecuteSwap выполняет своп через AMM с предварительной проверкой hook.
// Роли пресета дополняются явно переданными.
func (s *Service) ExecuteSwap(ctx context.Context, req SwapRequest) (*transaction.Outcome, error) {
	roles := req.Roles
	if req.Preset != "" {
		preset, ok := s.presets[req.Preset]
		if !ok {
			return nil, blockchain.Errorf(blockchain.KindValidation, "unknown swap preset %q", req.Preset)
		}
		roles = preset.Apply(req.Roles)
	}
	filled := make(map[middleware.Role]solana.PublicKey, len(roles))
	for role, addr := range roles {
		filled[role] = addr
	}
	if err := s.defaultSource(filled, middleware.RoleSource, filled[middleware.RoleMint]); err != nil {
		return nil, err
	}

	return s.BuildAndSubmit(ctx, middleware.MethodExecuteSwap, middleware.Args{
		middleware.ArgAmountIn:     req.AmountIn,
		middleware.ArgMinAmountOut: req.MinAmountOut,
		middleware.ArgDecimals:     req.Decimals,
	}, filled)
}

// defaultSource подставляет ATA подписанта для mint, если роль не задана
func (s *Service) defaultSource(roles map[middleware.Role]solana.PublicKey, role middleware.Role, mint solana.PublicKey) error {
	if _, ok := roles[role]; ok || mint.IsZero() || s.signer == nil {
		return nil
	}

	var (
		ata solana.PublicKey
		err error
	)
	if r, ok := s.signer.(ataResolver); ok {
		ata, err = r.GetATA(mint)
	} else {
		ata, _, err = solana.FindAssociatedTokenAddress(s.signer.PublicKey(), mint)
	}
	if err != nil {
		return blockchain.NewError(blockchain.KindValidation,
			fmt.Errorf("failed to derive token account for %s: %w", mint, err))
	}
	roles[role] = ata
	return nil
}

// Status возвращает статус подписи и обновляет историю, если она ведётся.
func (s *Service) Status(ctx context.Context, signature solana.Signature) (*transaction.Status, error) {
	status, err := s.pipeline.Status(ctx, signature)
	if err != nil {
		return nil, blockchain.NewError(blockchain.KindNetworkFailure, err)
	}
	if st, ok := s.recorder.(storage.Storage); ok && status.Final() {
		if err := st.UpdateSubmissionStatus(ctx, signature.String(), status.Status, status.Error); err != nil {
			s.logger.Debug("History status update failed", zap.Error(err))
		}
	}
	return status, nil
}
