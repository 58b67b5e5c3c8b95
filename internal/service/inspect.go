// internal/service/inspect.go
package service

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/rovshanmuradov/solana-middleware/internal/blockchain"
	"github.com/rovshanmuradov/solana-middleware/internal/blockchain/solbc"
	"github.com/rovshanmuradov/solana-middleware/internal/middleware"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Inspection состояние программы и плательщика перед отправкой
type Inspection struct {
	ProgramID         solana.PublicKey
	ProgramExists     bool
	ProgramExecutable bool

	PDA         solana.PublicKey
	Bump        uint8
	Initialized bool
	State       *middleware.MiddlewareAccount

	Payer        solana.PublicKey
	PayerBalance uint64
}

// Inspect параллельно читает аккаунт программы, PDA и баланс плательщика.
// Отсутствие аккаунтов не считается ошибкой.
func (s *Service) Inspect(ctx context.Context) (*Inspection, error) {
	pda, bump := s.builder.PDA()
	result := &Inspection{
		ProgramID: s.builder.ProgramID(),
		PDA:       pda,
		Bump:      bump,
	}
	if s.signer != nil {
		result.Payer = s.signer.PublicKey()
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		info, err := s.client.GetAccountInfo(gctx, result.ProgramID)
		if solbc.IsAccountNotFoundError(err) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("program account: %w", err)
		}
		if info != nil && info.Value != nil {
			result.ProgramExists = true
			result.ProgramExecutable = info.Value.Executable
		}
		return nil
	})

	g.Go(func() error {
		info, err := s.client.GetAccountInfo(gctx, pda)
		if solbc.IsAccountNotFoundError(err) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("middleware account: %w", err)
		}
		if info == nil || info.Value == nil {
			return nil
		}
		state, err := middleware.ParseMiddlewareAccount(info.Value.Data.GetBinary())
		if err != nil {
			return blockchain.NewError(blockchain.KindValidation, fmt.Errorf("middleware account %s: %w", pda, err))
		}
		result.Initialized = true
		result.State = state
		return nil
	})

	if !result.Payer.IsZero() {
		g.Go(func() error {
			balance, err := s.client.GetBalance(gctx, result.Payer, "")
			if err != nil {
				return fmt.Errorf("payer balance: %w", err)
			}
			result.PayerBalance = balance
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if blockchain.KindOf(err) != "" {
			return nil, err
		}
		return nil, blockchain.NewError(blockchain.KindNetworkFailure, err)
	}

	s.logger.Debug("Inspection completed",
		zap.Bool("program_executable", result.ProgramExecutable),
		zap.Bool("initialized", result.Initialized),
		zap.Uint64("payer_balance", result.PayerBalance))
	return result, nil
}

// Warnings возвращает проблемы, которые приведут к отказу программы
func (i *Inspection) Warnings() []string {
	var out []string
	if !i.ProgramExists {
		out = append(out, fmt.Sprintf("program %s not found", i.ProgramID))
	} else if !i.ProgramExecutable {
		out = append(out, fmt.Sprintf("account %s is not executable", i.ProgramID))
	}
	if !i.Initialized {
		out = append(out, "middleware account is not initialized")
	} else if !i.Payer.IsZero() && !i.State.Authority.Equals(i.Payer) {
		out = append(out, fmt.Sprintf("payer %s is not the authority %s", i.Payer, i.State.Authority))
	}
	if !i.Payer.IsZero() && i.PayerBalance == 0 {
		out = append(out, "payer balance is zero")
	}
	return out
}
