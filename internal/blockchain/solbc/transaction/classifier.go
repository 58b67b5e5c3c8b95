// internal/blockchain/solbc/transaction/classifier.go
package transaction

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/rovshanmuradov/solana-middleware/internal/blockchain"
)

// Classify сводит итог отправки и причину сбоя к одному виду ошибки.
// Для Confirmed возвращает nil. Уже классифицированные ошибки
// (Validation, MissingAccountRole, Encoding и т.д.) проходят без изменений.
func Classify(outcome *Outcome, cause error) *blockchain.Error {
	if outcome != nil && outcome.Kind == OutcomeConfirmed && cause == nil {
		return nil
	}

	var classified *blockchain.Error
	if errors.As(cause, &classified) {
		return classified
	}

	if outcome != nil {
		switch outcome.Kind {
		case OutcomeTimedOut:
			e := blockchain.NewError(blockchain.KindTimeout,
				fmt.Errorf("%w: status of %s unknown", ErrConfirmationTimeout, outcome.Signature))
			e.Signature = outcome.Signature.String()
			return e
		case OutcomeRejected:
			if cause == nil {
				e := blockchain.NewError(blockchain.KindSimulationRejected, errors.New(outcome.Reason))
				e.Logs = outcome.Logs
				if outcome.Signature != (solana.Signature{}) {
					e.Signature = outcome.Signature.String()
				}
				return e
			}
		}
	}

	if cause == nil {
		return blockchain.Errorf(blockchain.KindNetworkFailure, "submission ended without outcome")
	}

	switch {
	case errors.Is(cause, ErrMissingSigner),
		errors.Is(cause, ErrInvalidSignature),
		errors.Is(cause, ErrInvalidBlockhash),
		errors.Is(cause, ErrInvalidInstruction):
		return blockchain.NewError(blockchain.KindValidation, cause)
	case errors.Is(cause, context.DeadlineExceeded), errors.Is(cause, context.Canceled):
		return blockchain.NewError(blockchain.KindTimeout, cause)
	default:
		return blockchain.NewError(blockchain.KindNetworkFailure, cause)
	}
}
