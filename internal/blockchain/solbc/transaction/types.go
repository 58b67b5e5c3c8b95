// internal/blockchain/solbc/transaction/types.go
package transaction

import (
	"context"
	"errors"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rovshanmuradov/solana-middleware/internal/blockchain"
	"github.com/rovshanmuradov/solana-middleware/internal/blockchain/computebudget"
)

var (
	ErrConfirmationTimeout = errors.New("transaction confirmation timeout")
	ErrInvalidSignature    = errors.New("invalid transaction signature")
	ErrInvalidBlockhash    = errors.New("invalid blockhash")
	ErrInvalidInstruction  = errors.New("invalid instruction")
	ErrMissingSigner       = errors.New("required signer is not available")
)

// Config параметры конвейера отправки
type Config struct {
	PollInterval   time.Duration
	ConfirmTimeout time.Duration
	SkipPreflight  bool
	Commitment     rpc.CommitmentType
	ComputeBudget  computebudget.Config
}

// DefaultConfig значения по умолчанию
func DefaultConfig() Config {
	return Config{
		PollInterval:   500 * time.Millisecond,
		ConfirmTimeout: 60 * time.Second,
		Commitment:     rpc.CommitmentConfirmed,
		ComputeBudget:  computebudget.NewDefaultConfig(),
	}
}

// Call вызов, который конвейер умеет описать в логах и ошибках.
type Call interface {
	solana.Instruction
	Info() blockchain.CallInfo
}

// Signer подписывает транзакцию ключом плательщика.
// Отказ подписать (в том числе пользователем) возвращается ошибкой.
type Signer interface {
	PublicKey() solana.PublicKey
	SignTransaction(ctx context.Context, tx *solana.Transaction) error
}

// State состояние отправки
type State string

const (
	StateBuilt     State = "built"
	StateSigned    State = "signed"
	StateSimulated State = "simulated"
	StateAccepted  State = "accepted"
	StateSent      State = "sent"
	StateConfirmed State = "confirmed"
	StateTimedOut  State = "timed_out"
	StateRejected  State = "rejected"
)

// Terminal сообщает, что из состояния переходов нет.
func (s State) Terminal() bool {
	return s == StateConfirmed || s == StateTimedOut || s == StateRejected
}

// transitions допустимые переходы. Signed -> Sent допустим только как fallback.
var transitions = map[State][]State{
	"":             {StateBuilt},
	StateBuilt:     {StateSigned, StateRejected},
	StateSigned:    {StateSimulated, StateSent, StateRejected},
	StateSimulated: {StateAccepted, StateRejected},
	StateAccepted:  {StateSent, StateRejected},
	StateSent:      {StateConfirmed, StateTimedOut, StateRejected},
}

// CanTransition проверяет переход по таблице.
func CanTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Transition запись в трассе отправки
type Transition struct {
	From     State
	To       State
	At       time.Time
	Fallback bool
}

// OutcomeKind итог отправки
type OutcomeKind string

const (
	OutcomeConfirmed OutcomeKind = "confirmed"
	OutcomeRejected  OutcomeKind = "rejected"
	OutcomeTimedOut  OutcomeKind = "timed_out"
)

// Outcome результат отправки: Confirmed(signature) | Rejected(reason, logs) | TimedOut(signature).
// TimedOut означает "статус неизвестен", а не "не прошла".
type Outcome struct {
	Kind          OutcomeKind
	Signature     solana.Signature
	Reason        string
	Logs          []string
	Slot          uint64
	UnitsConsumed uint64
	FallbackUsed  bool
}

// Status статус подписи в сети
type Status struct {
	Signature     string
	Status        string
	Confirmations uint64
	Slot          uint64
	Error         string
	Timestamp     time.Time
}

// Final сообщает, что статус больше не изменится в худшую сторону.
func (s *Status) Final() bool {
	return s != nil && (s.Status == "confirmed" || s.Status == "finalized" || s.Status == "failed")
}
