// internal/service/history.go
package service

import (
	"context"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/rovshanmuradov/solana-middleware/internal/blockchain"
	"github.com/rovshanmuradov/solana-middleware/internal/blockchain/solbc/transaction"
	"github.com/rovshanmuradov/solana-middleware/internal/storage/models"
	"go.uber.org/zap"
)

// record сохраняет отправку в историю. Ошибки истории не влияют на результат.
func (s *Service) record(ctx context.Context, sub *transaction.Submission, err error) {
	if s.recorder == nil || sub == nil || len(sub.Trace) == 0 {
		return
	}

	row := toModel(sub, s.signer.PublicKey().String(), s.builder.ProgramID().String(), err)
	// История пишется даже если ctx вызова уже отменён
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if saveErr := s.recorder.SaveSubmission(saveCtx, row); saveErr != nil {
		s.logger.Warn("Failed to record submission",
			zap.String("submission_id", sub.ID),
			zap.Error(saveErr))
		return
	}
	s.logger.Debug("Submission recorded", zap.String("submission_id", sub.ID))
}

func toModel(sub *transaction.Submission, authority, programID string, err error) *models.Submission {
	info := sub.Info()
	row := &models.Submission{
		SubmissionID: sub.ID,
		Authority:    authority,
		ProgramID:    programID,
		Method:       info.Method,
		Selector:     info.Selector,
		DataLen:      info.DataLen,
		State:        string(sub.State),
	}
	if sub.Signature != (solana.Signature{}) {
		row.Signature = sub.Signature.String()
	}

	if len(sub.Trace) > 0 {
		first, last := sub.Trace[0].At, sub.Trace[len(sub.Trace)-1].At
		row.ExecutionTime = last.Sub(first).Seconds()
	}
	for i, tr := range sub.Trace {
		row.Transitions = append(row.Transitions, models.SubmissionTransition{
			SubmissionID: sub.ID,
			Seq:          i,
			FromState:    string(tr.From),
			ToState:      string(tr.To),
			Fallback:     tr.Fallback,
			At:           tr.At,
		})
	}

	if o := sub.Outcome; o != nil {
		row.Outcome = string(o.Kind)
		row.Slot = o.Slot
		row.UnitsConsumed = o.UnitsConsumed
		row.FallbackUsed = o.FallbackUsed
		row.Logs = strings.Join(o.Logs, "\n")
		if o.Kind == transaction.OutcomeConfirmed {
			at := sub.Trace[len(sub.Trace)-1].At
			row.ConfirmedAt = &at
		}
	}
	if err != nil {
		row.ErrorKind = string(blockchain.KindOf(err))
		row.ErrorMessage = err.Error()
	}
	return row
}
