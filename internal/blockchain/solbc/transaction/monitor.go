// internal/blockchain/solbc/transaction/monitor.go
package transaction

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rovshanmuradov/solana-middleware/internal/blockchain"
	"go.uber.org/zap"
)

// Monitor опрашивает статус подписи с фиксированным интервалом.
type Monitor struct {
	client blockchain.Client
	logger *zap.Logger
	config Config
}

func NewMonitor(client blockchain.Client, logger *zap.Logger, config Config) *Monitor {
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultConfig().PollInterval
	}
	if config.Commitment == "" {
		config.Commitment = rpc.CommitmentConfirmed
	}
	return &Monitor{
		client: client,
		logger: logger.Named("tx-monitor"),
		config: config,
	}
}

// GetTransactionStatus возвращает текущий статус подписи.
func (m *Monitor) GetTransactionStatus(ctx context.Context, signature solana.Signature) (*Status, error) {
	response, err := m.client.GetSignatureStatuses(ctx, signature)
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction status: %w", err)
	}

	if response == nil || len(response.Value) == 0 || response.Value[0] == nil {
		return &Status{
			Signature: signature.String(),
			Status:    "pending",
			Timestamp: time.Now(),
		}, nil
	}

	status := response.Value[0]
	txStatus := &Status{
		Signature: signature.String(),
		Timestamp: time.Now(),
		Slot:      status.Slot,
	}

	if status.Confirmations != nil {
		txStatus.Confirmations = *status.Confirmations
	}

	switch status.ConfirmationStatus {
	case rpc.ConfirmationStatusFinalized:
		txStatus.Status = "finalized"
	case rpc.ConfirmationStatusConfirmed:
		txStatus.Status = "confirmed"
	case rpc.ConfirmationStatusProcessed:
		txStatus.Status = "processed"
	default:
		txStatus.Status = "pending"
	}

	if status.Err != nil {
		txStatus.Error = fmt.Sprintf("%v", status.Err)
		txStatus.Status = "failed"
	}

	return txStatus, nil
}

// reached проверяет, достигнут ли целевой уровень подтверждения.
func (m *Monitor) reached(status *Status) bool {
	switch status.Status {
	case "failed", "finalized":
		return true
	case "confirmed":
		return m.config.Commitment != rpc.CommitmentFinalized
	default:
		return false
	}
}

// AwaitConfirmation опрашивает статус, пока он не станет финальным или не истечёт deadline.
// По истечении deadline или отмене ctx возвращает ErrConfirmationTimeout; тикер
// останавливается до возврата, после него опросов нет.
func (m *Monitor) AwaitConfirmation(ctx context.Context, signature solana.Signature, deadline time.Time) (*Status, error) {
	pollCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	ticker := time.NewTicker(m.config.PollInterval)
	defer ticker.Stop()

	var last *Status
	for {
		select {
		case <-pollCtx.Done():
			m.logger.Debug("Confirmation polling stopped",
				zap.String("signature", signature.String()),
				zap.Error(pollCtx.Err()))
			return last, ErrConfirmationTimeout
		case <-ticker.C:
			status, err := m.GetTransactionStatus(pollCtx, signature)
			if err != nil {
				m.logger.Warn("Confirmation check failed", zap.Error(err))
				continue
			}
			last = status
			if m.reached(status) {
				return status, nil
			}
		}
	}
}
