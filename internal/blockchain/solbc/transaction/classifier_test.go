package transaction

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/rovshanmuradov/solana-middleware/internal/blockchain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestClassify(t *testing.T) {
	sig := solana.Signature{1}
	structural := blockchain.Errorf(blockchain.KindMissingAccountRole, "role serum_bids not supplied")

	tests := []struct {
		name    string
		outcome *Outcome
		cause   error
		want    blockchain.ErrorKind
	}{
		{"confirmed", &Outcome{Kind: OutcomeConfirmed, Signature: sig}, nil, ""},
		{"timed out", &Outcome{Kind: OutcomeTimedOut, Signature: sig}, nil, blockchain.KindTimeout},
		{"rejected with logs", &Outcome{Kind: OutcomeRejected, Reason: "custom program error", Logs: []string{"x"}}, nil, blockchain.KindSimulationRejected},
		{"structural passes through", nil, structural, blockchain.KindMissingAccountRole},
		{"declined", nil, blockchain.NewError(blockchain.KindSignatureDeclined, errors.New("no")), blockchain.KindSignatureDeclined},
		{"missing signer", nil, fmt.Errorf("%w: key", ErrMissingSigner), blockchain.KindValidation},
		{"caller deadline", nil, context.DeadlineExceeded, blockchain.KindTimeout},
		{"transport", nil, errors.New("connection refused"), blockchain.KindNetworkFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.outcome, tt.cause)
			if tt.want == "" {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.Kind)
		})
	}

	assert.Same(t, structural, Classify(nil, structural))

	timedOut := Classify(&Outcome{Kind: OutcomeTimedOut, Signature: sig}, nil)
	assert.Equal(t, sig.String(), timedOut.Signature)
	assert.ErrorIs(t, timedOut, ErrConfirmationTimeout)

	rejected := Classify(&Outcome{Kind: OutcomeRejected, Logs: []string{"a", "b"}}, nil)
	assert.Equal(t, []string{"a", "b"}, rejected.Logs)
}

func TestMonitorStopsOnCanceledContext(t *testing.T) {
	mc := new(MockClient)
	mc.On("GetSignatureStatuses", mock.Anything, mock.Anything).Return(pendingStatus(), nil)

	m := NewMonitor(mc, zap.NewNop(), Config{PollInterval: 5 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.AwaitConfirmation(ctx, solana.Signature{1}, time.Now().Add(time.Minute))
	assert.ErrorIs(t, err, ErrConfirmationTimeout)
}

func TestMonitorCommitmentLevels(t *testing.T) {
	m := NewMonitor(new(MockClient), zap.NewNop(), Config{Commitment: "finalized"})
	assert.False(t, m.reached(&Status{Status: "confirmed"}))
	assert.True(t, m.reached(&Status{Status: "finalized"}))
	assert.True(t, m.reached(&Status{Status: "failed"}))

	m = NewMonitor(new(MockClient), zap.NewNop(), Config{})
	assert.True(t, m.reached(&Status{Status: "confirmed"}))
	assert.False(t, m.reached(&Status{Status: "processed"}))
}

func TestValidateTransaction(t *testing.T) {
	v := NewValidator(zap.NewNop())
	signer := newTestSigner()
	call := newTestCall(signer.PublicKey())

	tx, err := solana.NewTransaction([]solana.Instruction{call}, solana.Hash{1}, solana.TransactionPayer(signer.PublicKey()))
	require.NoError(t, err)
	assert.ErrorIs(t, v.ValidateTransaction(tx), ErrInvalidSignature)

	require.NoError(t, signer.SignTransaction(context.Background(), tx))
	assert.NoError(t, v.ValidateTransaction(tx))

	tx.Message.RecentBlockhash = solana.Hash{}
	assert.ErrorIs(t, v.ValidateTransaction(tx), ErrInvalidBlockhash)
}
