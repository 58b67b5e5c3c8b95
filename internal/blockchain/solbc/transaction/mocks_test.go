// internal/blockchain/solbc/transaction/mocks_test.go
package transaction

import (
	"context"
	"errors"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rovshanmuradov/solana-middleware/internal/blockchain"
	"github.com/rovshanmuradov/solana-middleware/internal/events"
	"github.com/stretchr/testify/mock"
)

// MockClient реализует интерфейс blockchain.Client
type MockClient struct {
	mock.Mock
}

func (m *MockClient) GetLatestBlockhash(ctx context.Context) (*blockchain.LatestBlockhash, error) {
	args := m.Called(ctx)
	if v := args.Get(0); v != nil {
		return v.(*blockchain.LatestBlockhash), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockClient) GetAccountInfo(ctx context.Context, pubkey solana.PublicKey) (*rpc.GetAccountInfoResult, error) {
	args := m.Called(ctx, pubkey)
	if v := args.Get(0); v != nil {
		return v.(*rpc.GetAccountInfoResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockClient) GetSignatureStatuses(ctx context.Context, signatures ...solana.Signature) (*rpc.GetSignatureStatusesResult, error) {
	args := m.Called(ctx, signatures)
	if v := args.Get(0); v != nil {
		return v.(*rpc.GetSignatureStatusesResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockClient) SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts blockchain.TransactionOptions) (solana.Signature, error) {
	args := m.Called(ctx, tx, opts)
	return args.Get(0).(solana.Signature), args.Error(1)
}

func (m *MockClient) SimulateTransaction(ctx context.Context, tx *solana.Transaction) (*blockchain.SimulationResult, error) {
	args := m.Called(ctx, tx)
	if v := args.Get(0); v != nil {
		return v.(*blockchain.SimulationResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockClient) GetBalance(ctx context.Context, pubkey solana.PublicKey, commitment rpc.CommitmentType) (uint64, error) {
	args := m.Called(ctx, pubkey, commitment)
	return args.Get(0).(uint64), args.Error(1)
}

// testSigner подписывает транзакции ключом из памяти
type testSigner struct {
	key     solana.PrivateKey
	decline bool
}

func newTestSigner() *testSigner {
	return &testSigner{key: solana.NewWallet().PrivateKey}
}

func (s *testSigner) PublicKey() solana.PublicKey {
	return s.key.PublicKey()
}

func (s *testSigner) SignTransaction(_ context.Context, tx *solana.Transaction) error {
	if s.decline {
		return errors.New("user declined")
	}
	_, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(s.key.PublicKey()) {
			return &s.key
		}
		return nil
	})
	return err
}

// testCall минимальный вызов программы с одним подписантом
type testCall struct {
	programID solana.PublicKey
	signer    solana.PublicKey
	data      []byte
}

func newTestCall(signer solana.PublicKey) *testCall {
	return &testCall{
		programID: solana.NewWallet().PublicKey(),
		signer:    signer,
		data:      []byte{1, 2, 3, 4, 5, 6, 7, 8, 42},
	}
}

func (c *testCall) ProgramID() solana.PublicKey { return c.programID }

func (c *testCall) Accounts() []*solana.AccountMeta {
	return []*solana.AccountMeta{solana.Meta(c.signer).SIGNER().WRITE()}
}

func (c *testCall) Data() ([]byte, error) { return c.data, nil }

func (c *testCall) Info() blockchain.CallInfo {
	return blockchain.CallInfo{
		Method:   "initialize",
		Selector: "0102030405060708",
		Accounts: []string{"authority=" + c.signer.String() + "[sw]"},
		DataLen:  len(c.data),
	}
}

// recordingPublisher запоминает опубликованные события
type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) types() []events.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.EventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type())
	}
	return out
}

func confirmedStatus(slot uint64) *rpc.GetSignatureStatusesResult {
	return &rpc.GetSignatureStatusesResult{
		Value: []*rpc.SignatureStatusesResult{{
			Slot:               slot,
			ConfirmationStatus: rpc.ConfirmationStatusConfirmed,
		}},
	}
}

func pendingStatus() *rpc.GetSignatureStatusesResult {
	return &rpc.GetSignatureStatusesResult{Value: []*rpc.SignatureStatusesResult{nil}}
}
