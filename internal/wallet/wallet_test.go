package wallet

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTransaction(t *testing.T, payer solana.PublicKey) *solana.Transaction {
	t.Helper()
	ix := solana.NewInstruction(solana.SystemProgramID,
		[]*solana.AccountMeta{solana.Meta(payer).SIGNER().WRITE()}, []byte{0})
	tx, err := solana.NewTransaction([]solana.Instruction{ix}, solana.Hash{1}, solana.TransactionPayer(payer))
	require.NoError(t, err)
	return tx
}

func TestNewWallet(t *testing.T) {
	key := solana.NewWallet().PrivateKey
	w, err := NewWallet(base58.Encode(key))
	require.NoError(t, err)
	assert.Equal(t, key.PublicKey(), w.PublicKey())
	assert.Equal(t, key.PublicKey().String(), w.String())

	_, err = NewWallet("0OIl")
	assert.Error(t, err)
	_, err = NewWallet(base58.Encode([]byte{1, 2, 3}))
	assert.Error(t, err)
}

func TestLoadKeypair(t *testing.T) {
	key := solana.NewWallet().PrivateKey
	dir := t.TempDir()

	ints := make([]int, len(key))
	for i, b := range key {
		ints[i] = int(b)
	}
	raw, err := json.Marshal(ints)
	require.NoError(t, err)
	jsonPath := filepath.Join(dir, "id.json")
	require.NoError(t, os.WriteFile(jsonPath, raw, 0o600))

	w, err := LoadKeypair(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, key.PublicKey(), w.PublicKey())

	b58Path := filepath.Join(dir, "key.txt")
	require.NoError(t, os.WriteFile(b58Path, []byte(base58.Encode(key)+"\n"), 0o600))
	w, err = LoadKeypair(b58Path)
	require.NoError(t, err)
	assert.Equal(t, key.PublicKey(), w.PublicKey())

	_, err = LoadKeypair(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestSignTransaction(t *testing.T) {
	w, err := NewWallet(base58.Encode(solana.NewWallet().PrivateKey))
	require.NoError(t, err)

	tx := testTransaction(t, w.PublicKey())
	require.NoError(t, w.SignTransaction(context.Background(), tx))
	require.Len(t, tx.Signatures, 1)
	assert.NoError(t, tx.VerifySignatures())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, w.SignTransaction(ctx, testTransaction(t, w.PublicKey())), context.Canceled)
}

func TestGetATACached(t *testing.T) {
	w, err := NewWallet(base58.Encode(solana.NewWallet().PrivateKey))
	require.NoError(t, err)
	mint := solana.NewWallet().PublicKey()

	first, err := w.GetATA(mint)
	require.NoError(t, err)
	expected, _, err := solana.FindAssociatedTokenAddress(w.PublicKey(), mint)
	require.NoError(t, err)
	assert.Equal(t, expected, first)

	second, err := w.GetATA(mint)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestApprovingSigner(t *testing.T) {
	w, err := NewWallet(base58.Encode(solana.NewWallet().PrivateKey))
	require.NoError(t, err)

	var out bytes.Buffer
	declining := NewApprovingSigner(w, PromptApprover(strings.NewReader("n\n"), &out))
	err = declining.SignTransaction(context.Background(), testTransaction(t, w.PublicKey()))
	assert.ErrorIs(t, err, ErrDeclined)
	assert.Contains(t, out.String(), "Sign and send?")

	approving := NewApprovingSigner(w, PromptApprover(strings.NewReader("yes\n"), &out))
	tx := testTransaction(t, w.PublicKey())
	require.NoError(t, approving.SignTransaction(context.Background(), tx))
	assert.NoError(t, tx.VerifySignatures())

	unattended := NewApprovingSigner(w, nil)
	assert.NoError(t, unattended.SignTransaction(context.Background(), testTransaction(t, w.PublicKey())))
	assert.Equal(t, w.PublicKey(), unattended.PublicKey())
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) prompts() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.Count(b.buf.String(), "Sign and send?")
}

func TestPromptApproverCanceledPromptKeepsSingleReader(t *testing.T) {
	w, err := NewWallet(base58.Encode(solana.NewWallet().PrivateKey))
	require.NoError(t, err)
	tx := testTransaction(t, w.PublicKey())

	in, input := io.Pipe()
	defer input.Close()
	out := &syncBuffer{}
	approve := PromptApprover(in, out)

	ctx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := approve(ctx, tx)
		firstErr <- err
	}()
	require.Eventually(t, func() bool { return out.prompts() == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	require.ErrorIs(t, <-firstErr, context.Canceled)

	type answer struct {
		ok  bool
		err error
	}
	second := make(chan answer, 1)
	go func() {
		ok, err := approve(context.Background(), tx)
		second <- answer{ok, err}
	}()
	require.Eventually(t, func() bool { return out.prompts() == 2 }, time.Second, 5*time.Millisecond)

	_, err = input.Write([]byte("y\n"))
	require.NoError(t, err)

	select {
	case a := <-second:
		require.NoError(t, a.err)
		assert.True(t, a.ok)
	case <-time.After(time.Second):
		t.Fatal("answer not delivered to the pending prompt")
	}

	done, stop := context.WithCancel(context.Background())
	stop()
	_, err = approve(done, tx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, out.prompts(), "canceled context does not print a prompt")
}
