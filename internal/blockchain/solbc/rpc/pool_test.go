package rpc

import (
	"context"
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestPool(t *testing.T, urls ...string) *Pool {
	t.Helper()
	pool, err := NewPoolFromURLs(urls, zap.NewNop())
	require.NoError(t, err)
	return pool
}

func TestNewPoolRequiresNodes(t *testing.T) {
	_, err := NewPoolFromURLs([]string{"", ""}, zap.NewNop())
	assert.ErrorIs(t, err, ErrNoActiveClients)
}

func TestPoolNextRoundRobin(t *testing.T) {
	pool := newTestPool(t, "http://a", "http://b", "http://c")

	var got []string
	for i := 0; i < 4; i++ {
		got = append(got, pool.Next().URL)
	}
	assert.Equal(t, []string{"http://a", "http://b", "http://c", "http://a"}, got)
}

func TestPoolFailoverOnConnectionError(t *testing.T) {
	pool := newTestPool(t, "http://a", "http://b")

	var visited []string
	err := pool.Failover(context.Background(), "getLatestBlockhash", func(c *NodeClient) error {
		visited = append(visited, c.URL)
		if c.URL == "http://a" {
			return ErrConnectionFailed
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"http://a", "http://b"}, visited)
	assert.False(t, pool.clients[0].IsActive())

	stats := pool.Stats()
	assert.Equal(t, uint64(1), stats[0].Errors)
	assert.Equal(t, uint64(1), stats[1].Successes)
}

func TestPoolFailoverStopsOnNonRetryable(t *testing.T) {
	pool := newTestPool(t, "http://a", "http://b")

	calls := 0
	err := pool.Failover(context.Background(), "getAccountInfo", func(c *NodeClient) error {
		calls++
		return &jsonrpc.RPCError{Code: -32602, Message: "invalid params"}
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)

	var rpcErr *Error
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, "getAccountInfo", rpcErr.Method)
	assert.True(t, IsJSONRPCError(err))
}

func TestPoolExecuteSingleAttempt(t *testing.T) {
	pool := newTestPool(t, "http://a", "http://b")

	calls := 0
	err := pool.Execute(context.Background(), "sendTransaction", func(c *NodeClient) error {
		calls++
		return ErrConnectionFailed
	})

	assert.ErrorIs(t, err, ErrConnectionFailed)
	assert.Equal(t, 1, calls)
}

func TestPoolReactivatesWhenAllInactive(t *testing.T) {
	pool := newTestPool(t, "http://a", "http://b")
	for _, c := range pool.clients {
		c.SetActive(false)
	}

	client := pool.Next()
	require.NotNil(t, client)
	for _, c := range pool.clients {
		assert.True(t, c.IsActive())
	}
}

func TestIsRetryableError(t *testing.T) {
	assert.False(t, IsRetryableError(nil))
	assert.True(t, IsRetryableError(ErrRateLimit))
	assert.True(t, IsRetryableError(errors.New("read tcp: connection reset by peer")))
	assert.True(t, IsRetryableError(&jsonrpc.RPCError{Code: -32005, Message: "Node is behind"}))
	assert.False(t, IsRetryableError(&jsonrpc.RPCError{Code: -32002, Message: "Transaction simulation failed"}))
}
