// internal/blockchain/solbc/client.go
package solbc

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"github.com/rovshanmuradov/solana-middleware/internal/blockchain"
	"github.com/rovshanmuradov/solana-middleware/internal/blockchain/solbc/rpc"
	"go.uber.org/zap"
)

// Client – адаптер solana-go поверх пула RPC узлов.
// Идемпотентные чтения повторяются с экспоненциальной задержкой,
// отправка и симуляция выполняются ровно один раз.
type Client struct {
	pool       *rpc.Pool
	logger     *zap.Logger
	commitment solanarpc.CommitmentType
	maxElapsed time.Duration
}

// Определение ошибок
var (
	ErrAccountNotFound = errors.New("account not found")
)

// IsAccountNotFoundError проверяет, является ли ошибка "not found"
func IsAccountNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrAccountNotFound) || errors.Is(err, solanarpc.ErrNotFound) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "not found")
}

// Option настраивает Client.
type Option func(*Client)

// WithCommitment задаёт уровень подтверждения для чтений и симуляции.
func WithCommitment(commitment solanarpc.CommitmentType) Option {
	return func(c *Client) {
		if commitment != "" {
			c.commitment = commitment
		}
	}
}

// WithMaxRetryElapsed ограничивает общее время повторов чтения.
func WithMaxRetryElapsed(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.maxElapsed = d
		}
	}
}

// NewClient создаёт клиент по списку RPC адресов.
func NewClient(rpcURLs []string, logger *zap.Logger, opts ...Option) (*Client, error) {
	pool, err := rpc.NewPoolFromURLs(rpcURLs, logger)
	if err != nil {
		return nil, err
	}
	return NewClientWithPool(pool, logger, opts...), nil
}

// NewClientWithPool создаёт клиент поверх готового пула.
func NewClientWithPool(pool *rpc.Pool, logger *zap.Logger, opts ...Option) *Client {
	c := &Client{
		pool:       pool,
		logger:     logger.Named("solbc-client"),
		commitment: solanarpc.CommitmentConfirmed,
		maxElapsed: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Pool возвращает пул узлов.
func (c *Client) Pool() *rpc.Pool {
	return c.pool
}

// withRetry повторяет идемпотентное чтение: переключение узлов внутри попытки,
// экспоненциальная задержка между попытками.
func withRetry[T any](ctx context.Context, c *Client, method string, read func(*solanarpc.Client) (T, error)) (T, error) {
	op := func() (T, error) {
		var result T
		err := c.pool.Failover(ctx, method, func(node *rpc.NodeClient) error {
			var err error
			result, err = read(node.Client)
			return err
		})
		if err != nil {
			if !rpc.IsRetryableError(err) {
				return result, backoff.Permanent(err)
			}
			c.logger.Debug("Retrying RPC read", zap.String("method", method), zap.Error(err))
			return result, err
		}
		return result, nil
	}

	return backoff.Retry(
		ctx,
		op,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxElapsedTime(c.maxElapsed),
	)
}

// GetLatestBlockhash получает последний blockhash и высоту, до которой он действителен.
func (c *Client) GetLatestBlockhash(ctx context.Context) (*blockchain.LatestBlockhash, error) {
	result, err := withRetry(ctx, c, "getLatestBlockhash", func(node *solanarpc.Client) (*solanarpc.GetLatestBlockhashResult, error) {
		return node.GetLatestBlockhash(ctx, c.commitment)
	})
	if err != nil {
		c.logger.Error("GetLatestBlockhash error", zap.Error(err))
		return nil, err
	}
	if result == nil || result.Value == nil {
		return nil, rpc.NewError(rpc.ErrInvalidResponse, "", "getLatestBlockhash")
	}
	return &blockchain.LatestBlockhash{
		Blockhash:            result.Value.Blockhash,
		LastValidBlockHeight: result.Value.LastValidBlockHeight,
	}, nil
}

// GetAccountInfo получает информацию об аккаунте.
func (c *Client) GetAccountInfo(ctx context.Context, pubkey solana.PublicKey) (*solanarpc.GetAccountInfoResult, error) {
	result, err := withRetry(ctx, c, "getAccountInfo", func(node *solanarpc.Client) (*solanarpc.GetAccountInfoResult, error) {
		res, err := node.GetAccountInfoWithOpts(ctx, pubkey, &solanarpc.GetAccountInfoOpts{
			Encoding:   solana.EncodingBase64,
			Commitment: c.commitment,
		})
		if errors.Is(err, solanarpc.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, pubkey)
		}
		return res, err
	})
	if err != nil {
		c.logger.Debug("GetAccountInfo error",
			zap.String("pubkey", pubkey.String()),
			zap.Error(err))
		return nil, err
	}
	return result, nil
}

// GetSignatureStatuses получает статусы транзакций.
func (c *Client) GetSignatureStatuses(ctx context.Context, signatures ...solana.Signature) (*solanarpc.GetSignatureStatusesResult, error) {
	result, err := withRetry(ctx, c, "getSignatureStatuses", func(node *solanarpc.Client) (*solanarpc.GetSignatureStatusesResult, error) {
		return node.GetSignatureStatuses(ctx, true, signatures...)
	})
	if err != nil {
		c.logger.Debug("GetSignatureStatuses error", zap.Error(err))
		return nil, err
	}
	return result, nil
}

// GetBalance получает баланс аккаунта.
func (c *Client) GetBalance(ctx context.Context, pubkey solana.PublicKey, commitment solanarpc.CommitmentType) (uint64, error) {
	if commitment == "" {
		commitment = c.commitment
	}
	result, err := withRetry(ctx, c, "getBalance", func(node *solanarpc.Client) (*solanarpc.GetBalanceResult, error) {
		return node.GetBalance(ctx, pubkey, commitment)
	})
	if err != nil {
		c.logger.Error("GetBalance error", zap.Error(err))
		return 0, err
	}
	return result.Value, nil
}

// SendTransactionWithOpts отправляет транзакцию с заданными опциями. Без повторов.
func (c *Client) SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts blockchain.TransactionOptions) (solana.Signature, error) {
	var sig solana.Signature
	err := c.pool.Execute(ctx, "sendTransaction", func(node *rpc.NodeClient) error {
		var err error
		sig, err = node.Client.SendTransactionWithOpts(ctx, tx, solanarpc.TransactionOpts{
			SkipPreflight:       opts.SkipPreflight,
			PreflightCommitment: opts.PreflightCommitment,
		})
		return err
	})
	if err != nil {
		c.logger.Error("SendTransactionWithOpts error",
			zap.Bool("skip_preflight", opts.SkipPreflight),
			zap.Error(err))
		return solana.Signature{}, err
	}
	return sig, nil
}

// SimulateTransaction симулирует транзакцию и возвращает результат симуляции.
// Ошибка возвращается только при сбое самой симуляции; отказ программы
// приходит в SimulationResult.Err.
func (c *Client) SimulateTransaction(ctx context.Context, tx *solana.Transaction) (*blockchain.SimulationResult, error) {
	var result *solanarpc.SimulateTransactionResponse
	err := c.pool.Execute(ctx, "simulateTransaction", func(node *rpc.NodeClient) error {
		var err error
		result, err = node.Client.SimulateTransactionWithOpts(ctx, tx, &solanarpc.SimulateTransactionOpts{
			SigVerify:  true,
			Commitment: c.commitment,
		})
		return err
	})
	if err != nil {
		c.logger.Error("SimulateTransaction error", zap.Error(err))
		return nil, err
	}
	if result == nil || result.Value == nil {
		return nil, rpc.NewError(rpc.ErrInvalidResponse, "", "simulateTransaction")
	}

	units := uint64(0)
	if result.Value.UnitsConsumed != nil {
		units = *result.Value.UnitsConsumed
	}
	return &blockchain.SimulationResult{
		Err:           result.Value.Err,
		Logs:          result.Value.Logs,
		UnitsConsumed: units,
	}, nil
}

// Гарантируем, что Client реализует интерфейс blockchain.Client.
var _ blockchain.Client = (*Client)(nil)
