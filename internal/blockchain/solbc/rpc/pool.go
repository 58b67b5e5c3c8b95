// internal/blockchain/solbc/rpc/pool.go
package rpc

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// NewPool создает новый пул клиентов
func NewPool(clients []*NodeClient, logger *zap.Logger) (*Pool, error) {
	if len(clients) == 0 {
		return nil, ErrNoActiveClients
	}
	return &Pool{
		clients: clients,
		logger:  logger.Named("rpc-pool"),
	}, nil
}

// NewPoolFromURLs создает пул по списку RPC адресов
func NewPoolFromURLs(urls []string, logger *zap.Logger) (*Pool, error) {
	clients := make([]*NodeClient, 0, len(urls))
	for _, url := range urls {
		if url == "" {
			continue
		}
		clients = append(clients, NewNodeClient(url))
	}
	return NewPool(clients, logger)
}

// Size количество узлов в пуле
func (p *Pool) Size() int {
	return len(p.clients)
}

// Next возвращает следующий активный клиент из пула.
// Если все узлы помечены неактивными, пул возвращает их в работу:
// лучше повторить запрос к сбойному узлу, чем не отправить его вовсе.
func (p *Pool) Next() *NodeClient {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	for i := 0; i < len(p.clients); i++ {
		client := p.clients[(p.next+i)%len(p.clients)]
		if client.IsActive() {
			p.next = (p.next + i + 1) % len(p.clients)
			return client
		}
	}

	p.logger.Warn("All RPC nodes are inactive, reactivating pool")
	for _, client := range p.clients {
		client.SetActive(true)
	}
	client := p.clients[p.next]
	p.next = (p.next + 1) % len(p.clients)
	return client
}

// Execute выполняет операцию на одном узле ровно один раз.
// Используется для неидемпотентных вызовов (отправка, симуляция).
func (p *Pool) Execute(ctx context.Context, method string, operation func(*NodeClient) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	client := p.Next()
	return p.run(ctx, client, method, operation)
}

// Failover выполняет операцию, переходя к следующему узлу при сетевом сбое.
// Каждый узел опрашивается не более одного раза.
func (p *Pool) Failover(ctx context.Context, method string, operation func(*NodeClient) error) error {
	var lastErr error
	for attempt := 0; attempt < len(p.clients); attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return lastErr
			}
			return err
		}

		client := p.Next()
		err := p.run(ctx, client, method, operation)
		if err == nil {
			return nil
		}
		lastErr = err

		if !IsRetryableError(err) {
			return err
		}

		p.logger.Debug("RPC request failed, trying next node",
			zap.String("method", method),
			zap.String("url", client.URL),
			zap.Int("attempt", attempt+1),
			zap.Error(err))

		if attempt < len(p.clients)-1 {
			select {
			case <-ctx.Done():
				return lastErr
			case <-time.After(RetryDelay):
			}
		}
	}
	return lastErr
}

// Stats возвращает метрики всех узлов
func (p *Pool) Stats() []NodeStats {
	out := make([]NodeStats, len(p.clients))
	for i, client := range p.clients {
		out[i] = client.Stats()
	}
	return out
}

func (p *Pool) run(ctx context.Context, client *NodeClient, method string, operation func(*NodeClient) error) error {
	start := time.Now()
	err := operation(client)
	client.UpdateMetrics(err == nil, time.Since(start))
	if err == nil {
		return nil
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
		return NewError(err, client.URL, method)
	}
	if IsCriticalError(err) || IsConnectionError(err) {
		client.SetActive(false)
		p.logger.Warn("Node marked as inactive",
			zap.String("url", client.URL),
			zap.String("method", method),
			zap.Error(err))
	}
	return NewError(err, client.URL, method)
}
