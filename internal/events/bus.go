// internal/events/bus.go
package events

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrBusClosed возвращается при публикации после Shutdown
	ErrBusClosed = errors.New("event bus is shutting down")

	// ErrBusFull буфер переполнен, событие отброшено
	ErrBusFull = errors.New("event channel full")
)

// Publisher сторона публикации. Конвейер отправки зависит только от неё.
type Publisher interface {
	Publish(event Event) error
}

// Handler обрабатывает события отправок одного типа.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc позволяет использовать функцию как Handler.
type HandlerFunc func(ctx context.Context, event Event) error

// Handle вызывает f(ctx, event).
func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Subscription подписка на тип событий.
type Subscription interface {
	Unsubscribe()
}

type subscription struct {
	id  string
	bus *Bus
	typ EventType
}

func (s *subscription) Unsubscribe() {
	s.bus.unsubscribe(s.id, s.typ)
}

type registered struct {
	seq     uint64
	handler Handler
}

// Bus шина событий жизненного цикла отправок в памяти процесса.
// Асинхронные события доставляются одним обработчиком очереди в порядке
// публикации, поэтому переходы одной отправки приходят подписчику по порядку.
// Подписчики одного типа вызываются в порядке подписки.
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType]map[string]registered
	nextSeq  uint64

	logger *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	queue  chan Event
}

// NewBus создает шину с буфером на bufferSize событий.
func NewBus(logger *zap.Logger, bufferSize int) *Bus {
	ctx, cancel := context.WithCancel(context.Background())
	bus := &Bus{
		handlers: make(map[EventType]map[string]registered),
		logger:   logger.Named("event-bus"),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
		queue:    make(chan Event, bufferSize),
	}
	go bus.run()
	return bus
}

// Subscribe регистрирует обработчик для типа событий.
func (b *Bus) Subscribe(eventType EventType, handler Handler) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := uuid.NewString()
	if b.handlers[eventType] == nil {
		b.handlers[eventType] = make(map[string]registered)
	}
	b.nextSeq++
	b.handlers[eventType][id] = registered{seq: b.nextSeq, handler: handler}

	b.logger.Debug("Handler subscribed",
		zap.String("event_type", string(eventType)),
		zap.String("subscription_id", id))

	return &subscription{id: id, bus: b, typ: eventType}
}

// SubscribeFunc подписывает функцию.
func (b *Bus) SubscribeFunc(eventType EventType, fn func(context.Context, Event) error) Subscription {
	return b.Subscribe(eventType, HandlerFunc(fn))
}

// Publish ставит событие в очередь и не блокирует отправку.
// При переполнении событие отбрасывается с ErrBusFull.
func (b *Bus) Publish(event Event) error {
	if b.ctx.Err() != nil {
		return ErrBusClosed
	}
	select {
	case b.queue <- event:
		return nil
	default:
		b.logger.Warn("Event channel full, dropping event",
			zap.String("event_type", string(event.Type())))
		return ErrBusFull
	}
}

// PublishSync вызывает обработчики в текущей горутине.
func (b *Bus) PublishSync(ctx context.Context, event Event) error {
	var errs []error
	for _, h := range b.snapshot(event.Type()) {
		if err := h.handler.Handle(ctx, event); err != nil {
			b.logger.Error("Handler error",
				zap.String("event_type", string(event.Type())),
				zap.Error(err))
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("handlers failed: %w", errors.Join(errs...))
	}
	return nil
}

// snapshot копия обработчиков типа в порядке подписки; блокировка не держится во время вызова
func (b *Bus) snapshot(eventType EventType) []registered {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]registered, 0, len(b.handlers[eventType]))
	for _, h := range b.handlers[eventType] {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}

func (b *Bus) run() {
	defer close(b.done)

	for {
		select {
		case <-b.ctx.Done():
			// Оставшиеся события доставляются до выхода
			for {
				select {
				case event := <-b.queue:
					_ = b.PublishSync(context.Background(), event)
				default:
					return
				}
			}
		case event := <-b.queue:
			_ = b.PublishSync(b.ctx, event)
		}
	}
}

func (b *Bus) unsubscribe(id string, eventType EventType) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if handlers, ok := b.handlers[eventType]; ok {
		delete(handlers, id)
		if len(handlers) == 0 {
			delete(b.handlers, eventType)
		}
	}
	b.logger.Debug("Handler unsubscribed",
		zap.String("event_type", string(eventType)),
		zap.String("subscription_id", id))
}

// Shutdown прекращает приём событий и дожидается доставки уже поставленных.
func (b *Bus) Shutdown(ctx context.Context) error {
	b.logger.Debug("Shutting down event bus", zap.Int("pending", len(b.queue)))
	b.cancel()

	select {
	case <-b.done:
		return nil
	case <-ctx.Done():
		b.logger.Warn("Event bus shutdown timeout", zap.Int("pending", len(b.queue)))
		return ctx.Err()
	}
}

// Stats снимок состояния шины
type Stats struct {
	BufferSize      int
	PendingEvents   int
	HandlersPerType map[EventType]int
}

// Stats возвращает размер очереди и число подписчиков по типам.
func (b *Bus) Stats() Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()

	stats := Stats{
		BufferSize:      cap(b.queue),
		PendingEvents:   len(b.queue),
		HandlersPerType: make(map[EventType]int, len(b.handlers)),
	}
	for eventType, handlers := range b.handlers {
		stats.HandlersPerType[eventType] = len(handlers)
	}
	return stats
}

var _ Publisher = (*Bus)(nil)
