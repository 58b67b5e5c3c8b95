package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBusDeliversSubmissionEvents(t *testing.T) {
	bus := NewBus(zap.NewNop(), 8)
	defer func() { _ = bus.Shutdown(context.Background()) }()

	var (
		mu  sync.Mutex
		got []string
	)
	done := make(chan struct{}, 2)
	sub := bus.SubscribeFunc(SubmissionStateChanged, func(_ context.Context, e Event) error {
		ev := e.(StateChangedEvent)
		mu.Lock()
		got = append(got, ev.From+"->"+ev.To)
		mu.Unlock()
		done <- struct{}{}
		return nil
	})
	defer sub.Unsubscribe()

	require.NoError(t, bus.PublishSync(context.Background(), StateChangedEvent{
		BaseEvent: NewBase(SubmissionStateChanged), From: "built", To: "signed",
	}))
	require.NoError(t, bus.Publish(StateChangedEvent{
		BaseEvent: NewBase(SubmissionStateChanged), From: "signed", To: "simulated",
	}))

	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("event not delivered")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []string{"built->signed", "signed->simulated"}, got)
	assert.Equal(t, 1, bus.Stats().HandlersPerType[SubmissionStateChanged])
}

func TestBusPublishAfterShutdown(t *testing.T) {
	bus := NewBus(zap.NewNop(), 1)
	require.NoError(t, bus.Shutdown(context.Background()))

	err := bus.Publish(CompletedEvent{BaseEvent: NewBase(SubmissionCompleted)})
	assert.ErrorIs(t, err, ErrBusClosed)
}

func TestBusPreservesPublishOrder(t *testing.T) {
	bus := NewBus(zap.NewNop(), 16)

	var (
		mu  sync.Mutex
		got []string
	)
	bus.SubscribeFunc(SubmissionStateChanged, func(_ context.Context, e Event) error {
		// Медленный обработчик не должен переставлять события
		time.Sleep(time.Millisecond)
		mu.Lock()
		got = append(got, e.(StateChangedEvent).To)
		mu.Unlock()
		return nil
	})

	trace := []string{"built", "signed", "simulated", "accepted", "sent", "confirmed"}
	for _, to := range trace {
		require.NoError(t, bus.Publish(StateChangedEvent{
			BaseEvent:    NewBase(SubmissionStateChanged),
			SubmissionID: "sub-1",
			To:           to,
		}))
	}

	// Shutdown доставляет всё, что уже в очереди
	require.NoError(t, bus.Shutdown(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, trace, got)
}

func TestBusHandlersRunInSubscriptionOrder(t *testing.T) {
	bus := NewBus(zap.NewNop(), 4)
	defer func() { _ = bus.Shutdown(context.Background()) }()

	var calls []string
	for _, name := range []string{"recorder", "advice", "metrics"} {
		name := name
		bus.SubscribeFunc(SubmissionFailed, func(context.Context, Event) error {
			calls = append(calls, name)
			return nil
		})
	}

	require.NoError(t, bus.PublishSync(context.Background(), FailedEvent{BaseEvent: NewBase(SubmissionFailed)}))
	assert.Equal(t, []string{"recorder", "advice", "metrics"}, calls)
}
