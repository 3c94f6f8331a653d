package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/curvelaunch/internal/fixedpoint"
)

func settled(seq uint64) *TradeSettledEvent {
	return &TradeSettledEvent{
		BaseEvent:  NewBase(TradeSettled, "launch-1", time.Unix(int64(seq), 0)),
		Sequence:   seq,
		SupplySold: fixedpoint.FromUint64(seq * 100),
	}
}

func TestPublishDeliversInOrder(t *testing.T) {
	bus := NewBus(zap.NewNop(), 16)

	var mu sync.Mutex
	var got []uint64
	bus.Subscribe(TradeSettled, Typed(func(_ context.Context, e *TradeSettledEvent) error {
		mu.Lock()
		got = append(got, e.Sequence)
		mu.Unlock()
		return nil
	}))

	for i := uint64(1); i <= 10; i++ {
		require.NoError(t, bus.Publish(settled(i)))
	}
	require.NoError(t, bus.Shutdown(context.Background()))

	assert.Equal(t, []uint64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, got)
	assert.Equal(t, uint64(10), bus.Stats().Delivered)
}

func TestPublishSyncRunsHandlersInSubscriptionOrder(t *testing.T) {
	bus := NewBus(nil, 0)
	defer bus.Shutdown(context.Background())

	var calls []string
	bus.SubscribeFunc(StatusChanged, func(context.Context, Event) error {
		calls = append(calls, "first")
		return nil
	})
	bus.SubscribeFunc(StatusChanged, func(context.Context, Event) error {
		calls = append(calls, "second")
		return errors.New("boom")
	})
	bus.SubscribeFunc(StatusChanged, func(context.Context, Event) error {
		calls = append(calls, "third")
		return nil
	})

	err := bus.PublishSync(context.Background(), &StatusChangedEvent{
		BaseEvent: NewBase(StatusChanged, "launch-1", time.Now()),
		From:      "active",
		To:        "paused",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.Equal(t, []string{"first", "second", "third"}, calls)
	assert.Equal(t, uint64(1), bus.Stats().Failed)
}

func TestUnsubscribe(t *testing.T) {
	bus := NewBus(zap.NewNop(), 4)
	defer bus.Shutdown(context.Background())

	count := 0
	sub := bus.SubscribeFunc(PriceUpdated, func(context.Context, Event) error {
		count++
		return nil
	})
	assert.Equal(t, 1, bus.Stats().HandlersPerType[PriceUpdated])

	ev := &PriceUpdatedEvent{BaseEvent: NewBase(PriceUpdated, "launch-1", time.Now())}
	require.NoError(t, bus.PublishSync(context.Background(), ev))
	sub.Unsubscribe()
	require.NoError(t, bus.PublishSync(context.Background(), ev))

	assert.Equal(t, 1, count)
	assert.Zero(t, bus.Stats().HandlersPerType[PriceUpdated])
}

func TestTypedRejectsOtherEvents(t *testing.T) {
	h := Typed(func(context.Context, *GraduationEligibleEvent) error { return nil })
	err := h.Handle(context.Background(), settled(1))
	assert.Error(t, err)

	err = h.Handle(context.Background(), &GraduationEligibleEvent{
		BaseEvent: NewBase(GraduationEligible, "launch-1", time.Now()),
	})
	assert.NoError(t, err)
}

func TestPublishAfterShutdown(t *testing.T) {
	bus := NewBus(zap.NewNop(), 1)
	require.NoError(t, bus.Shutdown(context.Background()))
	assert.ErrorIs(t, bus.Publish(settled(1)), ErrBusClosed)
}

func TestPublishDropsWhenFull(t *testing.T) {
	bus := NewBus(zap.NewNop(), 1)

	release := make(chan struct{})
	started := make(chan struct{}, 1)
	bus.SubscribeFunc(TradeSettled, func(context.Context, Event) error {
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
		return nil
	})

	// the first event occupies the delivery goroutine, the second fills the buffer
	require.NoError(t, bus.Publish(settled(1)))
	<-started
	require.NoError(t, bus.Publish(settled(2)))
	assert.ErrorIs(t, bus.Publish(settled(3)), ErrBufferFull)
	assert.Equal(t, uint64(1), bus.Stats().Dropped)

	close(release)
	require.NoError(t, bus.Shutdown(context.Background()))
	assert.Equal(t, uint64(2), bus.Stats().Delivered)
}
