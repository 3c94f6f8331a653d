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
	ErrBusClosed  = errors.New("event bus is shutting down")
	ErrBufferFull = errors.New("event channel full")
)

// DefaultBufferSize is used when NewBus is given a non-positive size.
const DefaultBufferSize = 256

// Bus is an in-memory event bus. Asynchronously published events are
// delivered one at a time in publication order, so handlers observe trades in
// the order they settled.
type Bus struct {
	mu         sync.RWMutex
	handlers   map[EventType]map[string]entry
	seq        uint64
	logger     *zap.Logger
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	eventChan  chan Event
	bufferSize int

	statsMu   sync.Mutex
	delivered uint64
	dropped   uint64
	failed    uint64
}

// entry keeps subscription order so handlers run deterministically.
type entry struct {
	order   uint64
	handler Handler
}

// NewBus creates a new event bus and starts its delivery goroutine.
func NewBus(logger *zap.Logger, bufferSize int) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	ctx, cancel := context.WithCancel(context.Background())
	bus := &Bus{
		handlers:   make(map[EventType]map[string]entry),
		logger:     logger.Named("event_bus"),
		ctx:        ctx,
		cancel:     cancel,
		eventChan:  make(chan Event, bufferSize),
		bufferSize: bufferSize,
	}

	bus.wg.Add(1)
	go bus.processEvents()

	return bus
}

// Subscribe registers a handler for a specific event type.
func (b *Bus) Subscribe(eventType EventType, handler Handler) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := uuid.New().String()

	if b.handlers[eventType] == nil {
		b.handlers[eventType] = make(map[string]entry)
	}
	b.seq++
	b.handlers[eventType][id] = entry{order: b.seq, handler: handler}

	b.logger.Debug("Handler subscribed",
		zap.String("event_type", string(eventType)),
		zap.String("subscription_id", id))

	return &subscription{
		id:       id,
		eventBus: b,
		typ:      eventType,
	}
}

// SubscribeFunc is a convenience method for subscribing with a function.
func (b *Bus) SubscribeFunc(eventType EventType, fn func(context.Context, Event) error) Subscription {
	return b.Subscribe(eventType, HandlerFunc(fn))
}

// Publish queues an event for asynchronous delivery. It never blocks: when
// the buffer is full the event is dropped and ErrBufferFull returned.
func (b *Bus) Publish(event Event) error {
	select {
	case <-b.ctx.Done():
		return ErrBusClosed
	default:
	}
	select {
	case b.eventChan <- event:
		return nil
	default:
		b.statsMu.Lock()
		b.dropped++
		b.statsMu.Unlock()
		b.logger.Warn("Event channel full, dropping event",
			zap.String("event_type", string(event.Type())))
		return ErrBufferFull
	}
}

// PublishSync delivers an event to every handler of its type on the calling
// goroutine, in subscription order. All handlers run; their errors are joined.
func (b *Bus) PublishSync(ctx context.Context, event Event) error {
	b.mu.RLock()
	subs := b.handlers[event.Type()]
	ids := make([]string, 0, len(subs))
	handlers := make(map[string]entry, len(subs))
	for id, e := range subs {
		ids = append(ids, id)
		handlers[id] = e
	}
	b.mu.RUnlock()

	if len(ids) == 0 {
		return nil
	}
	sort.Slice(ids, func(i, j int) bool { return handlers[ids[i]].order < handlers[ids[j]].order })

	var errs []error
	for _, id := range ids {
		if err := handlers[id].handler.Handle(ctx, event); err != nil {
			b.logger.Error("Handler error",
				zap.String("event_type", string(event.Type())),
				zap.String("handler_id", id),
				zap.Error(err))
			errs = append(errs, err)
		}
	}

	b.statsMu.Lock()
	b.delivered++
	if len(errs) > 0 {
		b.failed++
	}
	b.statsMu.Unlock()

	if len(errs) > 0 {
		return fmt.Errorf("handlers failed for %s: %w", event.Type(), errors.Join(errs...))
	}
	return nil
}

// processEvents delivers queued events sequentially until shutdown, then
// drains whatever is still buffered.
func (b *Bus) processEvents() {
	defer b.wg.Done()

	for {
		select {
		case <-b.ctx.Done():
			for {
				select {
				case event := <-b.eventChan:
					b.deliver(context.Background(), event)
				default:
					return
				}
			}
		case event := <-b.eventChan:
			b.deliver(b.ctx, event)
		}
	}
}

func (b *Bus) deliver(ctx context.Context, event Event) {
	if err := b.PublishSync(ctx, event); err != nil {
		b.logger.Error("Failed to process event",
			zap.String("event_type", string(event.Type())),
			zap.Error(err))
	}
}

// unsubscribe removes a handler subscription.
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

// Shutdown stops accepting events, delivers the ones already queued and
// waits for delivery to finish or ctx to expire.
func (b *Bus) Shutdown(ctx context.Context) error {
	b.logger.Info("Shutting down event bus")

	b.cancel()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		b.logger.Info("Event bus shutdown complete")
		return nil
	case <-ctx.Done():
		b.logger.Warn("Event bus shutdown timeout")
		return ctx.Err()
	}
}

// Stats is a point-in-time view of the bus.
type Stats struct {
	BufferSize      int
	PendingEvents   int
	Delivered       uint64
	Dropped         uint64
	Failed          uint64
	HandlersPerType map[EventType]int
}

// Stats returns statistics about the event bus.
func (b *Bus) Stats() Stats {
	b.mu.RLock()
	counts := make(map[EventType]int, len(b.handlers))
	for eventType, handlers := range b.handlers {
		counts[eventType] = len(handlers)
	}
	b.mu.RUnlock()

	b.statsMu.Lock()
	defer b.statsMu.Unlock()
	return Stats{
		BufferSize:      b.bufferSize,
		PendingEvents:   len(b.eventChan),
		Delivered:       b.delivered,
		Dropped:         b.dropped,
		Failed:          b.failed,
		HandlersPerType: counts,
	}
}
