// internal/events/handler.go
package events

import (
	"context"
	"fmt"
)

// Handler processes events of a specific type.
type Handler interface {
	// Handle processes an event. Should not block.
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc is an adapter to allow the use of ordinary functions as event handlers.
type HandlerFunc func(ctx context.Context, event Event) error

// Handle calls f(ctx, event).
func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Typed adapts a function over one concrete event type. Events of any other
// Go type are reported as an error rather than silently skipped.
func Typed[T Event](fn func(context.Context, T) error) Handler {
	return HandlerFunc(func(ctx context.Context, event Event) error {
		e, ok := event.(T)
		if !ok {
			return fmt.Errorf("unexpected %T for %s", event, event.Type())
		}
		return fn(ctx, e)
	})
}

// Subscription represents a subscription to events.
type Subscription interface {
	// Unsubscribe removes the subscription.
	Unsubscribe()
}

type subscription struct {
	id       string
	eventBus *Bus
	typ      EventType
}

func (s *subscription) Unsubscribe() {
	s.eventBus.unsubscribe(s.id, s.typ)
}
