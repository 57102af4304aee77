package event

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/erp/docflow/internal/domain/shared"
	"go.uber.org/zap"
)

// InMemoryEventBus delivers domain events synchronously to subscribed handlers.
// A failing or panicking handler is logged and never blocks the others.
type InMemoryEventBus struct {
	mu       sync.RWMutex
	handlers map[string][]shared.EventHandler
	wildcard []shared.EventHandler
	logger   *zap.Logger
	running  atomic.Bool
	failures atomic.Int64
}

// NewInMemoryEventBus creates a new in-memory event bus
func NewInMemoryEventBus(logger *zap.Logger) *InMemoryEventBus {
	return &InMemoryEventBus{
		handlers: make(map[string][]shared.EventHandler),
		logger:   logger.Named("events"),
	}
}

// Publish hands every event to the handlers registered for its type
func (b *InMemoryEventBus) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	for _, event := range events {
		for _, handler := range b.handlersFor(event.EventType()) {
			if err := b.dispatch(ctx, handler, event); err != nil {
				b.failures.Add(1)
				b.logger.Error("Event handler failed",
					zap.String("event_type", event.EventType()),
					zap.String("event_id", event.EventID().String()),
					zap.String("aggregate_id", event.AggregateID().String()),
					zap.Error(err),
				)
			}
		}
	}
	return nil
}

// Subscribe registers a handler. Without explicit types the handler's own
// EventTypes are used, and an empty list subscribes to everything.
func (b *InMemoryEventBus) Subscribe(handler shared.EventHandler, eventTypes ...string) {
	if len(eventTypes) == 0 {
		eventTypes = handler.EventTypes()
	}

	b.mu.Lock()
	if len(eventTypes) == 0 {
		b.wildcard = append(b.wildcard, handler)
	}
	for _, t := range eventTypes {
		b.handlers[t] = append(b.handlers[t], handler)
	}
	b.mu.Unlock()

	b.logger.Debug("Handler subscribed", zap.Strings("event_types", eventTypes))
}

// Unsubscribe removes a handler from every event type
func (b *InMemoryEventBus) Unsubscribe(handler shared.EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.wildcard = without(b.wildcard, handler)
	for t, hs := range b.handlers {
		if rest := without(hs, handler); len(rest) > 0 {
			b.handlers[t] = rest
		} else {
			delete(b.handlers, t)
		}
	}
}

// Start marks the bus as running
func (b *InMemoryEventBus) Start(ctx context.Context) error {
	b.running.Store(true)
	b.logger.Info("Event bus started")
	return nil
}

// Stop marks the bus as stopped. Delivery is synchronous, so nothing is in flight.
func (b *InMemoryEventBus) Stop(ctx context.Context) error {
	b.running.Store(false)
	b.logger.Info("Event bus stopped", zap.Int64("handler_failures", b.failures.Load()))
	return nil
}

// Failures returns how many handler invocations failed since creation
func (b *InMemoryEventBus) Failures() int64 {
	return b.failures.Load()
}

func (b *InMemoryEventBus) handlersFor(eventType string) []shared.EventHandler {
	b.mu.RLock()
	defer b.mu.RUnlock()

	typed := b.handlers[eventType]
	out := make([]shared.EventHandler, 0, len(typed)+len(b.wildcard))
	out = append(out, typed...)
	return append(out, b.wildcard...)
}

func (b *InMemoryEventBus) dispatch(ctx context.Context, handler shared.EventHandler, event shared.DomainEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return handler.Handle(ctx, event)
}

func without(handlers []shared.EventHandler, target shared.EventHandler) []shared.EventHandler {
	out := make([]shared.EventHandler, 0, len(handlers))
	for _, h := range handlers {
		if h != target {
			out = append(out, h)
		}
	}
	return out
}

var _ shared.EventBus = (*InMemoryEventBus)(nil)
