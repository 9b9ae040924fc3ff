package events

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

type Event interface {
	EventType() string
	EventID() string
	OccurredAt() time.Time
	Payload() interface{}
}

type BaseEvent struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) EventID() string {
	return e.ID
}

func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

func (e BaseEvent) Payload() interface{} {
	return e.Data
}

type Handler func(ctx context.Context, event Event) error

type subscriber struct {
	id      uint64
	handler Handler
}

// Subscription is the handle returned by Subscribe. Close releases every handler it holds.
type Subscription struct {
	bus    *EventBus
	mu     sync.Mutex
	keys   map[string]uint64
	closed bool
}

// Close is safe to call more than once.
func (s *Subscription) Close() {
	if s == nil {
		return
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	keys := s.keys
	s.keys = nil
	s.mu.Unlock()

	for eventType, id := range keys {
		s.bus.remove(eventType, id)
	}
}

type EventBus struct {
	handlers map[string][]subscriber
	nextID   uint64
	logger   *slog.Logger
	mu       sync.RWMutex
}

func NewEventBus(logger *slog.Logger) *EventBus {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventBus{
		handlers: make(map[string][]subscriber),
		logger:   logger,
	}
}

// Subscribe registers handler for every listed event type and returns a single handle for all of them.
func (eb *EventBus) Subscribe(handler Handler, eventTypes ...string) *Subscription {
	sub := &Subscription{bus: eb, keys: make(map[string]uint64, len(eventTypes))}

	eb.mu.Lock()
	defer eb.mu.Unlock()

	for _, eventType := range eventTypes {
		if _, dup := sub.keys[eventType]; dup {
			continue
		}
		eb.nextID++
		eb.handlers[eventType] = append(eb.handlers[eventType], subscriber{id: eb.nextID, handler: handler})
		sub.keys[eventType] = eb.nextID

		eb.logger.Info("event handler registered",
			"event_type", eventType,
			"total_handlers", len(eb.handlers[eventType]))
	}

	return sub
}

func (eb *EventBus) remove(eventType string, id uint64) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	subs := eb.handlers[eventType]
	for i, s := range subs {
		if s.id == id {
			rest := make([]subscriber, 0, len(subs)-1)
			rest = append(rest, subs[:i]...)
			rest = append(rest, subs[i+1:]...)
			if len(rest) == 0 {
				delete(eb.handlers, eventType)
			} else {
				eb.handlers[eventType] = rest
			}
			eb.logger.Debug("event handler removed", "event_type", eventType, "total_handlers", len(rest))
			return
		}
	}
}

// HandlerCount returns the number of handlers currently registered for eventType.
func (eb *EventBus) HandlerCount(eventType string) int {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	return len(eb.handlers[eventType])
}

func (eb *EventBus) snapshot(eventType string) []subscriber {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	subs := eb.handlers[eventType]
	out := make([]subscriber, len(subs))
	copy(out, subs)
	return out
}

// Publish delivers the event to each handler on its own goroutine. Delivery order is not guaranteed.
func (eb *EventBus) Publish(ctx context.Context, event Event) error {
	handlers := eb.snapshot(event.EventType())
	if len(handlers) == 0 {
		eb.logger.Debug("no handlers for event type", "event_type", event.EventType())
		return nil
	}

	eb.logger.Info("publishing event",
		"event_type", event.EventType(),
		"event_id", event.EventID(),
		"handlers_count", len(handlers))

	ctx = context.WithoutCancel(ctx)
	for _, s := range handlers {
		go func(h Handler) {
			if err := h(ctx, event); err != nil {
				eb.logger.Error("event handler failed",
					"event_type", event.EventType(),
					"event_id", event.EventID(),
					"error", err)
			}
		}(s.handler)
	}

	return nil
}

func (eb *EventBus) PublishSync(ctx context.Context, event Event) error {
	handlers := eb.snapshot(event.EventType())
	if len(handlers) == 0 {
		eb.logger.Debug("no handlers for event type", "event_type", event.EventType())
		return nil
	}

	eb.logger.Info("publishing event synchronously",
		"event_type", event.EventType(),
		"event_id", event.EventID(),
		"handlers_count", len(handlers))

	for _, s := range handlers {
		if err := s.handler(ctx, event); err != nil {
			eb.logger.Error("event handler failed",
				"event_type", event.EventType(),
				"event_id", event.EventID(),
				"error", err)
			return fmt.Errorf("handler failed for event %s: %w", event.EventType(), err)
		}
	}

	return nil
}
