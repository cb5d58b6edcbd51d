package event

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/quill/internal/event/topic"
)

// Event is a published message.
type Event struct {
	// ID uniquely identifies this event instance.
	ID string

	// Topic is the hierarchical event type.
	Topic topic.Topic

	// Payload carries the event data. See payloads.go for the types
	// published under the well-known topics.
	Payload any

	// Source names the publisher.
	Source string

	// Time is when the event was created.
	Time time.Time
}

// New creates an event.
func New(t topic.Topic, payload any, source string) Event {
	return Event{
		ID:      uuid.NewString(),
		Topic:   t,
		Payload: payload,
		Source:  source,
		Time:    time.Now(),
	}
}

// Handler processes events.
type Handler interface {
	Handle(ctx context.Context, ev Event) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, ev Event) error

// Handle calls f(ctx, ev).
func (f HandlerFunc) Handle(ctx context.Context, ev Event) error {
	return f(ctx, ev)
}

// PanicHandler is called with the recovered value when a handler panics.
type PanicHandler func(ev Event, sub *Subscription, recovered any)

// Priority determines handler order. Lower values run first.
type Priority int

// Priorities.
const (
	// PriorityCritical is for the highlighter and renderer caches.
	PriorityCritical Priority = 0

	// PriorityHigh is for editor services.
	PriorityHigh Priority = 100

	// PriorityNormal is the default, used by plugins.
	PriorityNormal Priority = 200

	// PriorityLow is for logging and statistics.
	PriorityLow Priority = 300
)

// String returns a human-readable priority name.
func (p Priority) String() string {
	switch {
	case p <= PriorityCritical:
		return "critical"
	case p <= PriorityHigh:
		return "high"
	case p <= PriorityNormal:
		return "normal"
	default:
		return "low"
	}
}
