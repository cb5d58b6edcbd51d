package event

import (
	"sync/atomic"

	"github.com/dshills/quill/internal/event/topic"
)

// FilterFunc decides whether an event is delivered to a subscription.
type FilterFunc func(ev Event) bool

// SubscriptionOption configures a subscription.
type SubscriptionOption func(*Subscription)

// WithPriority sets the subscription priority.
func WithPriority(p Priority) SubscriptionOption {
	return func(s *Subscription) {
		s.priority = p
	}
}

// WithFilter sets a filter predicate.
func WithFilter(f FilterFunc) SubscriptionOption {
	return func(s *Subscription) {
		s.filter = f
	}
}

// WithOnce cancels the subscription after its first successful delivery.
func WithOnce() SubscriptionOption {
	return func(s *Subscription) {
		s.once = true
	}
}

// Subscription is a registered handler.
type Subscription struct {
	id       string
	pattern  topic.Topic
	handler  Handler
	priority Priority
	filter   FilterFunc
	once     bool
	seq      uint64

	cancelled atomic.Bool
	paused    atomic.Bool
	bus       *Bus
}

// ID returns the subscription identifier.
func (s *Subscription) ID() string {
	return s.id
}

// Topic returns the subscribed topic pattern.
func (s *Subscription) Topic() topic.Topic {
	return s.pattern
}

// Priority returns the subscription priority.
func (s *Subscription) Priority() Priority {
	return s.priority
}

// IsActive reports whether the subscription receives events.
func (s *Subscription) IsActive() bool {
	return !s.cancelled.Load() && !s.paused.Load()
}

// Pause stops delivery until Resume.
func (s *Subscription) Pause() {
	s.paused.Store(true)
}

// Resume restarts delivery after Pause.
func (s *Subscription) Resume() {
	s.paused.Store(false)
}

// Cancel permanently removes the subscription from its bus.
func (s *Subscription) Cancel() {
	if s.cancelled.Swap(true) {
		return
	}
	if s.bus != nil {
		s.bus.remove(s.id)
	}
}

func (s *Subscription) accepts(ev Event) bool {
	if !s.IsActive() || !ev.Topic.Matches(s.pattern) {
		return false
	}
	return s.filter == nil || s.filter(ev)
}
