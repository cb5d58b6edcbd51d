package event

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/dshills/quill/internal/event/topic"
)

// BusOption configures a Bus.
type BusOption func(*Bus)

// WithLogger sets the logger used to report handler failures.
func WithLogger(l *slog.Logger) BusOption {
	return func(b *Bus) {
		if l != nil {
			b.log = l
		}
	}
}

// WithPanicHandler sets a callback for recovered handler panics.
func WithPanicHandler(h PanicHandler) BusOption {
	return func(b *Bus) {
		b.onPanic = h
	}
}

// Stats contains bus counters.
type Stats struct {
	Published     uint64
	Delivered     uint64
	HandlerErrors uint64
	HandlerPanics uint64
	Subscriptions int
}

// Bus delivers events to subscriptions whose pattern matches the event
// topic. It is safe for concurrent use.
type Bus struct {
	mu   sync.RWMutex
	subs []*Subscription
	seq  uint64

	log     *slog.Logger
	onPanic PanicHandler

	published atomic.Uint64
	delivered atomic.Uint64
	errors    atomic.Uint64
	panics    atomic.Uint64
}

// NewBus creates an event bus.
func NewBus(opts ...BusOption) *Bus {
	b := &Bus{log: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers handler for topics matching pattern.
func (b *Bus) Subscribe(pattern topic.Topic, handler Handler, opts ...SubscriptionOption) (*Subscription, error) {
	if handler == nil {
		return nil, ErrNilHandler
	}
	if !pattern.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTopic, pattern)
	}

	s := &Subscription{
		id:       uuid.NewString(),
		pattern:  pattern,
		handler:  handler,
		priority: PriorityNormal,
		bus:      b,
	}
	for _, opt := range opts {
		opt(s)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.seq++
	s.seq = b.seq
	b.subs = append(b.subs, s)
	// Priority first, then subscription order.
	slices.SortStableFunc(b.subs, func(x, y *Subscription) int {
		if x.priority != y.priority {
			return int(x.priority - y.priority)
		}
		return int(x.seq) - int(y.seq)
	})
	return s, nil
}

// SubscribeFunc registers a function handler.
func (b *Bus) SubscribeFunc(pattern topic.Topic, fn HandlerFunc, opts ...SubscriptionOption) (*Subscription, error) {
	if fn == nil {
		return nil, ErrNilHandler
	}
	return b.Subscribe(pattern, fn, opts...)
}

// Unsubscribe cancels and removes a subscription.
func (b *Bus) Unsubscribe(s *Subscription) error {
	if s == nil || s.bus != b {
		return ErrSubscriptionNotFound
	}
	if s.cancelled.Swap(true) {
		return ErrSubscriptionNotFound
	}
	if !b.remove(s.id) {
		return ErrSubscriptionNotFound
	}
	return nil
}

func (b *Bus) remove(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := len(b.subs)
	b.subs = slices.DeleteFunc(b.subs, func(s *Subscription) bool { return s.id == id })
	return len(b.subs) != n
}

// Publish delivers ev to every matching subscription in priority order
// and returns the handler errors joined. A panicking handler is recovered
// and reported as a *PanicError; later handlers still run. Publishing
// stops early if ctx is cancelled.
func (b *Bus) Publish(ctx context.Context, ev Event) error {
	if !ev.Topic.IsValid() || ev.Topic.IsWildcard() {
		return fmt.Errorf("%w: %q", ErrInvalidTopic, ev.Topic)
	}
	b.published.Add(1)

	b.mu.RLock()
	subs := slices.Clone(b.subs)
	b.mu.RUnlock()

	var errs []error
	for _, s := range subs {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if !s.accepts(ev) {
			continue
		}
		if err := b.deliver(ctx, s, ev); err != nil {
			errs = append(errs, err)
			continue
		}
		b.delivered.Add(1)
		if s.once {
			s.Cancel()
		}
	}
	return errors.Join(errs...)
}

// Emit is Publish with a background context and a freshly built event.
// Errors are logged rather than returned.
func (b *Bus) Emit(t topic.Topic, payload any, source string) {
	if err := b.Publish(context.Background(), New(t, payload, source)); err != nil {
		b.log.Warn("event delivery failed", "topic", t.String(), "error", err)
	}
}

func (b *Bus) deliver(ctx context.Context, s *Subscription, ev Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			b.panics.Add(1)
			perr := &PanicError{
				SubscriptionID: s.id,
				Topic:          ev.Topic.String(),
				Value:          r,
				Stack:          string(debug.Stack()),
			}
			b.log.Error("event handler panicked",
				"topic", ev.Topic.String(),
				"subscription", s.id,
				"panic", r,
			)
			if b.onPanic != nil {
				b.onPanic(ev, s, r)
			}
			err = perr
		}
	}()

	if herr := s.handler.Handle(ctx, ev); herr != nil {
		b.errors.Add(1)
		b.log.Debug("event handler failed", "topic", ev.Topic.String(), "subscription", s.id, "error", herr)
		return &HandlerError{SubscriptionID: s.id, Topic: ev.Topic.String(), Err: herr}
	}
	return nil
}

// Stats returns the bus counters.
func (b *Bus) Stats() Stats {
	b.mu.RLock()
	n := len(b.subs)
	b.mu.RUnlock()
	return Stats{
		Published:     b.published.Load(),
		Delivered:     b.delivered.Load(),
		HandlerErrors: b.errors.Load(),
		HandlerPanics: b.panics.Load(),
		Subscriptions: n,
	}
}
