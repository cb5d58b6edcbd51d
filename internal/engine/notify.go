package engine

import (
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/dshills/quill/internal/engine/text"
)

// Cause identifies what produced a change event.
type Cause uint8

// Change causes.
const (
	CauseEdit Cause = iota
	CauseUndo
	CauseRedo
	CauseLoad
)

func (c Cause) String() string {
	switch c {
	case CauseEdit:
		return "edit"
	case CauseUndo:
		return "undo"
	case CauseRedo:
		return "redo"
	case CauseLoad:
		return "load"
	}
	return "unknown"
}

// ChangeEvent describes one committed transaction.
//
// Range is the affected region in the content before the transaction;
// NewLen is the length of the text that now occupies it. Snapshot is the
// content right after the transaction, so an observer never sees a state
// that does not match the event even if later edits have already landed.
type ChangeEvent struct {
	DocID    uuid.UUID
	Revision uint64
	Cause    Cause
	Range    text.Range
	NewLen   int
	Snapshot text.Snapshot
}

// NewRange returns the affected region in the content after the
// transaction.
func (ev ChangeEvent) NewRange() text.Range {
	return text.Span(ev.Range.Start, ev.Range.Start+ev.NewLen)
}

// Delta returns the change in content length.
func (ev ChangeEvent) Delta() int {
	return ev.NewLen - ev.Range.Len()
}

// Observer receives change events.
type Observer interface {
	OnChange(ev ChangeEvent)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ev ChangeEvent)

// OnChange calls f(ev).
func (f ObserverFunc) OnChange(ev ChangeEvent) {
	f(ev)
}

// Subscription is a registered observer.
type Subscription struct {
	id     uuid.UUID
	obs    Observer
	n      *notifier
	active atomic.Bool
	once   sync.Once
}

// ID returns the subscription identifier.
func (s *Subscription) ID() uuid.UUID {
	return s.id
}

// Unsubscribe stops delivery. An event already being dispatched is not
// delivered to this observer once Unsubscribe returns. Safe to call more
// than once.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.active.Store(false)
		s.n.remove(s)
	})
}

// Subscribe registers obs for change events.
func (d *Document) Subscribe(obs Observer) *Subscription {
	return d.notify.add(obs)
}

// ObserverCount returns the number of registered observers.
func (d *Document) ObserverCount() int {
	return d.notify.count()
}

// notifier queues events and delivers them in commit order.
//
// Events are queued while the document lock is held and delivered after
// it is released. Only one goroutine dispatches at a time; events queued
// meanwhile, including those from observers editing the document, are
// delivered by that goroutine after the current event has reached every
// observer.
type notifier struct {
	mu          sync.Mutex
	subs        []*Subscription
	queue       []ChangeEvent
	dispatching bool
	log         *slog.Logger
}

func newNotifier(log *slog.Logger) *notifier {
	return &notifier{log: log}
}

func (n *notifier) add(obs Observer) *Subscription {
	s := &Subscription{id: uuid.New(), obs: obs, n: n}
	s.active.Store(true)
	n.mu.Lock()
	n.subs = append(n.subs, s)
	n.mu.Unlock()
	return s
}

func (n *notifier) remove(s *Subscription) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.subs = slices.DeleteFunc(n.subs, func(x *Subscription) bool { return x == s })
}

func (n *notifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.subs)
}

// reset drops every observer and pending event.
func (n *notifier) reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, s := range n.subs {
		s.active.Store(false)
	}
	n.subs = nil
	n.queue = nil
}

func (n *notifier) enqueue(ev ChangeEvent) {
	n.mu.Lock()
	n.queue = append(n.queue, ev)
	n.mu.Unlock()
}

// drain delivers queued events unless another call is already doing so.
func (n *notifier) drain() {
	n.mu.Lock()
	if n.dispatching {
		n.mu.Unlock()
		return
	}
	n.dispatching = true
	for len(n.queue) > 0 {
		ev := n.queue[0]
		n.queue[0] = ChangeEvent{}
		n.queue = n.queue[1:]
		subs := slices.Clone(n.subs)
		n.mu.Unlock()

		for _, s := range subs {
			n.deliver(s, ev)
		}

		n.mu.Lock()
	}
	n.queue = nil
	n.dispatching = false
	n.mu.Unlock()
}

func (n *notifier) deliver(s *Subscription, ev ChangeEvent) {
	if !s.active.Load() {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			n.log.Error("observer panicked",
				"subscription", s.id.String(),
				"revision", ev.Revision,
				"panic", r,
			)
		}
	}()
	s.obs.OnChange(ev)
}
