package history

import (
	"slices"
	"time"

	"github.com/dshills/quill/internal/engine/text"
)

// DefaultMaxEntries is the undo depth used when none is configured.
const DefaultMaxEntries = 1000

// Option configures a History.
type Option func(*History)

// WithMaxEntries caps the undo stack. The oldest entries are dropped first.
func WithMaxEntries(n int) Option {
	return func(h *History) {
		if n > 0 {
			h.maxEntries = n
		}
	}
}

// WithIdleTimeout closes the coalescing window after d without edits.
// Zero disables the timeout.
func WithIdleTimeout(d time.Duration) Option {
	return func(h *History) {
		if d >= 0 {
			h.idle = d
		}
	}
}

// WithClock sets the time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(h *History) {
		if now != nil {
			h.now = now
		}
	}
}

// History is a two-stack undo/redo log.
type History struct {
	undoStack []*Entry
	redoStack []*Entry

	// open is true while the top of the undo stack may absorb the next
	// single-grapheme edit.
	open bool

	maxEntries int
	idle       time.Duration
	now        func() time.Time
}

// New creates an empty history.
func New(opts ...Option) *History {
	h := &History{
		maxEntries: DefaultMaxEntries,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Commit records a transaction. It reports whether the transaction was
// folded into the previous entry. Any commit clears the redo stack.
func (h *History) Commit(tx Transaction) (coalesced bool) {
	if len(tx.Ops) == 0 {
		return false
	}
	now := h.now()
	h.redoStack = nil

	if h.canCoalesce(tx, now) {
		top := h.undoStack[len(h.undoStack)-1]
		top.Ops = append(top.Ops, tx.Ops...)
		top.After = tx.After
		top.Revision = tx.Revision
		top.updated = now
		return true
	}

	h.undoStack = append(h.undoStack, &Entry{
		Ops:      slices.Clone(tx.Ops),
		Before:   tx.Before,
		After:    tx.After,
		Revision: tx.Revision,
		Time:     now,
		updated:  now,
	})
	h.open = coalescible(tx.Ops)

	if excess := len(h.undoStack) - h.maxEntries; excess > 0 {
		clear(h.undoStack[:excess])
		h.undoStack = h.undoStack[excess:]
	}
	return false
}

// Checkpoint closes the coalescing window so the next edit starts a new
// entry.
func (h *History) Checkpoint() {
	h.open = false
}

// IsOpen reports whether the next matching edit would be coalesced.
func (h *History) IsOpen() bool {
	return h.open
}

// Undo pops the newest entry and passes it to apply. If apply fails the
// entry goes back on the undo stack; otherwise it moves to the redo stack.
// An empty stack is a no-op and returns false.
func (h *History) Undo(apply func(*Entry) error) (bool, error) {
	h.open = false
	if len(h.undoStack) == 0 {
		return false, nil
	}
	entry := h.undoStack[len(h.undoStack)-1]
	h.undoStack = h.undoStack[:len(h.undoStack)-1]
	if err := apply(entry); err != nil {
		h.undoStack = append(h.undoStack, entry)
		return false, err
	}
	h.redoStack = append(h.redoStack, entry)
	return true, nil
}

// Redo pops the newest undone entry and passes it to apply. If apply
// fails the entry stays on the redo stack.
func (h *History) Redo(apply func(*Entry) error) (bool, error) {
	h.open = false
	if len(h.redoStack) == 0 {
		return false, nil
	}
	entry := h.redoStack[len(h.redoStack)-1]
	h.redoStack = h.redoStack[:len(h.redoStack)-1]
	if err := apply(entry); err != nil {
		h.redoStack = append(h.redoStack, entry)
		return false, err
	}
	h.undoStack = append(h.undoStack, entry)
	return true, nil
}

// CanUndo returns true if undo is available.
func (h *History) CanUndo() bool {
	return len(h.undoStack) > 0
}

// CanRedo returns true if redo is available.
func (h *History) CanRedo() bool {
	return len(h.redoStack) > 0
}

// UndoCount returns the number of undo entries.
func (h *History) UndoCount() int {
	return len(h.undoStack)
}

// RedoCount returns the number of redo entries.
func (h *History) RedoCount() int {
	return len(h.redoStack)
}

// Top returns the newest undo entry, or nil.
func (h *History) Top() *Entry {
	if len(h.undoStack) == 0 {
		return nil
	}
	return h.undoStack[len(h.undoStack)-1]
}

// Clear drops both stacks.
func (h *History) Clear() {
	h.undoStack = nil
	h.redoStack = nil
	h.open = false
}

// SetMaxEntries changes the undo cap, trimming the oldest entries.
func (h *History) SetMaxEntries(n int) {
	if n <= 0 {
		return
	}
	h.maxEntries = n
	if excess := len(h.undoStack) - n; excess > 0 {
		h.undoStack = slices.Clone(h.undoStack[excess:])
	}
}

// SetIdleTimeout changes the coalescing idle timeout.
func (h *History) SetIdleTimeout(d time.Duration) {
	if d >= 0 {
		h.idle = d
	}
}

func (h *History) canCoalesce(tx Transaction, now time.Time) bool {
	if !h.open || len(h.undoStack) == 0 || !coalescible(tx.Ops) {
		return false
	}
	top := h.undoStack[len(h.undoStack)-1]
	if h.idle > 0 && now.Sub(top.updated) > h.idle {
		return false
	}
	if !slices.Equal(top.After.Cursors, tx.Before.Cursors) {
		return false
	}
	return continues(top.Ops[len(top.Ops)-1], tx.Ops[0])
}

// coalescible reports whether ops is a single one-grapheme insert or
// delete.
func coalescible(ops []Operation) bool {
	if len(ops) != 1 {
		return false
	}
	switch op := ops[0]; op.Kind {
	case Insert:
		return text.IsSingleGrapheme(op.NewText)
	case Delete:
		return text.IsSingleGrapheme(op.OldText)
	}
	return false
}

// continues reports whether next extends prev without a gap: typing
// forward, backspacing, or deleting forward from the same spot.
func continues(prev, next Operation) bool {
	if prev.Kind != next.Kind {
		return false
	}
	switch next.Kind {
	case Insert:
		return next.Range.Start == prev.Range.Start+len(prev.NewText)
	case Delete:
		return next.Range.End == prev.Range.Start || next.Range.Start == prev.Range.Start
	}
	return false
}
