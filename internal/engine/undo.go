package engine

import (
	"fmt"

	"github.com/dshills/quill/internal/engine/history"
)

// Undo reverts the newest undo entry and restores the cursors from before
// it. It returns false when there is nothing to undo.
func (d *Document) Undo() (bool, error) {
	return d.replay(CauseUndo)
}

// Redo re-applies the newest undone entry and restores the cursors from
// after it. It returns false when there is nothing to redo.
func (d *Document) Redo() (bool, error) {
	return d.replay(CauseRedo)
}

func (d *Document) replay(cause Cause) (bool, error) {
	defer d.notify.drain()
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.writable(); err != nil {
		return false, err
	}

	apply := func(e *history.Entry) error {
		ops, restore := e.Ops, e.After
		if cause == CauseUndo {
			ops, restore = e.Inverse(), e.Before
		}

		t := d.begin()
		for _, op := range ops {
			if err := t.apply(op.Range, op.NewText); err != nil {
				t.rollback()
				return fmt.Errorf("%s revision %d: %w", cause, e.Revision, err)
			}
		}
		d.cursors.Restore(restore)
		d.cursors.Clamp(d.store)

		d.revision++
		d.notify.enqueue(t.event(cause))
		d.log.Debug(cause.String(), "revision", d.revision, "entry", e.Revision, "ops", len(ops))
		return nil
	}

	if cause == CauseUndo {
		return d.history.Undo(apply)
	}
	return d.history.Redo(apply)
}

// CanUndo reports whether undo is available.
func (d *Document) CanUndo() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.history.CanUndo()
}

// CanRedo reports whether redo is available.
func (d *Document) CanRedo() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.history.CanRedo()
}

// UndoCount returns the number of undo entries.
func (d *Document) UndoCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.history.UndoCount()
}

// RedoCount returns the number of redo entries.
func (d *Document) RedoCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.history.RedoCount()
}

// ClearHistory drops all undo and redo entries.
func (d *Document) ClearHistory() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.history.Clear()
}

// SetMaxUndoEntries changes the undo depth, dropping the oldest entries.
func (d *Document) SetMaxUndoEntries(n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.history.SetMaxEntries(n)
}
