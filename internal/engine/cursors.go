package engine

import (
	"fmt"

	"github.com/dshills/quill/internal/engine/cursor"
	"github.com/dshills/quill/internal/engine/text"
)

// Cursor operations move the cursors without touching the content. Every
// one of them closes the typing coalescing window.

// Cursors returns every cursor sorted by start offset.
func (d *Document) Cursors() []cursor.Cursor {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cursors.All()
}

// Primary returns the primary cursor.
func (d *Document) Primary() cursor.Cursor {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cursors.Primary()
}

// CursorState returns a copy of the cursor set.
func (d *Document) CursorState() cursor.State {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cursors.State()
}

// HasSelection reports whether any cursor selects text.
func (d *Document) HasSelection() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cursors.HasSelection()
}

// SetCursors replaces every cursor. The first becomes primary. Offsets
// must lie on code point boundaries inside the content.
func (d *Document) SetCursors(cs ...cursor.Cursor) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, c := range cs {
		if err := d.checkCursor(c); err != nil {
			return err
		}
	}
	d.cursors.Replace(cs...)
	d.history.Checkpoint()
	return nil
}

// AddCursor adds a cursor and makes it primary.
func (d *Document) AddCursor(c cursor.Cursor) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkCursor(c); err != nil {
		return err
	}
	d.cursors.Add(c)
	d.history.Checkpoint()
	return nil
}

// MoveTo collapses to a single cursor at offset, clamped to the content.
func (d *Document) MoveTo(offset int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cursors.MoveTo(d.store, offset)
	d.history.Checkpoint()
}

// ExtendTo keeps only the primary cursor and moves its position to
// offset, selecting from its anchor.
func (d *Document) ExtendTo(offset int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cursors.ExtendTo(d.store, offset)
	d.history.Checkpoint()
}

// Select keeps only a cursor selecting from anchor to position.
func (d *Document) Select(anchor, position int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cursors.MoveTo(d.store, anchor)
	d.cursors.ExtendTo(d.store, position)
	d.history.Checkpoint()
}

// SelectAll selects the whole content with a single cursor.
func (d *Document) SelectAll() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cursors.MoveTo(d.store, 0)
	d.cursors.ExtendTo(d.store, d.store.LenBytes())
	d.history.Checkpoint()
}

// Move applies a motion to every cursor. With extend the selections grow
// instead of collapsing.
func (d *Document) Move(m cursor.Motion, extend bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cursors.Move(d.store, m, extend, d.tabWidth)
	d.history.Checkpoint()
}

// CollapseToPosition drops every selection, keeping cursor positions.
func (d *Document) CollapseToPosition() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cursors.CollapseToPosition()
	d.history.Checkpoint()
}

// CollapseToAnchor drops every selection, moving cursors to their
// anchors.
func (d *Document) CollapseToAnchor() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cursors.CollapseToAnchor()
	d.history.Checkpoint()
}

// KeepPrimaryCursor drops every cursor except the primary.
func (d *Document) KeepPrimaryCursor() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cursors.KeepPrimary()
	d.history.Checkpoint()
}

// CursorLineCol returns the line and column of the primary cursor.
func (d *Document) CursorLineCol() text.LineCol {
	d.mu.RLock()
	defer d.mu.RUnlock()
	lc, _ := d.store.OffsetToLineCol(d.cursors.Primary().Position)
	return lc
}

func (d *Document) checkCursor(c cursor.Cursor) error {
	for _, off := range [2]int{c.Anchor, c.Position} {
		if off < 0 || off > d.store.LenBytes() {
			return &RangeError{Op: "cursor", Range: text.Point(off), Len: d.store.LenBytes(), Err: ErrOutOfBounds}
		}
		if !d.store.IsBoundary(off) {
			return fmt.Errorf("cursor at %d: %w", off, ErrInvalidOffset)
		}
	}
	return nil
}
