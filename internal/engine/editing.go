package engine

import (
	"slices"

	"github.com/dshills/quill/internal/engine/cursor"
	"github.com/dshills/quill/internal/engine/text"
)

// InsertAtCursors replaces every cursor's selection with content, or
// inserts it at every cursor, as one transaction. Cursors end up
// collapsed after the inserted text.
func (d *Document) InsertAtCursors(content string) (CommitResult, error) {
	return d.edit(func(t *txn) error {
		if err := t.applyDescending(d.cursors.Ranges(), content); err != nil {
			return err
		}
		d.cursors.Map(func(c cursor.Cursor) cursor.Cursor { return cursor.At(c.End()) })
		return nil
	})
}

// DeleteSelections removes the selected text of every cursor as one
// transaction. Cursors without a selection are left alone.
func (d *Document) DeleteSelections() (CommitResult, error) {
	return d.edit(func(t *txn) error {
		return t.applyDescending(d.cursors.Ranges(), "")
	})
}

// Backspace deletes each cursor's selection, or the grapheme cluster
// before it, as one transaction.
func (d *Document) Backspace() (CommitResult, error) {
	return d.edit(func(t *txn) error {
		ranges := make([]text.Range, 0, d.cursors.Len())
		for _, c := range d.cursors.All() {
			if c.HasSelection() {
				ranges = append(ranges, c.Range())
				continue
			}
			pos := c.Position
			ranges = append(ranges, text.Span(pos-d.store.GraphemeBefore(pos), pos))
		}
		return t.applyDescending(ranges, "")
	})
}

// DeleteForward deletes each cursor's selection, or the grapheme cluster
// after it, as one transaction.
func (d *Document) DeleteForward() (CommitResult, error) {
	return d.edit(func(t *txn) error {
		ranges := make([]text.Range, 0, d.cursors.Len())
		for _, c := range d.cursors.All() {
			if c.HasSelection() {
				ranges = append(ranges, c.Range())
				continue
			}
			pos := c.Position
			ranges = append(ranges, text.Span(pos, pos+d.store.GraphemeAfter(pos)))
		}
		return t.applyDescending(ranges, "")
	})
}

// SelectedText returns the text selected by the primary cursor.
func (d *Document) SelectedText() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	s, _ := d.store.Read(d.cursors.Primary().Range())
	return s
}

// Selections returns the text selected by every cursor, in order.
func (d *Document) Selections() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]string, 0, d.cursors.Len())
	for _, r := range d.cursors.Ranges() {
		s, _ := d.store.Read(r)
		out = append(out, s)
	}
	return out
}

// applyDescending replaces every range with content, last range first so
// earlier offsets stay valid. Overlapping ranges are merged. Empty ranges
// are skipped when content is empty.
func (t *txn) applyDescending(ranges []text.Range, content string) error {
	for _, r := range slices.Backward(mergeRanges(ranges)) {
		if err := t.apply(r, content); err != nil {
			return err
		}
	}
	return nil
}

// mergeRanges sorts ranges and merges overlapping ones. Identical empty
// ranges collapse to one.
func mergeRanges(ranges []text.Range) []text.Range {
	sorted := slices.Clone(ranges)
	slices.SortFunc(sorted, func(a, b text.Range) int {
		if a.Start != b.Start {
			return a.Start - b.Start
		}
		return a.End - b.End
	})
	out := sorted[:0]
	for _, r := range sorted {
		if n := len(out); n > 0 {
			last := &out[n-1]
			if r.Start < last.End || r == *last {
				last.End = max(last.End, r.End)
				continue
			}
		}
		out = append(out, r)
	}
	return out
}
