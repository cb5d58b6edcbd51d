package engine

import (
	"context"
	"fmt"
	"slices"

	"github.com/dshills/quill/internal/engine/cursor"
	"github.com/dshills/quill/internal/engine/history"
	"github.com/dshills/quill/internal/engine/text"
)

// Edit kinds, re-exported from history.
const (
	Insert  = history.Insert
	Delete  = history.Delete
	Replace = history.Replace
)

// CommitResult reports the outcome of a committed transaction.
type CommitResult struct {
	// Revision is the document revision after the transaction.
	Revision uint64

	// Cursors are the cursors after the transaction.
	Cursors []cursor.Cursor

	// Coalesced is true when the transaction was folded into the
	// previous undo entry.
	Coalesced bool

	// Range and NewLen describe the affected region as in ChangeEvent.
	Range  text.Range
	NewLen int
}

// Changed reports whether the transaction modified the content.
func (r CommitResult) Changed() bool {
	return !r.Range.IsEmpty() || r.NewLen > 0
}

// Apply validates and applies one edit as a transaction. Insert requires
// an empty range, Delete requires empty content, and Replace accepts
// both. On error nothing changes.
func (d *Document) Apply(kind history.Kind, r text.Range, content string) (CommitResult, error) {
	if err := checkKind(kind, r, content); err != nil {
		return CommitResult{}, err
	}
	return d.edit(func(t *txn) error {
		return t.apply(r, content)
	})
}

// Insert inserts content at offset.
func (d *Document) Insert(offset int, content string) (CommitResult, error) {
	return d.Apply(Insert, text.Point(offset), content)
}

// Delete removes the content in r.
func (d *Document) Delete(r text.Range) (CommitResult, error) {
	return d.Apply(Delete, r, "")
}

// Replace replaces the content in r with content.
func (d *Document) Replace(r text.Range, content string) (CommitResult, error) {
	return d.Apply(Replace, r, content)
}

// Transact runs fn as a single all-or-nothing transaction. Every edit
// made through tx lands in one undo entry and produces one change event.
// If fn returns an error the content and cursors are rolled back.
//
// fn runs with the document locked and must not call Document methods.
func (d *Document) Transact(fn func(tx *Tx) error) (CommitResult, error) {
	return d.edit(func(t *txn) error {
		return fn(&Tx{t: t})
	})
}

// Tx applies edits inside Transact. Offsets refer to the content as left
// by the previous edits of the same transaction.
type Tx struct {
	t *txn
}

// Apply validates and applies one edit.
func (tx *Tx) Apply(kind history.Kind, r text.Range, content string) error {
	if err := checkKind(kind, r, content); err != nil {
		return err
	}
	return tx.t.apply(r, content)
}

// Insert inserts content at offset.
func (tx *Tx) Insert(offset int, content string) error {
	return tx.t.apply(text.Point(offset), content)
}

// Delete removes the content in r.
func (tx *Tx) Delete(r text.Range) error {
	return tx.t.apply(r, "")
}

// Replace replaces the content in r with content.
func (tx *Tx) Replace(r text.Range, content string) error {
	return tx.t.apply(r, content)
}

// Snapshot returns the content as left by the edits so far.
func (tx *Tx) Snapshot() text.Snapshot {
	return tx.t.d.store.Snapshot()
}

// Cursors returns the cursors as left by the edits so far.
func (tx *Tx) Cursors() []cursor.Cursor {
	return tx.t.d.cursors.All()
}

// SetCursors replaces the cursors. They are clamped to the content.
func (tx *Tx) SetCursors(cs ...cursor.Cursor) {
	set := tx.t.d.cursors
	set.Replace(cs...)
	set.Clamp(tx.t.d.store)
}

// Edit is one edit of a batch. Ranges refer to the content before the
// batch.
type Edit struct {
	Kind  history.Kind
	Range text.Range
	Text  string
}

func (e Edit) String() string {
	return fmt.Sprintf("%s %v %q", e.Kind, e.Range, e.Text)
}

// ApplyEdits applies a batch of non-overlapping edits as one transaction.
// Inserts at the same offset keep their order. Either every edit is
// applied or none is.
func (d *Document) ApplyEdits(edits []Edit) (CommitResult, error) {
	sorted, err := sortEdits(edits)
	if err != nil {
		return CommitResult{}, err
	}
	return d.edit(func(t *txn) error {
		return t.applySorted(sorted)
	})
}

// ApplyEditsAt is ApplyEdits for edits computed from the content at
// revision rev, typically taken with Capture. It fails with ErrStale and
// changes nothing when the document has moved past rev.
func (d *Document) ApplyEditsAt(rev uint64, edits []Edit) (CommitResult, error) {
	sorted, err := sortEdits(edits)
	if err != nil {
		return CommitResult{}, err
	}
	return d.edit(func(t *txn) error {
		if t.d.revision != rev {
			return fmt.Errorf("%w: computed at revision %d, now %d", ErrStale, rev, t.d.revision)
		}
		return t.applySorted(sorted)
	})
}

// ApplyEach applies edits in order, each as its own transaction, checking
// ctx between them. Each edit's range refers to the content left by the
// previous one. It returns the number of edits committed.
func (d *Document) ApplyEach(ctx context.Context, edits []Edit) (int, error) {
	for i, e := range edits {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		if _, err := d.Apply(e.Kind, e.Range, e.Text); err != nil {
			return i, fmt.Errorf("edit %d (%v): %w", i, e, err)
		}
	}
	return len(edits), nil
}

func checkKind(kind history.Kind, r text.Range, content string) error {
	switch kind {
	case history.Insert:
		if !r.IsEmpty() {
			return fmt.Errorf("%w: insert over non-empty range %v", ErrInvalidEdit, r)
		}
	case history.Delete:
		if content != "" {
			return fmt.Errorf("%w: delete with content", ErrInvalidEdit)
		}
	case history.Replace:
	default:
		return fmt.Errorf("%w: unknown kind %d", ErrInvalidEdit, kind)
	}
	return nil
}

// sortEdits validates a batch and returns it sorted by start offset.
func sortEdits(edits []Edit) ([]Edit, error) {
	sorted := slices.Clone(edits)
	for _, e := range sorted {
		if err := checkKind(e.Kind, e.Range, e.Text); err != nil {
			return nil, err
		}
	}
	slices.SortStableFunc(sorted, func(a, b Edit) int {
		return a.Range.Start - b.Range.Start
	})
	for i := 1; i < len(sorted); i++ {
		prev, next := sorted[i-1].Range, sorted[i].Range
		if prev.End > next.Start {
			return nil, fmt.Errorf("%w: %v and %v", ErrEditsOverlap, prev, next)
		}
	}
	return sorted, nil
}

// edit runs fn as one transaction and delivers the resulting event after
// the lock is released.
func (d *Document) edit(fn func(t *txn) error) (CommitResult, error) {
	defer d.notify.drain()
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.writable(); err != nil {
		return CommitResult{}, err
	}
	t := d.begin()
	if err := fn(t); err != nil {
		t.rollback()
		return CommitResult{}, err
	}
	return d.commit(t), nil
}

// txn accumulates the operations of one transaction.
type txn struct {
	d      *Document
	snap   text.Snapshot
	before cursor.State
	ops    []history.Operation
	span   span
}

func (d *Document) begin() *txn {
	return &txn{
		d:      d,
		snap:   d.store.Snapshot(),
		before: d.cursors.State(),
	}
}

// apply mutates the store and remaps cursors. An empty edit is ignored.
func (t *txn) apply(r text.Range, content string) error {
	if r.IsEmpty() && content == "" {
		// Still validate so out-of-range no-ops fail.
		_, err := t.d.store.Read(r)
		return err
	}

	var old string
	var err error
	if r.IsEmpty() {
		err = t.d.store.Insert(r.Start, content)
	} else {
		old, err = t.d.store.Replace(r, content)
	}
	if err != nil {
		return err
	}

	t.ops = append(t.ops, history.Operation{
		Kind:    history.KindOf(r, content),
		Range:   r,
		OldText: old,
		NewText: content,
	})
	t.d.cursors.ApplyEdit(r, len(content))
	t.span.add(r, len(content))
	return nil
}

// applySorted applies a sorted batch back to front so earlier ranges stay
// valid.
func (t *txn) applySorted(sorted []Edit) error {
	for _, e := range slices.Backward(sorted) {
		if err := t.apply(e.Range, e.Text); err != nil {
			return fmt.Errorf("edit %v: %w", e, err)
		}
	}
	return nil
}

func (t *txn) rollback() {
	t.d.store.Reset(t.snap)
	t.d.cursors.Restore(t.before)
}

func (t *txn) event(cause Cause) ChangeEvent {
	return ChangeEvent{
		DocID:    t.d.id,
		Revision: t.d.revision,
		Cause:    cause,
		Range:    t.span.old(),
		NewLen:   t.span.newLen(),
		Snapshot: t.d.store.Snapshot(),
	}
}

// commit records t in history and queues its event. A transaction with
// no operations changes nothing, including the revision.
func (d *Document) commit(t *txn) CommitResult {
	if len(t.ops) == 0 {
		return CommitResult{Revision: d.revision, Cursors: d.cursors.All()}
	}

	d.revision++
	coalesced := d.history.Commit(history.Transaction{
		Ops:      t.ops,
		Before:   t.before,
		After:    d.cursors.State(),
		Revision: d.revision,
	})
	ev := t.event(CauseEdit)
	d.notify.enqueue(ev)
	d.log.Debug("commit",
		"revision", d.revision,
		"ops", len(t.ops),
		"range", ev.Range.String(),
		"new_len", ev.NewLen,
		"coalesced", coalesced,
	)

	return CommitResult{
		Revision:  d.revision,
		Cursors:   d.cursors.All(),
		Coalesced: coalesced,
		Range:     ev.Range,
		NewLen:    ev.NewLen,
	}
}

// span tracks the region touched by a sequence of edits, in both the
// original and the current coordinates.
type span struct {
	set     bool
	start   int
	end     int // current coordinates
	origEnd int // original coordinates
}

func (s *span) add(r text.Range, newLen int) {
	if !s.set {
		s.set = true
		s.start, s.end, s.origEnd = r.Start, r.End, r.End
	} else {
		if r.Start < s.start {
			s.start = r.Start
		}
		if r.End > s.end {
			s.origEnd += r.End - s.end
			s.end = r.End
		}
	}
	s.end += newLen - r.Len()
}

func (s *span) old() text.Range {
	return text.Span(s.start, s.origEnd)
}

func (s *span) newLen() int {
	return s.end - s.start
}
