package text

import "unicode/utf8"

// Store is the mutable Text Store of a document.
//
// Every method of Snapshot is available on Store and reflects the current
// content. A failed mutation leaves the content unchanged.
type Store struct {
	view
}

// view names the embedded Snapshot so Store can still expose a
// Snapshot method.
type view = Snapshot

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{}
}

// NewStoreFromString returns a store holding s, which must be valid UTF-8.
func NewStoreFromString(s string) (*Store, error) {
	snap, err := SnapshotOf(s)
	if err != nil {
		return nil, err
	}
	return &Store{view: snap}, nil
}

// Snapshot returns an immutable view of the current content. Snapshots
// share structure with the store and cost O(1) to take.
func (st *Store) Snapshot() Snapshot {
	return st.view
}

// Reset replaces the whole content with snap.
func (st *Store) Reset(snap Snapshot) {
	st.view = snap
}

// Insert inserts content at offset.
func (st *Store) Insert(offset int, content string) error {
	if err := st.checkOffset("insert", offset); err != nil {
		return err
	}
	if !utf8.ValidString(content) {
		return rangeErr("insert", Point(offset), st.LenBytes(), ErrInvalidUTF8)
	}
	st.rope = st.rope.Insert(offset, content)
	return nil
}

// Delete removes the content in r and returns it.
func (st *Store) Delete(r Range) (string, error) {
	if err := st.checkRange("delete", r); err != nil {
		return "", err
	}
	removed := st.rope.Slice(r.Start, r.End)
	st.rope = st.rope.Delete(r.Start, r.End)
	return removed, nil
}

// Replace replaces the content in r with content and returns what was
// removed.
func (st *Store) Replace(r Range, content string) (string, error) {
	if err := st.checkRange("replace", r); err != nil {
		return "", err
	}
	if !utf8.ValidString(content) {
		return "", rangeErr("replace", r, st.LenBytes(), ErrInvalidUTF8)
	}
	removed := st.rope.Slice(r.Start, r.End)
	st.rope = st.rope.Replace(r.Start, r.End, content)
	return removed, nil
}
