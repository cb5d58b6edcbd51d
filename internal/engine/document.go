package engine

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/quill/internal/engine/cursor"
	"github.com/dshills/quill/internal/engine/history"
	"github.com/dshills/quill/internal/engine/text"
)

// Line ending names recorded in Meta.
const (
	LineEndingLF   = "lf"
	LineEndingCRLF = "crlf"
	// LineEndingMixed marks a file whose terminators are kept as they are.
	LineEndingMixed = "mixed"
)

// Meta describes where a document came from and how it is written back.
type Meta struct {
	Path       string
	Encoding   string
	LineEnding string
	BOM        bool
}

// Document is a text buffer with cursors, undo history and change
// notification.
type Document struct {
	mu sync.RWMutex

	id       uuid.UUID
	store    *text.Store
	cursors  *cursor.Set
	history  *history.History
	notify   *notifier
	revision uint64
	saved    uint64
	mode     string
	meta     Meta
	tabWidth int
	readOnly bool
	closed   bool
	log      *slog.Logger

	// Construction-only settings.
	initContent    string
	maxUndoEntries int
	coalesceIdle   time.Duration
	now            func() time.Time
}

// New creates a document.
func New(opts ...Option) *Document {
	d := &Document{
		id:             uuid.New(),
		tabWidth:       DefaultTabWidth,
		maxUndoEntries: DefaultMaxUndoEntries,
		meta:           Meta{Encoding: text.UTF8, LineEnding: LineEndingLF},
		log:            slog.New(slog.DiscardHandler),
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}

	// initContent was sanitized by WithContent.
	store, err := text.NewStoreFromString(d.initContent)
	if err != nil {
		store = text.NewStore()
	}
	d.store = store
	d.initContent = ""
	d.cursors = cursor.NewSet()
	d.history = history.New(
		history.WithMaxEntries(d.maxUndoEntries),
		history.WithIdleTimeout(d.coalesceIdle),
		history.WithClock(d.now),
	)
	d.log = d.log.With(slog.String("doc", d.id.String()[:8]))
	d.notify = newNotifier(d.log)
	return d
}

// Load decodes data from the named encoding and returns a document
// holding it. Undecodable input returns a *DecodeError wrapping ErrDecode.
func Load(data []byte, enc string, opts ...Option) (*Document, error) {
	snap, err := text.Load(data, enc)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	d := New(opts...)
	d.store.Reset(snap)
	if name, err := text.CanonicalEncoding(enc); err == nil {
		d.meta.Encoding = name
	}
	d.log.Debug("loaded", "bytes", snap.LenBytes(), "encoding", d.meta.Encoding)
	return d, nil
}

// Reload replaces the whole content with data decoded from enc. History
// is cleared, cursors return to the start and the document is marked
// saved. Observers receive one event with CauseLoad.
func (d *Document) Reload(data []byte, enc string) error {
	snap, err := text.Load(data, enc)
	if err != nil {
		return fmt.Errorf("reload: %w", err)
	}

	defer d.notify.drain()
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}

	old := d.store.LenBytes()
	d.store.Reset(snap)
	d.cursors = cursor.NewSet()
	d.history.Clear()
	if name, err := text.CanonicalEncoding(enc); err == nil {
		d.meta.Encoding = name
	}
	d.revision++
	d.saved = d.revision
	d.notify.enqueue(ChangeEvent{
		DocID:    d.id,
		Revision: d.revision,
		Cause:    CauseLoad,
		Range:    text.Span(0, old),
		NewLen:   snap.LenBytes(),
		Snapshot: snap,
	})
	return nil
}

// ID returns the document's unique identifier.
func (d *Document) ID() uuid.UUID {
	return d.id
}

// Revision returns the number of committed transactions, undos and redos
// since creation.
func (d *Document) Revision() uint64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.revision
}

// Snapshot returns an immutable view of the current content.
func (d *Document) Snapshot() text.Snapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.store.Snapshot()
}

// Capture returns the current content together with its revision.
func (d *Document) Capture() (text.Snapshot, uint64) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.store.Snapshot(), d.revision
}

// Text returns the full content.
func (d *Document) Text() string {
	return d.Snapshot().String()
}

// Read returns the content in r.
func (d *Document) Read(r text.Range) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.store.Read(r)
}

// LenBytes returns the content length in bytes.
func (d *Document) LenBytes() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.store.LenBytes()
}

// LenChars returns the content length in code points.
func (d *Document) LenChars() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.store.LenChars()
}

// LineCount returns the number of lines.
func (d *Document) LineCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.store.LineCount()
}

// LineRange returns the byte range of line, excluding its newline.
func (d *Document) LineRange(line int) (text.Range, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.store.LineRange(line)
}

// LineText returns the text of line, excluding its newline.
func (d *Document) LineText(line int) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.store.LineText(line)
}

// OffsetToLineCol converts a byte offset to a line and column.
func (d *Document) OffsetToLineCol(offset int) (text.LineCol, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.store.OffsetToLineCol(offset)
}

// LineColToOffset converts a line and byte column to an offset.
func (d *Document) LineColToOffset(line, col int) (int, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.store.LineColToOffset(line, col)
}

// LineNumberWidth returns the gutter width needed for line numbers: at
// least four digits plus one column of padding.
func (d *Document) LineNumberWidth() int {
	n := d.LineCount()
	digits := 1
	for n >= 10 {
		n /= 10
		digits++
	}
	return max(digits, 4) + 1
}

// TabWidth returns the configured tab width.
func (d *Document) TabWidth() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.tabWidth
}

// SetTabWidth changes the tab width used by vertical motions.
func (d *Document) SetTabWidth(width int) {
	if width <= 0 {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tabWidth = width
}

// Meta returns the document's file metadata.
func (d *Document) Meta() Meta {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.meta
}

// SetMeta replaces the document's file metadata.
func (d *Document) SetMeta(m Meta) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.meta = m
}

// Path returns the file path, or "" for an unsaved document.
func (d *Document) Path() string {
	return d.Meta().Path
}

// IsModified reports whether the content changed since the last save.
// Undoing back to the saved revision does not clear the flag, since the
// revision counter only moves forward.
func (d *Document) IsModified() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.revision != d.saved
}

// MarkSaved records the current revision as saved.
func (d *Document) MarkSaved() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.saved = d.revision
}

// MarkSavedAt records rev as saved. Use it with Capture when edits may
// land while the content is being written.
func (d *Document) MarkSavedAt(rev uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if rev <= d.revision {
		d.saved = rev
	}
}

// IsReadOnly reports whether edits are rejected.
func (d *Document) IsReadOnly() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.readOnly
}

// SetReadOnly enables or disables edits.
func (d *Document) SetReadOnly(ro bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.readOnly = ro
}

// Mode returns the current input mode name.
func (d *Document) Mode() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.mode
}

// SetMode records the input mode. A change of mode closes the typing
// coalescing window.
func (d *Document) SetMode(mode string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if mode != d.mode {
		d.history.Checkpoint()
		d.mode = mode
	}
}

// Checkpoint closes the typing coalescing window so the next edit starts
// a new undo entry.
func (d *Document) Checkpoint() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.history.Checkpoint()
}

// Close releases the document. Edits afterwards return ErrClosed and
// observers are dropped. Queries keep returning the last content.
func (d *Document) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	d.history.Clear()
	d.notify.reset()
	d.log.Debug("closed", "revision", d.revision)
	return nil
}

// IsClosed reports whether Close has been called.
func (d *Document) IsClosed() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.closed
}

// writable returns the error an edit should fail with, if any.
// Callers hold d.mu.
func (d *Document) writable() error {
	switch {
	case d.closed:
		return ErrClosed
	case d.readOnly:
		return ErrReadOnly
	}
	return nil
}
