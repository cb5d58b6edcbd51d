// Package workspace tracks the documents open in one editor session.
//
// A Workspace opens files through fileio, keeps them in open order with one
// active document, gives each a syntax highlighter, attaches them to the
// plugin host and republishes their engine events on the event bus.
package workspace

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"sync"

	"github.com/google/uuid"

	"github.com/dshills/quill/internal/config"
	"github.com/dshills/quill/internal/engine"
	"github.com/dshills/quill/internal/engine/text"
	"github.com/dshills/quill/internal/event"
	"github.com/dshills/quill/internal/event/topic"
	"github.com/dshills/quill/internal/fileio"
	"github.com/dshills/quill/internal/highlight"
	"github.com/dshills/quill/internal/plugin"
)

const source = "workspace"

// Option configures a Workspace.
type Option func(*Workspace)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Workspace) {
		if l != nil {
			w.log = l
		}
	}
}

// WithBus publishes document events on b.
func WithBus(b *event.Bus) Option {
	return func(w *Workspace) {
		w.bus = b
	}
}

// WithHost attaches every document to the plugin host.
func WithHost(h *plugin.Host) Option {
	return func(w *Workspace) {
		w.host = h
	}
}

// WithConfig sets the editor settings applied to documents.
func WithConfig(cfg config.Config) Option {
	return func(w *Workspace) {
		w.cfg = cfg
	}
}

// entry is an open document with its per-document state.
type entry struct {
	doc  *engine.Document
	name string
	hl   *highlight.Highlighter
	subs []*engine.Subscription
}

// Workspace owns the open documents.
type Workspace struct {
	mu      sync.RWMutex
	entries []*entry
	active  int
	scratch int

	cfg  config.Config
	log  *slog.Logger
	bus  *event.Bus
	host *plugin.Host
}

// New creates an empty workspace.
func New(opts ...Option) *Workspace {
	w := &Workspace{
		active: -1,
		cfg:    config.Default(),
		log:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Open returns the document for path, reading it if it is not already
// open, and makes it active. A missing file opens as an empty document
// that is created on first save.
func (w *Workspace) Open(path string) (*engine.Document, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	w.mu.Lock()
	if i := w.indexByPath(abs); i >= 0 {
		w.active = i
		doc := w.entries[i].doc
		w.mu.Unlock()
		return doc, nil
	}
	cfg := w.cfg
	w.mu.Unlock()

	doc, err := fileio.Open(abs,
		fileio.WithEncoding(cfg.Editor.Encoding),
		fileio.WithLineEnding(cfg.Editor.LineEnding),
		fileio.WithCreateMissing(),
		fileio.WithDocumentOptions(w.documentOptions(cfg, abs)...),
	)
	if err != nil {
		return nil, err
	}
	w.add(doc, filepath.Base(abs))
	w.log.Info("document opened", "path", abs, "encoding", doc.Meta().Encoding)
	return doc, nil
}

// NewScratch creates an empty document with no file and makes it active.
func (w *Workspace) NewScratch() *engine.Document {
	w.mu.Lock()
	w.scratch++
	n := w.scratch
	cfg := w.cfg
	w.mu.Unlock()

	name := "Untitled"
	if n > 1 {
		name += "-" + strconv.Itoa(n)
	}
	doc := engine.New(w.documentOptions(cfg, "")...)
	doc.SetMeta(engine.Meta{Encoding: text.UTF8, LineEnding: lineEnding(cfg)})
	w.add(doc, name)
	return doc
}

func lineEnding(cfg config.Config) string {
	if cfg.Editor.LineEnding == engine.LineEndingCRLF {
		return engine.LineEndingCRLF
	}
	return engine.LineEndingLF
}

func (w *Workspace) documentOptions(cfg config.Config, path string) []engine.Option {
	opts := []engine.Option{
		engine.WithTabWidth(cfg.Editor.TabSize),
		engine.WithCoalesceIdle(cfg.History.CoalesceIdle.Duration),
		engine.WithLogger(w.log),
	}
	if cfg.History.MaxUndoEntries > 0 {
		opts = append(opts, engine.WithMaxUndoEntries(cfg.History.MaxUndoEntries))
	}
	if path != "" {
		opts = append(opts, engine.WithPath(path))
	}
	return opts
}

func (w *Workspace) add(doc *engine.Document, name string) {
	w.mu.RLock()
	theme := w.cfg.UI.Theme
	w.mu.RUnlock()

	e := &entry{doc: doc, name: name, hl: highlight.New(doc.Path(), theme)}
	e.subs = append(e.subs, doc.Subscribe(e.hl), doc.Subscribe(engine.ObserverFunc(func(ev engine.ChangeEvent) {
		w.emit(event.TopicDocumentChanged, event.DocumentChanged{Path: doc.Path(), Change: ev})
	})))
	if w.host != nil {
		w.host.Attach(doc)
	}

	w.mu.Lock()
	w.entries = append(w.entries, e)
	w.active = len(w.entries) - 1
	w.mu.Unlock()

	w.emit(event.TopicDocumentOpened, event.DocumentOpened{DocID: doc.ID(), Path: doc.Path(), Encoding: doc.Meta().Encoding})
}

func (w *Workspace) emit(t topic.Topic, payload any) {
	if w.bus != nil {
		w.bus.Emit(t, payload, source)
	}
}

func (w *Workspace) indexByPath(path string) int {
	return slices.IndexFunc(w.entries, func(e *entry) bool { return e.doc.Path() == path })
}

func (w *Workspace) indexOf(doc *engine.Document) int {
	return slices.IndexFunc(w.entries, func(e *entry) bool { return e.doc == doc })
}

func (w *Workspace) lookup(doc *engine.Document) (*entry, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	i := w.indexOf(doc)
	if i < 0 {
		return nil, ErrNotOpen
	}
	return w.entries[i], nil
}

// Active returns the active document, or nil when none is open.
func (w *Workspace) Active() *engine.Document {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.active < 0 {
		return nil
	}
	return w.entries[w.active].doc
}

// SetActive makes the document with id active.
func (w *Workspace) SetActive(id uuid.UUID) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	i := slices.IndexFunc(w.entries, func(e *entry) bool { return e.doc.ID() == id })
	if i < 0 {
		return ErrNotOpen
	}
	w.active = i
	return nil
}

// Next activates the following document, wrapping at the end.
func (w *Workspace) Next() *engine.Document {
	return w.cycle(1)
}

// Prev activates the preceding document, wrapping at the start.
func (w *Workspace) Prev() *engine.Document {
	return w.cycle(-1)
}

func (w *Workspace) cycle(step int) *engine.Document {
	w.mu.Lock()
	defer w.mu.Unlock()
	n := len(w.entries)
	if n == 0 {
		return nil
	}
	w.active = ((w.active+step)%n + n) % n
	return w.entries[w.active].doc
}

// Documents returns the open documents in open order.
func (w *Workspace) Documents() []*engine.Document {
	w.mu.RLock()
	defer w.mu.RUnlock()
	docs := make([]*engine.Document, len(w.entries))
	for i, e := range w.entries {
		docs[i] = e.doc
	}
	return docs
}

// Len returns the number of open documents.
func (w *Workspace) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.entries)
}

// Modified returns the open documents with unsaved changes.
func (w *Workspace) Modified() []*engine.Document {
	var out []*engine.Document
	for _, d := range w.Documents() {
		if d.IsModified() {
			out = append(out, d)
		}
	}
	return out
}

// Name returns the display name of doc.
func (w *Workspace) Name(doc *engine.Document) string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if i := w.indexOf(doc); i >= 0 {
		return w.entries[i].name
	}
	return ""
}

// Highlighter returns the syntax highlighter kept for doc.
func (w *Workspace) Highlighter(doc *engine.Document) *highlight.Highlighter {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if i := w.indexOf(doc); i >= 0 {
		return w.entries[i].hl
	}
	return nil
}

// Save runs the plugins' save hooks and writes doc to its file. A failing
// hook is logged and does not stop the write.
func (w *Workspace) Save(doc *engine.Document) error {
	return w.SaveAs(doc, doc.Path())
}

// SaveAs writes doc to path and makes it the document's file.
func (w *Workspace) SaveAs(doc *engine.Document, path string) error {
	e, err := w.lookup(doc)
	if err != nil {
		return err
	}
	if path == "" {
		return fileio.ErrNoPath
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	if doc.IsReadOnly() {
		return fmt.Errorf("save %s: %w", abs, engine.ErrReadOnly)
	}

	if w.host != nil {
		if err := w.host.BeforeSave(doc); err != nil {
			w.log.Warn("save hook failed", "path", abs, "err", err)
		}
	}
	renamed := abs != doc.Path()
	if err := fileio.SaveAs(doc, abs); err != nil {
		return err
	}

	if renamed {
		w.mu.RLock()
		theme := w.cfg.UI.Theme
		w.mu.RUnlock()
		hl := highlight.New(abs, theme)
		w.mu.Lock()
		old := e.subs[0]
		e.subs[0] = doc.Subscribe(hl)
		e.hl = hl
		e.name = filepath.Base(abs)
		w.mu.Unlock()
		old.Unsubscribe()
	}

	size := 0
	if info, err := os.Stat(abs); err == nil {
		size = int(info.Size())
	}
	w.log.Info("document saved", "path", abs, "bytes", size, "revision", doc.Revision())
	w.emit(event.TopicDocumentSaved, event.DocumentSaved{DocID: doc.ID(), Path: abs, Revision: doc.Revision(), Bytes: size})
	return nil
}

// Reload rereads doc from disk, discarding its history.
func (w *Workspace) Reload(doc *engine.Document) error {
	if _, err := w.lookup(doc); err != nil {
		return err
	}
	return fileio.Reload(doc)
}

// Close removes doc from the workspace. A modified document is kept
// unless force is set.
func (w *Workspace) Close(doc *engine.Document, force bool) error {
	if doc.IsModified() && !force {
		return fmt.Errorf("%w: %s", ErrUnsaved, w.Name(doc))
	}

	w.mu.Lock()
	i := w.indexOf(doc)
	if i < 0 {
		w.mu.Unlock()
		return ErrNotOpen
	}
	e := w.entries[i]
	w.entries = slices.Delete(w.entries, i, i+1)
	switch {
	case len(w.entries) == 0:
		w.active = -1
	case w.active > i || w.active == len(w.entries):
		w.active--
	}
	w.mu.Unlock()

	for _, s := range e.subs {
		s.Unsubscribe()
	}
	if w.host != nil {
		w.host.Detach(doc)
	}
	err := doc.Close()
	w.emit(event.TopicDocumentClosed, event.DocumentClosed{DocID: doc.ID(), Path: doc.Path()})
	return err
}

// CloseAll closes every document, discarding unsaved changes.
func (w *Workspace) CloseAll() error {
	var errs []error
	for _, d := range w.Documents() {
		if err := w.Close(d, true); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ApplyConfig updates open documents and future opens with cfg.
func (w *Workspace) ApplyConfig(cfg config.Config) {
	w.mu.Lock()
	w.cfg = cfg
	docs := make([]*engine.Document, len(w.entries))
	hls := make([]*highlight.Highlighter, len(w.entries))
	for i, e := range w.entries {
		docs[i], hls[i] = e.doc, e.hl
	}
	w.mu.Unlock()

	for i, doc := range docs {
		doc.SetTabWidth(cfg.Editor.TabSize)
		if cfg.History.MaxUndoEntries > 0 {
			doc.SetMaxUndoEntries(cfg.History.MaxUndoEntries)
		}
		hls[i].SetTheme(cfg.UI.Theme)
	}
}

// Config returns the settings in effect.
func (w *Workspace) Config() config.Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.cfg
}
