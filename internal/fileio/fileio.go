// Package fileio moves documents between disk and the buffer engine.
//
// Files are decoded on open: a byte order mark selects the encoding,
// otherwise the configured fallback applies. CRLF line endings are
// normalized to LF in memory and restored on save, so the engine only
// ever sees "\n".
package fileio

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/dshills/quill/internal/engine"
	"github.com/dshills/quill/internal/engine/text"
)

// ErrNoPath is returned when saving a document that has never had a path.
var ErrNoPath = errors.New("document has no path")

// Option configures Open.
type Option func(*options)

type options struct {
	encoding      string
	lineEnding    string
	createMissing bool
	docOpts       []engine.Option
}

// WithEncoding sets the encoding used when the file has no BOM.
func WithEncoding(enc string) Option {
	return func(o *options) {
		o.encoding = enc
	}
}

// WithLineEnding sets the terminator assumed for files without line breaks.
func WithLineEnding(ending string) Option {
	return func(o *options) {
		o.lineEnding = ending
	}
}

// WithCreateMissing makes Open return an empty document when the file
// does not exist yet.
func WithCreateMissing() Option {
	return func(o *options) {
		o.createMissing = true
	}
}

// WithDocumentOptions passes options through to the new document.
func WithDocumentOptions(opts ...engine.Option) Option {
	return func(o *options) {
		o.docOpts = append(o.docOpts, opts...)
	}
}

func buildOptions(opts []Option) options {
	o := options{encoding: text.UTF8, lineEnding: engine.LineEndingLF}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Decode turns raw file bytes into text and its metadata. Uniform CRLF
// files are normalized to LF; mixed files are kept verbatim.
func Decode(data []byte, fallback, defaultEnding string) (string, engine.Meta, error) {
	enc, rest, bom := DetectBOM(data)
	if !bom {
		var err error
		if enc, err = text.CanonicalEncoding(fallback); err != nil {
			return "", engine.Meta{}, err
		}
	}
	s, err := text.Decode(rest, enc)
	if err != nil {
		return "", engine.Meta{}, err
	}
	meta := engine.Meta{
		Encoding:   enc,
		LineEnding: DetectLineEnding(s, defaultEnding),
		BOM:        bom,
	}
	return NormalizeLineEndings(s, meta.LineEnding), meta, nil
}

// Encode renders content for disk according to meta.
func Encode(content string, meta engine.Meta) ([]byte, error) {
	data, err := text.Encode(ApplyLineEnding(content, meta.LineEnding), meta.Encoding)
	if err != nil {
		return nil, err
	}
	if meta.BOM {
		if bom := BOM(meta.Encoding); bom != nil {
			data = append(append([]byte(nil), bom...), data...)
		}
	}
	return data, nil
}

// Open reads path into a new document.
func Open(path string, opts ...Option) (*engine.Document, error) {
	o := buildOptions(opts)

	data, err := os.ReadFile(path)
	if err != nil {
		if o.createMissing && errors.Is(err, fs.ErrNotExist) {
			return newMissing(path, o)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	content, meta, err := Decode(data, o.encoding, o.lineEnding)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	meta.Path = path

	doc := engine.New(append(o.docOpts, engine.WithContent(content))...)
	doc.SetMeta(meta)
	if info, err := os.Stat(path); err == nil && info.Mode().Perm()&0o222 == 0 {
		doc.SetReadOnly(true)
	}
	return doc, nil
}

func newMissing(path string, o options) (*engine.Document, error) {
	enc, err := text.CanonicalEncoding(o.encoding)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	doc := engine.New(o.docOpts...)
	doc.SetMeta(engine.Meta{Path: path, Encoding: enc, LineEnding: o.lineEnding})
	return doc, nil
}

// Reload replaces doc's content with the file on disk.
func Reload(doc *engine.Document) error {
	meta := doc.Meta()
	if meta.Path == "" {
		return ErrNoPath
	}
	data, err := os.ReadFile(meta.Path)
	if err != nil {
		return fmt.Errorf("reload %s: %w", meta.Path, err)
	}
	content, fresh, err := Decode(data, meta.Encoding, meta.LineEnding)
	if err != nil {
		return fmt.Errorf("reload %s: %w", meta.Path, err)
	}
	if err := doc.Reload([]byte(content), text.UTF8); err != nil {
		return err
	}
	fresh.Path = meta.Path
	doc.SetMeta(fresh)
	return nil
}

// Save writes doc to its path.
func Save(doc *engine.Document) error {
	return SaveAs(doc, doc.Path())
}

// SaveAs writes doc to path and makes path the document's file. The
// revision captured before writing is the one marked saved, so edits
// made during the write keep the document modified.
func SaveAs(doc *engine.Document, path string) error {
	if path == "" {
		return ErrNoPath
	}
	snap, rev := doc.Capture()
	meta := doc.Meta()

	data, err := Encode(snap.String(), meta)
	if err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	if err := WriteAtomic(path, data); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}

	if meta.Path != path {
		meta.Path = path
		doc.SetMeta(meta)
	}
	doc.MarkSavedAt(rev)
	return nil
}

// WriteAtomic writes data to a temporary file beside path and renames it
// into place. An existing file's permissions are preserved.
func WriteAtomic(path string, data []byte) error {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	perm := fs.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		perm = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(dir, "."+base+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	cleanup := func() {
		tmp.Close()
		os.Remove(tmpName)
	}

	if _, err := tmp.Write(data); err != nil {
		cleanup()
		return err
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
