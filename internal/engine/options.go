package engine

import (
	"log/slog"
	"strings"
	"time"
)

// Default configuration values.
const (
	DefaultTabWidth       = 4
	DefaultMaxUndoEntries = 1000
)

// Option configures a Document during creation.
type Option func(*Document)

// WithContent sets the initial content. Invalid UTF-8 sequences are
// replaced with U+FFFD; use Load to reject them instead.
func WithContent(content string) Option {
	return func(d *Document) {
		d.initContent = strings.ToValidUTF8(content, "�")
	}
}

// WithTabWidth sets the tab width used for display columns and motions.
func WithTabWidth(width int) Option {
	return func(d *Document) {
		if width > 0 {
			d.tabWidth = width
		}
	}
}

// WithMaxUndoEntries sets the maximum number of undo history entries.
func WithMaxUndoEntries(max int) Option {
	return func(d *Document) {
		if max > 0 {
			d.maxUndoEntries = max
		}
	}
}

// WithCoalesceIdle closes the typing coalescing window after d without
// edits. Zero disables the timeout.
func WithCoalesceIdle(idle time.Duration) Option {
	return func(d *Document) {
		if idle >= 0 {
			d.coalesceIdle = idle
		}
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(d *Document) {
		if l != nil {
			d.log = l
		}
	}
}

// WithPath records the file the document was loaded from.
func WithPath(path string) Option {
	return func(d *Document) {
		d.meta.Path = path
	}
}

// WithReadOnly creates a read-only document.
// Edits return ErrReadOnly.
func WithReadOnly() Option {
	return func(d *Document) {
		d.readOnly = true
	}
}

// withClock sets the time source for history coalescing.
func withClock(now func() time.Time) Option {
	return func(d *Document) {
		d.now = now
	}
}
