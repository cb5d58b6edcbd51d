package engine

import (
	"errors"

	"github.com/dshills/quill/internal/engine/text"
)

// Errors returned by engine operations. The first group is shared with
// the text package so callers need only import engine.
var (
	// ErrOutOfBounds indicates a range or offset outside the document.
	ErrOutOfBounds = text.ErrOutOfBounds

	// ErrInvalidOffset indicates an offset that splits a code point.
	ErrInvalidOffset = text.ErrInvalidOffset

	// ErrInvalidUTF8 indicates inserted content is not valid UTF-8.
	ErrInvalidUTF8 = text.ErrInvalidUTF8

	// ErrDecode indicates loaded content could not be decoded.
	ErrDecode = text.ErrDecode

	// ErrUnknownEncoding indicates an unsupported encoding name.
	ErrUnknownEncoding = text.ErrUnknownEncoding

	// ErrInvalidEdit indicates an edit whose kind does not match its
	// range and content, such as an insert over a non-empty range.
	ErrInvalidEdit = errors.New("invalid edit")

	// ErrEditsOverlap indicates batch edits that overlap each other.
	ErrEditsOverlap = errors.New("edits overlap")

	// ErrClosed indicates the document has been closed.
	ErrClosed = errors.New("document is closed")

	// ErrEmptyPattern indicates an empty search pattern.
	ErrEmptyPattern = errors.New("empty search pattern")

	// ErrReadOnly indicates an edit on a read-only document.
	ErrReadOnly = errors.New("document is read-only")

	// ErrStale indicates edits computed against a revision that is no
	// longer current.
	ErrStale = errors.New("document changed since edits were computed")
)

// RangeError and DecodeError carry the details of bounds and decode
// failures.
type (
	RangeError  = text.RangeError
	DecodeError = text.DecodeError
)
