package text

import (
	"errors"
	"fmt"
)

// Errors returned by Text Store operations.
var (
	// ErrOutOfBounds indicates a range or offset outside the document, an
	// inverted range, or a range that splits a multi-byte code point.
	ErrOutOfBounds = errors.New("out of bounds")

	// ErrInvalidOffset indicates an offset inside the document that does
	// not fall on a code point boundary.
	ErrInvalidOffset = errors.New("invalid offset")

	// ErrInvalidUTF8 indicates inserted content is not valid UTF-8.
	ErrInvalidUTF8 = errors.New("content is not valid UTF-8")

	// ErrDecode indicates loaded content could not be decoded.
	ErrDecode = errors.New("decode error")

	// ErrEncode indicates content cannot be represented in the target encoding.
	ErrEncode = errors.New("encode error")

	// ErrUnknownEncoding indicates an unsupported encoding name.
	ErrUnknownEncoding = errors.New("unknown encoding")
)

// RangeError describes a rejected offset or range.
type RangeError struct {
	Op    string
	Range Range
	Len   int
	Err   error
}

func (e *RangeError) Error() string {
	if e.Range.IsEmpty() {
		return fmt.Sprintf("%s at %d (length %d): %v", e.Op, e.Range.Start, e.Len, e.Err)
	}
	return fmt.Sprintf("%s %s (length %d): %v", e.Op, e.Range, e.Len, e.Err)
}

func (e *RangeError) Unwrap() error {
	return e.Err
}

// DecodeError reports the first byte that could not be decoded.
type DecodeError struct {
	Encoding string
	Offset   int
	Err      error
}

func (e *DecodeError) Error() string {
	if e.Err != nil && !errors.Is(e.Err, ErrDecode) {
		return fmt.Sprintf("decode %s at byte %d: %v", e.Encoding, e.Offset, e.Err)
	}
	return fmt.Sprintf("decode %s: invalid input at byte %d", e.Encoding, e.Offset)
}

// Unwrap lets errors.Is match ErrDecode for every DecodeError.
func (e *DecodeError) Unwrap() []error {
	if e.Err == nil || errors.Is(e.Err, ErrDecode) {
		return []error{ErrDecode}
	}
	return []error{ErrDecode, e.Err}
}

func rangeErr(op string, r Range, n int, err error) error {
	return &RangeError{Op: op, Range: r, Len: n, Err: err}
}
