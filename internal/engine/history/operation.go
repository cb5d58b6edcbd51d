package history

import (
	"fmt"

	"github.com/dshills/quill/internal/engine/text"
)

// Kind is the kind of an edit operation.
type Kind uint8

// Operation kinds.
const (
	Insert Kind = iota
	Delete
	Replace
)

func (k Kind) String() string {
	switch k {
	case Insert:
		return "insert"
	case Delete:
		return "delete"
	case Replace:
		return "replace"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// KindOf returns the kind implied by an edit of r with content.
func KindOf(r text.Range, content string) Kind {
	switch {
	case r.IsEmpty():
		return Insert
	case content == "":
		return Delete
	default:
		return Replace
	}
}

// Operation is an invertible edit. Range is in pre-edit coordinates.
type Operation struct {
	Kind    Kind
	Range   text.Range
	OldText string
	NewText string
}

// NewRange returns the range the new text occupies after the edit.
func (op Operation) NewRange() text.Range {
	return text.Span(op.Range.Start, op.Range.Start+len(op.NewText))
}

// Delta returns the change in document length.
func (op Operation) Delta() int {
	return len(op.NewText) - len(op.OldText)
}

// Invert returns the operation that undoes op.
func (op Operation) Invert() Operation {
	inv := Operation{
		Range:   op.NewRange(),
		OldText: op.NewText,
		NewText: op.OldText,
	}
	inv.Kind = KindOf(inv.Range, inv.NewText)
	return inv
}

func (op Operation) String() string {
	return fmt.Sprintf("%s %s %q -> %q", op.Kind, op.Range, op.OldText, op.NewText)
}
