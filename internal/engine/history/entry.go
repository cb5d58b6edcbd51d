package history

import (
	"time"

	"github.com/dshills/quill/internal/engine/cursor"
)

// Transaction is a committed set of operations waiting to be recorded.
type Transaction struct {
	Ops      []Operation
	Before   cursor.State
	After    cursor.State
	Revision uint64
}

// Entry is one undo unit.
type Entry struct {
	Ops      []Operation
	Before   cursor.State
	After    cursor.State
	Revision uint64
	Time     time.Time

	// updated is the time of the last operation folded into the entry.
	updated time.Time
}

// Inverse returns the operations that undo the entry, in the order they
// must be applied.
func (e *Entry) Inverse() []Operation {
	out := make([]Operation, len(e.Ops))
	for i, op := range e.Ops {
		out[len(e.Ops)-1-i] = op.Invert()
	}
	return out
}

// Len returns the number of operations in the entry.
func (e *Entry) Len() int {
	return len(e.Ops)
}
