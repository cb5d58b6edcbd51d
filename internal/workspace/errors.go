package workspace

import "errors"

var (
	// ErrNotOpen indicates a document that does not belong to the workspace.
	ErrNotOpen = errors.New("document not open")

	// ErrUnsaved indicates a close that would discard modifications.
	ErrUnsaved = errors.New("document has unsaved changes")

	// ErrNoDocuments indicates an operation that needs an active document.
	ErrNoDocuments = errors.New("no open documents")
)
