package event

import (
	"github.com/google/uuid"

	"github.com/dshills/quill/internal/engine"
	"github.com/dshills/quill/internal/engine/cursor"
	"github.com/dshills/quill/internal/event/topic"
)

// Well-known topics.
const (
	TopicDocumentOpened  topic.Topic = "document.opened"
	TopicDocumentChanged topic.Topic = "document.changed"
	TopicDocumentSaved   topic.Topic = "document.saved"
	TopicDocumentClosed  topic.Topic = "document.closed"
	TopicCursorMoved     topic.Topic = "editor.cursor.moved"
	TopicModeChanged     topic.Topic = "editor.mode.changed"
	TopicConfigChanged   topic.Topic = "config.changed"
	TopicPluginLoaded    topic.Topic = "plugin.loaded"
	TopicPluginError     topic.Topic = "plugin.error"
)

// DocumentOpened is published when a document is opened or created.
type DocumentOpened struct {
	DocID    uuid.UUID
	Path     string
	Encoding string
}

// DocumentChanged wraps a document change event.
type DocumentChanged struct {
	Path   string
	Change engine.ChangeEvent
}

// DocumentSaved is published after a successful save.
type DocumentSaved struct {
	DocID    uuid.UUID
	Path     string
	Revision uint64
	Bytes    int
}

// DocumentClosed is published when a document is closed.
type DocumentClosed struct {
	DocID uuid.UUID
	Path  string
}

// CursorMoved is published when the cursors move without an edit.
type CursorMoved struct {
	DocID   uuid.UUID
	Cursors []cursor.Cursor
}

// ModeChanged is published on input mode switches.
type ModeChanged struct {
	DocID uuid.UUID
	From  string
	To    string
}

// ConfigChanged is published after the configuration is reloaded.
type ConfigChanged struct {
	Path string
}

// PluginLoaded is published when a plugin initializes.
type PluginLoaded struct {
	Name    string
	Version string
}

// PluginError is published when a plugin fails.
type PluginError struct {
	Name string
	Err  error
}
