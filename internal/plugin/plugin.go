// Package plugin hosts editor extensions.
//
// A Plugin is initialized once by a Host and then receives hooks for the
// documents the host is attached to. Hooks are optional interfaces:
//
//   - ChangeHandler sees every committed change of an attached document.
//   - SaveHook proposes edits to apply before a document is written.
//   - Commander contributes named commands.
//   - KeyBinder suggests key bindings for those commands.
//
// Proposed edits go through the document's ApplyEdits, so each plugin's
// proposal is one atomic, undoable transaction. A plugin that returns an
// error or panics is reported and skipped; it never takes the editor down.
package plugin

import (
	"log/slog"

	"github.com/dshills/quill/internal/engine"
	"github.com/dshills/quill/internal/event"
)

// Plugin is the minimum a plugin implements.
type Plugin interface {
	// Name returns the unique plugin name.
	Name() string
	// Init is called once when the plugin is registered.
	Init(env *Env) error
	// Close releases plugin resources.
	Close() error
}

// ChangeHandler is implemented by plugins that observe document edits.
type ChangeHandler interface {
	OnChange(doc *engine.Document, ev engine.ChangeEvent)
}

// SaveHook is implemented by plugins that rewrite content before save.
type SaveHook interface {
	BeforeSave(doc *engine.Document) ([]engine.Edit, error)
}

// Commander is implemented by plugins that provide commands.
type Commander interface {
	Commands() []Command
}

// KeyBinder is implemented by plugins that suggest key bindings, as
// "ctrl+u" = "command" pairs. User bindings take precedence.
type KeyBinder interface {
	Keybindings() map[string]string
}

// Versioned is implemented by plugins that report a version.
type Versioned interface {
	Version() string
}

// Command is a named action a plugin contributes.
type Command struct {
	Name        string
	Description string
	Run         func(doc *engine.Document, args []string) error
}

// Env is what a plugin receives at Init.
type Env struct {
	// Logger is scoped to the plugin.
	Logger *slog.Logger
	// Bus publishes editor events. It may be nil.
	Bus *event.Bus
	// Options holds the plugin's settings from the config file.
	Options map[string]any
	// Status shows a short message to the user.
	Status func(msg string)
}

// Option returns the named setting, or def when it is absent or has a
// different type.
func Option[T any](env *Env, key string, def T) T {
	if env == nil || env.Options == nil {
		return def
	}
	if v, ok := env.Options[key].(T); ok {
		return v
	}
	return def
}
