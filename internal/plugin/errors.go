package plugin

import (
	"errors"
	"fmt"
)

// Errors returned by the host.
var (
	ErrNilPlugin       = errors.New("plugin is nil")
	ErrDuplicatePlugin = errors.New("plugin already registered")
	ErrPluginNotFound  = errors.New("plugin not found")
	ErrCommandNotFound = errors.New("command not found")
	ErrHostClosed      = errors.New("plugin host closed")
	ErrPluginPanic     = errors.New("plugin panicked")
)

// Error records a failure inside one plugin.
type Error struct {
	Plugin string
	Op     string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("plugin %s: %s: %v", e.Plugin, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
