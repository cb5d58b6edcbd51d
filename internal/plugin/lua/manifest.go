package lua

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// ManifestFile is the manifest name inside a plugin directory.
const ManifestFile = "plugin.toml"

// Manifest validation errors.
var (
	ErrMissingName    = errors.New("manifest: name is required")
	ErrInvalidName    = errors.New("manifest: name must be lowercase alphanumeric with hyphens")
	ErrMissingVersion = errors.New("manifest: version is required")
	ErrInvalidVersion = errors.New("manifest: version must be valid semver")
	ErrInvalidMain    = errors.New("manifest: main must be a .lua file inside the plugin directory")
	ErrInvalidCommand = errors.New("manifest: command needs a name")
)

// Manifest describes a Lua plugin.
//
//	name = "shout"
//	version = "0.1.0"
//	description = "Upper-cases the selection"
//	main = "init.lua"
//
//	[[commands]]
//	name = "shout"
//	function = "shout"
//
//	[keybindings]
//	"ctrl+u" = "shout"
//
//	[options]
//	suffix = "!"
type Manifest struct {
	Name        string            `toml:"name"`
	Version     string            `toml:"version"`
	Description string            `toml:"description"`
	Main        string            `toml:"main"`
	Commands    []CommandSpec     `toml:"commands"`
	Keybindings map[string]string `toml:"keybindings"`
	// Options are defaults; settings from the config file override them.
	Options map[string]any `toml:"options"`

	dir string
}

// CommandSpec binds a command name to a global Lua function.
type CommandSpec struct {
	Name        string `toml:"name"`
	Description string `toml:"description"`
	// Function defaults to Name.
	Function string `toml:"function"`
}

var (
	namePattern   = regexp.MustCompile(`^[a-z][a-z0-9-]*[a-z0-9]$|^[a-z]$`)
	semverPattern = regexp.MustCompile(`^\d+\.\d+\.\d+(-[a-zA-Z0-9.-]+)?(\+[a-zA-Z0-9.-]+)?$`)
)

// ReadManifest loads and validates dir/plugin.toml.
func ReadManifest(dir string) (*Manifest, error) {
	path := filepath.Join(dir, ManifestFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	m, err := ParseManifest(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	m.dir = dir
	return m, nil
}

// ParseManifest decodes and validates manifest TOML.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	if m.Main == "" {
		m.Main = "init.lua"
	}
	for i := range m.Commands {
		if m.Commands[i].Function == "" {
			m.Commands[i].Function = m.Commands[i].Name
		}
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks required fields and formats.
func (m *Manifest) Validate() error {
	switch {
	case m.Name == "":
		return ErrMissingName
	case !namePattern.MatchString(m.Name):
		return fmt.Errorf("%w: %q", ErrInvalidName, m.Name)
	case m.Version == "":
		return ErrMissingVersion
	case !semverPattern.MatchString(m.Version):
		return fmt.Errorf("%w: %q", ErrInvalidVersion, m.Version)
	}
	clean := filepath.Clean(m.Main)
	if filepath.Ext(clean) != ".lua" || filepath.IsAbs(clean) || strings.HasPrefix(clean, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidMain, m.Main)
	}
	for _, c := range m.Commands {
		if c.Name == "" {
			return ErrInvalidCommand
		}
	}
	return nil
}

// Dir returns the plugin directory.
func (m *Manifest) Dir() string {
	return m.dir
}

// MainPath returns the entry script path.
func (m *Manifest) MainPath() string {
	return filepath.Join(m.dir, m.Main)
}
