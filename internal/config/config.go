package config

import (
	"maps"
	"slices"
	"time"

	"github.com/dshills/quill/internal/engine/text"
)

// Config is the complete settings tree.
type Config struct {
	Editor      EditorConfig      `toml:"editor" yaml:"editor"`
	History     HistoryConfig     `toml:"history" yaml:"history"`
	UI          UIConfig          `toml:"ui" yaml:"ui"`
	Log         LogConfig         `toml:"log" yaml:"log"`
	Plugins     PluginsConfig     `toml:"plugins" yaml:"plugins"`
	Keybindings map[string]string `toml:"keybindings" yaml:"keybindings"`
}

// EditorConfig holds per-document editing behavior.
type EditorConfig struct {
	TabSize              int      `toml:"tab_size" yaml:"tab_size"`
	UseSpaces            bool     `toml:"use_spaces" yaml:"use_spaces"`
	ShowLineNumbers      bool     `toml:"show_line_numbers" yaml:"show_line_numbers"`
	HighlightCurrentLine bool     `toml:"highlight_current_line" yaml:"highlight_current_line"`
	WordWrap             bool     `toml:"word_wrap" yaml:"word_wrap"`
	AutoSave             bool     `toml:"auto_save" yaml:"auto_save"`
	AutoSaveDelay        Duration `toml:"auto_save_delay" yaml:"auto_save_delay"`
	// LineEnding is used for new files: "lf" or "crlf".
	LineEnding string `toml:"line_ending" yaml:"line_ending"`
	// Encoding is the fallback when a file carries no BOM.
	Encoding string `toml:"encoding" yaml:"encoding"`
}

// HistoryConfig controls undo/redo.
type HistoryConfig struct {
	MaxUndoEntries int `toml:"max_undo_entries" yaml:"max_undo_entries"`
	// CoalesceIdle ends a typing run after this long without edits.
	// Zero keeps runs open until the cursor moves or the mode changes.
	CoalesceIdle Duration `toml:"coalesce_idle" yaml:"coalesce_idle"`
}

// UIConfig controls the terminal front end.
type UIConfig struct {
	// Theme names a highlighting style.
	Theme         string `toml:"theme" yaml:"theme"`
	ShowStatusBar bool   `toml:"show_status_bar" yaml:"show_status_bar"`
}

// LogConfig controls the application logger.
type LogConfig struct {
	Level string `toml:"level" yaml:"level"`
	// File is the log destination. Empty logs to stderr.
	File string `toml:"file" yaml:"file"`
}

// PluginsConfig controls plugin loading.
type PluginsConfig struct {
	// Dir is scanned for Lua plugins, one per subdirectory.
	Dir string `toml:"dir" yaml:"dir"`
	// Enabled lists plugin names to start. Empty enables every builtin.
	Enabled []string `toml:"enabled" yaml:"enabled"`
	// Options holds free-form per-plugin settings keyed by plugin name.
	Options map[string]map[string]any `toml:"options" yaml:"options"`
}

// Duration is a time.Duration that reads and writes as "1s", "250ms".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Editor: EditorConfig{
			TabSize:              4,
			UseSpaces:            true,
			ShowLineNumbers:      true,
			HighlightCurrentLine: true,
			AutoSaveDelay:        Duration{time.Second},
			LineEnding:           "lf",
			Encoding:             text.UTF8,
		},
		History: HistoryConfig{
			MaxUndoEntries: 1000,
			CoalesceIdle:   Duration{time.Second},
		},
		UI: UIConfig{
			Theme:         "default",
			ShowStatusBar: true,
		},
		Log: LogConfig{
			Level: "info",
		},
		Keybindings: map[string]string{},
	}
}

// Clone returns a deep copy.
func (c Config) Clone() Config {
	out := c
	out.Keybindings = maps.Clone(c.Keybindings)
	out.Plugins.Enabled = slices.Clone(c.Plugins.Enabled)
	if c.Plugins.Options != nil {
		out.Plugins.Options = make(map[string]map[string]any, len(c.Plugins.Options))
		for k, v := range c.Plugins.Options {
			out.Plugins.Options[k] = maps.Clone(v)
		}
	}
	return out
}

// PluginEnabled reports whether the named plugin should start.
func (c Config) PluginEnabled(name string) bool {
	return len(c.Plugins.Enabled) == 0 || slices.Contains(c.Plugins.Enabled, name)
}

// PluginOptions returns the options table for a plugin, never nil.
func (c Config) PluginOptions(name string) map[string]any {
	if opts, ok := c.Plugins.Options[name]; ok && opts != nil {
		return opts
	}
	return map[string]any{}
}

// Validate checks ranges and enumerations. Encoding names are
// canonicalized in place.
func (c *Config) Validate() error {
	if c.Editor.TabSize < 1 || c.Editor.TabSize > 16 {
		return &ValidationError{Field: "editor.tab_size", Value: c.Editor.TabSize, Message: "must be between 1 and 16"}
	}
	if c.Editor.AutoSaveDelay.Duration < 0 {
		return &ValidationError{Field: "editor.auto_save_delay", Value: c.Editor.AutoSaveDelay, Message: "must not be negative"}
	}
	switch c.Editor.LineEnding {
	case "lf", "crlf":
	default:
		return &ValidationError{Field: "editor.line_ending", Value: c.Editor.LineEnding, Message: `must be "lf" or "crlf"`}
	}
	enc, err := text.CanonicalEncoding(c.Editor.Encoding)
	if err != nil {
		return &ValidationError{Field: "editor.encoding", Value: c.Editor.Encoding, Message: err.Error()}
	}
	c.Editor.Encoding = enc
	if c.History.MaxUndoEntries < 1 {
		return &ValidationError{Field: "history.max_undo_entries", Value: c.History.MaxUndoEntries, Message: "must be positive"}
	}
	if c.History.CoalesceIdle.Duration < 0 {
		return &ValidationError{Field: "history.coalesce_idle", Value: c.History.CoalesceIdle, Message: "must not be negative"}
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return &ValidationError{Field: "log.level", Value: c.Log.Level, Message: "must be debug, info, warn or error"}
	}
	return nil
}
