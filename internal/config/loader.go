package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "QUILL_"

// Format identifies a config file syntax.
type Format int

// Supported formats.
const (
	FormatTOML Format = iota
	FormatYAML
)

// String returns the format name.
func (f Format) String() string {
	switch f {
	case FormatTOML:
		return "toml"
	case FormatYAML:
		return "yaml"
	default:
		return "unknown"
	}
}

// FormatOf picks a format from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
}

// Load reads the file at path over the defaults, then applies QUILL_*
// environment overrides and validates. An empty path or a missing file
// yields the defaults.
func Load(path string) (Config, error) {
	return LoadEnv(path, os.Environ())
}

// LoadEnv is Load with an explicit environment in os.Environ form.
func LoadEnv(path string, environ []string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := decodeFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := ApplyEnv(&cfg, environ); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decodeFile(path string, cfg *Config) error {
	format, err := FormatOf(path)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading config file %s: %w", path, err)
	}
	return Decode(path, format, data, cfg)
}

// Decode parses data over cfg. Keys absent from data keep their current
// values. source names the input in errors.
func Decode(source string, format Format, data []byte, cfg *Config) error {
	switch format {
	case FormatTOML:
		if err := toml.Unmarshal(data, cfg); err != nil {
			perr := &ParseError{Path: source, Message: err.Error(), Err: err}
			var derr *toml.DecodeError
			if errors.As(err, &derr) {
				perr.Line, perr.Column = derr.Position()
			}
			return perr
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return &ParseError{Path: source, Message: err.Error(), Err: err}
		}
	default:
		return fmt.Errorf("%w: %v", ErrUnsupportedFormat, format)
	}
	return nil
}

// Marshal encodes cfg in the given format.
func Marshal(cfg Config, format Format) ([]byte, error) {
	switch format {
	case FormatTOML:
		return toml.Marshal(cfg)
	case FormatYAML:
		return yaml.Marshal(cfg)
	}
	return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, format)
}

// envSetter assigns a raw environment value to one setting.
type envSetter func(c *Config, val string) error

// envBindings maps QUILL_ variables to settings. The name is the setting
// path upper-cased with dots replaced by underscores.
var envBindings = map[string]envSetter{
	"QUILL_EDITOR_TAB_SIZE":               intVar(func(c *Config) *int { return &c.Editor.TabSize }),
	"QUILL_EDITOR_USE_SPACES":             boolVar(func(c *Config) *bool { return &c.Editor.UseSpaces }),
	"QUILL_EDITOR_SHOW_LINE_NUMBERS":      boolVar(func(c *Config) *bool { return &c.Editor.ShowLineNumbers }),
	"QUILL_EDITOR_HIGHLIGHT_CURRENT_LINE": boolVar(func(c *Config) *bool { return &c.Editor.HighlightCurrentLine }),
	"QUILL_EDITOR_WORD_WRAP":              boolVar(func(c *Config) *bool { return &c.Editor.WordWrap }),
	"QUILL_EDITOR_AUTO_SAVE":              boolVar(func(c *Config) *bool { return &c.Editor.AutoSave }),
	"QUILL_EDITOR_AUTO_SAVE_DELAY":        durationVar(func(c *Config) *Duration { return &c.Editor.AutoSaveDelay }),
	"QUILL_EDITOR_LINE_ENDING":            stringVar(func(c *Config) *string { return &c.Editor.LineEnding }),
	"QUILL_EDITOR_ENCODING":               stringVar(func(c *Config) *string { return &c.Editor.Encoding }),
	"QUILL_HISTORY_MAX_UNDO_ENTRIES":      intVar(func(c *Config) *int { return &c.History.MaxUndoEntries }),
	"QUILL_HISTORY_COALESCE_IDLE":         durationVar(func(c *Config) *Duration { return &c.History.CoalesceIdle }),
	"QUILL_UI_THEME":                      stringVar(func(c *Config) *string { return &c.UI.Theme }),
	"QUILL_UI_SHOW_STATUS_BAR":            boolVar(func(c *Config) *bool { return &c.UI.ShowStatusBar }),
	"QUILL_LOG_LEVEL":                     stringVar(func(c *Config) *string { return &c.Log.Level }),
	"QUILL_LOG_FILE":                      stringVar(func(c *Config) *string { return &c.Log.File }),
	"QUILL_PLUGINS_DIR":                   stringVar(func(c *Config) *string { return &c.Plugins.Dir }),
	"QUILL_PLUGINS_ENABLED": func(c *Config, val string) error {
		c.Plugins.Enabled = splitList(val)
		return nil
	},
}

// ApplyEnv applies QUILL_* overrides from environ. Unknown QUILL_
// variables are ignored. Empty values count as set.
func ApplyEnv(cfg *Config, environ []string) error {
	for _, kv := range environ {
		name, val, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, EnvPrefix) {
			continue
		}
		set, ok := envBindings[name]
		if !ok {
			continue
		}
		if err := set(cfg, val); err != nil {
			return &ParseError{Path: "$" + name, Message: err.Error(), Err: err}
		}
	}
	return nil
}

func intVar(field func(*Config) *int) envSetter {
	return func(c *Config, val string) error {
		n, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil {
			return err
		}
		*field(c) = n
		return nil
	}
}

func boolVar(field func(*Config) *bool) envSetter {
	return func(c *Config, val string) error {
		b, err := strconv.ParseBool(strings.TrimSpace(val))
		if err != nil {
			return err
		}
		*field(c) = b
		return nil
	}
}

func stringVar(field func(*Config) *string) envSetter {
	return func(c *Config, val string) error {
		*field(c) = val
		return nil
	}
}

func durationVar(field func(*Config) *Duration) envSetter {
	return func(c *Config, val string) error {
		val = strings.TrimSpace(val)
		// Bare integers are milliseconds.
		if n, err := strconv.Atoi(val); err == nil {
			*field(c) = Duration{time.Duration(n) * time.Millisecond}
			return nil
		}
		d, err := time.ParseDuration(val)
		if err != nil {
			return err
		}
		*field(c) = Duration{d}
		return nil
	}
}

func splitList(val string) []string {
	var out []string
	for part := range strings.SplitSeq(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
