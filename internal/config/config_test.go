package config

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// ============================================================================
// Defaults and validation
// ============================================================================

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
	if cfg.Editor.TabSize != 4 || !cfg.Editor.UseSpaces || cfg.Editor.WordWrap {
		t.Errorf("unexpected editor defaults: %+v", cfg.Editor)
	}
	if cfg.History.MaxUndoEntries != 1000 {
		t.Errorf("expected 1000 undo entries, got %d", cfg.History.MaxUndoEntries)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(*Config)
		field string
	}{
		{"tab too small", func(c *Config) { c.Editor.TabSize = 0 }, "editor.tab_size"},
		{"tab too large", func(c *Config) { c.Editor.TabSize = 17 }, "editor.tab_size"},
		{"negative delay", func(c *Config) { c.Editor.AutoSaveDelay.Duration = -time.Second }, "editor.auto_save_delay"},
		{"line ending", func(c *Config) { c.Editor.LineEnding = "cr" }, "editor.line_ending"},
		{"encoding", func(c *Config) { c.Editor.Encoding = "klingon" }, "editor.encoding"},
		{"undo entries", func(c *Config) { c.History.MaxUndoEntries = 0 }, "history.max_undo_entries"},
		{"coalesce idle", func(c *Config) { c.History.CoalesceIdle.Duration = -1 }, "history.coalesce_idle"},
		{"log level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.edit(&cfg)
			err := cfg.Validate()
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Field != tt.field {
				t.Errorf("expected field %s, got %s", tt.field, verr.Field)
			}
			if !errors.Is(err, ErrValidationFailed) {
				t.Error("expected ErrValidationFailed")
			}
		})
	}
}

func TestValidateCanonicalizesEncoding(t *testing.T) {
	cfg := Default()
	cfg.Editor.Encoding = "latin1"
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	if cfg.Editor.Encoding != "iso-8859-1" {
		t.Errorf("expected iso-8859-1, got %s", cfg.Editor.Encoding)
	}
}

func TestCloneIsDeep(t *testing.T) {
	cfg := Default()
	cfg.Keybindings["ctrl+s"] = "save"
	cfg.Plugins.Enabled = []string{"wordcount"}
	cfg.Plugins.Options = map[string]map[string]any{"autosave": {"delay": "1s"}}

	cp := cfg.Clone()
	cp.Keybindings["ctrl+s"] = "quit"
	cp.Plugins.Enabled[0] = "other"
	cp.Plugins.Options["autosave"]["delay"] = "5s"

	if cfg.Keybindings["ctrl+s"] != "save" || cfg.Plugins.Enabled[0] != "wordcount" || cfg.Plugins.Options["autosave"]["delay"] != "1s" {
		t.Error("clone shares state with the original")
	}
}

func TestPluginEnabled(t *testing.T) {
	cfg := Default()
	if !cfg.PluginEnabled("anything") {
		t.Error("an empty list enables every plugin")
	}
	cfg.Plugins.Enabled = []string{"wordcount"}
	if !cfg.PluginEnabled("wordcount") || cfg.PluginEnabled("autosave") {
		t.Error("expected only wordcount enabled")
	}
	if cfg.PluginOptions("missing") == nil {
		t.Error("options must never be nil")
	}
}

// ============================================================================
// File loading
// ============================================================================

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "quill.toml", `
[editor]
tab_size = 8
use_spaces = false
auto_save = true
auto_save_delay = "2s"
encoding = "latin1"

[history]
coalesce_idle = "250ms"

[plugins]
enabled = ["wordcount"]

[plugins.options.autosave]
delay = "3s"

[keybindings]
"ctrl+s" = "save"
`)
	cfg, err := LoadEnv(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Editor.TabSize != 8 || cfg.Editor.UseSpaces || !cfg.Editor.AutoSave {
		t.Errorf("editor section not applied: %+v", cfg.Editor)
	}
	if cfg.Editor.AutoSaveDelay.Duration != 2*time.Second {
		t.Errorf("expected 2s, got %v", cfg.Editor.AutoSaveDelay)
	}
	if cfg.Editor.Encoding != "iso-8859-1" {
		t.Errorf("expected canonical encoding, got %s", cfg.Editor.Encoding)
	}
	if cfg.History.CoalesceIdle.Duration != 250*time.Millisecond {
		t.Errorf("expected 250ms, got %v", cfg.History.CoalesceIdle)
	}
	if !cfg.Editor.ShowLineNumbers {
		t.Error("keys absent from the file keep their defaults")
	}
	if cfg.Keybindings["ctrl+s"] != "save" {
		t.Errorf("expected keybinding, got %v", cfg.Keybindings)
	}
	if !slices.Equal(cfg.Plugins.Enabled, []string{"wordcount"}) {
		t.Errorf("unexpected plugins %v", cfg.Plugins.Enabled)
	}
	if cfg.PluginOptions("autosave")["delay"] != "3s" {
		t.Errorf("unexpected plugin options %v", cfg.Plugins.Options)
	}
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "quill.yaml", `
editor:
  tab_size: 2
  word_wrap: true
  line_ending: crlf
history:
  max_undo_entries: 50
ui:
  theme: monokai
log:
  level: debug
`)
	cfg, err := LoadEnv(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Editor.TabSize != 2 || !cfg.Editor.WordWrap || cfg.Editor.LineEnding != "crlf" {
		t.Errorf("editor section not applied: %+v", cfg.Editor)
	}
	if cfg.History.MaxUndoEntries != 50 || cfg.UI.Theme != "monokai" || cfg.Log.Level != "debug" {
		t.Errorf("unexpected config %+v", cfg)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadEnv(filepath.Join(t.TempDir(), "nope.toml"), nil)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Editor.TabSize != Default().Editor.TabSize {
		t.Error("expected defaults")
	}
	if _, err := LoadEnv("", nil); err != nil {
		t.Errorf("empty path should load defaults, got %v", err)
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadEnv(writeFile(t, dir, "bad.toml", "[editor]\ntab_size = = 3\n"), nil)
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	if perr.Line != 2 {
		t.Errorf("expected line 2, got %d", perr.Line)
	}

	_, err = LoadEnv(writeFile(t, dir, "bad.yaml", "editor: [unclosed\n"), nil)
	if !errors.As(err, &perr) {
		t.Errorf("expected ParseError for yaml, got %v", err)
	}

	_, err = LoadEnv(writeFile(t, dir, "quill.ini", "x=1"), nil)
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}

	_, err = LoadEnv(writeFile(t, dir, "range.toml", "[editor]\ntab_size = 99\n"), nil)
	if !errors.Is(err, ErrValidationFailed) {
		t.Errorf("expected validation failure, got %v", err)
	}
}

func TestMarshalReloads(t *testing.T) {
	for _, format := range []Format{FormatTOML, FormatYAML} {
		t.Run(format.String(), func(t *testing.T) {
			cfg := Default()
			cfg.Editor.TabSize = 3
			cfg.History.CoalesceIdle = Duration{1500 * time.Millisecond}
			data, err := Marshal(cfg, format)
			if err != nil {
				t.Fatal(err)
			}
			got := Default()
			if err := Decode("mem", format, data, &got); err != nil {
				t.Fatalf("decode: %v\n%s", err, data)
			}
			if got.Editor.TabSize != 3 || got.History.CoalesceIdle != cfg.History.CoalesceIdle {
				t.Errorf("expected values to survive, got %+v", got)
			}
		})
	}
}

// ============================================================================
// Environment
// ============================================================================

func TestEnvOverridesFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "quill.toml", "[editor]\ntab_size = 8\n")
	env := []string{
		"QUILL_EDITOR_TAB_SIZE=2",
		"QUILL_EDITOR_WORD_WRAP=true",
		"QUILL_HISTORY_COALESCE_IDLE=750",
		"QUILL_EDITOR_AUTO_SAVE_DELAY=5s",
		"QUILL_PLUGINS_ENABLED=wordcount, autosave",
		"QUILL_UNKNOWN=1",
		"HOME=/root",
	}
	cfg, err := LoadEnv(path, env)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Editor.TabSize != 2 || !cfg.Editor.WordWrap {
		t.Errorf("env not applied: %+v", cfg.Editor)
	}
	if cfg.History.CoalesceIdle.Duration != 750*time.Millisecond {
		t.Errorf("bare integers are milliseconds, got %v", cfg.History.CoalesceIdle)
	}
	if cfg.Editor.AutoSaveDelay.Duration != 5*time.Second {
		t.Errorf("expected 5s, got %v", cfg.Editor.AutoSaveDelay)
	}
	if !slices.Equal(cfg.Plugins.Enabled, []string{"wordcount", "autosave"}) {
		t.Errorf("unexpected list %v", cfg.Plugins.Enabled)
	}
}

func TestEnvBadValue(t *testing.T) {
	_, err := LoadEnv("", []string{"QUILL_EDITOR_TAB_SIZE=wide"})
	var perr *ParseError
	if !errors.As(err, &perr) || perr.Path != "$QUILL_EDITOR_TAB_SIZE" {
		t.Errorf("expected ParseError naming the variable, got %v", err)
	}
}

func TestEnvBindingsFollowNaming(t *testing.T) {
	for name := range envBindings {
		if name[:len(EnvPrefix)] != EnvPrefix {
			t.Errorf("%s lacks the prefix", name)
		}
	}
}

// ============================================================================
// Watcher
// ============================================================================

func TestWatcherReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "quill.toml", "[editor]\ntab_size = 4\n")

	w, err := Watch(path, WithDebounce(10*time.Millisecond), WithEnviron(func() []string { return nil }))
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	changed := make(chan [2]int, 1)
	w.OnChange(func(old, cfg Config) {
		select {
		case changed <- [2]int{old.Editor.TabSize, cfg.Editor.TabSize}:
		default:
		}
	})

	writeFile(t, dir, "quill.toml", "[editor]\ntab_size = 6\n")

	select {
	case got := <-changed:
		if got != [2]int{4, 6} {
			t.Errorf("expected 4 -> 6, got %v", got)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
	if w.Current().Editor.TabSize != 6 {
		t.Errorf("expected current tab size 6, got %d", w.Current().Editor.TabSize)
	}
}

func TestWatcherKeepsConfigOnBadReload(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "quill.toml", "[editor]\ntab_size = 4\n")
	w, err := Watch(path, WithDebounce(time.Hour), WithEnviron(func() []string { return nil }))
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	writeFile(t, dir, "quill.toml", "[editor\n")
	if err := w.Reload(); err == nil {
		t.Fatal("expected reload error")
	}
	if w.Current().Editor.TabSize != 4 {
		t.Error("failed reload must keep the previous config")
	}
}

func TestWatcherHandlerPanic(t *testing.T) {
	path := writeFile(t, t.TempDir(), "quill.toml", "")
	w, err := Watch(path, WithDebounce(time.Hour), WithEnviron(func() []string { return nil }))
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	called := false
	w.OnChange(func(Config, Config) { panic("boom") })
	w.OnChange(func(Config, Config) { called = true })
	if err := w.Reload(); err != nil {
		t.Fatal(err)
	}
	if !called {
		t.Error("a panicking handler must not block later handlers")
	}
}

func TestWatcherClose(t *testing.T) {
	path := writeFile(t, t.TempDir(), "quill.toml", "")
	w, err := Watch(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second close should be a no-op, got %v", err)
	}
	if err := w.Reload(); !errors.Is(err, ErrWatcherClosed) {
		t.Errorf("expected ErrWatcherClosed, got %v", err)
	}
}
