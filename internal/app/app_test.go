package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/dshills/quill/internal/event"
)

func noEnv() []string { return nil }

func newApp(t *testing.T, configText string, files ...string) *Application {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if configText != "" {
		if err := os.WriteFile(path, []byte(configText), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	app, err := New(Options{ConfigPath: path, Files: files, Environ: noEnv})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	t.Cleanup(func() { _ = app.Close() })
	return app
}

func typeKeys(app *Application, s string) {
	for _, r := range s {
		app.handleKey(tcell.NewEventKey(tcell.KeyRune, r, tcell.ModNone))
	}
}

func press(app *Application, k tcell.Key) {
	app.handleKey(tcell.NewEventKey(k, 0, tcell.ModNone))
}

func command(app *Application, line string) {
	typeKeys(app, ":"+line)
	press(app, tcell.KeyEnter)
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// ==========================================================================
// Startup
// ==========================================================================

func TestNewApplication(t *testing.T) {
	app := newApp(t, "")

	if app.watcher == nil {
		t.Error("expected the config file to be watched")
	}
	if app.Workspace().Len() != 1 || app.Document() == nil {
		t.Fatal("expected a scratch document")
	}
	names := app.Plugins().Names()
	for _, want := range []string{"wordcount", "trim-whitespace"} {
		if !slices.Contains(names, want) {
			t.Errorf("expected builtin %s, got %v", want, names)
		}
	}
	if slices.Contains(names, "autosave") {
		t.Error("autosave is off by default")
	}
	if app.IsRunning() {
		t.Error("expected IsRunning() to be false before Run()")
	}
}

func TestNewWithConfig(t *testing.T) {
	app := newApp(t, "[editor]\ntab_size = 2\nauto_save = true\n\n[plugins]\nenabled = [\"autosave\"]\n")

	if got := app.Config().Editor.TabSize; got != 2 {
		t.Errorf("expected tab size 2, got %d", got)
	}
	if got := app.Document().TabWidth(); got != 2 {
		t.Errorf("expected document tab width 2, got %d", got)
	}
	if names := app.Plugins().Names(); !slices.Equal(names, []string{"autosave"}) {
		t.Errorf("expected only autosave, got %v", names)
	}
}

func TestNewWithBadConfig(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.toml", "[editor]\ntab_size = 99\n")
	_, err := New(Options{ConfigPath: path, Environ: noEnv})
	var ie *InitError
	if !errors.As(err, &ie) || ie.Component != "config" {
		t.Fatalf("expected a config InitError, got %v", err)
	}
}

func TestEncodingOverride(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "latin.txt", "caf\xe9")
	app, err := New(Options{
		ConfigPath: filepath.Join(dir, "config.toml"),
		Files:      []string{path},
		Encoding:   "latin1",
		Environ:    noEnv,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer app.Close()

	if got := app.Document().Text(); got != "café" {
		t.Errorf("expected decoded latin1, got %q", got)
	}
}

// ==========================================================================
// Commands
// ==========================================================================

func TestEditSaveQuit(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "hello.txt", "hello\n")
	app := newApp(t, "", path)

	typeKeys(app, "A!")
	press(app, tcell.KeyEscape)
	command(app, "w")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "hello!\n" {
		t.Errorf("expected saved edit, got %q", data)
	}
	if !strings.Contains(app.Message(), "written") {
		t.Errorf("expected write message, got %q", app.Message())
	}

	command(app, "q")
	if !app.quitting.Load() {
		t.Error("expected quit after a clean :q")
	}
}

func TestQuitRefusesUnsaved(t *testing.T) {
	app := newApp(t, "")

	typeKeys(app, "ix")
	press(app, tcell.KeyEscape)
	command(app, "q")
	if app.quitting.Load() {
		t.Fatal(":q must not quit with unsaved changes")
	}
	if !strings.Contains(app.Message(), "unsaved changes") {
		t.Errorf("expected unsaved message, got %q", app.Message())
	}

	command(app, "q!")
	if !app.quitting.Load() {
		t.Error("expected :q! to quit")
	}
}

func TestWriteQuitAndSaveAs(t *testing.T) {
	dir := t.TempDir()
	app := newApp(t, "")
	target := filepath.Join(dir, "out.txt")

	typeKeys(app, "iabc")
	press(app, tcell.KeyEscape)
	command(app, "wq "+target)

	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "abc" {
		t.Errorf("expected abc, got %q", data)
	}
	if !app.quitting.Load() {
		t.Error("expected :wq to quit")
	}
}

func TestBufferCommands(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.txt", "a")
	b := writeFile(t, dir, "b.txt", "b")
	app := newApp(t, "", a)

	command(app, "e "+b)
	if app.Document().Path() != b {
		t.Fatalf("expected %s active, got %s", b, app.Document().Path())
	}
	command(app, "bn")
	if app.Document().Path() != a {
		t.Error(":bn should wrap to the first buffer")
	}
	command(app, "bp")
	if app.Document().Path() != b {
		t.Error(":bp should wrap to the last buffer")
	}

	command(app, "ls")
	if msg := app.Message(); !strings.Contains(msg, `"a.txt"`) || !strings.Contains(msg, `%"b.txt"`) {
		t.Errorf("unexpected buffer list %q", msg)
	}

	command(app, "bd")
	command(app, "bd")
	if app.Workspace().Len() != 1 || app.Document().Path() != "" {
		t.Error("closing the last buffer should leave a scratch document")
	}
}

func TestUndoRedoCommands(t *testing.T) {
	app := newApp(t, "")
	typeKeys(app, "ihi")
	press(app, tcell.KeyEscape)

	command(app, "undo")
	if app.Document().Text() != "" {
		t.Errorf("expected undo, got %q", app.Document().Text())
	}
	command(app, "redo")
	if app.Document().Text() != "hi" {
		t.Errorf("expected redo, got %q", app.Document().Text())
	}
}

func TestPluginCommand(t *testing.T) {
	app := newApp(t, "")
	typeKeys(app, "ione two")
	press(app, tcell.KeyEscape)

	command(app, "wordcount")
	if app.Message() != "2 words" {
		t.Errorf("expected word count, got %q", app.Message())
	}

	command(app, "nosuchcommand")
	if !strings.Contains(app.Message(), "nosuchcommand") {
		t.Errorf("expected error message, got %q", app.Message())
	}
}

func TestExecuteWithoutArgument(t *testing.T) {
	app := newApp(t, "")
	err := app.Execute("e", nil)
	var ce *CommandError
	if !errors.As(err, &ce) || ce.Command != "e" || !errors.Is(err, ErrMissingArgument) {
		t.Errorf("expected a CommandError wrapping ErrMissingArgument, got %v", err)
	}
}

// ==========================================================================
// Plugins and configuration
// ==========================================================================

func TestLuaPluginKeybinding(t *testing.T) {
	dir := t.TempDir()
	plugins := filepath.Join(dir, "plugins")
	writeFile(t, plugins, "stamp/plugin.toml", `name = "stamp"
version = "1.0.0"

[[commands]]
name = "stamp"

[keybindings]
"ctrl+t" = "stamp"
`)
	writeFile(t, plugins, "stamp/init.lua", `local quill = require("quill")
function stamp()
  quill.insert(0, "*")
end
`)
	app := newApp(t, "[plugins]\ndir = '"+plugins+"'\n")

	if _, ok := app.Plugins().Get("stamp"); !ok {
		t.Fatalf("expected the stamp plugin, got %v", app.Plugins().Names())
	}
	app.handleKey(tcell.NewEventKey(tcell.KeyCtrlT, 0, tcell.ModCtrl))
	if got := app.Document().Text(); got != "*" {
		t.Errorf("expected the plugin edit, got %q", got)
	}
}

func TestConfigReload(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.toml", "[editor]\ntab_size = 4\n")
	app, err := New(Options{ConfigPath: path, Environ: noEnv})
	if err != nil {
		t.Fatal(err)
	}
	defer app.Close()

	changed := make(chan struct{}, 4)
	if _, err := app.Bus().SubscribeFunc(event.TopicConfigChanged, func(context.Context, event.Event) error {
		changed <- struct{}{}
		return nil
	}); err != nil {
		t.Fatal(err)
	}

	writeFile(t, dir, "config.toml", "[editor]\ntab_size = 2\n")
	select {
	case <-changed:
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for config reload")
	}
	if got := app.Document().TabWidth(); got != 2 {
		t.Errorf("expected reloaded tab width 2, got %d", got)
	}
}

// ==========================================================================
// Event loop
// ==========================================================================

// startLoop runs app's event loop on s and waits until it is drawing.
func startLoop(t *testing.T, s tcell.SimulationScreen, files ...string) (*Application, <-chan error) {
	t.Helper()
	app, err := New(Options{
		ConfigPath: filepath.Join(t.TempDir(), "config.toml"),
		Files:      files,
		Screen:     s,
		Environ:    noEnv,
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = app.Close() })

	done := make(chan error, 1)
	go func() { done <- app.Run() }()

	deadline := time.Now().Add(2 * time.Second)
	for {
		app.mu.RLock()
		ready := app.ui != nil
		app.mu.RUnlock()
		if ready {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("timeout waiting for the event loop")
		}
		time.Sleep(5 * time.Millisecond)
	}
	return app, done
}

// quitLoop types :q! and waits for Run to return.
func quitLoop(t *testing.T, s tcell.SimulationScreen, done <-chan error) {
	t.Helper()
	s.InjectKey(tcell.KeyEscape, 0, tcell.ModNone)
	for _, r := range ":q!" {
		s.InjectKey(tcell.KeyRune, r, tcell.ModNone)
	}
	s.InjectKey(tcell.KeyEnter, 0, tcell.ModNone)

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for the event loop to quit")
	}
}

func TestRunLoop(t *testing.T) {
	s := tcell.NewSimulationScreen("UTF-8")
	app, done := startLoop(t, s)

	for _, r := range "ihi" {
		s.InjectKey(tcell.KeyRune, r, tcell.ModNone)
	}
	quitLoop(t, s, done)

	if got := app.Document().Text(); got != "hi" {
		t.Errorf("expected typed text, got %q", got)
	}
}

func TestRunLoopMouse(t *testing.T) {
	var b strings.Builder
	for i := range 100 {
		fmt.Fprintf(&b, "line %d\n", i)
	}
	path := writeFile(t, t.TempDir(), "lines.txt", b.String())
	s := tcell.NewSimulationScreen("UTF-8")
	app, done := startLoop(t, s, path)

	// Far right of the third row is the end of line 2.
	s.InjectMouse(79, 2, tcell.Button1, tcell.ModNone)
	s.InjectMouse(79, 2, tcell.ButtonNone, tcell.ModNone)
	deadline := time.Now().Add(2 * time.Second)
	for app.Document().Primary().Position != len("line 0\nline 1\nline 2") {
		if time.Now().After(deadline) {
			t.Fatalf("expected the click to place the cursor, at %d", app.Document().Primary().Position)
		}
		time.Sleep(5 * time.Millisecond)
	}

	s.InjectMouse(0, 0, tcell.WheelDown, tcell.ModNone)
	s.InjectMouse(0, 0, tcell.WheelDown, tcell.ModNone)
	s.InjectMouse(0, 0, tcell.WheelDown, tcell.ModNone)
	quitLoop(t, s, done)

	doc := app.Document()
	if doc.HasSelection() {
		t.Error("a click must not select")
	}
	if lc := doc.CursorLineCol(); lc.Line <= 2 {
		t.Errorf("expected the wheel to pull the cursor down, got line %d", lc.Line)
	}
}

func TestViewBeforeRun(t *testing.T) {
	app := newApp(t, "")
	doc := app.Document()
	if got := app.PageHeight(doc); got != 0 {
		t.Errorf("expected no page height without a screen, got %d", got)
	}
	if _, ok := app.OffsetAt(doc, 0, 0); ok {
		t.Error("expected no cell mapping without a screen")
	}
	if got := app.Scroll(doc, 5, 1); got != 1 {
		t.Errorf("expected the line back unchanged, got %d", got)
	}
}
