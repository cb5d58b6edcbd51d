package app

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dshills/quill/internal/engine"
)

// Execute implements input.Target. It runs the editor's own ':' commands
// and passes anything else to the plugin host.
func (app *Application) Execute(name string, args []string) error {
	if err := app.execute(name, args); err != nil {
		return &CommandError{Command: name, Err: err}
	}
	return nil
}

func (app *Application) execute(name string, args []string) error {
	doc := app.ws.Active()
	if doc == nil {
		return ErrNoActiveDocument
	}

	switch name {
	case "w", "write":
		return app.write(doc, args)
	case "wq", "x":
		if err := app.write(doc, args); err != nil {
			return err
		}
		return app.quit(false)
	case "wa", "wall":
		return app.writeAll()
	case "q", "quit":
		return app.quit(false)
	case "q!", "quit!":
		return app.quit(true)
	case "e", "edit":
		if len(args) == 0 {
			return fmt.Errorf("%w: file name", ErrMissingArgument)
		}
		opened, err := app.ws.Open(args[0])
		if err != nil {
			return err
		}
		app.setMessage(fmt.Sprintf("%q %d lines", app.ws.Name(opened), opened.LineCount()))
		return nil
	case "e!", "edit!":
		return app.ws.Reload(doc)
	case "enew":
		app.ws.NewScratch()
		return nil
	case "bn", "bnext":
		app.ws.Next()
		return nil
	case "bp", "bprev", "bprevious":
		app.ws.Prev()
		return nil
	case "bd", "bdelete", "bd!", "bdelete!":
		return app.closeBuffer(doc, strings.HasSuffix(name, "!"))
	case "undo":
		_, err := doc.Undo()
		return err
	case "redo":
		_, err := doc.Redo()
		return err
	case "ls", "buffers":
		app.setMessage(app.bufferList())
		return nil
	case "plugins":
		app.setMessage(strings.Join(app.host.Names(), ", "))
		return nil
	}
	return app.host.Run(name, doc, args)
}

func (app *Application) setMessage(msg string) {
	app.mu.Lock()
	app.message = msg
	app.mu.Unlock()
}

func (app *Application) write(doc *engine.Document, args []string) error {
	var err error
	if len(args) > 0 {
		err = app.ws.SaveAs(doc, args[0])
	} else {
		err = app.ws.Save(doc)
	}
	if err != nil {
		return err
	}
	app.setMessage(fmt.Sprintf("%q written", app.ws.Name(doc)))
	return nil
}

func (app *Application) writeAll() error {
	var errs []error
	for _, d := range app.ws.Modified() {
		if d.Path() == "" {
			continue
		}
		if err := app.ws.Save(d); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// quit stops the editor unless a document has unsaved changes.
func (app *Application) quit(force bool) error {
	if !force {
		if modified := app.ws.Modified(); len(modified) > 0 {
			return fmt.Errorf("%w: %s", ErrUnsavedChanges, app.ws.Name(modified[0]))
		}
	}
	app.Quit()
	return nil
}

// closeBuffer closes doc, leaving a scratch document when it was the last.
func (app *Application) closeBuffer(doc *engine.Document, force bool) error {
	if err := app.ws.Close(doc, force); err != nil {
		return err
	}
	app.mu.RLock()
	r := app.ui
	app.mu.RUnlock()
	if r != nil {
		r.Forget(doc)
	}
	if app.ws.Len() == 0 {
		app.ws.NewScratch()
	}
	return nil
}

func (app *Application) bufferList() string {
	active := app.ws.Active()
	var b strings.Builder
	for i, d := range app.ws.Documents() {
		if i > 0 {
			b.WriteString("  ")
		}
		mark := " "
		if d == active {
			mark = "%"
		}
		flag := ""
		if d.IsModified() {
			flag = " +"
		}
		fmt.Fprintf(&b, "%d%s%q%s", i+1, mark, app.ws.Name(d), flag)
	}
	return b.String()
}
