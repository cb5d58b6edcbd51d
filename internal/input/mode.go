// Package input turns terminal key events into editor actions.
//
// The Handler is a small Vim-like mode machine. Normal mode interprets
// keys as motions and operators, insert mode types text, visual mode
// extends selections and command mode reads a ':' command or '/' search
// line. Leaving insert mode closes the undo coalescing window, so each
// insert session undoes as a unit.
package input

// Mode is an input mode.
type Mode uint8

// Modes.
const (
	ModeNormal Mode = iota
	ModeInsert
	ModeVisual
	ModeCommand
)

var modeNames = [...]string{
	ModeNormal:  "normal",
	ModeInsert:  "insert",
	ModeVisual:  "visual",
	ModeCommand: "command",
}

func (m Mode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return "unknown"
}

// Label is the status bar form of the mode.
func (m Mode) Label() string {
	switch m {
	case ModeInsert:
		return "INSERT"
	case ModeVisual:
		return "VISUAL"
	case ModeCommand:
		return "COMMAND"
	}
	return "NORMAL"
}
