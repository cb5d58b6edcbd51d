package input

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/gdamore/tcell/v2"
)

// Key parse errors.
var (
	ErrEmptySpec   = errors.New("empty key specification")
	ErrInvalidSpec = errors.New("invalid key specification")
)

// Key is a normalized key press. It is comparable and used as a map key.
//
// Characters have Code tcell.KeyRune and never carry ModShift, since the
// shift is already part of the rune. Control letters are reported as the
// lowercase rune with ModCtrl.
type Key struct {
	Code tcell.Key
	Rune rune
	Mod  tcell.ModMask
}

// Rune returns the key for a plain character.
func Rune(r rune) Key {
	return Key{Code: tcell.KeyRune, Rune: r}
}

// Special returns the key for a non-character key.
func Special(code tcell.Key, mod tcell.ModMask) Key {
	return Key{Code: code, Mod: mod}
}

// Ctrl returns the key for ctrl plus a letter.
func Ctrl(r rune) Key {
	return Key{Code: tcell.KeyRune, Rune: unicode.ToLower(r), Mod: tcell.ModCtrl}
}

// FromEvent normalizes a terminal key event.
func FromEvent(ev *tcell.EventKey) Key {
	code, mod := ev.Key(), ev.Modifiers()
	switch {
	case code == tcell.KeyRune && mod&tcell.ModCtrl != 0:
		return Key{Code: tcell.KeyRune, Rune: unicode.ToLower(ev.Rune()), Mod: mod &^ tcell.ModShift}
	case code == tcell.KeyRune:
		return Key{Code: tcell.KeyRune, Rune: ev.Rune(), Mod: mod &^ tcell.ModShift}
	case code == tcell.KeyBackspace2:
		return Key{Code: tcell.KeyBackspace, Mod: mod &^ tcell.ModCtrl}
	case code == tcell.KeyBackspace || code == tcell.KeyTab || code == tcell.KeyEnter:
		return Key{Code: code, Mod: mod &^ tcell.ModCtrl}
	case code >= tcell.KeyCtrlA && code <= tcell.KeyCtrlZ:
		return Ctrl(rune('a' + code - tcell.KeyCtrlA))
	}
	return Key{Code: code, Mod: mod}
}

// IsChar reports whether the key inserts a printable character.
func (k Key) IsChar() bool {
	return k.Code == tcell.KeyRune && k.Mod&(tcell.ModCtrl|tcell.ModAlt|tcell.ModMeta) == 0 && unicode.IsPrint(k.Rune)
}

var keyNames = map[string]tcell.Key{
	"enter":     tcell.KeyEnter,
	"cr":        tcell.KeyEnter,
	"return":    tcell.KeyEnter,
	"esc":       tcell.KeyEscape,
	"escape":    tcell.KeyEscape,
	"tab":       tcell.KeyTab,
	"backspace": tcell.KeyBackspace,
	"bs":        tcell.KeyBackspace,
	"delete":    tcell.KeyDelete,
	"del":       tcell.KeyDelete,
	"insert":    tcell.KeyInsert,
	"ins":       tcell.KeyInsert,
	"home":      tcell.KeyHome,
	"end":       tcell.KeyEnd,
	"pageup":    tcell.KeyPgUp,
	"pgup":      tcell.KeyPgUp,
	"pagedown":  tcell.KeyPgDn,
	"pgdn":      tcell.KeyPgDn,
	"up":        tcell.KeyUp,
	"down":      tcell.KeyDown,
	"left":      tcell.KeyLeft,
	"right":     tcell.KeyRight,
}

var modNames = map[string]tcell.ModMask{
	"ctrl":    tcell.ModCtrl,
	"control": tcell.ModCtrl,
	"c":       tcell.ModCtrl,
	"alt":     tcell.ModAlt,
	"a":       tcell.ModAlt,
	"meta":    tcell.ModMeta,
	"cmd":     tcell.ModMeta,
	"m":       tcell.ModMeta,
	"shift":   tcell.ModShift,
	"s":       tcell.ModShift,
}

// ParseKey parses a key specification.
//
// Supported forms:
//   - a single character: "x", "G", ":"
//   - key names: "enter", "esc", "f5", "space"
//   - modifiers joined with '+': "ctrl+s", "alt+shift+left"
//   - Vim notation: "<C-s>", "<CR>", "<Esc>"
func ParseKey(spec string) (Key, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return Key{}, ErrEmptySpec
	}
	if utf8.RuneCountInString(spec) == 1 {
		r, _ := utf8.DecodeRuneInString(spec)
		return Rune(r), nil
	}

	var parts []string
	if strings.HasPrefix(spec, "<") && strings.HasSuffix(spec, ">") {
		parts = splitMods(spec[1:len(spec)-1], "-")
	} else {
		parts = splitMods(spec, "+")
	}

	var mod tcell.ModMask
	for _, p := range parts[:len(parts)-1] {
		m, ok := modNames[strings.ToLower(strings.TrimSpace(p))]
		if !ok {
			return Key{}, fmt.Errorf("%w: unknown modifier %q in %q", ErrInvalidSpec, p, spec)
		}
		mod |= m
	}
	return parseBase(spec, strings.TrimSpace(parts[len(parts)-1]), mod)
}

// splitMods splits on sep but keeps a trailing separator as the key, so
// "ctrl++" and "<C-->" name the separator itself.
func splitMods(s, sep string) []string {
	if strings.HasSuffix(s, sep+sep) {
		return append(strings.Split(strings.TrimSuffix(s, sep+sep), sep), sep)
	}
	return strings.Split(s, sep)
}

func parseBase(spec, base string, mod tcell.ModMask) (Key, error) {
	if base == "" {
		return Key{}, fmt.Errorf("%w: %q", ErrInvalidSpec, spec)
	}
	if utf8.RuneCountInString(base) == 1 {
		r, _ := utf8.DecodeRuneInString(base)
		if mod&tcell.ModShift != 0 {
			r = unicode.ToUpper(r)
		}
		if mod&tcell.ModCtrl != 0 {
			r = unicode.ToLower(r)
		}
		return Key{Code: tcell.KeyRune, Rune: r, Mod: mod &^ tcell.ModShift}, nil
	}

	lower := strings.ToLower(base)
	if lower == "space" {
		return Key{Code: tcell.KeyRune, Rune: ' ', Mod: mod &^ tcell.ModShift}, nil
	}
	if code, ok := keyNames[lower]; ok {
		return Key{Code: code, Mod: mod}, nil
	}
	if n, err := strconv.Atoi(strings.TrimPrefix(lower, "f")); err == nil && lower[0] == 'f' && n >= 1 && n <= 12 {
		return Key{Code: tcell.KeyF1 + tcell.Key(n-1), Mod: mod}, nil
	}
	return Key{}, fmt.Errorf("%w: unknown key %q", ErrInvalidSpec, base)
}

// String returns the canonical '+' form, which ParseKey accepts.
func (k Key) String() string {
	var b strings.Builder
	for _, m := range []struct {
		mask tcell.ModMask
		name string
	}{
		{tcell.ModCtrl, "ctrl"},
		{tcell.ModAlt, "alt"},
		{tcell.ModMeta, "meta"},
		{tcell.ModShift, "shift"},
	} {
		if k.Mod&m.mask != 0 {
			b.WriteString(m.name)
			b.WriteByte('+')
		}
	}
	switch {
	case k.Code == tcell.KeyRune && k.Rune == ' ':
		b.WriteString("space")
	case k.Code == tcell.KeyRune:
		b.WriteRune(k.Rune)
	case k.Code >= tcell.KeyF1 && k.Code <= tcell.KeyF12:
		fmt.Fprintf(&b, "f%d", k.Code-tcell.KeyF1+1)
	default:
		b.WriteString(codeName(k.Code))
	}
	return b.String()
}

var canonicalNames = map[tcell.Key]string{
	tcell.KeyEnter:     "enter",
	tcell.KeyEscape:    "esc",
	tcell.KeyTab:       "tab",
	tcell.KeyBackspace: "backspace",
	tcell.KeyDelete:    "delete",
	tcell.KeyInsert:    "insert",
	tcell.KeyHome:      "home",
	tcell.KeyEnd:       "end",
	tcell.KeyPgUp:      "pageup",
	tcell.KeyPgDn:      "pagedown",
	tcell.KeyUp:        "up",
	tcell.KeyDown:      "down",
	tcell.KeyLeft:      "left",
	tcell.KeyRight:     "right",
}

func codeName(code tcell.Key) string {
	if name, ok := canonicalNames[code]; ok {
		return name
	}
	return fmt.Sprintf("key(%d)", code)
}
