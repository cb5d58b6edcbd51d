package cursor

import (
	"unicode"

	"github.com/dshills/quill/internal/engine/text"
)

// View is the read-only document interface motions need.
// Both text.Snapshot and *text.Store implement it.
type View interface {
	Bounds
	LineCount() int
	LineOf(offset int) int
	LineRange(line int) (text.Range, error)
	RuneAt(offset int) (rune, int)
	RuneBefore(offset int) (rune, int)
	GraphemeBefore(offset int) int
	GraphemeAfter(offset int) int
	DisplayColumn(offset, tabWidth int) (int, error)
	OffsetAtDisplayColumn(line, col, tabWidth int) (int, error)
}

// Motion identifies a cursor movement.
type Motion uint8

// Motions.
const (
	Left Motion = iota
	Right
	Up
	Down
	LineStart
	LineEnd
	DocStart
	DocEnd
	WordForward
	WordBackward
)

var motionNames = [...]string{
	Left:         "left",
	Right:        "right",
	Up:           "up",
	Down:         "down",
	LineStart:    "line-start",
	LineEnd:      "line-end",
	DocStart:     "doc-start",
	DocEnd:       "doc-end",
	WordForward:  "word-forward",
	WordBackward: "word-backward",
}

func (m Motion) String() string {
	if int(m) < len(motionNames) {
		return motionNames[m]
	}
	return "unknown"
}

// ParseMotion returns the motion with the given name.
func ParseMotion(name string) (Motion, bool) {
	for i, n := range motionNames {
		if n == name {
			return Motion(i), true
		}
	}
	return 0, false
}

// Vertical reports whether the motion keeps a sticky column.
func (m Motion) Vertical() bool {
	return m == Up || m == Down
}

// Move applies m to every cursor. With extend, anchors stay put and the
// selection grows; without it, selections collapse. A horizontal move
// without extend on a selection collapses to the selection edge in the
// direction of travel.
func (s *Set) Move(v View, m Motion, extend bool, tabWidth int) {
	goals := s.goals
	if !m.Vertical() || len(goals) != len(s.cursors) {
		goals = make([]int, len(s.cursors))
		for i, c := range s.cursors {
			goals[i] = -1
			if m.Vertical() {
				goals[i], _ = v.DisplayColumn(c.Position, tabWidth)
			}
		}
	}

	for i, c := range s.cursors {
		var pos int
		switch {
		case !extend && c.HasSelection() && m == Left:
			pos = c.Start()
		case !extend && c.HasSelection() && m == Right:
			pos = c.End()
		default:
			pos = target(v, m, c.Position, goals[i], tabWidth)
		}
		pos = Clamp(v, pos)
		if extend {
			s.cursors[i] = c.ExtendTo(pos)
		} else {
			s.cursors[i] = At(pos)
		}
	}

	s.goals = nil
	s.normalize()
	if m.Vertical() && len(goals) == len(s.cursors) {
		s.goals = goals
	}
}

func target(v View, m Motion, pos, goal, tabWidth int) int {
	switch m {
	case Left:
		return pos - v.GraphemeBefore(pos)
	case Right:
		return pos + v.GraphemeAfter(pos)
	case Up, Down:
		line := v.LineOf(pos)
		if m == Up {
			line--
		} else {
			line++
		}
		if line < 0 {
			return 0
		}
		if line >= v.LineCount() {
			return v.LenBytes()
		}
		off, err := v.OffsetAtDisplayColumn(line, goal, tabWidth)
		if err != nil {
			return pos
		}
		return off
	case LineStart:
		r, _ := v.LineRange(v.LineOf(pos))
		return r.Start
	case LineEnd:
		r, _ := v.LineRange(v.LineOf(pos))
		return r.End
	case DocStart:
		return 0
	case DocEnd:
		return v.LenBytes()
	case WordForward:
		return wordForward(v, pos)
	case WordBackward:
		return wordBackward(v, pos)
	}
	return pos
}

type charClass uint8

const (
	classSpace charClass = iota
	classWord
	classPunct
)

func classOf(r rune) charClass {
	switch {
	case unicode.IsSpace(r):
		return classSpace
	case r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r):
		return classWord
	}
	return classPunct
}

// wordForward moves to the start of the next word, crossing the rest of
// the current word and any whitespace.
func wordForward(v View, pos int) int {
	n := v.LenBytes()
	r, size := v.RuneAt(pos)
	if size == 0 {
		return pos
	}
	if cls := classOf(r); cls != classSpace {
		for pos < n {
			r, size = v.RuneAt(pos)
			if classOf(r) != cls {
				break
			}
			pos += size
		}
	}
	for pos < n {
		r, size = v.RuneAt(pos)
		if classOf(r) != classSpace {
			break
		}
		pos += size
	}
	return pos
}

// wordBackward moves to the start of the current or previous word.
func wordBackward(v View, pos int) int {
	for pos > 0 {
		r, size := v.RuneBefore(pos)
		if classOf(r) != classSpace {
			break
		}
		pos -= size
	}
	if pos == 0 {
		return 0
	}
	r, _ := v.RuneBefore(pos)
	cls := classOf(r)
	for pos > 0 {
		r, size := v.RuneBefore(pos)
		if classOf(r) != cls {
			break
		}
		pos -= size
	}
	return pos
}
