// Package buttons decodes the controller button bitmask delivered by the input
// layer and names the boolean buttons written to the VR runtime.
//
// Bit positions are the wire contract with the input layer:
//
//	bit0 application menu (square)
//	bit1 back (triangle)
//	bit2 grip (cross)
//	bit3 start (circle)
//	bit4 move
//	bit5 system (PS)
//	bit7 mode cycle (select)
package buttons

import (
	"fmt"
	"strings"
)

// Mask is a per-controller button bitmask.
type Mask uint32

const (
	ApplicationMenu Mask = 1 << 0
	Back            Mask = 1 << 1
	Grip            Mask = 1 << 2
	Start           Mask = 1 << 3
	Move            Mask = 1 << 4
	System          Mask = 1 << 5
	Cycle           Mask = 1 << 7
)

// Has reports whether every bit of b is set in m.
func (m Mask) Has(b Mask) bool { return m&b == b && b != 0 }

func (m Mask) ApplicationMenu() bool { return m.Has(ApplicationMenu) }
func (m Mask) Back() bool            { return m.Has(Back) }
func (m Mask) Grip() bool            { return m.Has(Grip) }
func (m Mask) Start() bool           { return m.Has(Start) }
func (m Mask) Move() bool            { return m.Has(Move) }
func (m Mask) System() bool          { return m.Has(System) }
func (m Mask) Cycle() bool           { return m.Has(Cycle) }

// Rising reports a 0→1 transition of b between prev and curr.
func Rising(prev, curr, b Mask) bool {
	return prev&b == 0 && curr&b != 0
}

// Falling reports a 1→0 transition of b between prev and curr.
func Falling(prev, curr, b Mask) bool {
	return prev&b != 0 && curr&b == 0
}

// Edges pairs the previous and current frame bitmask.
type Edges struct {
	Prev Mask
	Curr Mask
}

func (e Edges) Rising(b Mask) bool  { return Rising(e.Prev, e.Curr, b) }
func (e Edges) Falling(b Mask) bool { return Falling(e.Prev, e.Curr, b) }

// ID names a boolean button in the VR runtime output.
type ID string

const (
	IDTrigger         ID = "trigger"
	IDApplicationMenu ID = "application_menu"
	IDBack            ID = "back"
	IDGrip            ID = "grip"
	IDStart           ID = "start"
	IDTrackpadClick   ID = "trackpad_click"
	IDTrackpadTouch   ID = "trackpad_touch"
	IDSystem          ID = "system"
)

// State is the named boolean button state of one output controller.
type State map[ID]bool

// Map translates the bitmask into named output buttons. The move bit is
// reported as trackpad_click only when includeMove is set; callers clear it
// while the move button is bound to a locomotion or arm mode.
func Map(m Mask, includeMove bool) State {
	s := State{
		IDApplicationMenu: m.ApplicationMenu(),
		IDBack:            m.Back(),
		IDGrip:            m.Grip(),
		IDStart:           m.Start(),
		IDSystem:          m.System(),
	}
	if includeMove {
		s[IDTrackpadClick] = m.Move()
	}
	return s
}

var maskNames = map[string]Mask{
	"application_menu": ApplicationMenu,
	"back":             Back,
	"grip":             Grip,
	"start":            Start,
	"move":             Move,
	"system":           System,
	"cycle":            Cycle,
}

// ParseMask builds a mask from bit names ("move", "cycle", ...).
func ParseMask(names []string) (Mask, error) {
	var m Mask
	for _, n := range names {
		b, ok := maskNames[strings.ToLower(strings.TrimSpace(n))]
		if !ok {
			return 0, fmt.Errorf("unknown button %q", n)
		}
		m |= b
	}
	return m, nil
}
