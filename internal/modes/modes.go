// Package modes implements the single-button mode selector that switches the
// motion controller between plain buttons, fly locomotion and forearm
// extension.
//
// The cycle button picks the selected mode on its rising edge. The selected
// mode is only live while the hold (move) button is down; releasing it drops
// straight back to Default.
package modes

import (
	"fmt"
	"math"
	"strings"

	"armbridge/internal/buttons"
	"armbridge/internal/orient"
)

// Mode is an input behavior of the mode controller.
type Mode int

const (
	Default Mode = iota
	Fly
	Arm
)

func (m Mode) String() string {
	switch m {
	case Default:
		return "default"
	case Fly:
		return "fly"
	case Arm:
		return "arm"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode accepts the String form of a Mode.
func ParseMode(v string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "default":
		return Default, nil
	case "fly":
		return Fly, nil
	case "arm":
		return Arm, nil
	default:
		return 0, fmt.Errorf("unknown mode %q", v)
	}
}

// Entry is one slot of the cycle list.
type Entry struct {
	Mode  Mode
	Label string
}

// DefaultList is the stock cycle order.
func DefaultList() []Entry {
	return []Entry{
		{Mode: Default, Label: "Default"},
		{Mode: Fly, Label: "Fly Mode"},
		{Mode: Arm, Label: "Arm Mode"},
	}
}

// MaxForearmRoll bounds State.ForearmRoll.
const MaxForearmRoll = math.Pi / 2

// State is the per-session mode and forearm state. The zero value is the
// session start state.
type State struct {
	Active   Mode
	Selected int // index into the cycle list

	ForearmRoll            float64
	ForearmRollAtModeEntry float64
	RollAtModeEntry        float64

	PreviousButtons buttons.Mask
}

// Transition describes what one Update did.
type Transition struct {
	Edges        buttons.Edges
	CycleRising  bool
	CycleFalling bool
	Previous     Mode
	Active       Mode
	ArmEntered   bool
}

// Machine owns State and advances it once per frame. It is not safe for
// concurrent use.
type Machine struct {
	list  []Entry
	state State
}

// NewMachine validates the cycle list and returns a Machine in the session
// start state.
func NewMachine(list []Entry) (*Machine, error) {
	if len(list) == 0 {
		return nil, fmt.Errorf("modes: cycle list is empty")
	}
	for i, e := range list {
		switch e.Mode {
		case Default, Fly, Arm:
		default:
			return nil, fmt.Errorf("modes: entry %d has unknown mode %d", i, int(e.Mode))
		}
	}
	cp := append([]Entry(nil), list...)
	return &Machine{list: cp}, nil
}

// State returns a copy of the current state.
func (m *Machine) State() State { return m.state }

// SetForearmRoll overrides the forearm roll, clamped to [0, π/2].
func (m *Machine) SetForearmRoll(v float64) {
	m.state.ForearmRoll = clampRoll(v)
}

// List returns the cycle list.
func (m *Machine) List() []Entry { return append([]Entry(nil), m.list...) }

// Selected returns the cycle list entry picked by the cycle button.
func (m *Machine) Selected() Entry { return m.list[m.state.Selected] }

// Update consumes this frame's button bitmask and the (standard convention)
// orientation of the mode controller.
func (m *Machine) Update(curr buttons.Mask, orientation orient.Euler) Transition {
	s := &m.state
	tr := Transition{
		Edges:    buttons.Edges{Prev: s.PreviousButtons, Curr: curr},
		Previous: s.Active,
	}

	if curr.Move() {
		s.Active = m.list[s.Selected].Mode
	} else {
		s.Active = Default
	}

	if s.Active == Arm {
		roll := orient.NormalizedRoll(orientation)
		if tr.Previous != Arm {
			// Anchor roll deltas to the wrist pose at entry.
			s.RollAtModeEntry = roll
			s.ForearmRollAtModeEntry = s.ForearmRoll
			tr.ArmEntered = true
		}
		s.ForearmRoll = clampRoll(s.ForearmRollAtModeEntry + (roll - s.RollAtModeEntry))
	}

	if tr.Edges.Rising(buttons.Cycle) {
		s.Selected++
		if s.Selected >= len(m.list) {
			s.Selected = 0
		}
		tr.CycleRising = true
	} else if tr.Edges.Falling(buttons.Cycle) {
		tr.CycleFalling = true
	}

	s.PreviousButtons = curr
	tr.Active = s.Active
	return tr
}

func clampRoll(v float64) float64 {
	if v > MaxForearmRoll {
		return MaxForearmRoll
	}
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	return v
}
