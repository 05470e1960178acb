// Package pipeline runs one frame of the virtual arm: orientation conversion,
// mode update, wrist positions, fly locomotion and the output mapping written
// to the VR runtime.
//
// A Pipeline is owned by a single goroutine; frames must be delivered
// serially.
package pipeline

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"

	"armbridge/internal/armmodel"
	"armbridge/internal/buttons"
	"armbridge/internal/locomotion"
	"armbridge/internal/modes"
	"armbridge/internal/orient"
)

// Trackpad is the touch surface of a native controller.
type Trackpad struct {
	X, Y  float64
	Touch bool
	Click bool
}

// ControllerSample is one controller as read from the input layer.
type ControllerSample struct {
	Orientation orient.Euler // in the controller's configured convention
	Position    r3.Vector    // tracker position, when tracked
	Buttons     buttons.Mask
	Trigger     float64
	Trackpad    Trackpad
}

// HeadSample is the headset pose as read from the input layer.
type HeadSample struct {
	Position    r3.Vector
	Orientation orient.Euler
}

// Frame is one input sample.
type Frame struct {
	Head        HeadSample
	Controllers []ControllerSample
	// Recenter requests a locomotion reset independent of the trackpad.
	Recenter bool
}

// ControllerOutput is one controller as written to the VR runtime.
type ControllerOutput struct {
	Name        string
	Position    r3.Vector
	Orientation orient.Euler // standard convention
	Buttons     buttons.State
	Trigger     float64
	Trackpad    *Trackpad // set only while passed through
}

// Output is everything written to the VR runtime for one frame.
type Output struct {
	Controllers  []ControllerOutput
	HeadPosition r3.Vector
	Message      string

	Mode        modes.Mode
	Selected    string
	ForearmRoll float64
	Offset      r3.Vector
}

// Pipeline holds the per-session state: mode machine, locomotion offset and
// the status message.
type Pipeline struct {
	cfg Config

	machine *modes.Machine // nil without a mode controller
	modeIdx int
	padIdx  int
	loco    *locomotion.Integrator
	message string
	frames  uint64
}

// New validates cfg and returns a Pipeline in the session start state.
func New(cfg Config) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	p := &Pipeline{cfg: cfg, modeIdx: -1, padIdx: -1, loco: locomotion.New(cfg.Locomotion)}
	for i, cc := range cfg.Controllers {
		if cc.ModeButtons {
			p.modeIdx = i
		}
		if cc.Trackpad {
			p.padIdx = i
		}
	}
	if p.modeIdx >= 0 {
		m, err := modes.NewMachine(cfg.Modes)
		if err != nil {
			return nil, err
		}
		p.machine = m
	}
	return p, nil
}

// Config returns the validated configuration.
func (p *Pipeline) Config() Config { return p.cfg }

// Frames returns the number of frames processed.
func (p *Pipeline) Frames() uint64 { return p.frames }

// ModeState returns the mode machine state. ok is false when no controller
// drives modes.
func (p *Pipeline) ModeState() (st modes.State, ok bool) {
	if p.machine == nil {
		return modes.State{}, false
	}
	return p.machine.State(), true
}

// SetForearmRoll seeds the arm extension. It is a no-op without a mode
// controller.
func (p *Pipeline) SetForearmRoll(v float64) {
	if p.machine != nil {
		p.machine.SetForearmRoll(v)
	}
}

// Update runs one frame.
func (p *Pipeline) Update(f Frame) (Output, error) {
	if len(f.Controllers) != len(p.cfg.Controllers) {
		return Output{}, fmt.Errorf("pipeline: frame has %d controllers, want %d", len(f.Controllers), len(p.cfg.Controllers))
	}

	// 1. Everything downstream works in the standard convention.
	orientations := make([]orient.Euler, len(f.Controllers))
	for i, cs := range f.Controllers {
		if p.cfg.Controllers[i].Convention == Device {
			orientations[i] = orient.DeviceToStandard(cs.Orientation)
		} else {
			orientations[i] = cs.Orientation
		}
	}

	// 2. Modes and forearm roll.
	active := modes.Default
	forearmRoll := 0.0
	var tr modes.Transition
	if p.machine != nil {
		tr = p.machine.Update(f.Controllers[p.modeIdx].Buttons, orientations[p.modeIdx])
		active = tr.Active
		forearmRoll = p.machine.State().ForearmRoll
	}

	// 3. Locomotion.
	if active == modes.Fly && p.padIdx >= 0 {
		pad := f.Controllers[p.padIdx].Trackpad
		p.loco.Update(locomotion.Input{
			Orientation: orientations[p.padIdx],
			Axis:        pad.Y,
			Touch:       pad.Touch,
			Click:       pad.Click,
		})
	}
	if f.Recenter {
		p.loco.Reset()
	}
	offset := p.loco.Offset()

	// 4. Head and controller poses. Hands hang from the moved head.
	head := f.Head.Position
	if p.cfg.Head.Tracked {
		head = head.Mul(p.cfg.Head.Scale).Add(p.cfg.Head.Offset)
	}
	head = head.Add(offset)
	anchor := armmodel.Pose{Position: head, Orientation: f.Head.Orientation}

	out := Output{
		Controllers:  make([]ControllerOutput, len(f.Controllers)),
		HeadPosition: head,
		Mode:         active,
		ForearmRoll:  forearmRoll,
		Offset:       offset,
	}
	if p.machine != nil {
		out.Selected = p.machine.Selected().Label
	}

	for i, cs := range f.Controllers {
		cc := p.cfg.Controllers[i]
		co := ControllerOutput{
			Name:        cc.Name,
			Orientation: orientations[i],
			Trigger:     cs.Trigger,
		}
		if cc.ArmModel {
			co.Position = armmodel.WristPosition(orientations[i], cc.Side, forearmRoll, anchor)
		} else {
			co.Position = cs.Position.Mul(cc.PositionScale).Add(cc.PositionOffset).Add(offset)
		}

		passMove := !cc.Trackpad && (i != p.modeIdx || active == modes.Default)
		co.Buttons = buttons.Map(cs.Buttons, passMove)
		co.Buttons[buttons.IDTrigger] = cs.Trigger > 0

		if cc.Trackpad {
			inDefault := active == modes.Default
			co.Buttons[buttons.IDTrackpadTouch] = inDefault && cs.Trackpad.Touch
			co.Buttons[buttons.IDTrackpadClick] = inDefault && cs.Trackpad.Click
			if inDefault {
				pad := cs.Trackpad
				co.Trackpad = &pad
			}
		}
		out.Controllers[i] = co
	}

	// 5. Status message.
	p.updateMessage(tr, active, forearmRoll, f)
	out.Message = p.message

	p.frames++
	return out, nil
}

func (p *Pipeline) updateMessage(tr modes.Transition, active modes.Mode, forearmRoll float64, f Frame) {
	if p.machine == nil {
		return
	}
	if tr.CycleRising {
		p.message = "-> " + p.machine.Selected().Label
	} else if tr.CycleFalling {
		p.message = ""
	}
	switch active {
	case modes.Fly:
		p.message = labelFor(p.machine.List(), modes.Fly)
	case modes.Arm:
		p.message = fmt.Sprintf("Arm %.0f deg", forearmRoll*180/math.Pi)
	default:
		if f.Controllers[p.modeIdx].Buttons == 0 {
			p.message = ""
		}
	}
}

func labelFor(list []modes.Entry, m modes.Mode) string {
	for _, e := range list {
		if e.Mode == m {
			return e.Label
		}
	}
	return m.String()
}
