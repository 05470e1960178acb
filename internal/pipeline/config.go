package pipeline

import (
	"fmt"
	"strings"

	"github.com/golang/geo/r3"

	"armbridge/internal/armmodel"
	"armbridge/internal/locomotion"
	"armbridge/internal/modes"
)

// Convention is the Euler convention a controller reports in.
type Convention string

const (
	Standard Convention = "standard"
	Device   Convention = "device"
)

// ControllerConfig describes one output controller.
type ControllerConfig struct {
	Name       string
	Side       armmodel.Side
	Convention Convention

	// ArmModel derives the position from orientation. When false the tracker
	// position is used: sample*PositionScale + PositionOffset.
	ArmModel       bool
	PositionScale  float64
	PositionOffset r3.Vector

	// ModeButtons feeds this controller's bitmask and roll to the mode machine.
	ModeButtons bool
	// Trackpad marks the controller whose trackpad drives Fly mode and is
	// passed through while in Default mode.
	Trackpad bool
}

// HeadConfig selects where the head position comes from.
type HeadConfig struct {
	Tracked bool
	Scale   float64
	Offset  r3.Vector
}

// Config is the full pipeline configuration.
type Config struct {
	Controllers []ControllerConfig
	Modes       []modes.Entry
	Head        HeadConfig
	Locomotion  locomotion.Config
}

// Preset names.
const (
	PresetSingle  = "single"
	PresetDual    = "dual"
	PresetDualArm = "dual_arm"
)

// trackerScale converts tracker centimeters to meters.
const trackerScale = 0.01

// Preset returns one of the built-in layouts:
//
//	single    native controller (right, trackpad) + motion controller (left, modes)
//	dual      two tracked motion controllers and a tracked head, no arm model
//	dual_arm  two motion controllers on the arm model, modes on the left one
func Preset(name string) (Config, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case PresetSingle, "":
		return Config{
			Controllers: []ControllerConfig{
				{Name: "native", Side: armmodel.Right, Convention: Standard, ArmModel: true, Trackpad: true},
				{Name: "psmove", Side: armmodel.Left, Convention: Device, ArmModel: true, ModeButtons: true},
			},
			Modes:      modes.DefaultList(),
			Locomotion: locomotion.DefaultConfig(),
		}, nil
	case PresetDual:
		hand := r3.Vector{Y: 0.3}
		return Config{
			Controllers: []ControllerConfig{
				{Name: "left", Side: armmodel.Left, Convention: Device, PositionScale: trackerScale, PositionOffset: hand},
				{Name: "right", Side: armmodel.Right, Convention: Device, PositionScale: trackerScale, PositionOffset: hand},
			},
			Head:       HeadConfig{Tracked: true, Scale: trackerScale, Offset: r3.Vector{Y: 0.1, Z: -0.1}},
			Locomotion: locomotion.DefaultConfig(),
		}, nil
	case PresetDualArm:
		return Config{
			Controllers: []ControllerConfig{
				{Name: "left", Side: armmodel.Left, Convention: Device, ArmModel: true, ModeButtons: true},
				{Name: "right", Side: armmodel.Right, Convention: Device, ArmModel: true},
			},
			Modes: []modes.Entry{
				{Mode: modes.Default, Label: "Default"},
				{Mode: modes.Arm, Label: "Arm Mode"},
			},
			Locomotion: locomotion.DefaultConfig(),
		}, nil
	default:
		return Config{}, fmt.Errorf("unknown preset %q", name)
	}
}

// Validate applies defaults and checks the layout.
func (c *Config) Validate() error {
	if len(c.Controllers) == 0 || len(c.Controllers) > 2 {
		return fmt.Errorf("pipeline: want 1 or 2 controllers, got %d", len(c.Controllers))
	}

	modeIdx, padIdx := -1, -1
	for i := range c.Controllers {
		cc := &c.Controllers[i]
		if cc.Name == "" {
			cc.Name = fmt.Sprintf("controller%d", i)
		}
		if cc.Convention == "" {
			cc.Convention = Standard
		}
		if cc.Convention != Standard && cc.Convention != Device {
			return fmt.Errorf("pipeline: controller %q: unknown convention %q", cc.Name, cc.Convention)
		}
		if cc.Side != armmodel.Left && cc.Side != armmodel.Right {
			return fmt.Errorf("pipeline: controller %q: side must be left or right", cc.Name)
		}
		if !cc.ArmModel && cc.PositionScale == 0 {
			cc.PositionScale = 1
		}
		if cc.ModeButtons {
			if modeIdx >= 0 {
				return fmt.Errorf("pipeline: only one controller may drive modes")
			}
			modeIdx = i
		}
		if cc.Trackpad {
			if padIdx >= 0 {
				return fmt.Errorf("pipeline: only one controller may own the trackpad")
			}
			padIdx = i
		}
	}
	if modeIdx >= 0 && modeIdx == padIdx {
		return fmt.Errorf("pipeline: controller %q cannot drive modes and own the trackpad", c.Controllers[modeIdx].Name)
	}

	if modeIdx >= 0 && len(c.Modes) == 0 {
		c.Modes = modes.DefaultList()
	}
	for _, e := range c.Modes {
		if e.Mode == modes.Fly && padIdx < 0 {
			return fmt.Errorf("pipeline: fly mode requires a trackpad controller")
		}
	}

	if c.Head.Tracked && c.Head.Scale == 0 {
		c.Head.Scale = 1
	}
	return c.Locomotion.Validate()
}
