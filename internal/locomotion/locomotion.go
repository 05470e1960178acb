// Package locomotion accumulates the head position offset used to fly through
// the scene while Fly mode is active.
package locomotion

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"

	"armbridge/internal/orient"
)

// Forward is the controller's local forward axis.
var Forward = r3.Vector{Z: -1}

const (
	// DefaultStep is the distance flown per frame at a 60-ish Hz input rate.
	DefaultStep = 0.002
	// DefaultDeadZone is the trackpad axis magnitude that must be exceeded.
	DefaultDeadZone = 0.5
)

// Config tunes the integrator. Step is per frame, so it has to be retuned if
// the input rate changes.
type Config struct {
	Step     float64 `yaml:"step"`
	DeadZone float64 `yaml:"dead_zone"`
}

// DefaultConfig returns the stock tuning.
func DefaultConfig() Config {
	return Config{Step: DefaultStep, DeadZone: DefaultDeadZone}
}

// Validate fills zero fields with defaults and rejects negative ones.
func (c *Config) Validate() error {
	if c.Step == 0 {
		c.Step = DefaultStep
	}
	if c.DeadZone == 0 {
		c.DeadZone = DefaultDeadZone
	}
	if c.Step < 0 {
		return fmt.Errorf("locomotion step must be > 0")
	}
	if c.DeadZone < 0 || c.DeadZone >= 1 {
		return fmt.Errorf("locomotion dead_zone must be in [0, 1)")
	}
	return nil
}

// Input is one frame of the primary controller's trackpad.
type Input struct {
	Orientation orient.Euler // standard convention
	Axis        float64      // trackpad forward/back axis, [-1, 1]
	Touch       bool
	Click       bool
}

// Integrator owns the accumulated offset. The zero value is not usable; use
// New.
type Integrator struct {
	cfg    Config
	offset r3.Vector
}

// New returns an Integrator with a zero offset.
func New(cfg Config) *Integrator {
	return &Integrator{cfg: cfg}
}

// Offset returns the accumulated head offset.
func (it *Integrator) Offset() r3.Vector { return it.offset }

// Reset zeroes the offset.
func (it *Integrator) Reset() { it.offset = r3.Vector{} }

// Update advances the offset for one Fly-mode frame and returns it. A click
// resets the offset and wins over any step taken the same frame.
func (it *Integrator) Update(in Input) r3.Vector {
	if in.Touch && math.Abs(in.Axis) > it.cfg.DeadZone {
		dir := orient.RotateEuler(in.Orientation, Forward)
		it.offset = it.offset.Add(dir.Mul(sign(in.Axis) * it.cfg.Step))
	}
	if in.Click {
		it.Reset()
	}
	return it.offset
}

func sign(x float64) float64 {
	if x >= 0 {
		return 1
	}
	return -1
}
