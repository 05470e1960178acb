// Package sim drives the pipeline from scripted controller motion for bench
// testing without hardware.
package sim

import (
	"fmt"
	"math"
	"os"
	"sort"
	"time"

	"github.com/golang/geo/r3"
	"gopkg.in/yaml.v3"

	"armbridge/internal/buttons"
	"armbridge/internal/orient"
	"armbridge/internal/pipeline"
)

// ScenarioScript is a deterministic scripted session.
//
// Time is expressed as Go duration strings. If Duration is zero it is derived
// from the latest keyframe.
//
//	version: 1
//	duration: 6s
//	head:
//	  keyframes:
//	    - t: 0s
//	      pos: [0, 160, 0]
//	controllers:
//	  - keyframes:
//	      - t: 0s
//	        ypr_deg: [0, 0, 0]
//	      - t: 1s
//	        buttons: [cycle]
//	      - t: 2s
//	        ypr_deg: [0, 45, 0]
//	        buttons: [move]
//	        trackpad: {y: 0.8, touch: true}
//
// Angles and positions are interpolated (angles along the shortest arc);
// buttons, trackpad touch, click and recenter hold the value of the last
// keyframe at or before t. Orientations are in the controller's own convention.
type ScenarioScript struct {
	Version     int                  `yaml:"version"`
	Duration    time.Duration        `yaml:"duration"`
	Head        ScenarioTrack        `yaml:"head"`
	Controllers []ScenarioController `yaml:"controllers"`
}

type ScenarioTrack struct {
	Keyframes []PoseKeyframe `yaml:"keyframes"`
}

type PoseKeyframe struct {
	T      time.Duration `yaml:"t"`
	Pos    [3]float64    `yaml:"pos"`
	YPRDeg [3]float64    `yaml:"ypr_deg"`
}

type ScenarioController struct {
	Keyframes []ControllerKeyframe `yaml:"keyframes"`
}

type ControllerKeyframe struct {
	T        time.Duration    `yaml:"t"`
	Pos      [3]float64       `yaml:"pos"`
	YPRDeg   [3]float64       `yaml:"ypr_deg"`
	Buttons  []string         `yaml:"buttons"`
	Trigger  float64          `yaml:"trigger"`
	Trackpad TrackpadKeyframe `yaml:"trackpad"`
	Recenter bool             `yaml:"recenter"`

	mask buttons.Mask
}

type TrackpadKeyframe struct {
	X     float64 `yaml:"x"`
	Y     float64 `yaml:"y"`
	Touch bool    `yaml:"touch"`
	Click bool    `yaml:"click"`
}

// Scenario is the validated runtime form. Use StateAt to sample it.
type Scenario struct {
	script   ScenarioScript
	duration time.Duration
}

// LoadScenarioScript reads and unmarshals a YAML scenario script from path.
func LoadScenarioScript(path string) (ScenarioScript, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return ScenarioScript{}, err
	}
	return ParseScenarioScriptYAML(b)
}

// ParseScenarioScriptYAML parses a YAML scenario script.
func ParseScenarioScriptYAML(b []byte) (ScenarioScript, error) {
	var s ScenarioScript
	if err := yaml.Unmarshal(b, &s); err != nil {
		return ScenarioScript{}, err
	}
	return s, nil
}

// NewScenario validates script and returns a runtime Scenario.
func NewScenario(script ScenarioScript) (*Scenario, error) {
	if script.Version == 0 {
		script.Version = 1
	}
	if script.Version != 1 {
		return nil, fmt.Errorf("unsupported scenario version %d", script.Version)
	}
	if len(script.Controllers) == 0 {
		return nil, fmt.Errorf("controllers is required")
	}
	if err := validateKeyframes("head", script.Head.Keyframes, func(k PoseKeyframe) time.Duration { return k.T }); err != nil {
		return nil, err
	}

	// Copy so the caller's script is not mutated by the mask cache.
	ctls := make([]ScenarioController, len(script.Controllers))
	for i, c := range script.Controllers {
		name := fmt.Sprintf("controllers[%d]", i)
		if len(c.Keyframes) == 0 {
			return nil, fmt.Errorf("%s.keyframes is required", name)
		}
		if err := validateKeyframes(name, c.Keyframes, func(k ControllerKeyframe) time.Duration { return k.T }); err != nil {
			return nil, err
		}
		kfs := append([]ControllerKeyframe(nil), c.Keyframes...)
		for j := range kfs {
			m, err := buttons.ParseMask(kfs[j].Buttons)
			if err != nil {
				return nil, fmt.Errorf("%s.keyframes[%d].buttons: %w", name, j, err)
			}
			kfs[j].mask = m
		}
		ctls[i] = ScenarioController{Keyframes: kfs}
	}
	script.Controllers = ctls

	dur := script.Duration
	if dur <= 0 {
		dur = maxKeyframeTime(script)
	}
	if dur <= 0 {
		return nil, fmt.Errorf("duration is required (or derivable from keyframes)")
	}
	return &Scenario{script: script, duration: dur}, nil
}

// Duration returns the effective scenario duration.
func (s *Scenario) Duration() time.Duration {
	if s == nil {
		return 0
	}
	return s.duration
}

// StateAt samples the scenario as one input frame.
//
// If loop is true, elapsed wraps around Duration(). Otherwise elapsed is
// clamped to [0, Duration()].
func (s *Scenario) StateAt(elapsed time.Duration, loop bool) pipeline.Frame {
	if s == nil {
		return pipeline.Frame{}
	}
	if elapsed < 0 {
		elapsed = 0
	}
	if loop {
		elapsed = elapsed % s.duration
	} else if elapsed > s.duration {
		elapsed = s.duration
	}

	var f pipeline.Frame
	if kfs := s.script.Head.Keyframes; len(kfs) > 0 {
		k0, k1, alpha := selectSegment(kfs, func(k PoseKeyframe) time.Duration { return k.T }, elapsed)
		f.Head = pipeline.HeadSample{
			Position:    lerpVec(k0.Pos, k1.Pos, alpha),
			Orientation: lerpYPR(k0.YPRDeg, k1.YPRDeg, alpha),
		}
	}

	f.Controllers = make([]pipeline.ControllerSample, len(s.script.Controllers))
	for i, c := range s.script.Controllers {
		k0, k1, alpha := selectSegment(c.Keyframes, func(k ControllerKeyframe) time.Duration { return k.T }, elapsed)
		f.Controllers[i] = pipeline.ControllerSample{
			Orientation: lerpYPR(k0.YPRDeg, k1.YPRDeg, alpha),
			Position:    lerpVec(k0.Pos, k1.Pos, alpha),
			Buttons:     k0.mask,
			Trigger:     lerp(k0.Trigger, k1.Trigger, alpha),
			Trackpad: pipeline.Trackpad{
				X:     lerp(k0.Trackpad.X, k1.Trackpad.X, alpha),
				Y:     lerp(k0.Trackpad.Y, k1.Trackpad.Y, alpha),
				Touch: k0.Trackpad.Touch,
				Click: k0.Trackpad.Click,
			},
		}
		if k0.Recenter {
			f.Recenter = true
		}
	}
	return f
}

func validateKeyframes[K any](name string, kfs []K, at func(K) time.Duration) error {
	for i := range kfs {
		t := at(kfs[i])
		if t < 0 {
			return fmt.Errorf("%s.keyframes[%d].t must be >= 0", name, i)
		}
		if i > 0 && t < at(kfs[i-1]) {
			return fmt.Errorf("%s.keyframes must be sorted by t (index %d)", name, i)
		}
	}
	return nil
}

func maxKeyframeTime(s ScenarioScript) time.Duration {
	max := time.Duration(0)
	for _, kf := range s.Head.Keyframes {
		if kf.T > max {
			max = kf.T
		}
	}
	for _, c := range s.Controllers {
		for _, kf := range c.Keyframes {
			if kf.T > max {
				max = kf.T
			}
		}
	}
	return max
}

// selectSegment returns the keyframes bracketing t and the blend factor. The
// first keyframe of the pair is always the last one at or before t.
func selectSegment[K any](kfs []K, at func(K) time.Duration, t time.Duration) (K, K, float64) {
	if len(kfs) == 1 {
		return kfs[0], kfs[0], 0
	}
	idx := sort.Search(len(kfs), func(i int) bool { return at(kfs[i]) > t })
	if idx <= 0 {
		return kfs[0], kfs[0], 0
	}
	if idx >= len(kfs) {
		last := kfs[len(kfs)-1]
		return last, last, 0
	}
	k0 := kfs[idx-1]
	k1 := kfs[idx]
	dt := at(k1) - at(k0)
	if dt <= 0 {
		return k1, k1, 0
	}
	alpha := float64(t-at(k0)) / float64(dt)
	return k0, k1, math.Max(0, math.Min(1, alpha))
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

func lerpVec(a, b [3]float64, t float64) r3.Vector {
	return r3.Vector{X: lerp(a[0], b[0], t), Y: lerp(a[1], b[1], t), Z: lerp(a[2], b[2], t)}
}

func lerpYPR(a, b [3]float64, t float64) orient.Euler {
	return orient.Euler{
		Yaw:   lerpAngleDeg(a[0], b[0], t) * math.Pi / 180,
		Pitch: lerpAngleDeg(a[1], b[1], t) * math.Pi / 180,
		Roll:  lerpAngleDeg(a[2], b[2], t) * math.Pi / 180,
	}
}

// lerpAngleDeg interpolates along the shortest arc and returns a value in
// (-180, 180].
func lerpAngleDeg(a0, a1, t float64) float64 {
	delta := math.Mod(a1-a0, 360)
	if delta > 180 {
		delta -= 360
	} else if delta < -180 {
		delta += 360
	}
	return wrapDeg(a0 + delta*t)
}

func wrapDeg(x float64) float64 {
	x = math.Mod(x, 360)
	if x > 180 {
		x -= 360
	} else if x <= -180 {
		x += 360
	}
	return x
}
