package pipeline

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"armbridge/internal/armmodel"
	"armbridge/internal/buttons"
	"armbridge/internal/modes"
	"armbridge/internal/orient"
)

func newPipeline(t *testing.T, preset string) *Pipeline {
	t.Helper()
	cfg, err := Preset(preset)
	require.NoError(t, err)
	p, err := New(cfg)
	require.NoError(t, err)
	return p
}

func assertVec(t *testing.T, want, got r3.Vector) {
	t.Helper()
	assert.InDelta(t, want.X, got.X, 1e-9, "x")
	assert.InDelta(t, want.Y, got.Y, 1e-9, "y")
	assert.InDelta(t, want.Z, got.Z, 1e-9, "z")
}

// singleFrame builds a frame for the single preset: native controller first,
// motion controller second.
func singleFrame(native pipelineCtl, move pipelineCtl) Frame {
	return Frame{Controllers: []ControllerSample{ControllerSample(native), ControllerSample(move)}}
}

type pipelineCtl ControllerSample

func step(t *testing.T, p *Pipeline, f Frame) Output {
	t.Helper()
	out, err := p.Update(f)
	require.NoError(t, err)
	return out
}

// cycle presses and releases the motion controller's cycle button.
func cycle(t *testing.T, p *Pipeline) {
	t.Helper()
	step(t, p, singleFrame(pipelineCtl{}, pipelineCtl{Buttons: buttons.Cycle}))
	step(t, p, singleFrame(pipelineCtl{}, pipelineCtl{}))
}

func TestPipeline_NeutralPoses(t *testing.T) {
	p := newPipeline(t, PresetSingle)
	out := step(t, p, singleFrame(pipelineCtl{}, pipelineCtl{}))

	require.Len(t, out.Controllers, 2)
	assertVec(t, r3.Vector{X: 0.2, Y: -0.35, Z: -0.30}, out.Controllers[0].Position)
	assertVec(t, r3.Vector{X: -0.2, Y: -0.35, Z: -0.30}, out.Controllers[1].Position)
	assert.Equal(t, modes.Default, out.Mode)
	assert.Equal(t, "Default", out.Selected)
	assert.Equal(t, "", out.Message)
	assert.Equal(t, uint64(1), p.Frames())
}

func TestPipeline_DeviceOrientationConverted(t *testing.T) {
	p := newPipeline(t, PresetSingle)
	out := step(t, p, singleFrame(pipelineCtl{}, pipelineCtl{Orientation: orient.Euler{Roll: 0.4}}))

	got := out.Controllers[1].Orientation
	assert.InDelta(t, 0.4, got.Yaw, 1e-9)
	assert.InDelta(t, 0, got.Pitch, 1e-9)
	assert.InDelta(t, 0, got.Roll, 1e-9)

	want := armmodel.WristPosition(orient.Euler{Yaw: 0.4}, armmodel.Left, 0, armmodel.Pose{})
	assertVec(t, want, out.Controllers[1].Position)
}

func TestPipeline_ControllerCountMismatch(t *testing.T) {
	p := newPipeline(t, PresetSingle)
	_, err := p.Update(Frame{Controllers: make([]ControllerSample, 1)})
	assert.EqualError(t, err, "pipeline: frame has 1 controllers, want 2")
}

func TestPipeline_ButtonMapping(t *testing.T) {
	p := newPipeline(t, PresetSingle)
	out := step(t, p, singleFrame(
		pipelineCtl{Buttons: buttons.ApplicationMenu, Trigger: 1, Trackpad: Trackpad{X: 0.1, Y: -0.2, Touch: true}},
		pipelineCtl{Buttons: buttons.Back | buttons.Grip | buttons.Move | buttons.System, Trigger: 0.4},
	))

	native := out.Controllers[0]
	assert.True(t, native.Buttons[buttons.IDApplicationMenu])
	assert.True(t, native.Buttons[buttons.IDTrigger])
	assert.True(t, native.Buttons[buttons.IDTrackpadTouch])
	assert.False(t, native.Buttons[buttons.IDTrackpadClick])
	require.NotNil(t, native.Trackpad)
	assert.Equal(t, Trackpad{X: 0.1, Y: -0.2, Touch: true}, *native.Trackpad)

	move := out.Controllers[1]
	assert.InDelta(t, 0.4, move.Trigger, 0)
	assert.True(t, move.Buttons[buttons.IDTrigger])
	assert.True(t, move.Buttons[buttons.IDBack])
	assert.True(t, move.Buttons[buttons.IDGrip])
	assert.True(t, move.Buttons[buttons.IDSystem])
	assert.False(t, move.Buttons[buttons.IDStart])
	// Default mode selected: the move button is a trackpad click.
	assert.True(t, move.Buttons[buttons.IDTrackpadClick])
}

func TestPipeline_FlyModeLocomotion(t *testing.T) {
	p := newPipeline(t, PresetSingle)
	cycle(t, p) // Fly

	hold := pipelineCtl{Buttons: buttons.Move}
	pad := pipelineCtl{Trackpad: Trackpad{Y: 0.8, Touch: true}}

	out := step(t, p, singleFrame(pad, hold))
	assert.Equal(t, modes.Fly, out.Mode)
	assert.Equal(t, "Fly Mode", out.Message)
	assert.InDelta(t, 0.002, out.Offset.Norm(), 1e-12)
	assertVec(t, r3.Vector{Z: -0.002}, out.HeadPosition)

	// The move button no longer clicks and the trackpad is not passed through.
	assert.False(t, out.Controllers[1].Buttons[buttons.IDTrackpadClick])
	assert.False(t, out.Controllers[0].Buttons[buttons.IDTrackpadTouch])
	assert.Nil(t, out.Controllers[0].Trackpad)

	// Hands travel with the head.
	assertVec(t, r3.Vector{X: 0.2, Y: -0.35, Z: -0.302}, out.Controllers[0].Position)

	for i := 0; i < 9; i++ {
		out = step(t, p, singleFrame(pad, hold))
	}
	assert.InDelta(t, 0.02, out.Offset.Norm(), 1e-12)

	// Center click resets immediately.
	out = step(t, p, singleFrame(pipelineCtl{Trackpad: Trackpad{Y: 0.8, Touch: true, Click: true}}, hold))
	assert.Equal(t, r3.Vector{}, out.Offset)

	// Offset persists after leaving fly mode.
	step(t, p, singleFrame(pad, hold))
	out = step(t, p, singleFrame(pad, pipelineCtl{}))
	assert.Equal(t, modes.Default, out.Mode)
	assert.InDelta(t, 0.002, out.Offset.Norm(), 1e-12)
	assert.Equal(t, "", out.Message)
}

func TestPipeline_NoLocomotionOutsideFly(t *testing.T) {
	p := newPipeline(t, PresetSingle)
	out := step(t, p, singleFrame(pipelineCtl{Trackpad: Trackpad{Y: 1, Touch: true}}, pipelineCtl{Buttons: buttons.Move}))
	assert.Equal(t, modes.Default, out.Mode)
	assert.Equal(t, r3.Vector{}, out.Offset)
}

func TestPipeline_RecenterFlag(t *testing.T) {
	p := newPipeline(t, PresetSingle)
	cycle(t, p)
	pad := pipelineCtl{Trackpad: Trackpad{Y: 0.8, Touch: true}}
	for i := 0; i < 5; i++ {
		step(t, p, singleFrame(pad, pipelineCtl{Buttons: buttons.Move}))
	}
	f := singleFrame(pipelineCtl{}, pipelineCtl{})
	f.Recenter = true
	out := step(t, p, f)
	assert.Equal(t, r3.Vector{}, out.Offset)
}

func TestPipeline_ArmModeExtendsForearm(t *testing.T) {
	p := newPipeline(t, PresetSingle)
	cycle(t, p)
	cycle(t, p) // Arm

	// Device pitch is standard roll.
	hold := func(roll float64) pipelineCtl {
		return pipelineCtl{Buttons: buttons.Move, Orientation: orient.Euler{Pitch: roll}}
	}

	out := step(t, p, singleFrame(pipelineCtl{}, hold(0.1)))
	assert.Equal(t, modes.Arm, out.Mode)
	assert.InDelta(t, 0, out.ForearmRoll, 1e-9)
	assert.Equal(t, "Arm 0 deg", out.Message)

	out = step(t, p, singleFrame(pipelineCtl{}, hold(0.1+math.Pi/4)))
	assert.InDelta(t, math.Pi/4, out.ForearmRoll, 1e-9)
	assert.Equal(t, "Arm 45 deg", out.Message)

	// The native controller reaches further once the forearm is raised.
	want := armmodel.WristPosition(orient.Euler{}, armmodel.Right, math.Pi/4, armmodel.Pose{})
	assertVec(t, want, out.Controllers[0].Position)

	st, ok := p.ModeState()
	require.True(t, ok)
	assert.InDelta(t, 0.1, st.RollAtModeEntry, 1e-9)

	// Way past the limit clamps at 90 degrees.
	out = step(t, p, singleFrame(pipelineCtl{}, hold(3)))
	assert.InDelta(t, math.Pi/2, out.ForearmRoll, 1e-9)
	assert.Equal(t, "Arm 90 deg", out.Message)
}

func TestPipeline_CycleMessages(t *testing.T) {
	p := newPipeline(t, PresetSingle)

	out := step(t, p, singleFrame(pipelineCtl{}, pipelineCtl{Buttons: buttons.Cycle}))
	assert.Equal(t, "-> Fly Mode", out.Message)
	assert.Equal(t, "Fly Mode", out.Selected)

	out = step(t, p, singleFrame(pipelineCtl{}, pipelineCtl{Buttons: buttons.Cycle}))
	assert.Equal(t, "-> Fly Mode", out.Message)

	out = step(t, p, singleFrame(pipelineCtl{}, pipelineCtl{}))
	assert.Equal(t, "", out.Message)

	out = step(t, p, singleFrame(pipelineCtl{}, pipelineCtl{Buttons: buttons.Cycle}))
	assert.Equal(t, "-> Arm Mode", out.Message)
	out = step(t, p, singleFrame(pipelineCtl{}, pipelineCtl{Buttons: buttons.Cycle}))
	assert.Equal(t, "-> Arm Mode", out.Message)
	out = step(t, p, singleFrame(pipelineCtl{}, pipelineCtl{}))
	assert.Equal(t, "", out.Message)
	out = step(t, p, singleFrame(pipelineCtl{}, pipelineCtl{Buttons: buttons.Cycle}))
	assert.Equal(t, "-> Default", out.Message)
	assert.Equal(t, "Default", out.Selected)
}

func TestPipeline_DualTrackedPositions(t *testing.T) {
	p := newPipeline(t, PresetDual)
	f := Frame{
		Head: HeadSample{Position: r3.Vector{X: 10, Y: 150, Z: 20}},
		Controllers: []ControllerSample{
			{Position: r3.Vector{X: -30, Y: 100, Z: -40}, Buttons: buttons.Move},
			{Position: r3.Vector{X: 30, Y: 100, Z: -40}},
		},
	}
	out := step(t, p, f)

	assertVec(t, r3.Vector{X: 0.1, Y: 1.6, Z: 0.1}, out.HeadPosition)
	assertVec(t, r3.Vector{X: -0.3, Y: 1.3, Z: -0.4}, out.Controllers[0].Position)
	assertVec(t, r3.Vector{X: 0.3, Y: 1.3, Z: -0.4}, out.Controllers[1].Position)

	// No mode controller: move is always a trackpad click and there is no message.
	assert.True(t, out.Controllers[0].Buttons[buttons.IDTrackpadClick])
	assert.False(t, out.Controllers[1].Buttons[buttons.IDTrackpadClick])
	assert.Equal(t, "", out.Message)
	_, ok := p.ModeState()
	assert.False(t, ok)
}

func TestPipeline_DualArmSharesForearmRoll(t *testing.T) {
	p := newPipeline(t, PresetDualArm)
	two := func(left pipelineCtl) Frame {
		return Frame{Controllers: []ControllerSample{ControllerSample(left), {}}}
	}
	step(t, p, two(pipelineCtl{Buttons: buttons.Cycle}))
	step(t, p, two(pipelineCtl{}))
	step(t, p, two(pipelineCtl{Buttons: buttons.Move}))
	out := step(t, p, two(pipelineCtl{Buttons: buttons.Move, Orientation: orient.Euler{Pitch: 0.5}}))

	assert.Equal(t, modes.Arm, out.Mode)
	assert.InDelta(t, 0.5, out.ForearmRoll, 1e-9)
	want := armmodel.WristPosition(orient.Euler{}, armmodel.Right, 0.5, armmodel.Pose{})
	assertVec(t, want, out.Controllers[1].Position)
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
		want string
	}{
		{
			name: "NoControllers",
			cfg:  Config{},
			want: "pipeline: want 1 or 2 controllers, got 0",
		},
		{
			name: "BadSide",
			cfg:  Config{Controllers: []ControllerConfig{{Name: "a"}}},
			want: `pipeline: controller "a": side must be left or right`,
		},
		{
			name: "TwoModeControllers",
			cfg: Config{Controllers: []ControllerConfig{
				{Side: armmodel.Left, ModeButtons: true},
				{Side: armmodel.Right, ModeButtons: true},
			}},
			want: "pipeline: only one controller may drive modes",
		},
		{
			name: "FlyWithoutTrackpad",
			cfg:  Config{Controllers: []ControllerConfig{{Side: armmodel.Left, ModeButtons: true}}},
			want: "pipeline: fly mode requires a trackpad controller",
		},
		{
			name: "ModesAndTrackpadOnOneController",
			cfg:  Config{Controllers: []ControllerConfig{{Name: "x", Side: armmodel.Left, ModeButtons: true, Trackpad: true}}},
			want: `pipeline: controller "x" cannot drive modes and own the trackpad`,
		},
		{
			name: "BadConvention",
			cfg:  Config{Controllers: []ControllerConfig{{Name: "x", Side: armmodel.Left, Convention: "zyx"}}},
			want: `pipeline: controller "x": unknown convention "zyx"`,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := tc.cfg
			assert.EqualError(t, cfg.Validate(), tc.want)
		})
	}
}

func TestPreset_Unknown(t *testing.T) {
	_, err := Preset("triple")
	assert.EqualError(t, err, `unknown preset "triple"`)
}
