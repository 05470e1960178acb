// Package input receives controller frames from the tracking bridge and turns
// them into pipeline frames.
//
// Every source carries the same JSON object, one per datagram or line:
//
//	{"head":{"pos":[x,y,z],"ori":[yaw,pitch,roll]},
//	 "controllers":[{"ori":[yaw,pitch,roll],"pos":[x,y,z],"buttons":144,
//	                 "trigger":0.5,"trackpad":{"x":0,"y":0.8,"touch":true,"click":false}}],
//	 "recenter":false}
//
// Angles are radians in the controller's own convention; positions are in
// tracker units.
package input

import (
	"encoding/json"
	"fmt"

	"github.com/golang/geo/r3"

	"armbridge/internal/buttons"
	"armbridge/internal/orient"
	"armbridge/internal/pipeline"
)

type wireFrame struct {
	Head        wireHead         `json:"head"`
	Controllers []wireController `json:"controllers"`
	Recenter    bool             `json:"recenter,omitempty"`
}

type wireHead struct {
	Pos [3]float64 `json:"pos"`
	Ori [3]float64 `json:"ori"`
}

type wireController struct {
	Ori      [3]float64    `json:"ori"`
	Pos      [3]float64    `json:"pos"`
	Buttons  uint32        `json:"buttons"`
	Trigger  float64       `json:"trigger"`
	Trackpad *wireTrackpad `json:"trackpad,omitempty"`
}

type wireTrackpad struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Touch bool    `json:"touch"`
	Click bool    `json:"click"`
}

// Decode parses one wire frame.
func Decode(raw []byte) (pipeline.Frame, error) {
	var w wireFrame
	if err := json.Unmarshal(raw, &w); err != nil {
		return pipeline.Frame{}, fmt.Errorf("decode frame: %w", err)
	}
	if len(w.Controllers) == 0 {
		return pipeline.Frame{}, fmt.Errorf("decode frame: no controllers")
	}

	f := pipeline.Frame{
		Head: pipeline.HeadSample{
			Position:    toVec(w.Head.Pos),
			Orientation: toEuler(w.Head.Ori),
		},
		Controllers: make([]pipeline.ControllerSample, len(w.Controllers)),
		Recenter:    w.Recenter,
	}
	for i, c := range w.Controllers {
		cs := pipeline.ControllerSample{
			Orientation: toEuler(c.Ori),
			Position:    toVec(c.Pos),
			Buttons:     buttons.Mask(c.Buttons),
			Trigger:     c.Trigger,
		}
		if c.Trackpad != nil {
			cs.Trackpad = pipeline.Trackpad{X: c.Trackpad.X, Y: c.Trackpad.Y, Touch: c.Trackpad.Touch, Click: c.Trackpad.Click}
		}
		f.Controllers[i] = cs
	}
	return f, nil
}

// Encode is the inverse of Decode. Trackpads are only written when touched
// or clicked.
func Encode(f pipeline.Frame) ([]byte, error) {
	w := wireFrame{
		Head:        wireHead{Pos: fromVec(f.Head.Position), Ori: fromEuler(f.Head.Orientation)},
		Controllers: make([]wireController, len(f.Controllers)),
		Recenter:    f.Recenter,
	}
	for i, c := range f.Controllers {
		wc := wireController{
			Ori:     fromEuler(c.Orientation),
			Pos:     fromVec(c.Position),
			Buttons: uint32(c.Buttons),
			Trigger: c.Trigger,
		}
		if c.Trackpad != (pipeline.Trackpad{}) {
			wc.Trackpad = &wireTrackpad{X: c.Trackpad.X, Y: c.Trackpad.Y, Touch: c.Trackpad.Touch, Click: c.Trackpad.Click}
		}
		w.Controllers[i] = wc
	}
	return json.Marshal(w)
}

func toVec(v [3]float64) r3.Vector { return r3.Vector{X: v[0], Y: v[1], Z: v[2]} }

func fromVec(v r3.Vector) [3]float64 { return [3]float64{v.X, v.Y, v.Z} }

func toEuler(v [3]float64) orient.Euler { return orient.Euler{Yaw: v[0], Pitch: v[1], Roll: v[2]} }

func fromEuler(e orient.Euler) [3]float64 { return [3]float64{e.Yaw, e.Pitch, e.Roll} }
