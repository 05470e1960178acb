package udp

import (
	"encoding/json"
	"math"

	"github.com/google/uuid"

	"armbridge/internal/buttons"
	"armbridge/internal/pipeline"
)

// Frame is the datagram written to the VR runtime bridge for every processed
// input frame. Angles are radians in the standard convention; positions are
// meters.
type Frame struct {
	Session     uuid.UUID    `json:"session"`
	Seq         uint64       `json:"seq"`
	Head        [3]float64   `json:"head"`
	Controllers []Controller `json:"controllers"`
	Message     string       `json:"message"`
	Mode        string       `json:"mode"`
	ForearmDeg  float64      `json:"forearm_deg"`
}

type Controller struct {
	Name     string        `json:"name"`
	Pos      [3]float64    `json:"pos"`
	Ori      [3]float64    `json:"ori"`
	Buttons  buttons.State `json:"buttons"`
	Trigger  float64       `json:"trigger"`
	Trackpad *[2]float64   `json:"trackpad,omitempty"`
}

// NewFrame flattens a pipeline output into the wire frame.
func NewFrame(session uuid.UUID, seq uint64, out pipeline.Output) Frame {
	f := Frame{
		Session:     session,
		Seq:         seq,
		Head:        [3]float64{out.HeadPosition.X, out.HeadPosition.Y, out.HeadPosition.Z},
		Controllers: make([]Controller, len(out.Controllers)),
		Message:     out.Message,
		Mode:        out.Mode.String(),
		ForearmDeg:  out.ForearmRoll * 180 / math.Pi,
	}
	for i, c := range out.Controllers {
		wc := Controller{
			Name:    c.Name,
			Pos:     [3]float64{c.Position.X, c.Position.Y, c.Position.Z},
			Ori:     [3]float64{c.Orientation.Yaw, c.Orientation.Pitch, c.Orientation.Roll},
			Buttons: c.Buttons,
			Trigger: c.Trigger,
		}
		if c.Trackpad != nil {
			wc.Trackpad = &[2]float64{c.Trackpad.X, c.Trackpad.Y}
		}
		f.Controllers[i] = wc
	}
	return f
}

// Marshal encodes the frame as one JSON datagram.
func (f Frame) Marshal() ([]byte, error) { return json.Marshal(f) }
