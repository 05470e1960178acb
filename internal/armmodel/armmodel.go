// Package armmodel derives a plausible wrist position from controller
// orientation and head pose when the hand has no positional tracking.
//
// The model chains a fixed shoulder anchor, an elbow hanging below it that
// swings forward with the forearm roll, and a hand offset pointing out of the
// controller. The whole elbow chain follows the head's pitch so the arm tilts
// when the user looks up or down.
package armmodel

import (
	"fmt"
	"math"
	"strings"

	"github.com/golang/geo/r3"

	"armbridge/internal/orient"
)

// Side selects which shoulder the controller hangs from.
type Side int

const (
	Right Side = 1
	Left  Side = -1
)

func (s Side) String() string {
	switch s {
	case Right:
		return "right"
	case Left:
		return "left"
	default:
		return fmt.Sprintf("Side(%d)", int(s))
	}
}

// ParseSide accepts "left" or "right".
func ParseSide(v string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "right":
		return Right, nil
	case "left":
		return Left, nil
	default:
		return 0, fmt.Errorf("invalid side %q (want left or right)", v)
	}
}

// Model geometry, in runtime units (meters).
const (
	ShoulderLateral  = 0.2
	ShoulderVertical = -0.10
	ShoulderForward  = -0.05

	ElbowLength = 0.25

	// HandBase is the hand offset with the forearm hanging; it grows by
	// HandReach*sin(forearmRoll) as the forearm is raised.
	HandBase  = 0.25
	HandReach = 0.25

	// MaxForearmRoll bounds the forearm roll parameter.
	MaxForearmRoll = math.Pi / 2
)

// Pose is the head pose the arm hangs from.
type Pose struct {
	Position    r3.Vector
	Orientation orient.Euler
}

// ShoulderAnchor is the shoulder joint relative to the head origin.
func ShoulderAnchor(side Side) r3.Vector {
	return r3.Vector{X: ShoulderLateral * float64(side), Y: ShoulderVertical, Z: ShoulderForward}
}

// HandOffset is the wrist-to-controller vector before it is rotated by the
// controller orientation. It points backwards along the local forward axis.
func HandOffset(forearmRoll float64) r3.Vector {
	return r3.Vector{Z: -HandBase - HandReach*math.Sin(forearmRoll)}
}

// EffectiveForearmRoll is the elbow swing angle. A negative wrist roll eats
// into the forearm roll because the elbow limits how far the hand can twist;
// a positive wrist roll is ignored. The result is never negative.
func EffectiveForearmRoll(forearmRoll, wristRoll float64) float64 {
	armRoll := forearmRoll
	if wristRoll < 0 {
		armRoll += wristRoll
	}
	if armRoll < 0 {
		armRoll = 0
	}
	return armRoll
}

// WristPosition computes the controller position for one frame. It is a pure
// function of its inputs.
func WristPosition(controller orient.Euler, side Side, forearmRoll float64, head Pose) r3.Vector {
	hand := orient.RotateEuler(controller, HandOffset(forearmRoll))

	armRoll := EffectiveForearmRoll(forearmRoll, orient.NormalizedRoll(controller))
	elbow := orient.RotateEuler(orient.Euler{Roll: armRoll}, r3.Vector{Y: -ElbowLength})
	elbow = elbow.Add(ShoulderAnchor(side))

	headPitch := orient.ExtractAxis(orient.FromEuler(head.Orientation), orient.AxisY)
	elbow = orient.Rotate(headPitch, elbow)

	return head.Position.Add(elbow).Add(hand)
}
