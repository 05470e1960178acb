// Package orient holds the quaternion and Euler angle helpers used by the arm
// model.
//
// Quaternions are gonum quat.Number values. The component mapping is
// x=Imag, y=Jmag, z=Kmag, w=Real. Euler angles follow the "standard"
// convention: yaw about Z, pitch about Y, roll about X, composed as
// q = yaw ⊗ pitch ⊗ roll.
package orient

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// Euler is a yaw/pitch/roll triple in radians.
type Euler struct {
	Yaw   float64 `json:"yaw" yaml:"yaw"`
	Pitch float64 `json:"pitch" yaml:"pitch"`
	Roll  float64 `json:"roll" yaml:"roll"`
}

// Axis selects one of the quaternion vector components.
type Axis int

const (
	AxisX Axis = iota // roll
	AxisY             // pitch
	AxisZ             // yaw
)

// degenerateMagSq is the squared magnitude below which ExtractAxis gives up
// and returns identity.
const degenerateMagSq = 1e-12

// Identity is the no-rotation quaternion.
var Identity = quat.Number{Real: 1}

// Conjugate negates the vector part of q.
func Conjugate(q quat.Number) quat.Number {
	return quat.Conj(q)
}

// Multiply returns the Hamilton product a ⊗ b. Order matters.
func Multiply(a, b quat.Number) quat.Number {
	return quat.Mul(a, b)
}

// FromEuler converts standard yaw/pitch/roll into a unit quaternion.
// Non-finite inputs propagate.
func FromEuler(e Euler) quat.Number {
	cy, sy := math.Cos(e.Yaw*0.5), math.Sin(e.Yaw*0.5)
	cp, sp := math.Cos(e.Pitch*0.5), math.Sin(e.Pitch*0.5)
	cr, sr := math.Cos(e.Roll*0.5), math.Sin(e.Roll*0.5)

	return quat.Number{
		Imag: cy*sr*cp - sy*cr*sp,
		Jmag: cy*cr*sp + sy*sr*cp,
		Kmag: sy*cr*cp - cy*sr*sp,
		Real: cy*cr*cp + sy*sr*sp,
	}
}

// FromDeviceEuler converts angles in the motion controller's native
// convention into a standard-basis quaternion. The controller reports its
// axes in different roles: device yaw ends up as standard pitch, device pitch
// as standard roll and device roll as standard yaw.
func FromDeviceEuler(e Euler) quat.Number {
	cy, sy := math.Cos(e.Yaw*0.5), math.Sin(e.Yaw*0.5)
	cp, sp := math.Cos(e.Pitch*0.5), math.Sin(e.Pitch*0.5)
	cr, sr := math.Cos(e.Roll*0.5), math.Sin(e.Roll*0.5)

	return quat.Number{
		Imag: cy*cr*sp + sy*sr*cp,
		Jmag: sy*cr*cp + cy*sr*sp,
		Kmag: cy*sr*cp - sy*cr*sp,
		Real: cy*cr*cp - sy*sr*sp,
	}
}

// DeviceToStandard re-expresses controller-native angles in the standard
// convention. Every orientation read from the controller goes through this
// before the arm model sees it.
func DeviceToStandard(e Euler) Euler {
	return ToEuler(FromDeviceEuler(e))
}

// ToEuler converts a unit quaternion into standard yaw/pitch/roll.
// Pitch is clamped to ±π/2 once the asin argument leaves [-1, 1].
func ToEuler(q quat.Number) Euler {
	x, y, z, w := q.Imag, q.Jmag, q.Kmag, q.Real

	var e Euler

	sinr := 2 * (w*x + y*z)
	cosr := 1 - 2*(x*x+y*y)
	e.Roll = math.Atan2(sinr, cosr)

	sinp := 2 * (w*y - z*x)
	if math.Abs(sinp) >= 1 {
		e.Pitch = math.Copysign(math.Pi/2, sinp)
	} else {
		e.Pitch = math.Asin(sinp)
	}

	siny := 2 * (w*z + x*y)
	cosy := 1 - 2*(y*y+z*z)
	e.Yaw = math.Atan2(siny, cosy)

	return e
}

// Rotate applies q ⊗ v ⊗ conj(q) to the pure quaternion built from v.
func Rotate(q quat.Number, v r3.Vector) r3.Vector {
	p := quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}
	r := Multiply(Multiply(q, p), Conjugate(q))
	return r3.Vector{X: r.Imag, Y: r.Jmag, Z: r.Kmag}
}

// RotateEuler is Rotate with the orientation given as standard Euler angles.
func RotateEuler(e Euler, v r3.Vector) r3.Vector {
	return Rotate(FromEuler(e), v)
}

// ExtractAxis keeps only the rotation of q about axis: the two orthogonal
// vector components are zeroed and the rest renormalized from w and the axis
// component alone. When both are ~0 the result is Identity.
func ExtractAxis(q quat.Number, axis Axis) quat.Number {
	var a float64
	switch axis {
	case AxisX:
		a = q.Imag
	case AxisY:
		a = q.Jmag
	case AxisZ:
		a = q.Kmag
	default:
		return q
	}

	magSq := q.Real*q.Real + a*a
	if magSq < degenerateMagSq {
		return Identity
	}
	mag := math.Sqrt(magSq)

	out := quat.Number{Real: q.Real / mag}
	switch axis {
	case AxisX:
		out.Imag = a / mag
	case AxisY:
		out.Jmag = a / mag
	case AxisZ:
		out.Kmag = a / mag
	}
	return out
}

// Norm is the quaternion modulus.
func Norm(q quat.Number) float64 {
	return quat.Abs(q)
}
