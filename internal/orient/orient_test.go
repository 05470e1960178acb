package orient

import (
	"math"
	"math/rand"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/num/quat"
)

const tol = 1e-6

func assertQuatInDelta(t *testing.T, want, got quat.Number, delta float64) {
	t.Helper()
	assert.InDelta(t, want.Real, got.Real, delta, "w")
	assert.InDelta(t, want.Imag, got.Imag, delta, "x")
	assert.InDelta(t, want.Jmag, got.Jmag, delta, "y")
	assert.InDelta(t, want.Kmag, got.Kmag, delta, "z")
}

func assertVecInDelta(t *testing.T, want, got r3.Vector, delta float64) {
	t.Helper()
	assert.InDelta(t, want.X, got.X, delta, "x")
	assert.InDelta(t, want.Y, got.Y, delta, "y")
	assert.InDelta(t, want.Z, got.Z, delta, "z")
}

func TestConjugate_NegatesVectorPart(t *testing.T) {
	q := quat.Number{Real: 0.5, Imag: 0.1, Jmag: -0.2, Kmag: 0.3}
	got := Conjugate(q)
	assert.Equal(t, quat.Number{Real: 0.5, Imag: -0.1, Jmag: 0.2, Kmag: -0.3}, got)
}

func TestMultiply_HamiltonProductOrder(t *testing.T) {
	i := quat.Number{Imag: 1}
	j := quat.Number{Jmag: 1}
	k := quat.Number{Kmag: 1}

	// i ⊗ j = k, j ⊗ i = -k.
	assert.Equal(t, k, Multiply(i, j))
	assert.Equal(t, quat.Number{Kmag: -1}, Multiply(j, i))
	// j ⊗ k = i, k ⊗ i = j.
	assert.Equal(t, i, Multiply(j, k))
	assert.Equal(t, j, Multiply(k, i))
}

func TestFromEuler_ZeroIsIdentity(t *testing.T) {
	assert.Equal(t, Identity, FromEuler(Euler{}))
	assert.Equal(t, Identity, FromDeviceEuler(Euler{}))
}

func TestEulerRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for n := 0; n < 2000; n++ {
		in := Euler{
			Yaw:   (rng.Float64()*2 - 1) * (math.Pi - 0.01),
			Pitch: (rng.Float64()*2 - 1) * (math.Pi/2 - 0.05),
			Roll:  (rng.Float64()*2 - 1) * (math.Pi - 0.01),
		}
		out := ToEuler(FromEuler(in))
		require.InDelta(t, in.Yaw, out.Yaw, tol, "yaw for %+v", in)
		require.InDelta(t, in.Pitch, out.Pitch, tol, "pitch for %+v", in)
		require.InDelta(t, in.Roll, out.Roll, tol, "roll for %+v", in)
	}
}

func TestConversions_UnitNorm(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	for n := 0; n < 2000; n++ {
		in := Euler{
			Yaw:   (rng.Float64()*2 - 1) * 7,
			Pitch: (rng.Float64()*2 - 1) * 7,
			Roll:  (rng.Float64()*2 - 1) * 7,
		}
		require.InDelta(t, 1.0, Norm(FromEuler(in)), 1e-9)
		require.InDelta(t, 1.0, Norm(FromDeviceEuler(in)), 1e-9)
	}
}

func TestToEuler_GimbalLockClampsPitch(t *testing.T) {
	// Slightly denormalized quaternion pushes the asin argument past 1.
	q := quat.Scale(1.0001, FromEuler(Euler{Pitch: math.Pi / 2}))
	e := ToEuler(q)
	assert.Equal(t, math.Pi/2, e.Pitch)

	q = quat.Scale(1.0001, FromEuler(Euler{Pitch: -math.Pi / 2}))
	e = ToEuler(q)
	assert.Equal(t, -math.Pi/2, e.Pitch)
	assert.False(t, math.IsNaN(e.Yaw) || math.IsNaN(e.Roll))
}

func TestDeviceToStandard_SwapsAxisRoles(t *testing.T) {
	cases := []struct {
		name string
		in   Euler
		want Euler
	}{
		{name: "DeviceYawIsPitch", in: Euler{Yaw: 0.4}, want: Euler{Pitch: 0.4}},
		{name: "DevicePitchIsRoll", in: Euler{Pitch: 0.4}, want: Euler{Roll: 0.4}},
		{name: "DeviceRollIsYaw", in: Euler{Roll: 0.4}, want: Euler{Yaw: 0.4}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := DeviceToStandard(tc.in)
			assert.InDelta(t, tc.want.Yaw, got.Yaw, tol)
			assert.InDelta(t, tc.want.Pitch, got.Pitch, tol)
			assert.InDelta(t, tc.want.Roll, got.Roll, tol)
		})
	}
}

func TestRotate(t *testing.T) {
	forward := r3.Vector{Z: -1}

	assertVecInDelta(t, forward, RotateEuler(Euler{}, forward), tol)

	// Yaw about Z leaves a vector on the Z axis alone.
	assertVecInDelta(t, forward, RotateEuler(Euler{Yaw: math.Pi / 2}, forward), tol)

	// Pitch about Y tilts -Z towards -X.
	got := RotateEuler(Euler{Pitch: 0.3}, forward)
	assertVecInDelta(t, r3.Vector{X: -math.Sin(0.3), Z: -math.Cos(0.3)}, got, tol)

	// Roll about X swings the hanging elbow forwards.
	got = Rotate(FromEuler(Euler{Roll: 0.3}), r3.Vector{Y: -0.25})
	assertVecInDelta(t, r3.Vector{Y: -0.25 * math.Cos(0.3), Z: -0.25 * math.Sin(0.3)}, got, tol)

	// Rotation preserves length.
	v := r3.Vector{X: 0.3, Y: -1.2, Z: 0.7}
	got = RotateEuler(Euler{Yaw: 1, Pitch: -0.4, Roll: 2}, v)
	assert.InDelta(t, v.Norm(), got.Norm(), tol)
}

func TestExtractAxis(t *testing.T) {
	q := FromEuler(Euler{Yaw: 0.2, Pitch: 0.6, Roll: -0.3})

	for _, axis := range []Axis{AxisX, AxisY, AxisZ} {
		once := ExtractAxis(q, axis)
		require.InDelta(t, 1.0, Norm(once), 1e-12)

		twice := ExtractAxis(once, axis)
		assertQuatInDelta(t, once, twice, tol)
	}

	pitchOnly := ExtractAxis(FromEuler(Euler{Pitch: 0.6}), AxisY)
	assertQuatInDelta(t, FromEuler(Euler{Pitch: 0.6}), pitchOnly, tol)
	assert.Zero(t, pitchOnly.Imag)
	assert.Zero(t, pitchOnly.Kmag)
}

func TestExtractAxis_DegenerateIsIdentity(t *testing.T) {
	// A half turn about X has w=0 and no Y component.
	q := quat.Number{Imag: 1}
	assert.Equal(t, Identity, ExtractAxis(q, AxisY))
	assert.Equal(t, Identity, ExtractAxis(quat.Number{}, AxisZ))
}

func TestNormalizedRoll_InvariantUnderYawPitch(t *testing.T) {
	base := NormalizedRoll(Euler{Roll: 0.5})
	assert.InDelta(t, 0.5, base, tol)

	for _, e := range []Euler{
		{Yaw: 1.2, Pitch: 0.7, Roll: 0.5},
		{Yaw: 1.2, Roll: 0.5},
		{Pitch: 0.7, Roll: 0.5},
		{Yaw: -2.5, Pitch: -1.1, Roll: 0.5},
	} {
		assert.InDelta(t, base, NormalizedRoll(e), tol, "orientation %+v", e)
	}
}

func TestNormalizedRoll_MonotonicInRoll(t *testing.T) {
	prev := math.Inf(-1)
	for r := -1.5; r <= 1.5; r += 0.1 {
		got := NormalizedRoll(Euler{Yaw: 0.8, Pitch: -0.6, Roll: r})
		require.Greater(t, got, prev, "roll %v", r)
		prev = got
	}
}

func TestNormalizedRoll_PitchPastVertical(t *testing.T) {
	for _, pitch := range []float64{1.55, 1.60, 2.5, -1.60, -2.9} {
		got := NormalizedRoll(Euler{Pitch: pitch, Roll: 0.3})
		assert.InDelta(t, 0.3, got, tol, "pitch %v", pitch)
	}
}
