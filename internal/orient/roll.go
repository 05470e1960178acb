package orient

// NormalizedRoll returns the twist of e about the forward axis with the yaw
// and pitch contributions removed.
//
// Raw roll readings jump once pitch or yaw pass 90°. Stripping the yaw-only
// rotation and then the pitch-only rotation, both taken from the reported
// angles, off the full orientation leaves a pure roll residual, so forearm
// tracking stays monotonic however the wrist is pointed.
func NormalizedRoll(e Euler) float64 {
	q := FromEuler(e)

	yawOnly := FromEuler(Euler{Yaw: e.Yaw})
	pitchOnly := FromEuler(Euler{Pitch: e.Pitch})

	residual := Multiply(Conjugate(yawOnly), q)
	residual = Multiply(Conjugate(pitchOnly), residual)

	return ToEuler(residual).Roll
}
