package planner

import "math"

// targetLength returns the distance traveled by a jerk-limited ramp from
// v1 to v2 under jerk j: L = (v1+v2)*sqrt(|v2-v1|/j) (§4.3.5).
func targetLength(v1, v2, jerk float64) float64 {
	if jerk <= 0 {
		return 0
	}
	return (v1 + v2) * math.Sqrt(math.Abs(v2-v1)/jerk)
}

// TargetLength is the exported form of targetLength, used by the runtime
// executor's feedhold planning (§4.4.3) to compute braking distance and by
// the jog ramp (§4.6.5).
func TargetLength(v1, v2, jerk float64) float64 { return targetLength(v1, v2, jerk) }

// TargetVelocity is the exported form of targetVelocity, used by the
// runtime executor's feedhold planning (§4.4.3).
func TargetVelocity(v1, length, jerk float64) float64 { return targetVelocity(v1, length, jerk) }

// targetVelocity solves the inverse of targetLength for v2, given v1, the
// available distance length, and jerk — "the achievable V2" of §4.3.5 —
// by Newton iteration to within trapezoidIterationErrorPercent.
//
// f(v2) = targetLength(v1, v2, jerk) - length, f'(v2) approximated by
// central difference since the closed form is awkward to differentiate
// across the |v2-v1| sign change at v2==v1.
func targetVelocity(v1, length, jerk float64) float64 {
	if jerk <= 0 || length <= 0 {
		return v1
	}

	v2 := v1 + length // initial guess: straight-line extrapolation
	const maxIterations = 30
	const h = 1e-6

	for i := 0; i < maxIterations; i++ {
		f := targetLength(v1, v2, jerk) - length
		tol := length * (trapezoidIterationErrorPercent / 100)
		if tol <= 0 {
			tol = trapezoidIterationErrorPercent / 100
		}
		if math.Abs(f) < tol {
			break
		}

		fPlus := targetLength(v1, v2+h, jerk) - length
		fMinus := targetLength(v1, v2-h, jerk) - length
		deriv := (fPlus - fMinus) / (2 * h)
		if deriv == 0 {
			break
		}

		next := v2 - f/deriv
		if next < 0 {
			next = 0
		}
		v2 = next
	}

	if v2 < 0 {
		v2 = 0
	}
	return v2
}
