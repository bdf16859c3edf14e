package planner

import "math"

// trapezoidFit is the result of splitting a block's length into its
// head (accel), body (cruise), and tail (decel) sections (§4.3.5).
type trapezoidFit struct {
	HeadLength float64
	BodyLength float64
	TailLength float64
	Cruise     float64
}

// FitTrapezoid is the exported form of fitTrapezoid, used by the runtime
// executor to re-profile a feedhold residual as a fresh block from zero
// entry (§4.4.3 Case 1).
func FitTrapezoid(entry, cruise, exit, length, jerk float64) (head, body, tail, cruiseOut float64) {
	fit := fitTrapezoid(entry, cruise, exit, length, jerk)
	return fit.HeadLength, fit.BodyLength, fit.TailLength, fit.Cruise
}

// fitTrapezoid computes head/body/tail lengths for a move of the given
// length from entry to exit velocity, cruising at cruise when there is
// room. If head+tail would exceed length, cruise is iteratively lowered
// until head+tail fits exactly and body collapses to zero; otherwise the
// leftover length becomes the body at the original cruise velocity.
func fitTrapezoid(entry, cruise, exit, length, jerk float64) trapezoidFit {
	head := targetLength(entry, cruise, jerk)
	tail := targetLength(cruise, exit, jerk)

	if head+tail <= length || jerk <= 0 {
		return trapezoidFit{
			HeadLength: head,
			BodyLength: length - head - tail,
			TailLength: tail,
			Cruise:     cruise,
		}
	}

	// head+tail overruns: binary-search a reduced cruise velocity so that
	// targetLength(entry,Vc)+targetLength(Vc,exit) == length. The sum is
	// monotonically increasing in Vc above max(entry,exit), so the search
	// is well-posed on [max(entry,exit), cruise].
	lo := math.Max(entry, exit)
	hi := cruise
	if hi < lo {
		hi = lo
	}
	sumAt := func(vc float64) float64 {
		return targetLength(entry, vc, jerk) + targetLength(vc, exit, jerk)
	}

	vc := hi
	for i := 0; i < 40; i++ {
		mid := (lo + hi) / 2
		if sumAt(mid) > length {
			hi = mid
		} else {
			lo = mid
		}
		vc = mid
	}

	head = targetLength(entry, vc, jerk)
	tail = targetLength(vc, exit, jerk)
	// Absorb residual rounding into the tail rather than leaving a
	// negative body.
	if head+tail > length {
		tail = length - head
		if tail < 0 {
			tail = 0
			head = length
		}
	}

	return trapezoidFit{
		HeadLength: head,
		BodyLength: 0,
		TailLength: tail,
		Cruise:     vc,
	}
}
