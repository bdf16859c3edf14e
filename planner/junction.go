package planner

import (
	"math"

	"github.com/buildbotics/motioncore/axis"
)

// junctionReversalSentinel is the large finite value returned for a
// straight-line continuation, disabling junction limiting (§4.3.3).
const junctionReversalSentinel = 1e7

// junctionVelocity computes the maximum velocity the machine may carry
// through the corner between two unit vectors a (previous) and b
// (current), given the configured junction deviation and acceleration
// (§4.3.3, Sonny's algorithm).
func junctionVelocity(a, b [axis.NumAxes]float64, cfg Config) float64 {
	var dot float64
	for i := range a {
		dot += a[i] * b[i]
	}
	cosTheta := -dot

	switch {
	case cosTheta < -0.99:
		return junctionReversalSentinel
	case cosTheta > 0.99:
		return 0
	}

	var sumA, sumB float64
	for i := range a {
		sumA += math.Pow(a[i]*cfg.JunctionDeviation, 2)
		sumB += math.Pow(b[i]*cfg.JunctionDeviation, 2)
	}
	delta := (math.Sqrt(sumA) + math.Sqrt(sumB)) / 2

	sinHalf := math.Sqrt((1 - cosTheta) / 2)
	if sinHalf >= 1 {
		return 0
	}
	radius := delta * sinHalf / (1 - sinHalf)
	return math.Sqrt(radius * cfg.JunctionAcceleration)
}
