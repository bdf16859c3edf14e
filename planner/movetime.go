package planner

import (
	"math"

	"github.com/buildbotics/motioncore/axis"
)

// feedDistance returns the NIST feed-rate distance for a move: the linear
// XYZ sub-vector length, falling back to the angular ABC sub-vector length
// only when the move has no XYZ component at all, mirroring _calc_move_time
// in the source (sqrt(X²+Y²+Z²), else sqrt(A²+B²+C²)).
func feedDistance(axisLength [axis.NumAxes]float64) float64 {
	var linear [axis.NumAxes]float64
	linear[axis.X], linear[axis.Y], linear[axis.Z] = axisLength[axis.X], axisLength[axis.Y], axisLength[axis.Z]
	if d := axis.VectorLength(linear); d > 1e-9 {
		return d
	}

	var angular [axis.NumAxes]float64
	angular[axis.A], angular[axis.B], angular[axis.C] = axisLength[axis.A], axisLength[axis.B], axisLength[axis.C]
	return axis.VectorLength(angular)
}

// computeMoveTime returns the move duration in minutes (consistent with
// velocity_max's mm/min units), following §4.3.4: the maximum of the
// feed-rate-derived time and the per-axis rate-limited time, clamped to a
// minimum.
func computeMoveTime(axisLength [axis.NumAxes]float64, feedRate, feedOverride float64, inverseTime bool, m *axis.Map, cfg Config) float64 {
	if feedOverride <= 0 {
		feedOverride = 1
	}

	var feedTime float64
	if inverseTime {
		// G93: feedRate already encodes 1/time (per minute).
		if feedRate > 0 {
			feedTime = 1 / feedRate
		}
	} else if feedRate > 0 {
		feedTime = feedDistance(axisLength) / feedRate
	}
	feedTime /= feedOverride

	var rateLimited float64
	for i := 0; i < axis.NumAxes; i++ {
		vmax := m.Axis(axis.ID(i)).VelocityMax
		if vmax <= 0 {
			continue
		}
		t := math.Abs(axisLength[i]) / vmax
		if t > rateLimited {
			rateLimited = t
		}
	}

	moveTime := math.Max(feedTime, rateLimited)

	minSegmentMinutes := cfg.MinSegmentTime / 60
	if moveTime < minSegmentMinutes {
		moveTime = minSegmentMinutes
	}
	return moveTime
}
