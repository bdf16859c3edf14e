package planner

import (
	"math"

	"github.com/buildbotics/motioncore/axis"
)

// jerkCache memoizes the cube root of the last jerk value computed for
// each dominant axis, matching the source's JERK_MATCH_PRECISION-gated
// memoization in _calc_and_cache_jerk_values: recomputing cbrt() on every
// block was measurably expensive on the original 8-bit target, and nothing
// in the spec asks us to drop that optimization.
type jerkCache struct {
	lastJerk [axis.NumAxes]float64
	lastCbrt [axis.NumAxes]float64
	valid    [axis.NumAxes]bool
}

func (c *jerkCache) cbrt(dom axis.ID, jerk float64) float64 {
	if c.valid[dom] && math.Abs(jerk-c.lastJerk[dom]) < jerkMatchPrecision {
		return c.lastCbrt[dom]
	}
	v := math.Cbrt(jerk)
	c.lastJerk[dom] = jerk
	c.lastCbrt[dom] = v
	c.valid[dom] = true
	return v
}

// findJerkAxis selects the axis whose jerk constraint dominates the move
// and returns the block's jerk and its dominant axis (§4.3.2).
//
// For each axis i with nonzero displacement, C_i = axisLength_i^2 *
// recipJerk_i; the dominating axis is argmax C_i. The block's jerk is
// jerk_max[dom] * JerkMultiplier / |unit[dom]|.
func findJerkAxis(axisLength, unit [axis.NumAxes]float64, m *axis.Map) (jerk float64, dom axis.ID, ok bool) {
	best := -1.0
	found := false
	for i := 0; i < axis.NumAxes; i++ {
		if axisLength[i] == 0 {
			continue
		}
		recip := m.Axis(axis.ID(i)).RecipJerk()
		c := axisLength[i] * axisLength[i] * recip
		if c > best {
			best = c
			dom = axis.ID(i)
			found = true
		}
	}
	if !found {
		return 0, 0, false
	}
	u := unit[dom]
	if u == 0 {
		return 0, dom, false
	}
	jerkMax := m.Axis(dom).JerkMax()
	jerk = jerkMax * axis.JerkMultiplier / math.Abs(u)
	return jerk, dom, true
}
