package planner

import (
	"testing"

	"go.viam.com/test"

	"github.com/buildbotics/motioncore/axis"
	"github.com/buildbotics/motioncore/logging"
)

func TestFindJerkAxisDominance(t *testing.T) {
	motors := []*axis.Motor{{}, {}}
	m := axis.NewMap(motors, logging.NewTestLogger(t))
	test.That(t, m.Bind(axis.X, 0), test.ShouldBeNil)
	test.That(t, m.Bind(axis.Y, 1), test.ShouldBeNil)
	m.Axis(axis.X).SetJerkMax(50) // tighter jerk budget than Y
	m.Axis(axis.Y).SetJerkMax(500)

	var axisLength, unit [axis.NumAxes]float64
	axisLength[axis.X] = 3
	axisLength[axis.Y] = 4
	unit[axis.X] = 0.6
	unit[axis.Y] = 0.8

	jerk, dom, ok := findJerkAxis(axisLength, unit, m)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, dom, test.ShouldEqual, axis.X)
	test.That(t, jerk, test.ShouldBeGreaterThan, 0.0)
}

func TestJerkCacheMemoizesWithinPrecision(t *testing.T) {
	var c jerkCache
	a := c.cbrt(axis.X, 1_000_000)
	b := c.cbrt(axis.X, 1_000_000+1) // well within jerkMatchPrecision
	test.That(t, a, test.ShouldEqual, b)

	d := c.cbrt(axis.X, 1_000_000+10_000) // outside precision
	test.That(t, d, test.ShouldNotEqual, a)
}
