package planner

import (
	"testing"

	"go.viam.com/test"
)

func TestTargetLengthAndVelocityRoundTrip(t *testing.T) {
	const jerk = 1e8
	length := targetLength(0, 100, jerk)
	test.That(t, length, test.ShouldBeGreaterThan, 0.0)

	v2 := targetVelocity(0, length, jerk)
	test.That(t, v2, test.ShouldAlmostEqual, 100.0, 0.2)
}

func TestFitTrapezoidFitsWhenRoomy(t *testing.T) {
	fit := fitTrapezoid(0, 1000, 0, 1000, 1e8)
	sum := fit.HeadLength + fit.BodyLength + fit.TailLength
	test.That(t, sum, test.ShouldAlmostEqual, 1000.0, 1e-3)
	test.That(t, fit.BodyLength, test.ShouldBeGreaterThan, 0.0)
}

func TestFitTrapezoidCollapsesBodyWhenShort(t *testing.T) {
	fit := fitTrapezoid(0, 5000, 0, 1, 1e6)
	sum := fit.HeadLength + fit.TailLength
	test.That(t, sum, test.ShouldAlmostEqual, 1.0, 1e-2)
	test.That(t, fit.BodyLength, test.ShouldAlmostEqual, 0.0, 1e-2)
	test.That(t, fit.Cruise, test.ShouldBeLessThan, 5000.0)
}
