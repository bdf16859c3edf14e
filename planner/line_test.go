package planner

import (
	"math"
	"testing"

	"go.viam.com/test"

	"github.com/buildbotics/motioncore/axis"
	"github.com/buildbotics/motioncore/logging"
)

func newTestPlanner(t *testing.T) *Planner {
	motors := []*axis.Motor{
		{Microsteps: 16, StepAngle: 1.8, TravelPerRev: 5},
		{Microsteps: 16, StepAngle: 1.8, TravelPerRev: 5},
	}
	m := axis.NewMap(motors, logging.NewTestLogger(t))
	err := m.Bind(axis.X, 0)
	test.That(t, err, test.ShouldBeNil)
	err = m.Bind(axis.Y, 1)
	test.That(t, err, test.ShouldBeNil)
	m.Axis(axis.X).VelocityMax = 5000
	m.Axis(axis.X).SetJerkMax(100)
	m.Axis(axis.Y).VelocityMax = 5000
	m.Axis(axis.Y).SetJerkMax(100)

	cfg := DefaultConfig()
	return NewPlanner(m, cfg, logging.NewTestLogger(t))
}

func TestSingleRapid(t *testing.T) {
	p := newTestPlanner(t)

	var target [axis.NumAxes]float64
	target[axis.X] = 100

	st := p.PlanLine(LineInput{Target: target, Rapid: true, FeedRate: 0})
	test.That(t, st.IsOK(), test.ShouldBeTrue)

	blk := p.Buf.GetHead()
	test.That(t, blk, test.ShouldNotBeNil)
	test.That(t, blk.Length, test.ShouldAlmostEqual, 100.0, 1e-6)
	test.That(t, blk.Unit[axis.X], test.ShouldAlmostEqual, 1.0, 1e-6)
	test.That(t, blk.CruiseVmax, test.ShouldAlmostEqual, 5000.0, 1e-6)
	test.That(t, blk.EntryVmax, test.ShouldAlmostEqual, 5000.0, 1e-6)
	test.That(t, blk.ExitVmax, test.ShouldAlmostEqual, 5000.0, 1e-6)

	sum := blk.HeadLength + blk.BodyLength + blk.TailLength
	test.That(t, sum, test.ShouldAlmostEqual, blk.Length, 1e-3)
}

func TestTwoSegmentLTurn(t *testing.T) {
	p := newTestPlanner(t)

	var t1 [axis.NumAxes]float64
	t1[axis.X] = 100
	st := p.PlanLine(LineInput{Target: t1, Rapid: true})
	test.That(t, st.IsOK(), test.ShouldBeTrue)

	var t2 [axis.NumAxes]float64
	t2[axis.X] = 100
	t2[axis.Y] = 100
	st = p.PlanLine(LineInput{Target: t2, FeedRate: 1000})
	test.That(t, st.IsOK(), test.ShouldBeTrue)

	test.That(t, p.Buf.Fill(), test.ShouldEqual, 2)

	blk2, err := p.Buf.SlotAt(1)
	test.That(t, err, test.ShouldBeNil)
	// 90 degree turn: cos(theta) = 0.
	test.That(t, blk2.EntryVmax, test.ShouldBeLessThan, blk2.CruiseVmax+1e-6)
}

func TestStraightContinuationBypassesJunction(t *testing.T) {
	p := newTestPlanner(t)

	var t1 [axis.NumAxes]float64
	t1[axis.X] = 100
	st := p.PlanLine(LineInput{Target: t1, Rapid: true})
	test.That(t, st.IsOK(), test.ShouldBeTrue)

	var t2 [axis.NumAxes]float64
	t2[axis.X] = 200
	st = p.PlanLine(LineInput{Target: t2, FeedRate: 1000})
	test.That(t, st.IsOK(), test.ShouldBeTrue)

	blk2, err := p.Buf.SlotAt(1)
	test.That(t, err, test.ShouldBeNil)
	// Straight continuation: junction unrestricted, entry limited only by
	// cruise velocity envelopes, not forced toward zero.
	test.That(t, blk2.EntryVmax, test.ShouldBeGreaterThan, 0.0)
}

func TestCombinedLinearRotaryMoveUsesLinearFeedDistance(t *testing.T) {
	p := newTestPlanner(t)
	p.axes.Axis(axis.A).VelocityMax = 1e6
	p.axes.Axis(axis.A).SetJerkMax(1e6)

	var target [axis.NumAxes]float64
	target[axis.X] = 100
	target[axis.A] = 50
	st := p.PlanLine(LineInput{Target: target, FeedRate: 1000})
	test.That(t, st.IsOK(), test.ShouldBeTrue)

	blk := p.Buf.GetHead()
	test.That(t, blk, test.ShouldNotBeNil)

	// NIST feed time comes from the XYZ sub-vector (just X=100 here), not
	// the full 6-axis length (sqrt(100^2+50^2)); dividing the full vector
	// length by the full vector's own feed time would instead leave
	// CruiseVmax at exactly the commanded feed rate, 1000.
	expected := 1000.0 * blk.Length / 100.0
	test.That(t, blk.CruiseVmax, test.ShouldAlmostEqual, expected, 1e-6)
}

func TestZeroLengthMoveDroppedSilently(t *testing.T) {
	p := newTestPlanner(t)
	st := p.PlanLine(LineInput{Target: [axis.NumAxes]float64{}, Rapid: true})
	test.That(t, st.IsOK(), test.ShouldBeTrue)
	test.That(t, p.Buf.IsEmpty(), test.ShouldBeTrue)
}

func TestSetPositionResetsJunctionHistory(t *testing.T) {
	p := newTestPlanner(t)
	var t1 [axis.NumAxes]float64
	t1[axis.X] = 100
	st := p.PlanLine(LineInput{Target: t1, Rapid: true})
	test.That(t, st.IsOK(), test.ShouldBeTrue)

	var origin [axis.NumAxes]float64
	p.SetPosition(origin)
	test.That(t, p.havePrevUnit, test.ShouldBeFalse)
	test.That(t, p.Position(), test.ShouldResemble, origin)
}

func TestJunctionVelocityBoundaryConditions(t *testing.T) {
	cfg := DefaultConfig()

	var a, b [axis.NumAxes]float64
	a[axis.X] = 1
	b[axis.X] = 1 // same direction: cos(theta) = -1, straight line.
	v := junctionVelocity(a, b, cfg)
	test.That(t, v, test.ShouldEqual, junctionReversalSentinel)

	b[axis.X] = -1 // reversal: cos(theta) = 1.
	v = junctionVelocity(a, b, cfg)
	test.That(t, v, test.ShouldEqual, 0.0)

	b[axis.X] = 0
	b[axis.Y] = 1 // 90 degrees: cos(theta) = 0.
	v = junctionVelocity(a, b, cfg)
	test.That(t, v, test.ShouldBeGreaterThan, 0.0)
	test.That(t, math.IsNaN(v), test.ShouldBeFalse)
}
