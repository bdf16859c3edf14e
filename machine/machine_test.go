package machine

import (
	"testing"

	"go.viam.com/test"
	"periph.io/x/conn/v3/gpio"

	"github.com/buildbotics/motioncore/axis"
	"github.com/buildbotics/motioncore/logging"
	"github.com/buildbotics/motioncore/mstate"
	"github.com/buildbotics/motioncore/planner"
	"github.com/buildbotics/motioncore/runtime"
	"github.com/buildbotics/motioncore/status"
	"github.com/buildbotics/motioncore/switchio"
)

func newTestMachine(t *testing.T) *Machine {
	motors := []*axis.Motor{
		{Microsteps: 16, StepAngle: 1.8, TravelPerRev: 5},
		{Microsteps: 16, StepAngle: 1.8, TravelPerRev: 5},
	}
	axes := axis.NewMap(motors, logging.NewTestLogger(t))
	test.That(t, axes.Bind(axis.X, 0), test.ShouldBeNil)
	test.That(t, axes.Bind(axis.Z, 1), test.ShouldBeNil)
	axes.Motor(0).SetEnabled(true)
	axes.Motor(1).SetEnabled(true)
	axes.Axis(axis.X).VelocityMax = 5000
	axes.Axis(axis.X).SetJerkMax(100)
	axes.Axis(axis.Z).VelocityMax = 5000
	axes.Axis(axis.Z).SetJerkMax(100)

	p := planner.NewPlanner(axes, planner.DefaultConfig(), logging.NewTestLogger(t))
	rt := runtime.NewState()
	sm := NewStateMachine(p, &fakeRuntimeIdle{}, &fakeStepperIdle{}, &fakeSpindle{}, logging.NewTestLogger(t))
	switches := switchio.NewReader(map[switchio.ID]gpio.PinIn{})
	homing := NewHoming(axes, rt, &fakeJogMover{}, switches, sm, planner.DefaultConfig(), logging.NewTestLogger(t))

	return NewMachine(p, rt, axes, sm, homing, logging.NewTestLogger(t))
}

func TestMachineDefaultsToG54MillimetersAbsolute(t *testing.T) {
	m := newTestMachine(t)
	test.That(t, m.Units(), test.ShouldEqual, Millimeters)
	test.That(t, m.DistanceMode(), test.ShouldEqual, Absolute)
	test.That(t, m.CoordSystem(), test.ShouldEqual, G54)
	test.That(t, m.Plane(), test.ShouldEqual, PlaneXY)
}

func TestMachineRapidQueuesBlockAndTransitionsRunning(t *testing.T) {
	m := newTestMachine(t)

	var v [axis.NumAxes]float64
	var flags [axis.NumAxes]bool
	v[axis.X] = 100
	flags[axis.X] = true

	st := m.Rapid(v, flags, 1)
	test.That(t, st.IsOK(), test.ShouldBeTrue)
	test.That(t, m.sm.State(), test.ShouldEqual, mstate.Running)
}

func TestMachineSoftLimitRejectsOutOfRangeTargetWithoutEnqueuing(t *testing.T) {
	m := newTestMachine(t)
	m.axes.Axis(axis.X).TravelMin = 0
	m.axes.Axis(axis.X).TravelMax = 50
	m.axes.Axis(axis.X).Homed = true

	var v [axis.NumAxes]float64
	var flags [axis.NumAxes]bool
	v[axis.X] = 100
	flags[axis.X] = true

	st := m.Rapid(v, flags, 1)
	test.That(t, st.Code, test.ShouldEqual, status.SoftLimitExceeded)
	test.That(t, m.planner.Buf.IsEmpty(), test.ShouldBeTrue)
	test.That(t, m.sm.State(), test.ShouldEqual, mstate.Ready)
}

func TestMachineSoftLimitIgnoresUnhomedAxis(t *testing.T) {
	m := newTestMachine(t)
	m.axes.Axis(axis.X).TravelMin = 0
	m.axes.Axis(axis.X).TravelMax = 50
	// Homed left false: no trustworthy zero, so the target passes.

	var v [axis.NumAxes]float64
	var flags [axis.NumAxes]bool
	v[axis.X] = 100
	flags[axis.X] = true

	st := m.Rapid(v, flags, 1)
	test.That(t, st.IsOK(), test.ShouldBeTrue)
}

func TestMachineFeedGatedOutsideMachiningCycle(t *testing.T) {
	m := newTestMachine(t)
	test.That(t, m.sm.SetCycle(mstate.Jogging).IsOK(), test.ShouldBeTrue)

	var v [axis.NumAxes]float64
	var flags [axis.NumAxes]bool
	v[axis.X] = 10
	flags[axis.X] = true

	st := m.Feed(v, flags, 1000, false, false, 1)
	test.That(t, st.Code, test.ShouldEqual, status.NOOP)
}

func TestMachineZeroAxisSetsWorkOffsetToCurrentPosition(t *testing.T) {
	m := newTestMachine(t)
	var pos [axis.NumAxes]float64
	pos[axis.X] = 42
	m.rt.SetPosition(pos)

	m.ZeroAxis(axis.X)

	tp := m.rt.ToolPosition()
	test.That(t, tp[axis.X], test.ShouldAlmostEqual, 0.0)
}

func TestMachineSetCoordOffsetsAppliesImmediatelyWhenActive(t *testing.T) {
	m := newTestMachine(t)
	var off [axis.NumAxes]float64
	off[axis.X] = 5
	m.SetCoordOffsets(G54, off)

	wo := m.rt.WorkOffset()
	test.That(t, wo[axis.X], test.ShouldAlmostEqual, 5.0)
}

func TestMachineHomingCycleStartDelegatesToHoming(t *testing.T) {
	m := newTestMachine(t)
	m.axes.Axis(axis.X).SearchVelocity = 0 // forces an immediate error

	st := m.HomingCycleStart(map[axis.ID]bool{axis.X: true})
	test.That(t, st.Code, test.ShouldEqual, status.HomingErrorZeroSearchVelocity)
}

func TestMachineProgramEndRequestsHoldAndResetsModal(t *testing.T) {
	m := newTestMachine(t)
	m.SetUnits(Inches)
	m.SetDistanceMode(Incremental)

	m.ProgramEnd()

	test.That(t, m.Units(), test.ShouldEqual, Millimeters)
	test.That(t, m.DistanceMode(), test.ShouldEqual, Absolute)
	test.That(t, m.Flow(), test.ShouldEqual, ProgramEnd)
}
