package machine

import (
	"testing"

	"go.viam.com/test"

	"github.com/buildbotics/motioncore/axis"
	"github.com/buildbotics/motioncore/logging"
	"github.com/buildbotics/motioncore/mstate"
	"github.com/buildbotics/motioncore/planner"
	"github.com/buildbotics/motioncore/runtime"
	"github.com/buildbotics/motioncore/status"
)

type fakeJogMover struct {
	lastTarget [axis.NumAxes]float64
	calls      int
}

func (f *fakeJogMover) MoveToTarget(target [axis.NumAxes]float64, segmentTime float64) status.Status {
	f.lastTarget = target
	f.calls++
	return status.New(status.OK)
}

func newTestJog(t *testing.T) (*Jog, *fakeJogMover) {
	sm, _ := newTestSM(t)

	motors := []*axis.Motor{{Microsteps: 16, StepAngle: 1.8, TravelPerRev: 5}}
	axes := axis.NewMap(motors, logging.NewTestLogger(t))
	test.That(t, axes.Bind(axis.X, 0), test.ShouldBeNil)
	axes.Motor(0).SetEnabled(true)
	axes.Axis(axis.X).VelocityMax = 6000
	axes.Axis(axis.X).SetJerkMax(100)

	rt := runtime.NewState()
	mover := &fakeJogMover{}
	j := NewJog(axes, rt, mover, sm, planner.DefaultConfig(), logging.NewTestLogger(t))
	return j, mover
}

func TestJogSetTargetsGatedByReadyMachining(t *testing.T) {
	j, _ := newTestJog(t)

	var v [axis.NumAxes]float64
	v[axis.X] = 1
	st := j.SetTargets(v)
	test.That(t, st.IsOK(), test.ShouldBeTrue)
	test.That(t, j.sm.Cycle(), test.ShouldEqual, mstate.Jogging)
}

func TestJogTickRampsTowardTargetAndSettles(t *testing.T) {
	j, mover := newTestJog(t)

	var v [axis.NumAxes]float64
	v[axis.X] = 1
	test.That(t, j.SetTargets(v).IsOK(), test.ShouldBeTrue)

	// Ramp up.
	for i := 0; i < 10000 && !j.Done(); i++ {
		st := j.Tick()
		test.That(t, st.Code, test.ShouldNotEqual, status.InternalError)
		if i == 0 {
			test.That(t, mover.calls, test.ShouldEqual, 1)
		}
	}

	// Command zero velocity; eventually settles and cycle reverts.
	var zero [axis.NumAxes]float64
	test.That(t, j.SetTargets(zero).IsOK(), test.ShouldBeTrue)
	for i := 0; i < 10000; i++ {
		st := j.Tick()
		if st.Code == status.NOOP {
			break
		}
	}
	test.That(t, j.sm.Cycle(), test.ShouldEqual, mstate.Machining)
}
