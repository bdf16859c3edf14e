package stepper

import (
	"testing"

	"github.com/benbjohnson/clock"
	"go.viam.com/test"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"

	"github.com/buildbotics/motioncore/axis"
	"github.com/buildbotics/motioncore/logging"
	"github.com/buildbotics/motioncore/status"
)

type fakePin struct {
	name   string
	levels []gpio.Level
}

func (p *fakePin) String() string  { return p.name }
func (p *fakePin) Halt() error     { return nil }
func (p *fakePin) Name() string    { return p.name }
func (p *fakePin) Number() int     { return 0 }
func (p *fakePin) Function() string { return "" }
func (p *fakePin) Out(l gpio.Level) error {
	p.levels = append(p.levels, l)
	return nil
}
func (p *fakePin) PWM(gpio.Duty, physic.Frequency) error { return nil }

var _ gpio.PinOut = (*fakePin)(nil)

func newTestPipeline(t *testing.T) (*Pipeline, []*fakePin) {
	motors := []*axis.Motor{
		{Microsteps: 16, StepAngle: 1.8, TravelPerRev: 5},
	}
	axes := axis.NewMap(motors, logging.NewTestLogger(t))
	test.That(t, axes.Bind(axis.X, 0), test.ShouldBeNil)

	dir := &fakePin{name: "dir0"}
	step := &fakePin{name: "step0"}
	pins := []MotorPins{{Dir: dir, Step: step}}

	p := NewPipeline(axes, pins, clock.NewMock(), logging.NewTestLogger(t))
	return p, []*fakePin{dir, step}
}

func TestMoveToTargetAdvancesMotorPosition(t *testing.T) {
	p, pins := newTestPipeline(t)

	var target [axis.NumAxes]float64
	target[axis.X] = 1 // 1mm * 640 steps/mm

	st := p.MoveToTarget(target, 0.005)
	test.That(t, st.Code, test.ShouldEqual, status.OK)

	mot := p.axes.Motor(0)
	test.That(t, mot.Position(), test.ShouldEqual, int64(640))
	test.That(t, len(pins[0].levels), test.ShouldBeGreaterThan, 0)
}

func TestPrepLineRejectsWhileMoveReady(t *testing.T) {
	p, _ := newTestPipeline(t)
	p.moveReady.Store(true)

	st := p.PrepLine([]int64{100}, 0.005)
	test.That(t, st.Code, test.ShouldEqual, status.InternalError)
}

func TestLoadMoveNoopWithoutPrep(t *testing.T) {
	p, _ := newTestPipeline(t)
	st := p.LoadMove()
	test.That(t, st.Code, test.ShouldEqual, status.NOOP)
}

func TestPowerTimeoutTickDeenergizesIdleMotors(t *testing.T) {
	p, _ := newTestPipeline(t)
	mot := p.axes.Motor(0)
	mot.SetPowerState(axis.PowerIdle)

	p.PowerTimeoutTick()
	test.That(t, mot.PowerState(), test.ShouldEqual, axis.PowerOff)
}
