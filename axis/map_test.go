package axis

import (
	"testing"

	"go.viam.com/test"

	"github.com/buildbotics/motioncore/logging"
)

func newTestMap(t *testing.T, n int) *Map {
	motors := make([]*Motor, n)
	for i := range motors {
		motors[i] = &Motor{Microsteps: 16, StepAngle: 1.8, TravelPerRev: 5}
	}
	return NewMap(motors, logging.NewTestLogger(t))
}

func TestBindAndLookup(t *testing.T) {
	m := newTestMap(t, 2)

	err := m.Bind(X, 0)
	test.That(t, err, test.ShouldBeNil)
	err = m.Bind(Y, 1)
	test.That(t, err, test.ShouldBeNil)

	id, ok := m.AxisOf(0)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, id, test.ShouldEqual, X)

	test.That(t, m.MotorOf(Z), test.ShouldBeNil)
}

func TestBindRejectsDoubleBinding(t *testing.T) {
	m := newTestMap(t, 1)
	err := m.Bind(X, 0)
	test.That(t, err, test.ShouldBeNil)

	err = m.Bind(Y, 0)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestIsEnabledRequiresVelocityMaxAndMotorEnabled(t *testing.T) {
	m := newTestMap(t, 1)
	err := m.Bind(X, 0)
	test.That(t, err, test.ShouldBeNil)

	test.That(t, m.IsEnabled(X), test.ShouldBeFalse)

	m.Axis(X).VelocityMax = 5000
	test.That(t, m.IsEnabled(X), test.ShouldBeFalse) // motor still disabled

	m.Motor(0).SetEnabled(true)
	test.That(t, m.IsEnabled(X), test.ShouldBeTrue)

	test.That(t, m.IsEnabled(Y), test.ShouldBeFalse) // unmapped
}

func TestUnitsToSteps(t *testing.T) {
	m := newTestMap(t, 1)
	err := m.Bind(X, 0)
	test.That(t, err, test.ShouldBeNil)

	var travel [NumAxes]float64
	travel[X] = 1 // 1mm * 640 steps/mm
	steps := m.UnitsToSteps(travel)
	test.That(t, steps[0], test.ShouldEqual, int64(640))
}
