package axis

import (
	"testing"

	"go.viam.com/test"
)

func TestStepsPerUnit(t *testing.T) {
	m := &Motor{Microsteps: 16, StepAngle: 1.8, TravelPerRev: 5}
	// 360 * 16 / (5 * 1.8) = 5760/9 = 640
	test.That(t, m.StepsPerUnit(), test.ShouldEqual, 640.0)
	test.That(t, m.UnitsPerStep(), test.ShouldEqual, 1.0/640.0)
}

func TestSetJerkMaxCachesReciprocal(t *testing.T) {
	d := NewDescriptor(X)
	d.SetJerkMax(100)
	test.That(t, d.JerkMax(), test.ShouldEqual, 100.0)
	test.That(t, d.RecipJerk(), test.ShouldEqual, 1/(100*JerkMultiplier))

	d.SetJerkMax(0)
	test.That(t, d.RecipJerk(), test.ShouldEqual, 0.0)
}

func TestVectorLength(t *testing.T) {
	var delta [NumAxes]float64
	delta[X] = 3
	delta[Y] = 4
	test.That(t, VectorLength(delta), test.ShouldEqual, 5.0)
}

func TestValidMicrosteps(t *testing.T) {
	m := &Motor{}
	test.That(t, m.SetMicrosteps(32), test.ShouldBeTrue)
	test.That(t, m.Microsteps, test.ShouldEqual, 32)
	test.That(t, m.SetMicrosteps(3), test.ShouldBeFalse)
	test.That(t, m.Microsteps, test.ShouldEqual, 32)
}

func TestFaultFlags(t *testing.T) {
	m := &Motor{}
	test.That(t, m.Enabled(), test.ShouldBeFalse)
	m.SetEnabled(true)
	test.That(t, m.Enabled(), test.ShouldBeTrue)
	m.LatchFault(FaultStall)
	test.That(t, m.Faults()&FaultStall, test.ShouldNotEqual, 0)
	m.ClearFaults()
	test.That(t, m.Faults(), test.ShouldEqual, FaultFlags(0))
}
