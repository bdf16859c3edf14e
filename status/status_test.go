package status

import (
	"testing"

	"go.viam.com/test"
)

func TestIsOK(t *testing.T) {
	test.That(t, New(OK).IsOK(), test.ShouldBeTrue)
	test.That(t, New(EAGAIN).IsOK(), test.ShouldBeTrue)
	test.That(t, New(NOOP).IsOK(), test.ShouldBeTrue)
	test.That(t, New(InternalError).IsOK(), test.ShouldBeFalse)
}

func TestIsAlarm(t *testing.T) {
	test.That(t, New(MotorStalled).IsAlarm(), test.ShouldBeTrue)
	test.That(t, New(MotorOverTemp).IsAlarm(), test.ShouldBeTrue)
	test.That(t, New(EAGAIN).IsAlarm(), test.ShouldBeFalse)
	test.That(t, New(SoftLimitExceeded).IsAlarm(), test.ShouldBeFalse)
}

func TestError(t *testing.T) {
	s := Detailf(HomingCycleFailed, "axis Z: switch not seen")
	test.That(t, s.Error(), test.ShouldEqual, "HOMING_CYCLE_FAILED: axis Z: switch not seen")
	test.That(t, New(OK).Error(), test.ShouldEqual, "OK")
}
