package telemetry

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.viam.com/test"
)

func TestSetRingFillReportsValue(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.SetRingFill(7)
	test.That(t, testutil.ToFloat64(m.RingFill), test.ShouldEqual, 7.0)
}

func TestObserveCountersIncrement(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.ObserveSegment()
	m.ObserveSegment()
	m.ObserveBlockPlanned()
	m.ObserveEstop()
	m.ObserveHold()
	m.ObserveAlarm("MOTOR_STALLED")

	test.That(t, testutil.ToFloat64(m.SegmentsEmitted), test.ShouldEqual, 2.0)
	test.That(t, testutil.ToFloat64(m.BlocksPlanned), test.ShouldEqual, 1.0)
	test.That(t, testutil.ToFloat64(m.EstopCount), test.ShouldEqual, 1.0)
	test.That(t, testutil.ToFloat64(m.HoldCount), test.ShouldEqual, 1.0)
	test.That(t, testutil.ToFloat64(m.AlarmCount.WithLabelValues("MOTOR_STALLED")), test.ShouldEqual, 1.0)
}

func TestSetActiveCycleZeroesOthers(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	cycles := []string{"MACHINING", "HOMING", "JOGGING"}
	m.SetActiveCycle("HOMING", cycles)

	test.That(t, testutil.ToFloat64(m.CycleState.WithLabelValues("HOMING")), test.ShouldEqual, 1.0)
	test.That(t, testutil.ToFloat64(m.CycleState.WithLabelValues("MACHINING")), test.ShouldEqual, 0.0)
	test.That(t, testutil.ToFloat64(m.CycleState.WithLabelValues("JOGGING")), test.ShouldEqual, 0.0)
}
