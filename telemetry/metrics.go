// Package telemetry exposes Prometheus metrics for the motion-control
// core. This is ambient observability, not a spec feature: none of it
// gates or alters planner/runtime/machine behavior.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics collects the gauges and counters the main loop and executor
// update each iteration/segment.
type Metrics struct {
	RingFill        prometheus.Gauge
	SegmentsEmitted prometheus.Counter
	BlocksPlanned   prometheus.Counter
	BlocksCompleted prometheus.Counter
	EstopCount      prometheus.Counter
	AlarmCount      *prometheus.CounterVec
	CycleState      *prometheus.GaugeVec
	HoldCount       prometheus.Counter
}

// NewMetricsFromDefault registers the motion-control metrics with the
// global default registry, the convenience entry point for a single-binary
// process like cmd/motionsim that only ever needs one registry.
func NewMetricsFromDefault() *Metrics {
	return NewMetrics(prometheus.DefaultRegisterer)
}

// NewMetrics registers the motion-control metrics with reg and returns the
// handle used to update them. Pass prometheus.NewRegistry() in tests to
// avoid colliding with the default global registry across parallel tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RingFill: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "motioncore",
			Subsystem: "planner",
			Name:      "ring_fill",
			Help:      "Number of occupied slots in the planner ring buffer.",
		}),
		SegmentsEmitted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "motioncore",
			Subsystem: "runtime",
			Name:      "segments_emitted_total",
			Help:      "Total segments emitted by the runtime executor.",
		}),
		BlocksPlanned: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "motioncore",
			Subsystem: "planner",
			Name:      "blocks_planned_total",
			Help:      "Total blocks pushed onto the planner ring.",
		}),
		BlocksCompleted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "motioncore",
			Subsystem: "runtime",
			Name:      "blocks_completed_total",
			Help:      "Total blocks the executor has finished dequeuing.",
		}),
		EstopCount: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "motioncore",
			Subsystem: "machine",
			Name:      "estop_total",
			Help:      "Total number of times ESTOPPED was entered.",
		}),
		AlarmCount: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "motioncore",
			Subsystem: "machine",
			Name:      "alarm_total",
			Help:      "Total class-3 alarms by status code.",
		}, []string{"code"}),
		CycleState: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "motioncore",
			Subsystem: "machine",
			Name:      "cycle_state",
			Help:      "1 for the currently active cycle, 0 for all others.",
		}, []string{"cycle"}),
		HoldCount: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "motioncore",
			Subsystem: "machine",
			Name:      "hold_total",
			Help:      "Total number of times STOPPING/HOLDING was entered.",
		}),
	}
}

// SetRingFill records the planner ring's current occupancy.
func (m *Metrics) SetRingFill(n int) { m.RingFill.Set(float64(n)) }

// ObserveSegment increments the segment counter; called once per emitted
// executor segment.
func (m *Metrics) ObserveSegment() { m.SegmentsEmitted.Inc() }

// ObserveBlockPlanned increments the planned-block counter.
func (m *Metrics) ObserveBlockPlanned() { m.BlocksPlanned.Inc() }

// ObserveBlockCompleted increments the completed-block counter.
func (m *Metrics) ObserveBlockCompleted() { m.BlocksCompleted.Inc() }

// ObserveEstop increments the e-stop counter.
func (m *Metrics) ObserveEstop() { m.EstopCount.Inc() }

// ObserveHold increments the hold counter.
func (m *Metrics) ObserveHold() { m.HoldCount.Inc() }

// ObserveAlarm increments the alarm counter for the given status code name.
func (m *Metrics) ObserveAlarm(code string) { m.AlarmCount.WithLabelValues(code).Inc() }

// SetActiveCycle zeroes every tracked cycle gauge except the active one,
// which it sets to 1.
func (m *Metrics) SetActiveCycle(active string, all []string) {
	for _, c := range all {
		v := 0.0
		if c == active {
			v = 1
		}
		m.CycleState.WithLabelValues(c).Set(v)
	}
}
