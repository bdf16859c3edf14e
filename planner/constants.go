package planner

// Config collects the global planner parameters of §6.5 that are not
// per-axis or per-motor. Units follow the spec: mm, mm/min, seconds.
type Config struct {
	JunctionDeviation    float64
	JunctionAcceleration float64

	NomSegmentTime float64 // seconds, default cadence
	MinSegmentTime float64 // seconds, below which a section returns MINIMUM_TIME_MOVE
	SegmentTime    float64 // seconds, jog/calibrate segment cadence

	PoolSize int
	Headroom int
	ExecMinFill int
	ExecDelay   float64 // seconds

	HoldDecelerationTolerance float64 // mm
	HoldVelocityTolerance     float64 // mm/min

	MotorIdleTimeout float64 // seconds
}

// trapezoidIterationErrorPercent bounds the Newton iteration in
// targetVelocity (§4.3.5).
const trapezoidIterationErrorPercent = 0.1

// jerkMatchPrecision is the tolerance below which two jerk values are
// treated as identical, avoiding recomputation of cbrt(jerk) (§4.3.2).
const jerkMatchPrecision = 1000.0

// DefaultConfig returns reasonable defaults matching the source's own
// compiled-in constants (planner.h), useful for tests and the simulator.
func DefaultConfig() Config {
	return Config{
		JunctionDeviation:         0.05,
		JunctionAcceleration:      2000000,
		NomSegmentTime:            0.005,
		MinSegmentTime:            0.000075,
		SegmentTime:               0.005,
		PoolSize:                  48,
		Headroom:                  4,
		ExecMinFill:               4,
		ExecDelay:                 0.1,
		HoldDecelerationTolerance: 1,
		HoldVelocityTolerance:     60,
		MotorIdleTimeout:          1.5,
	}
}
