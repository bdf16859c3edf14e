package machine

import (
	"math"

	"github.com/montanaflynn/stats"

	"github.com/buildbotics/motioncore/axis"
	"github.com/buildbotics/motioncore/logging"
	"github.com/buildbotics/motioncore/mstate"
	"github.com/buildbotics/motioncore/planner"
	"github.com/buildbotics/motioncore/runtime"
	"github.com/buildbotics/motioncore/status"
)

// Calibration constants grounded on original_source/avr/src/plan/calibrate.c.
// CalAcceleration borrows the planner's junction-acceleration scale since
// the source's CAL_ACCELERATION constant isn't in the retained headers.
const (
	CalAcceleration = 2000000.0 // mm/min^2
	CalMinVelocity  = 1000.0    // mm/min; source labeled this mm/sec but
	// used it directly against a mm/min-scaled velocity accumulator
	CalTargetStallguard = 100.0
	calStallguardWindow = 8 // samples kept for the running mean/stddev
	calStallZScore       = 3.0
)

// CalPhase is the calibration sub-state (§4.6.6), treated per Open
// Question 3 as a best-effort sketch, not a compatibility contract.
type CalPhase int

const (
	CalIdle CalPhase = iota
	CalStart
	CalAccel
	CalDone
	CalAbort
)

func (p CalPhase) String() string {
	switch p {
	case CalIdle:
		return "IDLE"
	case CalStart:
		return "START"
	case CalAccel:
		return "ACCEL"
	case CalDone:
		return "DONE"
	case CalAbort:
		return "ABORT"
	default:
		return "?"
	}
}

// Calibrate drives a two-pass (forward then reverse) stall-guard homing
// probe for a single motor (§4.6.6).
type Calibrate struct {
	axes   *axis.Map
	rt     *runtime.State
	mover  runtime.Mover
	sm     *StateMachine
	cfg    planner.Config
	logger logging.Logger

	phase   CalPhase
	motor   int
	axisID  axis.ID
	reverse bool

	velocity   float64
	stallValid bool
	stalled    bool
	stallguard float64
	sgWindow   []float64

	result status.Status
}

// NewCalibrate constructs a calibration driver.
func NewCalibrate(axes *axis.Map, rt *runtime.State, mover runtime.Mover, sm *StateMachine, cfg planner.Config, logger logging.Logger) *Calibrate {
	return &Calibrate{axes: axes, rt: rt, mover: mover, sm: sm, cfg: cfg, logger: logger, phase: CalIdle}
}

// Start begins calibrating the given motor, gated on READY/MACHINING
// exactly as command_calibrate requires.
func (c *Calibrate) Start(motorIndex int) status.Status {
	if c.sm.State() != mstate.Ready || c.sm.Cycle() != mstate.Machining {
		return status.New(status.NOOP)
	}
	id, ok := c.axes.AxisOf(motorIndex)
	if !ok {
		return status.New(status.HomingErrorBadOrNoAxis)
	}

	c.motor = motorIndex
	c.axisID = id
	c.reverse = false
	c.velocity = 0
	c.stallValid = false
	c.stalled = false
	c.stallguard = 0
	c.sgWindow = c.sgWindow[:0]
	c.result = status.Status{}

	if st := c.sm.SetCycle(mstate.Calibrating); !st.IsOK() {
		return st
	}
	c.phase = CalStart
	return status.New(status.OK)
}

// SetStallguard feeds a new stall-guard reading from the driver for the
// motor currently under calibration, updating the running mean/stddev
// that stands in for the source's fixed CAL_MAX_DELTA_SG threshold.
func (c *Calibrate) SetStallguard(motorIndex int, sg float64) {
	if motorIndex != c.motor || c.phase != CalAccel {
		return
	}

	if c.stallValid {
		delta := sg - c.stallguard
		c.sgWindow = append(c.sgWindow, delta)
		if len(c.sgWindow) > calStallguardWindow {
			c.sgWindow = c.sgWindow[1:]
		}

		if sg == 0 {
			c.stalled = true
		} else if len(c.sgWindow) >= 3 {
			mean, err1 := stats.Mean(stats.Float64Data(c.sgWindow))
			sd, err2 := stats.StandardDeviation(stats.Float64Data(c.sgWindow))
			if err1 == nil && err2 == nil && sd > 0 {
				z := math.Abs(delta-mean) / sd
				if z > calStallZScore {
					c.stalled = true
				}
			}
		}
	}

	c.stallguard = sg
}

// Tick advances the calibration ramp by one segment, mirroring
// _exec_calibrate's do/while loop that repeats immediately on a zero
// computed velocity (the forward-to-reverse hinge).
func (c *Calibrate) Tick() status.Status {
	if c.phase != CalStart && c.phase != CalAccel {
		return status.New(status.NOOP)
	}

	for {
		if c.phase == CalStart {
			c.phase = CalAccel
		}

		maxDeltaV := CalAcceleration * c.cfg.SegmentTime

		if CalMinVelocity < c.velocity {
			c.stallValid = true
		}
		if c.velocity < CalMinVelocity || CalTargetStallguard < c.stallguard {
			c.velocity += maxDeltaV
		}

		if c.stalled {
			if c.reverse {
				c.phase = CalDone
				c.result = status.New(status.OK)
				c.sm.SetCycle(mstate.Machining)
				return status.New(status.NOOP)
			}

			mot := c.axes.Motor(c.motor)
			if mot != nil {
				mot.SetPosition(0)
			}
			c.reverse = true
			c.velocity = 0
			c.stallValid = false
			c.stalled = false
			c.sgWindow = c.sgWindow[:0]
		}

		if c.velocity != 0 {
			break
		}
	}

	sign := 1.0
	if c.reverse {
		sign = -1
	}

	pos := c.rt.Position()
	target := pos
	target[c.axisID] = pos[c.axisID] + c.cfg.SegmentTime*c.velocity*sign

	if c.mover != nil {
		if st := c.mover.MoveToTarget(target, c.cfg.SegmentTime); !st.IsOK() {
			return st
		}
	} else {
		c.rt.SetPosition(target)
	}

	return status.New(status.EAGAIN)
}

// Phase returns the current calibration phase.
func (c *Calibrate) Phase() CalPhase { return c.phase }

// Result returns the final status once Phase() is Done.
func (c *Calibrate) Result() status.Status { return c.result }
