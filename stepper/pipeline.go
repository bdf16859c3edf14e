// Package stepper implements the stepper pipeline (C5): converting
// segment targets to integer step counts per motor and sequencing
// move-prep, move-load, and dwell against the motor's GPIO pins.
package stepper

import (
	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"periph.io/x/conn/v3/gpio"

	"github.com/buildbotics/motioncore/axis"
	"github.com/buildbotics/motioncore/logging"
	"github.com/buildbotics/motioncore/status"
)

// MotorPins binds one motor's direction and step GPIO lines.
type MotorPins struct {
	Dir  gpio.PinOut
	Step gpio.PinOut
}

// preparedMove is the result of PrepLine for one motor: the source's
// "prepared move" handed from the exec ISR to the step-timer ISR via the
// move_queued/move_ready flags (§4.5.1, §9).
type preparedMove struct {
	steps     int64
	clockwise bool
}

// Pipeline is the stepper prep/load pipeline (C5). PrepLine is called from
// the exec path; LoadMove is called from the step-timer tick. The two are
// separated by moveQueued/moveReady exactly as the source's stepper.c
// separates them, even though this host-side reimplementation runs them
// on the same goroutine by default — the flags still gate a hand-off
// that a platform-specific caller may run across real interrupt levels.
type Pipeline struct {
	axes   *axis.Map
	pins   []MotorPins
	clock  clock.Clock
	logger logging.Logger

	moveQueued atomic.Bool
	moveReady  atomic.Bool
	prepared   []preparedMove

	lastTravel [axis.NumAxes]float64

	dwellRemaining float64
	isDwelling     bool
}

// NewPipeline constructs a stepper pipeline over the given axis/motor map
// and GPIO pin bindings (one MotorPins per motor index).
func NewPipeline(axes *axis.Map, pins []MotorPins, clk clock.Clock, logger logging.Logger) *Pipeline {
	if clk == nil {
		clk = clock.New()
	}
	return &Pipeline{
		axes:     axes,
		pins:     pins,
		clock:    clk,
		logger:   logger,
		prepared: make([]preparedMove, len(pins)),
	}
}

// MoveToTarget implements runtime.Mover: it converts an absolute segment
// target into per-motor step counts via the axis map's kinematics, preps
// the move, and loads it immediately (this pipeline runs prep and load on
// the same call; see the Pipeline doc comment on the ISR split).
func (p *Pipeline) MoveToTarget(target [axis.NumAxes]float64, segmentTime float64) status.Status {
	p.lastTravel = target
	targetSteps := p.axes.UnitsToSteps(target)

	if st := p.PrepLine(targetSteps, segmentTime); st.Code != status.OK {
		return st
	}
	return p.LoadMove()
}

// PrepLine computes, for each motor, the signed step delta from its
// current position to targetSteps, stores direction and absolute count,
// and marks the move queued (§4.5.2). It is an internal-error alarm to
// prep while a previous move is still ready but unconsumed.
func (p *Pipeline) PrepLine(targetSteps []int64, segmentTime float64) status.Status {
	if p.moveReady.Load() {
		return status.New(status.InternalError)
	}

	for i, pin := range p.pins {
		_ = pin
		mot := p.axes.Motor(i)
		if mot == nil {
			continue
		}
		delta := targetSteps[i] - mot.Position()
		p.prepared[i] = preparedMove{
			steps:     abs64(delta),
			clockwise: delta >= 0,
		}
	}
	p.moveQueued.Store(true)
	return status.New(status.OK)
}

// LoadMove loads a previously prepared move into the motor pins: sets
// direction, advances the motor's step-count position by the prepared
// delta, and updates the power state machine (§4.5.3). It returns NOOP
// if nothing was queued.
func (p *Pipeline) LoadMove() status.Status {
	if !p.moveQueued.Load() {
		return status.New(status.NOOP)
	}
	p.moveReady.Store(true)

	for i, mv := range p.prepared {
		mot := p.axes.Motor(i)
		if mot == nil {
			continue
		}
		if mv.steps == 0 {
			p.updatePower(mot, false)
			continue
		}

		if i < len(p.pins) && p.pins[i].Dir != nil {
			level := gpio.High
			if !mv.clockwise {
				level = gpio.Low
			}
			if err := p.pins[i].Dir.Out(level); err != nil {
				return status.Detailf(status.MotorDriverFault, err.Error())
			}
		}

		delta := mv.steps
		if !mv.clockwise {
			delta = -delta
		}
		mot.AddSteps(delta)
		p.updatePower(mot, true)
	}

	p.moveQueued.Store(false)
	p.moveReady.Store(false)
	return status.New(status.OK)
}

// updatePower drives a motor's power-state machine: energize on first
// motion from idle, hold ACTIVE while moving, and leave the idle-timeout
// deenergize to a periodic caller (see PowerTimeoutTick) rather than this
// per-segment path (§4.5.2, §5 "Motor power state").
func (p *Pipeline) updatePower(mot *axis.Motor, moving bool) {
	switch {
	case moving:
		mot.SetPowerState(axis.PowerActive)
	case mot.PowerState() == axis.PowerOff:
		// stays off
	default:
		mot.SetPowerState(axis.PowerIdle)
	}
}

// PowerTimeoutTick deenergizes every motor that is IDLE when it is called
// (ALWAYS_POWERED motors excepted), standing in for the source's RTC
// power-down callback (§5 "Shared resources: Motor power state"). It keeps
// no idle timer and does not read MOTOR_IDLE_TIMEOUT: a motor goes OFF on
// the first call after it turns IDLE.
func (p *Pipeline) PowerTimeoutTick() {
	for i := range p.pins {
		mot := p.axes.Motor(i)
		if mot == nil {
			continue
		}
		if mot.PowerMode == axis.PowerAlwaysPowered {
			continue
		}
		if mot.PowerState() == axis.PowerIdle {
			mot.SetPowerState(axis.PowerOff)
		}
	}
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

// StartDwell begins a dwell countdown of the given duration (§4.5.4).
func (p *Pipeline) StartDwell(seconds float64) {
	p.dwellRemaining = seconds
	p.isDwelling = true
}

// TickDwell decrements the dwell countdown by one segment period and
// reports whether the dwell has expired.
func (p *Pipeline) TickDwell(segmentPeriod float64) (expired bool) {
	if !p.isDwelling {
		return true
	}
	p.dwellRemaining -= segmentPeriod
	if p.dwellRemaining <= 0 {
		p.isDwelling = false
		return true
	}
	return false
}

// ErrNoPinsConfigured reports a pipeline with no motor pin bindings.
// NewPipeline does not return it; it accepts an empty pin list.
var ErrNoPinsConfigured = errors.New("stepper: no motor pins configured")
