package machine

import (
	"math"
	"sync"

	"golang.org/x/time/rate"

	"github.com/buildbotics/motioncore/axis"
	"github.com/buildbotics/motioncore/logging"
	"github.com/buildbotics/motioncore/mstate"
	"github.com/buildbotics/motioncore/planner"
	"github.com/buildbotics/motioncore/runtime"
	"github.com/buildbotics/motioncore/status"
)

// JogMinVelocity is the threshold below which a commanded or in-progress
// jog axis velocity is treated as zero (§4.6.5), grounded on
// original_source/avr/src/plan/jog.c's JOG_MIN_VELOCITY guard.
const JogMinVelocity = 1.0 // mm/min or deg/min

// JogJerkMult scales axis jerk up for jog ramps relative to machining
// moves, grounded on jog.c's JOG_JERK_MULT factor applied to
// mp_get_target_length.
const JogJerkMult = 3.0

type jogAxisState struct {
	next    float64
	target  float64
	velocity float64
	sign    float64
	changed bool

	initial float64
	t       float64
	delta   float64
}

// Jog drives the per-axis jerk-limited velocity ramp of §4.6.5. Unlike
// machining moves it bypasses the planner ring entirely: Tick is called
// once per segment period directly by the main loop while cycle ==
// JOGGING, mirroring the source's _exec_jog nonstop buffer callback but
// expressed as an explicit method instead of a queued function pointer.
type Jog struct {
	mu sync.Mutex

	axes   *axis.Map
	rt     *runtime.State
	mover  runtime.Mover
	sm     *StateMachine
	cfg    planner.Config
	logger logging.Logger

	limiter *rate.Limiter

	writing bool
	done    bool
	axesSt  [axis.NumAxes]jogAxisState
}

// NewJog constructs a jog driver. limiter throttles how often SetTargets
// may accept new input (a host-side concern the 8-bit source never had:
// nothing there rate-limited input from a USB HID device).
func NewJog(axes *axis.Map, rt *runtime.State, mover runtime.Mover, sm *StateMachine, cfg planner.Config, logger logging.Logger) *Jog {
	return &Jog{
		axes:    axes,
		rt:      rt,
		mover:   mover,
		sm:      sm,
		cfg:     cfg,
		logger:  logger,
		limiter: rate.NewLimiter(rate.Limit(50), 10),
	}
}

// SetTargets accepts new normalized [-1,1] per-axis jog velocities,
// equivalent to command_jog (§6.1 jog). It is gated to JOGGING cycle, or
// READY+MACHINING on the first call of a jog session.
func (j *Jog) SetTargets(normalized [axis.NumAxes]float64) status.Status {
	if !j.limiter.Allow() {
		return status.New(status.NOOP)
	}

	cycle := j.sm.Cycle()
	state := j.sm.State()
	if cycle != mstate.Jogging && !(state == mstate.Ready && cycle == mstate.Machining) {
		return status.New(status.NOOP)
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	starting := cycle != mstate.Jogging
	if starting {
		j.axesSt = [axis.NumAxes]jogAxisState{}
		j.done = false
	}

	j.writing = true
	for i := 0; i < axis.NumAxes; i++ {
		j.axesSt[i].next = normalized[i]
	}
	j.writing = false

	if starting {
		if st := j.sm.SetCycle(mstate.Jogging); !st.IsOK() {
			return st
		}
	}

	return status.New(status.OK)
}

// nextAxisVelocity implements _next_axis_velocity: brakes to zero on a
// sign change, snaps sub-threshold velocities to zero, and reports
// whether the target changed.
func (j *Jog) nextAxisVelocity(id axis.ID) bool {
	a := &j.axesSt[id]
	d := j.axes.Axis(id)

	vn := a.next * d.VelocityMax
	vi := a.velocity

	if JogMinVelocity < math.Abs(vn) {
		j.done = false
	}

	if vi != 0 && (vn < 0) != (vi < 0) {
		vn = 0 // brake to zero on sign reversal before reversing
	}
	if math.Abs(vn) < JogMinVelocity {
		vn = 0
	}

	if a.target == vn {
		return false
	}

	a.target = vn
	if vn != 0 {
		if vn < 0 {
			a.sign = -1
		} else {
			a.sign = 1
		}
	}
	return true
}

// computeAxisVelocity implements _compute_axis_velocity: a jerk-limited
// quintic Bezier ramp from the current to the target magnitude.
func (j *Jog) computeAxisVelocity(id axis.ID) float64 {
	a := &j.axesSt[id]
	d := j.axes.Axis(id)

	v := math.Abs(a.velocity)
	vt := math.Abs(a.target)

	if JogMinVelocity < vt {
		j.done = false
	}
	if v == vt {
		return vt
	}

	if a.changed {
		jerk := d.JerkMax() * axis.JerkMultiplier
		length := planner.TargetLength(v, vt, jerk*JogJerkMult)
		moveTime := 2 * length / (v + vt)

		if moveTime <= j.cfg.SegmentTime {
			return vt
		}

		a.initial = v
		a.delta = j.cfg.SegmentTime / moveTime
		a.t = a.delta
	}

	if a.t <= 0 {
		return v
	}
	if 1 <= a.t {
		return vt
	}

	v = runtime.VelocityCurve(a.initial, vt, a.t)
	a.t += a.delta
	return v
}

// Tick advances the jog ramp by one segment period, returning NOOP once
// every axis has settled (§4.6.5).
func (j *Jog) Tick() status.Status {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.done = true

	if !j.writing {
		for i := 0; i < axis.NumAxes; i++ {
			id := axis.ID(i)
			if !j.axes.IsEnabled(id) {
				continue
			}
			j.axesSt[i].changed = j.nextAxisVelocity(id)
		}
	}

	var velocitySqr float64
	for i := 0; i < axis.NumAxes; i++ {
		id := axis.ID(i)
		if !j.axes.IsEnabled(id) {
			continue
		}
		v := j.computeAxisVelocity(id)
		velocitySqr += v * v
		j.axesSt[i].velocity = v * j.axesSt[i].sign
		if JogMinVelocity < v {
			j.done = false
		}
	}

	if j.done {
		j.sm.SetCycle(mstate.Machining)
		j.rt.SetVelocity(0)
		return status.New(status.NOOP)
	}

	pos := j.rt.Position()
	var target [axis.NumAxes]float64
	for i := range target {
		target[i] = pos[i] + j.axesSt[i].velocity*j.cfg.SegmentTime
	}

	j.rt.SetVelocity(math.Sqrt(velocitySqr))
	if j.mover != nil {
		if st := j.mover.MoveToTarget(target, j.cfg.SegmentTime); !st.IsOK() {
			return st
		}
	} else {
		j.rt.SetPosition(target)
	}

	return status.New(status.EAGAIN)
}

// Done reports whether the last Tick settled all axes to zero velocity.
func (j *Jog) Done() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.done
}
