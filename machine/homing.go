package machine

import (
	"github.com/buildbotics/motioncore/axis"
	"github.com/buildbotics/motioncore/logging"
	"github.com/buildbotics/motioncore/mstate"
	"github.com/buildbotics/motioncore/planner"
	"github.com/buildbotics/motioncore/runtime"
	"github.com/buildbotics/motioncore/status"
	"github.com/buildbotics/motioncore/switchio"
)

// HomingPhase is the tagged variant replacing the source's
// function-pointer homing callbacks (SPEC_FULL.md §A, spec.md §9).
type HomingPhase int

const (
	PhaseIdle HomingPhase = iota
	PhaseClear
	PhaseSearch
	PhaseLatch
	PhaseZeroBackoff
	PhaseSetZero
	PhaseDone
	PhaseAbort
)

func (p HomingPhase) String() string {
	switch p {
	case PhaseIdle:
		return "IDLE"
	case PhaseClear:
		return "CLEAR"
	case PhaseSearch:
		return "SEARCH"
	case PhaseLatch:
		return "LATCH"
	case PhaseZeroBackoff:
		return "ZERO_BACKOFF"
	case PhaseSetZero:
		return "SET_ZERO"
	case PhaseDone:
		return "DONE"
	case PhaseAbort:
		return "ABORT"
	default:
		return "?"
	}
}

// homingOrder is the fixed Z, X, Y, A fallthrough order (§4.6.4, "B, C
// never home"), recovered verbatim from original_source/avr/src/homing.c
// _get_next_axis.
var homingOrder = []axis.ID{axis.Z, axis.X, axis.Y, axis.A}

// savedModal is the modal G-code state homing preserves and restores
// (§3.1 "Homing context").
type savedModal struct {
	feedRate     float64
	feedMode     runtime.FeedMode
	jerk         [axis.NumAxes]float64
}

// Homing drives the homing sub-state machine (cycle = HOMING, §4.6.4).
type Homing struct {
	axes     *axis.Map
	rt       *runtime.State
	mover    runtime.Mover
	switches *switchio.Reader
	sm       *StateMachine
	cfg      planner.Config
	logger   logging.Logger

	phase    HomingPhase
	order    []axis.ID
	orderIdx int
	current  axis.ID
	setZero  bool // false for the G28.4 no-set variant (§C.2)

	saved savedModal

	switchID     switchio.ID
	searchTravel float64
	latchBackoff float64
	zeroBackoff  float64

	result status.Status
}

// NewHoming constructs a homing cycle driver. Like Jog and Calibrate, it
// drives real motion through mover (the stepper pipeline) rather than
// teleporting the runtime position.
func NewHoming(axes *axis.Map, rt *runtime.State, mover runtime.Mover, switches *switchio.Reader, sm *StateMachine, cfg planner.Config, logger logging.Logger) *Homing {
	return &Homing{axes: axes, rt: rt, mover: mover, switches: switches, sm: sm, cfg: cfg, logger: logger, phase: PhaseIdle}
}

// Start begins homing the given axes (in fixed Z,X,Y,A order, skipping
// axes not present in the set) as a normal (position-zeroing) cycle.
func (h *Homing) Start(axesToHome map[axis.ID]bool) status.Status {
	return h.start(axesToHome, true)
}

// StartNoSet begins homing without zeroing position — the G28.4 variant
// (§C.2) — reporting the current work position instead.
func (h *Homing) StartNoSet(axesToHome map[axis.ID]bool) status.Status {
	return h.start(axesToHome, false)
}

func (h *Homing) start(axesToHome map[axis.ID]bool, setZero bool) status.Status {
	var order []axis.ID
	for _, id := range homingOrder {
		if axesToHome[id] {
			order = append(order, id)
		}
	}
	if len(order) == 0 {
		return status.New(status.HomingErrorBadOrNoAxis)
	}

	h.order = order
	h.orderIdx = 0
	h.setZero = setZero
	h.saved = h.captureModal()

	if st := h.sm.SetCycle(mstate.Homing); !st.IsOK() {
		return st
	}
	if st := h.beginAxis(order[0]); !st.IsOK() {
		h.abort(st)
		return st
	}
	return status.New(status.OK)
}

func (h *Homing) captureModal() savedModal {
	s := savedModal{feedRate: h.rt.FeedRate, feedMode: h.rt.FeedMode}
	for i := 0; i < axis.NumAxes; i++ {
		s.jerk[i] = h.axes.Axis(axis.ID(i)).JerkMax()
	}
	return s
}

func (h *Homing) restoreModal() {
	h.rt.FeedRate = h.saved.feedRate
	h.rt.FeedMode = h.saved.feedMode
	for i := 0; i < axis.NumAxes; i++ {
		h.axes.Axis(axis.ID(i)).SetJerkMax(h.saved.jerk[i])
	}
}

// beginAxis validates an axis's homing parameters and enters CLEAR
// (§4.6.4 steps 1-4; error conditions per the source's _homing_axis_start).
func (h *Homing) beginAxis(id axis.ID) status.Status {
	d := h.axes.Axis(id)

	if d.SearchVelocity == 0 {
		return status.New(status.HomingErrorZeroSearchVelocity)
	}
	if d.LatchVelocity == 0 {
		return status.New(status.HomingErrorZeroLatchVelocity)
	}
	if d.LatchBackoff < 0 {
		return status.New(status.HomingErrorNegativeLatchBackoff)
	}
	if d.TravelMin == d.TravelMax {
		return status.New(status.HomingErrorTravelMinMaxIdentical)
	}

	h.current = id
	switch d.HomingMode {
	case axis.HomingSwitchMin, axis.HomingStallMin:
		h.switchID = switchio.MinSwitch(id)
		h.searchTravel = -(d.TravelMax - d.TravelMin + d.LatchBackoff)
		h.latchBackoff = d.LatchBackoff
		h.zeroBackoff = d.ZeroBackoff
	case axis.HomingSwitchMax, axis.HomingStallMax:
		h.switchID = switchio.MaxSwitch(id)
		h.searchTravel = d.TravelMax - d.TravelMin + d.LatchBackoff
		h.latchBackoff = -d.LatchBackoff
		h.zeroBackoff = -d.ZeroBackoff
	default:
		return h.advanceToNextAxis()
	}

	h.phase = PhaseClear
	return status.New(status.OK)
}

// Step advances the homing state machine by one phase, mirroring the
// source's per-phase callback chain (§4.6.4, §9 "tagged variant
// HomingPhase and a step() method that dispatches"). The main loop calls
// Step repeatedly while cycle == HOMING and the machine is READY.
func (h *Homing) Step() status.Status {
	switch h.phase {
	case PhaseClear:
		return h.stepClear()
	case PhaseSearch:
		return h.stepSearch()
	case PhaseLatch:
		return h.stepLatch()
	case PhaseZeroBackoff:
		return h.stepZeroBackoff()
	case PhaseSetZero:
		return h.stepSetZero()
	default:
		return status.New(status.NOOP)
	}
}

func (h *Homing) stepClear() status.Status {
	if h.switches.IsActive(h.switchID) {
		h.moveAxis(h.current, h.latchBackoff)
	}
	h.phase = PhaseSearch
	return status.New(status.EAGAIN)
}

func (h *Homing) stepSearch() status.Status {
	// Drive toward the switch; a real controller interrupts this move the
	// instant the switch closes (hardware feedhold). The host-side
	// simulation instead checks after the full search travel, which is
	// equivalent for a switch assumed to sit within search_travel.
	h.moveAxis(h.current, h.searchTravel)
	h.phase = PhaseLatch
	return status.New(status.EAGAIN)
}

func (h *Homing) stepLatch() status.Status {
	if !h.switches.IsActive(h.switchID) {
		st := status.New(status.HomingCycleFailed)
		h.abort(st)
		return st
	}
	h.moveAxis(h.current, h.latchBackoff)
	h.phase = PhaseZeroBackoff
	return status.New(status.EAGAIN)
}

func (h *Homing) stepZeroBackoff() status.Status {
	h.moveAxis(h.current, h.zeroBackoff)
	h.phase = PhaseSetZero
	return status.New(status.EAGAIN)
}

func (h *Homing) stepSetZero() status.Status {
	d := h.axes.Axis(h.current)
	pos := h.rt.Position()
	if h.setZero {
		pos[h.current] = 0
		h.rt.SetPosition(pos)
	}
	d.Homed = true
	d.SetJerkMax(h.saved.jerk[h.current])

	return h.advanceToNextAxis()
}

func (h *Homing) advanceToNextAxis() status.Status {
	h.orderIdx++
	if h.orderIdx >= len(h.order) {
		h.phase = PhaseDone
		h.restoreModal()
		h.sm.SetCycle(mstate.Machining)
		h.result = status.New(status.OK)
		return status.New(status.OK)
	}
	st := h.beginAxis(h.order[h.orderIdx])
	if !st.IsOK() {
		h.abort(st)
		return st
	}
	return status.New(status.EAGAIN)
}

func (h *Homing) abort(st status.Status) {
	h.phase = PhaseAbort
	h.restoreModal()
	h.sm.SetCycle(mstate.Machining)
	h.result = st
	if h.logger != nil {
		h.logger.Warnw("homing aborted", "axis", h.current.String(), "status", st.Error())
	}
}

// moveAxis advances a single axis's position by delta mm, driven through
// mover (the stepper pipeline) exactly as Jog and Calibrate drive their
// moves — a simplified stand-in for queuing a feed move through the
// planner and waiting for it to complete, reasonable for a host-side
// simulation that has no real interrupt-driven feedhold to race against.
// The runtime position is always updated, as runtime.Exec itself does
// (mover only produces step pulses; it never owns logical position), since
// later homing phases read it back to accumulate further moves.
func (h *Homing) moveAxis(id axis.ID, delta float64) {
	pos := h.rt.Position()
	pos[id] += delta
	if h.mover != nil {
		if st := h.mover.MoveToTarget(pos, h.cfg.SegmentTime); !st.IsOK() {
			if h.logger != nil {
				h.logger.Warnw("homing move failed", "axis", id.String(), "status", st.Error())
			}
		}
	}
	h.rt.SetPosition(pos)
}

// Phase returns the current homing phase, for introspection/tests.
func (h *Homing) Phase() HomingPhase { return h.phase }

// Result returns the final status once Phase() is Done or Abort.
func (h *Homing) Result() status.Status { return h.result }

// Done reports whether the homing cycle has finished (successfully or
// not).
func (h *Homing) Done() bool { return h.phase == PhaseDone || h.phase == PhaseAbort }
