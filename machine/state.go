// Package machine implements the state & cycle machine (C6): global
// planner state (READY/RUNNING/STOPPING/HOLDING/ESTOPPED), cycle
// arbitration (machining/homing/jogging/calibration), and the request-flag
// reconciliation that ties them to the planner and runtime executor.
package machine

import (
	"sync"

	"github.com/buildbotics/motioncore/logging"
	"github.com/buildbotics/motioncore/mstate"
	"github.com/buildbotics/motioncore/planner"
	"github.com/buildbotics/motioncore/runtime"
	"github.com/buildbotics/motioncore/status"
)

// runtimeIdleChecker is the subset of runtime.State the state machine
// needs to judge quiescence.
type runtimeIdleChecker interface {
	Busy() bool
}

// stepperIdleChecker is the subset of stepper.Pipeline the state machine
// needs to judge quiescence.
type stepperIdleChecker interface {
	IsBusy() bool
}

// SpindleStopper stops the spindle on flush (an external collaborator;
// see spec.md §1 OUT OF SCOPE spindle/coolant I/O — the state machine only
// calls the hook).
type SpindleStopper interface {
	StopSpindle()
}

// requestFlags are the four idempotent request flags plus optional-pause
// and single-step (§4.6.3).
type requestFlags struct {
	hold           bool
	flush          bool
	start          bool
	resume         bool
	optionalPause  bool
	step           bool
}

// StateMachine is the global planner state machine (C6).
type StateMachine struct {
	mu sync.Mutex

	state      mstate.State
	cycle      mstate.Cycle
	holdReason mstate.HoldReason
	flags      requestFlags

	planner *planner.Planner
	rt      runtimeIdleChecker
	st      stepperIdleChecker
	spindle SpindleStopper
	logger  logging.Logger
}

// NewStateMachine constructs a state machine starting READY/MACHINING.
func NewStateMachine(p *planner.Planner, rt runtimeIdleChecker, st stepperIdleChecker, spindle SpindleStopper, logger logging.Logger) *StateMachine {
	return &StateMachine{planner: p, rt: rt, st: st, spindle: spindle, logger: logger}
}

// State returns the current global state.
func (sm *StateMachine) State() mstate.State {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.state
}

// Cycle returns the current cycle mode.
func (sm *StateMachine) Cycle() mstate.Cycle {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.cycle
}

// HoldReason returns why the machine last entered STOPPING/HOLDING.
func (sm *StateMachine) HoldReason() mstate.HoldReason {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.holdReason
}

// IsFlushing reports whether a flush request is pending.
func (sm *StateMachine) IsFlushing() bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.flags.flush
}

// IsQuiescent reports (READY ∨ HOLDING) ∧ stepper-idle ∧ runtime-idle
// (§4.6.3).
func (sm *StateMachine) IsQuiescent() bool {
	sm.mu.Lock()
	s := sm.state
	sm.mu.Unlock()

	if s != mstate.Ready && s != mstate.Holding {
		return false
	}
	if sm.st != nil && sm.st.IsBusy() {
		return false
	}
	if sm.rt != nil && sm.rt.Busy() {
		return false
	}
	return true
}

// SetCycle enforces the only-MACHINING<->X legality of §4.6.2.
func (sm *StateMachine) SetCycle(c mstate.Cycle) status.Status {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.cycle != mstate.Machining && c != mstate.Machining {
		return status.New(status.InternalError)
	}
	if sm.cycle == c {
		return status.New(status.OK)
	}
	if sm.logger != nil {
		sm.logger.Infow("cycle transition", "from", sm.cycle.String(), "to", c.String())
	}
	sm.cycle = c
	return status.New(status.OK)
}

// RequestHold, RequestFlush, RequestStart, RequestResume,
// RequestOptionalPause, and RequestStep set their respective idempotent
// flags (§6.1).
func (sm *StateMachine) RequestHold() {
	sm.mu.Lock()
	sm.flags.hold = true
	sm.mu.Unlock()
}

func (sm *StateMachine) RequestFlush() {
	sm.mu.Lock()
	sm.flags.flush = true
	sm.mu.Unlock()
}

func (sm *StateMachine) RequestStart() {
	sm.mu.Lock()
	sm.flags.start = true
	sm.mu.Unlock()
}

func (sm *StateMachine) RequestResume() {
	sm.mu.Lock()
	sm.flags.resume = true
	sm.mu.Unlock()
}

func (sm *StateMachine) RequestOptionalPause() {
	sm.mu.Lock()
	sm.flags.optionalPause = true
	sm.mu.Unlock()
}

func (sm *StateMachine) RequestStep() {
	sm.mu.Lock()
	sm.flags.step = true
	sm.mu.Unlock()
}

// NotifyPush transitions READY -> RUNNING on the first push into the
// planner ring (§4.6.1). nonstop pushes (jog, calibrate commands) must
// not call this.
func (sm *StateMachine) NotifyPush() {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if sm.state == mstate.Ready {
		sm.state = mstate.Running
	}
}

// EnterHolding implements runtime.Supervisor: the executor calls this
// once its STOPPING deceleration reaches zero velocity.
func (sm *StateMachine) EnterHolding() {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if sm.state == mstate.Stopping {
		sm.state = mstate.Holding
		if sm.logger != nil {
			sm.logger.Infow("state transition", "from", "STOPPING", "to", "HOLDING")
		}
	}
}

var _ runtime.Supervisor = (*StateMachine)(nil)

// Estop forces ESTOPPED immediately, runs abort if it is non-nil, and
// latches until Reset (§7 "E-stop is always fatal"). It does not itself
// touch the stepper prep buffer or motor power; those change only as far
// as abort changes them.
func (sm *StateMachine) Estop(abort func()) {
	sm.mu.Lock()
	sm.state = mstate.Estopped
	sm.mu.Unlock()
	if abort != nil {
		abort()
	}
	if sm.logger != nil {
		sm.logger.Errorw("estop latched")
	}
}

// Reset clears ESTOPPED, the only external recovery path (§7).
func (sm *StateMachine) Reset() {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.state = mstate.Ready
	sm.cycle = mstate.Machining
	sm.holdReason = mstate.HoldNone
	sm.flags = requestFlags{}
}

// Reconcile is the per-main-loop-iteration request-flag reconciliation of
// §4.6.3's table.
func (sm *StateMachine) Reconcile() {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.state == mstate.Estopped {
		return
	}

	if sm.flags.hold {
		switch sm.state {
		case mstate.Running:
			sm.state = mstate.Stopping
			sm.holdReason = mstate.HoldUserPause
			sm.flags.hold = false
		default:
			sm.flags.hold = false
		}
	}

	if sm.flags.start {
		if sm.state == mstate.Running {
			sm.flags.start = false
		} else if sm.state == mstate.Holding && !sm.flags.flush {
			if sm.planner != nil {
				sm.planner.Replan()
			}
			sm.flags.start = false
			if sm.planner != nil && sm.planner.Buf.IsEmpty() {
				sm.state = mstate.Ready
			} else {
				sm.state = mstate.Running
			}
		}
	}

	if sm.flags.flush {
		quiescentNow := (sm.state == mstate.Ready || sm.state == mstate.Holding) &&
			(sm.st == nil || !sm.st.IsBusy()) && (sm.rt == nil || !sm.rt.Busy())
		if quiescentNow {
			if sm.planner != nil {
				sm.planner.FlushPlanner()
			}
			if sm.spindle != nil {
				sm.spindle.StopSpindle()
			}
			sm.flags.flush = false
			if sm.flags.resume {
				sm.state = mstate.Ready
				sm.flags.resume = false
			}
		}
	}
}
