package runtime

import (
	"math"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"

	"github.com/buildbotics/motioncore/axis"
	"github.com/buildbotics/motioncore/logging"
	"github.com/buildbotics/motioncore/mstate"
	"github.com/buildbotics/motioncore/planner"
	"github.com/buildbotics/motioncore/status"
)

// Section identifies which third of a trapezoid move is executing.
type Section int

const (
	SectionHead Section = iota
	SectionBody
	SectionTail
)

func (s Section) String() string {
	switch s {
	case SectionHead:
		return "HEAD"
	case SectionBody:
		return "BODY"
	case SectionTail:
		return "TAIL"
	default:
		return "?"
	}
}

// Mover converts a segment target and duration into motor step commands,
// the hook the exec ISR calls into the stepper pipeline through
// (§4.4.2 step 4, runtime_move_to_target).
type Mover interface {
	MoveToTarget(target [axis.NumAxes]float64, segmentTime float64) status.Status
}

// Supervisor is the minimal view of the global state machine (C6) the
// executor needs: its current state, and the ability to report that a
// STOPPING deceleration has reached zero velocity.
type Supervisor interface {
	State() mstate.State
	EnterHolding()
}

// Exec is the runtime executor (C4): it dequeues one block at a time and
// emits fixed-duration segments along its head/body/tail sections.
type Exec struct {
	state  *State
	mover  Mover
	clock  clock.Clock
	cfg    planner.Config
	logger logging.Logger

	section    Section
	sectionNew bool

	unit         [axis.NumAxes]float64
	segmentStart [axis.NumAxes]float64
	headEnd      [axis.NumAxes]float64
	bodyEnd      [axis.NumAxes]float64
	tailEnd      [axis.NumAxes]float64

	segmentCount int
	segment      int
	segmentTime  float64
	segmentDelta float64
	segmentDist  float64
	constantV    bool

	holdPlanned bool
	abort       bool

	current *planner.Block
}

// NewExec constructs a runtime executor over the given runtime state.
func NewExec(state *State, mover Mover, clk clock.Clock, cfg planner.Config, logger logging.Logger) *Exec {
	if clk == nil {
		clk = clock.New()
	}
	return &Exec{state: state, mover: mover, clock: clk, cfg: cfg, logger: logger}
}

// Abort clears in-flight executor state, as E-stop requires (§5
// "Cancellation & timeout").
func (e *Exec) Abort() {
	e.abort = true
	e.current = nil
	e.holdPlanned = false
	e.state.SetVelocity(0)
	e.state.SetBusy(false)
}

// ExecMove is the per-tick entry point (§4.4.1, §4.4.4). It must emit at
// most one segment and return EAGAIN/OK/NOOP/error accordingly.
func (e *Exec) ExecMove(buf *planner.Buffer, sup Supervisor) status.Status {
	if e.abort {
		e.abort = false
	}

	switch sup.State() {
	case mstate.Estopped:
		e.state.SetVelocity(0)
		e.state.SetBusy(false)
		return status.New(status.NOOP)
	case mstate.Holding:
		e.state.SetVelocity(0)
		e.state.SetBusy(false)
		return status.New(status.NOOP)
	}

	blk := buf.GetHead()
	if blk == nil {
		e.state.SetVelocity(0)
		e.state.SetBusy(false)
		if sup.State() == mstate.Stopping {
			sup.EnterHolding()
		}
		return status.New(status.NOOP)
	}

	if blk.State == planner.StateNew {
		blk.State = planner.StateInit
		blk.SetReplannable(false)
		e.initBlock(blk)
		blk.State = planner.StateActive
	}

	if e.current != blk {
		e.current = blk
	}

	if blk.Kind == planner.KindDwell {
		return e.execDwell(buf, blk)
	}
	if blk.Kind == planner.KindCommand {
		return e.execCommand(buf, blk)
	}

	if sup.State() == mstate.Stopping && !e.holdPlanned {
		e.planHold(buf, blk)
	}

	st := e.execAline(blk, sup)

	switch st.Code {
	case status.OK:
		e.state.SetBusy(false)
		if blk.State == planner.StateRestart {
			blk.State = planner.StateOff
		}
		buf.Pop()
		if sup.State() == mstate.Stopping {
			sup.EnterHolding()
		}
		e.current = nil
		e.holdPlanned = false
		return status.New(status.OK)
	case status.EAGAIN:
		e.state.SetBusy(true)
		return status.New(status.EAGAIN)
	case status.MinimumTimeMove:
		return status.New(status.EAGAIN)
	default:
		return st
	}
}

// initBlock captures section waypoints from the block's head/body/tail
// lengths along its unit vector, starting from the runtime's current
// position (§4.4.4 "capture waypoints").
func (e *Exec) initBlock(blk *planner.Block) {
	e.unit = blk.Unit
	start := e.state.Position()

	e.headEnd = addScaled(start, blk.Unit, blk.HeadLength)
	e.bodyEnd = addScaled(e.headEnd, blk.Unit, blk.BodyLength)
	e.tailEnd = addScaled(e.bodyEnd, blk.Unit, blk.TailLength)

	e.section = SectionHead
	e.sectionNew = true
	e.segmentStart = start
	e.holdPlanned = false
}

func addScaled(base, unit [axis.NumAxes]float64, scale float64) [axis.NumAxes]float64 {
	var out [axis.NumAxes]float64
	for i := range out {
		out[i] = base[i] + unit[i]*scale
	}
	return out
}

// execAline runs the HEAD -> BODY -> TAIL dispatch chain for one segment
// (§4.4.2).
func (e *Exec) execAline(blk *planner.Block, sup Supervisor) status.Status {
	for {
		var length, vInit, vTerm float64
		var end [axis.NumAxes]float64

		switch e.section {
		case SectionHead:
			length, vInit, vTerm, end = blk.HeadLength, blk.Entry, blk.Cruise, e.headEnd
		case SectionBody:
			length, vInit, vTerm, end = blk.BodyLength, blk.Cruise, blk.Cruise, e.bodyEnd
		case SectionTail:
			length, vInit, vTerm, end = blk.TailLength, blk.Cruise, blk.Exit, e.tailEnd
		}

		st := e.execSection(length, vInit, vTerm, end)
		switch st.Code {
		case status.NOOP:
			// Zero-length section: fall through to the next section
			// within the same tick (§4.4.2 "NOOP->fallthrough-to-next").
			if !e.advanceSection(blk) {
				e.state.SetVelocity(vTerm)
				return status.New(status.OK)
			}
			continue
		case status.OK:
			if !e.advanceSection(blk) {
				e.state.SetVelocity(vTerm)
				return status.New(status.OK)
			}
			return status.New(status.EAGAIN)
		default:
			return st
		}
	}
}

func (e *Exec) advanceSection(blk *planner.Block) bool {
	switch e.section {
	case SectionHead:
		e.section = SectionBody
		e.segmentStart = e.headEnd
	case SectionBody:
		e.section = SectionTail
		e.segmentStart = e.bodyEnd
	case SectionTail:
		return false
	}
	e.sectionNew = true
	return true
}

// execSection implements exec_aline_section (§4.4.2).
func (e *Exec) execSection(length, vInit, vTerm float64, sectionEnd [axis.NumAxes]float64) status.Status {
	if length <= 0 {
		return status.New(status.NOOP)
	}

	if e.sectionNew {
		moveTime := 2 * length / (vInit + vTerm)
		if math.IsNaN(moveTime) || math.IsInf(moveTime, 0) || moveTime <= 0 {
			return status.New(status.NOOP)
		}
		segments := int(math.Ceil(moveTime / e.cfg.NomSegmentTime))
		if segments < 1 {
			segments = 1
		}
		segmentTime := moveTime / float64(segments)
		if segmentTime < e.cfg.MinSegmentTime {
			return status.New(status.MinimumTimeMove)
		}

		e.segmentCount = segments
		e.segment = 0
		e.segmentTime = segmentTime
		e.constantV = vInit == vTerm
		if e.constantV {
			e.segmentDelta = length / float64(segments)
		} else {
			e.segmentDelta = 1 / float64(segments+1)
		}
		e.segmentDist = 0
		e.sectionNew = false
	}

	e.segment++
	last := e.segment >= e.segmentCount

	var target [axis.NumAxes]float64
	if last {
		target = sectionEnd
	} else if e.constantV {
		e.segmentDist += e.segmentDelta
		target = addScaled(e.segmentStart, e.unit, e.segmentDist)
	} else {
		tau := float64(e.segment) * e.segmentDelta
		v := VelocityCurve(vInit, vTerm, tau)
		e.segmentDist += v * e.segmentTime
		target = addScaled(e.segmentStart, e.unit, e.segmentDist)
		e.state.SetVelocity(v)
	}

	if e.mover != nil {
		if st := e.mover.MoveToTarget(target, e.segmentTime); st.Code != status.OK {
			return st
		}
	}
	e.state.SetPosition(target)

	if last {
		e.state.SetVelocity(vTerm)
		return status.New(status.OK)
	}
	return status.New(status.EAGAIN)
}

// planHold replans the in-flight block to decelerate to zero, the three
// cases of §4.4.3. In Case 1 (braking distance fits within what remains of
// the block with room to spare) the block is shortened to stop at the
// braking point and the leftover distance is re-queued as a fresh block
// that resumes from zero entry velocity on request_start (§3.3 Lifecycle,
// §8 scenario 4, P8).
func (e *Exec) planHold(buf *planner.Buffer, blk *planner.Block) {
	current := e.state.Position()
	available := distance(blk.Target, current)
	v := e.state.Velocity()
	braking := planner.TargetLength(v, 0, blk.Jerk)

	switch {
	case math.Abs(available-braking) < e.cfg.HoldDecelerationTolerance:
		blk.TailLength = available
		blk.Exit = 0
	case braking <= available:
		e.queueHoldResidual(buf, blk, available-braking)
		blk.Target = addScaled(current, blk.Unit, braking)
		blk.Length = braking
		blk.TailLength = braking
		blk.Exit = 0
		blk.State = planner.StateRestart
	default:
		blk.TailLength = available
		blk.Exit = braking - planner.TargetVelocity(0, available, blk.Jerk)
		if blk.Exit < 0 {
			blk.Exit = 0
		}
	}

	e.tailEnd = blk.Target
	e.section = SectionTail
	e.sectionNew = true
	e.segmentStart = current
	e.holdPlanned = true
}

// queueHoldResidual pushes the undriven remainder of blk (from the braking
// stop point to blk's original target) onto the buffer as a fresh block,
// re-profiled from zero entry velocity to blk's original exit velocity.
// Dropped silently with a log warning if the buffer has no room, the same
// back-pressure behavior as any other push.
func (e *Exec) queueHoldResidual(buf *planner.Buffer, blk *planner.Block, residualLength float64) {
	if residualLength <= 1e-9 {
		return
	}

	slot, st := buf.GetTail()
	if !st.IsOK() {
		if e.logger != nil {
			e.logger.Warnw("feedhold residual dropped: buffer full", "trace", blk.Trace)
		}
		return
	}

	head, body, tail, cruise := planner.FitTrapezoid(0, blk.Cruise, blk.Exit, residualLength, blk.Jerk)
	*slot = planner.Block{
		Trace:      uuid.New(),
		Kind:       planner.KindLine,
		Line:       blk.Line,
		Flags:      blk.Flags,
		Target:     blk.Target,
		Unit:       blk.Unit,
		Length:     residualLength,
		HeadLength: head,
		BodyLength: body,
		TailLength: tail,
		Entry:      0,
		Cruise:     cruise,
		Exit:       blk.Exit,
		Jerk:       blk.Jerk,
		CbrtJerk:   blk.CbrtJerk,
	}
	buf.Push(slot)
}

func distance(a, b [axis.NumAxes]float64) float64 {
	var delta [axis.NumAxes]float64
	for i := range delta {
		delta[i] = a[i] - b[i]
	}
	return axis.VectorLength(delta)
}

func (e *Exec) execDwell(buf *planner.Buffer, blk *planner.Block) status.Status {
	remaining := blk.DwellSeconds - e.cfg.NomSegmentTime
	blk.DwellSeconds = remaining
	if remaining <= 0 {
		buf.Pop()
		e.current = nil
		return status.New(status.OK)
	}
	return status.New(status.EAGAIN)
}

func (e *Exec) execCommand(buf *planner.Buffer, blk *planner.Block) status.Status {
	var st status.Status
	if blk.Command != nil {
		if err := blk.Command(); err != nil {
			st = status.Detailf(status.InternalError, err.Error())
			buf.Pop()
			e.current = nil
			return st
		}
	}
	buf.Pop()
	e.current = nil
	return status.New(status.OK)
}
