package planner

import (
	"math"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/buildbotics/motioncore/axis"
	"github.com/buildbotics/motioncore/logging"
	"github.com/buildbotics/motioncore/status"
)

// LineInput is the parser-supplied description of one new move (§6.1
// plan_line).
type LineInput struct {
	Target       [axis.NumAxes]float64
	Rapid        bool
	InverseTime  bool
	ExactStop    bool
	FeedRate     float64
	FeedOverride float64
	Line         int
}

// Planner is the line planner (C3): it fills and replans blocks against
// the ring buffer it owns together with the axis/motor map.
type Planner struct {
	Buf    *Buffer
	axes   *axis.Map
	cfg    Config
	logger logging.Logger

	cache        jerkCache
	position     [axis.NumAxes]float64
	lastUnit     [axis.NumAxes]float64
	havePrevUnit bool
}

// NewPlanner constructs a line planner over the given axis map, owning a
// freshly allocated ring buffer sized per cfg.PoolSize.
func NewPlanner(axes *axis.Map, cfg Config, logger logging.Logger) *Planner {
	buf := NewBuffer(cfg.PoolSize, logger)
	buf.headroom = cfg.Headroom
	return &Planner{Buf: buf, axes: axes, cfg: cfg, logger: logger}
}

// Position returns the planner's last-known target position, the value
// set_position would overwrite (§6.1).
func (p *Planner) Position() [axis.NumAxes]float64 { return p.position }

// SetPosition forces the planner's last-known position without motion
// (§6.1 set_position) — used after an absolute-origin set or homing.
func (p *Planner) SetPosition(target [axis.NumAxes]float64) {
	p.position = target
	p.havePrevUnit = false
}

// FlushPlanner discards all queued blocks (§6.1 flush_planner). Callers
// are responsible for only invoking this when quiescent (§4.6.3).
func (p *Planner) FlushPlanner() {
	for !p.Buf.IsEmpty() {
		p.Buf.Pop()
	}
	p.havePrevUnit = false
}

// PlanLine computes a new block's parameters, appends it to the ring, and
// replans backward over the contiguous replannable tail (§4.3).
func (p *Planner) PlanLine(in LineInput) status.Status {
	var axisLength [axis.NumAxes]float64
	for i := range axisLength {
		d := in.Target[i] - p.position[i]
		if math.IsNaN(d) {
			return status.New(status.MoveTargetNaN)
		}
		if math.IsInf(d, 0) {
			return status.New(status.MoveTargetInfinite)
		}
		axisLength[i] = d
	}

	length := axis.VectorLength(axisLength)
	if length < 1e-9 {
		// Zero-length moves are dropped silently as OK (§4.3.1, §4.3.7).
		p.position = in.Target
		return status.New(status.OK)
	}

	var unit [axis.NumAxes]float64
	for i := range unit {
		unit[i] = axisLength[i] / length
	}

	if p.Buf.Room() <= 0 {
		return status.New(status.InternalError)
	}

	jerk, dom, ok := findJerkAxis(axisLength, unit, p.axes)
	if !ok {
		return status.New(status.ExpectedMove)
	}
	cbrtJerk := p.cache.cbrt(dom, jerk)

	moveTime := computeMoveTime(axisLength, in.FeedRate, in.FeedOverride, in.InverseTime, p.axes, p.cfg)
	cruiseVmax := length / moveTime

	vJunction := junctionReversalSentinel
	if p.havePrevUnit {
		vJunction = junctionVelocity(p.lastUnit, unit, p.cfg)
	}
	entryVmax := math.Min(cruiseVmax, vJunction)
	deltaVmax := targetVelocity(0, length, jerk)
	exitVmax := math.Min(cruiseVmax, entryVmax+deltaVmax)

	blk, st := p.Buf.GetTail()
	if st.Code != status.OK {
		return st
	}

	blk.Trace = uuid.New()
	blk.Kind = KindLine
	blk.Line = in.Line
	blk.Target = in.Target
	blk.Unit = unit
	blk.Length = length
	blk.Jerk = jerk
	blk.CbrtJerk = cbrtJerk
	blk.EntryVmax = entryVmax
	blk.CruiseVmax = cruiseVmax
	blk.ExitVmax = exitVmax
	blk.DeltaVmax = deltaVmax
	blk.Cruise = cruiseVmax
	blk.Entry = 0
	blk.Exit = exitVmax

	blk.Flags = 0
	if in.Rapid {
		blk.Flags |= FlagRapid
	}
	if in.InverseTime {
		blk.Flags |= FlagInverseTime
	}
	if in.ExactStop {
		blk.Flags |= FlagExactStop
		blk.EntryVmax = 0
		blk.ExitVmax = 0
		blk.Entry = 0
		blk.Exit = 0
		blk.SetReplannable(false)
	} else {
		blk.SetReplannable(true)
	}

	fit := fitTrapezoid(blk.Entry, blk.Cruise, blk.Exit, blk.Length, blk.Jerk)
	blk.HeadLength = fit.HeadLength
	blk.BodyLength = fit.BodyLength
	blk.TailLength = fit.TailLength
	blk.Cruise = fit.Cruise

	p.Buf.Push(blk)
	p.position = in.Target
	p.lastUnit = unit
	p.havePrevUnit = true

	p.replan()

	if p.logger != nil {
		p.logger.Debugw("plan_line", "trace", blk.Trace, "length", length, "dom_axis", dom.String(),
			"cruise_vmax", cruiseVmax, "entry_vmax", entryVmax, "exit_vmax", exitVmax)
	}

	return status.New(status.OK)
}

// PlanDwell appends a dwell block (§6.1 plan_dwell, §9 BlockKind).
func (p *Planner) PlanDwell(seconds float64) status.Status {
	if p.Buf.Room() <= 0 {
		return status.New(status.InternalError)
	}
	blk, st := p.Buf.GetTail()
	if st.Code != status.OK {
		return st
	}
	blk.Trace = uuid.New()
	blk.Kind = KindDwell
	blk.DwellSeconds = seconds
	blk.SetReplannable(false)
	p.Buf.Push(blk)
	return status.New(status.OK)
}

// PlanCommand appends an internal command block (jog step, calibration
// step) via the nonstop path: it does not participate in replanning and
// does not force the state machine into RUNNING (§4.2).
func (p *Planner) PlanCommand(cmd Command) status.Status {
	if p.Buf.Room() <= 0 {
		return status.New(status.InternalError)
	}
	blk, st := p.Buf.GetTail()
	if st.Code != status.OK {
		return st
	}
	blk.Trace = uuid.New()
	blk.Kind = KindCommand
	blk.Command = cmd
	blk.SetReplannable(false)
	p.Buf.Push(blk)
	return status.New(status.OK)
}

// Replan re-runs the backward/forward look-ahead pass over the entire
// contiguous replannable suffix, the "full backward-replan from current
// position" §4.6.1 requires on HOLDING -> RUNNING (start request).
func (p *Planner) Replan() { p.replan() }

// replan performs the backward/forward look-ahead pass over the
// contiguous replannable suffix of the ring, per §4.3.6.
func (p *Planner) replan() {
	n := p.Buf.Fill()
	if n < 2 {
		return
	}

	boundary := 0
	for idx := n - 2; idx >= 1; idx-- {
		blk, err := p.Buf.SlotAt(idx)
		if err != nil {
			return
		}
		if !blk.Replannable() {
			boundary = idx
			break
		}
	}

	// Backward pass: propagate achievable exit_vmax from tail toward
	// boundary using each successor's current entry estimate.
	for idx := n - 2; idx > boundary; idx-- {
		cur, err := p.Buf.SlotAt(idx)
		if err != nil {
			return
		}
		next, err := p.Buf.SlotAt(idx + 1)
		if err != nil {
			return
		}
		if !cur.Replannable() {
			continue
		}
		cur.ExitVmax = math.Min(cur.CruiseVmax, next.Entry+cur.DeltaVmax)
		if cur.Exit > cur.ExitVmax {
			cur.Exit = cur.ExitVmax
		}
	}

	// Forward pass: set entry from the previous block's exit, re-fit.
	for idx := boundary + 1; idx < n; idx++ {
		cur, err := p.Buf.SlotAt(idx)
		if err != nil {
			return
		}
		prev, err := p.Buf.SlotAt(idx - 1)
		if err != nil {
			return
		}
		if !cur.Replannable() && idx != n-1 {
			continue
		}
		cur.Entry = math.Min(cur.EntryVmax, prev.Exit)
		if cur.Entry > cur.Cruise {
			cur.Entry = cur.Cruise
		}
		if cur.Exit > cur.Cruise {
			cur.Exit = cur.Cruise
		}
		fit := fitTrapezoid(cur.Entry, cur.Cruise, cur.Exit, cur.Length, cur.Jerk)
		cur.HeadLength = fit.HeadLength
		cur.BodyLength = fit.BodyLength
		cur.TailLength = fit.TailLength
		cur.Cruise = fit.Cruise
	}
}

// ErrQueueFull is returned by callers (not PlanLine itself) that choose to
// surface back-pressure as an error rather than block.
var ErrQueueFull = errors.New("planner: ring buffer full")
