package machine

import (
	"github.com/buildbotics/motioncore/axis"
	"github.com/buildbotics/motioncore/logging"
	"github.com/buildbotics/motioncore/mstate"
	"github.com/buildbotics/motioncore/planner"
	"github.com/buildbotics/motioncore/runtime"
	"github.com/buildbotics/motioncore/status"
)

// Plane selects the active arc/compensation plane (G17/G18/G19).
type Plane int

const (
	PlaneXY Plane = iota
	PlaneXZ
	PlaneYZ
)

func (p Plane) String() string {
	switch p {
	case PlaneXY:
		return "XY"
	case PlaneXZ:
		return "XZ"
	case PlaneYZ:
		return "YZ"
	default:
		return "?"
	}
}

// Units selects the active unit system (G20/G21).
type Units int

const (
	Millimeters Units = iota
	Inches
)

func (u Units) String() string {
	if u == Inches {
		return "INCHES"
	}
	return "MILLIMETERS"
}

// DistanceMode selects absolute (G90) or incremental (G91) target
// interpretation.
type DistanceMode int

const (
	Absolute DistanceMode = iota
	Incremental
)

func (d DistanceMode) String() string {
	if d == Incremental {
		return "INCREMENTAL"
	}
	return "ABSOLUTE"
}

// CoordSystem selects the active work coordinate system (G53-G59.3), one
// of the seven NIST coordinate systems plus the machine (absolute) frame.
type CoordSystem int

const (
	AbsoluteCoords CoordSystem = iota
	G54
	G55
	G56
	G57
	G58
	G59
	numCoordSystems
)

func (c CoordSystem) String() string {
	switch c {
	case AbsoluteCoords:
		return "ABSOLUTE"
	case G54:
		return "G54"
	case G55:
		return "G55"
	case G56:
		return "G56"
	case G57:
		return "G57"
	case G58:
		return "G58"
	case G59:
		return "G59"
	default:
		return "?"
	}
}

// ProgramFlow names the program-flow stop variants of gcode_state.h's
// program_flow_t (§6.2 "program-flow stops").
type ProgramFlow int

const (
	ProgramRunning ProgramFlow = iota
	ProgramStop
	ProgramOptionalStop
	ProgramPalletChangeStop
	ProgramEnd
)

// Machine wraps the line planner with NIST-RS274NGC modal-state semantics
// (§6.2), grounded on original_source/avr/src/machine.h's declarations and
// gcode_state.h/gcode_state.c's modal enums. The parser is the only
// intended caller; it never touches planner.Planner directly.
type Machine struct {
	planner *planner.Planner
	rt      *runtime.State
	axes    *axis.Map
	sm      *StateMachine
	homing  *Homing
	logger  logging.Logger

	plane        Plane
	units        Units
	distanceMode DistanceMode
	coordSystem  CoordSystem
	coordOffsets [numCoordSystems][axis.NumAxes]float64

	flow ProgramFlow
}

// NewMachine constructs a Machine starting in the NIST default modal state:
// plane XY, millimeters, absolute distance mode, G54, running.
func NewMachine(p *planner.Planner, rt *runtime.State, axes *axis.Map, sm *StateMachine, homing *Homing, logger logging.Logger) *Machine {
	return &Machine{
		planner:      p,
		rt:           rt,
		axes:         axes,
		sm:           sm,
		homing:       homing,
		logger:       logger,
		plane:        PlaneXY,
		units:        Millimeters,
		distanceMode: Absolute,
		coordSystem:  G54,
		flow:         ProgramRunning,
	}
}

// SetPlane sets the active arc plane (G17/G18/G19).
func (m *Machine) SetPlane(p Plane) { m.plane = p }

// Plane returns the active arc plane.
func (m *Machine) Plane() Plane { return m.plane }

// SetUnits sets the active unit system (G20/G21). Unlike the source, this
// implementation keeps all internal state in millimeters always; Units is
// recorded only for modal reporting. The homing cycle neither forces nor
// restores it: homing saves and restores only feed rate, feed mode and
// per-axis jerk.
func (m *Machine) SetUnits(u Units) { m.units = u }

// Units returns the active unit system.
func (m *Machine) Units() Units { return m.units }

// SetDistanceMode sets absolute (G90) or incremental (G91) target
// interpretation.
func (m *Machine) SetDistanceMode(d DistanceMode) { m.distanceMode = d }

// DistanceMode returns the active distance mode.
func (m *Machine) DistanceMode() DistanceMode { return m.distanceMode }

// SetCoordOffsets sets the per-axis work offset for a coordinate system
// (G10 L2 / G54-G59.3), updating the active work offset immediately if cs
// is the currently selected system.
func (m *Machine) SetCoordOffsets(cs CoordSystem, offsets [axis.NumAxes]float64) {
	if cs < 0 || int(cs) >= numCoordSystems {
		return
	}
	m.coordOffsets[cs] = offsets
	if cs == m.coordSystem {
		m.rt.SetWorkOffset(offsets)
	}
}

// SelectCoordSystem activates a work coordinate system (G54-G59.3),
// applying its stored offsets to the runtime state.
func (m *Machine) SelectCoordSystem(cs CoordSystem) status.Status {
	if cs < 0 || int(cs) >= numCoordSystems {
		return status.New(status.InternalError)
	}
	m.coordSystem = cs
	m.rt.SetWorkOffset(m.coordOffsets[cs])
	return status.New(status.OK)
}

// CoordSystem returns the active coordinate system.
func (m *Machine) CoordSystem() CoordSystem { return m.coordSystem }

// SetAxisPosition forces a single axis's machine-coordinate position
// without motion (G28.3-style direct set), mirroring mach_set_axis_position.
func (m *Machine) SetAxisPosition(id axis.ID, position float64) {
	pos := m.rt.Position()
	pos[id] = position
	m.rt.SetPosition(pos)
	m.planner.SetPosition(pos)
}

// calcTarget resolves a parser-supplied per-axis target (in work
// coordinates, honoring the active distance mode) into the absolute
// machine-coordinate target the planner consumes, and enforces the
// mandatory soft-limit check (§6.2: "violation returns a status error
// without enqueuing"). flags marks which axes the block actually
// specifies; unspecified axes hold their current target.
func (m *Machine) calcTarget(values [axis.NumAxes]float64, flags [axis.NumAxes]bool) ([axis.NumAxes]float64, status.Status) {
	cur := m.planner.Position()
	offset := m.rt.WorkOffset()

	target := cur
	for i := 0; i < axis.NumAxes; i++ {
		if !flags[i] {
			continue
		}
		if m.distanceMode == Absolute {
			target[i] = values[i] + offset[i]
		} else {
			target[i] = cur[i] + values[i]
		}
	}

	if st := m.testSoftLimits(target); !st.IsOK() {
		return target, st
	}
	return target, status.New(status.OK)
}

// testSoftLimits rejects a target outside any homed, enabled axis's
// travel_min/travel_max (§6.2). An axis that has not completed homing has
// no trustworthy zero and is not checked, matching the source's homed[]
// gate on soft-limit enforcement.
func (m *Machine) testSoftLimits(target [axis.NumAxes]float64) status.Status {
	for i := 0; i < axis.NumAxes; i++ {
		id := axis.ID(i)
		if !m.axes.IsEnabled(id) {
			continue
		}
		d := m.axes.Axis(id)
		if !d.Homed {
			continue
		}
		lo, hi := d.TravelMin, d.TravelMax
		if hi < lo {
			lo, hi = hi, lo
		}
		if target[i] < lo || target[i] > hi {
			return status.Detailf(status.SoftLimitExceeded, id.String())
		}
	}
	return status.New(status.OK)
}

// machiningGate rejects motion requests while a non-machining cycle owns
// the machine (§3.2 invariant 5: "no G-code motion may be enqueued").
func (m *Machine) machiningGate() status.Status {
	if m.sm.Cycle() != mstate.Machining {
		return status.New(status.NOOP)
	}
	return status.New(status.OK)
}

// Rapid queues a G0 rapid move (§6.2 rapid).
func (m *Machine) Rapid(values [axis.NumAxes]float64, flags [axis.NumAxes]bool, line int) status.Status {
	if st := m.machiningGate(); !st.IsOK() {
		return st
	}
	target, st := m.calcTarget(values, flags)
	if !st.IsOK() {
		return st
	}
	st = m.planner.PlanLine(planner.LineInput{Target: target, Rapid: true, Line: line})
	if st.IsOK() {
		m.sm.NotifyPush()
	}
	return st
}

// Feed queues a feed move (G1, or G2/G3 linearized by the parser) at
// FeedRate, honoring FeedOverride and the active feed mode (§6.2 feed).
func (m *Machine) Feed(values [axis.NumAxes]float64, flags [axis.NumAxes]bool, feedRate float64, inverseTime, exactStop bool, line int) status.Status {
	if st := m.machiningGate(); !st.IsOK() {
		return st
	}
	target, st := m.calcTarget(values, flags)
	if !st.IsOK() {
		return st
	}
	m.rt.FeedRate = feedRate
	if inverseTime {
		m.rt.FeedMode = runtime.FeedInverseTime
	} else {
		m.rt.FeedMode = runtime.FeedUnitsPerMinute
	}
	st = m.planner.PlanLine(planner.LineInput{
		Target:       target,
		InverseTime:  inverseTime,
		ExactStop:    exactStop,
		FeedRate:     feedRate,
		FeedOverride: m.rt.FeedOverride,
		Line:         line,
	})
	if st.IsOK() {
		m.sm.NotifyPush()
	}
	return st
}

// Dwell queues a non-motion pause of the given duration (G4, §6.2 dwell).
func (m *Machine) Dwell(seconds float64) status.Status {
	if st := m.machiningGate(); !st.IsOK() {
		return st
	}
	st := m.planner.PlanDwell(seconds)
	if st.IsOK() {
		m.sm.NotifyPush()
	}
	return st
}

// ZeroAxis sets the active work coordinate system's offset for one axis
// so the axis's current machine position reads as zero in work
// coordinates (§6.2 zero_axis, G92.1-style single-axis origin set).
func (m *Machine) ZeroAxis(id axis.ID) {
	pos := m.rt.Position()
	m.coordOffsets[m.coordSystem][id] = pos[id]
	offset := m.rt.WorkOffset()
	offset[id] = pos[id]
	m.rt.SetWorkOffset(offset)
}

// ZeroAll zeroes every axis's work offset in the active coordinate system
// (§6.2 zero_all).
func (m *Machine) ZeroAll() {
	pos := m.rt.Position()
	m.coordOffsets[m.coordSystem] = pos
	m.rt.SetWorkOffset(pos)
}

// SetFeedOverride sets the feed-rate override multiplier (§6.2
// set_feed_override).
func (m *Machine) SetFeedOverride(o float64) { m.rt.FeedOverride = o }

// SetSpindleOverride sets the spindle-speed override multiplier (§6.2
// set_spindle_override).
func (m *Machine) SetSpindleOverride(o float64) { m.rt.SpindleOverride = o }

// HomingCycleStart begins homing the given axes, zeroing position on
// completion (§6.2 homing_cycle_start, §4.6.4).
func (m *Machine) HomingCycleStart(axesToHome map[axis.ID]bool) status.Status {
	return m.homing.Start(axesToHome)
}

// HomingCycleStartNoSet begins homing without zeroing position, reporting
// the current work position instead (G28.4, §6.2 "no-set variant").
func (m *Machine) HomingCycleStartNoSet(axesToHome map[axis.ID]bool) status.Status {
	return m.homing.StartNoSet(axesToHome)
}

// ProgramStop requests a program-flow stop (M0): it records the flow state
// and requests a feedhold, which the next Reconcile applies as RUNNING ->
// STOPPING, decelerating the block in flight rather than waiting for the
// queue to drain (§6.2 program-flow stops).
func (m *Machine) ProgramStop() {
	m.flow = ProgramStop
	m.sm.RequestHold()
}

// OptionalProgramStop requests an optional program stop (M1), identical
// to ProgramStop but conventionally gated by an operator switch the
// parser consults before calling this.
func (m *Machine) OptionalProgramStop() {
	m.flow = ProgramOptionalStop
	m.sm.RequestHold()
}

// PalletChangeStop requests a pallet-change stop (M60).
func (m *Machine) PalletChangeStop() {
	m.flow = ProgramPalletChangeStop
	m.sm.RequestHold()
}

// ProgramEnd requests the end-of-program stop (M2/M30) and resets modal
// state to the NIST defaults for the next program.
func (m *Machine) ProgramEnd() {
	m.flow = ProgramEnd
	m.sm.RequestHold()
	m.plane = PlaneXY
	m.units = Millimeters
	m.distanceMode = Absolute
}

// Flow returns the last-requested program-flow stop variant.
func (m *Machine) Flow() ProgramFlow { return m.flow }
