// Package mstate defines the global machine state and cycle enums shared
// between the runtime executor (C4) and the state/cycle machine (C6), kept
// in their own package so neither component must import the other just to
// name these values (§3.1 "Global planner state").
package mstate

// State is the global planner state machine's current state (§4.6.1).
type State int

const (
	Ready State = iota
	Running
	Stopping
	Holding
	Estopped
)

func (s State) String() string {
	switch s {
	case Ready:
		return "READY"
	case Running:
		return "RUNNING"
	case Stopping:
		return "STOPPING"
	case Holding:
		return "HOLDING"
	case Estopped:
		return "ESTOPPED"
	default:
		return "?"
	}
}

// Cycle is the exclusive machine-level mode gating which subsystem may
// queue moves (§4.6.2).
type Cycle int

const (
	Machining Cycle = iota
	Homing
	Probing
	Calibrating
	Jogging
)

func (c Cycle) String() string {
	switch c {
	case Machining:
		return "MACHINING"
	case Homing:
		return "HOMING"
	case Probing:
		return "PROBING"
	case Calibrating:
		return "CALIBRATING"
	case Jogging:
		return "JOGGING"
	default:
		return "?"
	}
}

// HoldReason records why the machine entered STOPPING/HOLDING, recovered
// from original_source/avr/src/homing.c and state.c (SPEC_FULL.md §C.1).
type HoldReason int

const (
	HoldNone HoldReason = iota
	HoldUserPause
	HoldProgramPause
	HoldProgramEnd
	HoldPalletChange
	HoldToolChange
)

func (r HoldReason) String() string {
	switch r {
	case HoldNone:
		return "NONE"
	case HoldUserPause:
		return "USER_PAUSE"
	case HoldProgramPause:
		return "PROGRAM_PAUSE"
	case HoldProgramEnd:
		return "PROGRAM_END"
	case HoldPalletChange:
		return "PALLET_CHANGE"
	case HoldToolChange:
		return "TOOL_CHANGE"
	default:
		return "?"
	}
}
