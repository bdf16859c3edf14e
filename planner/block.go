// Package planner implements the planner ring buffer (C2) and the line
// planner (C3): junction-velocity computation, per-move jerk selection,
// trapezoid fitting, and look-ahead replanning.
package planner

import (
	"github.com/google/uuid"

	"github.com/buildbotics/motioncore/axis"
)

// State is a block's position in its lifecycle (§3.3).
type State int

const (
	StateOff State = iota
	StateNew
	StateInit
	StateActive
	StateRestart
)

// Flags is a bitset of per-block modifiers (§3.1).
type Flags uint8

const (
	FlagReplannable Flags = 1 << iota
	FlagHold
	FlagRapid
	FlagInverseTime
	FlagExactStop
)

// Kind distinguishes what a block does when dequeued, replacing the
// source's function-pointer callback with a tagged variant (§9 "Buffer
// callback as function pointer").
type Kind int

const (
	KindLine Kind = iota
	KindDwell
	KindCommand
)

// Command is an opaque internal action (jog step, calibration step) run
// by the executor instead of a motion segment.
type Command func() error

// Block is one planner ring slot (§3.1 "Move block").
type Block struct {
	Trace uuid.UUID

	Kind  Kind
	Line  int // source G-code line number, 0 for internal moves
	State State
	Flags Flags

	Target [axis.NumAxes]float64 // absolute machine target, mm/deg
	Unit   [axis.NumAxes]float64 // normalized direction

	Length     float64
	HeadLength float64
	BodyLength float64
	TailLength float64

	Entry   float64
	Cruise  float64
	Exit    float64
	Braking float64

	EntryVmax  float64
	CruiseVmax float64
	ExitVmax   float64
	DeltaVmax  float64

	Jerk     float64
	CbrtJerk float64

	DwellSeconds float64
	Command      Command

	TimestampUnixNano int64
}

func (s State) String() string {
	switch s {
	case StateOff:
		return "OFF"
	case StateNew:
		return "NEW"
	case StateInit:
		return "INIT"
	case StateActive:
		return "ACTIVE"
	case StateRestart:
		return "RESTART"
	default:
		return "?"
	}
}

// Replannable reports whether look-ahead replanning may still change this
// block's exit velocity (§5 ordering guarantees, glossary "Replannable").
func (b *Block) Replannable() bool { return b.Flags&FlagReplannable != 0 }

// SetReplannable flips the FlagReplannable bit.
func (b *Block) SetReplannable(v bool) {
	if v {
		b.Flags |= FlagReplannable
	} else {
		b.Flags &^= FlagReplannable
	}
}

func (b *Block) HasFlag(f Flags) bool { return b.Flags&f != 0 }

// Reset zeros a block back to its OFF state, as the ring does on pop
// (§4.2 "pop: zeros head slot").
func (b *Block) Reset() {
	*b = Block{}
}
