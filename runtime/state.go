// Package runtime implements the runtime executor (C4): the single
// runtime-state instance and the segment-level executor that drives it.
package runtime

import (
	"sync"

	"go.uber.org/atomic"

	"github.com/buildbotics/motioncore/axis"
)

// FeedMode selects how feed_rate is interpreted.
type FeedMode int

const (
	FeedUnitsPerMinute FeedMode = iota
	FeedInverseTime
)

// State is the single runtime-state instance (§3.1 "Runtime state"). It is
// written by the exec path and by the machine package (homing, jog,
// calibration, set-position and offset changes); the main loop reads it
// for reporting.
// Per §5, position is guarded by a mutex standing in for the source's
// interrupt-disable window, and the scalar fields that are read hot
// (Velocity, Busy) are plain atomics so a report never blocks exec.
type State struct {
	mu         sync.RWMutex
	position   [axis.NumAxes]float64
	workOffset [axis.NumAxes]float64

	velocity atomic.Float64
	busy     atomic.Bool
	line     atomic.Int64
	tool     atomic.Int64

	FeedRate     float64
	FeedMode     FeedMode
	FeedOverride float64

	SpindleOverride float64
}

// NewState returns a zeroed runtime state with a unity feed override.
func NewState() *State {
	s := &State{FeedOverride: 1, SpindleOverride: 1}
	return s
}

// Position returns the current machine-coordinate position (§5: "reflects
// the end of the most recently emitted segment, not the physical motor
// position").
func (s *State) Position() [axis.NumAxes]float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.position
}

// SetPosition overwrites the runtime position (used on completion of a
// segment, or to force a reset from an external set_position/homing
// event).
func (s *State) SetPosition(p [axis.NumAxes]float64) {
	s.mu.Lock()
	s.position = p
	s.mu.Unlock()
}

// WorkOffset returns the active per-axis work coordinate offset.
func (s *State) WorkOffset() [axis.NumAxes]float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.workOffset
}

// SetWorkOffset sets the active per-axis work coordinate offset.
func (s *State) SetWorkOffset(o [axis.NumAxes]float64) {
	s.mu.Lock()
	s.workOffset = o
	s.mu.Unlock()
}

// ToolPosition returns position with the work offset applied, the value
// callers needing tool position must use instead of Position (§5).
func (s *State) ToolPosition() [axis.NumAxes]float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out [axis.NumAxes]float64
	for i := range out {
		out[i] = s.position[i] - s.workOffset[i]
	}
	return out
}

// Velocity returns the current segment velocity.
func (s *State) Velocity() float64 { return s.velocity.Load() }

// SetVelocity sets the current segment velocity.
func (s *State) SetVelocity(v float64) { s.velocity.Store(v) }

// Busy reports whether a plan-to-zero move is executing.
func (s *State) Busy() bool { return s.busy.Load() }

// SetBusy sets the busy flag.
func (s *State) SetBusy(b bool) { s.busy.Store(b) }

// Line returns the source line number of the block currently executing.
func (s *State) Line() int64 { return s.line.Load() }

// SetLine records the source line number of the block currently executing.
func (s *State) SetLine(l int64) { s.line.Store(l) }
