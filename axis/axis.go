// Package axis implements the logical axis/motor map (C1): the bijection
// between the six logical axes and the machine's physical motors, and the
// per-axis limits, jerk, and homing parameters used throughout the planner.
package axis

import "gonum.org/v1/gonum/floats"

// JerkMultiplier keeps jerk values in a numerically comfortable range on
// a 32-bit float, as the source firmware did. All public jerk fields here
// are expressed in the scaled (pre-multiplier) representation; callers
// that need the physical jerk multiply by JerkMultiplier themselves.
const JerkMultiplier = 1e6

// ID identifies one of the six logical axes.
type ID int

const (
	X ID = iota
	Y
	Z
	A
	B
	C
	numAxes
)

// NumAxes is the fixed axis count (X Y Z A B C).
const NumAxes = int(numAxes)

func (id ID) String() string {
	switch id {
	case X:
		return "X"
	case Y:
		return "Y"
	case Z:
		return "Z"
	case A:
		return "A"
	case B:
		return "B"
	case C:
		return "C"
	default:
		return "?"
	}
}

// HomingMode selects how an axis locates its zero position.
type HomingMode int

const (
	HomingDisabled HomingMode = iota
	HomingStallMin
	HomingStallMax
	HomingSwitchMin
	HomingSwitchMax
)

// Descriptor holds the static and mutable parameters of one logical axis
// (§3.1 "Axis descriptor").
type Descriptor struct {
	ID ID

	VelocityMax float64 // mm/min or deg/min
	TravelMin   float64 // mm
	TravelMax   float64 // mm
	Radius      float64 // rotary axes: mm/deg equivalence, 0 for linear

	SearchVelocity float64
	LatchVelocity  float64
	LatchBackoff   float64
	ZeroBackoff    float64
	HomingMode     HomingMode

	Homed bool

	jerkMax    float64 // scaled jerk, as configured
	recipJerk  float64 // 1 / (jerkMax * JerkMultiplier), cached at set-time
	motorIndex int     // -1 if unmapped
}

// NewDescriptor returns a zero-valued descriptor for the given axis, with
// no motor bound and homing disabled.
func NewDescriptor(id ID) *Descriptor {
	return &Descriptor{ID: id, motorIndex: -1}
}

// IsRotary reports whether this axis is one of the rotary axes (A, B, C).
func (d *Descriptor) IsRotary() bool {
	return d.ID == A || d.ID == B || d.ID == C
}

// SetJerkMax sets the axis jerk limit (scaled units) and caches its
// reciprocal for the dominance comparison in the line planner (§4.3.2).
func (d *Descriptor) SetJerkMax(jerk float64) {
	d.jerkMax = jerk
	if jerk == 0 {
		d.recipJerk = 0
		return
	}
	d.recipJerk = 1 / (jerk * JerkMultiplier)
}

// JerkMax returns the configured (scaled) jerk limit.
func (d *Descriptor) JerkMax() float64 { return d.jerkMax }

// RecipJerk returns the cached reciprocal 1/(jerk*JerkMultiplier).
func (d *Descriptor) RecipJerk() float64 { return d.recipJerk }

// boundMotor reports the index of the motor bound to this axis, or -1.
func (d *Descriptor) boundMotor() int { return d.motorIndex }

// VectorLength computes the Euclidean length of a six-axis displacement,
// as used for unit-vector normalization in the line planner.
func VectorLength(delta [NumAxes]float64) float64 {
	return floats.Norm(delta[:], 2)
}
