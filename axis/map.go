package axis

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/buildbotics/motioncore/logging"
)

// Map is the bijection between logical axes and physical motors: at most
// NumAxes axes, at most len(Motors) motors, with each axis bound to zero
// or one motor and each motor bound to exactly one axis.
type Map struct {
	axes   [NumAxes]*Descriptor
	motors []*Motor
	logger logging.Logger
}

// NewMap constructs an axis/motor map with NumAxes empty axis descriptors
// and the given motors, none of them bound yet.
func NewMap(motors []*Motor, logger logging.Logger) *Map {
	m := &Map{motors: motors, logger: logger}
	for i := range m.axes {
		m.axes[i] = NewDescriptor(ID(i))
	}
	return m
}

// Axis returns the descriptor for a logical axis.
func (m *Map) Axis(id ID) *Descriptor { return m.axes[id] }

// Motor returns the motor at the given index, or nil if out of range.
func (m *Map) Motor(i int) *Motor {
	if i < 0 || i >= len(m.motors) {
		return nil
	}
	return m.motors[i]
}

// Bind maps a logical axis to a motor index. Binding the same motor to two
// axes, or an axis already bound, is rejected — the map is a bijection.
func (m *Map) Bind(id ID, motorIndex int) error {
	if motorIndex < 0 || motorIndex >= len(m.motors) {
		return errors.Errorf("axis: motor index %d out of range [0,%d)", motorIndex, len(m.motors))
	}
	if m.axes[id].motorIndex >= 0 {
		return errors.Errorf("axis: axis %s already bound to motor %d", id, m.axes[id].motorIndex)
	}
	for _, a := range m.axes {
		if a.motorIndex == motorIndex {
			return errors.Errorf("axis: motor %d already bound to axis %s", motorIndex, a.ID)
		}
	}
	m.axes[id].motorIndex = motorIndex
	m.motors[motorIndex].Axis = id
	if m.logger != nil {
		m.logger.Infow("axis bound", "axis", id.String(), "motor", motorIndex)
	}
	return nil
}

// MotorOf returns the motor bound to an axis, or nil if unmapped.
func (m *Map) MotorOf(id ID) *Motor {
	idx := m.axes[id].motorIndex
	if idx < 0 {
		return nil
	}
	return m.motors[idx]
}

// AxisOf returns the axis a motor index is bound to, and whether it is
// bound at all.
func (m *Map) AxisOf(motorIndex int) (ID, bool) {
	for _, a := range m.axes {
		if a.motorIndex == motorIndex {
			return a.ID, true
		}
	}
	return 0, false
}

// IsEnabled reports whether an axis is enabled: mapped to a motor, that
// motor enabled, and velocity_max nonzero (§3.1).
func (m *Map) IsEnabled(id ID) bool {
	a := m.axes[id]
	if a.motorIndex < 0 {
		return false
	}
	if a.VelocityMax == 0 {
		return false
	}
	return m.motors[a.motorIndex].Enabled()
}

// StepsPerUnit returns the steps-per-unit conversion for an axis's bound
// motor, or 0 if the axis is unmapped — the "sparse function with sentinel
// defaults" the spec calls for (§3.1).
func (m *Map) StepsPerUnit(id ID) float64 {
	mot := m.MotorOf(id)
	if mot == nil {
		return 0
	}
	return mot.StepsPerUnit()
}

// UnitsToSteps converts a travel vector (mm or deg, one entry per logical
// axis) into integer motor step targets via each axis's bound motor. This
// is the default Cartesian kinematics of §6.3: travel[i] * steps_per_unit
// of the motor bound to axis i.
func (m *Map) UnitsToSteps(travel [NumAxes]float64) []int64 {
	steps := make([]int64, len(m.motors))
	for id := range m.axes {
		mot := m.MotorOf(ID(id))
		if mot == nil {
			continue
		}
		spu := mot.StepsPerUnit()
		v := travel[id] * spu
		if mot.Reverse {
			v = -v
		}
		idx := m.axes[id].motorIndex
		steps[idx] = roundToInt64(v)
	}
	return steps
}

func roundToInt64(v float64) int64 {
	if v >= 0 {
		return int64(v + 0.5)
	}
	return int64(v - 0.5)
}

// VectorLength is the six-axis Euclidean length of a travel delta (§4.1).
func (m *Map) VectorLength(delta [NumAxes]float64) float64 {
	return VectorLength(delta)
}

func (m *Map) String() string {
	return fmt.Sprintf("axis.Map{axes=%d motors=%d}", NumAxes, len(m.motors))
}
