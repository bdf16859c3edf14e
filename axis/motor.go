package axis

// PowerMode controls when a motor's driver is energized.
type PowerMode int

const (
	PowerDisabled PowerMode = iota
	PowerAlwaysPowered
	PowerInCycle
	PowerWhenMoving
)

// PowerState is the runtime energize state of a motor driver.
type PowerState int

const (
	PowerOff PowerState = iota
	PowerIdle
	PowerEnergizing
	PowerActive
)

// FaultFlags is a bitset of latched motor error conditions (§3.1).
type FaultFlags uint8

const (
	FaultStall FaultFlags = 1 << iota
	FaultOverTemp
	FaultOverCurrent
	FaultDriverFault
	FaultUnderVoltage
	FlagEnabled
)

// Motor describes one physical stepper motor (§3.1 "Motor descriptor").
type Motor struct {
	Axis ID

	Microsteps    int
	StepAngle     float64 // degrees per full step
	TravelPerRev  float64 // mm (or deg) of travel per motor revolution
	Reverse       bool
	PowerMode     PowerMode

	powerState PowerState
	position   int64 // integer step-count position
	faults     FaultFlags
}

// StepsPerUnit returns 360·microsteps / (travel_per_rev·step_angle), the
// conversion factor between travel units and integer motor steps.
func (m *Motor) StepsPerUnit() float64 {
	if m.TravelPerRev == 0 || m.StepAngle == 0 {
		return 0
	}
	return 360 * float64(m.Microsteps) / (m.TravelPerRev * m.StepAngle)
}

// UnitsPerStep is the inverse of StepsPerUnit.
func (m *Motor) UnitsPerStep() float64 {
	spu := m.StepsPerUnit()
	if spu == 0 {
		return 0
	}
	return 1 / spu
}

// PowerState reports the motor's current runtime power state.
func (m *Motor) PowerState() PowerState { return m.powerState }

// SetPowerState transitions the motor's runtime power state; callers are
// the stepper pipeline's power-state machine (§4.5.2).
func (m *Motor) SetPowerState(s PowerState) { m.powerState = s }

// Position returns the motor's integer step-count position.
func (m *Motor) Position() int64 { return m.position }

// SetPosition forces the motor's step-count position (used after homing
// or an explicit set_position call).
func (m *Motor) SetPosition(steps int64) { m.position = steps }

// AddSteps advances the motor's position by a signed step delta.
func (m *Motor) AddSteps(delta int64) { m.position += delta }

// Faults returns the latched fault bitset.
func (m *Motor) Faults() FaultFlags { return m.faults }

// LatchFault ORs a fault into the latched bitset.
func (m *Motor) LatchFault(f FaultFlags) { m.faults |= f }

// ClearFaults resets the latched fault bitset (external reset only).
func (m *Motor) ClearFaults() { m.faults = 0 }

// Enabled reports whether the FlagEnabled bit is latched.
func (m *Motor) Enabled() bool { return m.faults&FlagEnabled != 0 }

// SetEnabled sets or clears the FlagEnabled bit.
func (m *Motor) SetEnabled(on bool) {
	if on {
		m.faults |= FlagEnabled
	} else {
		m.faults &^= FlagEnabled
	}
}

// ValidMicrosteps are the power-of-two microstep settings the driver
// accepts (§6.5).
var ValidMicrosteps = [...]int{1, 2, 4, 8, 16, 32, 64, 128, 256}

// SetMicrosteps validates and sets the microstepping factor.
func (m *Motor) SetMicrosteps(n int) bool {
	for _, v := range ValidMicrosteps {
		if v == n {
			m.Microsteps = n
			return true
		}
	}
	return false
}
