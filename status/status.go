// Package status implements the Status sum type used on motioncore's hot
// path (exec_move, exec_aline_section, buffer push/pop), mirroring the
// source's stat_t return convention instead of Go's error interface.
package status

// Code enumerates the subset of status/alarm codes from the configuration
// surface that are returned directly rather than wrapped in an error.
type Code int

const (
	OK Code = iota
	EAGAIN
	NOOP
	MinimumTimeMove
	MoveTargetNaN
	MoveTargetInfinite
	ExpectedMove
	InternalError
	HomingCycleFailed
	HomingErrorBadOrNoAxis
	HomingErrorZeroSearchVelocity
	HomingErrorZeroLatchVelocity
	HomingErrorNegativeLatchBackoff
	HomingErrorTravelMinMaxIdentical
	MotorStalled
	MotorOverTemp
	MotorOverCurrent
	MotorDriverFault
	MotorUnderVoltage
	SoftLimitExceeded
)

var names = map[Code]string{
	OK:                               "OK",
	EAGAIN:                           "EAGAIN",
	NOOP:                             "NOOP",
	MinimumTimeMove:                  "MINIMUM_TIME_MOVE",
	MoveTargetNaN:                    "MOVE_TARGET_NAN",
	MoveTargetInfinite:               "MOVE_TARGET_INFINITE",
	ExpectedMove:                     "EXPECTED_MOVE",
	InternalError:                    "INTERNAL_ERROR",
	HomingCycleFailed:                "HOMING_CYCLE_FAILED",
	HomingErrorBadOrNoAxis:           "HOMING_ERROR_BAD_OR_NO_AXIS",
	HomingErrorZeroSearchVelocity:    "HOMING_ERROR_ZERO_SEARCH_VELOCITY",
	HomingErrorZeroLatchVelocity:     "HOMING_ERROR_ZERO_LATCH_VELOCITY",
	HomingErrorNegativeLatchBackoff:  "HOMING_ERROR_NEGATIVE_LATCH_BACKOFF",
	HomingErrorTravelMinMaxIdentical: "HOMING_ERROR_TRAVEL_MIN_MAX_IDENTICAL",
	MotorStalled:                     "MOTOR_STALLED",
	MotorOverTemp:                    "MOTOR_OVER_TEMP",
	MotorOverCurrent:                 "MOTOR_OVER_CURRENT",
	MotorDriverFault:                 "MOTOR_DRIVER_FAULT",
	MotorUnderVoltage:                "MOTOR_UNDER_VOLTAGE",
	SoftLimitExceeded:                "SOFT_LIMIT_EXCEEDED",
}

func (c Code) String() string {
	if s, ok := names[c]; ok {
		return s
	}
	return "UNKNOWN_STATUS"
}

// Status pairs a Code with optional context, the way the source's stat_t
// carried an errno-like value plus the call site that raised it.
type Status struct {
	Code   Code
	Detail string
}

func New(c Code) Status              { return Status{Code: c} }
func Detailf(c Code, d string) Status { return Status{Code: c, Detail: d} }

func (s Status) Error() string {
	if s.Detail == "" {
		return s.Code.String()
	}
	return s.Code.String() + ": " + s.Detail
}

// IsOK reports whether the status represents forward progress rather than
// an error: OK, EAGAIN, and NOOP are all non-fatal in the executor's own
// control flow (§7 class 2).
func (s Status) IsOK() bool {
	switch s.Code {
	case OK, EAGAIN, NOOP:
		return true
	default:
		return false
	}
}

// IsAlarm reports whether the status is a class-3 alarm (§7) that must
// force ESTOPPED.
func (s Status) IsAlarm() bool {
	switch s.Code {
	case InternalError, MotorStalled, MotorOverTemp, MotorOverCurrent,
		MotorDriverFault, MotorUnderVoltage:
		return true
	default:
		return false
	}
}
