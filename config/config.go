// Package config decodes the attribute-map configuration surface (§6.5)
// into the typed structs axis.Map and planner.Config are built from.
package config

import (
	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/buildbotics/motioncore/axis"
	"github.com/buildbotics/motioncore/planner"
)

// AxisConfig is the decoded per-axis attribute block of §6.5.
type AxisConfig struct {
	VelocityMax float64 `mapstructure:"velocity_max"`
	JerkMax     float64 `mapstructure:"jerk_max"`
	TravelMin   float64 `mapstructure:"travel_min"`
	TravelMax   float64 `mapstructure:"travel_max"`
	Radius      float64 `mapstructure:"radius"`

	SearchVelocity float64 `mapstructure:"search_velocity"`
	LatchVelocity  float64 `mapstructure:"latch_velocity"`
	LatchBackoff   float64 `mapstructure:"latch_backoff"`
	ZeroBackoff    float64 `mapstructure:"zero_backoff"`
	HomingMode     string  `mapstructure:"homing_mode"`
}

// MotorConfig is the decoded per-motor attribute block of §6.5.
type MotorConfig struct {
	Axis         string `mapstructure:"axis"`
	Microsteps   int    `mapstructure:"microsteps"`
	StepAngle    float64 `mapstructure:"step_angle"`
	TravelPerRev float64 `mapstructure:"travel_per_rev"`
	Reverse      bool    `mapstructure:"reverse"`
	PowerMode    string  `mapstructure:"power_mode"`
}

// GlobalConfig is the decoded machine-wide attribute block of §6.5.
type GlobalConfig struct {
	JunctionDeviation    float64 `mapstructure:"JUNCTION_DEVIATION"`
	JunctionAcceleration float64 `mapstructure:"JUNCTION_ACCELERATION"`
	NomSegmentTime       float64 `mapstructure:"NOM_SEGMENT_TIME"`
	MinSegmentTime       float64 `mapstructure:"MIN_SEGMENT_TIME"`
	SegmentTime          float64 `mapstructure:"SEGMENT_TIME"`

	PlannerBufferPoolSize int     `mapstructure:"PLANNER_BUFFER_POOL_SIZE"`
	PlannerBufferHeadroom int     `mapstructure:"PLANNER_BUFFER_HEADROOM"`
	PlannerExecMinFill    int     `mapstructure:"PLANNER_EXEC_MIN_FILL"`
	PlannerExecDelay      float64 `mapstructure:"PLANNER_EXEC_DELAY"`

	HoldDecelerationTolerance float64 `mapstructure:"HOLD_DECELERATION_TOLERANCE"`
	MotorIdleTimeout          float64 `mapstructure:"MOTOR_IDLE_TIMEOUT"`
}

var homingModes = map[string]axis.HomingMode{
	"":            axis.HomingDisabled,
	"DISABLED":    axis.HomingDisabled,
	"STALL_MIN":   axis.HomingStallMin,
	"STALL_MAX":   axis.HomingStallMax,
	"SWITCH_MIN":  axis.HomingSwitchMin,
	"SWITCH_MAX":  axis.HomingSwitchMax,
}

var powerModes = map[string]axis.PowerMode{
	"":                 axis.PowerDisabled,
	"DISABLED":         axis.PowerDisabled,
	"ALWAYS_POWERED":   axis.PowerAlwaysPowered,
	"POWERED_IN_CYCLE": axis.PowerInCycle,
	"POWERED_WHEN_MOVING": axis.PowerWhenMoving,
}

var validMicrosteps = map[int]bool{1: true, 2: true, 4: true, 8: true, 16: true, 32: true, 64: true, 128: true, 256: true}

// DecodeAxisConfig decodes an attribute map into an AxisConfig.
func DecodeAxisConfig(attrs map[string]interface{}) (AxisConfig, error) {
	var cfg AxisConfig
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{TagName: "mapstructure", Result: &cfg})
	if err != nil {
		return cfg, err
	}
	if err := dec.Decode(attrs); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// DecodeMotorConfig decodes an attribute map into a MotorConfig.
func DecodeMotorConfig(attrs map[string]interface{}) (MotorConfig, error) {
	var cfg MotorConfig
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{TagName: "mapstructure", Result: &cfg})
	if err != nil {
		return cfg, err
	}
	if err := dec.Decode(attrs); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// DecodeGlobalConfig decodes an attribute map into a GlobalConfig.
func DecodeGlobalConfig(attrs map[string]interface{}) (GlobalConfig, error) {
	var cfg GlobalConfig
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{TagName: "mapstructure", Result: &cfg})
	if err != nil {
		return cfg, err
	}
	if err := dec.Decode(attrs); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks an AxisConfig against the invariants §4.1/§4.6.4 require
// of a usable axis, aggregating every violation instead of stopping at the
// first (mapstructure decoding already happened; this is the semantic
// pass).
func (c AxisConfig) Validate(name string) error {
	var err error
	if c.VelocityMax < 0 {
		err = multierr.Append(err, errors.Errorf("%s: velocity_max must be >= 0", name))
	}
	if c.JerkMax < 0 {
		err = multierr.Append(err, errors.Errorf("%s: jerk_max must be >= 0", name))
	}
	if c.TravelMin == c.TravelMax && c.TravelMin != 0 {
		err = multierr.Append(err, errors.Errorf("%s: travel_min and travel_max must differ", name))
	}
	if _, ok := homingModes[c.HomingMode]; !ok {
		err = multierr.Append(err, errors.Errorf("%s: unrecognized homing_mode %q", name, c.HomingMode))
	}
	if c.HomingMode != "" && c.HomingMode != "DISABLED" {
		if c.SearchVelocity == 0 {
			err = multierr.Append(err, errors.Errorf("%s: search_velocity must be nonzero when homing is enabled", name))
		}
		if c.LatchVelocity == 0 {
			err = multierr.Append(err, errors.Errorf("%s: latch_velocity must be nonzero when homing is enabled", name))
		}
		if c.LatchBackoff < 0 {
			err = multierr.Append(err, errors.Errorf("%s: latch_backoff must be >= 0", name))
		}
	}
	return err
}

// Validate checks a MotorConfig's microstep setting, step angle, travel
// per revolution and power mode. The Axis field is not checked.
func (c MotorConfig) Validate(name string) error {
	var err error
	if !validMicrosteps[c.Microsteps] {
		err = multierr.Append(err, errors.Errorf("%s: microsteps %d not a valid power of two in [1,256]", name, c.Microsteps))
	}
	if c.StepAngle <= 0 {
		err = multierr.Append(err, errors.Errorf("%s: step_angle must be > 0", name))
	}
	if c.TravelPerRev <= 0 {
		err = multierr.Append(err, errors.Errorf("%s: travel_per_rev must be > 0", name))
	}
	if _, ok := powerModes[c.PowerMode]; !ok {
		err = multierr.Append(err, errors.Errorf("%s: unrecognized power_mode %q", name, c.PowerMode))
	}
	return err
}

// Validate checks a GlobalConfig's planner-wide parameters.
func (c GlobalConfig) Validate() error {
	var err error
	if c.SegmentTime <= 0 {
		err = multierr.Append(err, errors.New("SEGMENT_TIME must be > 0"))
	}
	if c.PlannerBufferPoolSize <= 0 {
		err = multierr.Append(err, errors.New("PLANNER_BUFFER_POOL_SIZE must be > 0"))
	}
	if c.PlannerBufferHeadroom < 0 || c.PlannerBufferHeadroom >= c.PlannerBufferPoolSize {
		err = multierr.Append(err, errors.New("PLANNER_BUFFER_HEADROOM must be in [0, PLANNER_BUFFER_POOL_SIZE)"))
	}
	return err
}

// ApplyTo writes this AxisConfig's parameters into an axis descriptor.
func (c AxisConfig) ApplyTo(d *axis.Descriptor) {
	d.VelocityMax = c.VelocityMax
	d.SetJerkMax(c.JerkMax)
	d.TravelMin = c.TravelMin
	d.TravelMax = c.TravelMax
	d.Radius = c.Radius
	d.SearchVelocity = c.SearchVelocity
	d.LatchVelocity = c.LatchVelocity
	d.LatchBackoff = c.LatchBackoff
	d.ZeroBackoff = c.ZeroBackoff
	d.HomingMode = homingModes[c.HomingMode]
}

// ApplyTo writes this MotorConfig's parameters into a motor descriptor.
// The caller is still responsible for axis.Map.Bind — MotorConfig.Axis
// names the intended axis but binding is the map's job, not the config's.
func (c MotorConfig) ApplyTo(m *axis.Motor) {
	m.Microsteps = c.Microsteps
	m.StepAngle = c.StepAngle
	m.TravelPerRev = c.TravelPerRev
	m.Reverse = c.Reverse
	m.PowerMode = powerModes[c.PowerMode]
}

// ToPlannerConfig builds a planner.Config from a GlobalConfig, filling any
// zero-valued field from planner.DefaultConfig() so a partial attribute
// map still produces a usable configuration.
func (c GlobalConfig) ToPlannerConfig() planner.Config {
	out := planner.DefaultConfig()
	if c.JunctionDeviation != 0 {
		out.JunctionDeviation = c.JunctionDeviation
	}
	if c.JunctionAcceleration != 0 {
		out.JunctionAcceleration = c.JunctionAcceleration
	}
	if c.NomSegmentTime != 0 {
		out.NomSegmentTime = c.NomSegmentTime
	}
	if c.MinSegmentTime != 0 {
		out.MinSegmentTime = c.MinSegmentTime
	}
	if c.SegmentTime != 0 {
		out.SegmentTime = c.SegmentTime
	}
	if c.PlannerBufferPoolSize != 0 {
		out.PoolSize = c.PlannerBufferPoolSize
	}
	if c.PlannerBufferHeadroom != 0 {
		out.Headroom = c.PlannerBufferHeadroom
	}
	if c.PlannerExecMinFill != 0 {
		out.ExecMinFill = c.PlannerExecMinFill
	}
	if c.PlannerExecDelay != 0 {
		out.ExecDelay = c.PlannerExecDelay
	}
	if c.HoldDecelerationTolerance != 0 {
		out.HoldDecelerationTolerance = c.HoldDecelerationTolerance
	}
	if c.MotorIdleTimeout != 0 {
		out.MotorIdleTimeout = c.MotorIdleTimeout
	}
	return out
}

// AxisName maps a single-character axis config key ("X".."C") to an
// axis.ID, for resolving MotorConfig.Axis against axis.Map.Bind.
func AxisName(s string) (axis.ID, bool) {
	switch s {
	case "X":
		return axis.X, true
	case "Y":
		return axis.Y, true
	case "Z":
		return axis.Z, true
	case "A":
		return axis.A, true
	case "B":
		return axis.B, true
	case "C":
		return axis.C, true
	default:
		return 0, false
	}
}
