// Package switchio implements the switch-input interface (§6.4): homing
// and limit switch state backed by GPIO input pins.
package switchio

import (
	"periph.io/x/conn/v3/gpio"

	"github.com/buildbotics/motioncore/axis"
)

// Side distinguishes the min- and max-side switch of an axis.
type Side int

const (
	Min Side = iota
	Max
)

// ID identifies one physical switch input.
type ID struct {
	Axis axis.ID
	Side Side
}

// MinSwitch and MaxSwitch build switch IDs for an axis (§6.4).
func MinSwitch(a axis.ID) ID { return ID{Axis: a, Side: Min} }
func MaxSwitch(a axis.ID) ID { return ID{Axis: a, Side: Max} }

// Reader reports switch state, backed by GPIO input pins bound per axis
// side. A nil pin for a given ID means "not enabled" (§6.4
// switch_is_enabled).
type Reader struct {
	pins map[ID]gpio.PinIn
}

// NewReader constructs a switch reader over the given pin bindings.
func NewReader(pins map[ID]gpio.PinIn) *Reader {
	return &Reader{pins: pins}
}

// IsEnabled reports whether a switch input is bound to a pin at all.
func (r *Reader) IsEnabled(id ID) bool {
	p, ok := r.pins[id]
	return ok && p != nil
}

// IsActive reports whether a switch is currently closed. An unbound
// switch reads as inactive.
func (r *Reader) IsActive(id ID) bool {
	p, ok := r.pins[id]
	if !ok || p == nil {
		return false
	}
	return p.Read() == gpio.Low // normally-closed switches pull low when triggered
}
