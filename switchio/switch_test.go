package switchio

import (
	"testing"
	"time"

	"go.viam.com/test"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/pin"

	"github.com/buildbotics/motioncore/axis"
)

type fakePinIn struct {
	name  string
	level gpio.Level
}

func (p *fakePinIn) String() string     { return p.name }
func (p *fakePinIn) Halt() error        { return nil }
func (p *fakePinIn) Name() string       { return p.name }
func (p *fakePinIn) Number() int        { return 0 }
func (p *fakePinIn) Function() string   { return "" }
func (p *fakePinIn) In(gpio.Pull, gpio.Edge) error  { return nil }
func (p *fakePinIn) Read() gpio.Level              { return p.level }
func (p *fakePinIn) WaitForEdge(time.Duration) bool { return false }
func (p *fakePinIn) Pull() gpio.Pull                { return gpio.PullNoChange }

var (
	_ gpio.PinIn = (*fakePinIn)(nil)
	_ pin.Pin    = (*fakePinIn)(nil)
)

func TestIsEnabledReflectsBinding(t *testing.T) {
	minX := &fakePinIn{name: "x-min", level: gpio.High}
	r := NewReader(map[ID]gpio.PinIn{MinSwitch(axis.X): minX})

	test.That(t, r.IsEnabled(MinSwitch(axis.X)), test.ShouldBeTrue)
	test.That(t, r.IsEnabled(MaxSwitch(axis.X)), test.ShouldBeFalse)
}

func TestIsActiveReadsLowAsTriggered(t *testing.T) {
	minX := &fakePinIn{name: "x-min", level: gpio.High}
	r := NewReader(map[ID]gpio.PinIn{MinSwitch(axis.X): minX})

	test.That(t, r.IsActive(MinSwitch(axis.X)), test.ShouldBeFalse)

	minX.level = gpio.Low
	test.That(t, r.IsActive(MinSwitch(axis.X)), test.ShouldBeTrue)
}

func TestIsActiveUnboundSwitchIsInactive(t *testing.T) {
	r := NewReader(map[ID]gpio.PinIn{})
	test.That(t, r.IsActive(MaxSwitch(axis.Y)), test.ShouldBeFalse)
}
