// Command motionsim is a development harness: it wires the planner,
// runtime executor, stepper pipeline, and machine facade together over
// fake GPIO and drives a small simulated block stream end to end,
// exercising plan_line -> dequeue -> segment emission -> step pulses with
// a real (non-mock) clock. It is not part of the spec; it is the dev
// harness SPEC_FULL.md's ambient-stack expansion calls for.
package main

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"

	"github.com/buildbotics/motioncore/axis"
	"github.com/buildbotics/motioncore/logging"
	"github.com/buildbotics/motioncore/machine"
	"github.com/buildbotics/motioncore/mstate"
	"github.com/buildbotics/motioncore/planner"
	"github.com/buildbotics/motioncore/runtime"
	"github.com/buildbotics/motioncore/status"
	"github.com/buildbotics/motioncore/stepper"
	"github.com/buildbotics/motioncore/switchio"
	"github.com/buildbotics/motioncore/telemetry"
)

// simPin is a fake GPIO pin standing in for real hardware, the same
// minimal idiom the stepper and switchio test suites use.
type simPin struct {
	name  string
	level gpio.Level
}

func (p *simPin) String() string                            { return p.name }
func (p *simPin) Halt() error                                { return nil }
func (p *simPin) Name() string                               { return p.name }
func (p *simPin) Number() int                                { return 0 }
func (p *simPin) Function() string                           { return "" }
func (p *simPin) Out(l gpio.Level) error                     { p.level = l; return nil }
func (p *simPin) PWM(gpio.Duty, physic.Frequency) error      { return nil }
func (p *simPin) Read() gpio.Level                           { return p.level }
func (p *simPin) WaitForEdge(time.Duration) bool             { return false }
func (p *simPin) Pull() gpio.Pull                            { return gpio.PullNoChange }
func (p *simPin) In(gpio.Pull, gpio.Edge) error               { return nil }

var (
	_ gpio.PinOut = (*simPin)(nil)
	_ gpio.PinIn  = (*simPin)(nil)
)

// simMove is one line of the simulated G-code-block stream.
type simMove struct {
	target   [axis.NumAxes]float64
	feedRate float64
	rapid    bool
}

func main() {
	app := &cli.App{
		Name:  "motionsim",
		Usage: "drive the motion-control core through a simulated block stream",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "segments", Value: 3, Usage: "number of simulated line moves to queue"},
			&cli.Float64Flag{Name: "feed", Value: 2000, Usage: "feed rate (mm/min) for simulated moves"},
		},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	logger, err := logging.New(logging.INFO)
	if err != nil {
		return err
	}

	// Registers whatever real host GPIO drivers are available on this
	// platform; harmless and a no-op of interest when every pin below is
	// a simPin, but the first call any periph.io-based binary makes
	// before a future swap to real hardware pins.
	if _, err := host.Init(); err != nil {
		logger.Warnw("periph host init failed", "error", err.Error())
	}

	motors := []*axis.Motor{
		{Microsteps: 16, StepAngle: 1.8, TravelPerRev: 5},
		{Microsteps: 16, StepAngle: 1.8, TravelPerRev: 5},
	}
	axes := axis.NewMap(motors, logger)
	if err := axes.Bind(axis.X, 0); err != nil {
		return err
	}
	if err := axes.Bind(axis.Y, 1); err != nil {
		return err
	}
	for _, id := range []axis.ID{axis.X, axis.Y} {
		d := axes.Axis(id)
		d.VelocityMax = 5000
		d.SetJerkMax(100)
		d.TravelMin = -1000
		d.TravelMax = 1000
	}
	axes.Motor(0).SetEnabled(true)
	axes.Motor(1).SetEnabled(true)

	cfg := planner.DefaultConfig()
	p := planner.NewPlanner(axes, cfg, logger)
	rt := runtime.NewState()

	pins := []stepper.MotorPins{
		{Dir: &simPin{name: "x_dir"}, Step: &simPin{name: "x_step"}},
		{Dir: &simPin{name: "y_dir"}, Step: &simPin{name: "y_step"}},
	}
	clk := clock.New()
	pipeline := stepper.NewPipeline(axes, pins, clk, logger)

	exec := runtime.NewExec(rt, pipeline, clk, cfg, logger)
	sm := machine.NewStateMachine(p, rt, pipeline, noopSpindle{}, logger)
	switches := switchio.NewReader(map[switchio.ID]gpio.PinIn{})
	homing := machine.NewHoming(axes, rt, pipeline, switches, sm, cfg, logger)
	mach := machine.NewMachine(p, rt, axes, sm, homing, logger)

	metrics := telemetry.NewMetricsFromDefault()

	moves := simStream(c.Int("segments"), c.Float64("feed"))
	for i, mv := range moves {
		var flags [axis.NumAxes]bool
		flags[axis.X] = true
		flags[axis.Y] = true
		var st status.Status
		if mv.rapid {
			st = mach.Rapid(mv.target, flags, i+1)
		} else {
			st = mach.Feed(mv.target, flags, mv.feedRate, false, false, i+1)
		}
		if !st.IsOK() {
			return fmt.Errorf("plan_line %d: %s", i+1, st.Error())
		}
		metrics.ObserveBlockPlanned()
	}

	ctx, cancel := context.WithTimeout(c.Context, 30*time.Second)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	drained := make(chan struct{})
	var drainedOnce sync.Once
	closeDrained := func() { drainedOnce.Do(func() { close(drained) }) }

	// Low-priority exec "ISR": drains the ring one segment at a time. It
	// is the one goroutine that knows when the simulated program is
	// finished, so it signals the others to stop rather than making them
	// each poll buffer state independently.
	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			if p.Buf.IsEmpty() {
				closeDrained()
				return nil
			}
			st := exec.ExecMove(p.Buf, sm)
			if !st.IsOK() {
				return fmt.Errorf("exec_move: %s", st.Error())
			}
			metrics.ObserveSegment()
			metrics.SetRingFill(p.Buf.Fill())
			time.Sleep(time.Duration(cfg.NomSegmentTime * float64(time.Second)))
		}
	})

	// Step-timer ISR stand-in: loads whatever the exec path prepared and
	// retires idle motors.
	g.Go(func() error {
		ticker := time.NewTicker(time.Duration(cfg.NomSegmentTime * float64(time.Second)))
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-drained:
				return nil
			case <-ticker.C:
				pipeline.LoadMove()
				pipeline.PowerTimeoutTick()
			}
		}
	})

	// Main loop stand-in: reconciles request flags each tick until the
	// exec ISR reports the ring drained (one last Reconcile, whatever the
	// state) or a tick finds the machine READY with an empty ring.
	g.Go(func() error {
		ticker := time.NewTicker(50 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-drained:
				sm.Reconcile()
				return nil
			case <-ticker.C:
				sm.Reconcile()
				if sm.State() == mstate.Ready && p.Buf.IsEmpty() {
					return nil
				}
			}
		}
	})

	if err := g.Wait(); err != nil {
		return err
	}

	pos := rt.Position()
	logger.Infow("simulation complete", "position", pos, "segments", moves)
	return nil
}

func simStream(n int, feed float64) []simMove {
	moves := make([]simMove, 0, n)
	var x float64
	for i := 0; i < n; i++ {
		x += 50
		var target [axis.NumAxes]float64
		target[axis.X] = x
		target[axis.Y] = float64(i % 2 * 20)
		moves = append(moves, simMove{target: target, feedRate: feed, rapid: i == 0})
	}
	return moves
}

type noopSpindle struct{}

func (noopSpindle) StopSpindle() {}
