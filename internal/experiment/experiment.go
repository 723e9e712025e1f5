// Package experiment flies one mode against the simulated vehicle.
package experiment

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/GrooveWJH/volition/internal/analysis"
	"github.com/GrooveWJH/volition/internal/config"
	"github.com/GrooveWJH/volition/internal/control"
	"github.com/GrooveWJH/volition/internal/loop"
	"github.com/GrooveWJH/volition/internal/plant"
)

// Flight outcomes reported in Result.Status.
const (
	StatusCompleted   = "completed"
	StatusInterrupted = "interrupted"
	StatusTimeLimit   = "time limit"
	StatusFailed      = "failed"
)

// ErrTimeLimit is the cancellation cause once MaxTime has elapsed.
var ErrTimeLimit = errors.New("experiment: flight time limit reached")

type Options struct {
	// Fast runs on a manual clock that advances the vehicle during every
	// driver sleep, so a flight takes no wall time.
	Fast bool
	// MaxTime bounds the flight; zero means until the sequence ends.
	MaxTime time.Duration
	// Gate defaults to advancing without waiting.
	Gate      loop.Gate
	Recorder  loop.Recorder
	OnArrived func(loop.Arrival)
	Logger    *zap.Logger
}

type Result struct {
	Status     string
	Arrivals   int
	FlightTime float64
	Metrics    map[string]float64
}

// Experiment wires a controller, driver and vehicle for one flight. It is
// single use.
type Experiment struct {
	mode     string
	opts     Options
	ctrl     *control.Composite
	driver   *loop.Driver
	vehicle  *plant.Vehicle
	clock    loop.Clock
	suite    *analysis.Suite
	feedback loop.Latest

	cancel   context.CancelCauseFunc
	arrivals int
}

func New(cfg *config.Config, mode string, opts Options) (*Experiment, error) {
	ctrl, err := cfg.Controller(mode)
	if err != nil {
		return nil, err
	}
	driverCfg, err := cfg.Driver(mode)
	if err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewPCG(cfg.Plant.Seed, cfg.Plant.Seed^0x9e3779b97f4a7c15))
	seq, err := cfg.Sequencer(mode, rng)
	if err != nil {
		return nil, err
	}
	suite, err := analysis.NewSuite(analysis.DefaultMetrics(ctrl.Axes())...)
	if err != nil {
		return nil, err
	}

	e := &Experiment{mode: mode, opts: opts, ctrl: ctrl, suite: suite}
	e.vehicle, err = plant.New(cfg.PlantFor(mode), &e.feedback)
	if err != nil {
		return nil, err
	}

	if opts.Fast {
		limit := opts.MaxTime
		e.clock = loop.NewManualClock(func(now time.Duration) {
			e.vehicle.AdvanceTo(now.Seconds())
			if limit > 0 && now >= limit && e.cancel != nil {
				e.cancel(ErrTimeLimit)
			}
		})
	} else {
		e.clock = loop.NewSystemClock()
	}

	var recorder loop.Recorder = suite
	if opts.Recorder != nil {
		recorder = loop.Tee(suite, opts.Recorder)
	}
	e.driver, err = loop.NewDriver(driverCfg, ctrl, loop.Deps{
		Source:    &e.feedback,
		Sink:      e.vehicle,
		Sequencer: seq,
		Gate:      opts.Gate,
		Recorder:  recorder,
		Clock:     e.clock,
		Logger:    opts.Logger,
		OnArrived: e.arrived,
	})
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Experiment) Mode() string                   { return e.mode }
func (e *Experiment) Controller() *control.Composite { return e.ctrl }
func (e *Experiment) Vehicle() *plant.Vehicle        { return e.vehicle }
func (e *Experiment) Metrics() []string              { return e.suite.Names() }

func (e *Experiment) arrived(ar loop.Arrival) {
	e.arrivals++
	if e.opts.OnArrived != nil {
		e.opts.OnArrived(ar)
	}
}

// Run flies until the target sequence ends, MaxTime elapses or ctx is done.
// Cancellation and the time limit are reported through Result.Status, not
// as errors.
func (e *Experiment) Run(ctx context.Context) (Result, error) {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	e.cancel = cancel

	if !e.opts.Fast && e.opts.MaxTime > 0 {
		var stop context.CancelFunc
		ctx, stop = context.WithTimeoutCause(ctx, e.opts.MaxTime, ErrTimeLimit)
		defer stop()
	}

	err := e.execute(ctx)
	res := Result{
		Status:     StatusCompleted,
		Arrivals:   e.arrivals,
		FlightTime: e.clock.Now().Seconds(),
		Metrics:    e.suite.Values(),
	}
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		res.Status = StatusInterrupted
		if errors.Is(context.Cause(ctx), ErrTimeLimit) {
			res.Status = StatusTimeLimit
		}
		err = nil
	default:
		res.Status = StatusFailed
	}
	return res, err
}

// execute runs the driver. On wall time the vehicle is integrated in its own
// goroutine and stopped once the driver returns.
func (e *Experiment) execute(ctx context.Context) error {
	if e.opts.Fast {
		return e.driver.Run(ctx)
	}

	g, gctx := errgroup.WithContext(ctx)
	plantCtx, stopPlant := context.WithCancel(gctx)
	g.Go(func() error {
		_ = e.vehicle.Run(plantCtx, e.clock)
		return nil
	})
	g.Go(func() error {
		defer stopPlant()
		return e.driver.Run(gctx)
	})
	return g.Wait()
}
