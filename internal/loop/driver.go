package loop

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/GrooveWJH/volition/internal/arrival"
	"github.com/GrooveWJH/volition/internal/control"
)

// Controller is the composite controller the driver owns.
type Controller interface {
	Compute(target, current control.Pose, now float64) control.Result
	Reset()
	SelectiveReset(control.AxisSet)
	Axes() control.AxisSet
}

// Burst is a run of neutral commands.
type Burst struct {
	Count    int           `yaml:"count"`
	Interval time.Duration `yaml:"interval"`
}

// Config configures a Driver.
type Config struct {
	// Frequency is the tick rate in Hz.
	Frequency float64 `yaml:"frequency"`
	// Deadzone zeroes offsets smaller than this many stick units.
	Deadzone float64        `yaml:"deadzone"`
	Arrival  arrival.Config `yaml:"arrival"`
	// ArrivalBurst is sent after an arrival, StopBurst when Run returns.
	ArrivalBurst Burst `yaml:"arrival_burst"`
	StopBurst    Burst `yaml:"stop_burst"`
}

func DefaultConfig() Config {
	return Config{
		Frequency:    50,
		ArrivalBurst: Burst{Count: 5, Interval: 10 * time.Millisecond},
		StopBurst:    Burst{Count: 5, Interval: 100 * time.Millisecond},
	}
}

func (c Config) Validate() error {
	if !(c.Frequency > 0) || math.IsInf(c.Frequency, 0) {
		return fmt.Errorf("%w: frequency must be positive, got %v", ErrInvalidConfig, c.Frequency)
	}
	if math.IsNaN(c.Deadzone) || c.Deadzone < 0 {
		return fmt.Errorf("%w: deadzone must be non-negative, got %v", ErrInvalidConfig, c.Deadzone)
	}
	for name, b := range map[string]Burst{"arrival_burst": c.ArrivalBurst, "stop_burst": c.StopBurst} {
		if b.Count < 0 || b.Interval < 0 {
			return fmt.Errorf("%w: %s must be non-negative", ErrInvalidConfig, name)
		}
	}
	return c.Arrival.Validate()
}

// Arrival is passed to the OnArrived hook.
type Arrival struct {
	Target   Target
	Pose     control.Pose
	Distance float64
	Heading  float64
	Dwell    float64
	// Elapsed is the time from target selection to arrival.
	Elapsed float64
}

// Deps are the collaborators of a Driver. Source, Sink and Sequencer are
// required.
type Deps struct {
	Source    Source
	Sink      CommandSink
	Sequencer Sequencer
	Gate      Gate
	Recorder  Recorder
	Clock     Clock
	Logger    *zap.Logger
	// OnArrived is called after the arrival burst and before the gate.
	OnArrived func(Arrival)
}

// Driver runs one controller against a target sequence.
type Driver struct {
	cfg     Config
	ctrl    Controller
	deps    Deps
	machine *arrival.Machine
	log     *zap.Logger
	status  rate.Sometimes

	interval time.Duration
	target   Target
	started  float64
	ticks    int
}

func NewDriver(cfg Config, ctrl Controller, deps Deps) (*Driver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if ctrl == nil || deps.Source == nil || deps.Sink == nil || deps.Sequencer == nil {
		return nil, fmt.Errorf("%w: controller, source, sink and sequencer are required", ErrInvalidConfig)
	}
	m, err := arrival.New(cfg.Arrival)
	if err != nil {
		return nil, err
	}
	if deps.Gate == nil {
		deps.Gate = AutoGate{}
	}
	if deps.Clock == nil {
		deps.Clock = NewSystemClock()
	}
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Driver{
		cfg:      cfg,
		ctrl:     ctrl,
		deps:     deps,
		machine:  m,
		log:      log,
		status:   rate.Sometimes{Interval: time.Second},
		interval: time.Duration(float64(time.Second) / cfg.Frequency),
	}, nil
}

// Run ticks until the sequence is exhausted or ctx is done. The stop burst is
// always sent before Run returns. A cancelled ctx is reported as ctx.Err().
func (d *Driver) Run(ctx context.Context) error {
	defer d.stop()

	first, ok := d.deps.Sequencer.Next(control.Pose{})
	if !ok {
		return ErrNoTargets
	}
	d.selectTarget(first)

	clock := d.deps.Clock
	next := clock.Now()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		done, err := d.tick(ctx)
		if err != nil {
			return err
		}
		if done {
			d.log.Info("target sequence exhausted", zap.Int("ticks", d.ticks))
			return nil
		}

		next += d.interval
		now := clock.Now()
		if now > next+d.interval {
			// Arrival bursts and gates stall the schedule; do not replay
			// the missed ticks.
			next = now
		}
		if err := clock.Sleep(ctx, next-now); err != nil {
			return err
		}
	}
}

// tick runs one loop iteration. done reports that the sequence ended.
func (d *Driver) tick(ctx context.Context) (done bool, err error) {
	d.ticks++
	fb, ok := d.deps.Source.Snapshot()
	current, ok := d.current(fb, ok)
	if !ok {
		d.status.Do(func() { d.log.Debug("waiting for feedback") })
		return false, nil
	}

	now := d.deps.Clock.Now().Seconds()
	tp := d.target.Pose
	obs := arrival.Observation{
		Distance:     control.Distance(tp.X, tp.Y, current.X, current.Y),
		HeadingError: control.HeadingError(tp.Heading, current.Heading),
	}
	ev := d.machine.Step(obs, now)
	d.logTransition(ev, obs)

	if !ev.ResetAxes.Empty() {
		d.ctrl.SelectiveReset(ev.ResetAxes)
		d.log.Info("approach reset",
			zap.Stringer("axes", ev.ResetAxes),
			zap.Float64("distance", obs.Distance),
			zap.Float64("mute_until", ev.MuteUntil))
	}
	if ev.Changed() && ev.To == arrival.Arrived {
		return d.arrive(ctx, current, obs, ev, now)
	}

	tr := Trace{
		Time:     now,
		Target:   d.target,
		Current:  current,
		Distance: obs.Distance,
		Phase:    ev.To,
		Scale:    control.Unity,
	}
	if d.machine.Muted(now) {
		tr.Muted = true
		tr.Sticks = Neutral()
		axes := d.ctrl.Axes()
		tr.Errors = axisErrors(axes, tp, current)
	} else {
		res := d.ctrl.Compute(tp, current, now)
		tr.Errors = res.Errors
		tr.Components = res.Components
		tr.Scale = res.Scale
		for a := range res.Offsets {
			tr.Offsets[a] = applyDeadzone(res.Offsets[a], d.cfg.Deadzone)
		}
		tr.Sticks = sticksFor(res.Axes, tr.Offsets)
	}

	d.send(tr.Sticks)
	if d.deps.Recorder != nil {
		if err := d.deps.Recorder.Record(tr); err != nil {
			d.log.Warn("telemetry record failed", zap.Error(err))
		}
	}
	d.status.Do(func() {
		d.log.Debug("tick",
			zap.Int("n", d.ticks),
			zap.Int("target", d.target.Index),
			zap.Float64("distance", tr.Distance),
			zap.Float64("heading_error", tr.Errors[control.AxisHeading]),
			zap.Int("pitch", tr.Sticks.Pitch),
			zap.Int("roll", tr.Sticks.Roll),
			zap.Int("yaw", tr.Sticks.Yaw),
			zap.Bool("muted", tr.Muted))
	})
	return false, nil
}

// current extracts the pose the controller needs, reporting false when the
// snapshot lacks a required field.
func (d *Driver) current(fb Feedback, ok bool) (control.Pose, bool) {
	if !ok {
		return control.Pose{}, false
	}
	axes := d.ctrl.Axes()
	if (axes.Has(control.AxisX) || axes.Has(control.AxisY)) && !fb.HasPosition {
		return control.Pose{}, false
	}
	if axes.Has(control.AxisHeading) && !fb.HasHeading {
		return control.Pose{}, false
	}
	return fb.Pose(), true
}

func (d *Driver) arrive(ctx context.Context, current control.Pose, obs arrival.Observation, ev arrival.Event, now float64) (bool, error) {
	d.log.Info("arrived",
		zap.Stringer("target", d.target),
		zap.Float64("distance", obs.Distance),
		zap.Float64("heading_error", obs.HeadingError),
		zap.Float64("dwell", ev.Dwell),
		zap.Float64("elapsed", now-d.started))

	d.burst(d.cfg.ArrivalBurst)
	d.ctrl.Reset()

	if d.deps.OnArrived != nil {
		d.deps.OnArrived(Arrival{
			Target:   d.target,
			Pose:     current,
			Distance: obs.Distance,
			Heading:  obs.HeadingError,
			Dwell:    ev.Dwell,
			Elapsed:  now - d.started,
		})
	}

	next, ok := d.deps.Sequencer.Next(current)
	if !ok {
		return true, nil
	}
	if err := d.deps.Gate.Wait(ctx, next); err != nil {
		if errors.Is(err, ctx.Err()) {
			return false, err
		}
		return false, fmt.Errorf("waiting to advance: %w", err)
	}
	d.selectTarget(next)
	return false, nil
}

func (d *Driver) selectTarget(t Target) {
	d.target = t
	d.machine.Reset()
	d.started = d.deps.Clock.Now().Seconds()
	d.log.Info("target selected", zap.Stringer("target", t))
}

func (d *Driver) logTransition(ev arrival.Event, obs arrival.Observation) {
	if !ev.Changed() {
		return
	}
	fields := []zap.Field{
		zap.Float64("distance", obs.Distance),
		zap.Float64("heading_error", obs.HeadingError),
	}
	switch {
	case ev.To == arrival.Approaching:
		d.log.Info("entered tolerance", append(fields, zap.Float64("stable_time", d.cfg.Arrival.StableTime))...)
	case ev.From == arrival.Approaching && ev.To == arrival.Seeking:
		d.log.Info("left tolerance", fields...)
	}
}

func (d *Driver) send(s Sticks) {
	if err := d.deps.Sink.Send(s); err != nil {
		d.log.Warn("command send failed", zap.Error(err))
	}
}

// burst sends neutral sticks; it ignores cancellation so the vehicle is
// always left centered.
func (d *Driver) burst(b Burst) {
	for i := 0; i < b.Count; i++ {
		d.send(Neutral())
		_ = d.deps.Clock.Sleep(context.Background(), b.Interval)
	}
}

func (d *Driver) stop() {
	d.log.Info("stopping, sending neutral sticks", zap.Int("count", d.cfg.StopBurst.Count))
	d.burst(d.cfg.StopBurst)
}

// sticksFor maps axis offsets onto channels: X to pitch, Y to roll and heading
// to yaw. Inactive channels stay centered.
func sticksFor(axes control.AxisSet, offsets [control.NumAxes]float64) Sticks {
	s := Neutral()
	if axes.Has(control.AxisX) {
		s.Pitch = StickFromOffset(offsets[control.AxisX])
	}
	if axes.Has(control.AxisY) {
		s.Roll = StickFromOffset(offsets[control.AxisY])
	}
	if axes.Has(control.AxisHeading) {
		s.Yaw = StickFromOffset(offsets[control.AxisHeading])
	}
	return s
}

func axisErrors(axes control.AxisSet, target, current control.Pose) [control.NumAxes]float64 {
	var e [control.NumAxes]float64
	if axes.Has(control.AxisX) {
		e[control.AxisX] = target.X - current.X
	}
	if axes.Has(control.AxisY) {
		e[control.AxisY] = target.Y - current.Y
	}
	if axes.Has(control.AxisHeading) {
		e[control.AxisHeading] = control.HeadingError(target.Heading, current.Heading)
	}
	return e
}
