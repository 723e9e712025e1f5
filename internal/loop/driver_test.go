package loop

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/GrooveWJH/volition/internal/arrival"
	"github.com/GrooveWJH/volition/internal/control"
)

type fakeController struct {
	axes      control.AxisSet
	offset    float64
	computes  int
	resets    int
	selective []control.AxisSet
}

func (f *fakeController) Compute(target, current control.Pose, now float64) control.Result {
	f.computes++
	res := control.Result{Axes: f.axes, Scale: control.Unity}
	for _, a := range f.axes.Axes() {
		res.Offsets[a] = f.offset
	}
	return res
}

func (f *fakeController) Reset()                           { f.resets++ }
func (f *fakeController) SelectiveReset(s control.AxisSet) { f.selective = append(f.selective, s) }
func (f *fakeController) Axes() control.AxisSet            { return f.axes }

type recordingSink struct {
	sent []Sticks
	err  error
}

func (r *recordingSink) Send(s Sticks) error {
	r.sent = append(r.sent, s)
	return r.err
}

type fixedSource struct {
	fb Feedback
	ok bool
}

func (f fixedSource) Snapshot() (Feedback, bool) { return f.fb, f.ok }

type seqFunc func(control.Pose) (Target, bool)

func (f seqFunc) Next(p control.Pose) (Target, bool) { return f(p) }

// cancelAfter returns a manual clock that cancels ctx on the n-th sleep.
func cancelAfter(n int, cancel context.CancelFunc) *ManualClock {
	sleeps := 0
	return NewManualClock(func(time.Duration) {
		sleeps++
		if sleeps == n {
			cancel()
		}
	})
}

func planeDriverConfig() Config {
	cfg := DefaultConfig()
	cfg.Arrival = arrival.Config{StableTime: 10, DistanceTolerance: 0.1}
	return cfg
}

func mustFixed(t *testing.T, limit int, targets ...control.Pose) *Fixed {
	t.Helper()
	seq, err := NewFixed(targets, limit)
	if err != nil {
		t.Fatalf("new fixed: %v", err)
	}
	return seq
}

func TestDriverSkipsTicksWithoutFeedback(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ctrl := &fakeController{axes: control.NewAxisSet(control.AxisX, control.AxisY)}
	sink := &recordingSink{}
	d, err := NewDriver(planeDriverConfig(), ctrl, Deps{
		Source:    fixedSource{fb: Feedback{HasHeading: true}, ok: true},
		Sink:      sink,
		Sequencer: mustFixed(t, 0, control.Pose{X: 1}),
		Clock:     cancelAfter(10, cancel),
		Logger:    zaptest.NewLogger(t),
	})
	if err != nil {
		t.Fatalf("new driver: %v", err)
	}

	if err := d.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if ctrl.computes != 0 {
		t.Errorf("controller computed %d times without position feedback", ctrl.computes)
	}
	want := []Sticks{Neutral(), Neutral(), Neutral(), Neutral(), Neutral()}
	if diff := cmp.Diff(want, sink.sent); diff != "" {
		t.Errorf("only the stop burst should be sent (-want +got):\n%s", diff)
	}
}

func TestDriverMapsOffsetsToChannels(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ctrl := &fakeController{axes: control.NewAxisSet(control.AxisX, control.AxisY), offset: 100.7}
	sink := &recordingSink{}
	var traces []Trace
	d, err := NewDriver(planeDriverConfig(), ctrl, Deps{
		Source:    fixedSource{fb: Feedback{HasPosition: true}, ok: true},
		Sink:      sink,
		Sequencer: mustFixed(t, 0, control.Pose{X: 1}),
		Recorder:  RecorderFunc(func(tr Trace) error { traces = append(traces, tr); return nil }),
		Clock:     cancelAfter(3, cancel),
	})
	if err != nil {
		t.Fatalf("new driver: %v", err)
	}
	_ = d.Run(ctx)

	if ctrl.computes != 3 {
		t.Fatalf("expected 3 computes, got %d", ctrl.computes)
	}
	want := Sticks{Roll: 1124, Pitch: 1124, Throttle: StickCenter, Yaw: StickCenter}
	if diff := cmp.Diff(want, sink.sent[0]); diff != "" {
		t.Errorf("sticks mismatch (-want +got):\n%s", diff)
	}
	if len(traces) != 3 {
		t.Fatalf("expected 3 traces, got %d", len(traces))
	}
	if traces[1].Time != 0.02 {
		t.Errorf("expected second tick at 0.02s, got %v", traces[1].Time)
	}
	if traces[0].Distance != 1 {
		t.Errorf("expected distance 1, got %v", traces[0].Distance)
	}
}

func TestDriverDeadzone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := DefaultConfig()
	cfg.Deadzone = 5
	cfg.Arrival = arrival.Config{StableTime: 10, HeadingTolerance: 2}
	ctrl := &fakeController{axes: control.NewAxisSet(control.AxisHeading), offset: 4.9}
	sink := &recordingSink{}
	d, err := NewDriver(cfg, ctrl, Deps{
		Source:    fixedSource{fb: Feedback{HasHeading: true, Heading: 30}, ok: true},
		Sink:      sink,
		Sequencer: mustFixed(t, 0, control.Pose{}),
		Clock:     cancelAfter(1, cancel),
	})
	if err != nil {
		t.Fatalf("new driver: %v", err)
	}
	_ = d.Run(ctx)
	if sink.sent[0].Yaw != StickCenter {
		t.Errorf("offset inside deadzone should be centered, got %d", sink.sent[0].Yaw)
	}
}

func TestDriverMuteWindowBypassesController(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := DefaultConfig()
	cfg.Arrival = arrival.Config{
		StableTime:        10,
		DistanceTolerance: 0.1,
		ApproachReset: arrival.ApproachReset{
			Enabled:         true,
			TriggerDistance: 0.05,
			MuteDuration:    0.1,
			Axes:            control.NewAxisSet(control.AxisY),
		},
	}
	ctrl := &fakeController{axes: control.NewAxisSet(control.AxisX, control.AxisY), offset: 50}
	sink := &recordingSink{}
	var traces []Trace
	d, err := NewDriver(cfg, ctrl, Deps{
		Source:    fixedSource{fb: Feedback{HasPosition: true}, ok: true},
		Sink:      sink,
		Sequencer: mustFixed(t, 0, control.Pose{X: 0.04}),
		Recorder:  RecorderFunc(func(tr Trace) error { traces = append(traces, tr); return nil }),
		Clock:     cancelAfter(10, cancel),
	})
	if err != nil {
		t.Fatalf("new driver: %v", err)
	}
	_ = d.Run(ctx)

	if diff := cmp.Diff([]control.AxisSet{control.NewAxisSet(control.AxisY)}, ctrl.selective); diff != "" {
		t.Errorf("selective resets mismatch (-want +got):\n%s", diff)
	}
	// Ticks at 0, 20, 40, 60 and 80 ms are muted.
	if ctrl.computes != 5 {
		t.Errorf("expected 5 computes after the mute window, got %d", ctrl.computes)
	}
	for i, tr := range traces {
		muted := i < 5
		if tr.Muted != muted {
			t.Errorf("tick %d: muted=%v, want %v", i, tr.Muted, muted)
		}
		if muted && tr.Sticks != Neutral() {
			t.Errorf("tick %d: muted tick sent %+v", i, tr.Sticks)
		}
	}
}

func TestDriverArrivesAndExhaustsSequence(t *testing.T) {
	ctrl := &fakeController{axes: control.NewAxisSet(control.AxisX, control.AxisY)}
	sink := &recordingSink{}
	cfg := DefaultConfig()
	cfg.Arrival = arrival.Config{StableTime: 0.1, DistanceTolerance: 0.1}

	var arrivals []Arrival
	core, logs := observer.New(zap.InfoLevel)
	d, err := NewDriver(cfg, ctrl, Deps{
		Source:    fixedSource{fb: Feedback{HasPosition: true, Position: [3]float64{0.01, 0, 1}}, ok: true},
		Sink:      sink,
		Sequencer: mustFixed(t, 2, control.Pose{}, control.Pose{X: 0.02}),
		Clock:     NewManualClock(nil),
		Logger:    zap.New(core),
		OnArrived: func(a Arrival) { arrivals = append(arrivals, a) },
	})
	if err != nil {
		t.Fatalf("new driver: %v", err)
	}

	if err := d.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(arrivals) != 2 {
		t.Fatalf("expected 2 arrivals, got %d", len(arrivals))
	}
	if arrivals[1].Target.Index != 1 {
		t.Errorf("expected second arrival at target 1, got %d", arrivals[1].Target.Index)
	}
	if arrivals[0].Dwell < cfg.Arrival.StableTime {
		t.Errorf("arrived before stable time: %v", arrivals[0].Dwell)
	}
	if ctrl.resets != 2 {
		t.Errorf("expected a controller reset per arrival, got %d", ctrl.resets)
	}
	if got := logs.FilterMessage("arrived").Len(); got != 2 {
		t.Errorf("expected 2 arrival log entries, got %d", got)
	}

	tail := sink.sent[len(sink.sent)-5:]
	for i, s := range tail {
		if s != Neutral() {
			t.Errorf("stop burst command %d not neutral: %+v", i, s)
		}
	}
	for i, s := range sink.sent {
		for _, v := range []int{s.Roll, s.Pitch, s.Throttle, s.Yaw} {
			if v < StickMin || v > StickMax {
				t.Fatalf("command %d out of range: %+v", i, s)
			}
		}
	}
}

func TestDriverGateError(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Arrival = arrival.Config{DistanceTolerance: 0.1}
	sink := &recordingSink{}
	gateErr := errors.New("operator gone")
	d, err := NewDriver(cfg, &fakeController{axes: control.NewAxisSet(control.AxisX)}, Deps{
		Source:    fixedSource{fb: Feedback{HasPosition: true}, ok: true},
		Sink:      sink,
		Sequencer: mustFixed(t, 0, control.Pose{}),
		Gate:      gateFunc(func(context.Context, Target) error { return gateErr }),
		Clock:     NewManualClock(nil),
	})
	if err != nil {
		t.Fatalf("new driver: %v", err)
	}
	if err := d.Run(context.Background()); !errors.Is(err, gateErr) {
		t.Fatalf("expected gate error, got %v", err)
	}
	// Arrival burst plus stop burst, nothing computed in between.
	if len(sink.sent) != 1+5+5 {
		t.Errorf("expected 11 commands, got %d", len(sink.sent))
	}
}

type gateFunc func(context.Context, Target) error

func (f gateFunc) Wait(ctx context.Context, t Target) error { return f(ctx, t) }

func TestDriverSinkErrorsAreLogged(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	core, logs := observer.New(zap.WarnLevel)
	ctrl := &fakeController{axes: control.NewAxisSet(control.AxisX)}
	d, err := NewDriver(planeDriverConfig(), ctrl, Deps{
		Source:    fixedSource{fb: Feedback{HasPosition: true}, ok: true},
		Sink:      &recordingSink{err: errors.New("link down")},
		Sequencer: mustFixed(t, 0, control.Pose{X: 1}),
		Clock:     cancelAfter(4, cancel),
		Logger:    zap.New(core),
	})
	if err != nil {
		t.Fatalf("new driver: %v", err)
	}
	_ = d.Run(ctx)

	if ctrl.computes != 4 {
		t.Errorf("loop should keep running on sink errors, computed %d", ctrl.computes)
	}
	if got := logs.FilterMessage("command send failed").Len(); got != 4+5 {
		t.Errorf("expected 9 send failures logged, got %d", got)
	}
}

func TestDriverNoTargets(t *testing.T) {
	sink := &recordingSink{}
	d, err := NewDriver(planeDriverConfig(), &fakeController{axes: control.NewAxisSet(control.AxisX)}, Deps{
		Source:    fixedSource{},
		Sink:      sink,
		Sequencer: seqFunc(func(control.Pose) (Target, bool) { return Target{}, false }),
		Clock:     NewManualClock(nil),
	})
	if err != nil {
		t.Fatalf("new driver: %v", err)
	}
	if err := d.Run(context.Background()); !errors.Is(err, ErrNoTargets) {
		t.Fatalf("expected ErrNoTargets, got %v", err)
	}
	if len(sink.sent) != 5 {
		t.Errorf("stop burst must still be sent, got %d commands", len(sink.sent))
	}
}

func TestNewDriverValidation(t *testing.T) {
	ctrl := &fakeController{axes: control.NewAxisSet(control.AxisX)}
	deps := Deps{Source: fixedSource{}, Sink: &recordingSink{}, Sequencer: mustFixed(t, 0, control.Pose{})}

	tests := []struct {
		name   string
		mutate func(*Config, *Deps)
	}{
		{"zero frequency", func(c *Config, _ *Deps) { c.Frequency = 0 }},
		{"negative deadzone", func(c *Config, _ *Deps) { c.Deadzone = -1 }},
		{"negative burst", func(c *Config, _ *Deps) { c.StopBurst.Count = -1 }},
		{"missing sink", func(_ *Config, d *Deps) { d.Sink = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, dd := planeDriverConfig(), deps
			tt.mutate(&cfg, &dd)
			if _, err := NewDriver(cfg, ctrl, dd); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}

	cfg := planeDriverConfig()
	cfg.Arrival = arrival.Config{}
	if _, err := NewDriver(cfg, ctrl, deps); !errors.Is(err, arrival.ErrInvalidConfig) {
		t.Errorf("expected arrival.ErrInvalidConfig, got %v", err)
	}
}

// slowSink advances a manual clock on every command, standing in for a
// transport that takes time to write.
type slowSink struct {
	clock *ManualClock
	cost  time.Duration
}

func (s *slowSink) Send(Sticks) error {
	s.clock.Advance(s.cost)
	return nil
}

func traceTimes(traces []Trace) []float64 {
	out := make([]float64, len(traces))
	for i, tr := range traces {
		out[i] = tr.Time
	}
	return out
}

func TestDriverTickSchedule(t *testing.T) {
	tests := []struct {
		name    string
		cost    time.Duration
		spacing float64
	}{
		{"idle sink keeps the interval", 0, 0.02},
		{"work inside the interval is absorbed", 15 * time.Millisecond, 0.02},
		{"overrun runs the next tick at once", 30 * time.Millisecond, 0.03},
	}
	approx := cmp.Comparer(func(a, b float64) bool { return math.Abs(a-b) < 1e-9 })
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			clock := cancelAfter(10, cancel)
			var traces []Trace
			d, err := NewDriver(planeDriverConfig(), &fakeController{axes: control.NewAxisSet(control.AxisX)}, Deps{
				Source:    fixedSource{fb: Feedback{HasPosition: true}, ok: true},
				Sink:      &slowSink{clock: clock, cost: tt.cost},
				Sequencer: mustFixed(t, 0, control.Pose{X: 1}),
				Recorder:  RecorderFunc(func(tr Trace) error { traces = append(traces, tr); return nil }),
				Clock:     clock,
			})
			if err != nil {
				t.Fatalf("new driver: %v", err)
			}
			if err := d.Run(ctx); !errors.Is(err, context.Canceled) {
				t.Fatalf("expected context.Canceled, got %v", err)
			}

			want := make([]float64, 10)
			for k := range want {
				want[k] = float64(k) * tt.spacing
			}
			if diff := cmp.Diff(want, traceTimes(traces), approx); diff != "" {
				t.Errorf("tick times mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDriverResyncsAfterArrivalBurst(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := DefaultConfig()
	cfg.Arrival = arrival.Config{StableTime: 0.04, DistanceTolerance: 0.1}
	var traces []Trace
	d, err := NewDriver(cfg, &fakeController{axes: control.NewAxisSet(control.AxisX, control.AxisY)}, Deps{
		Source:    fixedSource{fb: Feedback{HasPosition: true}, ok: true},
		Sink:      &recordingSink{},
		Sequencer: mustFixed(t, 0, control.Pose{}, control.Pose{X: 5}),
		Recorder:  RecorderFunc(func(tr Trace) error { traces = append(traces, tr); return nil }),
		Clock:     cancelAfter(30, cancel),
	})
	if err != nil {
		t.Fatalf("new driver: %v", err)
	}
	_ = d.Run(ctx)

	var before, after []float64
	for _, tr := range traces {
		if tr.Target.Index == 0 {
			before = append(before, tr.Time)
		} else {
			after = append(after, tr.Time)
		}
	}
	if len(before) == 0 || len(after) < 3 {
		t.Fatalf("expected ticks on both targets, got %d and %d", len(before), len(after))
	}

	// The arrival tick follows the last recorded one; its burst of five
	// commands 10ms apart overruns the schedule.
	arrivedAt := before[len(before)-1] + 0.02
	burst := 5 * 0.01
	if got := after[0]; math.Abs(got-(arrivedAt+burst)) > 1e-9 {
		t.Errorf("first tick after the burst at %v, want %v", got, arrivedAt+burst)
	}
	for i := 1; i < len(after); i++ {
		if gap := after[i] - after[i-1]; math.Abs(gap-0.02) > 1e-9 {
			t.Errorf("tick %d after resync spaced %v, want 0.02", i, gap)
		}
	}
}
