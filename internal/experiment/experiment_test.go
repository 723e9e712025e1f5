package experiment

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/GrooveWJH/volition/internal/config"
	"github.com/GrooveWJH/volition/internal/loop"
)

func TestFastFlightCompletes(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Plane.Limit = 1

	var ticks int
	var reached []loop.Arrival
	e, err := New(cfg, config.ModePlane, Options{
		Fast:      true,
		MaxTime:   time.Minute,
		Recorder:  loop.RecorderFunc(func(loop.Trace) error { ticks++; return nil }),
		OnArrived: func(ar loop.Arrival) { reached = append(reached, ar) },
		Logger:    zaptest.NewLogger(t),
	})
	if err != nil {
		t.Fatal(err)
	}

	res, err := e.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != StatusCompleted {
		t.Errorf("status = %q", res.Status)
	}
	if res.Arrivals != 1 || len(reached) != 1 {
		t.Errorf("arrivals = %d, callbacks = %d", res.Arrivals, len(reached))
	}
	if ticks == 0 {
		t.Error("recorder saw no ticks")
	}
	if res.FlightTime < cfg.Plane.StableTime {
		t.Errorf("flight time %v shorter than the dwell", res.FlightTime)
	}
	for _, name := range e.Metrics() {
		if _, ok := res.Metrics[name]; !ok {
			t.Errorf("missing metric %s", name)
		}
	}
	if e.Vehicle().Commands() == 0 {
		t.Error("vehicle received no commands")
	}
}

func TestFastFlightTimeLimit(t *testing.T) {
	e, err := New(config.DefaultConfig(), config.ModePlane, Options{Fast: true, MaxTime: 5 * time.Second})
	if err != nil {
		t.Fatal(err)
	}
	res, err := e.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != StatusTimeLimit {
		t.Errorf("status = %q", res.Status)
	}
	if res.FlightTime < 5 {
		t.Errorf("flight time = %v", res.FlightTime)
	}
}

func TestCancelledFlight(t *testing.T) {
	e, err := New(config.DefaultConfig(), config.ModeYaw, Options{Fast: true})
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := e.Run(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != StatusInterrupted {
		t.Errorf("status = %q", res.Status)
	}
	if res.Arrivals != 0 {
		t.Errorf("arrivals = %d", res.Arrivals)
	}
}

func TestWallClockFlight(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.StopBurst = loop.Burst{Count: 2, Interval: 10 * time.Millisecond}
	e, err := New(cfg, config.ModeYaw, Options{MaxTime: 300 * time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}
	res, err := e.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != StatusTimeLimit {
		t.Errorf("status = %q", res.Status)
	}
	if e.Vehicle().Commands() == 0 {
		t.Error("vehicle received no commands")
	}
}

func TestNewRejectsUnknownMode(t *testing.T) {
	if _, err := New(config.DefaultConfig(), "boat", Options{}); err == nil {
		t.Error("expected error")
	}
}
