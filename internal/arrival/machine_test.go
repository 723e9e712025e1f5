package arrival

import (
	"errors"
	"testing"

	"github.com/GrooveWJH/volition/internal/control"
)

func planeConfig() Config {
	return Config{
		StableTime:        1.0,
		DistanceTolerance: 0.10,
		ApproachReset: ApproachReset{
			Enabled:         true,
			TriggerDistance: 0.05,
			MuteDuration:    1.0,
			Axes:            control.NewAxisSet(control.AxisY),
		},
	}
}

func mustNew(t *testing.T, cfg Config) *Machine {
	t.Helper()
	m, err := New(cfg)
	if err != nil {
		t.Fatalf("new machine: %v", err)
	}
	return m
}

func TestDwellInterruptedDoesNotArrive(t *testing.T) {
	m := mustNew(t, Config{StableTime: 1.0, DistanceTolerance: 0.1})

	inside := Observation{Distance: 0.05}
	outside := Observation{Distance: 0.2}

	if ev := m.Step(inside, 0); ev.To != Approaching || !ev.Changed() {
		t.Fatalf("expected approaching, got %+v", ev)
	}
	for _, now := range []float64{0.25, 0.5, 0.75, 0.99} {
		if ev := m.Step(inside, now); ev.To != Approaching {
			t.Fatalf("t=%v: expected approaching, got %v", now, ev.To)
		}
	}
	if ev := m.Step(outside, 1.01); ev.To != Seeking {
		t.Fatalf("expected seeking after leaving tolerance, got %v", ev.To)
	}
	// Timer must restart from scratch.
	m.Step(inside, 1.02)
	if ev := m.Step(inside, 1.5); ev.To != Approaching {
		t.Fatalf("expected approaching, got %v", ev.To)
	}
}

func TestContinuousDwellArrivesOnce(t *testing.T) {
	m := mustNew(t, Config{StableTime: 1.0, DistanceTolerance: 0.1})
	inside := Observation{Distance: 0.05}

	arrivals := 0
	for now := 0.0; now <= 3.0; now += 0.125 {
		ev := m.Step(inside, now)
		if ev.Changed() && ev.To == Arrived {
			arrivals++
			if ev.Dwell < 1.0 {
				t.Errorf("arrived after %v, before stable time", ev.Dwell)
			}
		}
	}
	if arrivals != 1 {
		t.Errorf("expected exactly one arrival, got %d", arrivals)
	}
	if m.Phase() != Arrived {
		t.Errorf("expected arrived to be terminal, got %v", m.Phase())
	}

	m.Reset()
	if m.Phase() != Seeking {
		t.Errorf("expected seeking after reset, got %v", m.Phase())
	}
}

func TestToleranceIsStrict(t *testing.T) {
	m := mustNew(t, Config{DistanceTolerance: 0.1, HeadingTolerance: 2})

	if ev := m.Step(Observation{Distance: 0.1}, 0); ev.To != Seeking {
		t.Errorf("distance equal to tolerance must not count as inside")
	}
	if ev := m.Step(Observation{Distance: 0.05, HeadingError: -2}, 0); ev.To != Seeking {
		t.Errorf("heading error equal to tolerance must not count as inside")
	}
	if ev := m.Step(Observation{Distance: 0.05, HeadingError: -1.5}, 0); ev.To != Approaching {
		t.Errorf("expected approaching when both errors are inside, got %v", ev.To)
	}
	if ev := m.Step(Observation{Distance: 0.05, HeadingError: 2.5}, 0.1); ev.To != Seeking {
		t.Errorf("any tracked error leaving tolerance must drop to seeking")
	}
}

func TestHeadingOnlyIgnoresDistance(t *testing.T) {
	m := mustNew(t, Config{HeadingTolerance: 2, StableTime: 0.5})
	obs := Observation{Distance: 100, HeadingError: 1}
	m.Step(obs, 0)
	if ev := m.Step(obs, 0.5); ev.To != Arrived {
		t.Errorf("expected arrival with untracked distance, got %v", ev.To)
	}
}

func TestApproachResetFiresOnce(t *testing.T) {
	m := mustNew(t, planeConfig())
	want := control.NewAxisSet(control.AxisY)

	ev := m.Step(Observation{Distance: 0.5}, 0)
	if !ev.ResetAxes.Empty() || m.PIDHasReset() {
		t.Fatal("reset must not fire outside the trigger distance")
	}

	ev = m.Step(Observation{Distance: 0.04}, 1)
	if ev.ResetAxes != want {
		t.Fatalf("expected reset of %v, got %v", want, ev.ResetAxes)
	}
	if ev.MuteUntil != 2 {
		t.Errorf("expected mute until 2, got %v", ev.MuteUntil)
	}
	if !m.Muted(1.5) || m.Muted(2) {
		t.Error("mute window should cover [1, 2)")
	}
	if got := m.MuteRemaining(1.25); got != 0.75 {
		t.Errorf("expected 0.75s of mute left, got %v", got)
	}

	m.Step(Observation{Distance: 0.5}, 3)
	ev = m.Step(Observation{Distance: 0.01}, 4)
	if !ev.ResetAxes.Empty() {
		t.Error("reset fired a second time for the same target")
	}
	if !m.PIDHasReset() {
		t.Error("pid_has_reset must stay set")
	}
	if m.Muted(4.5) {
		t.Error("no second mute window expected")
	}

	m.Reset()
	if ev := m.Step(Observation{Distance: 0.01}, 10); ev.ResetAxes != want {
		t.Error("reset should be re-armed for the next target")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no tolerance", func(c *Config) { c.DistanceTolerance = 0 }},
		{"negative stable time", func(c *Config) { c.StableTime = -1 }},
		{"trigger not below tolerance", func(c *Config) { c.ApproachReset.TriggerDistance = 0.10 }},
		{"zero trigger", func(c *Config) { c.ApproachReset.TriggerDistance = 0 }},
		{"negative mute", func(c *Config) { c.ApproachReset.MuteDuration = -1 }},
		{"reset without distance", func(c *Config) {
			c.DistanceTolerance = 0
			c.HeadingTolerance = 2
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := planeConfig()
			tt.mutate(&cfg)
			if _, err := New(cfg); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}

	cfg := planeConfig()
	cfg.ApproachReset.Enabled = false
	cfg.ApproachReset.TriggerDistance = 5
	if err := cfg.Validate(); err != nil {
		t.Errorf("disabled approach reset should not be validated: %v", err)
	}
}
