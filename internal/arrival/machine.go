package arrival

import (
	"fmt"
	"math"

	"github.com/GrooveWJH/volition/internal/control"
)

// Phase is the arrival state of the current target.
type Phase int

const (
	Seeking Phase = iota
	Approaching
	Arrived
)

func (p Phase) String() string {
	switch p {
	case Seeking:
		return "seeking"
	case Approaching:
		return "approaching"
	case Arrived:
		return "arrived"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// ApproachReset configures the one-shot PID reset near the target.
type ApproachReset struct {
	Enabled         bool            `yaml:"enabled"`
	TriggerDistance float64         `yaml:"trigger_distance"`
	MuteDuration    float64         `yaml:"mute_duration"`
	Axes            control.AxisSet `yaml:"axes"`
}

// Config holds tolerances in meters and degrees and the dwell time in
// seconds. A zero tolerance leaves that error untracked.
type Config struct {
	StableTime        float64       `yaml:"stable_time"`
	DistanceTolerance float64       `yaml:"distance_tolerance"`
	HeadingTolerance  float64       `yaml:"heading_tolerance"`
	ApproachReset     ApproachReset `yaml:"approach_reset"`
}

func (c Config) Validate() error {
	for name, v := range map[string]float64{
		"stable_time":        c.StableTime,
		"distance_tolerance": c.DistanceTolerance,
		"heading_tolerance":  c.HeadingTolerance,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return fmt.Errorf("%w: %s must be finite and non-negative, got %v", ErrInvalidConfig, name, v)
		}
	}
	if c.DistanceTolerance == 0 && c.HeadingTolerance == 0 {
		return fmt.Errorf("%w: at least one tolerance must be set", ErrInvalidConfig)
	}

	r := c.ApproachReset
	if !r.Enabled {
		return nil
	}
	if c.DistanceTolerance == 0 {
		return fmt.Errorf("%w: approach_reset needs a distance tolerance", ErrInvalidConfig)
	}
	if !(r.TriggerDistance > 0 && r.TriggerDistance < c.DistanceTolerance) {
		return fmt.Errorf("%w: trigger_distance %v must be in (0, %v)", ErrInvalidConfig, r.TriggerDistance, c.DistanceTolerance)
	}
	if math.IsNaN(r.MuteDuration) || r.MuteDuration < 0 {
		return fmt.Errorf("%w: mute_duration must be non-negative, got %v", ErrInvalidConfig, r.MuteDuration)
	}
	return nil
}

// Observation is the error of one tick. Only the errors with a configured
// tolerance are consulted.
type Observation struct {
	Distance     float64
	HeadingError float64
}

// Event describes what one Step did.
type Event struct {
	From, To Phase
	// Dwell is the time spent inside tolerance, valid when To is Approaching
	// or Arrived.
	Dwell float64
	// ResetAxes is non-empty on the tick the approach reset fires.
	ResetAxes control.AxisSet
	// MuteUntil is the end of the mute window opened by the approach reset.
	MuteUntil float64
}

func (e Event) Changed() bool { return e.From != e.To }

// Machine tracks arrival for one target at a time. It is not safe for
// concurrent use.
type Machine struct {
	cfg Config

	phase       Phase
	since       float64
	pidHasReset bool
	muteUntil   float64
}

func New(cfg Config) (*Machine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Machine{cfg: cfg}, nil
}

func (m *Machine) Config() Config { return m.cfg }
func (m *Machine) Phase() Phase   { return m.phase }

// PIDHasReset reports whether the approach reset already fired for the
// current target.
func (m *Machine) PIDHasReset() bool { return m.pidHasReset }

// Muted reports whether now falls inside the mute window.
func (m *Machine) Muted(now float64) bool { return now < m.muteUntil }

// MuteRemaining returns the seconds left in the mute window, or zero.
func (m *Machine) MuteRemaining(now float64) float64 {
	return math.Max(0, m.muteUntil-now)
}

// Reset prepares the machine for a new target.
func (m *Machine) Reset() {
	m.phase = Seeking
	m.since = 0
	m.pidHasReset = false
	m.muteUntil = 0
}

// Step advances the machine by one tick. Arrived is terminal until Reset.
func (m *Machine) Step(obs Observation, now float64) Event {
	ev := Event{From: m.phase, To: m.phase}
	if m.phase == Arrived {
		return ev
	}

	r := m.cfg.ApproachReset
	if r.Enabled && !m.pidHasReset && obs.Distance < r.TriggerDistance {
		m.pidHasReset = true
		m.muteUntil = now + r.MuteDuration
		ev.ResetAxes = r.Axes
		ev.MuteUntil = m.muteUntil
	}

	if !m.within(obs) {
		m.phase = Seeking
		m.since = 0
		ev.To = m.phase
		return ev
	}

	switch m.phase {
	case Seeking:
		m.phase = Approaching
		m.since = now
	case Approaching:
		ev.Dwell = now - m.since
		if ev.Dwell >= m.cfg.StableTime {
			m.phase = Arrived
		}
	}
	ev.To = m.phase
	return ev
}

func (m *Machine) within(obs Observation) bool {
	if tol := m.cfg.DistanceTolerance; tol > 0 && !(obs.Distance < tol) {
		return false
	}
	if tol := m.cfg.HeadingTolerance; tol > 0 && !(math.Abs(obs.HeadingError) < tol) {
		return false
	}
	return true
}
