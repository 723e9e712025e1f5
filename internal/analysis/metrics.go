package analysis

import (
	"errors"
	"math"
	"sort"

	"github.com/GrooveWJH/volition/internal/control"
	"github.com/GrooveWJH/volition/internal/loop"
)

// Metric reduces a stream of ticks to one number.
type Metric interface {
	Name() string
	Observe(tr loop.Trace)
	Value() float64
	Reset()
}

// ErrorSource selects which tracking error RMSError reduces.
type ErrorSource int

const (
	DistanceError ErrorSource = iota
	HeadingError
)

type RMSError struct {
	name    string
	source  ErrorSource
	sumSq   float64
	samples int
}

func NewRMSError(source ErrorSource) *RMSError {
	name := "rms_distance"
	if source == HeadingError {
		name = "rms_heading_error"
	}
	return &RMSError{name: name, source: source}
}

func (m *RMSError) Name() string { return m.name }

func (m *RMSError) Observe(tr loop.Trace) {
	e := tr.Distance
	if m.source == HeadingError {
		e = tr.Errors[control.AxisHeading]
	}
	m.sumSq += e * e
	m.samples++
}

func (m *RMSError) Value() float64 {
	if m.samples == 0 {
		return 0
	}
	return math.Sqrt(m.sumSq / float64(m.samples))
}

func (m *RMSError) Reset() {
	m.sumSq = 0
	m.samples = 0
}

// ControlEffort is the mean absolute offset summed over the active axes.
type ControlEffort struct {
	name    string
	axes    control.AxisSet
	sum     float64
	samples int
}

func NewControlEffort(axes control.AxisSet) *ControlEffort {
	return &ControlEffort{
		name: "control_effort",
		axes: axes,
	}
}

func (c *ControlEffort) Name() string {
	return c.name
}

func (c *ControlEffort) Observe(tr loop.Trace) {
	for _, a := range c.axes.Axes() {
		c.sum += math.Abs(tr.Offsets[a])
	}
	c.samples++
}

func (c *ControlEffort) Value() float64 {
	if c.samples == 0 {
		return 0
	}
	return c.sum / float64(c.samples)
}

func (c *ControlEffort) Reset() {
	c.sum = 0
	c.samples = 0
}

// Saturation is the fraction of ticks where any commanded stick sits at
// StickMin or StickMax.
type Saturation struct {
	name       string
	violations int
	samples    int
}

func NewSaturation() *Saturation {
	return &Saturation{name: "saturation"}
}

func (s *Saturation) Name() string {
	return s.name
}

func (s *Saturation) Observe(tr loop.Trace) {
	s.samples++
	for _, v := range []int{tr.Sticks.Roll, tr.Sticks.Pitch, tr.Sticks.Yaw} {
		if v <= loop.StickMin || v >= loop.StickMax {
			s.violations++
			break
		}
	}
}

func (s *Saturation) Value() float64 {
	if s.samples == 0 {
		return 0
	}
	return float64(s.violations) / float64(s.samples)
}

func (s *Saturation) Reset() {
	s.violations = 0
	s.samples = 0
}

type MutedFraction struct {
	muted   int
	samples int
}

func NewMutedFraction() *MutedFraction { return &MutedFraction{} }

func (m *MutedFraction) Name() string { return "muted_fraction" }

func (m *MutedFraction) Observe(tr loop.Trace) {
	m.samples++
	if tr.Muted {
		m.muted++
	}
}

func (m *MutedFraction) Value() float64 {
	if m.samples == 0 {
		return 0
	}
	return float64(m.muted) / float64(m.samples)
}

func (m *MutedFraction) Reset() {
	m.muted = 0
	m.samples = 0
}

// DefaultMetrics returns the metrics that make sense for a controller
// driving axes.
func DefaultMetrics(axes control.AxisSet) []Metric {
	var ms []Metric
	if axes.Has(control.AxisX) || axes.Has(control.AxisY) {
		ms = append(ms, NewRMSError(DistanceError), NewMutedFraction())
	}
	if axes.Has(control.AxisHeading) {
		ms = append(ms, NewRMSError(HeadingError))
	}
	return append(ms, NewControlEffort(axes), NewSaturation())
}

// Suite fans ticks out to several metrics. It is a loop.Recorder.
type Suite struct {
	metrics []Metric
}

func NewSuite(metrics ...Metric) (*Suite, error) {
	seen := make(map[string]bool, len(metrics))
	for _, m := range metrics {
		if seen[m.Name()] {
			return nil, errors.New("analysis: duplicate metric " + m.Name())
		}
		seen[m.Name()] = true
	}
	return &Suite{metrics: metrics}, nil
}

func (s *Suite) Record(tr loop.Trace) error {
	for _, m := range s.metrics {
		m.Observe(tr)
	}
	return nil
}

func (s *Suite) Values() map[string]float64 {
	out := make(map[string]float64, len(s.metrics))
	for _, m := range s.metrics {
		out[m.Name()] = m.Value()
	}
	return out
}

// Names returns the metric names in sorted order.
func (s *Suite) Names() []string {
	names := make([]string, len(s.metrics))
	for i, m := range s.metrics {
		names[i] = m.Name()
	}
	sort.Strings(names)
	return names
}

func (s *Suite) Reset() {
	for _, m := range s.metrics {
		m.Reset()
	}
}
