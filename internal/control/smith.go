package control

import (
	"fmt"
	"math"
)

const (
	DefaultEstimatedDelay = 0.5
	DefaultResponseGain   = 0.0015
	DefaultCompensation   = 150.0
	DefaultHistoryWindow  = 1.0
)

type sample struct {
	t, cmd float64
}

// DelayBuffer is the time-ordered command history of one axis.
type DelayBuffer struct {
	samples []sample
}

// Push appends a command; timestamps must be non-decreasing.
func (b *DelayBuffer) Push(t, cmd float64) {
	b.samples = append(b.samples, sample{t: t, cmd: cmd})
}

// Prune drops samples older than cutoff.
func (b *DelayBuffer) Prune(cutoff float64) {
	i := 0
	for i < len(b.samples) && b.samples[i].t < cutoff {
		i++
	}
	if i > 0 {
		b.samples = append(b.samples[:0], b.samples[i:]...)
	}
}

// At returns the command in effect at t, linearly interpolated between the
// bracketing samples. Before the first sample it returns the first command,
// after the last it returns the last, and an empty buffer yields 0.
func (b *DelayBuffer) At(t float64) float64 {
	if len(b.samples) == 0 {
		return 0
	}
	for i, s := range b.samples {
		if s.t < t {
			continue
		}
		if i == 0 {
			return s.cmd
		}
		prev := b.samples[i-1]
		ratio := 0.0
		if s.t > prev.t {
			ratio = (t - prev.t) / (s.t - prev.t)
		}
		return prev.cmd + (s.cmd-prev.cmd)*ratio
	}
	return b.samples[len(b.samples)-1].cmd
}

func (b *DelayBuffer) Len() int { return len(b.samples) }
func (b *DelayBuffer) Reset()   { b.samples = b.samples[:0] }

// DelayCompensator subtracts the predicted effect of a command issued Delay
// seconds ago. The prediction is delayed_command * ResponseGain * Compensation;
// the compensation multiplier is an empirical tuning constant.
type DelayCompensator struct {
	Delay        float64 `yaml:"delay"`
	ResponseGain float64 `yaml:"response_gain"`
	Compensation float64 `yaml:"compensation"`
	Window       float64 `yaml:"window"`
}

func DefaultDelayCompensator() DelayCompensator {
	return DelayCompensator{
		Delay:        DefaultEstimatedDelay,
		ResponseGain: DefaultResponseGain,
		Compensation: DefaultCompensation,
		Window:       DefaultHistoryWindow,
	}
}

func (c DelayCompensator) Validate() error {
	for name, v := range map[string]float64{
		"delay":         c.Delay,
		"response_gain": c.ResponseGain,
		"compensation":  c.Compensation,
		"window":        c.Window,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return fmt.Errorf("%w: delay compensator %s must be finite and non-negative, got %v", ErrInvalidConfig, name, v)
		}
	}
	if c.Window <= 0 {
		return fmt.Errorf("%w: delay compensator window must be positive", ErrInvalidConfig)
	}
	return nil
}

// Compensate records command in buf and returns it minus the predicted
// steady-state response to the command issued Delay seconds earlier.
func (c DelayCompensator) Compensate(command float64, buf *DelayBuffer, now float64) float64 {
	buf.Push(now, command)
	buf.Prune(now - c.Window)

	delayed := buf.At(now - c.Delay)
	predictedVelocity := delayed * c.ResponseGain
	return command - predictedVelocity*c.Compensation
}
