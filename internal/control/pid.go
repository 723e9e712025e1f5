package control

import (
	"fmt"
	"math"
)

// PIDParams are the fixed gains and limits of one axis.
// A zero OutputLimit or IActivation disables that feature.
type PIDParams struct {
	Kp          float64 `yaml:"kp"`
	Ki          float64 `yaml:"ki"`
	Kd          float64 `yaml:"kd"`
	OutputLimit float64 `yaml:"output_limit"`
	IActivation float64 `yaml:"i_activation"`
}

// Validate reports the first invalid field.
func (p PIDParams) Validate() error {
	for name, v := range map[string]float64{"kp": p.Kp, "ki": p.Ki, "kd": p.Kd} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s must be finite, got %v", ErrInvalidConfig, name, v)
		}
	}
	if p.OutputLimit < 0 || math.IsNaN(p.OutputLimit) {
		return fmt.Errorf("%w: output_limit must be positive when set, got %v", ErrInvalidConfig, p.OutputLimit)
	}
	if p.IActivation < 0 || math.IsNaN(p.IActivation) {
		return fmt.Errorf("%w: i_activation must be positive when set, got %v", ErrInvalidConfig, p.IActivation)
	}
	return nil
}

// Components are the individual P, I and D contributions of one update.
type Components struct {
	P, I, D float64
}

// Sum returns P+I+D before any output clamping.
func (c Components) Sum() float64 { return c.P + c.I + c.D }

// GainScale multiplies the base Kp and Kd of a PID for a single update.
// Ki is never scaled.
type GainScale struct {
	Kp float64 `yaml:"kp_scale"`
	Kd float64 `yaml:"kd_scale"`
}

// Unity leaves the base gains untouched.
var Unity = GainScale{Kp: 1, Kd: 1}

// PID is a single-axis controller. The gains in params are never mutated;
// gain scheduling passes a GainScale into Update instead.
type PID struct {
	params PIDParams

	integral  float64
	lastError float64
	lastTime  float64
	primed    bool
}

func NewPID(params PIDParams) (*PID, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &PID{params: params}, nil
}

// Compute runs one update with the base gains.
func (p *PID) Compute(err, now float64) (float64, Components) {
	return p.Update(err, now, Unity)
}

// Update runs one update with Kp and Kd scaled by s.
//
// The first call after construction or Reset sees dt = 0 and therefore
// contributes neither integral nor derivative. Leaving the activation window
// zeroes the accumulated integral.
func (p *PID) Update(err, now float64, s GainScale) (float64, Components) {
	dt := 0.0
	if p.primed {
		dt = now - p.lastTime
	}

	kp := p.params.Kp * s.Kp
	kd := p.params.Kd * s.Kd
	ki := p.params.Ki

	var c Components
	c.P = kp * err

	if dt > 0 && (p.params.IActivation == 0 || math.Abs(err) <= p.params.IActivation) {
		p.integral += err * dt
	} else {
		p.integral = 0
	}
	if p.params.OutputLimit > 0 && ki > 0 {
		p.integral = clamp(p.integral, p.params.OutputLimit/ki)
	}
	c.I = ki * p.integral

	if dt > 0 {
		c.D = kd * (err - p.lastError) / dt
	}

	out := c.Sum()
	if p.params.OutputLimit > 0 {
		out = clamp(out, p.params.OutputLimit)
	}

	p.lastError = err
	p.lastTime = now
	p.primed = true
	return out, c
}

// Reset clears integral and derivative history; the next update behaves as
// the first.
func (p *PID) Reset() {
	p.integral = 0
	p.lastError = 0
	p.lastTime = 0
	p.primed = false
}

func (p *PID) Params() PIDParams  { return p.params }
func (p *PID) Integral() float64  { return p.integral }
func (p *PID) LastError() float64 { return p.lastError }

// LastTime returns the timestamp of the previous update, or false if the
// controller has not run since the last reset.
func (p *PID) LastTime() (float64, bool) { return p.lastTime, p.primed }
