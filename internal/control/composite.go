package control

import "fmt"

// Pose is the controlled part of a vehicle state: planar position in meters
// and heading in degrees.
type Pose struct {
	X, Y, Heading float64
}

// AxisController is one axis of a Composite. *PID satisfies it.
type AxisController interface {
	Update(err, now float64, s GainScale) (float64, Components)
	Reset()
}

// AxisSpec describes one axis of a Composite.
type AxisSpec struct {
	Axis Axis
	PID  PIDParams
	// Invert flips the sign of the axis output.
	Invert bool
	// Scheduled applies the composite's gain schedule to this axis.
	Scheduled bool
	// Compensated runs the axis output through the delay compensator.
	Compensated bool
	// Controller overrides the PID built from the PID params.
	Controller AxisController
}

// Result is the outcome of one Composite update. Arrays are indexed by Axis;
// entries for axes outside Axes are zero.
type Result struct {
	Axes       AxisSet
	Errors     [NumAxes]float64
	Offsets    [NumAxes]float64
	Components [NumAxes]Components
	Distance   float64
	Scale      GainScale
}

type axisState struct {
	spec AxisSpec
	ctrl AxisController
	buf  DelayBuffer
}

// Composite drives a fixed set of axes toward a target pose.
type Composite struct {
	name     string
	axes     []*axisState
	set      AxisSet
	schedule *GainProfile
	delay    *DelayCompensator
	scale    GainScale
}

// Option configures optional Composite capabilities.
type Option func(*Composite)

// WithGainSchedule enables distance-based gain scaling on Scheduled axes.
func WithGainSchedule(p GainProfile) Option {
	return func(c *Composite) { c.schedule = &p }
}

// WithDelayCompensation enables the delay compensator on Compensated axes.
func WithDelayCompensation(d DelayCompensator) Option {
	return func(c *Composite) { c.delay = &d }
}

// WithName labels the composite in logs and telemetry.
func WithName(name string) Option {
	return func(c *Composite) { c.name = name }
}

// New builds a composite from axis specs. It fails if an axis repeats, a PID
// is misconfigured, or an enabled schedule or compensator is invalid.
func New(specs []AxisSpec, opts ...Option) (*Composite, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("%w: composite needs at least one axis", ErrInvalidConfig)
	}
	c := &Composite{name: "composite", scale: Unity}
	for _, opt := range opts {
		opt(c)
	}
	if c.schedule != nil {
		if err := c.schedule.Validate(); err != nil {
			return nil, err
		}
	}
	if c.delay != nil {
		if err := c.delay.Validate(); err != nil {
			return nil, err
		}
	}

	for _, spec := range specs {
		if spec.Axis < 0 || spec.Axis >= NumAxes {
			return nil, fmt.Errorf("%w: %v", ErrUnknownAxis, spec.Axis)
		}
		if c.set.Has(spec.Axis) {
			return nil, fmt.Errorf("%w: axis %v configured twice", ErrInvalidConfig, spec.Axis)
		}
		if err := spec.PID.Validate(); err != nil {
			return nil, fmt.Errorf("axis %v: %w", spec.Axis, err)
		}
		ctrl := spec.Controller
		if ctrl == nil {
			pid, err := NewPID(spec.PID)
			if err != nil {
				return nil, fmt.Errorf("axis %v: %w", spec.Axis, err)
			}
			ctrl = pid
		}
		c.axes = append(c.axes, &axisState{spec: spec, ctrl: ctrl})
		c.set |= NewAxisSet(spec.Axis)
	}
	return c, nil
}

func (c *Composite) Name() string     { return c.name }
func (c *Composite) Axes() AxisSet    { return c.set }
func (c *Composite) Scale() GainScale { return c.scale }

// Compute runs one update of every axis toward target.
func (c *Composite) Compute(target, current Pose, now float64) Result {
	res := Result{Axes: c.set, Scale: Unity}
	res.Errors[AxisX] = target.X - current.X
	res.Errors[AxisY] = target.Y - current.Y
	res.Errors[AxisHeading] = HeadingError(target.Heading, current.Heading)
	if c.set.Has(AxisX) || c.set.Has(AxisY) {
		res.Distance = Distance(target.X, target.Y, current.X, current.Y)
	}
	for a := Axis(0); a < NumAxes; a++ {
		if !c.set.Has(a) {
			res.Errors[a] = 0
		}
	}

	if c.schedule != nil {
		c.scale = c.schedule.Scale(res.Distance)
		res.Scale = c.scale
	}

	for _, ax := range c.axes {
		a := ax.spec.Axis
		s := Unity
		if ax.spec.Scheduled && c.schedule != nil {
			s = c.scale
		}
		out, comp := ax.ctrl.Update(res.Errors[a], now, s)
		if ax.spec.Compensated && c.delay != nil {
			out = c.delay.Compensate(out, &ax.buf, now)
		}
		if limit := ax.spec.PID.OutputLimit; limit > 0 {
			out = clamp(out, limit)
		}
		if ax.spec.Invert {
			out = -out
		}
		res.Offsets[a] = out
		res.Components[a] = comp
	}
	return res
}

// Reset clears every axis, empties delay buffers and restores unity gains.
func (c *Composite) Reset() {
	for _, ax := range c.axes {
		ax.ctrl.Reset()
		ax.buf.Reset()
	}
	c.scale = Unity
}

// SelectiveReset clears only the axes in set.
func (c *Composite) SelectiveReset(set AxisSet) {
	for _, ax := range c.axes {
		if set.Has(ax.spec.Axis) {
			ax.ctrl.Reset()
			ax.buf.Reset()
		}
	}
}

// PlaneConfig configures the two-axis planar controller.
type PlaneConfig struct {
	PID      PIDParams
	Schedule *GainProfile
	Delay    *DelayCompensator
}

// NewPlane builds the X/Y controller. X maps to pitch unchanged, Y maps to
// roll with its sign flipped. Gain scheduling and delay compensation apply to
// both axes when configured.
func NewPlane(cfg PlaneConfig) (*Composite, error) {
	specs := []AxisSpec{
		{Axis: AxisX, PID: cfg.PID, Scheduled: true, Compensated: true},
		{Axis: AxisY, PID: cfg.PID, Invert: true, Scheduled: true, Compensated: true},
	}
	opts := []Option{WithName("plane")}
	if cfg.Schedule != nil {
		opts = append(opts, WithGainSchedule(*cfg.Schedule))
	}
	if cfg.Delay != nil {
		opts = append(opts, WithDelayCompensation(*cfg.Delay))
	}
	return New(specs, opts...)
}

// PlaneHeadingConfig configures the three-axis controller.
type PlaneHeadingConfig struct {
	XY      PIDParams
	Heading PIDParams
}

// NewPlaneHeading builds the X/Y/heading controller. The heading output is
// not sign-flipped.
func NewPlaneHeading(cfg PlaneHeadingConfig) (*Composite, error) {
	return New([]AxisSpec{
		{Axis: AxisX, PID: cfg.XY},
		{Axis: AxisY, PID: cfg.XY, Invert: true},
		{Axis: AxisHeading, PID: cfg.Heading},
	}, WithName("plane_heading"))
}

// HeadingConfig configures the heading-only controller.
type HeadingConfig struct {
	PID PIDParams
}

// NewHeading builds the heading-only controller. Positive error produces a
// negative offset: rotating left is a decrease on the yaw channel.
func NewHeading(cfg HeadingConfig) (*Composite, error) {
	return New([]AxisSpec{
		{Axis: AxisHeading, PID: cfg.PID, Invert: true},
	}, WithName("heading"))
}
