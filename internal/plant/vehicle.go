package plant

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/GrooveWJH/volition/internal/control"
	"github.com/GrooveWJH/volition/internal/loop"
)

// Config describes the simulated vehicle. Gains are per stick unit of offset
// from center.
type Config struct {
	// VelocityGain is the steady-state speed in m/s per stick unit.
	VelocityGain float64 `yaml:"velocity_gain"`
	VelocityTau  float64 `yaml:"velocity_tau"`
	// YawGain is the steady-state yaw rate in deg/s per stick unit. Its sign
	// selects the tracker frame's heading convention.
	YawGain float64 `yaml:"yaw_gain"`
	YawTau  float64 `yaml:"yaw_tau"`
	// Delay is the command transport delay in seconds.
	Delay float64 `yaml:"delay"`
	// Step is the integration step in seconds.
	Step float64 `yaml:"step"`
	// FeedbackRate is the tracker publish rate in Hz.
	FeedbackRate  float64      `yaml:"feedback_rate"`
	PositionNoise float64      `yaml:"position_noise"`
	HeadingNoise  float64      `yaml:"heading_noise"`
	Initial       control.Pose `yaml:"initial"`
	Seed          uint64       `yaml:"seed"`
}

func DefaultConfig() Config {
	return Config{
		VelocityGain:  control.DefaultResponseGain,
		VelocityTau:   0.3,
		YawGain:       -0.15,
		YawTau:        0.2,
		Delay:         0.1,
		Step:          0.005,
		FeedbackRate:  100,
		PositionNoise: 0.002,
		HeadingNoise:  0.1,
		Seed:          1,
	}
}

func (c Config) Validate() error {
	for name, v := range map[string]float64{
		"velocity_gain":  c.VelocityGain,
		"yaw_gain":       c.YawGain,
		"delay":          c.Delay,
		"position_noise": c.PositionNoise,
		"heading_noise":  c.HeadingNoise,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s must be finite", ErrInvalidConfig, name)
		}
	}
	for name, v := range map[string]float64{
		"velocity_tau":  c.VelocityTau,
		"yaw_tau":       c.YawTau,
		"step":          c.Step,
		"feedback_rate": c.FeedbackRate,
	} {
		if !(v > 0) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s must be positive, got %v", ErrInvalidConfig, name, v)
		}
	}
	if c.Delay < 0 || c.PositionNoise < 0 || c.HeadingNoise < 0 {
		return fmt.Errorf("%w: delay and noise must be non-negative", ErrInvalidConfig)
	}
	return nil
}

// State vector layout.
const (
	stX = iota
	stY
	stHeading
	stVX
	stVY
	stYawRate
	stateDim
)

type timedSticks struct {
	at     float64
	sticks loop.Sticks
}

// Vehicle is the simulated aircraft. It is a loop.CommandSink and publishes
// tracker feedback to a loop.Latest cell. Methods are safe for concurrent use.
type Vehicle struct {
	cfg Config
	out *loop.Latest

	mu      sync.Mutex
	t       float64
	x       []float64
	applied loop.Sticks
	pending []timedSticks
	integ   rk4
	rng     *rand.Rand
	sent    int
}

func New(cfg Config, out *loop.Latest) (*Vehicle, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if out == nil {
		return nil, fmt.Errorf("%w: feedback cell is required", ErrInvalidConfig)
	}
	x := make([]float64, stateDim)
	x[stX] = cfg.Initial.X
	x[stY] = cfg.Initial.Y
	x[stHeading] = control.NormalizeAngle(cfg.Initial.Heading)
	return &Vehicle{
		cfg:     cfg,
		out:     out,
		x:       x,
		applied: loop.Neutral(),
		rng:     rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)),
	}, nil
}

// Send queues a command stamped with the current simulation time.
func (v *Vehicle) Send(s loop.Sticks) error {
	for _, c := range []int{s.Roll, s.Pitch, s.Throttle, s.Yaw} {
		if c < loop.StickMin || c > loop.StickMax {
			return fmt.Errorf("plant: stick value %d outside [%d, %d]", c, loop.StickMin, loop.StickMax)
		}
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.pending = append(v.pending, timedSticks{at: v.t, sticks: s})
	v.sent++
	return nil
}

// Commands returns how many commands were accepted.
func (v *Vehicle) Commands() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.sent
}

// Pose returns the true, noiseless pose.
func (v *Vehicle) Pose() control.Pose {
	v.mu.Lock()
	defer v.mu.Unlock()
	return control.Pose{X: v.x[stX], Y: v.x[stY], Heading: v.x[stHeading]}
}

// Velocity returns the true planar velocity in m/s.
func (v *Vehicle) Velocity() (vx, vy float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.x[stVX], v.x[stVY]
}

// AdvanceTo integrates up to simulation time t and publishes one tracker
// sample. Times in the past are ignored.
func (v *Vehicle) AdvanceTo(t float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for v.t < t {
		dt := math.Min(v.cfg.Step, t-v.t)
		v.applyDue()
		v.integ.step(v, v.x, v.t, dt)
		v.t += dt
	}
	v.x[stHeading] = control.NormalizeAngle(v.x[stHeading])
	v.out.Publish(loop.FromTracker(v.sample()))
}

// applyDue promotes queued commands whose delay has elapsed.
func (v *Vehicle) applyDue() {
	due := 0
	for due < len(v.pending) && v.pending[due].at+v.cfg.Delay <= v.t {
		v.applied = v.pending[due].sticks
		due++
	}
	v.pending = v.pending[due:]
}

func (v *Vehicle) derive(x []float64, _ float64, dx []float64) {
	pitch := float64(v.applied.Pitch - loop.StickCenter)
	roll := float64(v.applied.Roll - loop.StickCenter)
	yaw := float64(v.applied.Yaw - loop.StickCenter)

	dx[stX] = x[stVX]
	dx[stY] = x[stVY]
	dx[stHeading] = x[stYawRate]
	dx[stVX] = (v.cfg.VelocityGain*pitch - x[stVX]) / v.cfg.VelocityTau
	dx[stVY] = (-v.cfg.VelocityGain*roll - x[stVY]) / v.cfg.VelocityTau
	dx[stYawRate] = (v.cfg.YawGain*yaw - x[stYawRate]) / v.cfg.YawTau
}

func (v *Vehicle) sample() loop.TrackerSample {
	pos := [3]float64{v.x[stX], v.x[stY], 1}
	heading := v.x[stHeading]
	if n := v.cfg.PositionNoise; n > 0 {
		pos[0] += v.rng.NormFloat64() * n
		pos[1] += v.rng.NormFloat64() * n
	}
	if n := v.cfg.HeadingNoise; n > 0 {
		heading += v.rng.NormFloat64() * n
	}
	qx, qy, qz, qw := control.HeadingToQuaternion(heading)
	return loop.TrackerSample{Time: v.t, Position: pos, Quaternion: [4]float64{qx, qy, qz, qw}}
}

// Run advances the vehicle in real time at the feedback rate until ctx is
// done.
func (v *Vehicle) Run(ctx context.Context, clock loop.Clock) error {
	period := time.Duration(float64(time.Second) / v.cfg.FeedbackRate)
	next := clock.Now()
	for {
		v.AdvanceTo(clock.Now().Seconds())
		next += period
		if err := clock.Sleep(ctx, next-clock.Now()); err != nil {
			return err
		}
	}
}
