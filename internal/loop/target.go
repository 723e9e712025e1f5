package loop

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/GrooveWJH/volition/internal/control"
)

// Target is one goal handed to the driver. For planar controllers X and Y
// are used; for heading controllers Heading is used.
type Target struct {
	Index int
	Pose  control.Pose
}

func (t Target) String() string {
	return fmt.Sprintf("#%d (%.2f, %.2f) %.1f°", t.Index, t.Pose.X, t.Pose.Y, t.Pose.Heading)
}

// Sequencer supplies targets. Next is called once before the first tick and
// again after every arrival with the pose at arrival. ok is false when the
// sequence is exhausted.
type Sequencer interface {
	Next(current control.Pose) (t Target, ok bool)
}

// Fixed cycles through a list of targets. A positive limit bounds the total
// number of targets handed out.
type Fixed struct {
	targets []control.Pose
	limit   int
	issued  int
}

func NewFixed(targets []control.Pose, limit int) (*Fixed, error) {
	if len(targets) == 0 {
		return nil, fmt.Errorf("%w: fixed sequence needs at least one target", ErrInvalidConfig)
	}
	norm := make([]control.Pose, len(targets))
	for i, t := range targets {
		t.Heading = control.NormalizeAngle(t.Heading)
		norm[i] = t
	}
	return &Fixed{targets: norm, limit: limit}, nil
}

func (f *Fixed) Next(control.Pose) (Target, bool) {
	if f.limit > 0 && f.issued >= f.limit {
		return Target{}, false
	}
	i := f.issued % len(f.targets)
	f.issued++
	return Target{Index: i, Pose: f.targets[i]}, true
}

// RandomWaypoints starts at the origin and then picks each waypoint at a
// uniform bearing and a uniform distance in [min, max] from the pose at
// arrival.
type RandomWaypoints struct {
	rng      *rand.Rand
	min, max float64
	limit    int
	issued   int
}

func NewRandomWaypoints(rng *rand.Rand, min, max float64, limit int) (*RandomWaypoints, error) {
	if !(min >= 0 && max >= min) {
		return nil, fmt.Errorf("%w: random waypoint distance range [%v, %v]", ErrInvalidConfig, min, max)
	}
	return &RandomWaypoints{rng: rng, min: min, max: max, limit: limit}, nil
}

func (r *RandomWaypoints) Next(current control.Pose) (Target, bool) {
	if r.limit > 0 && r.issued >= r.limit {
		return Target{}, false
	}
	defer func() { r.issued++ }()
	if r.issued == 0 {
		return Target{}, true
	}
	angle := r.rng.Float64() * 2 * math.Pi
	dist := r.min + r.rng.Float64()*(r.max-r.min)
	return Target{
		Index: r.issued,
		Pose: control.Pose{
			X: current.X + dist*math.Cos(angle),
			Y: current.Y + dist*math.Sin(angle),
		},
	}, true
}

// RandomHeadings starts at 0° and then draws headings in (-180, 180] at least
// minDiff degrees away from the previous target.
type RandomHeadings struct {
	rng     *rand.Rand
	minDiff float64
	limit   int
	issued  int
	prev    float64
}

func NewRandomHeadings(rng *rand.Rand, minDiff float64, limit int) (*RandomHeadings, error) {
	if !(minDiff >= 0 && minDiff <= 180) {
		return nil, fmt.Errorf("%w: random heading min difference %v outside [0, 180]", ErrInvalidConfig, minDiff)
	}
	return &RandomHeadings{rng: rng, minDiff: minDiff, limit: limit}, nil
}

func (r *RandomHeadings) Next(control.Pose) (Target, bool) {
	if r.limit > 0 && r.issued >= r.limit {
		return Target{}, false
	}
	defer func() { r.issued++ }()
	if r.issued == 0 {
		r.prev = 0
		return Target{}, true
	}
	h := r.draw()
	r.prev = h
	return Target{Index: r.issued, Pose: control.Pose{Heading: h}}, true
}

// draw picks uniformly from the headings at least minDiff away from prev:
// an offset in [minDiff, 180] turned to either side.
func (r *RandomHeadings) draw() float64 {
	offset := r.minDiff + r.rng.Float64()*(180-r.minDiff)
	if r.rng.IntN(2) == 0 {
		offset = -offset
	}
	return control.NormalizeAngle(r.prev + offset)
}
