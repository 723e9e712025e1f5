package loop

import (
	"sync/atomic"

	"github.com/GrooveWJH/volition/internal/control"
)

// Feedback is one pose snapshot. Time is in seconds on the publisher's
// monotonic clock.
type Feedback struct {
	Time        float64
	HasPosition bool
	Position    [3]float64
	HasHeading  bool
	Heading     float64
}

// Pose returns the planar position and heading.
func (f Feedback) Pose() control.Pose {
	return control.Pose{X: f.Position[0], Y: f.Position[1], Heading: f.Heading}
}

// Source supplies the most recent feedback. ok is false until the first
// sample arrives.
type Source interface {
	Snapshot() (fb Feedback, ok bool)
}

// Latest is a single-slot feedback cell. Publish and Snapshot may be called
// from different goroutines; readers always see a whole sample.
type Latest struct {
	p atomic.Pointer[Feedback]
}

func (l *Latest) Publish(fb Feedback) {
	l.p.Store(&fb)
}

func (l *Latest) Snapshot() (Feedback, bool) {
	fb := l.p.Load()
	if fb == nil {
		return Feedback{}, false
	}
	return *fb, true
}

// TrackerSample is a motion-capture reading: position in meters and the
// orientation quaternion as (qx, qy, qz, qw).
type TrackerSample struct {
	Time       float64
	Position   [3]float64
	Quaternion [4]float64
}

// FromTracker converts a tracker reading to feedback, deriving the heading
// from the quaternion.
func FromTracker(s TrackerSample) Feedback {
	q := s.Quaternion
	return Feedback{
		Time:        s.Time,
		HasPosition: true,
		Position:    s.Position,
		HasHeading:  true,
		Heading:     control.QuaternionToHeading(q[0], q[1], q[2], q[3]),
	}
}
