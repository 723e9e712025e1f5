package loop

import (
	"errors"

	"github.com/GrooveWJH/volition/internal/arrival"
	"github.com/GrooveWJH/volition/internal/control"
)

// Trace is the numeric record of one emitted tick.
type Trace struct {
	Time     float64
	Target   Target
	Current  control.Pose
	Errors   [control.NumAxes]float64
	Distance float64
	Offsets  [control.NumAxes]float64
	// Components are the PID terms before sign inversion; zero while muted.
	Components [control.NumAxes]control.Components
	Scale      control.GainScale
	Sticks     Sticks
	Phase      arrival.Phase
	Muted      bool
}

// Recorder persists traces. It is purely observational.
type Recorder interface {
	Record(Trace) error
}

// RecorderFunc adapts a function to Recorder.
type RecorderFunc func(Trace) error

func (f RecorderFunc) Record(t Trace) error { return f(t) }

// Tee records every trace to each of rs and joins their errors.
func Tee(rs ...Recorder) Recorder {
	return RecorderFunc(func(t Trace) error {
		var errs []error
		for _, r := range rs {
			if err := r.Record(t); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})
}
