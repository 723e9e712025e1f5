package loop

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/GrooveWJH/volition/internal/control"
)

func TestFixedCyclesAndLimits(t *testing.T) {
	seq, err := NewFixed([]control.Pose{{X: 0}, {X: -1, Y: 1}}, 3)
	if err != nil {
		t.Fatalf("new fixed: %v", err)
	}
	wantIdx := []int{0, 1, 0}
	for i, want := range wantIdx {
		tg, ok := seq.Next(control.Pose{})
		if !ok {
			t.Fatalf("step %d: sequence ended early", i)
		}
		if tg.Index != want {
			t.Errorf("step %d: index %d, want %d", i, tg.Index, want)
		}
	}
	if _, ok := seq.Next(control.Pose{}); ok {
		t.Error("expected sequence to end after limit")
	}

	if _, err := NewFixed(nil, 0); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig for empty list, got %v", err)
	}
}

func TestFixedNormalizesHeadings(t *testing.T) {
	seq, err := NewFixed([]control.Pose{{Heading: 270}, {Heading: -180}, {Heading: 90}}, 0)
	if err != nil {
		t.Fatalf("new fixed: %v", err)
	}
	for i, want := range []float64{-90, 180, 90} {
		tg, _ := seq.Next(control.Pose{})
		if tg.Pose.Heading != want {
			t.Errorf("target %d: heading %v, want %v", i, tg.Pose.Heading, want)
		}
	}
}

func TestFixedDoesNotAliasInput(t *testing.T) {
	in := []control.Pose{{Heading: 10}}
	seq, err := NewFixed(in, 0)
	if err != nil {
		t.Fatal(err)
	}
	in[0].Heading = 50
	if tg, _ := seq.Next(control.Pose{}); tg.Pose.Heading != 10 {
		t.Errorf("heading %v, want 10", tg.Pose.Heading)
	}
}

func TestRandomWaypoints(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	seq, err := NewRandomWaypoints(rng, 0.5, 1.0, 20)
	if err != nil {
		t.Fatalf("new random waypoints: %v", err)
	}

	first, ok := seq.Next(control.Pose{X: 3, Y: 3})
	if !ok || first.Pose != (control.Pose{}) || first.Index != 0 {
		t.Fatalf("first waypoint must be the origin, got %+v", first)
	}

	current := control.Pose{X: 2, Y: -1}
	for i := 1; i < 20; i++ {
		tg, ok := seq.Next(current)
		if !ok {
			t.Fatalf("step %d: sequence ended early", i)
		}
		d := control.Distance(tg.Pose.X, tg.Pose.Y, current.X, current.Y)
		if d < 0.5-1e-9 || d > 1.0+1e-9 {
			t.Errorf("step %d: distance %v outside [0.5, 1.0]", i, d)
		}
		if tg.Index != i {
			t.Errorf("step %d: index %d", i, tg.Index)
		}
		current = tg.Pose
	}
	if _, ok := seq.Next(current); ok {
		t.Error("expected sequence to end after limit")
	}

	if _, err := NewRandomWaypoints(rng, 1, 0.5, 0); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig for inverted range, got %v", err)
	}
}

func TestRandomHeadingsKeepMinimumDifference(t *testing.T) {
	seq, err := NewRandomHeadings(rand.New(rand.NewPCG(7, 7)), 45, 0)
	if err != nil {
		t.Fatalf("new random headings: %v", err)
	}
	prev, _ := seq.Next(control.Pose{})
	if prev.Pose.Heading != 0 {
		t.Fatalf("first heading must be 0, got %v", prev.Pose.Heading)
	}
	for i := 0; i < 200; i++ {
		tg, _ := seq.Next(control.Pose{})
		h := tg.Pose.Heading
		if h <= -180 || h > 180 {
			t.Fatalf("heading %v outside (-180, 180]", h)
		}
		if diff := math.Abs(control.HeadingError(h, prev.Pose.Heading)); diff < 45 {
			t.Fatalf("heading %v only %v away from %v", h, diff, prev.Pose.Heading)
		}
		prev = tg
	}

	if _, err := NewRandomHeadings(nil, 200, 0); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestRandomHeadingsAtBounds(t *testing.T) {
	tests := []struct {
		name    string
		minDiff float64
	}{
		{"opposite only", 180},
		{"near opposite", 179.5},
		{"any", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seq, err := NewRandomHeadings(rand.New(rand.NewPCG(3, 4)), tt.minDiff, 50)
			if err != nil {
				t.Fatalf("new random headings: %v", err)
			}
			prev, _ := seq.Next(control.Pose{})
			for i := 1; i < 50; i++ {
				tg, ok := seq.Next(control.Pose{})
				if !ok {
					t.Fatalf("step %d: sequence ended early", i)
				}
				h := tg.Pose.Heading
				if h <= -180 || h > 180 {
					t.Fatalf("heading %v outside (-180, 180]", h)
				}
				if diff := math.Abs(control.HeadingError(h, prev.Pose.Heading)); diff < tt.minDiff-1e-9 {
					t.Fatalf("heading %v only %v away from %v", h, diff, prev.Pose.Heading)
				}
				prev = tg
			}
			if _, ok := seq.Next(control.Pose{}); ok {
				t.Error("expected sequence to end after limit")
			}
		})
	}
}
