package loop

import "math"

// Stick range of the remote-control channel.
const (
	StickMin    = 364
	StickMax    = 1684
	StickCenter = 1024
)

// Sticks is one command for all four channels.
type Sticks struct {
	Roll     int
	Pitch    int
	Throttle int
	Yaw      int
}

// Neutral returns centered sticks.
func Neutral() Sticks {
	return Sticks{Roll: StickCenter, Pitch: StickCenter, Throttle: StickCenter, Yaw: StickCenter}
}

// StickFromOffset converts a float offset around center to a stick value,
// truncating toward zero and clamping to the channel range.
func StickFromOffset(offset float64) int {
	if math.IsNaN(offset) {
		return StickCenter
	}
	v := StickCenter + offset
	if v <= StickMin {
		return StickMin
	}
	if v >= StickMax {
		return StickMax
	}
	return int(v)
}

// applyDeadzone zeroes offsets smaller in magnitude than dz.
func applyDeadzone(offset, dz float64) float64 {
	if dz > 0 && math.Abs(offset) < dz {
		return 0
	}
	return offset
}

// CommandSink receives stick commands. Send must not block for long; a slow
// sink lowers the loop rate.
type CommandSink interface {
	Send(Sticks) error
}

// SinkFunc adapts a function to CommandSink.
type SinkFunc func(Sticks) error

func (f SinkFunc) Send(s Sticks) error { return f(s) }
