// Package analysis scores recorded flights.
//
// Metrics observe every emitted tick and reduce the flight to a few numbers:
//
//   - [RMSError]: root mean square distance or heading error
//   - [ControlEffort]: mean absolute stick offset
//   - [Saturation]: fraction of ticks with a stick at its travel limit
//   - [MutedFraction]: fraction of ticks spent in the approach mute window
//
// A [Suite] feeds several metrics at once and satisfies loop.Recorder, so it
// can be attached to a driver next to the telemetry recorder.
//
// # Oscillation
//
// An under-damped axis shows up as a peak in the error spectrum:
//
//	f, power := analysis.DominantFrequency(headingErrors, 50)
//	if f > 0 {
//	    // heading oscillates with period 1/f
//	}
package analysis
