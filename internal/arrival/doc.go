// Package arrival decides when a vehicle has reached its target.
//
// A target is reached only after every tracked error has stayed inside its
// tolerance for a continuous dwell time:
//
//	Seeking -> Approaching(since) -> Arrived
//
// Leaving tolerance while Approaching drops back to Seeking and discards the
// timer. The machine also carries the one-shot reset-on-approach trigger used
// by the planar controller: the first time the distance drops below the
// trigger distance, Step reports which axes to reset and opens a mute window.
package arrival
