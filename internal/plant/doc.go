// Package plant simulates the vehicle the control loop flies when no real
// aircraft is attached.
//
// The model is a world-aligned point mass with first-order velocity lag on
// each planar axis and on yaw rate:
//
//	vx' = (gain*pitch - vx) / tau
//	vy' = (-gain*roll - vy) / tau
//	r'  = (yawGain*yaw - r) / yawTau
//
// where pitch, roll and yaw are stick offsets from center. Commands take
// effect after a fixed transport delay. The state is integrated with RK4 and
// published to a loop.Latest cell as noisy tracker samples.
package plant
