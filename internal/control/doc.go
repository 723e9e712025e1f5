// Package control provides the feedback controllers that turn pose error into
// stick offsets.
//
// The building blocks are:
//
//   - [PID]: single-axis PID with integral clamping and an optional
//     integration activation window
//   - [GainProfile]: distance-based scaling of Kp/Kd between a far and a
//     near profile
//   - [DelayCompensator]: Smith-predictor style cancellation of actuation
//     latency using a rolling [DelayBuffer]
//   - [Composite]: a parameterized multi-axis controller assembled from
//     [AxisSpec] values
//
// # Usage
//
//	ctrl, err := control.NewPlane(control.PlaneConfig{
//		PID:      control.PIDParams{Kp: 400, Ki: 20, Kd: 10, OutputLimit: 150},
//		Schedule: &profile,
//	})
//	res := ctrl.Compute(target, current, now)
//	// res.Offsets[control.AxisX] drives pitch, res.Offsets[control.AxisY] roll
//
// Times are monotonic seconds. Headings are degrees.
package control
