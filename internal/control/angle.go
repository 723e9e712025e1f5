package control

import "math"

// NormalizeAngle wraps a heading in degrees into (-180, 180].
func NormalizeAngle(deg float64) float64 {
	for deg > 180 {
		deg -= 360
	}
	for deg <= -180 {
		deg += 360
	}
	return deg
}

// HeadingError is the shortest signed rotation from current to target.
// Positive means counterclockwise.
func HeadingError(target, current float64) float64 {
	return NormalizeAngle(target - current)
}

// QuaternionToHeading extracts yaw in degrees from a (qx, qy, qz, qw) quaternion.
func QuaternionToHeading(qx, qy, qz, qw float64) float64 {
	yaw := math.Atan2(2*(qw*qz+qx*qy), 1-2*(qy*qy+qz*qz))
	return yaw * 180 / math.Pi
}

// HeadingToQuaternion is the inverse of QuaternionToHeading for a pure yaw
// rotation.
func HeadingToQuaternion(deg float64) (qx, qy, qz, qw float64) {
	half := deg * math.Pi / 360
	return 0, 0, math.Sin(half), math.Cos(half)
}

// Distance is the planar Euclidean distance between two points.
func Distance(x1, y1, x2, y2 float64) float64 {
	dx, dy := x1-x2, y1-y2
	return math.Sqrt(dx*dx + dy*dy)
}

func clamp(v, limit float64) float64 {
	if v > limit {
		return limit
	}
	if v < -limit {
		return -limit
	}
	return v
}
