package control

import (
	"fmt"
	"math"
)

// GainProfile schedules Kp/Kd by distance to target. Beyond DistanceFar the
// Far scale applies, at or inside DistanceNear the Near scale applies, and in
// between the two are linearly interpolated.
type GainProfile struct {
	Far          GainScale `yaml:"far"`
	Near         GainScale `yaml:"near"`
	DistanceFar  float64   `yaml:"distance_far"`
	DistanceNear float64   `yaml:"distance_near"`
}

// DefaultGainProfile is aggressive far away and damped near the target.
func DefaultGainProfile() GainProfile {
	return GainProfile{
		Far:          GainScale{Kp: 1.0, Kd: 0.2},
		Near:         GainScale{Kp: 0.8, Kd: 1.2},
		DistanceFar:  1.0,
		DistanceNear: 0.2,
	}
}

// Validate rejects negative or non-finite distances and an inverted band.
// DistanceFar == DistanceNear is allowed and disables interpolation.
func (g GainProfile) Validate() error {
	for name, v := range map[string]float64{
		"distance_far":  g.DistanceFar,
		"distance_near": g.DistanceNear,
		"far.kp_scale":  g.Far.Kp,
		"far.kd_scale":  g.Far.Kd,
		"near.kp_scale": g.Near.Kp,
		"near.kd_scale": g.Near.Kd,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return fmt.Errorf("%w: gain schedule %s must be finite and non-negative, got %v", ErrInvalidConfig, name, v)
		}
	}
	if g.DistanceFar < g.DistanceNear {
		return fmt.Errorf("%w: gain schedule distance_far (%v) must not be below distance_near (%v)",
			ErrInvalidConfig, g.DistanceFar, g.DistanceNear)
	}
	return nil
}

// Scale returns the Kp/Kd multipliers for the given distance. The
// interpolation ratio is not clamped.
func (g GainProfile) Scale(distance float64) GainScale {
	switch {
	case distance > g.DistanceFar:
		return g.Far
	case distance > g.DistanceNear && g.DistanceFar > g.DistanceNear:
		ratio := (distance - g.DistanceNear) / (g.DistanceFar - g.DistanceNear)
		return GainScale{
			Kp: g.Near.Kp + (g.Far.Kp-g.Near.Kp)*ratio,
			Kd: g.Near.Kd + (g.Far.Kd-g.Near.Kd)*ratio,
		}
	default:
		return g.Near
	}
}
