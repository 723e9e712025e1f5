package config

import (
	"fmt"
	"sort"

	"github.com/GrooveWJH/volition/internal/control"
)

// gainParams maps tunable names to the PID parameters they address per mode.
func (c *Config) gainParams(mode string) (map[string]*control.PIDParams, error) {
	switch mode {
	case ModePlane:
		return map[string]*control.PIDParams{"": &c.Plane.PID}, nil
	case ModeYaw:
		return map[string]*control.PIDParams{"": &c.Yaw.PID}, nil
	case ModeCombined:
		return map[string]*control.PIDParams{"xy_": &c.Combined.XY, "heading_": &c.Combined.Heading}, nil
	}
	return nil, fmt.Errorf("%w: unknown mode %q", ErrInvalid, mode)
}

var gainFields = []string{"kp", "ki", "kd", "output_limit"}

// Params lists the gain names SetParam accepts for mode, e.g. "kp" for plane
// or "heading_kd" for combined.
func Params(mode string) []string {
	var c Config
	groups, err := c.gainParams(mode)
	if err != nil {
		return nil
	}
	var names []string
	for prefix := range groups {
		for _, f := range gainFields {
			names = append(names, prefix+f)
		}
	}
	sort.Strings(names)
	return names
}

// SetParam sets one controller gain of mode. The result is not validated.
func (c *Config) SetParam(mode, name string, value float64) error {
	groups, err := c.gainParams(mode)
	if err != nil {
		return err
	}
	for prefix, p := range groups {
		switch name {
		case prefix + "kp":
			p.Kp = value
		case prefix + "ki":
			p.Ki = value
		case prefix + "kd":
			p.Kd = value
		case prefix + "output_limit":
			p.OutputLimit = value
		default:
			continue
		}
		return nil
	}
	return fmt.Errorf("unknown param: %s (available: %v)", name, Params(mode))
}
