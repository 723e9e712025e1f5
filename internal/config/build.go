package config

import (
	"fmt"
	"math/rand/v2"
	"sort"

	"github.com/GrooveWJH/volition/internal/arrival"
	"github.com/GrooveWJH/volition/internal/control"
	"github.com/GrooveWJH/volition/internal/loop"
	"github.com/GrooveWJH/volition/internal/plant"
)

// Control modes.
const (
	ModePlane    = "plane"
	ModeYaw      = "yaw"
	ModeCombined = "combined"
)

func Modes() []string { return []string{ModePlane, ModeYaw, ModeCombined} }

func (c *Config) driver(arr arrival.Config, deadzone float64) loop.Config {
	return loop.Config{
		Frequency:    c.Frequency,
		Deadzone:     deadzone,
		Arrival:      arr,
		ArrivalBurst: c.ArrivalBurst,
		StopBurst:    c.StopBurst,
	}
}

func (c *Config) PlaneController() (*control.Composite, error) {
	pc := control.PlaneConfig{PID: c.Plane.PID}
	if c.Plane.GainSchedule.Enabled {
		p := c.Plane.GainSchedule.GainProfile
		pc.Schedule = &p
	}
	if c.Plane.Delay.Enabled {
		d := c.Plane.Delay.DelayCompensator
		pc.Delay = &d
	}
	return control.NewPlane(pc)
}

func (c *Config) PlaneDriver() loop.Config {
	return c.driver(arrival.Config{
		StableTime:        c.Plane.StableTime,
		DistanceTolerance: c.Plane.Tolerance,
		ApproachReset:     c.Plane.ApproachReset,
	}, 0)
}

func (c *Config) YawController() (*control.Composite, error) {
	return control.NewHeading(control.HeadingConfig{PID: c.Yaw.PID})
}

func (c *Config) YawDriver() loop.Config {
	return c.driver(arrival.Config{
		StableTime:       c.Yaw.StableTime,
		HeadingTolerance: c.Yaw.Tolerance,
	}, c.Yaw.Deadzone)
}

func (c *Config) CombinedController() (*control.Composite, error) {
	return control.NewPlaneHeading(control.PlaneHeadingConfig{XY: c.Combined.XY, Heading: c.Combined.Heading})
}

func (c *Config) CombinedDriver() loop.Config {
	return c.driver(arrival.Config{
		StableTime:        c.Combined.StableTime,
		DistanceTolerance: c.Combined.DistanceTolerance,
		HeadingTolerance:  c.Combined.HeadingTolerance,
	}, 0)
}

// Controller builds the composite controller for mode.
func (c *Config) Controller(mode string) (*control.Composite, error) {
	switch mode {
	case ModePlane:
		return c.PlaneController()
	case ModeYaw:
		return c.YawController()
	case ModeCombined:
		return c.CombinedController()
	}
	return nil, fmt.Errorf("%w: unknown mode %q", ErrInvalid, mode)
}

// Driver returns the loop configuration for mode.
func (c *Config) Driver(mode string) (loop.Config, error) {
	switch mode {
	case ModePlane:
		return c.PlaneDriver(), nil
	case ModeYaw:
		return c.YawDriver(), nil
	case ModeCombined:
		return c.CombinedDriver(), nil
	}
	return loop.Config{}, fmt.Errorf("%w: unknown mode %q", ErrInvalid, mode)
}

// Sequencer builds the target sequence for mode. rng feeds the random
// sequences.
func (c *Config) Sequencer(mode string, rng *rand.Rand) (loop.Sequencer, error) {
	switch mode {
	case ModePlane:
		if r := c.Plane.Random; r.Enabled {
			return loop.NewRandomWaypoints(rng, r.MinDistance, r.MaxDistance, c.Plane.Limit)
		}
		return loop.NewFixed(c.Plane.Waypoints, c.Plane.Limit)
	case ModeYaw:
		if r := c.Yaw.Random; r.Enabled {
			return loop.NewRandomHeadings(rng, r.MinDiff, c.Yaw.Limit)
		}
		targets := make([]control.Pose, len(c.Yaw.Targets))
		for i, h := range c.Yaw.Targets {
			targets[i] = control.Pose{Heading: h}
		}
		return loop.NewFixed(targets, c.Yaw.Limit)
	case ModeCombined:
		return loop.NewFixed(c.Combined.Waypoints, c.Combined.Limit)
	}
	return nil, fmt.Errorf("%w: unknown mode %q", ErrInvalid, mode)
}

// AutoAdvance reports whether mode skips the arrival gate.
func (c *Config) AutoAdvance(mode string) bool {
	switch mode {
	case ModePlane:
		return c.Plane.AutoAdvance
	case ModeYaw:
		return c.Yaw.AutoAdvance
	case ModeCombined:
		return c.Combined.AutoAdvance
	}
	return false
}

// PlantFor returns the simulated vehicle for mode. The combined controller
// drives yaw with the opposite sign to the heading-only controller, so its
// vehicle uses the mirrored heading convention.
func (c *Config) PlantFor(mode string) plant.Config {
	p := c.Plant
	if mode == ModeCombined {
		p.YawGain = -p.YawGain
	}
	return p
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
