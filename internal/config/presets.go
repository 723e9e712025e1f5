package config

// Presets mutate the default configuration for a named tuning of one mode.
var Presets = map[string]map[string]func(*Config){
	ModePlane: {
		"default": func(*Config) {},
		"gentle": func(c *Config) {
			c.Plane.PID.Kp, c.Plane.PID.Ki, c.Plane.PID.Kd = 250, 10, 10
			c.Plane.PID.OutputLimit = 100
			c.Plane.StableTime = 1.5
		},
		"aggressive": func(c *Config) {
			c.Plane.PID.Kp, c.Plane.PID.OutputLimit = 500, 200
			c.Plane.Delay.Enabled = true
		},
		"random": func(c *Config) {
			c.Plane.Random.Enabled = true
			c.Plane.AutoAdvance = true
			c.Plane.Limit = 10
		},
	},
	ModeYaw: {
		"default": func(*Config) {},
		"snappy": func(c *Config) {
			c.Yaw.PID.Kp, c.Yaw.PID.Kd = 18, 2
			c.Yaw.StableTime = 0.3
		},
		"fixed": func(c *Config) {
			c.Yaw.Random.Enabled = false
			c.Yaw.AutoAdvance = false
		},
	},
	ModeCombined: {
		"default": func(*Config) {},
		"auto": func(c *Config) {
			c.Combined.AutoAdvance = true
			c.Combined.Limit = 4
		},
	},
}

// GetPreset returns a fresh configuration for the named preset of mode, or
// nil if either is unknown.
func GetPreset(mode, preset string) *Config {
	modePresets, ok := Presets[mode]
	if !ok {
		return nil
	}
	apply, ok := modePresets[preset]
	if !ok {
		return nil
	}
	cfg := DefaultConfig()
	apply(cfg)
	return cfg
}

// ListPresets returns the preset names of mode in sorted order.
func ListPresets(mode string) []string {
	modePresets, ok := Presets[mode]
	if !ok {
		return nil
	}
	return sortedKeys(modePresets)
}
