package config

import (
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment overrides, e.g. VOLITION_DATA_DIR.
const EnvPrefix = "VOLITION"

// Override keys understood by ApplyOverrides.
const (
	KeyDataDir     = "data_dir"
	KeyFrequency   = "frequency"
	KeyRecord      = "record"
	KeyLogLevel    = "logger.level"
	KeyLogFormat   = "logger.format"
	KeyLogFile     = "logger.log_file"
	KeyPlantSeed   = "plant.seed"
	KeyPlantNoise  = "plant.position_noise"
	KeyPlantDelay  = "plant.delay"
	KeyAutoAdvance = "auto_advance"
)

// NewViper returns a viper instance reading VOLITION_* environment variables.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// ApplyOverrides copies every key set in v (by flag, environment or Set)
// over the file values. The auto_advance key applies to mode.
func (c *Config) ApplyOverrides(v *viper.Viper, mode string) {
	if v.IsSet(KeyDataDir) {
		c.DataDir = v.GetString(KeyDataDir)
	}
	if v.IsSet(KeyFrequency) {
		c.Frequency = v.GetFloat64(KeyFrequency)
	}
	if v.IsSet(KeyRecord) {
		c.Record = v.GetBool(KeyRecord)
	}
	if v.IsSet(KeyLogLevel) {
		c.Logger.Level = v.GetString(KeyLogLevel)
	}
	if v.IsSet(KeyLogFormat) {
		c.Logger.Format = v.GetString(KeyLogFormat)
	}
	if v.IsSet(KeyLogFile) {
		c.Logger.LogFile = v.GetString(KeyLogFile)
	}
	if v.IsSet(KeyPlantSeed) {
		c.Plant.Seed = v.GetUint64(KeyPlantSeed)
	}
	if v.IsSet(KeyPlantNoise) {
		c.Plant.PositionNoise = v.GetFloat64(KeyPlantNoise)
	}
	if v.IsSet(KeyPlantDelay) {
		c.Plant.Delay = v.GetFloat64(KeyPlantDelay)
	}
	if v.IsSet(KeyAutoAdvance) {
		auto := v.GetBool(KeyAutoAdvance)
		switch mode {
		case ModePlane:
			c.Plane.AutoAdvance = auto
		case ModeYaw:
			c.Yaw.AutoAdvance = auto
		case ModeCombined:
			c.Combined.AutoAdvance = auto
		}
	}
}
