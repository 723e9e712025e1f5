package config

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/GrooveWJH/volition/internal/arrival"
	"github.com/GrooveWJH/volition/internal/control"
	"github.com/GrooveWJH/volition/internal/loop"
	"github.com/GrooveWJH/volition/internal/plant"
)

const (
	DefaultFrequency = 50.0
	DefaultDataDir   = "data"
)

// ErrInvalid wraps every validation failure reported by Validate.
var ErrInvalid = errors.New("config: invalid")

type Config struct {
	Frequency    float64      `yaml:"frequency"`
	DataDir      string       `yaml:"data_dir"`
	Record       bool         `yaml:"record"`
	ArrivalBurst loop.Burst   `yaml:"arrival_burst"`
	StopBurst    loop.Burst   `yaml:"stop_burst"`
	Logger       LoggerConfig `yaml:"logger"`

	Plane    PlaneConfig    `yaml:"plane"`
	Yaw      YawConfig      `yaml:"yaw"`
	Combined CombinedConfig `yaml:"combined"`
	Plant    plant.Config   `yaml:"plant"`
}

// LoggerConfig configures the zap logger. An empty LogFile disables the
// rotating file sink.
type LoggerConfig struct {
	Level       string `yaml:"level" mapstructure:"level"`
	Format      string `yaml:"format" mapstructure:"format"`
	ServiceName string `yaml:"service_name" mapstructure:"service_name"`
	LogFile     string `yaml:"log_file" mapstructure:"log_file"`
	MaxSize     int    `yaml:"max_size" mapstructure:"max_size"`
	MaxBackups  int    `yaml:"max_backups" mapstructure:"max_backups"`
	MaxAge      int    `yaml:"max_age" mapstructure:"max_age"`
	Compress    bool   `yaml:"compress" mapstructure:"compress"`
	AddCaller   bool   `yaml:"add_caller" mapstructure:"add_caller"`
}

type GainScheduleConfig struct {
	Enabled             bool `yaml:"enabled"`
	control.GainProfile `yaml:",inline"`
}

type DelayConfig struct {
	Enabled                  bool `yaml:"enabled"`
	control.DelayCompensator `yaml:",inline"`
}

type RandomWaypointConfig struct {
	Enabled     bool    `yaml:"enabled"`
	MinDistance float64 `yaml:"min_distance"`
	MaxDistance float64 `yaml:"max_distance"`
}

type RandomHeadingConfig struct {
	Enabled bool    `yaml:"enabled"`
	MinDiff float64 `yaml:"min_diff"`
}

// PlaneConfig configures the X/Y position mode.
type PlaneConfig struct {
	PID           control.PIDParams     `yaml:"pid"`
	GainSchedule  GainScheduleConfig    `yaml:"gain_schedule"`
	Delay         DelayConfig           `yaml:"delay_compensation"`
	Tolerance     float64               `yaml:"tolerance"`
	StableTime    float64               `yaml:"stable_time"`
	ApproachReset arrival.ApproachReset `yaml:"approach_reset"`
	Waypoints     []control.Pose        `yaml:"waypoints"`
	Random        RandomWaypointConfig  `yaml:"random"`
	AutoAdvance   bool                  `yaml:"auto_advance"`
	Limit         int                   `yaml:"limit"`
}

// YawConfig configures the heading-only mode.
type YawConfig struct {
	PID         control.PIDParams   `yaml:"pid"`
	Tolerance   float64             `yaml:"tolerance"`
	StableTime  float64             `yaml:"stable_time"`
	Deadzone    float64             `yaml:"deadzone"`
	Targets     []float64           `yaml:"targets"`
	Random      RandomHeadingConfig `yaml:"random"`
	AutoAdvance bool                `yaml:"auto_advance"`
	Limit       int                 `yaml:"limit"`
}

// CombinedConfig configures the X/Y/heading mode.
type CombinedConfig struct {
	XY                control.PIDParams `yaml:"xy"`
	Heading           control.PIDParams `yaml:"heading"`
	DistanceTolerance float64           `yaml:"distance_tolerance"`
	HeadingTolerance  float64           `yaml:"heading_tolerance"`
	StableTime        float64           `yaml:"stable_time"`
	Waypoints         []control.Pose    `yaml:"waypoints"`
	AutoAdvance       bool              `yaml:"auto_advance"`
	Limit             int               `yaml:"limit"`
}

func DefaultConfig() *Config {
	return &Config{
		Frequency:    DefaultFrequency,
		DataDir:      DefaultDataDir,
		Record:       true,
		ArrivalBurst: loop.Burst{Count: 5, Interval: 10 * time.Millisecond},
		StopBurst:    loop.Burst{Count: 5, Interval: 100 * time.Millisecond},
		Logger: LoggerConfig{
			Level:       "info",
			Format:      "console",
			ServiceName: "volition",
			MaxSize:     10,
			MaxBackups:  3,
			MaxAge:      28,
		},
		Plane: PlaneConfig{
			PID: control.PIDParams{Kp: 400, Ki: 20, Kd: 10, OutputLimit: 150},
			GainSchedule: GainScheduleConfig{
				Enabled:     true,
				GainProfile: control.DefaultGainProfile(),
			},
			Delay:      DelayConfig{DelayCompensator: control.DefaultDelayCompensator()},
			Tolerance:  0.10,
			StableTime: 1.0,
			ApproachReset: arrival.ApproachReset{
				Enabled:         true,
				TriggerDistance: 0.05,
				MuteDuration:    1.0,
				Axes:            control.NewAxisSet(control.AxisY),
			},
			Waypoints: []control.Pose{{X: 0, Y: 0}, {X: -1, Y: 1}},
			Random:    RandomWaypointConfig{MinDistance: 0.5, MaxDistance: 1.0},
		},
		Yaw: YawConfig{
			PID:         control.PIDParams{Kp: 12, Ki: 5, Kd: 1, OutputLimit: 660, IActivation: 70},
			Tolerance:   2,
			StableTime:  0.5,
			Targets:     []float64{0, 90, 180, -90},
			Random:      RandomHeadingConfig{Enabled: true, MinDiff: 45},
			AutoAdvance: true,
		},
		Combined: CombinedConfig{
			XY:                control.PIDParams{Kp: 400, Ki: 20, Kd: 10, OutputLimit: 150},
			Heading:           control.PIDParams{Kp: 12, Ki: 5, Kd: 1, OutputLimit: 150},
			DistanceTolerance: 0.10,
			HeadingTolerance:  2,
			StableTime:        1.0,
			Waypoints:         []control.Pose{{X: 0, Y: 0, Heading: 0}, {X: -1, Y: 1, Heading: 90}},
		},
		Plant: plant.DefaultConfig(),
	}
}

func Load(path string) (*Config, error) {
	return Overlay(path, DefaultConfig())
}

// Overlay decodes the YAML file at path over base and validates the result.
// Keys absent from the file keep their base values.
func Overlay(path string, base *Config) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := base.Clone()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	out := *c
	out.Plane.Waypoints = append([]control.Pose(nil), c.Plane.Waypoints...)
	out.Yaw.Targets = append([]float64(nil), c.Yaw.Targets...)
	out.Combined.Waypoints = append([]control.Pose(nil), c.Combined.Waypoints...)
	return &out
}

// Validate builds every mode once and reports the first failure.
func (c *Config) Validate() error {
	if _, err := c.PlaneController(); err != nil {
		return fmt.Errorf("%w: plane: %w", ErrInvalid, err)
	}
	if err := c.PlaneDriver().Validate(); err != nil {
		return fmt.Errorf("%w: plane: %w", ErrInvalid, err)
	}
	if _, err := c.YawController(); err != nil {
		return fmt.Errorf("%w: yaw: %w", ErrInvalid, err)
	}
	if err := c.YawDriver().Validate(); err != nil {
		return fmt.Errorf("%w: yaw: %w", ErrInvalid, err)
	}
	if _, err := c.CombinedController(); err != nil {
		return fmt.Errorf("%w: combined: %w", ErrInvalid, err)
	}
	if err := c.CombinedDriver().Validate(); err != nil {
		return fmt.Errorf("%w: combined: %w", ErrInvalid, err)
	}
	rng := rand.New(rand.NewPCG(0, 0))
	for _, mode := range Modes() {
		if _, err := c.Sequencer(mode, rng); err != nil {
			return fmt.Errorf("%w: %s targets: %w", ErrInvalid, mode, err)
		}
	}
	if err := c.Plant.Validate(); err != nil {
		return fmt.Errorf("%w: plant: %w", ErrInvalid, err)
	}
	return nil
}
