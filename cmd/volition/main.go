package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/GrooveWJH/volition/internal/config"
)

// app holds the flag values shared by every command.
type app struct {
	v *viper.Viper

	configFile string
	preset     string
	fast       bool
	maxTime    float64
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{v: config.NewViper()}

	rootCmd := &cobra.Command{
		Use:           "volition",
		Short:         "pid flight control for a tracked vehicle",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&a.configFile, "config", "", "config file path (yaml)")
	pf.StringVar(&a.preset, "preset", "", "use preset configuration")
	pf.String("data", config.DefaultDataDir, "data directory")
	pf.String("log-level", "info", "log level (debug, info, warn, error)")
	pf.String("log-format", "console", "log format (console, json)")
	pf.String("log-file", "", "rotating JSON log file")
	pf.Uint64("seed", 1, "plant and target random seed")

	bindings := map[string]string{
		config.KeyDataDir:   "data",
		config.KeyLogLevel:  "log-level",
		config.KeyLogFormat: "log-format",
		config.KeyLogFile:   "log-file",
		config.KeyPlantSeed: "seed",
	}
	for key, flag := range bindings {
		if err := a.v.BindPFlag(key, pf.Lookup(flag)); err != nil {
			panic(err)
		}
	}

	modeShort := map[string]string{
		config.ModePlane:    "hold x/y waypoints",
		config.ModeYaw:      "hold heading targets",
		config.ModeCombined: "hold waypoints and heading together",
	}
	for _, mode := range config.Modes() {
		rootCmd.AddCommand(a.modeCmd(mode, modeShort[mode]))
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list recorded runs",
		Args:  cobra.NoArgs,
		RunE:  a.listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot errors and stick offsets of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  a.plotRun,
	}
	plotCmd.Flags().String("svg", "", "also write the flight path to this svg file")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "frequency analysis of tracking errors",
		Args:  cobra.ExactArgs(1),
		RunE:  a.analyzeRun,
	}

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export run metadata",
		Args:  cobra.ExactArgs(1),
		RunE:  a.exportRun,
	}
	exportCmd.Flags().Bool("trace", false, "include the full trace")
	exportCmd.Flags().StringP("output", "o", "", "write metadata and trace to this file")

	presetsCmd := &cobra.Command{
		Use:   "presets [mode]",
		Short: "list available presets",
		Args:  cobra.MaximumNArgs(1),
		RunE:  a.listPresets,
	}

	configCmd := &cobra.Command{
		Use:   "config [mode]",
		Short: "print the effective configuration as yaml",
		Args:  cobra.MaximumNArgs(1),
		RunE:  a.dumpConfig,
	}

	rootCmd.AddCommand(listCmd, plotCmd, analyzeCmd, exportCmd, presetsCmd, configCmd, a.tuneCmd())
	return rootCmd
}

func (a *app) modeCmd(mode, short string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   mode,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.v.BindPFlag(config.KeyAutoAdvance, cmd.Flags().Lookup("auto")); err != nil {
				return err
			}
			if err := a.v.BindPFlag(config.KeyRecord, cmd.Flags().Lookup("record")); err != nil {
				return err
			}
			return a.fly(cmd, mode)
		},
	}
	cmd.Flags().BoolVar(&a.fast, "fast", false, "run on simulated time instead of wall time")
	cmd.Flags().Float64Var(&a.maxTime, "max-time", 0, "stop after this many seconds of flight (0 = no limit)")
	cmd.Flags().Bool("auto", false, "advance to the next target without waiting for Enter")
	cmd.Flags().Bool("record", true, "record telemetry under the data directory")
	return cmd
}

// loadConfig layers preset, config file and overrides, in that order.
func (a *app) loadConfig(mode string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if a.preset != "" {
		if mode == "" {
			return nil, fmt.Errorf("--preset needs a mode")
		}
		cfg = config.GetPreset(mode, a.preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", a.preset, config.ListPresets(mode))
		}
	}

	if a.configFile != "" {
		loaded, err := config.Overlay(a.configFile, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	cfg.ApplyOverrides(a.v, mode)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func isMode(name string) bool {
	for _, m := range config.Modes() {
		if m == name {
			return true
		}
	}
	return false
}
