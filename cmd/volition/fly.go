package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/GrooveWJH/volition/internal/config"
	"github.com/GrooveWJH/volition/internal/experiment"
	"github.com/GrooveWJH/volition/internal/loop"
	"github.com/GrooveWJH/volition/internal/observability"
	"github.com/GrooveWJH/volition/internal/storage"
)

func (a *app) initLogger(cmd *cobra.Command, cfg *config.Config) {
	observability.Initialize(cfg.Logger, zapcore.Lock(zapcore.AddSync(cmd.ErrOrStderr())))
}

func (a *app) fly(cmd *cobra.Command, mode string) error {
	cfg, err := a.loadConfig(mode)
	if err != nil {
		return err
	}
	a.initLogger(cmd, cfg)
	defer observability.Sync()
	log := observability.GetLogger().Named(mode)

	out := cmd.OutOrStdout()
	opts := experiment.Options{
		Fast:      a.fast,
		MaxTime:   time.Duration(a.maxTime * float64(time.Second)),
		Logger:    log,
		OnArrived: func(ar loop.Arrival) { printArrival(out, ar) },
	}
	if !cfg.AutoAdvance(mode) {
		lg := loop.NewLineGate(cmd.InOrStdin(), out)
		defer lg.Close()
		opts.Gate = lg
	}

	var rec *storage.Run
	if cfg.Record {
		st := storage.New(cfg.DataDir)
		if err := st.Init(); err != nil {
			return err
		}
		ctrl, err := cfg.Controller(mode)
		if err != nil {
			return err
		}
		rec, err = st.Create(storage.RunMetadata{
			Mode:       mode,
			Preset:     a.preset,
			Controller: ctrl.Name(),
			Frequency:  cfg.Frequency,
			Seed:       cfg.Plant.Seed,
		})
		if err != nil {
			return err
		}
		opts.Recorder = rec
		arrived := opts.OnArrived
		opts.OnArrived = func(ar loop.Arrival) {
			rec.NoteArrival()
			arrived(ar)
		}
	}

	exp, err := experiment.New(cfg, mode, opts)
	if err != nil {
		if rec != nil {
			rec.Close(experiment.StatusFailed)
		}
		return err
	}

	b := banner{mode: mode, controller: exp.Controller().Name(), axes: exp.Controller().Axes(), frequency: cfg.Frequency, fast: a.fast}
	if rec != nil {
		b.runID = rec.ID()
	}
	printBanner(out, b)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := exp.Run(ctx)
	log.Info("flight finished", zap.String("status", res.Status), zap.Int("arrivals", res.Arrivals))

	if rec != nil {
		rec.SetMetrics(res.Metrics)
		if cerr := rec.Close(res.Status); cerr != nil {
			err = errors.Join(err, fmt.Errorf("closing recording: %w", cerr))
		}
	}
	printSummary(out, res.Status, res.Arrivals, res.FlightTime)
	printMetrics(out, exp.Metrics(), res.Metrics)
	return err
}
