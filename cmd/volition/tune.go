package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/GrooveWJH/volition/internal/config"
	"github.com/GrooveWJH/volition/internal/experiment"
	"github.com/GrooveWJH/volition/internal/observability"
	"github.com/GrooveWJH/volition/internal/optim"
)

type tuneFlags struct {
	grid    []string
	metric  string
	workers int
	seeds   int
	flight  float64
	top     int
	write   string
}

func (a *app) tuneCmd() *cobra.Command {
	var f tuneFlags
	cmd := &cobra.Command{
		Use:   "tune [mode]",
		Short: "grid search controller gains on the simulated vehicle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.tune(cmd, args[0], f)
		},
	}
	cmd.Flags().StringArrayVar(&f.grid, "grid", nil, "gain values to try, e.g. kp=300,400,500 (repeatable)")
	cmd.Flags().StringVar(&f.metric, "metric", "", "metric to minimize (default rms error of the mode)")
	cmd.Flags().IntVar(&f.workers, "workers", runtime.NumCPU(), "flights run in parallel")
	cmd.Flags().IntVar(&f.seeds, "seeds", 1, "flights per gain set with consecutive plant seeds, averaged")
	cmd.Flags().Float64Var(&f.flight, "flight-time", 30, "simulated seconds per flight")
	cmd.Flags().IntVar(&f.top, "top", 10, "trials to print")
	cmd.Flags().StringVar(&f.write, "write", "", "save the configuration with the best gains to this file")
	return cmd
}

func parseGrid(specs []string) ([]optim.Param, error) {
	params := make([]optim.Param, 0, len(specs))
	for _, spec := range specs {
		name, list, ok := strings.Cut(spec, "=")
		if !ok || name == "" || list == "" {
			return nil, fmt.Errorf("bad --grid %q, want name=v1,v2,...", spec)
		}
		p := optim.Param{Name: strings.TrimSpace(name)}
		for _, field := range strings.Split(list, ",") {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, fmt.Errorf("bad --grid %q: %w", spec, err)
			}
			p.Values = append(p.Values, v)
		}
		params = append(params, p)
	}
	return params, nil
}

func defaultMetric(mode string) string {
	if mode == config.ModeYaw {
		return "rms_heading_error"
	}
	return "rms_distance"
}

// apply returns a copy of base with params set for mode.
func apply(base *config.Config, mode string, params map[string]float64) (*config.Config, error) {
	cfg := base.Clone()
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := cfg.SetParam(mode, name, params[name]); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func (a *app) tune(cmd *cobra.Command, mode string, f tuneFlags) error {
	if !isMode(mode) {
		return fmt.Errorf("unknown mode: %s (available: %v)", mode, config.Modes())
	}
	base, err := a.loadConfig(mode)
	if err != nil {
		return err
	}
	if len(f.grid) == 0 {
		return fmt.Errorf("at least one --grid is required (params: %v)", config.Params(mode))
	}
	params, err := parseGrid(f.grid)
	if err != nil {
		return err
	}
	for _, p := range params {
		if err := base.Clone().SetParam(mode, p.Name, p.Values[0]); err != nil {
			return err
		}
	}
	if f.metric == "" {
		f.metric = defaultMetric(mode)
	}
	if f.seeds < 1 {
		f.seeds = 1
	}

	a.initLogger(cmd, base)
	defer observability.Sync()
	log := observability.GetLogger().Named("tune")
	flightLog := log.WithOptions(zap.IncreaseLevel(zapcore.WarnLevel))

	search, err := optim.NewGridSearch(params, f.workers)
	if err != nil {
		return err
	}

	objective := func(ctx context.Context, p map[string]float64) (float64, error) {
		cfg, err := apply(base, mode, p)
		if err != nil {
			return 0, err
		}
		total := 0.0
		for s := 0; s < f.seeds; s++ {
			run := cfg.Clone()
			run.Plant.Seed = base.Plant.Seed + uint64(s)
			if err := run.Validate(); err != nil {
				return 0, err
			}
			exp, err := experiment.New(run, mode, experiment.Options{
				Fast:    true,
				MaxTime: time.Duration(f.flight * float64(time.Second)),
				Logger:  flightLog,
			})
			if err != nil {
				return 0, err
			}
			res, err := exp.Run(ctx)
			if err != nil {
				return 0, err
			}
			if res.Status == experiment.StatusInterrupted {
				return 0, ctx.Err()
			}
			score, ok := res.Metrics[f.metric]
			if !ok {
				return 0, fmt.Errorf("unknown metric %s (available: %v)", f.metric, exp.Metrics())
			}
			total += score
		}
		return total / float64(f.seeds), nil
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	points := len(search.Points())
	fmt.Fprintf(out, "%s %s\n", title.Render("tuning "+mode), dim.Render(fmt.Sprintf("%d gain sets x %d seeds, minimizing %s", points, f.seeds, f.metric)))
	start := time.Now()

	res, err := search.Search(ctx, objective)
	if res != nil {
		printTrials(out, params, res.Trials, f.top)
	}
	if err != nil {
		return err
	}
	log.Info("tuning finished", zap.Int("trials", points), zap.Duration("elapsed", time.Since(start)))

	fmt.Fprintf(out, "%s %s %s\n", green.Render("best"), white.Render(formatParams(params, res.Best)), dim.Render(fmt.Sprintf("%s %.4f", f.metric, res.Score)))

	if f.write != "" {
		best, err := apply(base, mode, res.Best)
		if err != nil {
			return err
		}
		if err := config.Save(f.write, best); err != nil {
			return err
		}
		fmt.Fprintf(out, "%s %s\n", dim.Render("saved"), cyan.Render(f.write))
	}
	return nil
}

func formatParams(params []optim.Param, values map[string]float64) string {
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = fmt.Sprintf("%s=%g", p.Name, values[p.Name])
	}
	return strings.Join(parts, " ")
}

func printTrials(out io.Writer, params []optim.Param, trials []optim.Trial, top int) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	header := make([]string, 0, len(params)+1)
	for _, p := range params {
		header = append(header, strings.ToUpper(p.Name))
	}
	fmt.Fprintln(w, strings.Join(append(header, "SCORE"), "\t"))

	for i, t := range trials {
		if top > 0 && i >= top {
			break
		}
		row := make([]string, 0, len(params)+1)
		for _, p := range params {
			row = append(row, strconv.FormatFloat(t.Params[p.Name], 'g', -1, 64))
		}
		score := fmt.Sprintf("%.4f", t.Score)
		if t.Err != nil {
			score = "error: " + t.Err.Error()
		}
		fmt.Fprintln(w, strings.Join(append(row, score), "\t"))
	}
	w.Flush()
}
