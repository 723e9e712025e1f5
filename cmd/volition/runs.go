package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/GrooveWJH/volition/internal/analysis"
	"github.com/GrooveWJH/volition/internal/config"
	"github.com/GrooveWJH/volition/internal/export"
	"github.com/GrooveWJH/volition/internal/storage"
	"github.com/GrooveWJH/volition/internal/viz"
)

func (a *app) store() (*storage.Store, error) {
	cfg, err := a.loadConfig("")
	if err != nil {
		return nil, err
	}
	return storage.New(cfg.DataDir), nil
}

func (a *app) listRuns(cmd *cobra.Command, args []string) error {
	st, err := a.store()
	if err != nil {
		return err
	}
	runs, err := st.List()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(out, "no runs found")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tMODE\tTIME\tDURATION\tTICKS\tARRIVALS\tSTATUS")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2fs\t%d\t%d\t%s\n",
			run.ID,
			run.Mode,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Duration,
			run.Ticks,
			run.Arrivals,
			run.Status,
		)
	}

	return w.Flush()
}

type series struct {
	column  string
	caption string
}

var plotSeries = map[string][]series{
	config.ModePlane: {
		{"distance", "distance to target (m)"},
		{"roll_offset", "roll offset"},
		{"pitch_offset", "pitch offset"},
	},
	config.ModeYaw: {
		{"error_yaw", "heading error (deg)"},
		{"yaw_offset", "yaw offset"},
	},
	config.ModeCombined: {
		{"distance", "distance to target (m)"},
		{"error_yaw", "heading error (deg)"},
		{"roll_offset", "roll offset"},
		{"pitch_offset", "pitch offset"},
		{"yaw_offset", "yaw offset"},
	},
}

func (a *app) plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st, err := a.store()
	if err != nil {
		return err
	}
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	table, err := st.LoadTrace(runID)
	if err != nil {
		return err
	}
	if len(table.Rows) == 0 {
		return fmt.Errorf("no data to plot")
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "run: %s\n", meta.ID)
	fmt.Fprintf(out, "mode: %s\n", meta.Mode)
	fmt.Fprintf(out, "samples: %d\n\n", len(table.Rows))

	for _, s := range plotSeries[meta.Mode] {
		data := table.Column(s.column)
		if data == nil {
			continue
		}
		graph := asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(s.caption),
		)
		fmt.Fprintln(out, graph)
		fmt.Fprintln(out)
	}

	if meta.Mode != config.ModeYaw {
		path, targets := flightPath(table)
		fmt.Fprint(out, viz.Path(path, targets, 60, 20))
		fmt.Fprintln(out, dim.Render("flight path, +x up, +y right; crosses mark targets"))

		if svg, _ := cmd.Flags().GetString("svg"); svg != "" {
			doc := export.PathToSVG(path, targets, 600, 600, "#00ff88")
			if doc == "" {
				return fmt.Errorf("not enough samples for an svg")
			}
			if err := os.WriteFile(svg, []byte(doc), 0644); err != nil {
				return err
			}
			fmt.Fprintf(out, "%s %s\n", dim.Render("saved"), cyan.Render(svg))
		}
	}
	return nil
}

// flightPath extracts the recorded positions and the distinct targets.
func flightPath(t *storage.Table) (path, targets []viz.Point) {
	xs, ys := t.Column("current_x"), t.Column("current_y")
	tx, ty := t.Column("target_x"), t.Column("target_y")
	seen := map[viz.Point]bool{}
	for i := range xs {
		path = append(path, viz.Point{X: xs[i], Y: ys[i]})
		if tx == nil || ty == nil {
			continue
		}
		p := viz.Point{X: tx[i], Y: ty[i]}
		if !seen[p] {
			seen[p] = true
			targets = append(targets, p)
		}
	}
	return path, targets
}

var errorSeries = map[string][]series{
	config.ModePlane:    {{"distance", "distance"}},
	config.ModeYaw:      {{"error_yaw", "heading error"}},
	config.ModeCombined: {{"distance", "distance"}, {"error_yaw", "heading error"}},
}

func (a *app) analyzeRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st, err := a.store()
	if err != nil {
		return err
	}
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	table, err := st.LoadTrace(runID)
	if err != nil {
		return err
	}
	if len(table.Rows) < 2 {
		return fmt.Errorf("no data")
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "frequency analysis: %s\n", meta.ID)
	fmt.Fprintf(out, "mode: %s\n\n", meta.Mode)

	for _, s := range errorSeries[meta.Mode] {
		data := table.Column(s.column)
		if data == nil {
			continue
		}
		ps, _ := analysis.Spectrum(data, meta.Frequency)
		plotData := ps[:len(ps)/4]
		if len(plotData) > 1 {
			graph := asciigraph.Plot(plotData,
				asciigraph.Height(15),
				asciigraph.Width(80),
				asciigraph.Caption("power spectrum ("+s.caption+")"),
			)
			fmt.Fprintln(out, graph)
			fmt.Fprintln(out)
		}

		freq, _ := analysis.DominantFrequency(data, meta.Frequency)
		fmt.Fprintf(out, "%s dominant frequency: %.3f hz\n", s.caption, freq)
		if freq > 0 {
			fmt.Fprintf(out, "%s period: %.3f s\n", s.caption, 1.0/freq)
		}
	}

	if len(meta.Metrics) > 0 {
		names := make([]string, 0, len(meta.Metrics))
		for name := range meta.Metrics {
			names = append(names, name)
		}
		sort.Strings(names)
		fmt.Fprintln(out, "\nmetrics:")
		for _, name := range names {
			fmt.Fprintf(out, "  %s: %.6f\n", name, meta.Metrics[name])
		}
	}
	return nil
}

func (a *app) exportRun(cmd *cobra.Command, args []string) error {
	st, err := a.store()
	if err != nil {
		return err
	}
	trace, _ := cmd.Flags().GetBool("trace")
	output, _ := cmd.Flags().GetString("output")
	switch {
	case output != "":
		return st.ExportJSONFile(output, args[0])
	case trace:
		return st.ExportJSON(cmd.OutOrStdout(), args[0])
	}

	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

func (a *app) listPresets(cmd *cobra.Command, args []string) error {
	modes := config.Modes()
	if len(args) == 1 {
		if !isMode(args[0]) {
			return fmt.Errorf("unknown mode: %s (available: %v)", args[0], modes)
		}
		modes = args
	}

	out := cmd.OutOrStdout()
	for _, mode := range modes {
		fmt.Fprintf(out, "presets for %s:\n", mode)
		for _, p := range config.ListPresets(mode) {
			fmt.Fprintf(out, "  %s\n", p)
		}
	}
	return nil
}

func (a *app) dumpConfig(cmd *cobra.Command, args []string) error {
	mode := ""
	if len(args) == 1 {
		if !isMode(args[0]) {
			return fmt.Errorf("unknown mode: %s (available: %v)", args[0], config.Modes())
		}
		mode = args[0]
	}
	cfg, err := a.loadConfig(mode)
	if err != nil {
		return err
	}

	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return err
	}
	return enc.Close()
}
