package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/GrooveWJH/volition/internal/control"
	"github.com/GrooveWJH/volition/internal/experiment"
	"github.com/GrooveWJH/volition/internal/loop"
)

var (
	cyan   = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	white  = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	dim    = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	green  = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	yellow = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	red    = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))

	title = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true)
	panel = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#444466")).
		Padding(0, 1)
)

type banner struct {
	mode       string
	controller string
	axes       control.AxisSet
	frequency  float64
	fast       bool
	runID      string
}

func printBanner(w io.Writer, b banner) {
	clock := "wall clock"
	if b.fast {
		clock = "simulated clock"
	}
	lines := title.Render("volition "+b.mode) + "\n" +
		dim.Render("controller ") + white.Render(b.controller) + dim.Render(" axes ") + white.Render(b.axes.String()) + "\n" +
		dim.Render("rate ") + white.Render(fmt.Sprintf("%.0f Hz", b.frequency)) + dim.Render(", "+clock)
	if b.runID != "" {
		lines += "\n" + dim.Render("recording ") + cyan.Render(b.runID)
	}
	fmt.Fprintln(w, panel.Render(lines))
}

func printArrival(w io.Writer, ar loop.Arrival) {
	fmt.Fprintf(w, "%s %s %s\n",
		green.Render("arrived"),
		white.Render(ar.Target.String()),
		dim.Render(fmt.Sprintf("in %.2fs, dist %.3f m, heading err %.2f°", ar.Elapsed, ar.Distance, ar.Heading)),
	)
}

func printSummary(w io.Writer, status string, arrivals int, flight float64) {
	style := green
	switch status {
	case experiment.StatusInterrupted, experiment.StatusTimeLimit:
		style = yellow
	case experiment.StatusFailed:
		style = red
	}
	fmt.Fprintf(w, "%s %s\n", style.Render(status), dim.Render(fmt.Sprintf("%d targets reached in %.2fs", arrivals, flight)))
}

func printMetrics(w io.Writer, names []string, values map[string]float64) {
	for _, name := range names {
		fmt.Fprintf(w, "  %s %s\n", dim.Render(fmt.Sprintf("%-18s", name)), white.Render(fmt.Sprintf("%.4f", values[name])))
	}
}
