// Package export renders flight paths as SVG documents.
package export

import (
	"fmt"
	"math"
	"strings"

	"github.com/GrooveWJH/volition/internal/viz"
)

const svgHeader = `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`

// PathToSVG draws a flight path as a polyline with targets as rings. +X in
// the world points up the page and +Y to the right, at equal scale with 10%
// padding. Fewer than two path points yield an empty string.
func PathToSVG(path, targets []viz.Point, width, height int, strokeColor string) string {
	if len(path) < 2 || width <= 0 || height <= 0 {
		return ""
	}

	all := append(append([]viz.Point(nil), path...), targets...)
	minX, maxX := all[0].X, all[0].X
	minY, maxY := all[0].Y, all[0].Y
	for _, p := range all {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}

	rangeX := maxX - minX
	rangeY := maxY - minY
	span := math.Max(rangeX, rangeY)
	if span == 0 {
		span = 1
	}
	span *= 1.2
	midX, midY := (minX+maxX)/2, (minY+maxY)/2
	w, h := float64(width), float64(height)
	pxPerM := math.Min(w, h) / span

	project := func(p viz.Point) (float64, float64) {
		return w/2 + (p.Y-midY)*pxPerM, h/2 - (p.X-midX)*pxPerM
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, svgHeader, w, h, w, h)
	fmt.Fprintf(&sb, `<path fill="none" stroke="%s" stroke-width="1.5" d="M`, strokeColor)
	for i, p := range path {
		x, y := project(p)
		if i == 0 {
			fmt.Fprintf(&sb, "%.1f,%.1f", x, y)
		} else {
			fmt.Fprintf(&sb, " L%.1f,%.1f", x, y)
		}
	}
	sb.WriteString("\"/>\n")

	for _, t := range targets {
		x, y := project(t)
		fmt.Fprintf(&sb, "<circle cx=\"%.1f\" cy=\"%.1f\" r=\"6\" fill=\"none\" stroke=\"#ff5f5f\" stroke-width=\"1.5\"/>\n", x, y)
	}

	sb.WriteString("</svg>")
	return sb.String()
}
