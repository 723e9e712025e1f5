// Package viz draws flight paths with Unicode Braille cells.
package viz

import (
	"math"
	"strings"
)

// Canvas is a grid of Braille cells, each holding 2x4 dots. Dots are
// addressed from the top left; a canvas of cols x rows cells has
// (2*cols) x (4*rows) dots.
type Canvas struct {
	cols, rows int
	cells      []uint8

	// world projection, set by Fit
	frame frame
}

func NewCanvas(cols, rows int) *Canvas {
	cols, rows = max(cols, 0), max(rows, 0)
	return &Canvas{cols: cols, rows: rows, cells: make([]uint8, cols*rows), frame: unitFrame}
}

// Dots is the canvas size in dots.
func (c *Canvas) Dots() (w, h int) { return 2 * c.cols, 4 * c.rows }

// dotBit is the Braille bit of dot (dx, dy) inside a cell. Dots 1-3 and 4-6
// run down the two columns; dots 7 and 8 form the bottom row.
func dotBit(dx, dy int) uint8 {
	if dy < 3 {
		return 1 << (dy + 3*dx)
	}
	return 1 << (6 + dx)
}

func (c *Canvas) cell(x, y int) (int, bool) {
	w, h := c.Dots()
	if x < 0 || y < 0 || x >= w || y >= h {
		return 0, false
	}
	return (y/4)*c.cols + x/2, true
}

// Set turns on dot (x, y). Dots off the canvas are ignored.
func (c *Canvas) Set(x, y int) {
	if i, ok := c.cell(x, y); ok {
		c.cells[i] |= dotBit(x%2, y%4)
	}
}

// Dot reports whether dot (x, y) is on.
func (c *Canvas) Dot(x, y int) bool {
	i, ok := c.cell(x, y)
	return ok && c.cells[i]&dotBit(x%2, y%4) != 0
}

func (c *Canvas) Clear() {
	clear(c.cells)
}

// Line sets every dot between (x0, y0) and (x1, y1), one per step along the
// longer axis.
func (c *Canvas) Line(x0, y0, x1, y1 int) {
	steps := max(abs(x1-x0), abs(y1-y0))
	if steps == 0 {
		c.Set(x0, y0)
		return
	}
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		x := float64(x0) + t*float64(x1-x0)
		y := float64(y0) + t*float64(y1-y0)
		c.Set(int(math.Round(x)), int(math.Round(y)))
	}
}

func (c *Canvas) String() string {
	var b strings.Builder
	b.Grow(c.rows * (c.cols*3 + 1))
	for r := 0; r < c.rows; r++ {
		for _, bits := range c.cells[r*c.cols : (r+1)*c.cols] {
			b.WriteRune(0x2800 + rune(bits))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
