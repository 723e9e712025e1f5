package viz

import "math"

// Point is a position in world metres.
type Point struct{ X, Y float64 }

// frame maps world metres onto dots with North (+X) up and +Y to the right.
type frame struct {
	maxX, minY float64
	// metres per dot, equal on both axes
	scale          float64
	offCol, offRow float64
}

var unitFrame = frame{scale: 1}

func (f frame) project(p Point) (int, int) {
	col := f.offCol + (p.Y-f.minY)/f.scale
	row := f.offRow + (f.maxX-p.X)/f.scale
	return int(math.Round(col)), int(math.Round(row))
}

// Fit scales the world projection so every point lands on the canvas,
// centring the drawing along the axis with room to spare.
func (c *Canvas) Fit(pts []Point) {
	w, h := c.Dots()
	if len(pts) == 0 || w == 0 || h == 0 {
		c.frame = unitFrame
		return
	}
	minX, maxX := pts[0].X, pts[0].X
	minY, maxY := pts[0].Y, pts[0].Y
	for _, p := range pts[1:] {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}

	cols, rows := float64(w-1), float64(h-1)
	scale := math.Max((maxY-minY)/cols, (maxX-minX)/rows)
	if scale == 0 {
		scale = 1
	}
	c.frame = frame{
		maxX:   maxX,
		minY:   minY,
		scale:  scale,
		offCol: (cols - (maxY-minY)/scale) / 2,
		offRow: (rows - (maxX-minX)/scale) / 2,
	}
}

// Plot sets the dot under world point p.
func (c *Canvas) Plot(p Point) {
	c.Set(c.frame.project(p))
}

// Track draws the flight path as connected segments.
func (c *Canvas) Track(path []Point) {
	if len(path) == 1 {
		c.Plot(path[0])
		return
	}
	for i := 1; i < len(path); i++ {
		x0, y0 := c.frame.project(path[i-1])
		x1, y1 := c.frame.project(path[i])
		c.Line(x0, y0, x1, y1)
	}
}

// Mark draws a target as a small cross.
func (c *Canvas) Mark(p Point) {
	x, y := c.frame.project(p)
	c.Line(x-1, y, x+1, y)
	c.Line(x, y-1, x, y+1)
}

// Path renders a flight path and its targets on a w x h cell canvas.
func Path(path, targets []Point, w, h int) string {
	c := NewCanvas(w, h)
	c.Fit(append(append([]Point(nil), path...), targets...))
	c.Track(path)
	for _, t := range targets {
		c.Mark(t)
	}
	return c.String()
}
