package export

import (
	"encoding/xml"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/GrooveWJH/volition/internal/viz"
)

func wellFormed(t *testing.T, doc string) {
	t.Helper()
	d := xml.NewDecoder(strings.NewReader(doc))
	for {
		_, err := d.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			t.Fatalf("invalid svg: %v\n%s", err, doc)
		}
	}
}

func TestPathToSVG(t *testing.T) {
	path := []viz.Point{{X: 0, Y: 0}, {X: 0.5, Y: 0.2}, {X: 1, Y: 1}}
	targets := []viz.Point{{X: 0, Y: 0}, {X: 1, Y: 1}}
	doc := PathToSVG(path, targets, 200, 100, "#00ff88")
	wellFormed(t, doc)

	if !strings.Contains(doc, `stroke="#00ff88"`) {
		t.Error("stroke color missing")
	}
	if n := strings.Count(doc, " L"); n != 2 {
		t.Errorf("got %d segments, want 2", n)
	}
	if n := strings.Count(doc, "<circle"); n != 2 {
		t.Errorf("got %d targets, want 2", n)
	}
	// the first point sits left of and below the last one
	if !strings.Contains(doc, `d="M58.3,91.7`) {
		t.Errorf("unexpected start point:\n%s", doc)
	}

	if PathToSVG(path[:1], nil, 100, 100, "#fff") != "" {
		t.Error("single point should give an empty document")
	}
}
