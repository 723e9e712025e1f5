package loop

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"
)

// Gate holds the advance to the next target after an arrival.
type Gate interface {
	Wait(ctx context.Context, next Target) error
}

// AutoGate advances immediately.
type AutoGate struct{}

func (AutoGate) Wait(ctx context.Context, _ Target) error { return ctx.Err() }

// LineGate prints a prompt and waits for a line on its reader, the
// "press Enter to continue" flow.
type LineGate struct {
	prompt io.Writer
	lines  chan struct{}
	done   chan struct{}
	stop   chan struct{}
	once   sync.Once
	err    error
}

// NewLineGate reads r in a background goroutine. The goroutine exits when r
// returns an error or after Close once it is no longer blocked reading.
func NewLineGate(r io.Reader, prompt io.Writer) *LineGate {
	g := &LineGate{
		prompt: prompt,
		lines:  make(chan struct{}),
		done:   make(chan struct{}),
		stop:   make(chan struct{}),
	}
	go g.read(r)
	return g
}

func (g *LineGate) read(r io.Reader) {
	defer close(g.done)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		select {
		case g.lines <- struct{}{}:
		case <-g.stop:
			g.err = io.ErrClosedPipe
			return
		}
	}
	g.err = sc.Err()
	if g.err == nil {
		g.err = io.EOF
	}
}

func (g *LineGate) Wait(ctx context.Context, next Target) error {
	if g.prompt != nil {
		fmt.Fprintf(g.prompt, "press Enter for target %s\n", next)
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-g.lines:
		return nil
	case <-g.done:
		return g.err
	}
}

// Close releases the reader goroutine.
func (g *LineGate) Close() error {
	g.once.Do(func() { close(g.stop) })
	return nil
}
