package loop

import (
	"context"
	"sync"
	"time"
)

// Clock is the loop's monotonic time source.
type Clock interface {
	// Now is the time elapsed since the clock's origin.
	Now() time.Duration
	// Sleep blocks for d or until ctx is done.
	Sleep(ctx context.Context, d time.Duration) error
}

// SystemClock measures from its creation using the runtime monotonic clock.
type SystemClock struct {
	origin time.Time
}

func NewSystemClock() *SystemClock {
	return &SystemClock{origin: time.Now()}
}

func (c *SystemClock) Now() time.Duration { return time.Since(c.origin) }

func (c *SystemClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// ManualClock advances only when slept on or stepped. Sleep returns at once
// after moving time forward, which makes driver runs deterministic.
type ManualClock struct {
	mu      sync.Mutex
	now     time.Duration
	onSleep func(now time.Duration)
}

// NewManualClock returns a clock at zero. onSleep, if set, is called with the
// new time after every Sleep.
func NewManualClock(onSleep func(now time.Duration)) *ManualClock {
	return &ManualClock{onSleep: onSleep}
}

func (c *ManualClock) Now() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now += d
	c.mu.Unlock()
}

func (c *ManualClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d > 0 {
		c.Advance(d)
	}
	if c.onSleep != nil {
		c.onSleep(c.Now())
	}
	return nil
}
