package loop

import "errors"

var (
	// ErrNoTargets is returned by Run when the sequencer yields no first target.
	ErrNoTargets = errors.New("loop: sequencer produced no targets")
	// ErrInvalidConfig indicates a driver configuration that cannot run.
	ErrInvalidConfig = errors.New("loop: invalid configuration")
)
