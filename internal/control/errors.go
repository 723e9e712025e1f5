package control

import "errors"

var (
	// ErrInvalidConfig indicates a controller was built from invalid parameters.
	ErrInvalidConfig = errors.New("control: invalid configuration")

	// ErrUnknownAxis indicates an axis name or mask position that does not exist.
	ErrUnknownAxis = errors.New("control: unknown axis")
)
