package arrival

import "errors"

// ErrInvalidConfig indicates an arrival configuration that cannot be satisfied.
var ErrInvalidConfig = errors.New("arrival: invalid configuration")
