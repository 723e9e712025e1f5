package plant

import "errors"

// ErrInvalidConfig indicates vehicle parameters that cannot be simulated.
var ErrInvalidConfig = errors.New("plant: invalid configuration")
