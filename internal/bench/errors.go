package bench

import "errors"

var ErrInvalidSize = errors.New("invalid workload size")
