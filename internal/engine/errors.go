package engine

import "errors"

// ErrInvalidTransition marks lifecycle operations applied to an entity
// that is not in a state accepting them, including starting downtime on
// a machine that is already down.
var ErrInvalidTransition = errors.New("invalid transition")

// ErrValidation marks rejected input: bad quantities, unknown metric
// names, malformed timestamps.
var ErrValidation = errors.New("validation failed")
