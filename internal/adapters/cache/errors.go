package cache

import "errors"

// Sentinel kinds for cache errors. ErrComputationTimeout is the only one
// surfaced to callers; it is retryable.
var (
	ErrComputationTimeout = errors.New("forecast computation timed out")
)
