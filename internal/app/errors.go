package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrHorizonTooLarge = errors.New("horizon exceeds configured maximum")
)
