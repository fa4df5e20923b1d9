package repository

import "errors"

// Sentinel kinds for series store errors.
var (
	ErrTagNotFound = errors.New("tag not found")
)
