package forecast

import (
	"errors"
	"fmt"
)

// Sentinel kinds for forecast errors. Only ErrInsufficientHistory and
// ErrAllModelsFailed cross the core boundary; ErrModelFit is recovered
// per model inside the ensemble.
var (
	ErrInsufficientHistory = errors.New("insufficient history")
	ErrAllModelsFailed     = errors.New("all models failed")
	ErrModelFit            = errors.New("model fit failed")
)

// InsufficientHistoryError carries enough detail for the caller to decide
// whether to retry later.
type InsufficientHistoryError struct {
	Tag       string
	Required  int
	Available int
}

func (e *InsufficientHistoryError) Error() string {
	return fmt.Sprintf("insufficient history for %q: need %d observed periods, have %d", e.Tag, e.Required, e.Available)
}

func (e *InsufficientHistoryError) Unwrap() error { return ErrInsufficientHistory }
