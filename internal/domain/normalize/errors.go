package normalize

import "errors"

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	ErrUnknownSource = errors.New("unknown source")
)
