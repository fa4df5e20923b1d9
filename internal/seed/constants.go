package seed

import "time"

// HTTP status code constants.
const (
	StatusOK = 200
)

// Batch sizing constants.
const (
	RecordsPerBatch = 500
)

// Runner configuration constants.
const (
	SettleDelay          = 5 * time.Second
	PercentageMultiplier = 100
)
