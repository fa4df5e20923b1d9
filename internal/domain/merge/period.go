package merge

import "time"

// Period is the discretized time bucket observations are aligned to.
type Period string

// Supported periods.
const (
	PeriodDay  Period = "day"
	PeriodWeek Period = "week"
)

// Valid reports whether p is a supported period.
func (p Period) Valid() bool {
	return p == PeriodDay || p == PeriodWeek
}

// Step returns the duration of one period.
func (p Period) Step() time.Duration {
	if p == PeriodDay {
		return 24 * time.Hour
	}
	return 7 * 24 * time.Hour
}

// Truncate maps a timestamp to its period start in UTC. Weekly periods are
// anchored on Monday so the same calendar week buckets identically across
// sources with different report times.
func (p Period) Truncate(t time.Time) time.Time {
	t = t.UTC()
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	if p == PeriodWeek {
		offset := (int(d.Weekday()) + 6) % 7 // Monday = 0
		d = d.AddDate(0, 0, -offset)
	}
	return d
}
