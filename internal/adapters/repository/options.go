// Package repository defines the canonical series store interface and errors.
package repository

import "time"

// Option applies a configuration option to the SeriesStore.
type Option func(*SeriesStore)

// WithShardCount sets the number of shards in the tag index.
func WithShardCount(n int) Option {
	return func(s *SeriesStore) {
		if n > 0 {
			s.shardCount = n
		}
	}
}

// WithPeriodStep sets the duration of one discretized period, e.g. 24h for
// daily or 168h for weekly series.
func WithPeriodStep(step time.Duration) Option {
	return func(s *SeriesStore) {
		if step > 0 {
			s.periodStep = step
		}
	}
}

// WithRunHistoryLimit caps how many forecast runs are retained per tag.
func WithRunHistoryLimit(n int) Option {
	return func(s *SeriesStore) {
		if n > 0 {
			s.runHistoryLimit = n
		}
	}
}
