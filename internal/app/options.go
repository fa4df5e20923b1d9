package service

import (
	"time"

	"github.com/okian/tagtrend/internal/domain/merge"
	"github.com/okian/tagtrend/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of cache-warming workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize bounds the refresh-job queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithCoalescerSize bounds the pending refresh-key tracker.
func WithCoalescerSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.coalescerSize = size
		}
	}
}

// WithShardCount sets the series store shard count.
func WithShardCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.shardCount = count
		}
	}
}

// WithPeriod sets the canonical bucket size ("day" or "week").
func WithPeriod(period string) Option {
	return func(s *Service) {
		p := merge.Period(period)
		if p.Valid() {
			s.period = p
		}
	}
}

// WithSourceWeights sets per-source trust weights and the fallback weight.
func WithSourceWeights(weights map[string]float64, defaultWeight float64) Option {
	return func(s *Service) {
		if weights != nil {
			s.sourceWeights = weights
		}
		if defaultWeight > 0 {
			s.defaultWeight = defaultWeight
		}
	}
}

// WithMinHistory sets the observed-period floor for forecasting.
func WithMinHistory(n int) Option {
	return func(s *Service) {
		if n > 1 {
			s.minHistory = n
		}
	}
}

// WithHoldout sets the backtest holdout length.
func WithHoldout(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.holdout = n
		}
	}
}

// WithSelectionEpsilon sets the simplicity tie-break band.
func WithSelectionEpsilon(eps float64) Option {
	return func(s *Service) {
		if eps >= 0 {
			s.selectionEpsilon = eps
		}
	}
}

// WithSeasonLength sets the seasonal model's cycle length.
func WithSeasonLength(n int) Option {
	return func(s *Service) {
		if n > 1 {
			s.seasonLength = n
		}
	}
}

// WithHorizons sets the default and maximum forecast horizons.
func WithHorizons(def, max int) Option {
	return func(s *Service) {
		if def > 0 && max >= def {
			s.defaultHorizon = def
			s.maxHorizon = max
		}
	}
}

// WithCacheTTL sets the forecast cache expiry ceiling.
func WithCacheTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.cacheTTL = ttl
		}
	}
}

// WithForecastTimeout bounds a single ensemble invocation.
func WithForecastTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.forecastTimeout = d
		}
	}
}

// WithDeactivateAfter sets how many periods without data mark a tag inactive.
func WithDeactivateAfter(periods int) Option {
	return func(s *Service) {
		if periods > 0 {
			s.deactivateAfter = periods
		}
	}
}

// WithRefreshCron sets the schedule for the periodic refresh and sweep.
func WithRefreshCron(spec string) Option {
	return func(s *Service) {
		if spec != "" {
			s.refreshCron = spec
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
