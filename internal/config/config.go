// Package config defines service configuration structures and loading hooks.
//
// Conventions:
//   - Provide New() to build a Config with defaults, Load(ctx) to layer file
//     and environment on top.
//   - External errors must be wrapped via this package's error helpers.
package config

import (
	"runtime"
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the in-memory refresh-job queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of cache-warming workers.
	WorkerCount int `koanf:"worker_count"`

	// CoalescerSize bounds the pending refresh-key tracker.
	CoalescerSize int `koanf:"coalescer_size"`

	// ShardCount configures the number of shards in the series store.
	ShardCount int `koanf:"shard_count"`

	// Period selects the canonical bucket size: "day" or "week".
	Period string `koanf:"period"`

	// SourceWeights maps source identifiers to their trust weights.
	SourceWeights map[string]float64 `koanf:"source_weights"`

	// DefaultSourceWeight is used for sources absent from SourceWeights.
	DefaultSourceWeight float64 `koanf:"default_source_weight"`

	// MinHistory is the number of observed periods a tag needs before the
	// ensemble will attempt a forecast.
	MinHistory int `koanf:"min_history"`

	// Holdout is the number of trailing periods reserved for backtesting.
	Holdout int `koanf:"holdout"`

	// SelectionEpsilon is the relative RMSE band within which a simpler
	// model is preferred over the best one.
	SelectionEpsilon float64 `koanf:"selection_epsilon"`

	// SeasonLength is the seasonal model's cycle length in periods.
	SeasonLength int `koanf:"season_length"`

	// DefaultHorizon and MaxHorizon bound GET /forecast?horizon.
	DefaultHorizon int `koanf:"default_horizon"`
	MaxHorizon     int `koanf:"max_horizon"`

	// CacheTTLSeconds is the expiry ceiling for cached forecasts.
	CacheTTLSeconds int `koanf:"cache_ttl_seconds"`

	// ForecastTimeoutSeconds bounds a single ensemble invocation.
	ForecastTimeoutSeconds int `koanf:"forecast_timeout_seconds"`

	// DeactivateAfterPeriods marks a tag inactive after this many periods
	// without fresh observations.
	DeactivateAfterPeriods int `koanf:"deactivate_after_periods"`

	// RefreshCron schedules the periodic cache refresh and stale-tag sweep.
	RefreshCron string `koanf:"refresh_cron"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:               "info",
		Addr:                   ":9080",
		QueueSize:              10_000,
		WorkerCount:            runtime.NumCPU() * 2,
		CoalescerSize:          50_000,
		ShardCount:             8,
		Period:                 "week",
		SourceWeights:          map[string]float64{},
		DefaultSourceWeight:    1.0,
		MinHistory:             10,
		Holdout:                4,
		SelectionEpsilon:       0.05,
		SeasonLength:           12,
		DefaultHorizon:         8,
		MaxHorizon:             52,
		CacheTTLSeconds:        900,
		ForecastTimeoutSeconds: 30,
		DeactivateAfterPeriods: 26,
		RefreshCron:            "@every 1h",
	}
}
