// Package cache stores forecast results keyed by (tag, horizon) and decides
// when a cached payload is stale. Staleness is a first-class property: an
// entry is served only while its data version matches the tag's current
// version and it has not passed its time-based expiry ceiling. Recomputation
// is single-flight per key: concurrent callers for the same key share one
// in-flight ensemble invocation.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/okian/tagtrend/internal/domain/model"
	"github.com/okian/tagtrend/pkg/logger"
	"github.com/okian/tagtrend/pkg/metrics"
)

// Default cache policy constants.
const (
	defaultTTL             = 15 * time.Minute
	defaultComputeTimeout  = 30 * time.Second
	defaultCleanupInterval = 5 * time.Minute
)

// Computer produces a fresh forecast run; implemented by the ensemble.
type Computer interface {
	Forecast(ctx context.Context, tag string, horizon int) (model.ForecastRun, error)
}

// Versions exposes the current data version per tag; implemented by the
// repository.
type Versions interface {
	Version(ctx context.Context, tag string) int64
}

// Manager owns the CachedResult lifecycle.
type Manager struct {
	payloads *gocache.Cache
	flight   singleflight.Group
	computer Computer
	versions Versions
	ttl      time.Duration
	timeout  time.Duration
	logger   logger.Logger
}

// Option applies a configuration option to the Manager.
type Option func(*Manager)

// WithTTL sets the expiry ceiling for cached results. Entries refresh after
// the TTL even when the data version never moved, so quiet tags still get a
// periodic recompute.
func WithTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

// WithComputeTimeout bounds a single ensemble invocation.
func WithComputeTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.timeout = d
		}
	}
}

// WithLogger sets a custom logger for the manager.
func WithLogger(l logger.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// NewManager constructs a cache manager over computer and versions.
func NewManager(computer Computer, versions Versions, opts ...Option) *Manager {
	m := &Manager{
		computer: computer,
		versions: versions,
		ttl:      defaultTTL,
		timeout:  defaultComputeTimeout,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.payloads = gocache.New(m.ttl, defaultCleanupInterval)
	return m
}

func key(tag string, horizon int) string {
	return tag + "|" + strconv.Itoa(horizon)
}

// GetOrCompute returns the cached result for (tag, horizon), recomputing it
// when absent, version-stale or expired. The caller's context deadline is
// honored: on expiry the in-flight slot is released for retry and the call
// fails with ErrComputationTimeout.
func (m *Manager) GetOrCompute(ctx context.Context, tag string, horizon int) (model.CachedResult, error) {
	tag = model.NormalizeTag(tag)
	k := key(tag, horizon)

	if res, ok := m.fresh(ctx, tag, k); ok {
		metrics.RecordCacheHit()
		return res, nil
	}

	ch := m.flight.DoChan(k, func() (any, error) {
		return m.compute(ctx, tag, horizon, k)
	})

	select {
	case r := <-ch:
		if r.Err != nil {
			return model.CachedResult{}, r.Err
		}
		res := r.Val.(model.CachedResult)
		if r.Shared {
			metrics.RecordSingleflightShared()
		}
		return res, nil
	case <-ctx.Done():
		// Abandon the computation for this caller and release the key so a
		// later request can retry instead of piling onto a doomed flight.
		m.flight.Forget(k)
		return model.CachedResult{}, fmt.Errorf("%w: %v", ErrComputationTimeout, ctx.Err())
	}
}

// fresh returns a cached entry when it is both version-current and inside
// its expiry ceiling. go-cache evicts on TTL, so presence implies the latter.
func (m *Manager) fresh(ctx context.Context, tag, k string) (model.CachedResult, bool) {
	v, ok := m.payloads.Get(k)
	if !ok {
		metrics.RecordCacheMiss()
		return model.CachedResult{}, false
	}
	res := v.(model.CachedResult)
	if res.DataVersion != m.versions.Version(ctx, tag) {
		// Stale entries are never served; they trigger a recompute.
		metrics.RecordCacheStale()
		return model.CachedResult{}, false
	}
	return res, true
}

// compute runs the ensemble once, bounded by the manager's own timeout and
// detached from the first caller's context: a shared flight must not die
// because the caller who happened to start it went away.
func (m *Manager) compute(ctx context.Context, tag string, horizon int, k string) (model.CachedResult, error) {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.timeout)
	defer cancel()

	run, err := m.computer.Forecast(cctx, tag, horizon)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			m.flight.Forget(k)
			return model.CachedResult{}, fmt.Errorf("%w: ensemble exceeded %s", ErrComputationTimeout, m.timeout)
		}
		return model.CachedResult{}, err
	}

	now := time.Now().UTC()
	res := model.CachedResult{
		Tag:         tag,
		Horizon:     horizon,
		DataVersion: run.DataVersion,
		Run:         run,
		StoredAt:    now,
		ExpiresAt:   now.Add(m.ttl),
	}
	m.payloads.Set(k, res, m.ttl)
	metrics.RecordCacheStore()
	if m.logger != nil {
		m.logger.Debug(ctx, "forecast cached",
			logger.String("tag", tag),
			logger.Int("horizon", horizon),
			logger.Any("data_version", run.DataVersion),
		)
	}
	return res, nil
}
