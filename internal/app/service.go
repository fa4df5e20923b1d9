// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	resultcache "github.com/okian/tagtrend/internal/adapters/cache"
	refreshqueue "github.com/okian/tagtrend/internal/adapters/mq/queue"
	workerpool "github.com/okian/tagtrend/internal/adapters/mq/worker"
	"github.com/okian/tagtrend/internal/adapters/repository"
	"github.com/okian/tagtrend/internal/domain/dedupe"
	"github.com/okian/tagtrend/internal/domain/forecast"
	"github.com/okian/tagtrend/internal/domain/merge"
	"github.com/okian/tagtrend/internal/domain/model"
	"github.com/okian/tagtrend/internal/domain/normalize"
	"github.com/okian/tagtrend/internal/domain/types"
	"github.com/okian/tagtrend/pkg/logger"
	"github.com/okian/tagtrend/pkg/metrics"
)

// Service wires the ingestion, merge, forecast and cache components and
// exposes the thin query facade consumed by the HTTP API.
type Service struct {
	mu sync.RWMutex

	// Core components
	store     repository.Store
	registry  *normalize.Registry
	merger    *merge.Merger
	ensemble  *forecast.Ensemble
	cache     *resultcache.Manager
	coalescer dedupe.Coalescer
	queue     refreshqueue.Queue
	pool      *workerpool.Pool
	scheduler *cron.Cron

	// Configuration
	workerCount      int
	queueSize        int
	coalescerSize    int
	shardCount       int
	period           merge.Period
	sourceWeights    map[string]float64
	defaultWeight    float64
	minHistory       int
	holdout          int
	selectionEpsilon float64
	seasonLength     int
	defaultHorizon   int
	maxHorizon       int
	cacheTTL         time.Duration
	forecastTimeout  time.Duration
	deactivateAfter  int
	refreshCron      string

	// State
	started bool

	// Logging
	logger logger.Logger
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:      4,
		queueSize:        10_000,
		coalescerSize:    50_000,
		shardCount:       8,
		period:           merge.PeriodWeek,
		sourceWeights:    map[string]float64{},
		defaultWeight:    1.0,
		minHistory:       10,
		holdout:          4,
		selectionEpsilon: 0.05,
		seasonLength:     12,
		defaultHorizon:   8,
		maxHorizon:       52,
		cacheTTL:         15 * time.Minute,
		forecastTimeout:  30 * time.Second,
		deactivateAfter:  26,
		refreshCron:      "@every 1h",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.logger.Info(ctx, "starting tagtrend service...")

	s.store = repository.NewSeriesStore(ctx,
		repository.WithShardCount(s.shardCount),
		repository.WithPeriodStep(s.period.Step()),
	)
	s.registry = normalize.NewRegistry()
	s.merger = merge.NewMerger(s.store,
		merge.WithSourceWeights(s.sourceWeights, s.defaultWeight),
		merge.WithPeriod(s.period),
	)
	s.ensemble = forecast.NewEnsemble(s.store,
		forecast.WithModels(forecast.DefaultModels(s.seasonLength)...),
		forecast.WithMinHistory(s.minHistory),
		forecast.WithHoldout(s.holdout),
		forecast.WithSelectionEpsilon(s.selectionEpsilon),
		forecast.WithPeriodStep(s.period.Step()),
	)
	s.cache = resultcache.NewManager(s.ensemble, s.store,
		resultcache.WithTTL(s.cacheTTL),
		resultcache.WithComputeTimeout(s.forecastTimeout),
	)
	s.coalescer = dedupe.NewInMemoryCoalescer(
		dedupe.WithMaxSize(s.coalescerSize),
	)
	s.queue = refreshqueue.NewInMemoryQueue(
		refreshqueue.WithCapacity(s.queueSize),
	)

	s.pool = workerpool.NewPool(s.workerCount, s.queue, s.cache, s.coalescer)
	s.pool.Start(ctx)

	if err := s.startScheduler(ctx); err != nil {
		return err
	}

	s.started = true
	s.logger.Info(ctx, "tagtrend service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queue_size", s.queueSize),
		logger.String("period", string(s.period)),
		logger.String("refresh_cron", s.refreshCron),
	)

	return nil
}

// startScheduler registers the periodic refresh and the stale-tag sweep.
func (s *Service) startScheduler(ctx context.Context) error {
	s.scheduler = cron.New()
	_, err := s.scheduler.AddFunc(s.refreshCron, func() {
		s.RefreshAll(context.WithoutCancel(ctx))
		s.DeactivateStale(context.WithoutCancel(ctx))
	})
	if err != nil {
		return err
	}
	s.scheduler.Start()
	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping tagtrend service...")

	if s.scheduler != nil {
		s.scheduler.Stop()
	}
	if s.pool != nil {
		_ = s.pool.Shutdown(ctx)
	}

	s.started = false
	s.logger.Info(ctx, "tagtrend service stopped")
}

// Ingest normalizes a raw batch from one source, merges the observations
// into the canonical store per tag, and schedules a cache refresh for every
// tag whose series actually changed.
func (s *Service) Ingest(ctx context.Context, sourceID string, records []normalize.RawRecord) (types.IngestReport, error) {
	normalizer, err := s.registry.ForSource(sourceID)
	if err != nil {
		return types.IngestReport{}, err
	}
	metrics.RecordIngestBatch(sourceID)

	obs, rep := normalizer.Normalize(ctx, records)

	byTag := make(map[string][]model.Observation)
	for _, o := range obs {
		byTag[o.Tag] = append(byTag[o.Tag], o)
	}

	report := types.IngestReport{
		Source:   sourceID,
		Accepted: rep.Accepted,
		Rejected: rep.Rejected,
	}
	for tag, batch := range byTag {
		version, bumped, err := s.merger.Merge(ctx, tag, batch)
		if err != nil {
			return report, err
		}
		report.TagsTouched = append(report.TagsTouched, tag)
		if bumped {
			report.TagsBumped = append(report.TagsBumped, tag)
			s.scheduleRefresh(ctx, tag, version)
		}
	}
	sort.Strings(report.TagsTouched)
	sort.Strings(report.TagsBumped)

	s.logger.Info(ctx, "batch ingested",
		logger.String("source", sourceID),
		logger.Int("accepted", report.Accepted),
		logger.Int("rejected", report.Rejected),
		logger.Int("tags_bumped", len(report.TagsBumped)),
	)
	return report, nil
}

// scheduleRefresh enqueues a cache-warming job unless one is already pending
// for the same tag and version. On queue backpressure the pending slot is
// released; the next ingest or the scheduled sweep will retry.
func (s *Service) scheduleRefresh(ctx context.Context, tag string, version int64) {
	job := model.RefreshJob{Tag: tag, Horizon: s.defaultHorizon, Version: version}
	key := job.Key()
	if s.coalescer.SeenAndRecord(ctx, key) {
		return
	}
	if !s.queue.Enqueue(ctx, job) {
		s.coalescer.Unrecord(ctx, key)
		s.logger.Warn(ctx, "refresh queue full, dropping job",
			logger.String("tag", tag),
			logger.Int64("version", version),
		)
	}
}

// RefreshAll schedules a cache refresh for every active tag at its current
// data version. Driven by the cron schedule so quiet tags still get a
// periodic recompute.
func (s *Service) RefreshAll(ctx context.Context) {
	for _, t := range s.store.Tags(ctx) {
		if !t.Active {
			continue
		}
		s.scheduleRefresh(ctx, t.Tag, s.store.Version(ctx, t.Tag))
	}
}

// DeactivateStale marks tags without fresh observations as inactive.
func (s *Service) DeactivateStale(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-time.Duration(s.deactivateAfter) * s.period.Step())
	if n := s.store.DeactivateStale(ctx, cutoff); n > 0 {
		s.logger.Info(ctx, "stale tags deactivated", logger.Int("count", n))
	}
}

// ListTags returns all tracked tags.
func (s *Service) ListTags(ctx context.Context) []types.TagInfo {
	summaries := s.store.Tags(ctx)
	out := make([]types.TagInfo, len(summaries))
	for i, t := range summaries {
		out[i] = types.TagInfo{
			Tag:        t.Tag,
			FirstSeen:  t.FirstSeen,
			LastSeen:   t.LastSeen,
			PointCount: t.PointCount,
			Active:     t.Active,
		}
	}
	return out
}

// GetSeries returns the canonical series for a tag between start and end
// (zero times mean unbounded), with explicit nulls for missing periods.
// When withSentiment is set, sentiment annotations are attached to the
// period their timestamp falls into.
func (s *Service) GetSeries(ctx context.Context, tag string, start, end time.Time, withSentiment bool) ([]types.SeriesPoint, error) {
	points, err := s.store.Series(ctx, tag, start, end)
	if err != nil {
		return nil, err
	}

	var sentimentByPeriod map[int64]model.TopicSentiment
	if withSentiment {
		sentimentByPeriod = make(map[int64]model.TopicSentiment)
		for _, ts := range s.store.Sentiment(ctx, model.NormalizeTag(tag)) {
			// Later annotations for the same period win.
			sentimentByPeriod[s.period.Truncate(ts.AsOf).Unix()] = ts
		}
	}

	out := make([]types.SeriesPoint, len(points))
	for i, p := range points {
		sp := types.SeriesPoint{Period: p.Period.UTC().Format(time.RFC3339)}
		if !p.Missing {
			v := p.Value
			sp.Value = &v
		}
		if ts, ok := sentimentByPeriod[p.Period.Unix()]; ok {
			score := ts.Sentiment
			sp.Sentiment = &score
			sp.Topics = ts.Topics
		}
		out[i] = sp
	}
	return out, nil
}

// GetForecast returns a forecast for the tag, serving from the result cache
// when fresh and computing otherwise. A non-positive horizon selects the
// default.
func (s *Service) GetForecast(ctx context.Context, tag string, horizon int) (types.Forecast, error) {
	if horizon <= 0 {
		horizon = s.defaultHorizon
	}
	if horizon > s.maxHorizon {
		return types.Forecast{}, ErrHorizonTooLarge
	}

	tag = model.NormalizeTag(tag)
	if s.store.Version(ctx, tag) == 0 {
		return types.Forecast{}, repository.ErrTagNotFound
	}

	res, err := s.cache.GetOrCompute(ctx, tag, horizon)
	if err != nil {
		return types.Forecast{}, err
	}
	return toForecast(res.Run), nil
}

// GetRuns returns the retained forecast run history for a tag.
func (s *Service) GetRuns(ctx context.Context, tag string) ([]types.Forecast, error) {
	runs, err := s.store.Runs(ctx, model.NormalizeTag(tag))
	if err != nil {
		return nil, err
	}
	out := make([]types.Forecast, len(runs))
	for i, run := range runs {
		out[i] = toForecast(run)
	}
	return out, nil
}

// AddSentiment attaches sentiment annotations to known tags and reports how
// many were accepted. Annotations for unknown tags are dropped.
func (s *Service) AddSentiment(ctx context.Context, scores []model.TopicSentiment) int {
	return s.store.AddSentiment(ctx, scores)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":      s.started,
		"worker_count": s.workerCount,
		"queue_size":   s.queueSize,
		"period":       string(s.period),
	}

	if s.started {
		queueLen := s.queue.Len(ctx)
		totalTags := s.store.Count(ctx)

		stats["queue_length"] = queueLen
		stats["total_tags"] = totalTags
		stats["pending_refreshes"] = s.coalescer.Size()

		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateTotalTags(totalTags)
		metrics.UpdateWorkerCount(s.workerCount)
	}

	return stats
}

// Sources lists the source identifiers accepted by POST /ingest.
func (s *Service) Sources() []string {
	sources := model.Sources()
	out := make([]string, len(sources))
	for i, src := range sources {
		out[i] = string(src)
	}
	return out
}

// toForecast converts a domain run to the API read shape.
func toForecast(run model.ForecastRun) types.Forecast {
	points := make([]types.ForecastPoint, len(run.Points))
	for i, p := range run.Points {
		points[i] = types.ForecastPoint{
			Period: p.Period.UTC().Format(time.RFC3339),
			Value:  p.Value,
			Lower:  p.Lower,
			Upper:  p.Upper,
		}
	}
	return types.Forecast{
		Tag:         run.Tag,
		Model:       run.Model,
		GeneratedAt: run.GeneratedAt,
		DataVersion: run.DataVersion,
		Horizon:     run.Horizon,
		Points:      points,
		Backtest: types.BacktestError{
			MAE:    run.Backtest.MAE,
			RMSE:   run.Backtest.RMSE,
			Points: run.Backtest.Points,
		},
		Trend: types.Trend{
			Slope:     run.Trend.Slope,
			Direction: run.Trend.Direction,
		},
	}
}
