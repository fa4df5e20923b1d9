// Package metrics provides Prometheus metrics for the tagtrend service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the tagtrend service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	refreshInterval  time.Duration
	registry         prometheus.Registerer

	// Ingestion metrics
	observationsAccepted *prometheus.CounterVec
	observationsRejected *prometheus.CounterVec
	ingestBatches        *prometheus.CounterVec

	// Merge and store metrics
	mergesTotal     prometheus.Counter
	versionBumps    prometheus.Counter
	tagsCreated     prometheus.Counter
	tagsDeactivated prometheus.Counter
	totalTags       prometheus.Gauge
	storeShardCount prometheus.Gauge

	// Forecast metrics
	forecastRuns     *prometheus.CounterVec
	forecastFailures *prometheus.CounterVec
	modelFailures    *prometheus.CounterVec
	backtestRMSE     prometheus.Histogram

	// Cache metrics
	cacheHits          prometheus.Counter
	cacheMisses        prometheus.Counter
	cacheStale         prometheus.Counter
	cacheStores        prometheus.Counter
	singleflightShared prometheus.Counter

	// Queue metrics
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueEnqueueTotal  prometheus.Counter
	queueDequeueTotal  prometheus.Counter
	queueEnqueueErrors *prometheus.CounterVec

	// Refresh worker metrics
	workerCount        prometheus.Gauge
	refreshesCompleted prometheus.Counter
	refreshesFailed    prometheus.Counter
	refreshLatency     prometheus.Histogram

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// System metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "tagtrend",
		subsystem:        "engine",
		histogramBuckets: prometheus.DefBuckets,
		refreshInterval:  defaultRefreshInterval,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	// Ingestion
	m.observationsAccepted = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "observations_accepted_total",
			Help:      "Total number of observations accepted per source",
		},
		[]string{"source"},
	)

	m.observationsRejected = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "observations_rejected_total",
			Help:      "Total number of malformed observations rejected per source",
		},
		[]string{"source"},
	)

	m.ingestBatches = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "ingest_batches_total",
			Help:      "Total number of ingest batches per source",
		},
		[]string{"source"},
	)

	// Merge and store
	m.mergesTotal = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "merges_total",
		Help:      "Total number of merge operations",
	})

	m.versionBumps = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "version_bumps_total",
		Help:      "Total number of data version bumps (canonical series changed)",
	})

	m.tagsCreated = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "tags_created_total",
		Help:      "Total number of tags created",
	})

	m.tagsDeactivated = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "tags_deactivated_total",
		Help:      "Total number of tags marked inactive for lack of fresh data",
	})

	m.totalTags = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "total_tags",
		Help:      "Total number of tracked tags",
	})

	m.storeShardCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_shard_count",
		Help:      "Number of shards in the series store",
	})

	// Forecast
	m.forecastRuns = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "forecast_runs_total",
			Help:      "Total number of completed forecast runs per winning model",
		},
		[]string{"model"},
	)

	m.forecastFailures = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "forecast_failures_total",
			Help:      "Total number of failed forecast attempts per reason",
		},
		[]string{"reason"},
	)

	m.modelFailures = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "model_failures_total",
			Help:      "Total number of individual model fit failures per model",
		},
		[]string{"model"},
	)

	m.backtestRMSE = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "backtest_rmse",
		Help:      "Histogram of winning-model backtest RMSE values",
		Buckets:   []float64{0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500},
	})

	// Cache
	m.cacheHits = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cache_hits_total",
		Help:      "Total number of forecast cache hits",
	})

	m.cacheMisses = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cache_misses_total",
		Help:      "Total number of forecast cache misses",
	})

	m.cacheStale = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cache_stale_total",
		Help:      "Total number of cache entries discarded as version-stale",
	})

	m.cacheStores = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cache_stores_total",
		Help:      "Total number of forecast results written to the cache",
	})

	m.singleflightShared = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "singleflight_shared_total",
		Help:      "Total number of callers that piggybacked on an in-flight computation",
	})

	// Queue
	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_size",
		Help:      "Current size of the refresh-job queue",
	})

	m.queueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_capacity",
		Help:      "Maximum refresh-job queue capacity",
	})

	m.queueEnqueueTotal = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_enqueue_total",
		Help:      "Total number of refresh jobs enqueued",
	})

	m.queueDequeueTotal = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_dequeue_total",
		Help:      "Total number of refresh jobs dequeued",
	})

	m.queueEnqueueErrors = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "queue_enqueue_errors_total",
			Help:      "Total number of rejected enqueues per reason",
		},
		[]string{"reason"},
	)

	// Refresh workers
	m.workerCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_count",
		Help:      "Number of cache-warming workers",
	})

	m.refreshesCompleted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "refreshes_completed_total",
		Help:      "Total number of cache refreshes completed",
	})

	m.refreshesFailed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "refreshes_failed_total",
		Help:      "Total number of cache refreshes that failed",
	})

	m.refreshLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "refresh_latency_milliseconds",
		Help:      "Cache refresh latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	// HTTP
	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by endpoint and method",
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_request_duration_milliseconds",
			Help:      "HTTP request duration in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	// System
	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_memory_usage_bytes",
		Help:      "System memory usage in bytes",
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_goroutine_count",
		Help:      "Number of goroutines",
	})
}

// Ingestion metrics functions.

// RecordObservationsAccepted adds n accepted observations for a source.
func RecordObservationsAccepted(source string, n int) {
	globalManager.observationsAccepted.WithLabelValues(source).Add(float64(n))
}

// RecordObservationRejected increments the rejected counter for a source.
func RecordObservationRejected(source string) {
	globalManager.observationsRejected.WithLabelValues(source).Inc()
}

// RecordIngestBatch increments the ingest batch counter for a source.
func RecordIngestBatch(source string) {
	globalManager.ingestBatches.WithLabelValues(source).Inc()
}

// Merge and store metrics functions.

// RecordMerge counts a merge operation; bumped indicates the canonical
// series actually changed.
func RecordMerge(bumped bool) {
	globalManager.mergesTotal.Inc()
	if bumped {
		globalManager.versionBumps.Inc()
	}
}

// RecordVersionBump increments the version bump counter.
func RecordVersionBump() {
	globalManager.versionBumps.Inc()
}

// RecordTagCreated increments the tags created counter.
func RecordTagCreated() {
	globalManager.tagsCreated.Inc()
}

// RecordTagsDeactivated adds n to the deactivated tags counter.
func RecordTagsDeactivated(n int) {
	globalManager.tagsDeactivated.Add(float64(n))
}

// UpdateTotalTags sets the total tracked tags gauge.
func UpdateTotalTags(count int) {
	globalManager.totalTags.Set(float64(count))
}

// UpdateStoreShardCount sets the store shard count gauge.
func UpdateStoreShardCount(count int) {
	globalManager.storeShardCount.Set(float64(count))
}

// Forecast metrics functions.

// RecordForecastRun increments the forecast run counter for the winner.
func RecordForecastRun(modelName string) {
	globalManager.forecastRuns.WithLabelValues(modelName).Inc()
}

// RecordForecastFailure increments the forecast failure counter by reason.
func RecordForecastFailure(reason string) {
	globalManager.forecastFailures.WithLabelValues(reason).Inc()
}

// RecordModelFailure increments the per-model fit failure counter.
func RecordModelFailure(modelName string) {
	globalManager.modelFailures.WithLabelValues(modelName).Inc()
}

// RecordBacktestRMSE records the winning model's backtest RMSE.
func RecordBacktestRMSE(rmse float64) {
	globalManager.backtestRMSE.Observe(rmse)
}

// Cache metrics functions.

// RecordCacheHit increments the cache hit counter.
func RecordCacheHit() {
	globalManager.cacheHits.Inc()
}

// RecordCacheMiss increments the cache miss counter.
func RecordCacheMiss() {
	globalManager.cacheMisses.Inc()
}

// RecordCacheStale increments the stale-discard counter.
func RecordCacheStale() {
	globalManager.cacheStale.Inc()
}

// RecordCacheStore increments the cache store counter.
func RecordCacheStore() {
	globalManager.cacheStores.Inc()
}

// RecordSingleflightShared counts a caller that shared an in-flight result.
func RecordSingleflightShared() {
	globalManager.singleflightShared.Inc()
}

// Queue metrics functions.

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueueTotal.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeueTotal.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter by reason.
func RecordQueueEnqueueError(reason string) {
	globalManager.queueEnqueueErrors.WithLabelValues(reason).Inc()
}

// Refresh worker metrics functions.

// UpdateWorkerCount sets the worker count gauge.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordRefreshCompleted increments the completed refresh counter.
func RecordRefreshCompleted() {
	globalManager.refreshesCompleted.Inc()
}

// RecordRefreshFailed increments the failed refresh counter.
func RecordRefreshFailed() {
	globalManager.refreshesFailed.Inc()
}

// RecordRefreshLatency records a refresh latency in milliseconds.
func RecordRefreshLatency(latencyMs float64) {
	globalManager.refreshLatency.Observe(latencyMs)
}

// HTTP metrics functions.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// System metrics functions.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
