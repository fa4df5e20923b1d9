package metrics_test

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/tagtrend/pkg/metrics"
)

func TestManagerRegistersMetrics(t *testing.T) {
	Convey("Given a manager on a fresh registry", t, func() {
		registry := prometheus.NewRegistry()
		m := metrics.NewManager(
			metrics.WithPrometheusRegistry(registry),
			metrics.WithNamespace("test"),
			metrics.WithSubsystem("engine"),
			metrics.WithHistogramBuckets([]float64{1, 10, 100}),
			metrics.WithRefreshInterval(30*time.Second),
		)
		So(m, ShouldNotBeNil)

		Convey("Then gathering succeeds without collisions", func() {
			families, err := registry.Gather()
			So(err, ShouldBeNil)
			// Gauges register eagerly; counters and vectors appear on first use.
			So(len(families), ShouldBeGreaterThan, 0)
		})
	})
}

func TestGlobalHelpersFeedTheSharedRegistry(t *testing.T) {
	Convey("Given the package-level helpers", t, func() {
		metrics.RecordObservationsAccepted("stackoverflow", 5)
		metrics.RecordObservationRejected("reddit")
		metrics.RecordMerge(true)
		metrics.RecordMerge(false)
		metrics.RecordForecastRun("holt")
		metrics.RecordForecastFailure("insufficient_history")
		metrics.RecordModelFailure("boost")
		metrics.RecordBacktestRMSE(3.5)
		metrics.RecordCacheHit()
		metrics.RecordCacheMiss()
		metrics.RecordCacheStale()
		metrics.RecordCacheStore()
		metrics.RecordSingleflightShared()
		metrics.UpdateQueueSize(3)
		metrics.UpdateQueueCapacity(100)
		metrics.RecordQueueEnqueue()
		metrics.RecordQueueDequeue()
		metrics.RecordQueueEnqueueError("queue_full")
		metrics.UpdateWorkerCount(4)
		metrics.RecordRefreshCompleted()
		metrics.RecordRefreshFailed()
		metrics.RecordRefreshLatency(12.5)
		metrics.RecordHTTPRequest("/forecast", "GET", "200")
		metrics.RecordHTTPRequestDuration("/forecast", "GET", "200", 4.2)
		metrics.UpdateTotalTags(42)
		metrics.UpdateStoreShardCount(8)
		metrics.RecordTagCreated()
		metrics.RecordTagsDeactivated(2)
		metrics.RecordIngestBatch("github")
		metrics.UpdateSystemMemoryUsage(1 << 20)
		metrics.UpdateSystemGoroutineCount(10)

		Convey("Then the shared registry exposes the recorded families", func() {
			families, err := metrics.GetRegistry().Gather()
			So(err, ShouldBeNil)

			names := make(map[string]bool, len(families))
			for _, f := range families {
				names[f.GetName()] = true
			}
			So(names["tagtrend_engine_observations_accepted_total"], ShouldBeTrue)
			So(names["tagtrend_engine_merges_total"], ShouldBeTrue)
			So(names["tagtrend_engine_version_bumps_total"], ShouldBeTrue)
			So(names["tagtrend_engine_forecast_runs_total"], ShouldBeTrue)
			So(names["tagtrend_engine_cache_hits_total"], ShouldBeTrue)
			So(names["tagtrend_engine_queue_size"], ShouldBeTrue)
			So(names["tagtrend_engine_refreshes_completed_total"], ShouldBeTrue)
			So(names["tagtrend_engine_http_requests_total"], ShouldBeTrue)
		})
	})
}
