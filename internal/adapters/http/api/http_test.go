package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	resultcache "github.com/okian/tagtrend/internal/adapters/cache"
	"github.com/okian/tagtrend/internal/adapters/http/api"
	"github.com/okian/tagtrend/internal/adapters/repository"
	service "github.com/okian/tagtrend/internal/app"
	"github.com/okian/tagtrend/internal/domain/forecast"
	"github.com/okian/tagtrend/internal/domain/model"
	"github.com/okian/tagtrend/internal/domain/normalize"
	"github.com/okian/tagtrend/internal/domain/types"
)

// fakeDeps implements api.Dependencies with canned behavior per test.
type fakeDeps struct {
	ingestReport types.IngestReport
	ingestErr    error
	tags         []types.TagInfo
	series       []types.SeriesPoint
	seriesErr    error
	forecast     types.Forecast
	forecastErr  error
	runs         []types.Forecast
	runsErr      error
	sentimentAck int

	lastSource  string
	lastTag     string
	lastHorizon int
	lastScores  []model.TopicSentiment
}

func (f *fakeDeps) Ingest(_ context.Context, sourceID string, _ []normalize.RawRecord) (types.IngestReport, error) {
	f.lastSource = sourceID
	return f.ingestReport, f.ingestErr
}

func (f *fakeDeps) ListTags(context.Context) []types.TagInfo { return f.tags }

func (f *fakeDeps) GetSeries(_ context.Context, tag string, _, _ time.Time, _ bool) ([]types.SeriesPoint, error) {
	f.lastTag = tag
	return f.series, f.seriesErr
}

func (f *fakeDeps) GetForecast(_ context.Context, tag string, horizon int) (types.Forecast, error) {
	f.lastTag = tag
	f.lastHorizon = horizon
	return f.forecast, f.forecastErr
}

func (f *fakeDeps) GetRuns(_ context.Context, tag string) ([]types.Forecast, error) {
	f.lastTag = tag
	return f.runs, f.runsErr
}

func (f *fakeDeps) AddSentiment(_ context.Context, scores []model.TopicSentiment) int {
	f.lastScores = scores
	return f.sentimentAck
}

func (f *fakeDeps) GetStats() map[string]interface{} {
	return map[string]interface{}{"started": true}
}

func newTestMux(deps *fakeDeps) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(deps, deps).Register(context.Background(), mux)
	return mux
}

func TestPostIngest(t *testing.T) {
	Convey("Given the ingest endpoint", t, func() {
		deps := &fakeDeps{ingestReport: types.IngestReport{
			Source:     "stackoverflow",
			Accepted:   2,
			TagsBumped: []string{"go"},
		}}
		mux := newTestMux(deps)

		Convey("When a valid batch is posted", func() {
			body := `{"source":"stackoverflow","records":[{"tag":"go","date":"2024-01-01","count":10}]}`
			req := httptest.NewRequest(http.MethodPost, "/ingest", strings.NewReader(body))
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			Convey("Then the report comes back with 200", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				var rep types.IngestReport
				So(json.Unmarshal(rec.Body.Bytes(), &rep), ShouldBeNil)
				So(rep.Accepted, ShouldEqual, 2)
				So(deps.lastSource, ShouldEqual, "stackoverflow")
			})
		})

		Convey("When the source field is missing", func() {
			req := httptest.NewRequest(http.MethodPost, "/ingest", strings.NewReader(`{"records":[{}]}`))
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the source is not registered", func() {
			deps.ingestErr = normalize.ErrUnknownSource
			body := `{"source":"hackernews","records":[{"tag":"go"}]}`
			req := httptest.NewRequest(http.MethodPost, "/ingest", strings.NewReader(body))
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
			So(rec.Body.String(), ShouldContainSubstring, "unknown_source")
		})

		Convey("When the method is not POST", func() {
			req := httptest.NewRequest(http.MethodGet, "/ingest", nil)
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)
			So(rec.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestGetTags(t *testing.T) {
	Convey("Given tags in the store", t, func() {
		deps := &fakeDeps{tags: []types.TagInfo{
			{Tag: "go", Active: true, PointCount: 12},
			{Tag: "rust", Active: true, PointCount: 8},
		}}
		mux := newTestMux(deps)

		Convey("When the list is requested", func() {
			req := httptest.NewRequest(http.MethodGet, "/tags", nil)
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			Convey("Then all tags come back with a count", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				var resp struct {
					Tags  []types.TagInfo `json:"tags"`
					Count int             `json:"count"`
				}
				So(json.Unmarshal(rec.Body.Bytes(), &resp), ShouldBeNil)
				So(resp.Count, ShouldEqual, 2)
				So(resp.Tags[0].Tag, ShouldEqual, "go")
			})
		})
	})
}

func TestGetTimeseries(t *testing.T) {
	Convey("Given a canonical series with a missing period", t, func() {
		v1, v3 := 10.0, 12.0
		deps := &fakeDeps{series: []types.SeriesPoint{
			{Period: "2024-01-01T00:00:00Z", Value: &v1},
			{Period: "2024-01-08T00:00:00Z", Value: nil},
			{Period: "2024-01-15T00:00:00Z", Value: &v3},
		}}
		mux := newTestMux(deps)

		Convey("When the series is requested", func() {
			req := httptest.NewRequest(http.MethodGet, "/timeseries?tag=go", nil)
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			Convey("Then missing periods serialize as null", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(rec.Body.String(), ShouldContainSubstring, `"value":null`)
				So(deps.lastTag, ShouldEqual, "go")
			})
		})

		Convey("When the tag parameter is absent", func() {
			req := httptest.NewRequest(http.MethodGet, "/timeseries", nil)
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the range bound is malformed", func() {
			req := httptest.NewRequest(http.MethodGet, "/timeseries?tag=go&from=yesterday", nil)
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the tag is unknown", func() {
			deps.seriesErr = repository.ErrTagNotFound
			req := httptest.NewRequest(http.MethodGet, "/timeseries?tag=nope", nil)
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)
			So(rec.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestGetForecast(t *testing.T) {
	Convey("Given the forecast endpoint", t, func() {
		deps := &fakeDeps{forecast: types.Forecast{
			Tag:     "go",
			Model:   "holt",
			Horizon: 8,
			Points:  []types.ForecastPoint{{Period: "2024-03-04T00:00:00Z", Value: 42, Lower: 40, Upper: 44}},
		}}
		mux := newTestMux(deps)

		Convey("When a forecast is requested", func() {
			req := httptest.NewRequest(http.MethodGet, "/forecast?tag=go&horizon=8", nil)
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			Convey("Then the payload includes model and bounds", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				var fc types.Forecast
				So(json.Unmarshal(rec.Body.Bytes(), &fc), ShouldBeNil)
				So(fc.Model, ShouldEqual, "holt")
				So(deps.lastHorizon, ShouldEqual, 8)
			})
		})

		Convey("When the horizon is not a positive integer", func() {
			req := httptest.NewRequest(http.MethodGet, "/forecast?tag=go&horizon=abc", nil)
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the horizon exceeds the maximum", func() {
			deps.forecastErr = service.ErrHorizonTooLarge
			req := httptest.NewRequest(http.MethodGet, "/forecast?tag=go&horizon=999", nil)
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
			So(rec.Body.String(), ShouldContainSubstring, "horizon_too_large")
		})

		Convey("When the history is too short", func() {
			deps.forecastErr = &forecast.InsufficientHistoryError{Tag: "go", Required: 10, Available: 3}
			req := httptest.NewRequest(http.MethodGet, "/forecast?tag=go", nil)
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)
			So(rec.Code, ShouldEqual, http.StatusUnprocessableEntity)
			So(rec.Body.String(), ShouldContainSubstring, "insufficient_history")
		})

		Convey("When every model fails", func() {
			deps.forecastErr = forecast.ErrAllModelsFailed
			req := httptest.NewRequest(http.MethodGet, "/forecast?tag=go", nil)
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)
			So(rec.Code, ShouldEqual, http.StatusInternalServerError)
		})

		Convey("When the computation times out", func() {
			deps.forecastErr = resultcache.ErrComputationTimeout
			req := httptest.NewRequest(http.MethodGet, "/forecast?tag=go", nil)
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)
			So(rec.Code, ShouldEqual, http.StatusGatewayTimeout)
		})

		Convey("When the tag is unknown", func() {
			deps.forecastErr = repository.ErrTagNotFound
			req := httptest.NewRequest(http.MethodGet, "/forecast?tag=nope", nil)
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)
			So(rec.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestGetForecastRuns(t *testing.T) {
	Convey("Given retained forecast runs", t, func() {
		deps := &fakeDeps{runs: []types.Forecast{
			{Tag: "go", Model: "naive"},
			{Tag: "go", Model: "holt"},
		}}
		mux := newTestMux(deps)

		Convey("When the run history is requested", func() {
			req := httptest.NewRequest(http.MethodGet, "/forecast/runs?tag=go", nil)
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			Convey("Then both runs come back", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				var resp struct {
					Runs []types.Forecast `json:"runs"`
				}
				So(json.Unmarshal(rec.Body.Bytes(), &resp), ShouldBeNil)
				So(resp.Runs, ShouldHaveLength, 2)
			})
		})
	})
}

func TestPostSentiment(t *testing.T) {
	Convey("Given the sentiment endpoint", t, func() {
		deps := &fakeDeps{sentimentAck: 1}
		mux := newTestMux(deps)

		Convey("When valid annotations are posted", func() {
			body := `{"scores":[{"tag":"go","as_of":"2024-01-01","topics":["generics"],"sentiment":0.4},{"tag":"ghost","sentiment":-0.2}]}`
			req := httptest.NewRequest(http.MethodPost, "/sentiment", strings.NewReader(body))
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			Convey("Then accepted and dropped counts come back", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(rec.Body.String(), ShouldContainSubstring, `"accepted":1`)
				So(rec.Body.String(), ShouldContainSubstring, `"dropped":1`)
				So(deps.lastScores, ShouldHaveLength, 2)
			})
		})

		Convey("When a score is out of range", func() {
			body := `{"scores":[{"tag":"go","sentiment":1.5}]}`
			req := httptest.NewRequest(http.MethodPost, "/sentiment", strings.NewReader(body))
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestGetStats(t *testing.T) {
	Convey("Given the stats endpoint", t, func() {
		deps := &fakeDeps{}
		mux := newTestMux(deps)

		req := httptest.NewRequest(http.MethodGet, "/stats", nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		So(rec.Code, ShouldEqual, http.StatusOK)
		So(rec.Body.String(), ShouldContainSubstring, `"started":true`)
	})
}
