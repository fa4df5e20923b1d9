// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	resultcache "github.com/okian/tagtrend/internal/adapters/cache"
	"github.com/okian/tagtrend/internal/adapters/repository"
	service "github.com/okian/tagtrend/internal/app"
	"github.com/okian/tagtrend/internal/domain/forecast"
	"github.com/okian/tagtrend/internal/domain/model"
	"github.com/okian/tagtrend/internal/domain/normalize"
	"github.com/okian/tagtrend/internal/domain/types"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Ingest applies a raw batch from one source and reports the outcome.
	Ingest(ctx context.Context, sourceID string, records []normalize.RawRecord) (types.IngestReport, error)

	// Read operations expose canonical series and forecasts.
	ListTags(ctx context.Context) []types.TagInfo
	GetSeries(ctx context.Context, tag string, start, end time.Time, withSentiment bool) ([]types.SeriesPoint, error)
	GetForecast(ctx context.Context, tag string, horizon int) (types.Forecast, error)
	GetRuns(ctx context.Context, tag string) ([]types.Forecast, error)

	// AddSentiment attaches annotations to known tags.
	AddSentiment(ctx context.Context, scores []model.TopicSentiment) int
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler    *HealthHandler
	statsHandler     *StatsHandler
	ingestHandler    *IngestHandler
	tagsHandler      *TagsHandler
	seriesHandler    *SeriesHandler
	forecastHandler  *ForecastHandler
	sentimentHandler *SentimentHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:    NewHealthHandler(),
		statsHandler:     NewStatsHandler(statsProvider),
		ingestHandler:    NewIngestHandler(deps),
		tagsHandler:      NewTagsHandler(deps),
		seriesHandler:    NewSeriesHandler(deps),
		forecastHandler:  NewForecastHandler(deps),
		sentimentHandler: NewSentimentHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/ingest", MetricsMiddleware(s.ingestHandler.HandlePostIngest, "ingest"))
	mux.HandleFunc("/tags", MetricsMiddleware(s.tagsHandler.HandleGetTags, "tags"))
	mux.HandleFunc("/timeseries", MetricsMiddleware(s.seriesHandler.HandleGetSeries, "timeseries"))
	mux.HandleFunc("/forecast", MetricsMiddleware(s.forecastHandler.HandleGetForecast, "forecast"))
	mux.HandleFunc("/forecast/runs", MetricsMiddleware(s.forecastHandler.HandleGetRuns, "forecast_runs"))
	mux.HandleFunc("/sentiment", MetricsMiddleware(s.sentimentHandler.HandlePostSentiment, "sentiment"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeDomainError translates domain errors into HTTP responses. Unmapped
// errors fall through to 500 without leaking internals.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrTagNotFound):
		writeError(w, http.StatusNotFound, "tag_not_found", err)
	case errors.Is(err, normalize.ErrUnknownSource):
		writeError(w, http.StatusBadRequest, "unknown_source", err)
	case errors.Is(err, service.ErrHorizonTooLarge):
		writeError(w, http.StatusBadRequest, "horizon_too_large", err)
	case errors.Is(err, forecast.ErrInsufficientHistory):
		writeError(w, http.StatusUnprocessableEntity, "insufficient_history", err)
	case errors.Is(err, resultcache.ErrComputationTimeout):
		writeError(w, http.StatusGatewayTimeout, "computation_timeout", err)
	case errors.Is(err, forecast.ErrAllModelsFailed):
		writeError(w, http.StatusInternalServerError, "all_models_failed", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", nil)
	}
}

// parseTime accepts RFC3339 or plain dates for range parameters.
func parseTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}
