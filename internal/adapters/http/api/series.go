// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// SeriesHandler handles canonical time-series requests.
type SeriesHandler struct {
	deps Dependencies
}

// NewSeriesHandler creates a new series handler.
func NewSeriesHandler(deps Dependencies) *SeriesHandler {
	return &SeriesHandler{deps: deps}
}

// HandleGetSeries handles GET /timeseries requests.
//
// Query parameters:
//
//	tag            required tag name
//	from, to       optional range bounds (RFC3339 or YYYY-MM-DD)
//	with_sentiment optional; "true" attaches sentiment annotations
func (h *SeriesHandler) HandleGetSeries(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	q := r.URL.Query()
	tag := q.Get("tag")
	if tag == "" {
		writeError(w, http.StatusBadRequest, "bad_request", errors.New("missing tag parameter"))
		return
	}

	var start, end time.Time
	var err error
	if from := q.Get("from"); from != "" {
		if start, err = parseTime(from); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("invalid from: %v", err))
			return
		}
	}
	if to := q.Get("to"); to != "" {
		if end, err = parseTime(to); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("invalid to: %v", err))
			return
		}
	}
	withSentiment := q.Get("with_sentiment") == "true"

	points, err := h.deps.GetSeries(r.Context(), tag, start, end, withSentiment)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"tag":    tag,
		"points": points,
	})
}
