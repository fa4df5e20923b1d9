// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"errors"
	"net/http"
	"strconv"
)

// ForecastHandler handles forecast requests.
type ForecastHandler struct {
	deps Dependencies
}

// NewForecastHandler creates a new forecast handler.
func NewForecastHandler(deps Dependencies) *ForecastHandler {
	return &ForecastHandler{deps: deps}
}

// HandleGetForecast handles GET /forecast requests.
//
// Query parameters:
//
//	tag     required tag name
//	horizon optional number of future periods; omitted selects the default
func (h *ForecastHandler) HandleGetForecast(w http.ResponseWriter, r *http.Request) {
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

	horizon := 0
	if raw := q.Get("horizon"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", errors.New("horizon must be a positive integer"))
			return
		}
		horizon = n
	}

	fc, err := h.deps.GetForecast(r.Context(), tag, horizon)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fc)
}

// HandleGetRuns handles GET /forecast/runs requests, returning the retained
// run history for a tag.
func (h *ForecastHandler) HandleGetRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	tag := r.URL.Query().Get("tag")
	if tag == "" {
		writeError(w, http.StatusBadRequest, "bad_request", errors.New("missing tag parameter"))
		return
	}

	runs, err := h.deps.GetRuns(r.Context(), tag)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"tag":  tag,
		"runs": runs,
	})
}
