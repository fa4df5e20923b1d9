// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/okian/tagtrend/internal/domain/normalize"
)

// IngestHandler handles ingestion requests.
type IngestHandler struct {
	deps Dependencies
}

// NewIngestHandler creates a new ingest handler.
func NewIngestHandler(deps Dependencies) *IngestHandler {
	return &IngestHandler{deps: deps}
}

// ingestRequest mirrors the OpenAPI schema for POST /ingest.
type ingestRequest struct {
	Source  string                `json:"source"`
	Records []normalize.RawRecord `json:"records"`
}

func (r ingestRequest) validate() error {
	if strings.TrimSpace(r.Source) == "" {
		return errors.New("missing source")
	}
	if len(r.Records) == 0 {
		return errors.New("missing records")
	}
	return nil
}

// HandlePostIngest handles POST /ingest requests.
func (h *IngestHandler) HandlePostIngest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %v", ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %v", ErrBadRequest, err))
		return
	}

	report, err := h.deps.Ingest(r.Context(), req.Source, req.Records)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
