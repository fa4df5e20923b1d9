// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/okian/tagtrend/internal/domain/model"
)

// SentimentHandler handles sentiment annotation requests.
type SentimentHandler struct {
	deps Dependencies
}

// NewSentimentHandler creates a new sentiment handler.
func NewSentimentHandler(deps Dependencies) *SentimentHandler {
	return &SentimentHandler{deps: deps}
}

// sentimentScore mirrors the OpenAPI schema for one annotation.
type sentimentScore struct {
	Tag       string   `json:"tag"`
	AsOf      string   `json:"as_of"`
	Topics    []string `json:"topics"`
	Sentiment float64  `json:"sentiment"`
}

// sentimentRequest mirrors the OpenAPI schema for POST /sentiment.
type sentimentRequest struct {
	Scores []sentimentScore `json:"scores"`
}

func (r sentimentRequest) validate() error {
	if len(r.Scores) == 0 {
		return errors.New("missing scores")
	}
	for i, s := range r.Scores {
		if s.Tag == "" {
			return fmt.Errorf("scores[%d]: missing tag", i)
		}
		if s.Sentiment < -1 || s.Sentiment > 1 {
			return fmt.Errorf("scores[%d]: sentiment must be in [-1, 1]", i)
		}
	}
	return nil
}

// HandlePostSentiment handles POST /sentiment requests.
func (h *SentimentHandler) HandlePostSentiment(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req sentimentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %v", ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %v", ErrBadRequest, err))
		return
	}

	scores := make([]model.TopicSentiment, len(req.Scores))
	for i, s := range req.Scores {
		asOf := time.Now().UTC()
		if s.AsOf != "" {
			t, err := parseTime(s.AsOf)
			if err != nil {
				writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("scores[%d]: invalid as_of: %v", i, err))
				return
			}
			asOf = t
		}
		scores[i] = model.TopicSentiment{
			Tag:       s.Tag,
			AsOf:      asOf,
			Topics:    s.Topics,
			Sentiment: s.Sentiment,
		}
	}

	accepted := h.deps.AddSentiment(r.Context(), scores)
	writeJSON(w, http.StatusOK, map[string]any{
		"accepted": accepted,
		"dropped":  len(scores) - accepted,
	})
}
