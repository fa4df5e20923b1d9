// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"
)

// TagsHandler handles tag listing requests.
type TagsHandler struct {
	deps Dependencies
}

// NewTagsHandler creates a new tags handler.
func NewTagsHandler(deps Dependencies) *TagsHandler {
	return &TagsHandler{deps: deps}
}

// HandleGetTags handles GET /tags requests.
func (h *TagsHandler) HandleGetTags(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	tags := h.deps.ListTags(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"tags":  tags,
		"count": len(tags),
	})
}
