package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/nikhilbhutani/memorylane/internal/models"
	"github.com/nikhilbhutani/memorylane/internal/vectorstore"
)

type Searcher interface {
	Search(ctx context.Context, query string, opts vectorstore.SearchOptions) (*vectorstore.SearchResponse, error)
}

type SearchHandler struct {
	searcher Searcher
}

func NewSearchHandler(s Searcher) *SearchHandler {
	return &SearchHandler{searcher: s}
}

type searchRequest struct {
	Query    string           `json:"query"`
	TopK     int              `json:"top_k"`
	MinScore float64          `json:"min_score"`
	Kind     models.MediaKind `json:"kind"`
}

func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}
	if req.TopK <= 0 || req.TopK > 50 {
		req.TopK = 10
	}
	if req.Kind != "" && !req.Kind.Valid() {
		writeError(w, http.StatusBadRequest, "invalid kind")
		return
	}

	resp, err := h.searcher.Search(r.Context(), req.Query, vectorstore.SearchOptions{
		OwnerID:  owner(r),
		TopK:     req.TopK,
		MinScore: req.MinScore,
		Kind:     req.Kind,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
