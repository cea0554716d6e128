package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/nikhilbhutani/memorylane/internal/models"
	"github.com/nikhilbhutani/memorylane/internal/story"
)

type StoryService interface {
	Generate(ctx context.Context, owner uuid.UUID, req story.Request) (*models.Story, error)
	Get(ctx context.Context, owner, id uuid.UUID) (*models.Story, error)
	List(ctx context.Context, owner uuid.UUID, limit, offset int) ([]*models.Story, error)
}

type StoryHandler struct {
	svc StoryService
}

func NewStoryHandler(svc StoryService) *StoryHandler {
	return &StoryHandler{svc: svc}
}

func (h *StoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req story.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	st, err := h.svc.Generate(r.Context(), owner(r), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, st)
}

func (h *StoryHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	stories, err := h.svc.List(r.Context(), owner(r), limit, offset)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"stories": stories, "count": len(stories)})
}

func (h *StoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	st, err := h.svc.Get(r.Context(), owner(r), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}
