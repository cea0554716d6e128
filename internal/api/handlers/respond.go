package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/nikhilbhutani/memorylane/internal/auth"
	"github.com/nikhilbhutani/memorylane/internal/guardrails"
	"github.com/nikhilbhutani/memorylane/internal/media"
	"github.com/nikhilbhutani/memorylane/internal/pipeline"
	"github.com/nikhilbhutani/memorylane/internal/story"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps domain errors to status codes. Unknown errors are
// logged and reported as 500 without their details.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, media.ErrNotFound), errors.Is(err, story.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, media.ErrBusy), errors.Is(err, pipeline.ErrAlreadyProcessing):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, media.ErrUnsupportedMedia):
		writeError(w, http.StatusUnsupportedMediaType, err.Error())
	case errors.Is(err, story.ErrNoFiles), errors.Is(err, story.ErrTooManyFiles), errors.Is(err, story.ErrNoUsableFiles),
		errors.Is(err, guardrails.ErrRejected):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func owner(r *http.Request) uuid.UUID {
	if u := auth.UserFromContext(r.Context()); u != nil {
		return u.ID
	}
	return uuid.Nil
}

func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid ID")
		return uuid.Nil, false
	}
	return id, true
}

func pagination(r *http.Request) (limit, offset int) {
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
