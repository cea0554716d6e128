package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/nikhilbhutani/memorylane/internal/media"
	"github.com/nikhilbhutani/memorylane/internal/models"
)

type FileService interface {
	Upload(ctx context.Context, req media.UploadRequest) (*models.File, error)
	Get(ctx context.Context, owner, id uuid.UUID) (*models.File, error)
	List(ctx context.Context, owner uuid.UUID, filter media.ListFilter) ([]*models.File, error)
	Delete(ctx context.Context, owner, id uuid.UUID) error
	UpdateMetadata(ctx context.Context, owner, id uuid.UUID, patch media.MetadataPatch) (*models.File, error)
	Status(ctx context.Context, owner, id uuid.UUID) (*media.StatusReport, error)
	Reprocess(ctx context.Context, owner, id uuid.UUID) error
}

type FileHandler struct {
	svc           FileService
	maxUploadSize int64
}

func NewFileHandler(svc FileService, maxUploadSize int64) *FileHandler {
	return &FileHandler{svc: svc, maxUploadSize: maxUploadSize}
}

func (h *FileHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file required")
		return
	}
	defer file.Close()

	var tags []string
	for _, t := range strings.Split(r.FormValue("tags"), ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}

	f, err := h.svc.Upload(r.Context(), media.UploadRequest{
		OwnerID:         owner(r),
		FileName:        header.Filename,
		ContentType:     header.Header.Get("Content-Type"),
		Size:            header.Size,
		Data:            file,
		Title:           r.FormValue("title"),
		UserDescription: r.FormValue("description"),
		UserTags:        tags,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusAccepted, f)
}

func (h *FileHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)

	files, err := h.svc.List(r.Context(), owner(r), media.ListFilter{
		Kind:   models.MediaKind(r.URL.Query().Get("kind")),
		Status: models.FileStatus(r.URL.Query().Get("status")),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"files": files, "count": len(files)})
}

func (h *FileHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	f, err := h.svc.Get(r.Context(), owner(r), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (h *FileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), owner(r), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *FileHandler) Status(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	rep, err := h.svc.Status(r.Context(), owner(r), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (h *FileHandler) UpdateMetadata(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var patch media.MetadataPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	f, err := h.svc.UpdateMetadata(r.Context(), owner(r), id, patch)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (h *FileHandler) Reprocess(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.svc.Reprocess(r.Context(), owner(r), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": string(models.FileStatusProcessing)})
}
