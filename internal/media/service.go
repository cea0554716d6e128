package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nikhilbhutani/memorylane/internal/models"
	"github.com/nikhilbhutani/memorylane/internal/pipeline"
	"github.com/nikhilbhutani/memorylane/internal/storage"
)

var (
	ErrNotFound         = errors.New("file not found")
	ErrBusy             = errors.New("file is being processed")
	ErrUnsupportedMedia = errors.New("unsupported media type")
)

type Repository interface {
	Insert(ctx context.Context, f *models.File) error
	Get(ctx context.Context, id uuid.UUID) (*models.File, error)
	GetMany(ctx context.Context, owner uuid.UUID, ids []uuid.UUID) ([]*models.File, error)
	List(ctx context.Context, owner uuid.UUID, filter ListFilter) ([]*models.File, error)
	UpdateMetadata(ctx context.Context, f *models.File) error
	MarkQueued(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type Enqueuer interface {
	EnqueueFileProcess(ctx context.Context, fileID uuid.UUID) error
}

// RunChecker reports whether a pipeline run currently holds the file.
type RunChecker interface {
	Held(ctx context.Context, key string) (bool, error)
}

type Service struct {
	repo    Repository
	storage storage.Storage
	queue   Enqueuer
	runs    RunChecker
	now     func() time.Time
}

func NewService(repo Repository, store storage.Storage, queue Enqueuer, runs RunChecker) *Service {
	return &Service{
		repo:    repo,
		storage: store,
		queue:   queue,
		runs:    runs,
		now:     time.Now,
	}
}

type UploadRequest struct {
	OwnerID     uuid.UUID
	FileName    string
	ContentType string
	Size        int64
	Data        io.Reader

	Title           string
	UserDescription string
	UserTags        []string
}

type MetadataPatch struct {
	Title           *string  `json:"title"`
	UserDescription *string  `json:"user_description"`
	UserTags        []string `json:"user_tags"`
}

type StatusReport struct {
	FileID   uuid.UUID                `json:"file_id"`
	Status   models.FileStatus        `json:"status"`
	Progress int                      `json:"progress"`
	Summary  models.ProcessingSummary `json:"summary"`
}

// DetectKind maps a MIME type to a media kind. Extensions are consulted when
// the client sent a generic content type.
func DetectKind(contentType, fileName string) (models.MediaKind, string, error) {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil || mt == "" || mt == "application/octet-stream" {
		mt = mime.TypeByExtension(strings.ToLower(path.Ext(fileName)))
		if mt, _, err = mime.ParseMediaType(mt); err != nil {
			return "", "", fmt.Errorf("%w: %q", ErrUnsupportedMedia, contentType)
		}
	}
	major, _, _ := strings.Cut(mt, "/")
	kind := models.MediaKind(major)
	if !kind.Valid() {
		return "", "", fmt.Errorf("%w: %q", ErrUnsupportedMedia, mt)
	}
	return kind, mt, nil
}

func (s *Service) Upload(ctx context.Context, req UploadRequest) (*models.File, error) {
	kind, mimeType, err := DetectKind(req.ContentType, req.FileName)
	if err != nil {
		return nil, err
	}

	id := uuid.New()
	name := path.Base(strings.ReplaceAll(req.FileName, "\\", "/"))
	if name == "." || name == "/" {
		name = id.String()
	}
	objectPath := fmt.Sprintf("%s/%s/%s", req.OwnerID, id, name)

	if err := s.storage.Upload(ctx, objectPath, req.Data, req.Size, mimeType); err != nil {
		return nil, fmt.Errorf("upload to storage: %w", err)
	}
	url, err := s.storage.URL(ctx, objectPath)
	if err != nil {
		s.removeObject(ctx, objectPath)
		return nil, fmt.Errorf("resolve storage url: %w", err)
	}

	now := s.now().UTC()
	f := &models.File{
		ID:                 id,
		OwnerID:            req.OwnerID,
		OriginalName:       name,
		StoragePath:        objectPath,
		StorageURL:         url,
		MediaKind:          kind,
		MimeType:           mimeType,
		SizeBytes:          req.Size,
		Title:              req.Title,
		UserDescription:    req.UserDescription,
		UserTags:           req.UserTags,
		Status:             models.FileStatusProcessing,
		ProcessingProgress: pipeline.ProgressSeed,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	pipeline.ApplySearchIndex(f)

	if err := s.repo.Insert(ctx, f); err != nil {
		s.removeObject(ctx, objectPath)
		return nil, err
	}

	if err := s.queue.EnqueueFileProcess(ctx, f.ID); err != nil {
		slog.Error("enqueue file processing failed", "file_id", f.ID, "error", err)
	}

	slog.Info("file uploaded", "file_id", f.ID, "kind", kind, "size", req.Size)
	return f, nil
}

func (s *Service) removeObject(ctx context.Context, objectPath string) {
	if err := s.storage.Delete(context.WithoutCancel(ctx), objectPath); err != nil {
		slog.Warn("remove orphaned object failed", "path", objectPath, "error", err)
	}
}

func (s *Service) Get(ctx context.Context, owner, id uuid.UUID) (*models.File, error) {
	f, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	// another owner's file is indistinguishable from a missing one
	if f.OwnerID != owner {
		return nil, ErrNotFound
	}
	return f, nil
}

func (s *Service) GetMany(ctx context.Context, owner uuid.UUID, ids []uuid.UUID) ([]*models.File, error) {
	return s.repo.GetMany(ctx, owner, ids)
}

func (s *Service) List(ctx context.Context, owner uuid.UUID, filter ListFilter) ([]*models.File, error) {
	if filter.Kind != "" && !filter.Kind.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedMedia, filter.Kind)
	}
	return s.repo.List(ctx, owner, filter)
}

// Delete removes the stored object first so a failed object delete leaves the
// row in place for a retry.
func (s *Service) Delete(ctx context.Context, owner, id uuid.UUID) error {
	f, err := s.Get(ctx, owner, id)
	if err != nil {
		return err
	}
	if err := s.storage.Delete(ctx, f.StoragePath); err != nil {
		return fmt.Errorf("delete object: %w", err)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	slog.Info("file deleted", "file_id", id)
	return nil
}

func (s *Service) UpdateMetadata(ctx context.Context, owner, id uuid.UUID, patch MetadataPatch) (*models.File, error) {
	f, err := s.Get(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	if f.Status == models.FileStatusProcessing {
		return nil, ErrBusy
	}

	if patch.Title != nil {
		f.Title = *patch.Title
	}
	if patch.UserDescription != nil {
		f.UserDescription = *patch.UserDescription
	}
	if patch.UserTags != nil {
		f.UserTags = patch.UserTags
	}
	pipeline.ApplySearchIndex(f)

	if err := s.repo.UpdateMetadata(ctx, f); err != nil {
		return nil, err
	}
	return f, nil
}

func (s *Service) Status(ctx context.Context, owner, id uuid.UUID) (*StatusReport, error) {
	f, err := s.Get(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	return &StatusReport{
		FileID:   f.ID,
		Status:   f.Status,
		Progress: f.ProcessingProgress,
		Summary:  f.ProcessingSummary(),
	}, nil
}

func (s *Service) Reprocess(ctx context.Context, owner, id uuid.UUID) error {
	if _, err := s.Get(ctx, owner, id); err != nil {
		return err
	}

	held, err := s.runs.Held(ctx, pipeline.LockKey(id))
	if err != nil {
		return fmt.Errorf("check running pipeline: %w", err)
	}
	if held {
		return pipeline.ErrAlreadyProcessing
	}

	if err := s.repo.MarkQueued(ctx, id); err != nil {
		return err
	}
	if err := s.queue.EnqueueFileProcess(ctx, id); err != nil {
		return fmt.Errorf("enqueue reprocess: %w", err)
	}
	slog.Info("file queued for reprocessing", "file_id", id)
	return nil
}
