package media

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhilbhutani/memorylane/internal/database/dbtest"
	"github.com/nikhilbhutani/memorylane/internal/models"
	"github.com/nikhilbhutani/memorylane/internal/pipeline"
)

func seedFile(t *testing.T, repo *PgRepository, owner uuid.UUID, kind models.MediaKind) *models.File {
	t.Helper()
	f := &models.File{
		ID:           uuid.New(),
		OwnerID:      owner,
		OriginalName: "clip",
		StoragePath:  owner.String() + "/clip",
		StorageURL:   "https://cdn/clip",
		MediaKind:    kind,
		MimeType:     string(kind) + "/test",
		Status:       models.FileStatusProcessing,
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, repo.Insert(context.Background(), f))
	return f
}

func TestPgRepository_RunLifecycle(t *testing.T) {
	repo := NewPgRepository(dbtest.NewPool(t))
	ctx := context.Background()
	f := seedFile(t, repo, uuid.New(), models.MediaVideo)

	run, err := repo.BeginRun(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), run.Generation)
	assert.Equal(t, pipeline.ProgressSeed, run.ProcessingProgress)

	dur := 12.5
	run.Duration = &dur
	run.Transcription = &models.Transcription{Text: "hello there", Language: "en"}
	run.VisionTags = []models.VisionTag{{Tag: "beach", Confidence: 0.9}}
	run.Embedding = make([]float32, 1536)
	run.Embedding[0] = 1
	run.Status = models.FileStatusCompleted
	run.ProcessingProgress = 100
	run.ProcessingHistory = append(run.ProcessingHistory, models.ProcessingEntry{
		Step: models.StepComplete, Status: models.EntryCompleted, Progress: 100, Generation: 1, Timestamp: time.Now().UTC(),
	})
	require.NoError(t, repo.SaveRun(ctx, run))

	got, err := repo.Get(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, models.FileStatusCompleted, got.Status)
	assert.Equal(t, "hello there", got.Transcription.Text)
	assert.Equal(t, "beach", got.VisionTags[0].Tag)
	assert.Len(t, got.Embedding, 1536)
	assert.Len(t, got.ProcessingHistory, 1)

	// a newer run fences out the old one
	_, err = repo.BeginRun(ctx, f.ID)
	require.NoError(t, err)
	assert.ErrorIs(t, repo.SaveRun(ctx, run), pipeline.ErrStaleRun)
	assert.ErrorIs(t, repo.FailRun(ctx, f.ID, 1, models.ProcessingEntry{Step: models.StepError}), pipeline.ErrStaleRun)
}

func TestPgRepository_FailRunAppends(t *testing.T) {
	repo := NewPgRepository(dbtest.NewPool(t))
	ctx := context.Background()
	f := seedFile(t, repo, uuid.New(), models.MediaImage)

	entry := models.ProcessingEntry{Step: models.StepError, Status: models.EntryFailed, Error: "boom", Timestamp: time.Now().UTC()}
	require.NoError(t, repo.FailRun(ctx, f.ID, 0, entry))

	got, err := repo.Get(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, models.FileStatusFailed, got.Status)
	require.Len(t, got.ProcessingHistory, 1)
	assert.Equal(t, "boom", got.ProcessingHistory[0].Error)

	assert.ErrorIs(t, repo.FailRun(ctx, uuid.New(), 0, entry), ErrNotFound)
}

func TestPgRepository_MetadataGuard(t *testing.T) {
	repo := NewPgRepository(dbtest.NewPool(t))
	ctx := context.Background()
	f := seedFile(t, repo, uuid.New(), models.MediaImage)

	f.Title = "Summer"
	assert.ErrorIs(t, repo.UpdateMetadata(ctx, f), ErrBusy)

	require.NoError(t, repo.FailRun(ctx, f.ID, 0, models.ProcessingEntry{Step: models.StepError, Status: models.EntryFailed}))
	require.NoError(t, repo.UpdateMetadata(ctx, f))

	got, err := repo.Get(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, "Summer", got.Title)
}

func TestPgRepository_ListAndDelete(t *testing.T) {
	repo := NewPgRepository(dbtest.NewPool(t))
	ctx := context.Background()
	owner := uuid.New()
	img := seedFile(t, repo, owner, models.MediaImage)
	seedFile(t, repo, owner, models.MediaAudio)
	seedFile(t, repo, uuid.New(), models.MediaImage)

	all, err := repo.List(ctx, owner, ListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	images, err := repo.List(ctx, owner, ListFilter{Kind: models.MediaImage})
	require.NoError(t, err)
	require.Len(t, images, 1)
	assert.Equal(t, img.ID, images[0].ID)

	many, err := repo.GetMany(ctx, owner, []uuid.UUID{img.ID, uuid.New()})
	require.NoError(t, err)
	assert.Len(t, many, 1)

	require.NoError(t, repo.Delete(ctx, img.ID))
	assert.ErrorIs(t, repo.Delete(ctx, img.ID), ErrNotFound)
	_, err = repo.Get(ctx, img.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
