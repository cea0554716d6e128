package vectorstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhilbhutani/memorylane/internal/database/dbtest"
	"github.com/nikhilbhutani/memorylane/internal/media"
	"github.com/nikhilbhutani/memorylane/internal/models"
	"github.com/nikhilbhutani/memorylane/internal/pipeline"
	"github.com/nikhilbhutani/memorylane/internal/vectorstore"
)

func unitVector(i int) []float32 {
	v := make([]float32, 1536)
	v[i] = 1
	return v
}

func completeFile(t *testing.T, repo *media.PgRepository, owner uuid.UUID, text string, vec []float32) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	f := &models.File{
		ID: uuid.New(), OwnerID: owner, OriginalName: text, StoragePath: "p", StorageURL: "u",
		MediaKind: models.MediaImage, MimeType: "image/jpeg", Status: models.FileStatusProcessing,
		AIDescription: text, CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, repo.Insert(ctx, f))

	run, err := repo.BeginRun(ctx, f.ID)
	require.NoError(t, err)
	run.AIDescription = text
	pipeline.ApplySearchIndex(run)
	run.Embedding = vec
	run.Status = models.FileStatusCompleted
	run.ProcessingProgress = 100
	require.NoError(t, repo.SaveRun(ctx, run))
	return f.ID
}

func TestPgVectorStore_Search(t *testing.T) {
	pool := dbtest.NewPool(t)
	repo := media.NewPgRepository(pool)
	store := vectorstore.NewPgVectorStore(pool)
	ctx := context.Background()
	owner := uuid.New()

	beach := completeFile(t, repo, owner, "a dog running on the beach", unitVector(0))
	mountain := completeFile(t, repo, owner, "snowy mountain peak", unitVector(1))
	completeFile(t, repo, uuid.New(), "another user's beach", unitVector(0))

	opts := vectorstore.SearchOptions{OwnerID: owner, TopK: 5}

	sim, err := store.SimilaritySearch(ctx, unitVector(1), opts)
	require.NoError(t, err)
	require.Len(t, sim, 2)
	assert.Equal(t, mountain, sim[0].FileID)
	assert.InDelta(t, 1.0, sim[0].Score, 1e-6)

	kw, err := store.KeywordSearch(ctx, "beach", opts)
	require.NoError(t, err)
	require.Len(t, kw, 1)
	assert.Equal(t, beach, kw[0].FileID)

	hybrid, err := store.HybridSearch(ctx, "beach", unitVector(0), opts)
	require.NoError(t, err)
	require.NotEmpty(t, hybrid)
	assert.Equal(t, beach, hybrid[0].FileID)
}
