package vectorstore

import (
	"context"

	"github.com/google/uuid"

	"github.com/nikhilbhutani/memorylane/internal/models"
)

type SearchOptions struct {
	OwnerID  uuid.UUID
	TopK     int
	MinScore float64
	Kind     models.MediaKind
}

type SearchResult struct {
	FileID        uuid.UUID        `json:"file_id"`
	OriginalName  string           `json:"original_name"`
	Title         string           `json:"title,omitempty"`
	MediaKind     models.MediaKind `json:"media_kind"`
	StorageURL    string           `json:"storage_url"`
	AIDescription string           `json:"ai_description,omitempty"`
	Keywords      []string         `json:"keywords"`
	Score         float64          `json:"score"`
}

// VectorStore searches completed files of a single owner.
type VectorStore interface {
	SimilaritySearch(ctx context.Context, query []float32, opts SearchOptions) ([]SearchResult, error)
	HybridSearch(ctx context.Context, query string, queryVec []float32, opts SearchOptions) ([]SearchResult, error)
	KeywordSearch(ctx context.Context, query string, opts SearchOptions) ([]SearchResult, error)
}
