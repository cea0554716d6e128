package vectorstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nikhilbhutani/memorylane/internal/cache"
)

const queryVectorTTL = 24 * time.Hour

type Embedder interface {
	EmbedSingle(ctx context.Context, text string) ([]float32, error)
}

type VectorCache interface {
	Get(ctx context.Context, key string, dest any) error
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

const (
	ModeHybrid  = "hybrid"
	ModeKeyword = "keyword"
)

type SearchResponse struct {
	Query   string         `json:"query"`
	Mode    string         `json:"mode"`
	Results []SearchResult `json:"results"`
}

// Searcher answers free-text queries. Query vectors are cached; when the
// query cannot be embedded the search degrades to keyword ranking.
type Searcher struct {
	store    VectorStore
	embedder Embedder
	cache    VectorCache
	model    string
}

func NewSearcher(store VectorStore, embedder Embedder, vc VectorCache, model string) *Searcher {
	return &Searcher{store: store, embedder: embedder, cache: vc, model: model}
}

func (s *Searcher) Search(ctx context.Context, query string, opts SearchOptions) (*SearchResponse, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("query is required")
	}

	vec, err := s.queryVector(ctx, query)
	if err != nil {
		slog.Warn("query embedding unavailable, using keyword search", "error", err)
		results, err := s.store.KeywordSearch(ctx, query, opts)
		if err != nil {
			return nil, err
		}
		return &SearchResponse{Query: query, Mode: ModeKeyword, Results: results}, nil
	}

	results, err := s.store.HybridSearch(ctx, query, vec, opts)
	if err != nil {
		return nil, err
	}
	return &SearchResponse{Query: query, Mode: ModeHybrid, Results: results}, nil
}

func (s *Searcher) queryVector(ctx context.Context, query string) ([]float32, error) {
	if s.embedder == nil {
		return nil, errors.New("no embedder configured")
	}

	key := s.cacheKey(query)
	if s.cache != nil {
		var vec []float32
		err := s.cache.Get(ctx, key, &vec)
		if err == nil && len(vec) > 0 {
			return vec, nil
		}
		if err != nil && !errors.Is(err, cache.ErrMiss) {
			slog.Warn("query vector cache read failed", "error", err)
		}
	}

	vec, err := s.embedder.EmbedSingle(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, vec, queryVectorTTL); err != nil {
			slog.Warn("query vector cache write failed", "error", err)
		}
	}
	return vec, nil
}

func (s *Searcher) cacheKey(query string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(query)))
	return "qvec:" + s.model + ":" + hex.EncodeToString(sum[:])
}
