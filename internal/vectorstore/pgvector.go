package vectorstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

const (
	defaultTopK   = 10
	vectorWeight  = 0.7
	keywordWeight = 0.3
)

const resultColumns = `id, original_name, title, media_kind, storage_url, ai_description, keywords`

type PgVectorStore struct {
	db *pgxpool.Pool
}

func NewPgVectorStore(db *pgxpool.Pool) *PgVectorStore {
	return &PgVectorStore{db: db}
}

// kindArg maps an empty kind to NULL so the filter matches everything.
func kindArg(opts SearchOptions) any {
	if opts.Kind == "" {
		return nil
	}
	return string(opts.Kind)
}

func (s *PgVectorStore) SimilaritySearch(ctx context.Context, query []float32, opts SearchOptions) ([]SearchResult, error) {
	if opts.TopK <= 0 {
		opts.TopK = defaultTopK
	}

	embedding := pgvector.NewVector(query)

	rows, err := s.db.Query(ctx,
		`SELECT `+resultColumns+`, 1 - (embedding <=> $1) AS score
		 FROM files
		 WHERE owner_id = $2 AND status = 'completed' AND embedding IS NOT NULL
		   AND ($4::text IS NULL OR media_kind = $4)
		 ORDER BY embedding <=> $1
		 LIMIT $3`,
		embedding, opts.OwnerID, opts.TopK, kindArg(opts),
	)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}
	return collect(rows, opts.MinScore)
}

func (s *PgVectorStore) HybridSearch(ctx context.Context, query string, queryVec []float32, opts SearchOptions) ([]SearchResult, error) {
	if opts.TopK <= 0 {
		opts.TopK = defaultTopK
	}

	embedding := pgvector.NewVector(queryVec)

	// Hybrid: combine vector similarity with keyword (FTS) ranking
	rows, err := s.db.Query(ctx,
		`WITH vector_results AS (
			SELECT id, 1 - (embedding <=> $1) AS vector_score
			FROM files
			WHERE owner_id = $2 AND status = 'completed' AND embedding IS NOT NULL
			  AND ($5::text IS NULL OR media_kind = $5)
			ORDER BY embedding <=> $1
			LIMIT $3 * 2
		),
		keyword_results AS (
			SELECT id, ts_rank(tsv, plainto_tsquery('english', $4)) AS keyword_score
			FROM files
			WHERE owner_id = $2 AND status = 'completed' AND tsv @@ plainto_tsquery('english', $4)
			  AND ($5::text IS NULL OR media_kind = $5)
			ORDER BY keyword_score DESC
			LIMIT $3 * 2
		),
		scored AS (
			SELECT COALESCE(v.id, k.id) AS id,
			       (COALESCE(v.vector_score, 0) * $6 + COALESCE(k.keyword_score, 0) * $7) AS score
			FROM vector_results v
			FULL OUTER JOIN keyword_results k ON v.id = k.id
		)
		SELECT f.id, f.original_name, f.title, f.media_kind, f.storage_url, f.ai_description, f.keywords, s.score
		FROM scored s
		JOIN files f ON f.id = s.id
		ORDER BY s.score DESC
		LIMIT $3`,
		embedding, opts.OwnerID, opts.TopK, query, kindArg(opts), vectorWeight, keywordWeight,
	)
	if err != nil {
		return nil, fmt.Errorf("hybrid search: %w", err)
	}
	return collect(rows, opts.MinScore)
}

// KeywordSearch ranks by full-text match alone. It backs search when the
// query cannot be embedded.
func (s *PgVectorStore) KeywordSearch(ctx context.Context, query string, opts SearchOptions) ([]SearchResult, error) {
	if opts.TopK <= 0 {
		opts.TopK = defaultTopK
	}

	rows, err := s.db.Query(ctx,
		`SELECT `+resultColumns+`, ts_rank(tsv, plainto_tsquery('english', $3)) AS score
		 FROM files
		 WHERE owner_id = $1 AND status = 'completed' AND tsv @@ plainto_tsquery('english', $3)
		   AND ($4::text IS NULL OR media_kind = $4)
		 ORDER BY score DESC
		 LIMIT $2`,
		opts.OwnerID, opts.TopK, query, kindArg(opts),
	)
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}
	return collect(rows, opts.MinScore)
}

func collect(rows pgx.Rows, minScore float64) ([]SearchResult, error) {
	defer rows.Close()

	results := []SearchResult{}
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.FileID, &r.OriginalName, &r.Title, &r.MediaKind, &r.StorageURL, &r.AIDescription, &r.Keywords, &r.Score); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		if minScore > 0 && r.Score < minScore {
			continue
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate results: %w", err)
	}
	return results, nil
}
