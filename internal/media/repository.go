package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/nikhilbhutani/memorylane/internal/models"
	"github.com/nikhilbhutani/memorylane/internal/pipeline"
)

const fileColumns = `id, owner_id, original_name, storage_path, storage_url, media_kind, mime_type, size_bytes,
	duration, width, height, transcription, vision_tags, ai_description, emotions, objects, faces,
	title, user_description, user_tags, searchable_text, keywords, embedding,
	status, processing_progress, processing_history, generation, created_at, updated_at`

type ListFilter struct {
	Kind   models.MediaKind
	Status models.FileStatus
	Limit  int
	Offset int
}

// PgRepository stores files in Postgres. It is also the pipeline's Store.
type PgRepository struct {
	db *pgxpool.Pool
}

func NewPgRepository(db *pgxpool.Pool) *PgRepository {
	return &PgRepository{db: db}
}

var _ pipeline.Store = (*PgRepository)(nil)

func (r *PgRepository) Insert(ctx context.Context, f *models.File) error {
	normalize(f)
	_, err := r.db.Exec(ctx,
		`INSERT INTO files (id, owner_id, original_name, storage_path, storage_url, media_kind, mime_type, size_bytes,
		                    title, user_description, user_tags, searchable_text, keywords,
		                    status, processing_progress, processing_history, generation, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $18)`,
		f.ID, f.OwnerID, f.OriginalName, f.StoragePath, f.StorageURL, f.MediaKind, f.MimeType, f.SizeBytes,
		f.Title, f.UserDescription, f.UserTags, f.SearchableText, f.Keywords,
		f.Status, f.ProcessingProgress, f.ProcessingHistory, f.Generation, f.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert file: %w", err)
	}
	return nil
}

func (r *PgRepository) Get(ctx context.Context, id uuid.UUID) (*models.File, error) {
	row := r.db.QueryRow(ctx, `SELECT `+fileColumns+` FROM files WHERE id = $1`, id)
	f, err := scanFile(row)
	if err != nil {
		return nil, fmt.Errorf("get file %s: %w", id, err)
	}
	return f, nil
}

// GetMany returns the owner's files among ids, in no particular order.
func (r *PgRepository) GetMany(ctx context.Context, owner uuid.UUID, ids []uuid.UUID) ([]*models.File, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+fileColumns+` FROM files WHERE owner_id = $1 AND id = ANY($2)`, owner, ids)
	if err != nil {
		return nil, fmt.Errorf("get files: %w", err)
	}
	return collectFiles(rows)
}

func (r *PgRepository) List(ctx context.Context, owner uuid.UUID, filter ListFilter) ([]*models.File, error) {
	var (
		where = []string{"owner_id = $1"}
		args  = []any{owner}
	)
	if filter.Kind != "" {
		args = append(args, filter.Kind)
		where = append(where, fmt.Sprintf("media_kind = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	args = append(args, filter.Limit, filter.Offset)

	query := fmt.Sprintf(`SELECT %s FROM files WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		fileColumns, strings.Join(where, " AND "), len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	return collectFiles(rows)
}

// UpdateMetadata writes user metadata and the regenerated search index. It
// refuses while a run owns the file.
func (r *PgRepository) UpdateMetadata(ctx context.Context, f *models.File) error {
	normalize(f)
	tag, err := r.db.Exec(ctx,
		`UPDATE files
		 SET title = $2, user_description = $3, user_tags = $4, searchable_text = $5, keywords = $6, updated_at = now()
		 WHERE id = $1 AND status <> 'processing'`,
		f.ID, f.Title, f.UserDescription, f.UserTags, f.SearchableText, f.Keywords,
	)
	if err != nil {
		return fmt.Errorf("update metadata: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.missingOr(ctx, f.ID, ErrBusy)
	}
	return nil
}

// MarkQueued shows the file as processing again ahead of a reprocess run.
func (r *PgRepository) MarkQueued(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE files SET status = 'processing', processing_progress = $2, updated_at = now() WHERE id = $1`,
		id, pipeline.ProgressSeed)
	if err != nil {
		return fmt.Errorf("mark queued: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PgRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM files WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete file: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PgRepository) BeginRun(ctx context.Context, id uuid.UUID) (*models.File, error) {
	row := r.db.QueryRow(ctx,
		`UPDATE files
		 SET generation = generation + 1, status = 'processing', processing_progress = $2, updated_at = now()
		 WHERE id = $1
		 RETURNING `+fileColumns,
		id, pipeline.ProgressSeed)
	f, err := scanFile(row)
	if err != nil {
		return nil, fmt.Errorf("begin run for %s: %w", id, err)
	}
	return f, nil
}

// SaveRun writes the pipeline-owned columns. User metadata is left alone.
func (r *PgRepository) SaveRun(ctx context.Context, f *models.File) error {
	normalize(f)
	tag, err := r.db.Exec(ctx,
		`UPDATE files
		 SET duration = $3, width = $4, height = $5, transcription = $6, vision_tags = $7, ai_description = $8,
		     emotions = $9, objects = $10, faces = $11, searchable_text = $12, keywords = $13, embedding = $14,
		     status = $15, processing_progress = $16, processing_history = $17, storage_url = $18, updated_at = now()
		 WHERE id = $1 AND generation = $2`,
		f.ID, f.Generation,
		f.Duration, f.Width, f.Height, f.Transcription, f.VisionTags, f.AIDescription,
		f.Emotions, f.Objects, f.Faces, f.SearchableText, f.Keywords, vectorParam(f.Embedding),
		f.Status, f.ProcessingProgress, f.ProcessingHistory, f.StorageURL,
	)
	if err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	// a newer run bumped the generation, or the file was deleted
	if tag.RowsAffected() == 0 {
		return pipeline.ErrStaleRun
	}
	return nil
}

func (r *PgRepository) FailRun(ctx context.Context, id uuid.UUID, generation int64, entry models.ProcessingEntry) error {
	entryJSON, err := json.Marshal([]models.ProcessingEntry{entry})
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}
	tag, err := r.db.Exec(ctx,
		`UPDATE files
		 SET status = 'failed', processing_history = processing_history || $3::jsonb, updated_at = now()
		 WHERE id = $1 AND ($2::bigint = 0 OR generation = $2)`,
		id, generation, string(entryJSON))
	if err != nil {
		return fmt.Errorf("fail run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.missingOr(ctx, id, pipeline.ErrStaleRun)
	}
	return nil
}

func (r *PgRepository) missingOr(ctx context.Context, id uuid.UUID, otherwise error) error {
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM files WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("check file %s: %w", id, err)
	}
	if !exists {
		return ErrNotFound
	}
	return otherwise
}

func scanFile(row pgx.Row) (*models.File, error) {
	var (
		f         models.File
		embedding *pgvector.Vector
	)
	err := row.Scan(
		&f.ID, &f.OwnerID, &f.OriginalName, &f.StoragePath, &f.StorageURL, &f.MediaKind, &f.MimeType, &f.SizeBytes,
		&f.Duration, &f.Width, &f.Height, &f.Transcription, &f.VisionTags, &f.AIDescription, &f.Emotions, &f.Objects, &f.Faces,
		&f.Title, &f.UserDescription, &f.UserTags, &f.SearchableText, &f.Keywords, &embedding,
		&f.Status, &f.ProcessingProgress, &f.ProcessingHistory, &f.Generation, &f.CreatedAt, &f.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if embedding != nil {
		f.Embedding = embedding.Slice()
	}
	return &f, nil
}

func collectFiles(rows pgx.Rows) ([]*models.File, error) {
	defer rows.Close()

	files := []*models.File{}
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		files = append(files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate files: %w", err)
	}
	return files, nil
}

func vectorParam(v []float32) any {
	if len(v) == 0 {
		return nil
	}
	return pgvector.NewVector(v)
}

// normalize replaces nil slices so NOT NULL array and jsonb columns get empty values.
func normalize(f *models.File) {
	if f.VisionTags == nil {
		f.VisionTags = []models.VisionTag{}
	}
	if f.Emotions == nil {
		f.Emotions = []string{}
	}
	if f.Objects == nil {
		f.Objects = []string{}
	}
	if f.Faces == nil {
		f.Faces = []models.Face{}
	}
	if f.UserTags == nil {
		f.UserTags = []string{}
	}
	if f.Keywords == nil {
		f.Keywords = []string{}
	}
	if f.ProcessingHistory == nil {
		f.ProcessingHistory = []models.ProcessingEntry{}
	}
}
