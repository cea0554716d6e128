package story

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nikhilbhutani/memorylane/internal/models"
)

var ErrNotFound = errors.New("story not found")

const storyColumns = `id, owner_id, title, prompt, narrative, scenes, file_ids, provider, model, narration_url, cover_url, created_at`

type PgRepository struct {
	db *pgxpool.Pool
}

func NewPgRepository(db *pgxpool.Pool) *PgRepository {
	return &PgRepository{db: db}
}

func (r *PgRepository) Insert(ctx context.Context, s *models.Story) error {
	if s.Scenes == nil {
		s.Scenes = []models.StoryScene{}
	}
	if s.FileIDs == nil {
		s.FileIDs = []uuid.UUID{}
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO stories (`+storyColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		s.ID, s.OwnerID, s.Title, s.Prompt, s.Narrative, s.Scenes, s.FileIDs,
		s.Provider, s.Model, s.NarrationURL, s.CoverURL, s.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert story: %w", err)
	}
	return nil
}

func (r *PgRepository) Get(ctx context.Context, id uuid.UUID) (*models.Story, error) {
	s, err := scanStory(r.db.QueryRow(ctx, `SELECT `+storyColumns+` FROM stories WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("get story %s: %w", id, err)
	}
	return s, nil
}

func (r *PgRepository) List(ctx context.Context, owner uuid.UUID, limit, offset int) ([]*models.Story, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+storyColumns+` FROM stories WHERE owner_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		owner, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list stories: %w", err)
	}
	defer rows.Close()

	stories := []*models.Story{}
	for rows.Next() {
		s, err := scanStory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan story: %w", err)
		}
		stories = append(stories, s)
	}
	return stories, rows.Err()
}

func (r *PgRepository) SetNarrationURL(ctx context.Context, id uuid.UUID, url string) error {
	tag, err := r.db.Exec(ctx, `UPDATE stories SET narration_url = $2 WHERE id = $1`, id, url)
	if err != nil {
		return fmt.Errorf("set narration url: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanStory(row pgx.Row) (*models.Story, error) {
	var s models.Story
	err := row.Scan(&s.ID, &s.OwnerID, &s.Title, &s.Prompt, &s.Narrative, &s.Scenes, &s.FileIDs,
		&s.Provider, &s.Model, &s.NarrationURL, &s.CoverURL, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}
