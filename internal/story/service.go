package story

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nikhilbhutani/memorylane/internal/llm"
	"github.com/nikhilbhutani/memorylane/internal/models"
	"github.com/nikhilbhutani/memorylane/internal/multimodal"
	"github.com/nikhilbhutani/memorylane/internal/storage"
)

const (
	maxFiles          = 20
	maxNarrativeWords = 400
	transcriptExcerpt = 300
	defaultTitle      = "A collection of memories"
)

var (
	ErrNoFiles       = errors.New("at least one file is required")
	ErrTooManyFiles  = fmt.Errorf("at most %d files per story", maxFiles)
	ErrNoUsableFiles = errors.New("none of the selected files has finished processing")
)

type Repository interface {
	Insert(ctx context.Context, s *models.Story) error
	Get(ctx context.Context, id uuid.UUID) (*models.Story, error)
	List(ctx context.Context, owner uuid.UUID, limit, offset int) ([]*models.Story, error)
	SetNarrationURL(ctx context.Context, id uuid.UUID, url string) error
}

type FileSource interface {
	GetMany(ctx context.Context, owner uuid.UUID, ids []uuid.UUID) ([]*models.File, error)
}

type TextGenerator interface {
	Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error)
}

type Enqueuer interface {
	EnqueueStoryNarrate(ctx context.Context, storyID uuid.UUID) error
}

// Screener vets the free-text guidance before it reaches the model.
type Screener interface {
	Screen(ctx context.Context, text string) error
}

type Request struct {
	FileIDs []uuid.UUID `json:"file_ids"`
	Prompt  string      `json:"prompt"`
	Narrate bool        `json:"narrate"`
	Cover   bool        `json:"cover"`
}

type Config struct {
	Provider string
	Model    string
}

type Service struct {
	repo    Repository
	files   FileSource
	gen     TextGenerator
	storage storage.Storage
	queue   Enqueuer
	covers  *CoverArtist
	screen  Screener
	cfg     Config
	now     func() time.Time
}

// NewService wires story generation. covers may be nil to disable cover art.
func NewService(repo Repository, files FileSource, gen TextGenerator, store storage.Storage, queue Enqueuer, covers *CoverArtist, cfg Config) *Service {
	return &Service{
		repo:    repo,
		files:   files,
		gen:     gen,
		storage: store,
		queue:   queue,
		covers:  covers,
		cfg:     cfg,
		now:     time.Now,
	}
}

// WithScreener installs a guidance screener. Rejections are returned as is.
func (s *Service) WithScreener(sc Screener) *Service {
	s.screen = sc
	return s
}

// storyDraft is the shape requested from the model.
type storyDraft struct {
	Title     string              `json:"title"`
	Narrative string              `json:"narrative"`
	Scenes    []models.StoryScene `json:"scenes"`
}

func (s *Service) Generate(ctx context.Context, owner uuid.UUID, req Request) (*models.Story, error) {
	if len(req.FileIDs) == 0 {
		return nil, ErrNoFiles
	}
	if len(req.FileIDs) > maxFiles {
		return nil, ErrTooManyFiles
	}

	if s.screen != nil {
		if err := s.screen.Screen(ctx, req.Prompt); err != nil {
			return nil, err
		}
	}

	files, err := s.usableFiles(ctx, owner, req.FileIDs)
	if err != nil {
		return nil, err
	}

	system, err := Render(systemTemplate, map[string]string{"max_words": strconv.Itoa(maxNarrativeWords)})
	if err != nil {
		return nil, err
	}
	guidance := strings.TrimSpace(req.Prompt)
	if guidance == "" {
		guidance = "none"
	}
	user, err := Render(userTemplate, map[string]string{
		"memories": buildContext(files),
		"guidance": guidance,
	})
	if err != nil {
		return nil, err
	}

	resp, err := s.gen.Chat(ctx, llm.ChatRequest{
		Provider: s.cfg.Provider,
		Model:    s.cfg.Model,
		Messages: []llm.Message{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: 0.7,
		JSONMode:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("generate story: %w", err)
	}

	draft, ok := multimodal.ParseJSON(resp.Content, defaultDraft(resp.Content, files))
	if !ok {
		slog.Warn("story response was not valid JSON, using default", "provider", resp.Provider)
	}

	st := &models.Story{
		ID:        uuid.New(),
		OwnerID:   owner,
		Title:     strings.TrimSpace(draft.Title),
		Prompt:    req.Prompt,
		Narrative: strings.TrimSpace(draft.Narrative),
		Scenes:    keepKnownScenes(draft.Scenes, files),
		FileIDs:   fileIDs(files),
		Provider:  resp.Provider,
		Model:     resp.Model,
		CreatedAt: s.now().UTC(),
	}
	if st.Title == "" {
		st.Title = defaultTitle
	}

	if req.Cover && s.covers != nil {
		s.attachCover(ctx, st, files)
	}

	if err := s.repo.Insert(ctx, st); err != nil {
		return nil, err
	}

	if req.Narrate && s.queue != nil {
		if err := s.queue.EnqueueStoryNarrate(ctx, st.ID); err != nil {
			slog.Error("enqueue story narration failed", "story_id", st.ID, "error", err)
		}
	}

	slog.Info("story generated", "story_id", st.ID, "files", len(files), "provider", st.Provider)
	return st, nil
}

// usableFiles keeps the request order and drops files whose enrichment has
// not completed.
func (s *Service) usableFiles(ctx context.Context, owner uuid.UUID, ids []uuid.UUID) ([]*models.File, error) {
	loaded, err := s.files.GetMany(ctx, owner, ids)
	if err != nil {
		return nil, fmt.Errorf("load files: %w", err)
	}
	byID := make(map[uuid.UUID]*models.File, len(loaded))
	for _, f := range loaded {
		byID[f.ID] = f
	}

	seen := make(map[uuid.UUID]bool, len(ids))
	files := make([]*models.File, 0, len(ids))
	for _, id := range ids {
		f, ok := byID[id]
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		if f.Status != models.FileStatusCompleted {
			slog.Info("skipping file not ready for stories", "file_id", id, "status", f.Status)
			continue
		}
		files = append(files, f)
	}
	if len(files) == 0 {
		return nil, ErrNoUsableFiles
	}
	return files, nil
}

func buildContext(files []*models.File) string {
	var b strings.Builder
	for i, f := range files {
		fmt.Fprintf(&b, "%d. file_id=%s kind=%s name=%q\n", i+1, f.ID, f.MediaKind, f.OriginalName)
		if f.Title != "" {
			fmt.Fprintf(&b, "   title: %s\n", f.Title)
		}
		if desc := firstNonEmpty(f.UserDescription, f.AIDescription); desc != "" {
			fmt.Fprintf(&b, "   description: %s\n", desc)
		}
		if tags := f.TagNames(); len(tags) > 0 {
			fmt.Fprintf(&b, "   tags: %s\n", strings.Join(tags, ", "))
		}
		if len(f.Emotions) > 0 {
			fmt.Fprintf(&b, "   emotions: %s\n", strings.Join(f.Emotions, ", "))
		}
		if f.Transcription != nil && f.Transcription.Text != "" {
			fmt.Fprintf(&b, "   transcript: %s\n", excerpt(f.Transcription.Text, transcriptExcerpt))
		}
	}
	return b.String()
}

func defaultDraft(raw string, files []*models.File) storyDraft {
	d := storyDraft{Title: defaultTitle, Narrative: strings.TrimSpace(raw)}
	for _, f := range files {
		d.Scenes = append(d.Scenes, models.StoryScene{
			FileID:  f.ID,
			Caption: firstNonEmpty(f.Title, f.AIDescription, f.OriginalName),
		})
	}
	return d
}

func keepKnownScenes(scenes []models.StoryScene, files []*models.File) []models.StoryScene {
	known := make(map[uuid.UUID]bool, len(files))
	for _, f := range files {
		known[f.ID] = true
	}
	kept := make([]models.StoryScene, 0, len(scenes))
	for _, sc := range scenes {
		if known[sc.FileID] {
			kept = append(kept, sc)
		}
	}
	return kept
}

func fileIDs(files []*models.File) []uuid.UUID {
	ids := make([]uuid.UUID, len(files))
	for i, f := range files {
		ids[i] = f.ID
	}
	return ids
}

func (s *Service) attachCover(ctx context.Context, st *models.Story, files []*models.File) {
	img, err := s.covers.Draw(ctx, st.Title, coverSubjects(files))
	if err != nil {
		slog.Warn("cover generation failed", "story_id", st.ID, "error", err)
		return
	}
	path := fmt.Sprintf("%s/stories/%s/cover.png", st.OwnerID, st.ID)
	if err := s.storage.Upload(ctx, path, bytes.NewReader(img.Data), int64(len(img.Data)), img.ContentType); err != nil {
		slog.Warn("cover upload failed", "story_id", st.ID, "error", err)
		return
	}
	url, err := s.storage.URL(ctx, path)
	if err != nil {
		slog.Warn("cover url failed", "story_id", st.ID, "error", err)
		return
	}
	st.CoverURL = url
}

func coverSubjects(files []*models.File) string {
	var subjects []string
	seen := map[string]bool{}
	for _, f := range files {
		for _, w := range append(f.TagNames(), f.Emotions...) {
			if !seen[w] {
				seen[w] = true
				subjects = append(subjects, w)
			}
		}
	}
	if len(subjects) > 12 {
		subjects = subjects[:12]
	}
	if len(subjects) == 0 {
		return "everyday life"
	}
	return strings.Join(subjects, ", ")
}

func (s *Service) Get(ctx context.Context, owner, id uuid.UUID) (*models.Story, error) {
	st, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if st.OwnerID != owner {
		return nil, ErrNotFound
	}
	return st, nil
}

func (s *Service) List(ctx context.Context, owner uuid.UUID, limit, offset int) ([]*models.Story, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.repo.List(ctx, owner, limit, offset)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func excerpt(s string, limit int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= limit {
		return string(r)
	}
	return string(r[:limit]) + "..."
}
