package story

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/nikhilbhutani/memorylane/internal/multimodal/tts"
	"github.com/nikhilbhutani/memorylane/internal/storage"
)

type Speaker interface {
	Narrate(ctx context.Context, req tts.SynthesisRequest) (*tts.SynthesisResult, error)
}

// NarrationService turns a stored story into an audio file.
type NarrationService struct {
	repo    Repository
	speaker Speaker
	storage storage.Storage
	voice   string
}

func NewNarrationService(repo Repository, speaker Speaker, store storage.Storage, voice string) *NarrationService {
	return &NarrationService{repo: repo, speaker: speaker, storage: store, voice: voice}
}

func (n *NarrationService) Narrate(ctx context.Context, storyID uuid.UUID) error {
	st, err := n.repo.Get(ctx, storyID)
	if err != nil {
		return err
	}
	if st.NarrationURL != "" {
		slog.Info("story already narrated", "story_id", storyID)
		return nil
	}

	res, err := n.speaker.Narrate(ctx, tts.SynthesisRequest{
		Input: st.Title + ".\n\n" + st.Narrative,
		Voice: n.voice,
	})
	if err != nil {
		return err
	}

	path := fmt.Sprintf("%s/stories/%s/narration%s", st.OwnerID, st.ID, res.Extension())
	if err := n.storage.Upload(ctx, path, bytes.NewReader(res.Audio), int64(len(res.Audio)), res.ContentType); err != nil {
		return fmt.Errorf("upload narration: %w", err)
	}
	url, err := n.storage.URL(ctx, path)
	if err != nil {
		return fmt.Errorf("narration url: %w", err)
	}
	if err := n.repo.SetNarrationURL(ctx, st.ID, url); err != nil {
		return err
	}

	slog.Info("story narrated", "story_id", st.ID, "provider", res.Provider, "bytes", len(res.Audio))
	return nil
}
