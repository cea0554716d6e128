package workers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/nikhilbhutani/memorylane/internal/queue"
	"github.com/nikhilbhutani/memorylane/internal/story"
)

type StoryNarrator interface {
	Narrate(ctx context.Context, storyID uuid.UUID) error
}

type StoryNarrateWorker struct {
	narrator StoryNarrator
}

func NewStoryNarrateWorker(n StoryNarrator) *StoryNarrateWorker {
	return &StoryNarrateWorker{narrator: n}
}

func (w *StoryNarrateWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload queue.StoryNarratePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}

	storyID, err := uuid.Parse(payload.StoryID)
	if err != nil {
		return fmt.Errorf("parse story ID: %v: %w", err, asynq.SkipRetry)
	}

	if err := w.narrator.Narrate(ctx, storyID); err != nil {
		if errors.Is(err, story.ErrNotFound) {
			return fmt.Errorf("narrate story %s: %v: %w", storyID, err, asynq.SkipRetry)
		}
		return fmt.Errorf("narrate story %s: %w", storyID, err)
	}
	return nil
}
