package workers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/nikhilbhutani/memorylane/internal/pipeline"
	"github.com/nikhilbhutani/memorylane/internal/queue"
)

type FileProcessor interface {
	Process(ctx context.Context, fileID uuid.UUID) error
}

type FileProcessWorker struct {
	processor FileProcessor
}

func NewFileProcessWorker(p FileProcessor) *FileProcessWorker {
	return &FileProcessWorker{processor: p}
}

// ProcessTask runs the pipeline for one file. The outcome is recorded on the
// file itself, so errors are never retried by the queue.
func (w *FileProcessWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload queue.FileProcessPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}

	fileID, err := uuid.Parse(payload.FileID)
	if err != nil {
		return fmt.Errorf("parse file ID: %v: %w", err, asynq.SkipRetry)
	}

	err = w.processor.Process(ctx, fileID)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pipeline.ErrAlreadyProcessing):
		slog.Info("file already being processed, dropping task", "file_id", fileID)
		return nil
	default:
		return fmt.Errorf("process file %s: %v: %w", fileID, err, asynq.SkipRetry)
	}
}
