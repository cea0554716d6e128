package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/nikhilbhutani/memorylane/internal/models"
)

// hardSteps mark the whole file failed as soon as they fail. Every other step
// degrades: the failure is recorded and the run continues.
var hardSteps = map[models.StepName]bool{
	models.StepError:          true,
	models.StepTextProcessing: true,
}

func IsHardStep(step models.StepName) bool { return hardSteps[step] }

// Tracker appends history entries and persists the file before returning.
type Tracker struct {
	store Store
	now   func() time.Time
}

func NewTracker(store Store, now func() time.Time) *Tracker {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Tracker{store: store, now: now}
}

// Record appends one entry for step. Progress is not advanced here except for
// the terminal complete step; the processor owns step weights.
func (t *Tracker) Record(ctx context.Context, f *models.File, step models.StepName, status models.EntryStatus, errMsg string) (*models.File, error) {
	switch {
	case step == models.StepComplete && status == models.EntryCompleted:
		f.ProcessingProgress = 100
		f.Status = models.FileStatusCompleted
	case status == models.EntryFailed && IsHardStep(step):
		f.Status = models.FileStatusFailed
	}

	f.ProcessingHistory = append(f.ProcessingHistory, models.ProcessingEntry{
		Step:       step,
		Status:     status,
		Progress:   f.ProcessingProgress,
		Generation: f.Generation,
		Timestamp:  t.now(),
		Error:      errMsg,
	})

	if err := t.store.SaveRun(ctx, f); err != nil {
		return f, fmt.Errorf("record %s %s: %w", step, status, err)
	}
	return f, nil
}
