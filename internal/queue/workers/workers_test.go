package workers

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhilbhutani/memorylane/internal/pipeline"
	"github.com/nikhilbhutani/memorylane/internal/queue"
	"github.com/nikhilbhutani/memorylane/internal/story"
)

type fakeProcessor struct {
	got uuid.UUID
	err error
}

func (f *fakeProcessor) Process(_ context.Context, id uuid.UUID) error {
	f.got = id
	return f.err
}

type fakeNarrator struct {
	got uuid.UUID
	err error
}

func (f *fakeNarrator) Narrate(_ context.Context, id uuid.UUID) error {
	f.got = id
	return f.err
}

func TestFileProcessWorker(t *testing.T) {
	id := uuid.New()
	task, err := queue.NewFileProcessTask(id)
	require.NoError(t, err)

	tests := []struct {
		name      string
		procErr   error
		wantErr   bool
		wantRetry bool
	}{
		{"success", nil, false, false},
		{"already processing is acknowledged", pipeline.ErrAlreadyProcessing, false, false},
		{"failure is not retried", errors.New("load file: db down"), true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fakeProcessor{err: tt.procErr}
			err := NewFileProcessWorker(p).ProcessTask(context.Background(), task)

			assert.Equal(t, id, p.got)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, asynq.SkipRetry)
		})
	}
}

func TestFileProcessWorker_BadPayload(t *testing.T) {
	p := &fakeProcessor{}
	w := NewFileProcessWorker(p)

	err := w.ProcessTask(context.Background(), asynq.NewTask(queue.TypeFileProcess, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	err = w.ProcessTask(context.Background(), asynq.NewTask(queue.TypeFileProcess, []byte(`{"file_id":"nope"}`)))
	assert.ErrorIs(t, err, asynq.SkipRetry)
	assert.Equal(t, uuid.Nil, p.got)
}

func TestStoryNarrateWorker(t *testing.T) {
	id := uuid.New()
	task, err := queue.NewStoryNarrateTask(id)
	require.NoError(t, err)

	n := &fakeNarrator{}
	require.NoError(t, NewStoryNarrateWorker(n).ProcessTask(context.Background(), task))
	assert.Equal(t, id, n.got)

	n.err = fmt.Errorf("get story: %w", story.ErrNotFound)
	err = NewStoryNarrateWorker(n).ProcessTask(context.Background(), task)
	assert.ErrorIs(t, err, asynq.SkipRetry)

	n.err = errors.New("tts unavailable")
	err = NewStoryNarrateWorker(n).ProcessTask(context.Background(), task)
	require.Error(t, err)
	assert.NotErrorIs(t, err, asynq.SkipRetry, "transient narration failures are retried")
}
