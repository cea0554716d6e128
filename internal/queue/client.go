package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/nikhilbhutani/memorylane/internal/config"
)

type Client struct {
	client *asynq.Client
	// processTimeout bounds a whole pipeline run; it matches the file lock TTL.
	processTimeout time.Duration
}

func RedisOpt(cfg config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}

func NewClient(cfg config.RedisConfig, processTimeout time.Duration) *Client {
	return &Client{
		client:         asynq.NewClient(RedisOpt(cfg)),
		processTimeout: processTimeout,
	}
}

func (c *Client) Close() error {
	return c.client.Close()
}

// EnqueueFileProcess schedules one pipeline run. Failed runs are recorded on
// the file and not retried; users reprocess explicitly.
func (c *Client) EnqueueFileProcess(ctx context.Context, fileID uuid.UUID) error {
	task, err := NewFileProcessTask(fileID)
	if err != nil {
		return err
	}
	return c.enqueue(ctx, task, asynq.MaxRetry(0), asynq.Timeout(c.processTimeout))
}

func (c *Client) EnqueueStoryNarrate(ctx context.Context, storyID uuid.UUID) error {
	task, err := NewStoryNarrateTask(storyID)
	if err != nil {
		return err
	}
	return c.enqueue(ctx, task, asynq.Queue(QueueLow), asynq.MaxRetry(3), asynq.Timeout(10*time.Minute))
}

func (c *Client) enqueue(ctx context.Context, task *asynq.Task, opts ...asynq.Option) error {
	if _, err := c.client.EnqueueContext(ctx, task, opts...); err != nil {
		return fmt.Errorf("enqueue %s: %w", task.Type(), err)
	}
	return nil
}
