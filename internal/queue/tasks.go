package queue

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	TypeFileProcess  = "file:process"
	TypeStoryNarrate = "story:narrate"
)

// Queue names. Pipeline runs use the default queue; narration can wait.
const (
	QueueDefault = "default"
	QueueLow     = "low"
)

type FileProcessPayload struct {
	FileID string `json:"file_id"`
}

type StoryNarratePayload struct {
	StoryID string `json:"story_id"`
}

func NewFileProcessTask(fileID uuid.UUID) (*asynq.Task, error) {
	return newTask(TypeFileProcess, FileProcessPayload{FileID: fileID.String()})
}

func NewStoryNarrateTask(storyID uuid.UUID) (*asynq.Task, error) {
	return newTask(TypeStoryNarrate, StoryNarratePayload{StoryID: storyID.String()})
}

func newTask(taskType string, payload any) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return asynq.NewTask(taskType, data), nil
}
