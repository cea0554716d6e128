package models

import (
	"time"

	"github.com/google/uuid"
)

type StoryScene struct {
	FileID  uuid.UUID `json:"file_id"`
	Caption string    `json:"caption"`
}

type Story struct {
	ID           uuid.UUID    `json:"id"`
	OwnerID      uuid.UUID    `json:"owner_id"`
	Title        string       `json:"title"`
	Prompt       string       `json:"prompt"`
	Narrative    string       `json:"narrative"`
	Scenes       []StoryScene `json:"scenes"`
	FileIDs      []uuid.UUID  `json:"file_ids"`
	Provider     string       `json:"provider,omitempty"`
	Model        string       `json:"model,omitempty"`
	NarrationURL string       `json:"narration_url,omitempty"`
	CoverURL     string       `json:"cover_url,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
}
