package progress

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Progress is the resumable checkpoint of one user on one story.
type Progress struct {
	ID          uuid.UUID `json:"id" db:"id"`
	UserID      uuid.UUID `json:"user_id" db:"user_id"`
	StoryID     uuid.UUID `json:"story_id" db:"story_id"`
	CurrentStep string    `json:"current_step" db:"current_step"`
	Data        string    `json:"data" db:"data"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

type SaveRequest struct {
	CurrentStep string          `json:"current_step"`
	Data        json.RawMessage `json:"data"`
}

type SaveResponse struct {
	Success   bool       `json:"success"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
	Error     string     `json:"error,omitempty"`
}

type LoadResponse struct {
	Success     bool            `json:"success"`
	CurrentStep string          `json:"current_step,omitempty"`
	Data        json.RawMessage `json:"data,omitempty"`
	Timestamp   *time.Time      `json:"timestamp,omitempty"`
	Error       string          `json:"error,omitempty"`
}
