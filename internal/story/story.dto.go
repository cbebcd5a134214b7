package story

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type CreateStoryRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	AgeGroup    string `json:"age_group,omitempty"`
}

// UpdateStoryRequest is a partial update; nil fields are left untouched.
type UpdateStoryRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Content     *string `json:"content,omitempty"`
	IsComplete  *bool   `json:"is_complete,omitempty"`
	IsDraft     *bool   `json:"is_draft,omitempty"`
}

type ElementInput struct {
	Type        string          `json:"type"`
	Content     json.RawMessage `json:"content"`
	CharacterID *uuid.UUID      `json:"character_id,omitempty"`
	SettingID   *uuid.UUID      `json:"setting_id,omitempty"`
}

type ReplaceElementsRequest struct {
	Elements   []ElementInput `json:"elements"`
	IsComplete *bool          `json:"is_complete,omitempty"`
}

type AutosaveRequest struct {
	Content json.RawMessage `json:"content"`
}

type AutosaveResponse struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

type ShareStoryRequest struct {
	ShareType    string `json:"share_type,omitempty"`
	ShareMessage string `json:"share_message"`
}

type VisibilityResponse struct {
	Success  bool `json:"success"`
	IsPublic bool `json:"is_public"`
}

type LikeResponse struct {
	Success bool   `json:"success"`
	Likes   int    `json:"likes,omitempty"`
	Error   string `json:"error,omitempty"`
}
