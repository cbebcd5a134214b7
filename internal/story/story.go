package story

import (
	"time"

	"github.com/google/uuid"
)

type Story struct {
	ID                uuid.UUID  `json:"id" db:"id"`
	UserID            uuid.UUID  `json:"user_id" db:"user_id"`
	ChallengeID       *uuid.UUID `json:"challenge_id,omitempty" db:"challenge_id"`
	Title             string     `json:"title" db:"title"`
	Description       string     `json:"description" db:"description"`
	Content           string     `json:"content,omitempty" db:"content"`
	AgeGroup          string     `json:"age_group" db:"age_group"`
	IsPublic          bool       `json:"is_public" db:"is_public"`
	IsShared          bool       `json:"is_shared" db:"is_shared"`
	IsComplete        bool       `json:"is_complete" db:"is_complete"`
	IsDraft           bool       `json:"is_draft" db:"is_draft"`
	IsChallengeWinner bool       `json:"is_challenge_winner" db:"is_challenge_winner"`
	LikeCount         int        `json:"like_count" db:"like_count"`
	ViewCount         int        `json:"view_count" db:"view_count"`
	ShareMessage      string     `json:"share_message,omitempty" db:"share_message"`
	CreatedAt         time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at" db:"updated_at"`
	ShareDate         *time.Time `json:"share_date,omitempty" db:"share_date"`
	SubmissionDate    *time.Time `json:"submission_date,omitempty" db:"submission_date"`
	Elements          []*Element `json:"elements,omitempty" db:"-"`
}

// VisibleTo reports whether viewer may read the story. uuid.Nil is an
// anonymous caller.
func (s *Story) VisibleTo(viewer uuid.UUID) bool {
	if s.IsPublic {
		return true
	}
	return viewer != uuid.Nil && viewer == s.UserID
}

// OwnedBy reports whether userID owns the story.
func (s *Story) OwnedBy(userID uuid.UUID) bool {
	return userID != uuid.Nil && userID == s.UserID
}

// Element is a positioned narrative fragment. Content holds serialized JSON.
type Element struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	StoryID     uuid.UUID  `json:"story_id" db:"story_id"`
	ElementType string     `json:"type" db:"element_type"`
	Content     string     `json:"content" db:"content"`
	Position    int        `json:"position" db:"position"`
	CharacterID *uuid.UUID `json:"character_id,omitempty" db:"character_id"`
	SettingID   *uuid.UUID `json:"setting_id,omitempty" db:"setting_id"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}
