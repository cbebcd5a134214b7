package asset

import (
	"time"

	"github.com/google/uuid"
)

// Character traits keys: personality, appearance, likes, dislikes.
type Character struct {
	ID          uuid.UUID         `json:"id" db:"id"`
	StoryID     uuid.UUID         `json:"story_id" db:"story_id"`
	UserID      uuid.UUID         `json:"user_id" db:"user_id"`
	Name        string            `json:"name" db:"name"`
	Description string            `json:"description" db:"description"`
	Traits      map[string]string `json:"traits" db:"traits"`
	ImagePath   string            `json:"image_path,omitempty" db:"image_path"`
	CreatedAt   time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at" db:"updated_at"`
}

// Setting attribute keys: time_period, location_type, mood, weather.
type Setting struct {
	ID          uuid.UUID         `json:"id" db:"id"`
	StoryID     uuid.UUID         `json:"story_id" db:"story_id"`
	UserID      uuid.UUID         `json:"user_id" db:"user_id"`
	Name        string            `json:"name" db:"name"`
	Description string            `json:"description" db:"description"`
	Attributes  map[string]string `json:"attributes" db:"attributes"`
	ImagePath   string            `json:"image_path,omitempty" db:"image_path"`
	CreatedAt   time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at" db:"updated_at"`
}

type CharacterRequest struct {
	Name        *string           `json:"name,omitempty"`
	Description *string           `json:"description,omitempty"`
	Traits      map[string]string `json:"traits,omitempty"`
	ImagePath   *string           `json:"image_path,omitempty"`
}

type SettingRequest struct {
	Name        *string           `json:"name,omitempty"`
	Description *string           `json:"description,omitempty"`
	Attributes  map[string]string `json:"attributes,omitempty"`
	ImagePath   *string           `json:"image_path,omitempty"`
}

var (
	CharacterTraitKeys   = []string{"personality", "appearance", "likes", "dislikes"}
	SettingAttributeKeys = []string{"time_period", "location_type", "mood", "weather"}
)

// Normalize keeps the known keys of attrs, filling missing ones from base.
func Normalize(keys []string, base, attrs map[string]string) map[string]string {
	out := make(map[string]string, len(keys))
	for _, k := range keys {
		if v, ok := attrs[k]; ok {
			out[k] = v
		} else {
			out[k] = base[k]
		}
	}
	return out
}
