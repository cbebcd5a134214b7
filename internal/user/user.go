package user

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	AgeGroup     string    `json:"age_group" db:"age_group"`
	IsAdmin      bool      `json:"is_admin" db:"is_admin"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// Profile is the signed-in user's dashboard summary.
type Profile struct {
	User              *User `json:"user"`
	StoryCount        int   `json:"story_count"`
	AchievementCount  int   `json:"achievement_count"`
	AchievementPoints int   `json:"achievement_points"`
}
