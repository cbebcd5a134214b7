package achievement

import (
	"time"

	"github.com/google/uuid"
)

type Achievement struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	Icon        string    `json:"icon" db:"icon"`
	Points      int       `json:"points" db:"points"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

type UserAchievement struct {
	UserID        uuid.UUID `json:"user_id" db:"user_id"`
	AchievementID uuid.UUID `json:"achievement_id" db:"achievement_id"`
	UnlockedAt    time.Time `json:"unlocked_at" db:"unlocked_at"`
}

type AchievementWithStatus struct {
	Achievement
	Unlocked   bool       `json:"unlocked"`
	UnlockedAt *time.Time `json:"unlocked_at,omitempty"`
}

// Progress is the set of counters the achievement page shows next to the
// catalog.
type Progress struct {
	TotalStories      int `json:"total_stories"`
	CompletedStories  int `json:"completed_stories"`
	SharedStories     int `json:"shared_stories"`
	ChallengeEntries  int `json:"challenge_entries"`
	ChallengeWins     int `json:"challenge_wins"`
	TotalLikes        int `json:"total_likes"`
	TotalViews        int `json:"total_views"`
	AchievementPoints int `json:"achievement_points"`
}

type AchievementsResponse struct {
	Achievements []*AchievementWithStatus `json:"achievements"`
	Unlocked     int                      `json:"unlocked"`
	Total        int                      `json:"total"`
	Points       int                      `json:"points"`
}

type AwardRequest struct {
	UserID        uuid.UUID `json:"user_id"`
	AchievementID uuid.UUID `json:"achievement_id"`
}

type AwardResult struct {
	Success     bool         `json:"success"`
	Achievement *Achievement `json:"achievement"`
	AlreadyHad  bool         `json:"already_had"`
	Message     string       `json:"message"`
}
