package challenge

import (
	"time"

	"github.com/google/uuid"

	"storyquestAPI/internal/story"
)

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

type Challenge struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	Title       string     `json:"title" db:"title"`
	Description string     `json:"description" db:"description"`
	StartDate   time.Time  `json:"start_date" db:"start_date"`
	EndDate     time.Time  `json:"end_date" db:"end_date"`
	Difficulty  Difficulty `json:"difficulty" db:"difficulty"`
	AgeGroup    string     `json:"age_group" db:"age_group"`
	IsActive    bool       `json:"is_active" db:"is_active"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}

// AcceptsSubmissions reports whether the window is still open at now. Only
// the end of the window is enforced.
func (c *Challenge) AcceptsSubmissions(now time.Time) bool {
	return !now.After(c.EndDate)
}

type Overview struct {
	Active   []*Challenge `json:"active"`
	Upcoming []*Challenge `json:"upcoming"`
	Past     []*Challenge `json:"past"`
}

type Detail struct {
	Challenge       *Challenge     `json:"challenge"`
	Stories         []*story.Story `json:"stories"`
	EligibleStories []*story.Story `json:"eligible_stories,omitempty"`
	Open            bool           `json:"open"`
}

type CreateChallengeRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	StartDate   time.Time  `json:"start_date"`
	EndDate     time.Time  `json:"end_date"`
	Difficulty  Difficulty `json:"difficulty"`
	AgeGroup    string     `json:"age_group"`
}

type SubmitRequest struct {
	ChallengeID uuid.UUID `json:"challenge_id"`
	StoryID     uuid.UUID `json:"story_id"`
}

type SubmitResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Story   *story.Story `json:"story,omitempty"`
}
