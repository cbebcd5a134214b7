package leaderboard

import "github.com/google/uuid"

type LeaderboardEntry struct {
	UserID   uuid.UUID `json:"user_id" db:"user_id"`
	Username string    `json:"username" db:"username"`
	Value    int       `json:"value" db:"value"`
	Rank     int       `json:"rank" db:"rank"`
}

type Leaderboard struct {
	TopPoints        []*LeaderboardEntry `json:"top_points"`
	MostStories      []*LeaderboardEntry `json:"most_stories"`
	ChallengeWinners []*LeaderboardEntry `json:"challenge_winners"`
}
