package dto

import "time"

// LeaderboardEntry is one ranked row of a per-challenge board.
type LeaderboardEntry struct {
	Rank            int       `json:"rank"`
	Medal           string    `json:"medal,omitempty"`
	UserID          string    `json:"user_id"`
	Score           int       `json:"score"`
	DurationSeconds float64   `json:"duration_seconds"`
	Language        string    `json:"language"`
	SubmittedAt     time.Time `json:"submitted_at"`
}

// LeaderboardSnapshot is the full per-challenge standings payload. The same
// shape is served over HTTP, cached in Redis under the challenge's
// leaderboard handle, and pushed to live websocket viewers.
type LeaderboardSnapshot struct {
	ChallengeID      string             `json:"challenge_id"`
	Title            string             `json:"title"`
	Handle           string             `json:"handle"`
	TotalSubmissions int                `json:"total_submissions"`
	Entries          []LeaderboardEntry `json:"entries"`
	UpdatedAt        time.Time          `json:"updated_at"`
}

// GlobalLeaderboardEntry is one ranked row of the cumulative hall of fame.
type GlobalLeaderboardEntry struct {
	Rank   int    `json:"rank"`
	Medal  string `json:"medal,omitempty"`
	UserID string `json:"user_id"`
	Score  int    `json:"score"`
}

// GlobalLeaderboardResponse ranks cumulative scores across all challenges.
type GlobalLeaderboardResponse struct {
	Entries   []GlobalLeaderboardEntry `json:"entries"`
	UpdatedAt time.Time                `json:"updated_at"`
}
