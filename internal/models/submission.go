package models

import "time"

// Verdict statuses assigned by the grading oracle.
const (
	SubmissionStatusPass = "Pass"
	SubmissionStatusFail = "Fail"
)

// Submission is a participant's single graded attempt at a challenge.
// Rows are immutable once written; the composite unique index on
// (user_id, challenge_id) is the final duplicate guard, ahead of any
// read-then-write check in the service layer.
type Submission struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	UserID          string    `gorm:"size:64;not null;uniqueIndex:idx_submissions_user_challenge" json:"user_id"`
	ChallengeID     string    `gorm:"size:64;not null;uniqueIndex:idx_submissions_user_challenge" json:"challenge_id"`
	Language        string    `gorm:"size:32;not null" json:"language"`
	Code            string    `gorm:"type:text" json:"code"`
	Score           int       `gorm:"not null" json:"score"`
	Feedback        string    `gorm:"type:text" json:"feedback"`
	Status          string    `gorm:"size:16;not null" json:"status"`
	DurationSeconds float64   `gorm:"not null" json:"duration_seconds"`
	IsAIFlagged     bool      `gorm:"not null;default:false" json:"is_ai_flagged"`
	CreatedAt       time.Time `json:"timestamp"`
}

// Passed reports whether the oracle verdict was a pass.
func (s Submission) Passed() bool {
	return s.Status == SubmissionStatusPass
}
