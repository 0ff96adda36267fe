package dto

import (
	"time"

	"github.com/noah-isme/arena-go-api/internal/models"
)

// AttemptRequest selects a language for a challenge and arms the attempt
// timer.
type AttemptRequest struct {
	Language string `json:"language" validate:"required"`
}

// AttemptResponse confirms an armed attempt.
type AttemptResponse struct {
	ChallengeID string    `json:"challenge_id"`
	Language    string    `json:"language"`
	StartedAt   time.Time `json:"started_at"`
}

// SubmissionRequest carries the participant's code. The language was fixed
// when the attempt was armed, so it is not part of this payload.
type SubmissionRequest struct {
	Code string `json:"code" validate:"required,min=1,max=4000"`
}

// SubmissionResultResponse is the graded outcome returned to the participant.
type SubmissionResultResponse struct {
	ChallengeID     string  `json:"challenge_id"`
	Language        string  `json:"language"`
	Score           int     `json:"score"`
	Feedback        string  `json:"feedback"`
	Status          string  `json:"status"`
	DurationSeconds float64 `json:"duration_seconds"`
	IsAISuspected   bool    `json:"is_ai_suspected"`
}

// NewSubmissionResultResponse builds the result DTO from a recorded
// submission.
func NewSubmissionResultResponse(submission models.Submission) SubmissionResultResponse {
	return SubmissionResultResponse{
		ChallengeID:     submission.ChallengeID,
		Language:        submission.Language,
		Score:           submission.Score,
		Feedback:        submission.Feedback,
		Status:          submission.Status,
		DurationSeconds: submission.DurationSeconds,
		IsAISuspected:   submission.IsAIFlagged,
	}
}
