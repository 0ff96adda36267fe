package dto

import (
	"time"

	"github.com/noah-isme/arena-go-api/internal/models"
)

// PublishChallengeRequest is the payload for publishing a new challenge.
type PublishChallengeRequest struct {
	Title       string `json:"title" validate:"required,min=3,max=200"`
	Description string `json:"description" validate:"required,min=10"`
}

// ChallengeResponse represents a challenge to API consumers.
type ChallengeResponse struct {
	ID                string    `json:"id"`
	Title             string    `json:"title"`
	Description       string    `json:"description"`
	Active            bool      `json:"active"`
	LeaderboardHandle string    `json:"leaderboard_handle"`
	Languages         []string  `json:"languages,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// NewChallengeResponse builds a response DTO from a model.
func NewChallengeResponse(challenge models.Challenge) ChallengeResponse {
	return ChallengeResponse{
		ID:                challenge.ID,
		Title:             challenge.Title,
		Description:       challenge.Description,
		Active:            challenge.Active,
		LeaderboardHandle: challenge.LeaderboardHandle,
		CreatedAt:         challenge.CreatedAt,
	}
}
