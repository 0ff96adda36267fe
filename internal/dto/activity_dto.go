package dto

import (
	"time"

	"github.com/noah-isme/arena-go-api/internal/models"
)

// ActivityListRequest defines filters for retrieving audit entries. Since is
// parsed from an RFC 3339 query value; its zero value means no lower bound.
type ActivityListRequest struct {
	Page       int       `query:"page" validate:"omitempty,gte=1"`
	PageSize   int       `query:"page_size" validate:"omitempty,gte=1,lte=100"`
	ActorID    string    `query:"actor_id"`
	Action     string    `query:"action"`
	EntityType string    `query:"entity_type"`
	EntityID   string    `query:"entity_id"`
	Since      time.Time `query:"-"`
}

// ActivityResponse serializes one audit-trail entry.
type ActivityResponse struct {
	ID         uint                   `json:"id"`
	ActorID    string                 `json:"actor_id"`
	ActorRole  string                 `json:"actor_role"`
	Action     string                 `json:"action"`
	EntityType string                 `json:"entity_type"`
	EntityID   string                 `json:"entity_id,omitempty"`
	Metadata   map[string]interface{} `json:"metadata"`
	CreatedAt  time.Time              `json:"created_at"`
}

// PaginationMeta describes the page window of a list response.
type PaginationMeta struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalItems int64 `json:"total_items"`
	TotalPages int   `json:"total_pages"`
}

// ActivityListResponse wraps paginated audit entries.
type ActivityListResponse struct {
	Items      []ActivityResponse `json:"items"`
	Pagination PaginationMeta     `json:"pagination"`
}

// NewActivityResponse converts a model into an activity DTO.
func NewActivityResponse(entry models.ActivityLog) ActivityResponse {
	metadata := map[string]interface{}(nil)
	if entry.Metadata != nil {
		metadata = map[string]interface{}(entry.Metadata)
	}

	return ActivityResponse{
		ID:         entry.ID,
		ActorID:    entry.ActorID,
		ActorRole:  entry.ActorRole,
		Action:     entry.Action,
		EntityType: entry.EntityType,
		EntityID:   entry.EntityID,
		Metadata:   metadata,
		CreatedAt:  entry.CreatedAt,
	}
}
