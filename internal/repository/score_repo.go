package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/arena-go-api/internal/models"
)

// ScoreRepository reads the cumulative score aggregate. Writes happen only
// inside SubmissionRepository.Record.
type ScoreRepository interface {
	Top(ctx context.Context, limit int) ([]models.UserScore, error)
	Get(ctx context.Context, userID string) (models.UserScore, error)
}

// NewScoreRepository constructs the score repository.
func NewScoreRepository(db *gorm.DB) ScoreRepository {
	return &scoreRepository{db: db}
}

type scoreRepository struct {
	db *gorm.DB
}

func (r *scoreRepository) Top(ctx context.Context, limit int) ([]models.UserScore, error) {
	query := r.db.WithContext(ctx).Order("score DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var scores []models.UserScore
	if err := query.Find(&scores).Error; err != nil {
		return nil, err
	}
	return scores, nil
}

func (r *scoreRepository) Get(ctx context.Context, userID string) (models.UserScore, error) {
	var score models.UserScore
	err := r.db.WithContext(ctx).First(&score, "user_id = ?", userID).Error
	if err != nil {
		return models.UserScore{}, err
	}
	return score, nil
}
