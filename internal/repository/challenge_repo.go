package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/arena-go-api/internal/models"
)

// ChallengeRepository exposes persistence helpers for challenges.
type ChallengeRepository interface {
	Publish(ctx context.Context, challenge *models.Challenge) error
	GetByID(ctx context.Context, id string) (models.Challenge, error)
	GetActive(ctx context.Context) (models.Challenge, error)
	List(ctx context.Context, limit int) ([]models.Challenge, error)
}

// NewChallengeRepository constructs a challenge repository.
func NewChallengeRepository(db *gorm.DB) ChallengeRepository {
	return &challengeRepository{db: db}
}

type challengeRepository struct {
	db *gorm.DB
}

// Publish deactivates every currently active challenge and inserts the new
// one in a single transaction, so readers never observe two active rows.
func (r *challengeRepository) Publish(ctx context.Context, challenge *models.Challenge) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&models.Challenge{}).
			Where("active = ?", true).
			Update("active", false).Error
		if err != nil {
			return err
		}
		return tx.Create(challenge).Error
	})
}

func (r *challengeRepository) GetByID(ctx context.Context, id string) (models.Challenge, error) {
	var challenge models.Challenge
	err := r.db.WithContext(ctx).First(&challenge, "id = ?", id).Error
	if err != nil {
		return models.Challenge{}, err
	}
	return challenge, nil
}

func (r *challengeRepository) GetActive(ctx context.Context) (models.Challenge, error) {
	var challenge models.Challenge
	err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("created_at DESC").
		First(&challenge).Error
	if err != nil {
		return models.Challenge{}, err
	}
	return challenge, nil
}

func (r *challengeRepository) List(ctx context.Context, limit int) ([]models.Challenge, error) {
	query := r.db.WithContext(ctx).Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var challenges []models.Challenge
	if err := query.Find(&challenges).Error; err != nil {
		return nil, err
	}
	return challenges, nil
}
