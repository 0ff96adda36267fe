package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/arena-go-api/internal/models"
)

// SubmissionRepository defines data operations for graded submissions and
// the cumulative score aggregate they feed.
type SubmissionRepository interface {
	Record(ctx context.Context, submission *models.Submission) error
	Exists(ctx context.Context, userID, challengeID string) (bool, error)
	GetByUserAndChallenge(ctx context.Context, userID, challengeID string) (models.Submission, error)
	ListByChallenge(ctx context.Context, challengeID string) ([]models.Submission, error)
}

type submissionRepository struct {
	db *gorm.DB
}

// NewSubmissionRepository instantiates the repository.
func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

// Record inserts the submission and, when it earned points, increments the
// participant's cumulative score. Both writes share one transaction: a
// duplicate-key violation on the submission rolls back the increment too,
// and surfaces as gorm.ErrDuplicatedKey for the caller to translate.
func (r *submissionRepository) Record(ctx context.Context, submission *models.Submission) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(submission).Error; err != nil {
			return err
		}

		if submission.Score <= 0 {
			return nil
		}

		increment := models.UserScore{UserID: submission.UserID, Score: submission.Score}
		return tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"score":      gorm.Expr("user_scores.score + excluded.score"),
				"updated_at": time.Now().UTC(),
			}),
		}).Create(&increment).Error
	})
}

func (r *submissionRepository) Exists(ctx context.Context, userID, challengeID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Submission{}).
		Where("user_id = ? AND challenge_id = ?", userID, challengeID).
		Count(&count).Error
	return count > 0, err
}

func (r *submissionRepository) GetByUserAndChallenge(ctx context.Context, userID, challengeID string) (models.Submission, error) {
	var submission models.Submission
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND challenge_id = ?", userID, challengeID).
		First(&submission).Error
	if err != nil {
		return models.Submission{}, err
	}
	return submission, nil
}

func (r *submissionRepository) ListByChallenge(ctx context.Context, challengeID string) ([]models.Submission, error) {
	var submissions []models.Submission
	err := r.db.WithContext(ctx).
		Where("challenge_id = ?", challengeID).
		Order("created_at ASC").
		Find(&submissions).Error
	if err != nil {
		return nil, err
	}
	return submissions, nil
}
