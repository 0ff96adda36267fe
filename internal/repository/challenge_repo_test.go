package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/arena-go-api/internal/models"
)

func TestChallengeRepositoryPublishKeepsSingleActive(t *testing.T) {
	db := setupChallengeTestDB(t)
	repo := NewChallengeRepository(db)

	base := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)
	for i := 1; i <= 3; i++ {
		challenge := models.Challenge{
			ID:                fmt.Sprintf("challenge-%d", i),
			Title:             fmt.Sprintf("Week %d", i),
			Description:       "Implement the thing described in the brief.",
			Active:            true,
			LeaderboardHandle: fmt.Sprintf("handle-%d", i),
			CreatedAt:         base.Add(time.Duration(i) * time.Hour),
		}
		require.NoError(t, repo.Publish(context.Background(), &challenge))
	}

	active, err := repo.GetActive(context.Background())
	require.NoError(t, err)
	require.Equal(t, "challenge-3", active.ID)

	var activeCount int64
	require.NoError(t, db.Model(&models.Challenge{}).Where("active = ?", true).Count(&activeCount).Error)
	require.Equal(t, int64(1), activeCount, "publishing must deactivate all prior challenges")

	first, err := repo.GetByID(context.Background(), "challenge-1")
	require.NoError(t, err)
	require.False(t, first.Active)
}

func TestChallengeRepositoryGetActiveWhenNonePublished(t *testing.T) {
	db := setupChallengeTestDB(t)
	repo := NewChallengeRepository(db)

	_, err := repo.GetActive(context.Background())
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestChallengeRepositoryListNewestFirst(t *testing.T) {
	db := setupChallengeTestDB(t)
	repo := NewChallengeRepository(db)

	base := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)
	for i := 1; i <= 4; i++ {
		challenge := models.Challenge{
			ID:                fmt.Sprintf("challenge-%d", i),
			Title:             fmt.Sprintf("Week %d", i),
			Description:       "A different brief each week for the cohort.",
			LeaderboardHandle: fmt.Sprintf("handle-%d", i),
			CreatedAt:         base.Add(time.Duration(i) * time.Hour),
		}
		require.NoError(t, repo.Publish(context.Background(), &challenge))
	}

	listed, err := repo.List(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	require.Equal(t, "challenge-4", listed[0].ID)
	require.Equal(t, "challenge-3", listed[1].ID)
}

func setupChallengeTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Challenge{}))
	return db
}
