package service

import (
	"context"
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/arena-go-api/internal/dto"
	"github.com/noah-isme/arena-go-api/internal/models"
)

type stubAnnouncer struct {
	announced []dto.ChallengeResponse
	err       error
}

func (s *stubAnnouncer) AnnouncePublished(ctx context.Context, challenge dto.ChallengeResponse) error {
	s.announced = append(s.announced, challenge)
	return s.err
}

type stubBoardInitializer struct {
	seeded []models.Challenge
	err    error
}

func (s *stubBoardInitializer) InitChallenge(ctx context.Context, challenge models.Challenge) error {
	s.seeded = append(s.seeded, challenge)
	return s.err
}

func TestChallengeServicePublish(t *testing.T) {
	repo := &stubChallengeRepo{}
	announcer := &stubAnnouncer{}
	board := &stubBoardInitializer{}
	activity := &stubActivityRecorder{}

	svc := NewChallengeService(repo, board, announcer, activity, validator.New(), zerolog.Nop())

	resp, err := svc.Publish(context.Background(), "lecturer-1", dto.PublishChallengeRequest{
		Title:       "Weekly Arena #12",
		Description: "Implement an LRU cache with O(1) operations.",
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.ID)
	require.NotEmpty(t, resp.LeaderboardHandle)
	require.NotEqual(t, resp.ID, resp.LeaderboardHandle)
	require.True(t, resp.Active)
	require.Equal(t, SupportedLanguages(), resp.Languages)

	require.Len(t, repo.published, 1)
	require.True(t, repo.published[0].Active)

	require.Len(t, board.seeded, 1)
	require.Equal(t, resp.ID, board.seeded[0].ID)

	require.Len(t, announcer.announced, 1)
	require.Equal(t, resp.ID, announcer.announced[0].ID)

	require.Len(t, activity.entries, 1)
	require.Equal(t, "challenge.published", activity.entries[0].Action)
	require.Equal(t, "lecturer-1", activity.entries[0].ActorID)
}

func TestChallengeServicePublishSanitizesMarkup(t *testing.T) {
	repo := &stubChallengeRepo{}
	svc := NewChallengeService(repo, nil, nil, nil, validator.New(), zerolog.Nop())

	resp, err := svc.Publish(context.Background(), "lecturer-1", dto.PublishChallengeRequest{
		Title:       `Arena <script>alert("x")</script> Round`,
		Description: "<p>Solve it.</p><script>steal()</script> No shortcuts allowed.",
	})
	require.NoError(t, err)
	require.NotContains(t, resp.Title, "<script>")
	require.NotContains(t, resp.Description, "<script>")
	require.Contains(t, resp.Description, "<p>Solve it.</p>", "benign formatting survives")
}

func TestChallengeServicePublishRejectsMarkupOnlyTitle(t *testing.T) {
	svc := NewChallengeService(&stubChallengeRepo{}, nil, nil, nil, validator.New(), zerolog.Nop())

	_, err := svc.Publish(context.Background(), "lecturer-1", dto.PublishChallengeRequest{
		Title:       `<img src="x">`,
		Description: "A perfectly fine description.",
	})
	require.ErrorIs(t, err, ErrInvalidPayload)
}

func TestChallengeServicePublishValidation(t *testing.T) {
	svc := NewChallengeService(&stubChallengeRepo{}, nil, nil, nil, validator.New(), zerolog.Nop())

	_, err := svc.Publish(context.Background(), "lecturer-1", dto.PublishChallengeRequest{Title: "ab", Description: "short"})
	require.Error(t, err)
	var validationErrs validator.ValidationErrors
	require.ErrorAs(t, err, &validationErrs)
}

func TestChallengeServicePublishSurvivesFanoutFailures(t *testing.T) {
	repo := &stubChallengeRepo{}
	announcer := &stubAnnouncer{err: errors.New("broker down")}
	board := &stubBoardInitializer{err: errors.New("redis down")}
	activity := &stubActivityRecorder{err: errors.New("audit down")}

	svc := NewChallengeService(repo, board, announcer, activity, validator.New(), zerolog.Nop())

	resp, err := svc.Publish(context.Background(), "lecturer-1", dto.PublishChallengeRequest{
		Title:       "Resilient Round",
		Description: "Publishing must not depend on fan-out health.",
	})
	require.NoError(t, err, "fan-out failures never roll back a committed publish")
	require.NotEmpty(t, resp.ID)
	require.Len(t, repo.published, 1)
}

func TestChallengeServiceActive(t *testing.T) {
	repo := &stubChallengeRepo{active: models.Challenge{
		ID:                "challenge-1",
		Title:             "Current Round",
		Active:            true,
		LeaderboardHandle: "handle-1",
	}}
	svc := NewChallengeService(repo, nil, nil, nil, validator.New(), zerolog.Nop())

	resp, err := svc.Active(context.Background())
	require.NoError(t, err)
	require.Equal(t, "challenge-1", resp.ID)
	require.Equal(t, SupportedLanguages(), resp.Languages)
}

func TestChallengeServiceActiveNonePublished(t *testing.T) {
	svc := NewChallengeService(&stubChallengeRepo{}, nil, nil, nil, validator.New(), zerolog.Nop())

	_, err := svc.Active(context.Background())
	require.ErrorIs(t, err, ErrNoActiveChallenge)
}

func TestChallengeServiceGetUnknown(t *testing.T) {
	svc := NewChallengeService(&stubChallengeRepo{}, nil, nil, nil, validator.New(), zerolog.Nop())

	_, err := svc.Get(context.Background(), "challenge-404")
	require.ErrorIs(t, err, ErrChallengeNotFound)
}
