package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/arena-go-api/internal/dto"
	"github.com/noah-isme/arena-go-api/internal/models"
	"github.com/noah-isme/arena-go-api/internal/repository"
	"github.com/noah-isme/arena-go-api/pkg/ai"
)

var submissionOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "arena",
	Subsystem: "submissions",
	Name:      "outcomes_total",
	Help:      "Submission pipeline outcomes by result",
}, []string{"outcome"})

// ErrAlreadySubmitted indicates the participant already has a recorded
// submission for this challenge.
var ErrAlreadySubmitted = errors.New("challenge already submitted")

// ErrUnsupportedLanguage indicates the requested language is not offered.
var ErrUnsupportedLanguage = errors.New("unsupported language")

// ErrChallengeClosed indicates the challenge is no longer active.
var ErrChallengeClosed = errors.New("challenge is closed")

var supportedLanguages = []string{"c", "cpp", "java", "python"}

// SupportedLanguages lists the languages offered when arming an attempt.
func SupportedLanguages() []string {
	out := make([]string, len(supportedLanguages))
	copy(out, supportedLanguages)
	return out
}

func isSupportedLanguage(language string) bool {
	for _, candidate := range supportedLanguages {
		if candidate == language {
			return true
		}
	}
	return false
}

// BoardRefresher recomputes and fans out one challenge's standings.
type BoardRefresher interface {
	RefreshChallenge(ctx context.Context, challengeID string) error
}

// SubmissionService exposes the attempt and submission operations. Submit is
// the single write path for graded submissions.
type SubmissionService interface {
	SelectLanguage(ctx context.Context, userID, challengeID string, payload dto.AttemptRequest) (dto.AttemptResponse, error)
	Submit(ctx context.Context, userID, challengeID string, payload dto.SubmissionRequest) (dto.SubmissionResultResponse, error)
}

type submissionService struct {
	submissions repository.SubmissionRepository
	challenges  repository.ChallengeRepository
	timers      *TimerRegistry
	grading     GradingService
	board       BoardRefresher
	activity    ActivityRecorder
	validator   *validator.Validate
	sanitizer   *bluemonday.Policy
	logger      zerolog.Logger
}

// NewSubmissionService constructs the submission pipeline.
func NewSubmissionService(
	submissions repository.SubmissionRepository,
	challenges repository.ChallengeRepository,
	timers *TimerRegistry,
	grading GradingService,
	board BoardRefresher,
	activity ActivityRecorder,
	validate *validator.Validate,
	logger zerolog.Logger,
) SubmissionService {
	return &submissionService{
		submissions: submissions,
		challenges:  challenges,
		timers:      timers,
		grading:     grading,
		board:       board,
		activity:    activity,
		validator:   validate,
		sanitizer:   bluemonday.StrictPolicy(),
		logger:      logger.With().Str("component", "submission_service").Logger(),
	}
}

// SelectLanguage validates the choice, checks the challenge is open and arms
// the attempt timer. Re-selection restarts the clock.
func (s *submissionService) SelectLanguage(ctx context.Context, userID, challengeID string, payload dto.AttemptRequest) (dto.AttemptResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AttemptResponse{}, err
	}

	language := strings.ToLower(strings.TrimSpace(payload.Language))
	if !isSupportedLanguage(language) {
		return dto.AttemptResponse{}, ErrUnsupportedLanguage
	}

	challenge, err := s.challenges.GetByID(ctx, challengeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AttemptResponse{}, ErrChallengeNotFound
		}
		return dto.AttemptResponse{}, fmt.Errorf("load challenge: %w", err)
	}
	if !challenge.Active {
		return dto.AttemptResponse{}, ErrChallengeClosed
	}

	startedAt := s.timers.Start(userID, challengeID, language)
	s.logger.Debug().Str("user_id", userID).Str("challenge_id", challengeID).Str("language", language).Msg("attempt timer armed")

	return dto.AttemptResponse{
		ChallengeID: challengeID,
		Language:    language,
		StartedAt:   startedAt,
	}, nil
}

// Submit runs the whole pipeline: consume the timer, guard against
// duplicates, screen for cheating, grade, persist atomically and refresh the
// board. The grading-and-recording leg is detached from request cancellation
// so a dropped client never loses an in-flight verdict.
func (s *submissionService) Submit(ctx context.Context, userID, challengeID string, payload dto.SubmissionRequest) (dto.SubmissionResultResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionResultResponse{}, err
	}

	// The attempt window is spent here, whatever happens next. A missing
	// timer (restart, or never armed) reads as zero elapsed and fails the
	// speed gate.
	elapsed, language, armed := s.timers.Consume(userID, challengeID)
	if !armed {
		s.logger.Debug().Str("user_id", userID).Str("challenge_id", challengeID).Msg("submission without armed timer")
	}

	challenge, err := s.challenges.GetByID(ctx, challengeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResultResponse{}, ErrChallengeNotFound
		}
		return dto.SubmissionResultResponse{}, fmt.Errorf("load challenge: %w", err)
	}

	// Duplicate check happens before any oracle spend. The unique index
	// backstops the race where two requests pass this read together.
	exists, err := s.submissions.Exists(ctx, userID, challengeID)
	if err != nil {
		return dto.SubmissionResultResponse{}, fmt.Errorf("check existing submission: %w", err)
	}
	if exists {
		submissionOutcomes.WithLabelValues("duplicate").Inc()
		return dto.SubmissionResultResponse{}, ErrAlreadySubmitted
	}

	if err := ScreenSubmission(elapsed, payload.Code); err != nil {
		switch {
		case errors.Is(err, ErrTooFast):
			submissionOutcomes.WithLabelValues("too_fast").Inc()
		case errors.Is(err, ErrContentRejected):
			submissionOutcomes.WithLabelValues("content_rejected").Inc()
		}
		return dto.SubmissionResultResponse{}, err
	}

	// From here on the client may disconnect; the verdict is still recorded.
	detached := context.WithoutCancel(ctx)

	verdict := s.grading.Grade(detached, ai.GradeRequest{
		Title:       challenge.Title,
		Description: challenge.Description,
		Language:    language,
		Code:        payload.Code,
	})

	if verdict.IsAISuspected {
		verdict.Score = 0
		verdict.Feedback = aiAlertFeedback
	}

	submission := models.Submission{
		UserID:          userID,
		ChallengeID:     challengeID,
		Language:        language,
		Code:            payload.Code,
		Score:           verdict.Score,
		Feedback:        s.sanitizer.Sanitize(verdict.Feedback),
		Status:          verdict.Status,
		DurationSeconds: elapsed,
		IsAIFlagged:     verdict.IsAISuspected,
	}

	if err := s.submissions.Record(detached, &submission); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			submissionOutcomes.WithLabelValues("duplicate").Inc()
			return dto.SubmissionResultResponse{}, ErrAlreadySubmitted
		}
		return dto.SubmissionResultResponse{}, fmt.Errorf("record submission: %w", err)
	}

	if verdict.IsAISuspected {
		submissionOutcomes.WithLabelValues("flagged").Inc()
	} else {
		submissionOutcomes.WithLabelValues("recorded").Inc()
	}

	// Flagged submissions stay in the ledger but never push a board update;
	// everything else refreshes standings after commit, in order.
	if !verdict.IsAISuspected && s.board != nil {
		if err := s.board.RefreshChallenge(detached, challengeID); err != nil {
			s.logger.Error().Err(err).Str("challenge_id", challengeID).Msg("leaderboard refresh failed")
		}
	}

	if s.activity != nil {
		_, err := s.activity.Record(detached, ActivityEntry{
			ActorID:    userID,
			ActorRole:  "participant",
			Action:     "submission.graded",
			EntityType: "challenge",
			EntityID:   challengeID,
			Metadata: map[string]interface{}{
				"score":            verdict.Score,
				"language":         language,
				"duration_seconds": elapsed,
				"ai_flagged":       verdict.IsAISuspected,
			},
		})
		if err != nil {
			s.logger.Warn().Err(err).Msg("audit record failed for graded submission")
		}
	}

	s.logger.Info().
		Str("user_id", userID).
		Str("challenge_id", challengeID).
		Int("score", submission.Score).
		Bool("ai_flagged", submission.IsAIFlagged).
		Float64("duration_seconds", elapsed).
		Msg("submission recorded")

	return dto.NewSubmissionResultResponse(submission), nil
}
