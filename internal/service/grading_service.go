package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/arena-go-api/pkg/ai"
)

// Participant-facing grading strings. These exact phrases are part of the
// contract: the first replaces feedback when the oracle fails, the second
// when the oracle suspects AI-generated code.
const (
	systemErrorFeedback = "System Error. Please notify the lecturer."
	aiAlertFeedback     = "AI detection alert: code style strongly resembles AI generation."
)

// GradingService turns grader failures into a zero-score verdict so the
// submission pipeline never surfaces the oracle as an error.
type GradingService interface {
	Grade(ctx context.Context, req ai.GradeRequest) ai.Verdict
}

type gradingService struct {
	grader  ai.Grader
	timeout time.Duration
	logger  zerolog.Logger
}

// NewGradingService constructs the degrading wrapper around a grader.
func NewGradingService(grader ai.Grader, timeout time.Duration, logger zerolog.Logger) GradingService {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &gradingService{
		grader:  grader,
		timeout: timeout,
		logger:  logger.With().Str("component", "grading_service").Logger(),
	}
}

// Grade makes exactly one oracle attempt under the configured timeout. Any
// failure degrades to the fallback verdict, which the caller records like
// any other outcome. No locks are held across this call.
func (s *gradingService) Grade(ctx context.Context, req ai.GradeRequest) ai.Verdict {
	if s.grader == nil {
		s.logger.Error().Msg("no grader configured, returning fallback verdict")
		return fallbackVerdict()
	}

	gradeCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	verdict, err := s.grader.Grade(gradeCtx, req)
	if err != nil {
		s.logger.Error().Err(err).Str("challenge_title", req.Title).Msg("grading oracle failed, degrading to fallback verdict")
		return fallbackVerdict()
	}

	return verdict
}

func fallbackVerdict() ai.Verdict {
	return ai.Verdict{
		Score:         0,
		Feedback:      systemErrorFeedback,
		Status:        ai.StatusFail,
		IsAISuspected: false,
	}
}
