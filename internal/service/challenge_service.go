package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/arena-go-api/internal/dto"
	"github.com/noah-isme/arena-go-api/internal/models"
	"github.com/noah-isme/arena-go-api/internal/repository"
)

// ErrChallengeNotFound indicates the referenced challenge does not exist.
var ErrChallengeNotFound = errors.New("challenge not found")

// ErrNoActiveChallenge indicates no challenge is currently open for
// submissions.
var ErrNoActiveChallenge = errors.New("no active challenge")

// ErrInvalidPayload wraps request rejections that the struct validator cannot
// express, such as content emptied by sanitization.
var ErrInvalidPayload = errors.New("invalid payload")

const defaultChallengeListLimit = 20

// ChallengeAnnouncer pushes publish events to connected participants.
type ChallengeAnnouncer interface {
	AnnouncePublished(ctx context.Context, challenge dto.ChallengeResponse) error
}

// BoardInitializer seeds an empty leaderboard for a new challenge.
type BoardInitializer interface {
	InitChallenge(ctx context.Context, challenge models.Challenge) error
}

// ChallengeService exposes challenge publishing and lookup operations.
// Publish atomically retires the previous arena round.
type ChallengeService interface {
	Publish(ctx context.Context, actorID string, payload dto.PublishChallengeRequest) (dto.ChallengeResponse, error)
	Active(ctx context.Context) (dto.ChallengeResponse, error)
	Get(ctx context.Context, id string) (dto.ChallengeResponse, error)
	List(ctx context.Context, limit int) ([]dto.ChallengeResponse, error)
}

type challengeService struct {
	repo        repository.ChallengeRepository
	board       BoardInitializer
	announcer   ChallengeAnnouncer
	activity    ActivityRecorder
	validator   *validator.Validate
	titlePolicy *bluemonday.Policy
	bodyPolicy  *bluemonday.Policy
	logger      zerolog.Logger
	tracer      trace.Tracer
}

// NewChallengeService constructs the challenge publisher.
func NewChallengeService(
	repo repository.ChallengeRepository,
	board BoardInitializer,
	announcer ChallengeAnnouncer,
	activity ActivityRecorder,
	validate *validator.Validate,
	logger zerolog.Logger,
) ChallengeService {
	bodyPolicy := bluemonday.UGCPolicy()
	bodyPolicy.AllowElements("br")

	return &challengeService{
		repo:        repo,
		board:       board,
		announcer:   announcer,
		activity:    activity,
		validator:   validate,
		titlePolicy: bluemonday.StrictPolicy(),
		bodyPolicy:  bodyPolicy,
		logger:      logger.With().Str("component", "challenge_service").Logger(),
		tracer:      otel.Tracer("github.com/noah-isme/arena-go-api/internal/service/challenge"),
	}
}

// Publish stores a new challenge, deactivating whichever one was live, then
// seeds its leaderboard and announces it. The swap and insert commit together;
// the fan-out steps afterwards never roll it back.
func (s *challengeService) Publish(ctx context.Context, actorID string, payload dto.PublishChallengeRequest) (dto.ChallengeResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ChallengeResponse{}, err
	}

	title := strings.TrimSpace(s.titlePolicy.Sanitize(payload.Title))
	if title == "" {
		return dto.ChallengeResponse{}, fmt.Errorf("%w: title empty after sanitization", ErrInvalidPayload)
	}

	description := strings.TrimSpace(s.bodyPolicy.Sanitize(payload.Description))
	if description == "" {
		return dto.ChallengeResponse{}, fmt.Errorf("%w: description empty after sanitization", ErrInvalidPayload)
	}

	challenge := models.Challenge{
		ID:                uuid.NewString(),
		Title:             title,
		Description:       description,
		Active:            true,
		LeaderboardHandle: uuid.NewString(),
	}

	attrs := []attribute.KeyValue{
		attribute.String("challenge.id", challenge.ID),
		attribute.String("challenge.actor_id", actorID),
	}
	spanCtx, span := s.tracer.Start(ctx, "challenges.publish", trace.WithAttributes(attrs...))
	defer span.End()

	if err := s.repo.Publish(spanCtx, &challenge); err != nil {
		span.RecordError(err)
		return dto.ChallengeResponse{}, err
	}

	response := dto.NewChallengeResponse(challenge)
	response.Languages = SupportedLanguages()

	if s.board != nil {
		if err := s.board.InitChallenge(spanCtx, challenge); err != nil {
			s.logger.Warn().Err(err).Str("challenge_id", challenge.ID).Msg("failed to seed leaderboard for new challenge")
		}
	}

	if s.announcer != nil {
		if err := s.announcer.AnnouncePublished(spanCtx, response); err != nil {
			s.logger.Warn().Err(err).Str("challenge_id", challenge.ID).Msg("failed to announce challenge")
		}
	}

	if s.activity != nil {
		if _, err := s.activity.Record(spanCtx, ActivityEntry{
			ActorID:    actorID,
			Action:     "challenge.published",
			EntityType: "challenge",
			EntityID:   challenge.ID,
			Metadata: map[string]interface{}{
				"title": challenge.Title,
			},
		}); err != nil {
			s.logger.Warn().Err(err).Str("challenge_id", challenge.ID).Msg("failed to record publish activity")
		}
	}

	s.logger.Info().
		Str("challenge_id", challenge.ID).
		Str("actor_id", actorID).
		Msg("challenge published")

	return response, nil
}

// Active returns the challenge currently open for submissions.
func (s *challengeService) Active(ctx context.Context) (dto.ChallengeResponse, error) {
	challenge, err := s.repo.GetActive(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ChallengeResponse{}, ErrNoActiveChallenge
		}
		return dto.ChallengeResponse{}, err
	}

	response := dto.NewChallengeResponse(challenge)
	response.Languages = SupportedLanguages()
	return response, nil
}

func (s *challengeService) Get(ctx context.Context, id string) (dto.ChallengeResponse, error) {
	challenge, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ChallengeResponse{}, ErrChallengeNotFound
		}
		return dto.ChallengeResponse{}, err
	}

	response := dto.NewChallengeResponse(challenge)
	response.Languages = SupportedLanguages()
	return response, nil
}

func (s *challengeService) List(ctx context.Context, limit int) ([]dto.ChallengeResponse, error) {
	if limit <= 0 || limit > 100 {
		limit = defaultChallengeListLimit
	}

	challenges, err := s.repo.List(ctx, limit)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.ChallengeResponse, 0, len(challenges))
	for _, challenge := range challenges {
		responses = append(responses, dto.NewChallengeResponse(challenge))
	}

	return responses, nil
}
