package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/arena-go-api/internal/dto"
)

type challengeEvent struct {
	Source    string                `json:"source"`
	Challenge dto.ChallengeResponse `json:"challenge"`
	SentAt    time.Time             `json:"sent_at"`
}

// brokerAnnouncer fans publish events out over redis and NATS so every node
// can tell its participants a new round started.
type brokerAnnouncer struct {
	redis       *redis.Client
	redisStream string
	nats        *nats.Conn
	natsSubject string
	logger      zerolog.Logger
	nodeID      string
}

// NewChallengeAnnouncer constructs the broker-backed announcer. Either broker
// may be nil; announcing becomes a no-op when both are.
func NewChallengeAnnouncer(redisClient *redis.Client, channelBase string, natsConn *nats.Conn, logger zerolog.Logger) ChallengeAnnouncer {
	streamChannel := ""
	natsSubject := ""
	if channelBase != "" {
		streamChannel = channelBase + ":challenges"
		natsSubject = strings.ReplaceAll(channelBase, ":", ".") + ".challenges"
	}

	return &brokerAnnouncer{
		redis:       redisClient,
		redisStream: streamChannel,
		nats:        natsConn,
		natsSubject: natsSubject,
		logger:      logger.With().Str("component", "challenge_announcer").Logger(),
		nodeID:      uuid.NewString(),
	}
}

func (a *brokerAnnouncer) AnnouncePublished(ctx context.Context, challenge dto.ChallengeResponse) error {
	event := challengeEvent{
		Source:    a.nodeID,
		Challenge: challenge,
		SentAt:    time.Now().UTC(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if a.redis != nil && a.redisStream != "" {
		if err := a.redis.Publish(ctx, a.redisStream, payload).Err(); err != nil {
			return err
		}
	}

	if a.nats != nil && a.natsSubject != "" {
		if err := a.nats.Publish(a.natsSubject, payload); err != nil {
			return err
		}
	}

	a.logger.Debug().Str("challenge_id", challenge.ID).Msg("challenge publish announced")
	return nil
}
