package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"

	"github.com/noah-isme/arena-go-api/internal/dto"
	"github.com/noah-isme/arena-go-api/internal/models"
	"github.com/noah-isme/arena-go-api/internal/observability"
	"github.com/noah-isme/arena-go-api/internal/repository"
)

const (
	boardSize           = 50
	boardSendBufferSize = 8
	boardSnapshotTTL    = 24 * time.Hour
)

// Medals awarded on the per-challenge podium. Ranks four through ten share
// the finalist medal, everyone below competes on rank alone.
const (
	medalGold     = "gold"
	medalSilver   = "silver"
	medalBronze   = "bronze"
	medalFinalist = "finalist"
	medalChampion = "champion"
)

// BoardConnectionOptions wraps metadata extracted during the websocket upgrade.
type BoardConnectionOptions struct {
	Handle        string
	CorrelationID string
	Context       context.Context
}

// LeaderboardService recomputes, caches and streams challenge leaderboards.
// RefreshChallenge is the hook the submission pipeline calls after each
// recorded verdict.
type LeaderboardService interface {
	ChallengeBoard(ctx context.Context, challengeID string) (dto.LeaderboardSnapshot, error)
	GlobalBoard(ctx context.Context) (dto.GlobalLeaderboardResponse, error)
	RefreshChallenge(ctx context.Context, challengeID string) error
	InitChallenge(ctx context.Context, challenge models.Challenge) error
	ServeConnection(conn *websocket.Conn, opts BoardConnectionOptions)
	Start(ctx context.Context)
}

type leaderboardService struct {
	submissions repository.SubmissionRepository
	challenges  repository.ChallengeRepository
	scores      repository.ScoreRepository
	redis       *redis.Client
	redisStream string
	redisCache  string
	nats        *nats.Conn
	natsSubject string
	flight      singleflight.Group
	logger      zerolog.Logger
	tracer      trace.Tracer
	hub         *boardHub
	nodeID      string
}

// boardHub tracks websocket subscribers per leaderboard handle.
type boardHub struct {
	mu    sync.RWMutex
	rooms map[string]map[*boardClient]struct{}
	log   zerolog.Logger
}

type boardClient struct {
	conn    *websocket.Conn
	send    chan dto.LeaderboardSnapshot
	options BoardConnectionOptions
	service *leaderboardService
	closed  chan struct{}
	once    sync.Once
	baseCtx context.Context
}

type boardEvent struct {
	Source   string                  `json:"source"`
	Snapshot dto.LeaderboardSnapshot `json:"snapshot"`
	SentAt   time.Time               `json:"sent_at"`
}

// NewLeaderboardService creates the leaderboard ranker and its fan-out hub.
func NewLeaderboardService(
	submissions repository.SubmissionRepository,
	challenges repository.ChallengeRepository,
	scores repository.ScoreRepository,
	redisClient *redis.Client,
	channelBase string,
	natsConn *nats.Conn,
	logger zerolog.Logger,
) LeaderboardService {
	hub := &boardHub{
		rooms: make(map[string]map[*boardClient]struct{}),
		log:   logger.With().Str("component", "board_hub").Logger(),
	}

	streamChannel := ""
	cachePrefix := ""
	natsSubject := ""
	if channelBase != "" {
		streamChannel = channelBase + ":board"
		cachePrefix = channelBase + ":board:snapshot"
		natsSubject = strings.ReplaceAll(channelBase, ":", ".") + ".board"
	}

	return &leaderboardService{
		submissions: submissions,
		challenges:  challenges,
		scores:      scores,
		redis:       redisClient,
		redisStream: streamChannel,
		redisCache:  cachePrefix,
		nats:        natsConn,
		natsSubject: natsSubject,
		logger:      logger.With().Str("component", "leaderboard_service").Logger(),
		tracer:      otel.Tracer("github.com/noah-isme/arena-go-api/internal/service/leaderboard"),
		hub:         hub,
		nodeID:      uuid.NewString(),
	}
}

func (s *leaderboardService) Start(ctx context.Context) {
	if s.redis != nil && s.redisStream != "" {
		go s.consumeRedis(ctx)
	}
	if s.nats != nil && s.natsSubject != "" {
		go s.consumeNATS(ctx)
	}
}

// ChallengeBoard returns the current snapshot for a challenge, serving the
// cached copy when one exists and recomputing otherwise.
func (s *leaderboardService) ChallengeBoard(ctx context.Context, challengeID string) (dto.LeaderboardSnapshot, error) {
	challenge, err := s.challenges.GetByID(ctx, challengeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.LeaderboardSnapshot{}, ErrChallengeNotFound
		}
		return dto.LeaderboardSnapshot{}, err
	}

	if cached := s.fetchSnapshot(ctx, challenge.LeaderboardHandle); cached != nil {
		return *cached, nil
	}

	snapshot, err := s.compute(ctx, challenge)
	if err != nil {
		return dto.LeaderboardSnapshot{}, err
	}

	s.cacheSnapshot(ctx, snapshot)
	return snapshot, nil
}

// GlobalBoard ranks accumulated user scores on demand. Concurrent callers
// share a single recompute.
func (s *leaderboardService) GlobalBoard(ctx context.Context) (dto.GlobalLeaderboardResponse, error) {
	result, err, _ := s.flight.Do("global", func() (interface{}, error) {
		spanCtx, span := s.tracer.Start(ctx, "board.global")
		defer span.End()

		totals, err := s.scores.Top(spanCtx, boardSize)
		if err != nil {
			span.RecordError(err)
			return dto.GlobalLeaderboardResponse{}, err
		}

		entries := make([]dto.GlobalLeaderboardEntry, 0, len(totals))
		for i, total := range totals {
			rank := i + 1
			entries = append(entries, dto.GlobalLeaderboardEntry{
				Rank:   rank,
				Medal:  globalMedalForRank(rank),
				UserID: total.UserID,
				Score:  total.Score,
			})
		}

		return dto.GlobalLeaderboardResponse{
			Entries:   entries,
			UpdatedAt: time.Now().UTC(),
		}, nil
	})
	if err != nil {
		return dto.GlobalLeaderboardResponse{}, err
	}

	return result.(dto.GlobalLeaderboardResponse), nil
}

// RefreshChallenge recomputes the full board for a challenge, refreshes the
// cached snapshot and pushes the result to every subscriber on every node.
func (s *leaderboardService) RefreshChallenge(ctx context.Context, challengeID string) error {
	attrs := []attribute.KeyValue{attribute.String("challenge.id", challengeID)}
	spanCtx, span := s.tracer.Start(ctx, "board.refresh", trace.WithAttributes(attrs...))
	defer span.End()

	challenge, err := s.challenges.GetByID(spanCtx, challengeID)
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrChallengeNotFound
		}
		return err
	}

	snapshot, err := s.compute(spanCtx, challenge)
	if err != nil {
		span.RecordError(err)
		return err
	}

	s.cacheSnapshot(spanCtx, snapshot)
	s.broadcast(snapshot)
	if err := s.publish(spanCtx, snapshot); err != nil {
		s.logger.Warn().Err(err).Str("challenge_id", challengeID).Msg("failed to publish board event")
	}

	return nil
}

// InitChallenge seeds and announces an empty board for a freshly published
// challenge so subscribers switch handles immediately.
func (s *leaderboardService) InitChallenge(ctx context.Context, challenge models.Challenge) error {
	snapshot := dto.LeaderboardSnapshot{
		ChallengeID: challenge.ID,
		Title:       challenge.Title,
		Handle:      challenge.LeaderboardHandle,
		Entries:     []dto.LeaderboardEntry{},
		UpdatedAt:   time.Now().UTC(),
	}

	s.cacheSnapshot(ctx, snapshot)
	s.broadcast(snapshot)
	if err := s.publish(ctx, snapshot); err != nil {
		s.logger.Warn().Err(err).Str("challenge_id", challenge.ID).Msg("failed to publish initial board event")
	}

	return nil
}

func (s *leaderboardService) ServeConnection(conn *websocket.Conn, opts BoardConnectionOptions) {
	baseCtx := opts.Context
	if baseCtx == nil {
		baseCtx = context.Background()
	}

	client := &boardClient{
		conn:    conn,
		send:    make(chan dto.LeaderboardSnapshot, boardSendBufferSize),
		options: opts,
		service: s,
		closed:  make(chan struct{}),
		baseCtx: baseCtx,
	}

	s.hub.register(client)
	observability.BoardClientsActive().Inc()

	if snapshot := s.fetchSnapshot(baseCtx, opts.Handle); snapshot != nil {
		select {
		case client.send <- *snapshot:
		default:
			s.logger.Debug().Str("handle", opts.Handle).Msg("dropping cached snapshot for slow subscriber")
		}
	}

	go client.writer()
	client.reader()
}

func (s *leaderboardService) compute(ctx context.Context, challenge models.Challenge) (dto.LeaderboardSnapshot, error) {
	submissions, err := s.submissions.ListByChallenge(ctx, challenge.ID)
	if err != nil {
		return dto.LeaderboardSnapshot{}, err
	}

	return dto.LeaderboardSnapshot{
		ChallengeID:      challenge.ID,
		Title:            challenge.Title,
		Handle:           challenge.LeaderboardHandle,
		TotalSubmissions: len(submissions),
		Entries:          rankSubmissions(submissions),
		UpdatedAt:        time.Now().UTC(),
	}, nil
}

// rankSubmissions orders every recorded submission by score descending with
// duration ascending as the tiebreak, then awards medals to the top of the
// truncated board.
func rankSubmissions(submissions []models.Submission) []dto.LeaderboardEntry {
	ranked := make([]models.Submission, len(submissions))
	copy(ranked, submissions)

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].DurationSeconds < ranked[j].DurationSeconds
	})

	if len(ranked) > boardSize {
		ranked = ranked[:boardSize]
	}

	entries := make([]dto.LeaderboardEntry, 0, len(ranked))
	for i, submission := range ranked {
		rank := i + 1
		entries = append(entries, dto.LeaderboardEntry{
			Rank:            rank,
			Medal:           medalForRank(rank),
			UserID:          submission.UserID,
			Score:           submission.Score,
			DurationSeconds: submission.DurationSeconds,
			Language:        submission.Language,
			SubmittedAt:     submission.CreatedAt,
		})
	}

	return entries
}

func medalForRank(rank int) string {
	switch {
	case rank == 1:
		return medalGold
	case rank == 2:
		return medalSilver
	case rank == 3:
		return medalBronze
	case rank <= 10:
		return medalFinalist
	default:
		return ""
	}
}

func globalMedalForRank(rank int) string {
	switch rank {
	case 1:
		return medalChampion
	case 2:
		return medalSilver
	case 3:
		return medalBronze
	default:
		return ""
	}
}

func (s *leaderboardService) cacheSnapshot(ctx context.Context, snapshot dto.LeaderboardSnapshot) {
	if s.redis == nil || s.redisCache == "" || snapshot.Handle == "" {
		return
	}

	payload, err := json.Marshal(snapshot)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to marshal board snapshot for cache")
		return
	}

	key := fmt.Sprintf("%s:%s", s.redisCache, snapshot.Handle)
	if err := s.redis.Set(ctx, key, payload, boardSnapshotTTL).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to cache board snapshot")
	}
}

func (s *leaderboardService) fetchSnapshot(ctx context.Context, handle string) *dto.LeaderboardSnapshot {
	if s.redis == nil || s.redisCache == "" || handle == "" {
		return nil
	}

	key := fmt.Sprintf("%s:%s", s.redisCache, handle)
	result, err := s.redis.Get(ctx, key).Result()
	if err != nil {
		return nil
	}

	var snapshot dto.LeaderboardSnapshot
	if err := json.Unmarshal([]byte(result), &snapshot); err != nil {
		s.logger.Warn().Err(err).Msg("failed to unmarshal cached board snapshot")
		return nil
	}

	return &snapshot
}

func (s *leaderboardService) broadcast(snapshot dto.LeaderboardSnapshot) {
	s.hub.broadcast(snapshot.Handle, snapshot)
	observability.BoardPushesTotal().WithLabelValues("local").Inc()
}

func (s *leaderboardService) publish(ctx context.Context, snapshot dto.LeaderboardSnapshot) error {
	event := boardEvent{
		Source:   s.nodeID,
		Snapshot: snapshot,
		SentAt:   time.Now().UTC(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if s.redis != nil && s.redisStream != "" {
		if err := s.redis.Publish(ctx, s.redisStream, payload).Err(); err != nil {
			return err
		}
	}

	if s.nats != nil && s.natsSubject != "" {
		if err := s.nats.Publish(s.natsSubject, payload); err != nil {
			return err
		}
	}

	return nil
}

func (s *leaderboardService) consumeRedis(ctx context.Context) {
	pubsub := s.redis.Subscribe(ctx, s.redisStream)
	defer func() { _ = pubsub.Close() }()

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			s.logger.Error().Err(err).Msg("board redis subscription closed")
			return
		}
		s.handleEvent([]byte(msg.Payload))
	}
}

func (s *leaderboardService) consumeNATS(ctx context.Context) {
	sub, err := s.nats.QueueSubscribe(s.natsSubject, "arena-board", func(msg *nats.Msg) {
		s.handleEvent(msg.Data)
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to subscribe to nats board subject")
		return
	}

	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to drain board nats subscription")
		}
	}()
}

func (s *leaderboardService) handleEvent(payload []byte) {
	var event boardEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		s.logger.Warn().Err(err).Msg("invalid board event payload")
		return
	}

	if event.Source == s.nodeID {
		return
	}

	s.hub.broadcast(event.Snapshot.Handle, event.Snapshot)
	observability.BoardPushesTotal().WithLabelValues("peer").Inc()
}

func (h *boardHub) register(client *boardClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	handle := client.options.Handle
	if _, exists := h.rooms[handle]; !exists {
		h.rooms[handle] = make(map[*boardClient]struct{})
	}
	h.rooms[handle][client] = struct{}{}
	h.log.Debug().Str("handle", handle).Msg("board subscriber connected")
}

func (h *boardHub) unregister(client *boardClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	handle := client.options.Handle
	if clients, ok := h.rooms[handle]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.rooms, handle)
		}
	}
	h.log.Debug().Str("handle", handle).Msg("board subscriber disconnected")
}

func (h *boardHub) broadcast(handle string, snapshot dto.LeaderboardSnapshot) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients := h.rooms[handle]
	for client := range clients {
		select {
		case client.send <- snapshot:
		default:
			h.log.Warn().Str("handle", handle).Msg("dropping board snapshot for slow subscriber")
		}
	}
}

// reader drains inbound frames. Subscribers never send payloads; the loop
// exists to notice the peer closing the socket.
func (c *boardClient) reader() {
	defer c.close()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			c.service.logger.Debug().Err(err).Msg("board read loop ended")
			return
		}
	}
}

func (c *boardClient) writer() {
	defer c.close()

	for {
		select {
		case snapshot, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.WriteJSON(snapshot); err != nil {
				c.service.logger.Debug().Err(err).Msg("board write loop terminated")
				return
			}
		case <-time.After(30 * time.Second):
			if err := c.conn.WriteMessage(websocket.PingMessage, []byte("keepalive")); err != nil {
				c.service.logger.Debug().Err(err).Msg("board ping failed")
				return
			}
		case <-c.closed:
			return
		}
	}
}

func (c *boardClient) close() {
	c.once.Do(func() {
		close(c.closed)
		c.service.hub.unregister(c)
		observability.BoardClientsActive().Dec()
		_ = c.conn.Close()
	})
}
