package handler

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/arena-go-api/internal/middleware"
	"github.com/noah-isme/arena-go-api/internal/service"
	"github.com/noah-isme/arena-go-api/internal/utils"
)

// LeaderboardHandler exposes board reads and the live websocket stream.
type LeaderboardHandler struct {
	service service.LeaderboardService
	logger  zerolog.Logger
}

// NewLeaderboardHandler constructs the handler.
func NewLeaderboardHandler(service service.LeaderboardService, logger zerolog.Logger) *LeaderboardHandler {
	return &LeaderboardHandler{
		service: service,
		logger:  logger.With().Str("component", "leaderboard_handler").Logger(),
	}
}

// Register wires the global board and the websocket stream.
func (h *LeaderboardHandler) Register(router fiber.Router) {
	router.Get("/global", h.global)

	router.Use("/stream", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			ctx := c.UserContext()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx = middleware.ContextWithCorrelation(ctx, middleware.GetCorrelationID(c))
			c.Locals("request_ctx", ctx)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	router.Get("/stream", websocket.New(h.handleConnection))
}

// RegisterChallengeRoutes attaches the per-challenge board onto the
// challenges group.
func (h *LeaderboardHandler) RegisterChallengeRoutes(router fiber.Router) {
	router.Get("/:id/leaderboard", h.challengeBoard)
}

func (h *LeaderboardHandler) challengeBoard(c *fiber.Ctx) error {
	snapshot, err := h.service.ChallengeBoard(requestContext(c), c.Params("id"))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "leaderboard retrieved", snapshot)
}

func (h *LeaderboardHandler) global(c *fiber.Ctx) error {
	board, err := h.service.GlobalBoard(requestContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "global leaderboard retrieved", board)
}

func (h *LeaderboardHandler) handleConnection(conn *websocket.Conn) {
	handle := strings.TrimSpace(conn.Query("handle"))
	if handle == "" {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(fiber.StatusBadRequest, "handle required"))
		_ = conn.Close()
		return
	}

	correlation := ""
	if value, ok := conn.Locals("correlation_id").(string); ok {
		correlation = value
	}
	baseCtx, _ := conn.Locals("request_ctx").(context.Context)

	opts := service.BoardConnectionOptions{
		Handle:        handle,
		CorrelationID: correlation,
		Context:       baseCtx,
	}

	h.logger.Info().Str("handle", handle).Msg("board websocket connected")
	h.service.ServeConnection(conn, opts)
	h.logger.Info().Str("handle", handle).Msg("board websocket disconnected")
}

func (h *LeaderboardHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrChallengeNotFound):
		return utils.SendErrorCode(c, fiber.StatusNotFound, "challenge_not_found", err.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("leaderboard operation failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
