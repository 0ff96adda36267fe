package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/arena-go-api/internal/dto"
	"github.com/noah-isme/arena-go-api/internal/service"
	"github.com/noah-isme/arena-go-api/internal/utils"
)

// ChallengeHandler exposes challenge lookup endpoints and the role-gated
// publish endpoint.
type ChallengeHandler struct {
	service   service.ChallengeService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewChallengeHandler constructs the handler.
func NewChallengeHandler(service service.ChallengeService, validator *validator.Validate, logger zerolog.Logger) *ChallengeHandler {
	return &ChallengeHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "challenge_handler").Logger(),
	}
}

// Register wires the participant-facing challenge routes.
func (h *ChallengeHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Get("/active", h.active)
	router.Get("/:id", h.get)
}

// RegisterAdmin wires the publish endpoint. The router group is expected to
// carry the lecturer role gate.
func (h *ChallengeHandler) RegisterAdmin(router fiber.Router) {
	router.Post("", h.publish)
}

func (h *ChallengeHandler) publish(c *fiber.Ctx) error {
	var payload dto.PublishChallengeRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendErrorCode(c, fiber.StatusBadRequest, "validation", "invalid request body")
	}

	actorID := userIDFromContext(c)
	if actorID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	response, err := h.service.Publish(requestContext(c), actorID, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "challenge published", response)
}

func (h *ChallengeHandler) active(c *fiber.Ctx) error {
	response, err := h.service.Active(requestContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "active challenge", response)
}

func (h *ChallengeHandler) get(c *fiber.Ctx) error {
	response, err := h.service.Get(requestContext(c), c.Params("id"))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "challenge retrieved", response)
}

func (h *ChallengeHandler) list(c *fiber.Ctx) error {
	limit, err := parseQueryInt(c, "limit")
	if err != nil {
		return utils.SendErrorCode(c, fiber.StatusBadRequest, "validation", "invalid limit")
	}

	responses, err := h.service.List(requestContext(c), limit)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "challenges retrieved", responses)
}

func (h *ChallengeHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrChallengeNotFound):
		return utils.SendErrorCode(c, fiber.StatusNotFound, "challenge_not_found", err.Error())
	case errors.Is(err, service.ErrNoActiveChallenge):
		return utils.SendErrorCode(c, fiber.StatusNotFound, "no_active_challenge", err.Error())
	case errors.Is(err, service.ErrInvalidPayload):
		return utils.SendErrorCode(c, fiber.StatusBadRequest, "validation", err.Error())
	case errors.As(err, &validationErrors):
		return utils.SendErrorCode(c, fiber.StatusBadRequest, "validation", validationErrors.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("challenge operation failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
