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

// SubmissionHandler manages the attempt and submission endpoints.
type SubmissionHandler struct {
	service   service.SubmissionService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewSubmissionHandler constructs the handler.
func NewSubmissionHandler(service service.SubmissionService, validator *validator.Validate, logger zerolog.Logger) *SubmissionHandler {
	return &SubmissionHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "submission_handler").Logger(),
	}
}

// Register attaches attempt and submit routes onto the challenges group.
func (h *SubmissionHandler) Register(router fiber.Router) {
	router.Post("/:id/attempt", h.attempt)
	router.Post("/:id/submit", h.submit)
}

func (h *SubmissionHandler) attempt(c *fiber.Ctx) error {
	var payload dto.AttemptRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendErrorCode(c, fiber.StatusBadRequest, "validation", "invalid request body")
	}

	userID := userIDFromContext(c)
	if userID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	response, err := h.service.SelectLanguage(requestContext(c), userID, c.Params("id"), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "attempt started", response)
}

func (h *SubmissionHandler) submit(c *fiber.Ctx) error {
	var payload dto.SubmissionRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendErrorCode(c, fiber.StatusBadRequest, "validation", "invalid request body")
	}

	userID := userIDFromContext(c)
	if userID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	response, err := h.service.Submit(requestContext(c), userID, c.Params("id"), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "submission graded", response)
}

func (h *SubmissionHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrUnsupportedLanguage):
		return utils.SendErrorCode(c, fiber.StatusBadRequest, "unsupported_language", "language not supported")
	case errors.Is(err, service.ErrChallengeNotFound):
		return utils.SendErrorCode(c, fiber.StatusNotFound, "challenge_not_found", err.Error())
	case errors.Is(err, service.ErrChallengeClosed):
		return utils.SendErrorCode(c, fiber.StatusGone, "challenge_closed", err.Error())
	case errors.Is(err, service.ErrTooFast):
		return utils.SendErrorCode(c, fiber.StatusUnprocessableEntity, "too_fast", err.Error())
	case errors.Is(err, service.ErrContentRejected):
		return utils.SendErrorCode(c, fiber.StatusUnprocessableEntity, "content_rejected", err.Error())
	case errors.Is(err, service.ErrAlreadySubmitted):
		return utils.SendErrorCode(c, fiber.StatusConflict, "already_submitted", err.Error())
	case errors.As(err, &validationErrors):
		return utils.SendErrorCode(c, fiber.StatusBadRequest, "validation", validationErrors.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("submission operation failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
