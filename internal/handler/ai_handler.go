package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/taskbridge-api/internal/dto"
	"github.com/noah-isme/taskbridge-api/internal/service"
	"github.com/noah-isme/taskbridge-api/internal/utils"
)

// AIHandler exposes the assistant endpoints.
type AIHandler struct {
	service service.AssistService
	logger  zerolog.Logger
}

// NewAIHandler builds an AI handler instance.
func NewAIHandler(service service.AssistService, logger zerolog.Logger) *AIHandler {
	return &AIHandler{
		service: service,
		logger:  logger.With().Str("component", "ai_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *AIHandler) Register(router fiber.Router) {
	router.Post("/doubt-solver", h.ask)
	router.Post("/analyze-image", h.critique)
}

func (h *AIHandler) ask(c *fiber.Ctx) error {
	var payload dto.AskRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	answer, err := h.service.Ask(c.UserContext(), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, fiber.StatusOK, "question answered", answer)
}

func (h *AIHandler) critique(c *fiber.Ctx) error {
	var payload dto.CritiqueRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	feedback, err := h.service.Critique(c.UserContext(), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, fiber.StatusOK, "critique generated", feedback)
}

func (h *AIHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrNotAnImage):
		return utils.SendError(c, fiber.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, service.ErrAssistantDisabled):
		return utils.SendError(c, fiber.StatusServiceUnavailable, err.Error())
	case errors.Is(err, service.ErrAssistantUnavailable):
		return utils.SendError(c, fiber.StatusBadGateway, err.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("ai request failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
