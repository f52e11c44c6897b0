package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/taskbridge-api/internal/middleware"
	"github.com/noah-isme/taskbridge-api/internal/models"
	"github.com/noah-isme/taskbridge-api/internal/service"
	"github.com/noah-isme/taskbridge-api/internal/utils"
)

// ProgressHandler exposes streak and leaderboard endpoints.
type ProgressHandler struct {
	service service.ProgressService
	logger  zerolog.Logger
}

// NewProgressHandler builds a progress handler instance.
func NewProgressHandler(service service.ProgressService, logger zerolog.Logger) *ProgressHandler {
	return &ProgressHandler{
		service: service,
		logger:  logger.With().Str("component", "progress_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *ProgressHandler) Register(router fiber.Router) {
	adminOnly := middleware.RequireRole(models.RoleAdmin)

	router.Get("/me", middleware.RequireRole(models.RoleStudent), h.me)
	router.Get("/leaderboard", adminOnly, h.leaderboard)
	router.Get("/students/:id", adminOnly, h.byStudent)
}

func (h *ProgressHandler) me(c *fiber.Ctx) error {
	progress, err := h.service.Get(c.UserContext(), userIDFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, fiber.StatusOK, "progress retrieved", progress)
}

func (h *ProgressHandler) byStudent(c *fiber.Ctx) error {
	progress, err := h.service.GetByStudent(c.UserContext(), c.Params("id"))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, fiber.StatusOK, "progress retrieved", progress)
}

func (h *ProgressHandler) leaderboard(c *fiber.Ctx) error {
	entries, err := h.service.Leaderboard(c.UserContext())
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, fiber.StatusOK, "leaderboard retrieved", entries)
}

func (h *ProgressHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrProgressNotFound):
		return utils.SendError(c, fiber.StatusNotFound, err.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("progress request failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
