package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/taskbridge-api/internal/dto"
	"github.com/noah-isme/taskbridge-api/internal/middleware"
	"github.com/noah-isme/taskbridge-api/internal/models"
	"github.com/noah-isme/taskbridge-api/internal/service"
	"github.com/noah-isme/taskbridge-api/internal/utils"
)

// TaskHandler manages task endpoints for admins and students.
type TaskHandler struct {
	tasks       service.TaskService
	submissions service.SubmissionService
	logger      zerolog.Logger
}

// NewTaskHandler builds a task handler instance.
func NewTaskHandler(tasks service.TaskService, submissions service.SubmissionService, logger zerolog.Logger) *TaskHandler {
	return &TaskHandler{
		tasks:       tasks,
		submissions: submissions,
		logger:      logger.With().Str("component", "task_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *TaskHandler) Register(router fiber.Router) {
	adminOnly := middleware.RequireRole(models.RoleAdmin)

	router.Get("", h.list)
	router.Get("/today", h.today)
	router.Get("/:id", h.get)
	router.Get("/:id/submissions", adminOnly, h.listSubmissions)
	router.Post("", adminOnly, h.create)
	router.Put("/:id", adminOnly, h.update)
	router.Delete("/:id", adminOnly, h.remove)
}

func (h *TaskHandler) list(c *fiber.Ctx) error {
	tasks, err := h.tasks.List(c.UserContext(), actorFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, fiber.StatusOK, "tasks retrieved", tasks)
}

func (h *TaskHandler) today(c *fiber.Ctx) error {
	tasks, err := h.tasks.Today(c.UserContext(), userIDFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, fiber.StatusOK, "tasks due today retrieved", tasks)
}

func (h *TaskHandler) get(c *fiber.Ctx) error {
	task, err := h.tasks.Get(c.UserContext(), actorFromContext(c), c.Params("id"))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, fiber.StatusOK, "task retrieved", task)
}

func (h *TaskHandler) listSubmissions(c *fiber.Ctx) error {
	submissions, err := h.submissions.ListByTask(c.UserContext(), c.Params("id"))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, fiber.StatusOK, "submissions retrieved", submissions)
}

func (h *TaskHandler) create(c *fiber.Ctx) error {
	var payload dto.TaskCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	task, err := h.tasks.Create(c.UserContext(), actorFromContext(c), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, fiber.StatusCreated, "task created", task)
}

func (h *TaskHandler) update(c *fiber.Ctx) error {
	var payload dto.TaskUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	task, err := h.tasks.Update(c.UserContext(), actorFromContext(c), c.Params("id"), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, fiber.StatusOK, "task updated", task)
}

func (h *TaskHandler) remove(c *fiber.Ctx) error {
	if err := h.tasks.Delete(c.UserContext(), actorFromContext(c), c.Params("id")); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, fiber.StatusOK, "task deleted", nil)
}

func (h *TaskHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrTaskNotFound):
		return utils.SendError(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrTaskAccessDenied):
		return utils.SendError(c, fiber.StatusForbidden, err.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("task request failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
