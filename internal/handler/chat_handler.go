package handler

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/taskbridge-api/internal/dto"
	"github.com/noah-isme/taskbridge-api/internal/middleware"
	"github.com/noah-isme/taskbridge-api/internal/models"
	"github.com/noah-isme/taskbridge-api/internal/service"
	"github.com/noah-isme/taskbridge-api/internal/utils"
)

// ChatHandler wires chat endpoints including the websocket upgrade.
type ChatHandler struct {
	service service.ChatService
	logger  zerolog.Logger
}

// NewChatHandler creates a chat handler instance.
func NewChatHandler(service service.ChatService, logger zerolog.Logger) *ChatHandler {
	return &ChatHandler{
		service: service,
		logger:  logger.With().Str("component", "chat_handler").Logger(),
	}
}

// Register binds chat routes under the provided router group.
func (h *ChatHandler) Register(router fiber.Router) {
	router.Post("/sessions", middleware.RequireRole(models.RoleAdmin), h.openSession)
	router.Get("/sessions", h.listSessions)
	router.Get("/sessions/:id/messages", h.history)
	router.Post("/messages", h.send)
	router.Delete("/messages/:id", h.removeMessage)

	router.Use("/ws/:id", func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}

		// The membership check must run before the upgrade; afterwards the
		// connection can no longer reply with an HTTP status.
		if err := h.service.Authorize(c.UserContext(), userIDFromContext(c), c.Params("id")); err != nil {
			return h.handleError(c, err)
		}

		ctx := c.UserContext()
		if ctx == nil {
			ctx = context.Background()
		}
		c.Locals("request_ctx", ctx)
		return c.Next()
	})
	router.Get("/ws/:id", websocket.New(h.handleConnection))
}

func (h *ChatHandler) openSession(c *fiber.Ctx) error {
	var payload dto.ChatSessionCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	session, err := h.service.OpenSession(c.UserContext(), userIDFromContext(c), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, fiber.StatusOK, "chat session ready", session)
}

func (h *ChatHandler) listSessions(c *fiber.Ctx) error {
	sessions, err := h.service.ListSessions(c.UserContext(), actorFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, fiber.StatusOK, "chat sessions retrieved", sessions)
}

func (h *ChatHandler) history(c *fiber.Ctx) error {
	messages, err := h.service.History(c.UserContext(), actorFromContext(c), c.Params("id"))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, fiber.StatusOK, "chat history retrieved", messages)
}

func (h *ChatHandler) send(c *fiber.Ctx) error {
	var payload dto.ChatSendRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	message, err := h.service.Send(c.UserContext(), actorFromContext(c), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, fiber.StatusCreated, "message sent", message)
}

func (h *ChatHandler) removeMessage(c *fiber.Ctx) error {
	if err := h.service.DeleteMessage(c.UserContext(), actorFromContext(c), c.Params("id")); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, fiber.StatusOK, "message deleted", nil)
}

func (h *ChatHandler) handleConnection(conn *websocket.Conn) {
	userID, _ := conn.Locals("user_id").(string)
	role, _ := conn.Locals("user_role").(string)
	correlation, _ := conn.Locals("correlation_id").(string)
	baseCtx, _ := conn.Locals("request_ctx").(context.Context)
	chatID := conn.Params("id")

	opts := service.ChatConnectionOptions{
		UserID:        userID,
		Role:          role,
		ChatID:        chatID,
		CorrelationID: correlation,
		Context:       baseCtx,
	}

	h.logger.Info().Str("user_id", userID).Str("chat_id", chatID).Msg("chat websocket connected")
	h.service.ServeConnection(conn, opts)
	h.logger.Info().Str("user_id", userID).Str("chat_id", chatID).Msg("chat websocket disconnected")
}

func (h *ChatHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrChatNotFound), errors.Is(err, service.ErrMessageNotFound), errors.Is(err, service.ErrUserNotFound):
		return utils.SendError(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrChatForbidden):
		return utils.SendError(c, fiber.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrEmptyMessage):
		return utils.SendError(c, fiber.StatusUnprocessableEntity, err.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("chat request failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
