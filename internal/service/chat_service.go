package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/taskbridge-api/internal/dto"
	"github.com/noah-isme/taskbridge-api/internal/models"
	"github.com/noah-isme/taskbridge-api/internal/observability"
	"github.com/noah-isme/taskbridge-api/internal/repository"
)

const chatSendBufferSize = 32

// Chat service sentinel errors.
var (
	ErrChatNotFound    = errors.New("chat session not found")
	ErrChatForbidden   = errors.New("user is not a participant of this chat")
	ErrMessageNotFound = errors.New("chat message not found")
	ErrEmptyMessage    = errors.New("message content empty after sanitization")
)

// ChatConnectionOptions wraps metadata extracted during the HTTP upgrade.
type ChatConnectionOptions struct {
	UserID        string
	Role          string
	ChatID        string
	CorrelationID string
	Context       context.Context
}

// ChatService manages admin-student chat sessions over REST and websocket.
type ChatService interface {
	OpenSession(ctx context.Context, adminID string, req dto.ChatSessionCreateRequest) (dto.ChatSessionResponse, error)
	ListSessions(ctx context.Context, actor Actor) ([]dto.ChatSessionResponse, error)
	History(ctx context.Context, actor Actor, chatID string) ([]dto.ChatMessageResponse, error)
	Send(ctx context.Context, actor Actor, req dto.ChatSendRequest) (dto.ChatMessageResponse, error)
	DeleteMessage(ctx context.Context, actor Actor, messageID string) error
	Authorize(ctx context.Context, userID, chatID string) error
	ServeConnection(conn *websocket.Conn, opts ChatConnectionOptions)
	Start(ctx context.Context)
}

type chatService struct {
	repo        repository.ChatRepository
	users       repository.UserRepository
	redis       *redis.Client
	redisStream string
	nats        *nats.Conn
	natsSubject string
	validator   *validator.Validate
	logger      zerolog.Logger
	tracer      trace.Tracer
	sanitizer   *bluemonday.Policy
	hub         *chatHub
	nodeID      string
}

// chatHub keeps track of active websocket clients per session.
type chatHub struct {
	mu    sync.RWMutex
	rooms map[string]map[*chatClient]struct{}
	log   zerolog.Logger
}

type chatClient struct {
	conn    *websocket.Conn
	send    chan dto.ChatOutbound
	options ChatConnectionOptions
	service *chatService
	closed  chan struct{}
	once    sync.Once
	baseCtx context.Context
}

// chatEvent is the cross-node fan-out envelope. Source carries the emitting
// node id so a node never re-broadcasts its own events.
type chatEvent struct {
	Source  string           `json:"source"`
	ChatID  string           `json:"chat_id"`
	Payload dto.ChatOutbound `json:"payload"`
	SentAt  time.Time        `json:"sent_at"`
}

// NewChatService creates the chat service instance.
func NewChatService(repo repository.ChatRepository, userRepo repository.UserRepository, redisClient *redis.Client, channelBase string, natsConn *nats.Conn, validate *validator.Validate, logger zerolog.Logger) ChatService {
	sanitizer := bluemonday.UGCPolicy()
	sanitizer.AllowElements("br")

	hub := &chatHub{
		rooms: make(map[string]map[*chatClient]struct{}),
		log:   logger.With().Str("component", "chat_hub").Logger(),
	}

	streamChannel := ""
	natsSubject := ""
	if channelBase != "" {
		streamChannel = channelBase + ":chat"
		natsSubject = strings.ReplaceAll(channelBase, ":", ".") + ".chat"
	}

	return &chatService{
		repo:        repo,
		users:       userRepo,
		redis:       redisClient,
		redisStream: streamChannel,
		nats:        natsConn,
		natsSubject: natsSubject,
		validator:   validate,
		logger:      logger.With().Str("component", "chat_service").Logger(),
		tracer:      otel.Tracer("github.com/noah-isme/taskbridge-api/internal/service/chat"),
		sanitizer:   sanitizer,
		hub:         hub,
		nodeID:      uuid.NewString(),
	}
}

func (s *chatService) Start(ctx context.Context) {
	if s.redis != nil && s.redisStream != "" {
		go s.consumeRedis(ctx)
	}
	if s.nats != nil && s.natsSubject != "" {
		go s.consumeNATS(ctx)
	}
}

// OpenSession returns the session between the admin and the student,
// creating it on first use.
func (s *chatService) OpenSession(ctx context.Context, adminID string, req dto.ChatSessionCreateRequest) (dto.ChatSessionResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.ChatSessionResponse{}, err
	}

	student, err := s.users.GetByID(ctx, req.StudentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ChatSessionResponse{}, ErrUserNotFound
		}
		return dto.ChatSessionResponse{}, err
	}
	if student.Role != models.RoleStudent {
		return dto.ChatSessionResponse{}, ErrUserNotFound
	}

	if session, err := s.repo.GetSessionByPair(ctx, adminID, req.StudentID); err == nil {
		return dto.NewChatSessionResponse(session), nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.ChatSessionResponse{}, err
	}

	session := models.ChatSession{AdminID: adminID, StudentID: req.StudentID}
	if err := s.repo.CreateSession(ctx, &session); err != nil {
		// Lost a race against a concurrent open; the pair index guarantees
		// the existing row is the one to return.
		if existing, getErr := s.repo.GetSessionByPair(ctx, adminID, req.StudentID); getErr == nil {
			return dto.NewChatSessionResponse(existing), nil
		}
		return dto.ChatSessionResponse{}, err
	}

	return dto.NewChatSessionResponse(session), nil
}

func (s *chatService) ListSessions(ctx context.Context, actor Actor) ([]dto.ChatSessionResponse, error) {
	sessions, err := s.repo.ListSessionsForUser(ctx, actor.ID, actor.Role)
	if err != nil {
		return nil, err
	}

	return dto.NewChatSessionResponseSlice(sessions), nil
}

// History returns the visible messages of a session and marks the peer's
// messages as read.
func (s *chatService) History(ctx context.Context, actor Actor, chatID string) ([]dto.ChatMessageResponse, error) {
	if err := s.Authorize(ctx, actor.ID, chatID); err != nil {
		return nil, err
	}

	messages, err := s.repo.ListMessages(ctx, chatID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.MarkRead(ctx, chatID, actor.ID); err != nil {
		s.logger.Warn().Err(err).Str("chat_id", chatID).Msg("failed to mark messages read")
	}

	return dto.NewChatMessageResponseSlice(messages), nil
}

func (s *chatService) Send(ctx context.Context, actor Actor, req dto.ChatSendRequest) (dto.ChatMessageResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.ChatMessageResponse{}, err
	}

	if err := s.Authorize(ctx, actor.ID, req.ChatID); err != nil {
		return dto.ChatMessageResponse{}, err
	}

	clean := strings.TrimSpace(s.sanitizer.Sanitize(req.Content))
	if clean == "" {
		return dto.ChatMessageResponse{}, ErrEmptyMessage
	}

	messageType := req.MessageType
	if messageType == "" {
		messageType = "text"
	}

	spanCtx, span := s.tracer.Start(ctx, "chat.send", trace.WithAttributes(
		attribute.String("chat.id", req.ChatID),
		attribute.String("chat.sender_id", actor.ID),
		attribute.String("chat.type", messageType),
	))
	defer span.End()

	message := models.ChatMessage{
		ChatID:      req.ChatID,
		SenderID:    actor.ID,
		Content:     clean,
		MessageType: messageType,
	}

	if err := s.repo.CreateMessage(spanCtx, &message); err != nil {
		span.RecordError(err)
		return dto.ChatMessageResponse{}, err
	}

	response := dto.NewChatMessageResponse(message)
	outbound := dto.ChatOutbound{Event: "message", Message: &response}

	s.hub.broadcast(req.ChatID, outbound)
	if err := s.publish(spanCtx, req.ChatID, outbound); err != nil {
		s.logger.Warn().Err(err).Msg("failed to publish chat event")
	}

	observability.ChatMessagesSent().WithLabelValues(messageType).Inc()

	return response, nil
}

// DeleteMessage soft-deletes a message. Only its sender or an admin may do so.
func (s *chatService) DeleteMessage(ctx context.Context, actor Actor, messageID string) error {
	message, err := s.repo.GetMessage(ctx, messageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMessageNotFound
		}
		return err
	}

	if message.SenderID != actor.ID && !actor.IsAdmin() {
		return ErrChatForbidden
	}

	if err := s.repo.SoftDeleteMessage(ctx, messageID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMessageNotFound
		}
		return err
	}

	return nil
}

// Authorize confirms the user participates in the session.
func (s *chatService) Authorize(ctx context.Context, userID, chatID string) error {
	session, err := s.repo.GetSession(ctx, chatID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrChatNotFound
		}
		return err
	}

	if !session.IsParticipant(userID) {
		return ErrChatForbidden
	}

	return nil
}

func (s *chatService) ServeConnection(conn *websocket.Conn, opts ChatConnectionOptions) {
	baseCtx := opts.Context
	if baseCtx == nil {
		baseCtx = context.Background()
	}

	client := &chatClient{
		conn:    conn,
		send:    make(chan dto.ChatOutbound, chatSendBufferSize),
		options: opts,
		service: s,
		closed:  make(chan struct{}),
		baseCtx: baseCtx,
	}

	s.hub.register(client)
	observability.ChatConnectionsTotal().Inc()

	go client.writer()
	client.reader()
}

func (s *chatService) publish(ctx context.Context, chatID string, payload dto.ChatOutbound) error {
	event := chatEvent{
		Source:  s.nodeID,
		ChatID:  chatID,
		Payload: payload,
		SentAt:  time.Now().UTC(),
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if s.redis != nil && s.redisStream != "" {
		if err := s.redis.Publish(ctx, s.redisStream, data).Err(); err != nil {
			return err
		}
	}

	if s.nats != nil && s.natsSubject != "" {
		if err := s.nats.Publish(s.natsSubject, data); err != nil {
			return err
		}
	}

	return nil
}

func (s *chatService) consumeRedis(ctx context.Context) {
	pubsub := s.redis.Subscribe(ctx, s.redisStream)
	defer func() {
		_ = pubsub.Close()
	}()
	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			s.logger.Error().Err(err).Msg("chat redis subscription closed")
			return
		}
		s.handleEvent([]byte(msg.Payload))
	}
}

func (s *chatService) consumeNATS(ctx context.Context) {
	sub, err := s.nats.QueueSubscribe(s.natsSubject, "taskbridge-chat", func(msg *nats.Msg) {
		s.handleEvent(msg.Data)
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to subscribe to nats chat subject")
		return
	}
	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to drain chat nats subscription")
		}
	}()
}

func (s *chatService) handleEvent(data []byte) {
	var event chatEvent
	if err := json.Unmarshal(data, &event); err != nil {
		s.logger.Warn().Err(err).Msg("invalid chat event")
		return
	}

	if event.Source == s.nodeID {
		return
	}

	s.hub.broadcast(event.ChatID, event.Payload)
}

func (h *chatHub) register(client *chatClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room := client.options.ChatID
	if _, exists := h.rooms[room]; !exists {
		h.rooms[room] = make(map[*chatClient]struct{})
	}
	h.rooms[room][client] = struct{}{}
	h.log.Debug().Str("chat_id", room).Str("user_id", client.options.UserID).Msg("chat client connected")
}

func (h *chatHub) unregister(client *chatClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room := client.options.ChatID
	if clients, ok := h.rooms[room]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.rooms, room)
		}
	}
	h.log.Debug().Str("chat_id", room).Str("user_id", client.options.UserID).Msg("chat client disconnected")
}

func (h *chatHub) broadcast(chatID string, payload dto.ChatOutbound) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.rooms[chatID] {
		select {
		case client.send <- payload:
		default:
			h.log.Warn().Str("chat_id", chatID).Str("user_id", client.options.UserID).Msg("dropping chat event for slow client")
		}
	}
}

func (c *chatClient) reader() {
	defer c.close()

	actor := Actor{ID: c.options.UserID, Role: c.options.Role}

	for {
		var inbound dto.ChatInbound
		if err := c.conn.ReadJSON(&inbound); err != nil {
			c.service.logger.Debug().Err(err).Msg("chat read loop ended")
			return
		}

		switch inbound.Event {
		case "message":
			_, err := c.service.Send(c.baseCtx, actor, dto.ChatSendRequest{
				ChatID:      c.options.ChatID,
				Content:     inbound.Content,
				MessageType: inbound.MessageType,
			})
			if err != nil {
				c.service.logger.Warn().Err(err).Msg("failed to process chat message")
			}
		case "typing":
			outbound := dto.ChatOutbound{Event: "typing", UserID: c.options.UserID, IsTyping: inbound.IsTyping}
			c.service.hub.broadcast(c.options.ChatID, outbound)
			if err := c.service.publish(c.baseCtx, c.options.ChatID, outbound); err != nil {
				c.service.logger.Warn().Err(err).Msg("failed to publish typing event")
			}
		case "mark_read":
			if err := c.service.repo.MarkRead(c.baseCtx, c.options.ChatID, c.options.UserID); err != nil {
				c.service.logger.Warn().Err(err).Msg("failed to mark messages read")
				continue
			}
			outbound := dto.ChatOutbound{Event: "mark_read", UserID: c.options.UserID}
			c.service.hub.broadcast(c.options.ChatID, outbound)
			if err := c.service.publish(c.baseCtx, c.options.ChatID, outbound); err != nil {
				c.service.logger.Warn().Err(err).Msg("failed to publish read event")
			}
		default:
			c.service.logger.Debug().Str("event", inbound.Event).Msg("ignoring unknown chat event")
		}
	}
}

func (c *chatClient) writer() {
	defer c.close()

	for {
		select {
		case payload, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.WriteJSON(payload); err != nil {
				c.service.logger.Debug().Err(err).Msg("chat write loop terminated")
				return
			}
		case <-time.After(30 * time.Second):
			if err := c.conn.WriteMessage(websocket.PingMessage, []byte("keepalive")); err != nil {
				c.service.logger.Debug().Err(err).Msg("chat ping failed")
				return
			}
		case <-c.closed:
			return
		}
	}
}

func (c *chatClient) close() {
	c.once.Do(func() {
		close(c.closed)
		c.service.hub.unregister(c)
		_ = c.conn.Close()
	})
}
