package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/taskbridge-api/internal/models"
)

// ChatRepository persists chat sessions and their messages.
type ChatRepository interface {
	CreateSession(ctx context.Context, session *models.ChatSession) error
	GetSession(ctx context.Context, id string) (models.ChatSession, error)
	GetSessionByPair(ctx context.Context, adminID, studentID string) (models.ChatSession, error)
	ListSessionsForUser(ctx context.Context, userID, role string) ([]models.ChatSession, error)
	CreateMessage(ctx context.Context, message *models.ChatMessage) error
	GetMessage(ctx context.Context, id string) (models.ChatMessage, error)
	ListMessages(ctx context.Context, chatID string) ([]models.ChatMessage, error)
	MarkRead(ctx context.Context, chatID, readerID string) error
	SoftDeleteMessage(ctx context.Context, id string) error
}

type chatRepository struct {
	db *gorm.DB
}

// NewChatRepository constructs a chat repository.
func NewChatRepository(db *gorm.DB) ChatRepository {
	return &chatRepository{db: db}
}

func (r *chatRepository) CreateSession(ctx context.Context, session *models.ChatSession) error {
	return r.db.WithContext(ctx).Create(session).Error
}

func (r *chatRepository) GetSession(ctx context.Context, id string) (models.ChatSession, error) {
	var session models.ChatSession
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&session).Error; err != nil {
		return models.ChatSession{}, err
	}

	return session, nil
}

func (r *chatRepository) GetSessionByPair(ctx context.Context, adminID, studentID string) (models.ChatSession, error) {
	var session models.ChatSession
	if err := r.db.WithContext(ctx).
		Where("admin_id = ?", adminID).
		Where("student_id = ?", studentID).
		First(&session).Error; err != nil {
		return models.ChatSession{}, err
	}

	return session, nil
}

func (r *chatRepository) ListSessionsForUser(ctx context.Context, userID, role string) ([]models.ChatSession, error) {
	query := r.db.WithContext(ctx).Model(&models.ChatSession{})
	if role == models.RoleAdmin {
		query = query.Where("admin_id = ?", userID)
	} else {
		query = query.Where("student_id = ?", userID)
	}

	var sessions []models.ChatSession
	if err := query.Order("created_at DESC").Find(&sessions).Error; err != nil {
		return nil, err
	}

	return sessions, nil
}

func (r *chatRepository) CreateMessage(ctx context.Context, message *models.ChatMessage) error {
	return r.db.WithContext(ctx).Create(message).Error
}

func (r *chatRepository) GetMessage(ctx context.Context, id string) (models.ChatMessage, error) {
	var message models.ChatMessage
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&message).Error; err != nil {
		return models.ChatMessage{}, err
	}

	return message, nil
}

// ListMessages returns the visible messages of a session in send order.
func (r *chatRepository) ListMessages(ctx context.Context, chatID string) ([]models.ChatMessage, error) {
	var messages []models.ChatMessage
	if err := r.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Where("is_deleted = ?", false).
		Order("created_at ASC").
		Find(&messages).Error; err != nil {
		return nil, err
	}

	return messages, nil
}

// MarkRead flags every message not sent by the reader as read.
func (r *chatRepository) MarkRead(ctx context.Context, chatID, readerID string) error {
	return r.db.WithContext(ctx).Model(&models.ChatMessage{}).
		Where("chat_id = ?", chatID).
		Where("sender_id <> ?", readerID).
		Where("is_read = ?", false).
		UpdateColumn("is_read", true).Error
}

func (r *chatRepository) SoftDeleteMessage(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Model(&models.ChatMessage{}).
		Where("id = ?", id).
		UpdateColumn("is_deleted", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
