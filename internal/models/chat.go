package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ChatSession pairs one administrator with one student. A pair has at most
// one session; re-creating it returns the existing row.
type ChatSession struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	AdminID   string    `gorm:"size:36;not null;uniqueIndex:idx_chat_sessions_pair" json:"admin_id"`
	StudentID string    `gorm:"size:36;not null;uniqueIndex:idx_chat_sessions_pair" json:"student_id"`
	CreatedAt time.Time `json:"created_at"`
}

// BeforeCreate assigns a UUID primary key when none was provided.
func (s *ChatSession) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// IsParticipant reports whether the user belongs to the session.
func (s ChatSession) IsParticipant(userID string) bool {
	return s.AdminID == userID || s.StudentID == userID
}

// ChatMessage is a single message persisted for a chat session. Deleted
// messages are soft-deleted so history queries can skip them.
type ChatMessage struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	ChatID      string    `gorm:"size:36;not null;index" json:"chat_id"`
	SenderID    string    `gorm:"size:36;not null;index" json:"sender_id"`
	Content     string    `gorm:"type:text;not null" json:"content"`
	MessageType string    `gorm:"size:32;not null;default:text" json:"message_type"`
	IsRead      bool      `gorm:"not null;default:false" json:"is_read"`
	IsDeleted   bool      `gorm:"not null;default:false" json:"is_deleted"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
}

// BeforeCreate assigns a UUID primary key when none was provided.
func (m *ChatMessage) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}
