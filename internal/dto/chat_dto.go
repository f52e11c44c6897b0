package dto

import (
	"time"

	"github.com/noah-isme/taskbridge-api/internal/models"
)

// ChatSessionCreateRequest opens (or returns) the session with a student.
type ChatSessionCreateRequest struct {
	StudentID string `json:"student_id" validate:"required,uuid4"`
}

// ChatSendRequest is the payload for sending a message over REST or websocket.
type ChatSendRequest struct {
	ChatID      string `json:"chat_id" validate:"required,uuid4"`
	Content     string `json:"content" validate:"required"`
	MessageType string `json:"message_type" validate:"omitempty,oneof=text image"`
}

// ChatSessionResponse is the public view of a chat session.
type ChatSessionResponse struct {
	ID        string    `json:"id"`
	AdminID   string    `json:"admin_id"`
	StudentID string    `json:"student_id"`
	CreatedAt time.Time `json:"created_at"`
}

// ChatMessageResponse is the public view of one chat message.
type ChatMessageResponse struct {
	ID          string    `json:"id"`
	ChatID      string    `json:"chat_id"`
	SenderID    string    `json:"sender_id"`
	Content     string    `json:"content"`
	MessageType string    `json:"message_type"`
	IsRead      bool      `json:"is_read"`
	CreatedAt   time.Time `json:"created_at"`
}

// ChatInbound is the envelope read from a websocket client.
type ChatInbound struct {
	Event       string `json:"event" validate:"required,oneof=message typing mark_read"`
	Content     string `json:"content"`
	MessageType string `json:"message_type"`
	IsTyping    bool   `json:"is_typing"`
}

// ChatOutbound is the envelope broadcast to websocket clients in a room.
type ChatOutbound struct {
	Event    string               `json:"event"`
	Message  *ChatMessageResponse `json:"message,omitempty"`
	UserID   string               `json:"user_id,omitempty"`
	IsTyping bool                 `json:"is_typing,omitempty"`
}

// NewChatSessionResponse converts a ChatSession model into a DTO.
func NewChatSessionResponse(model models.ChatSession) ChatSessionResponse {
	return ChatSessionResponse{
		ID:        model.ID,
		AdminID:   model.AdminID,
		StudentID: model.StudentID,
		CreatedAt: model.CreatedAt,
	}
}

// NewChatSessionResponseSlice converts session models into DTOs.
func NewChatSessionResponseSlice(sessions []models.ChatSession) []ChatSessionResponse {
	responses := make([]ChatSessionResponse, 0, len(sessions))
	for _, session := range sessions {
		responses = append(responses, NewChatSessionResponse(session))
	}

	return responses
}

// NewChatMessageResponse converts a ChatMessage model into a DTO.
func NewChatMessageResponse(model models.ChatMessage) ChatMessageResponse {
	return ChatMessageResponse{
		ID:          model.ID,
		ChatID:      model.ChatID,
		SenderID:    model.SenderID,
		Content:     model.Content,
		MessageType: model.MessageType,
		IsRead:      model.IsRead,
		CreatedAt:   model.CreatedAt,
	}
}

// NewChatMessageResponseSlice converts message models into DTOs.
func NewChatMessageResponseSlice(messages []models.ChatMessage) []ChatMessageResponse {
	responses := make([]ChatMessageResponse, 0, len(messages))
	for _, message := range messages {
		responses = append(responses, NewChatMessageResponse(message))
	}

	return responses
}
