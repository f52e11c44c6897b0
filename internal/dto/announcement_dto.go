package dto

import (
	"time"

	"github.com/noah-isme/taskbridge-api/internal/models"
)

// AnnouncementCreateRequest describes the payload for publishing an announcement.
type AnnouncementCreateRequest struct {
	Title   string `json:"title" validate:"required,min=2"`
	Content string `json:"content" validate:"required"`
}

// AnnouncementResponse is the public view of an announcement.
type AnnouncementResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

// NewAnnouncementResponse converts an Announcement model into a DTO.
func NewAnnouncementResponse(model models.Announcement) AnnouncementResponse {
	return AnnouncementResponse{
		ID:        model.ID,
		Title:     model.Title,
		Content:   model.Content,
		CreatedBy: model.CreatedBy,
		CreatedAt: model.CreatedAt,
	}
}

// NewAnnouncementResponseSlice converts announcement models into DTOs.
func NewAnnouncementResponseSlice(announcements []models.Announcement) []AnnouncementResponse {
	responses := make([]AnnouncementResponse, 0, len(announcements))
	for _, announcement := range announcements {
		responses = append(responses, NewAnnouncementResponse(announcement))
	}

	return responses
}
