package dto

import (
	"time"

	"github.com/noah-isme/taskbridge-api/internal/models"
)

// SubmissionCreateRequest describes the payload for handing in work.
type SubmissionCreateRequest struct {
	TaskID         string `json:"task_id" validate:"required,uuid4"`
	Content        string `json:"content"`
	SubmissionType string `json:"submission_type" validate:"omitempty,oneof=image text video link"`
}

// SubmissionUpdateRequest is used by admins to review a submission.
type SubmissionUpdateRequest struct {
	Status   *string `json:"status" validate:"omitempty,oneof=pending approved rejected"`
	Feedback *string `json:"feedback"`
}

// SubmissionResponse is returned to API clients when viewing submissions.
type SubmissionResponse struct {
	ID             string    `json:"id"`
	TaskID         string    `json:"task_id"`
	StudentID      string    `json:"student_id"`
	Content        string    `json:"content"`
	SubmissionType string    `json:"submission_type"`
	Status         string    `json:"status"`
	Feedback       string    `json:"feedback"`
	AIFeedback     string    `json:"ai_feedback"`
	SubmittedAt    time.Time `json:"submitted_at"`
	IsLate         bool      `json:"is_late"`
	Likes          int       `json:"likes"`
	StudentName    string    `json:"student_name,omitempty"`
	StudentEmail   string    `json:"student_email,omitempty"`
}

// NewSubmissionResponse converts a Submission model into a DTO.
func NewSubmissionResponse(model models.Submission) SubmissionResponse {
	return SubmissionResponse{
		ID:             model.ID,
		TaskID:         model.TaskID,
		StudentID:      model.StudentID,
		Content:        model.Content,
		SubmissionType: model.SubmissionType,
		Status:         model.Status,
		Feedback:       model.Feedback,
		AIFeedback:     model.AIFeedback,
		SubmittedAt:    model.SubmittedAt,
		IsLate:         model.IsLate,
		Likes:          model.Likes,
	}
}

// NewSubmissionResponseSlice converts submission models into DTOs.
func NewSubmissionResponseSlice(submissions []models.Submission) []SubmissionResponse {
	responses := make([]SubmissionResponse, 0, len(submissions))
	for _, submission := range submissions {
		responses = append(responses, NewSubmissionResponse(submission))
	}

	return responses
}
