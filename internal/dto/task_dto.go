package dto

import (
	"time"

	"github.com/noah-isme/taskbridge-api/internal/models"
)

// TaskCreateRequest describes the payload for creating a task.
type TaskCreateRequest struct {
	Title          string    `json:"title" validate:"required,min=2"`
	Description    string    `json:"description"`
	Difficulty     string    `json:"difficulty" validate:"omitempty,oneof=Easy Medium Hard"`
	SubmissionType string    `json:"submission_type" validate:"omitempty,oneof=image text video link"`
	Deadline       time.Time `json:"deadline" validate:"required"`
	AssignedTo     []string  `json:"assigned_to"`
}

// TaskUpdateRequest carries the mutable task fields.
type TaskUpdateRequest struct {
	Title          *string    `json:"title" validate:"omitempty,min=2"`
	Description    *string    `json:"description"`
	Difficulty     *string    `json:"difficulty" validate:"omitempty,oneof=Easy Medium Hard"`
	SubmissionType *string    `json:"submission_type" validate:"omitempty,oneof=image text video link"`
	Deadline       *time.Time `json:"deadline"`
	AssignedTo     []string   `json:"assigned_to"`
}

// TaskResponse is returned to API clients when viewing tasks.
type TaskResponse struct {
	ID             string              `json:"id"`
	Title          string              `json:"title"`
	Description    string              `json:"description"`
	Difficulty     string              `json:"difficulty"`
	SubmissionType string              `json:"submission_type"`
	Deadline       time.Time           `json:"deadline"`
	AssignedTo     []string            `json:"assigned_to"`
	CreatedBy      string              `json:"created_by"`
	CreatedAt      time.Time           `json:"created_at"`
	Submission     *SubmissionResponse `json:"submission,omitempty"`
}

// NewTaskResponse converts a Task model into a DTO.
func NewTaskResponse(model models.Task) TaskResponse {
	return TaskResponse{
		ID:             model.ID,
		Title:          model.Title,
		Description:    model.Description,
		Difficulty:     model.Difficulty,
		SubmissionType: model.SubmissionType,
		Deadline:       model.Deadline,
		AssignedTo:     model.AssignedTo(),
		CreatedBy:      model.CreatedBy,
		CreatedAt:      model.CreatedAt,
	}
}

// NewTaskResponseSlice converts task models into DTOs.
func NewTaskResponseSlice(tasks []models.Task) []TaskResponse {
	responses := make([]TaskResponse, 0, len(tasks))
	for _, task := range tasks {
		responses = append(responses, NewTaskResponse(task))
	}

	return responses
}
