package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SubmissionStatus enumerates the review states of a submission.
const (
	SubmissionStatusPending  = "pending"
	SubmissionStatusApproved = "approved"
	SubmissionStatusRejected = "rejected"
)

// ValidSubmissionStatus reports whether the value is a known review state.
func ValidSubmissionStatus(status string) bool {
	switch status {
	case SubmissionStatusPending, SubmissionStatusApproved, SubmissionStatusRejected:
		return true
	default:
		return false
	}
}

// Submission represents work handed in by a student for a task.
// One submission is allowed per (task, student) pair.
type Submission struct {
	ID             string    `gorm:"primaryKey;size:36" json:"id"`
	TaskID         string    `gorm:"size:36;not null;uniqueIndex:idx_submissions_task_student" json:"task_id"`
	StudentID      string    `gorm:"size:36;not null;uniqueIndex:idx_submissions_task_student" json:"student_id"`
	Content        string    `gorm:"type:text" json:"content"`
	SubmissionType string    `gorm:"size:32;default:text" json:"submission_type"`
	Status         string    `gorm:"size:32;not null;default:pending" json:"status"`
	Feedback       string    `gorm:"type:text" json:"feedback"`
	AIFeedback     string    `gorm:"type:text" json:"ai_feedback"`
	SubmittedAt    time.Time `gorm:"not null" json:"submitted_at"`
	IsLate         bool      `gorm:"not null;default:false" json:"is_late"`
	Likes          int       `gorm:"not null;default:0" json:"likes"`
	// CompletionCounted marks that this submission has already contributed
	// one completed task to the student's progress. Re-reviews never reset it.
	CompletionCounted bool `gorm:"not null;default:false" json:"-"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// BeforeCreate assigns a UUID primary key when none was provided.
func (s *Submission) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// IsApproved reports whether the submission passed review.
func (s Submission) IsApproved() bool {
	return s.Status == SubmissionStatusApproved
}

// IsOnTime reports whether the submission arrived before the task deadline.
func (s Submission) IsOnTime() bool {
	return !s.IsLate
}
