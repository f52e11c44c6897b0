package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Task represents a piece of work an administrator assigns to students.
type Task struct {
	ID             string           `gorm:"primaryKey;size:36" json:"id"`
	Title          string           `gorm:"size:255;not null" json:"title"`
	Description    string           `gorm:"type:text" json:"description"`
	Difficulty     string           `gorm:"size:32" json:"difficulty"`
	SubmissionType string           `gorm:"size:32" json:"submission_type"`
	Deadline       time.Time        `gorm:"not null;index" json:"deadline"`
	CreatedBy      string           `gorm:"size:36;not null" json:"created_by"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
	Assignments    []TaskAssignment `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

// TaskAssignment links a task to one assigned student.
type TaskAssignment struct {
	TaskID    string    `gorm:"primaryKey;size:36" json:"task_id"`
	StudentID string    `gorm:"primaryKey;size:36;index" json:"student_id"`
	CreatedAt time.Time `json:"created_at"`
}

// BeforeCreate assigns a UUID primary key when none was provided.
func (t *Task) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

// AssignedTo returns the ids of all students assigned to the task.
func (t Task) AssignedTo() []string {
	ids := make([]string, 0, len(t.Assignments))
	for _, assignment := range t.Assignments {
		ids = append(ids, assignment.StudentID)
	}
	return ids
}

// IsAssignedTo reports whether the given student appears in the assignment set.
func (t Task) IsAssignedTo(studentID string) bool {
	for _, assignment := range t.Assignments {
		if assignment.StudentID == studentID {
			return true
		}
	}
	return false
}

// IsPastDue returns true when the deadline has already passed.
func (t Task) IsPastDue(reference time.Time) bool {
	return reference.After(t.Deadline)
}
