package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/taskbridge-api/internal/models"
)

// TaskRepository defines persistence operations for tasks and their assignments.
type TaskRepository interface {
	List(ctx context.Context) ([]models.Task, error)
	ListAssignedTo(ctx context.Context, studentID string) ([]models.Task, error)
	ListAssignedDueBetween(ctx context.Context, studentID string, from, to time.Time) ([]models.Task, error)
	GetByID(ctx context.Context, id string) (models.Task, error)
	Create(ctx context.Context, task *models.Task) error
	Update(ctx context.Context, task *models.Task) error
	ReplaceAssignments(ctx context.Context, taskID string, studentIDs []string) error
	Delete(ctx context.Context, id string) error
}

type taskRepository struct {
	db *gorm.DB
}

// NewTaskRepository instantiates a GORM-backed repository.
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &taskRepository{db: db}
}

func (r *taskRepository) baseQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Task{}).Preload("Assignments")
}

func (r *taskRepository) List(ctx context.Context) ([]models.Task, error) {
	var tasks []models.Task
	if err := r.baseQuery(ctx).Order("deadline ASC").Find(&tasks).Error; err != nil {
		return nil, err
	}

	return tasks, nil
}

func (r *taskRepository) ListAssignedTo(ctx context.Context, studentID string) ([]models.Task, error) {
	var tasks []models.Task
	if err := r.baseQuery(ctx).
		Joins("JOIN task_assignments ON task_assignments.task_id = tasks.id").
		Where("task_assignments.student_id = ?", studentID).
		Order("deadline ASC").
		Find(&tasks).Error; err != nil {
		return nil, err
	}

	return tasks, nil
}

func (r *taskRepository) ListAssignedDueBetween(ctx context.Context, studentID string, from, to time.Time) ([]models.Task, error) {
	var tasks []models.Task
	if err := r.baseQuery(ctx).
		Joins("JOIN task_assignments ON task_assignments.task_id = tasks.id").
		Where("task_assignments.student_id = ?", studentID).
		Where("deadline >= ? AND deadline < ?", from, to).
		Order("deadline ASC").
		Find(&tasks).Error; err != nil {
		return nil, err
	}

	return tasks, nil
}

func (r *taskRepository) GetByID(ctx context.Context, id string) (models.Task, error) {
	var task models.Task
	if err := r.baseQuery(ctx).Where("tasks.id = ?", id).First(&task).Error; err != nil {
		return models.Task{}, err
	}

	return task, nil
}

func (r *taskRepository) Create(ctx context.Context, task *models.Task) error {
	return r.db.WithContext(ctx).Create(task).Error
}

func (r *taskRepository) Update(ctx context.Context, task *models.Task) error {
	return r.db.WithContext(ctx).Omit("Assignments").Save(task).Error
}

func (r *taskRepository) ReplaceAssignments(ctx context.Context, taskID string, studentIDs []string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ?", taskID).Delete(&models.TaskAssignment{}).Error; err != nil {
			return err
		}
		for _, studentID := range studentIDs {
			assignment := models.TaskAssignment{TaskID: taskID, StudentID: studentID}
			if err := tx.Create(&assignment).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *taskRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Task{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
