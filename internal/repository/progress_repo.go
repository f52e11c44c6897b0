package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/noah-isme/taskbridge-api/internal/models"
)

// ProgressRepository provides access to per-student progress records.
type ProgressRepository interface {
	GetByStudent(ctx context.Context, studentID string) (models.Progress, error)
	Ensure(ctx context.Context, studentID string) (models.Progress, error)
	Save(ctx context.Context, progress *models.Progress) error
	ListAll(ctx context.Context) ([]models.Progress, error)
	AddTotalTasks(ctx context.Context, studentIDs []string, delta int) error
	AddCompletedTasks(ctx context.Context, studentID string, delta int) error
}

type progressRepository struct {
	db *gorm.DB
}

// NewProgressRepository constructs a progress repository.
func NewProgressRepository(db *gorm.DB) ProgressRepository {
	return &progressRepository{db: db}
}

func (r *progressRepository) GetByStudent(ctx context.Context, studentID string) (models.Progress, error) {
	var progress models.Progress
	if err := r.db.WithContext(ctx).Where("student_id = ?", studentID).First(&progress).Error; err != nil {
		return models.Progress{}, err
	}

	return progress, nil
}

// Ensure returns the student's progress row, creating a zero-valued one when absent.
func (r *progressRepository) Ensure(ctx context.Context, studentID string) (models.Progress, error) {
	progress, err := r.GetByStudent(ctx, studentID)
	if err == nil {
		return progress, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Progress{}, err
	}

	progress = models.Progress{StudentID: studentID}
	if err := r.db.WithContext(ctx).Create(&progress).Error; err != nil {
		// Lost a race against a concurrent Ensure; the row exists now.
		if existing, getErr := r.GetByStudent(ctx, studentID); getErr == nil {
			return existing, nil
		}
		return models.Progress{}, err
	}

	return progress, nil
}

func (r *progressRepository) Save(ctx context.Context, progress *models.Progress) error {
	return r.db.WithContext(ctx).Save(progress).Error
}

func (r *progressRepository) ListAll(ctx context.Context) ([]models.Progress, error) {
	var records []models.Progress
	if err := r.db.WithContext(ctx).Order("created_at ASC").Find(&records).Error; err != nil {
		return nil, err
	}

	return records, nil
}

// AddTotalTasks bumps the denormalised assignment counter for each student.
func (r *progressRepository) AddTotalTasks(ctx context.Context, studentIDs []string, delta int) error {
	if len(studentIDs) == 0 || delta == 0 {
		return nil
	}

	return r.db.WithContext(ctx).Model(&models.Progress{}).
		Where("student_id IN ?", studentIDs).
		UpdateColumn("total_tasks", gorm.Expr("total_tasks + ?", delta)).Error
}

func (r *progressRepository) AddCompletedTasks(ctx context.Context, studentID string, delta int) error {
	return r.db.WithContext(ctx).Model(&models.Progress{}).
		Where("student_id = ?", studentID).
		UpdateColumn("completed_tasks", gorm.Expr("completed_tasks + ?", delta)).Error
}
