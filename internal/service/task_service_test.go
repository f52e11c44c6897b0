package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/taskbridge-api/internal/dto"
	"github.com/noah-isme/taskbridge-api/internal/models"
	"github.com/noah-isme/taskbridge-api/internal/repository"
)

func newTaskService(t *testing.T, db *gorm.DB) TaskService {
	t.Helper()

	activity := NewActivityService(repository.NewActivityLogRepository(db), zerolog.Nop())
	return NewTaskService(
		repository.NewTaskRepository(db),
		repository.NewSubmissionRepository(db),
		repository.NewProgressRepository(db),
		activity,
		newTestValidator(),
		zerolog.Nop(),
	)
}

func TestCreateTaskBumpsAssignedTotals(t *testing.T) {
	db := newTestDB(t)
	svc := newTaskService(t, db)
	ctx := context.Background()

	admin := createTestUser(t, db, "Admin", "admin@example.com", models.RoleAdmin)
	ana := createTestUser(t, db, "Ana", "ana@example.com", models.RoleStudent)
	ben := createTestUser(t, db, "Ben", "ben@example.com", models.RoleStudent)

	task, err := svc.Create(ctx, Actor{ID: admin.ID, Role: models.RoleAdmin}, dto.TaskCreateRequest{
		Title:      "Line studies",
		Difficulty: "Medium",
		Deadline:   day(5),
		AssignedTo: []string{ana.ID, ben.ID},
	})
	require.NoError(t, err)
	require.ElementsMatch(t, []string{ana.ID, ben.ID}, task.AssignedTo)

	for _, studentID := range []string{ana.ID, ben.ID} {
		var progress models.Progress
		require.NoError(t, db.Where("student_id = ?", studentID).First(&progress).Error)
		require.Equal(t, 1, progress.TotalTasks)
	}
}

func TestUpdateTaskReassignmentAdjustsTotals(t *testing.T) {
	db := newTestDB(t)
	svc := newTaskService(t, db)
	ctx := context.Background()

	admin := createTestUser(t, db, "Admin", "admin@example.com", models.RoleAdmin)
	ana := createTestUser(t, db, "Ana", "ana@example.com", models.RoleStudent)
	ben := createTestUser(t, db, "Ben", "ben@example.com", models.RoleStudent)
	actor := Actor{ID: admin.ID, Role: models.RoleAdmin}

	task, err := svc.Create(ctx, actor, dto.TaskCreateRequest{
		Title:      "Perspective drill",
		Deadline:   day(5),
		AssignedTo: []string{ana.ID},
	})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, actor, task.ID, dto.TaskUpdateRequest{AssignedTo: []string{ben.ID}})
	require.NoError(t, err)
	require.Equal(t, []string{ben.ID}, updated.AssignedTo)

	var anaProgress, benProgress models.Progress
	require.NoError(t, db.Where("student_id = ?", ana.ID).First(&anaProgress).Error)
	require.NoError(t, db.Where("student_id = ?", ben.ID).First(&benProgress).Error)
	require.Equal(t, 0, anaProgress.TotalTasks, "removed students give the slot back")
	require.Equal(t, 1, benProgress.TotalTasks)
}

func TestGetTaskEnforcesMembership(t *testing.T) {
	db := newTestDB(t)
	svc := newTaskService(t, db)
	ctx := context.Background()

	admin := createTestUser(t, db, "Admin", "admin@example.com", models.RoleAdmin)
	assigned := createTestUser(t, db, "Cleo", "cleo@example.com", models.RoleStudent)
	outsider := createTestUser(t, db, "Dara", "dara@example.com", models.RoleStudent)
	task := createTestTask(t, db, admin.ID, day(5), assigned.ID)

	_, err := svc.Get(ctx, Actor{ID: outsider.ID, Role: models.RoleStudent}, task.ID)
	require.ErrorIs(t, err, ErrTaskAccessDenied)

	view, err := svc.Get(ctx, Actor{ID: assigned.ID, Role: models.RoleStudent}, task.ID)
	require.NoError(t, err)
	require.Equal(t, task.ID, view.ID)

	_, err = svc.Get(ctx, Actor{ID: assigned.ID, Role: models.RoleStudent}, "missing-id")
	require.ErrorIs(t, err, ErrTaskNotFound)
}

func TestListAttachesOwnSubmission(t *testing.T) {
	db := newTestDB(t)
	svc := newTaskService(t, db)
	ctx := context.Background()

	admin := createTestUser(t, db, "Admin", "admin@example.com", models.RoleAdmin)
	student := createTestUser(t, db, "Edo", "edo@example.com", models.RoleStudent)
	task := createTestTask(t, db, admin.ID, day(5), student.ID)

	submission := models.Submission{TaskID: task.ID, StudentID: student.ID, Content: "done", SubmittedAt: time.Now().UTC()}
	require.NoError(t, db.Create(&submission).Error)

	tasks, err := svc.List(ctx, Actor{ID: student.ID, Role: models.RoleStudent})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	require.NotNil(t, tasks[0].Submission)
	require.Equal(t, submission.ID, tasks[0].Submission.ID)
}

func TestTodayFiltersByDeadlineWindow(t *testing.T) {
	db := newTestDB(t)
	svc := newTaskService(t, db)
	ctx := context.Background()

	admin := createTestUser(t, db, "Admin", "admin@example.com", models.RoleAdmin)
	student := createTestUser(t, db, "Fay", "fay@example.com", models.RoleStudent)

	now := time.Now().UTC()
	dueToday := createTestTask(t, db, admin.ID, time.Date(now.Year(), now.Month(), now.Day(), 18, 0, 0, 0, time.UTC), student.ID)
	createTestTask(t, db, admin.ID, now.AddDate(0, 0, 3), student.ID)

	tasks, err := svc.Today(ctx, student.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	require.Equal(t, dueToday.ID, tasks[0].ID)
}

func TestDeleteTaskReleasesTotals(t *testing.T) {
	db := newTestDB(t)
	svc := newTaskService(t, db)
	ctx := context.Background()

	admin := createTestUser(t, db, "Admin", "admin@example.com", models.RoleAdmin)
	student := createTestUser(t, db, "Gia", "gia@example.com", models.RoleStudent)
	actor := Actor{ID: admin.ID, Role: models.RoleAdmin}

	task, err := svc.Create(ctx, actor, dto.TaskCreateRequest{
		Title:      "Color theory",
		Deadline:   day(5),
		AssignedTo: []string{student.ID},
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, actor, task.ID))

	var progress models.Progress
	require.NoError(t, db.Where("student_id = ?", student.ID).First(&progress).Error)
	require.Equal(t, 0, progress.TotalTasks)

	require.ErrorIs(t, svc.Delete(ctx, actor, task.ID), ErrTaskNotFound)
}
