package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/taskbridge-api/internal/dto"
	"github.com/noah-isme/taskbridge-api/internal/models"
	"github.com/noah-isme/taskbridge-api/internal/repository"
)

func newSubmissionService(t *testing.T, db *gorm.DB) (SubmissionService, ProgressService) {
	t.Helper()

	progress := newProgressService(t, db)
	activity := NewActivityService(repository.NewActivityLogRepository(db), zerolog.Nop())
	svc := NewSubmissionService(
		repository.NewSubmissionRepository(db),
		repository.NewTaskRepository(db),
		repository.NewUserRepository(db),
		progress,
		activity,
		newTestValidator(),
		zerolog.Nop(),
	)
	return svc, progress
}

func TestCreateSubmissionUnknownTask(t *testing.T) {
	db := newTestDB(t)
	svc, _ := newSubmissionService(t, db)

	student := createTestUser(t, db, "Ana", "ana@example.com", models.RoleStudent)

	_, err := svc.Create(context.Background(), student.ID, dto.SubmissionCreateRequest{
		TaskID:  "0b7f4a48-2f1e-4f3a-9c58-000000000000",
		Content: "my work",
	})
	require.ErrorIs(t, err, ErrTaskNotFound)
}

func TestCreateSubmissionRequiresAssignment(t *testing.T) {
	db := newTestDB(t)
	svc, _ := newSubmissionService(t, db)
	ctx := context.Background()

	admin := createTestUser(t, db, "Admin", "admin@example.com", models.RoleAdmin)
	assigned := createTestUser(t, db, "Ben", "ben@example.com", models.RoleStudent)
	outsider := createTestUser(t, db, "Cleo", "cleo@example.com", models.RoleStudent)
	task := createTestTask(t, db, admin.ID, day(7), assigned.ID)

	_, err := svc.Create(ctx, outsider.ID, dto.SubmissionCreateRequest{TaskID: task.ID, Content: "x"})
	require.ErrorIs(t, err, ErrTaskAccessDenied)
}

func TestCreateSubmissionRecordsStreakAndLateness(t *testing.T) {
	db := newTestDB(t)
	svc, progress := newSubmissionService(t, db)
	ctx := context.Background()

	admin := createTestUser(t, db, "Admin", "admin@example.com", models.RoleAdmin)
	student := createTestUser(t, db, "Dara", "dara@example.com", models.RoleStudent)
	onTimeTask := createTestTask(t, db, admin.ID, time.Now().UTC().Add(48*time.Hour), student.ID)
	pastTask := createTestTask(t, db, admin.ID, time.Now().UTC().Add(-48*time.Hour), student.ID)

	created, err := svc.Create(ctx, student.ID, dto.SubmissionCreateRequest{TaskID: onTimeTask.ID, Content: "fresh"})
	require.NoError(t, err)
	require.Equal(t, models.SubmissionStatusPending, created.Status)
	require.False(t, created.IsLate)

	late, err := svc.Create(ctx, student.ID, dto.SubmissionCreateRequest{TaskID: pastTask.ID, Content: "overdue"})
	require.NoError(t, err)
	require.True(t, late.IsLate, "a submission past the deadline is permanently late")

	record, err := progress.Get(ctx, student.ID)
	require.NoError(t, err)
	require.NotEmpty(t, record.StreakDates, "handing in work counts as streak activity")
}

func TestCreateSubmissionDuplicateRejected(t *testing.T) {
	db := newTestDB(t)
	svc, _ := newSubmissionService(t, db)
	ctx := context.Background()

	admin := createTestUser(t, db, "Admin", "admin@example.com", models.RoleAdmin)
	student := createTestUser(t, db, "Edo", "edo@example.com", models.RoleStudent)
	task := createTestTask(t, db, admin.ID, day(7), student.ID)

	_, err := svc.Create(ctx, student.ID, dto.SubmissionCreateRequest{TaskID: task.ID, Content: "first"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, student.ID, dto.SubmissionCreateRequest{TaskID: task.ID, Content: "second"})
	require.ErrorIs(t, err, ErrDuplicateSubmission)
}

func TestReviewCountsCompletionExactlyOnce(t *testing.T) {
	db := newTestDB(t)
	svc, progress := newSubmissionService(t, db)
	ctx := context.Background()

	admin := createTestUser(t, db, "Admin", "admin@example.com", models.RoleAdmin)
	student := createTestUser(t, db, "Fay", "fay@example.com", models.RoleStudent)
	task := createTestTask(t, db, admin.ID, day(7), student.ID)

	created, err := svc.Create(ctx, student.ID, dto.SubmissionCreateRequest{TaskID: task.ID, Content: "work"})
	require.NoError(t, err)

	reviewer := Actor{ID: admin.ID, Role: models.RoleAdmin}
	approved := models.SubmissionStatusApproved
	rejected := models.SubmissionStatusRejected
	feedback := "well done"

	_, err = svc.Review(ctx, reviewer, created.ID, dto.SubmissionUpdateRequest{Status: &approved, Feedback: &feedback})
	require.NoError(t, err)

	record, err := progress.Get(ctx, student.ID)
	require.NoError(t, err)
	require.Equal(t, 1, record.CompletedTasks)

	// Re-approving, rejecting, then approving again must leave the counter alone.
	_, err = svc.Review(ctx, reviewer, created.ID, dto.SubmissionUpdateRequest{Status: &approved})
	require.NoError(t, err)
	_, err = svc.Review(ctx, reviewer, created.ID, dto.SubmissionUpdateRequest{Status: &rejected})
	require.NoError(t, err)
	_, err = svc.Review(ctx, reviewer, created.ID, dto.SubmissionUpdateRequest{Status: &approved})
	require.NoError(t, err)

	record, err = progress.Get(ctx, student.ID)
	require.NoError(t, err)
	require.Equal(t, 1, record.CompletedTasks)
}

func TestReviewAwardsOnTimeHero(t *testing.T) {
	db := newTestDB(t)
	svc, progress := newSubmissionService(t, db)
	ctx := context.Background()

	admin := createTestUser(t, db, "Admin", "admin@example.com", models.RoleAdmin)
	student := createTestUser(t, db, "Gia", "gia@example.com", models.RoleStudent)
	reviewer := Actor{ID: admin.ID, Role: models.RoleAdmin}
	approved := models.SubmissionStatusApproved

	for i := 0; i < 10; i++ {
		task := createTestTask(t, db, admin.ID, time.Now().UTC().Add(72*time.Hour), student.ID)
		created, err := svc.Create(ctx, student.ID, dto.SubmissionCreateRequest{TaskID: task.ID, Content: fmt.Sprintf("work %d", i)})
		require.NoError(t, err)
		_, err = svc.Review(ctx, reviewer, created.ID, dto.SubmissionUpdateRequest{Status: &approved})
		require.NoError(t, err)
	}

	record, err := progress.Get(ctx, student.ID)
	require.NoError(t, err)
	require.Equal(t, 10, record.CompletedTasks)
	require.Contains(t, record.Badges, models.BadgeOnTimeHero)
}

// flakyProgress fails ApplyApproval a fixed number of times before
// delegating, imitating a transient storage outage during review.
type flakyProgress struct {
	ProgressService
	failures int
}

func (f *flakyProgress) ApplyApproval(ctx context.Context, studentID string, onTime bool) (models.Progress, error) {
	if f.failures > 0 {
		f.failures--
		return models.Progress{}, errors.New("progress store unavailable")
	}
	return f.ProgressService.ApplyApproval(ctx, studentID, onTime)
}

func TestReviewRetryAfterProgressFailureStillCounts(t *testing.T) {
	db := newTestDB(t)
	progress := &flakyProgress{ProgressService: newProgressService(t, db), failures: 1}
	activity := NewActivityService(repository.NewActivityLogRepository(db), zerolog.Nop())
	svc := NewSubmissionService(
		repository.NewSubmissionRepository(db),
		repository.NewTaskRepository(db),
		repository.NewUserRepository(db),
		progress,
		activity,
		newTestValidator(),
		zerolog.Nop(),
	)
	ctx := context.Background()

	admin := createTestUser(t, db, "Admin", "admin@example.com", models.RoleAdmin)
	student := createTestUser(t, db, "Rey", "rey@example.com", models.RoleStudent)
	task := createTestTask(t, db, admin.ID, day(7), student.ID)

	created, err := svc.Create(ctx, student.ID, dto.SubmissionCreateRequest{TaskID: task.ID, Content: "work"})
	require.NoError(t, err)

	reviewer := Actor{ID: admin.ID, Role: models.RoleAdmin}
	approved := models.SubmissionStatusApproved

	_, err = svc.Review(ctx, reviewer, created.ID, dto.SubmissionUpdateRequest{Status: &approved})
	require.Error(t, err, "the first attempt surfaces the progress failure")

	var stored models.Submission
	require.NoError(t, db.First(&stored, "id = ?", created.ID).Error)
	require.False(t, stored.CompletionCounted, "a failed attempt must not consume the completion")

	_, err = svc.Review(ctx, reviewer, created.ID, dto.SubmissionUpdateRequest{Status: &approved})
	require.NoError(t, err)

	record, err := progress.Get(ctx, student.ID)
	require.NoError(t, err)
	require.Equal(t, 1, record.CompletedTasks, "the retry counts the completion exactly once")

	// Another approval after the successful one stays a no-op.
	_, err = svc.Review(ctx, reviewer, created.ID, dto.SubmissionUpdateRequest{Status: &approved})
	require.NoError(t, err)

	record, err = progress.Get(ctx, student.ID)
	require.NoError(t, err)
	require.Equal(t, 1, record.CompletedTasks)
}

func TestReviewRejectsUnknownStatus(t *testing.T) {
	db := newTestDB(t)
	svc, _ := newSubmissionService(t, db)
	ctx := context.Background()

	admin := createTestUser(t, db, "Admin", "admin@example.com", models.RoleAdmin)
	student := createTestUser(t, db, "Hal", "hal@example.com", models.RoleStudent)
	task := createTestTask(t, db, admin.ID, day(7), student.ID)

	created, err := svc.Create(ctx, student.ID, dto.SubmissionCreateRequest{TaskID: task.ID, Content: "work"})
	require.NoError(t, err)

	bogus := "archived"
	_, err = svc.Review(ctx, Actor{ID: admin.ID, Role: models.RoleAdmin}, created.ID, dto.SubmissionUpdateRequest{Status: &bogus})
	require.Error(t, err)
}

func TestLikeSubmission(t *testing.T) {
	db := newTestDB(t)
	svc, _ := newSubmissionService(t, db)
	ctx := context.Background()

	admin := createTestUser(t, db, "Admin", "admin@example.com", models.RoleAdmin)
	student := createTestUser(t, db, "Ida", "ida@example.com", models.RoleStudent)
	task := createTestTask(t, db, admin.ID, day(7), student.ID)

	created, err := svc.Create(ctx, student.ID, dto.SubmissionCreateRequest{TaskID: task.ID, Content: "work"})
	require.NoError(t, err)

	liked, err := svc.Like(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, 1, liked.Likes)

	liked, err = svc.Like(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, 2, liked.Likes)

	_, err = svc.Like(ctx, "missing-id")
	require.ErrorIs(t, err, ErrSubmissionNotFound)
}

func TestDeleteSubmissionOwnershipAndRevert(t *testing.T) {
	db := newTestDB(t)
	svc, progress := newSubmissionService(t, db)
	ctx := context.Background()

	admin := createTestUser(t, db, "Admin", "admin@example.com", models.RoleAdmin)
	owner := createTestUser(t, db, "Jo", "jo@example.com", models.RoleStudent)
	other := createTestUser(t, db, "Kim", "kim@example.com", models.RoleStudent)
	task := createTestTask(t, db, admin.ID, day(7), owner.ID)

	created, err := svc.Create(ctx, owner.ID, dto.SubmissionCreateRequest{TaskID: task.ID, Content: "work"})
	require.NoError(t, err)

	approved := models.SubmissionStatusApproved
	_, err = svc.Review(ctx, Actor{ID: admin.ID, Role: models.RoleAdmin}, created.ID, dto.SubmissionUpdateRequest{Status: &approved})
	require.NoError(t, err)

	err = svc.Delete(ctx, Actor{ID: other.ID, Role: models.RoleStudent}, created.ID)
	require.ErrorIs(t, err, ErrSubmissionForbidden)

	err = svc.Delete(ctx, Actor{ID: owner.ID, Role: models.RoleStudent}, created.ID)
	require.NoError(t, err)

	record, err := progress.Get(ctx, owner.ID)
	require.NoError(t, err)
	require.Equal(t, 0, record.CompletedTasks, "deleting counted work hands the completion back")
}

func TestAdminDeleteKeepsCompletionCount(t *testing.T) {
	db := newTestDB(t)
	svc, progress := newSubmissionService(t, db)
	ctx := context.Background()

	admin := createTestUser(t, db, "Admin", "admin@example.com", models.RoleAdmin)
	student := createTestUser(t, db, "Pia", "pia@example.com", models.RoleStudent)
	task := createTestTask(t, db, admin.ID, day(7), student.ID)

	created, err := svc.Create(ctx, student.ID, dto.SubmissionCreateRequest{TaskID: task.ID, Content: "work"})
	require.NoError(t, err)

	approved := models.SubmissionStatusApproved
	_, err = svc.Review(ctx, Actor{ID: admin.ID, Role: models.RoleAdmin}, created.ID, dto.SubmissionUpdateRequest{Status: &approved})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, Actor{ID: admin.ID, Role: models.RoleAdmin}, created.ID))

	record, err := progress.Get(ctx, student.ID)
	require.NoError(t, err)
	require.Equal(t, 1, record.CompletedTasks, "only the owner's delete hands a completion back")
}

func TestListSubmissionsScopedByRole(t *testing.T) {
	db := newTestDB(t)
	svc, _ := newSubmissionService(t, db)
	ctx := context.Background()

	admin := createTestUser(t, db, "Admin", "admin@example.com", models.RoleAdmin)
	first := createTestUser(t, db, "Lea", "lea@example.com", models.RoleStudent)
	second := createTestUser(t, db, "Max", "max@example.com", models.RoleStudent)
	task := createTestTask(t, db, admin.ID, day(7), first.ID, second.ID)

	_, err := svc.Create(ctx, first.ID, dto.SubmissionCreateRequest{TaskID: task.ID, Content: "a"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, second.ID, dto.SubmissionCreateRequest{TaskID: task.ID, Content: "b"})
	require.NoError(t, err)

	all, err := svc.List(ctx, Actor{ID: admin.ID, Role: models.RoleAdmin}, nil)
	require.NoError(t, err)
	require.Len(t, all, 2)

	mine, err := svc.List(ctx, Actor{ID: first.ID, Role: models.RoleStudent}, nil)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	require.Equal(t, first.ID, mine[0].StudentID)
}

func TestListByTaskEnrichesStudentIdentity(t *testing.T) {
	db := newTestDB(t)
	svc, _ := newSubmissionService(t, db)
	ctx := context.Background()

	admin := createTestUser(t, db, "Admin", "admin@example.com", models.RoleAdmin)
	student := createTestUser(t, db, "Nia", "nia@example.com", models.RoleStudent)
	task := createTestTask(t, db, admin.ID, day(7), student.ID)

	_, err := svc.Create(ctx, student.ID, dto.SubmissionCreateRequest{TaskID: task.ID, Content: "work"})
	require.NoError(t, err)

	queue, err := svc.ListByTask(ctx, task.ID)
	require.NoError(t, err)
	require.Len(t, queue, 1)
	require.Equal(t, "Nia", queue[0].StudentName)
	require.Equal(t, "nia@example.com", queue[0].StudentEmail)
}
