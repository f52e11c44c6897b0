package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/taskbridge-api/internal/models"
	"github.com/noah-isme/taskbridge-api/internal/repository"
)

func newProgressService(t *testing.T, db *gorm.DB) ProgressService {
	t.Helper()
	return NewProgressService(
		repository.NewProgressRepository(db),
		repository.NewSubmissionRepository(db),
		repository.NewUserRepository(db),
		nil,
		time.Minute,
		zerolog.Nop(),
	)
}

func TestRecordActivityConsecutiveDays(t *testing.T) {
	db := newTestDB(t)
	svc := newProgressService(t, db)
	ctx := context.Background()

	student := createTestUser(t, db, "Ana", "ana@example.com", models.RoleStudent)

	for offset := 0; offset < 3; offset++ {
		_, err := svc.RecordActivity(ctx, student.ID, day(offset))
		require.NoError(t, err)
	}

	progress, err := svc.Get(ctx, student.ID)
	require.NoError(t, err)
	require.Equal(t, 3, progress.CurrentStreak)
	require.Equal(t, 3, progress.LongestStreak)
	require.Len(t, progress.StreakDates, 3)
}

func TestRecordActivityGapResetsStreak(t *testing.T) {
	db := newTestDB(t)
	svc := newProgressService(t, db)
	ctx := context.Background()

	student := createTestUser(t, db, "Ben", "ben@example.com", models.RoleStudent)

	_, err := svc.RecordActivity(ctx, student.ID, day(0))
	require.NoError(t, err)
	_, err = svc.RecordActivity(ctx, student.ID, day(1))
	require.NoError(t, err)
	progress, err := svc.RecordActivity(ctx, student.ID, day(3))
	require.NoError(t, err)

	require.Equal(t, 1, progress.CurrentStreak, "a missed day starts a fresh run")
	require.Equal(t, 2, progress.LongestStreak)
}

func TestRecordActivitySameDayIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	svc := newProgressService(t, db)
	ctx := context.Background()

	student := createTestUser(t, db, "Cleo", "cleo@example.com", models.RoleStudent)

	first, err := svc.RecordActivity(ctx, student.ID, day(0))
	require.NoError(t, err)
	second, err := svc.RecordActivity(ctx, student.ID, day(0).Add(4*time.Hour))
	require.NoError(t, err)

	require.Equal(t, first.CurrentStreak, second.CurrentStreak)
	require.Equal(t, len(first.StreakDates), len(second.StreakDates))
	require.ElementsMatch(t, first.Badges, second.Badges)
}

func TestRecordActivityBackfilledDateJoinsRuns(t *testing.T) {
	db := newTestDB(t)
	svc := newProgressService(t, db)
	ctx := context.Background()

	student := createTestUser(t, db, "Dara", "dara@example.com", models.RoleStudent)

	_, err := svc.RecordActivity(ctx, student.ID, day(0))
	require.NoError(t, err)
	_, err = svc.RecordActivity(ctx, student.ID, day(2))
	require.NoError(t, err)
	progress, err := svc.RecordActivity(ctx, student.ID, day(1))
	require.NoError(t, err)

	require.Equal(t, 3, progress.CurrentStreak, "filling the gap merges both runs")
	require.Equal(t, 3, progress.LongestStreak)
}

func TestRecordActivitySevenDayBadgeAwardedOnce(t *testing.T) {
	db := newTestDB(t)
	svc := newProgressService(t, db)
	ctx := context.Background()

	student := createTestUser(t, db, "Edo", "edo@example.com", models.RoleStudent)

	var progress models.Progress
	var err error
	for offset := 0; offset < 8; offset++ {
		progress, err = svc.RecordActivity(ctx, student.ID, day(offset))
		require.NoError(t, err)
	}

	require.Equal(t, 8, progress.CurrentStreak)

	count := 0
	for _, badge := range progress.Badges {
		if badge == models.BadgeSevenDayStreak {
			count++
		}
	}
	require.Equal(t, 1, count, "badge must not be duplicated past day seven")
}

func TestRecordActivityConcurrentSameDay(t *testing.T) {
	db := newTestDB(t)
	svc := newProgressService(t, db)
	ctx := context.Background()

	student := createTestUser(t, db, "Fay", "fay@example.com", models.RoleStudent)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.RecordActivity(ctx, student.ID, day(0))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	progress, err := svc.Get(ctx, student.ID)
	require.NoError(t, err)
	require.Len(t, progress.StreakDates, 1)
	require.Equal(t, 1, progress.CurrentStreak)
}

func TestCompletionRate(t *testing.T) {
	require.Equal(t, float64(0), CompletionRate(0, 0), "no assigned tasks must not divide by zero")
	require.Equal(t, float64(0), CompletionRate(3, 0))
	require.Equal(t, float64(75), CompletionRate(3, 4))
	require.Equal(t, float64(100), CompletionRate(5, 5))
}

func TestApplyApprovalAwardsBestPerformer(t *testing.T) {
	db := newTestDB(t)
	svc := newProgressService(t, db)
	ctx := context.Background()

	student := createTestUser(t, db, "Gia", "gia@example.com", models.RoleStudent)

	seed := models.Progress{StudentID: student.ID, CompletedTasks: 8, TotalTasks: 10}
	require.NoError(t, db.Create(&seed).Error)

	progress, err := svc.ApplyApproval(ctx, student.ID, false)
	require.NoError(t, err)
	require.Equal(t, 9, progress.CompletedTasks)
	require.True(t, progress.HasBadge(models.BadgeBestPerformer))
}

func TestRevertCompletionNeverGoesNegative(t *testing.T) {
	db := newTestDB(t)
	svc := newProgressService(t, db)
	ctx := context.Background()

	student := createTestUser(t, db, "Hal", "hal@example.com", models.RoleStudent)

	require.NoError(t, svc.RevertCompletion(ctx, student.ID))

	progress, err := svc.Get(ctx, student.ID)
	require.NoError(t, err)
	require.Equal(t, 0, progress.CompletedTasks)
}

func TestGetByStudentUnknownStudent(t *testing.T) {
	db := newTestDB(t)
	svc := newProgressService(t, db)

	_, err := svc.GetByStudent(context.Background(), "missing-id")
	require.ErrorIs(t, err, ErrProgressNotFound)
}

func TestLeaderboardOrderingAndCaching(t *testing.T) {
	db := newTestDB(t)
	cache := newTestRedis(t)
	svc := NewProgressService(
		repository.NewProgressRepository(db),
		repository.NewSubmissionRepository(db),
		repository.NewUserRepository(db),
		cache,
		time.Minute,
		zerolog.Nop(),
	)
	ctx := context.Background()

	alice := createTestUser(t, db, "Alice", "alice@example.com", models.RoleStudent)
	bob := createTestUser(t, db, "Bob", "bob@example.com", models.RoleStudent)
	carol := createTestUser(t, db, "Carol", "carol@example.com", models.RoleStudent)

	require.NoError(t, db.Create(&models.Progress{StudentID: alice.ID, CompletedTasks: 3, TotalTasks: 4, CurrentStreak: 2}).Error)
	require.NoError(t, db.Create(&models.Progress{StudentID: bob.ID, CompletedTasks: 9, TotalTasks: 10, CurrentStreak: 1}).Error)
	require.NoError(t, db.Create(&models.Progress{StudentID: carol.ID, CompletedTasks: 3, TotalTasks: 4, CurrentStreak: 5}).Error)

	entries, err := svc.Leaderboard(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	require.Equal(t, bob.ID, entries[0].StudentID, "highest completion rate first")
	require.Equal(t, carol.ID, entries[1].StudentID, "streak breaks the completion tie")
	require.Equal(t, alice.ID, entries[2].StudentID)

	// A write after the first read must not show up until the TTL expires.
	require.NoError(t, db.Model(&models.Progress{}).
		Where("student_id = ?", alice.ID).
		UpdateColumn("completed_tasks", 4).Error)

	cached, err := svc.Leaderboard(ctx)
	require.NoError(t, err)
	require.Equal(t, entries, cached)
}

func TestLeaderboardSkipsUnknownStudents(t *testing.T) {
	db := newTestDB(t)
	svc := newProgressService(t, db)

	require.NoError(t, db.Create(&models.Progress{StudentID: "ghost", CompletedTasks: 1, TotalTasks: 1}).Error)

	entries, err := svc.Leaderboard(context.Background())
	require.NoError(t, err)
	require.Empty(t, entries)
}
