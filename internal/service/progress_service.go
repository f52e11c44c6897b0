package service

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/taskbridge-api/internal/dto"
	"github.com/noah-isme/taskbridge-api/internal/models"
	"github.com/noah-isme/taskbridge-api/internal/observability"
	"github.com/noah-isme/taskbridge-api/internal/repository"
)

// ErrProgressNotFound indicates no progress record exists for the student.
var ErrProgressNotFound = errors.New("progress not found")

const (
	leaderboardCacheKey = "leaderboard:all"
	bestPerformerRate   = 90.0
	sevenDayStreak      = 7
	onTimeHeroCount     = 10
)

// ProgressService maintains per-student streaks, badges and completion counters.
type ProgressService interface {
	// RecordActivity registers one qualifying activity on the given calendar
	// day. It is idempotent for repeated calls with the same day.
	RecordActivity(ctx context.Context, studentID string, activityDate time.Time) (models.Progress, error)
	// ApplyApproval applies the progress side effects of a submission's first
	// transition into the approved state.
	ApplyApproval(ctx context.Context, studentID string, onTime bool) (models.Progress, error)
	// RevertCompletion undoes one completion increment, used when a student
	// deletes an approved submission.
	RevertCompletion(ctx context.Context, studentID string) error
	Get(ctx context.Context, studentID string) (dto.ProgressResponse, error)
	GetByStudent(ctx context.Context, studentID string) (dto.ProgressResponse, error)
	Leaderboard(ctx context.Context) ([]dto.LeaderboardEntry, error)
}

type progressService struct {
	progress    repository.ProgressRepository
	submissions repository.SubmissionRepository
	users       repository.UserRepository
	cache       *redis.Client
	cacheTTL    time.Duration
	logger      zerolog.Logger
	locks       keyedMutex
	now         func() time.Time
}

// NewProgressService constructs the progress engine.
func NewProgressService(progressRepo repository.ProgressRepository, submissionRepo repository.SubmissionRepository, userRepo repository.UserRepository, cache *redis.Client, cacheTTL time.Duration, logger zerolog.Logger) ProgressService {
	return &progressService{
		progress:    progressRepo,
		submissions: submissionRepo,
		users:       userRepo,
		cache:       cache,
		cacheTTL:    cacheTTL,
		logger:      logger.With().Str("component", "progress_service").Logger(),
		now:         time.Now,
	}
}

// CompletionRate returns completed/total as a percentage, zero when no tasks
// are assigned.
func CompletionRate(completed, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(completed) / float64(total) * 100
}

func (s *progressService) RecordActivity(ctx context.Context, studentID string, activityDate time.Time) (models.Progress, error) {
	// The membership check, streak recompute and write must act as one unit
	// per student, otherwise two same-day calls can double-count the streak.
	unlock := s.locks.lock(studentID)
	defer unlock()

	progress, err := s.progress.Ensure(ctx, studentID)
	if err != nil {
		return models.Progress{}, err
	}

	day := activityDate.UTC().Format(models.StreakDateLayout)
	if progress.HasStreakDate(day) {
		progress.LastActivity = s.now().UTC()
		if err := s.progress.Save(ctx, &progress); err != nil {
			return models.Progress{}, err
		}
		return progress, nil
	}

	progress.StreakDates = append(progress.StreakDates, day)
	progress.CurrentStreak = streakFromDates(progress.StreakDates)
	if progress.CurrentStreak > progress.LongestStreak {
		progress.LongestStreak = progress.CurrentStreak
	}
	progress.LastActivity = s.now().UTC()

	if progress.CurrentStreak >= sevenDayStreak {
		s.award(&progress, models.BadgeSevenDayStreak)
	}

	if err := s.progress.Save(ctx, &progress); err != nil {
		return models.Progress{}, err
	}

	s.logger.Debug().
		Str("student_id", studentID).
		Int("current_streak", progress.CurrentStreak).
		Msg("activity recorded")

	return progress, nil
}

func (s *progressService) ApplyApproval(ctx context.Context, studentID string, onTime bool) (models.Progress, error) {
	unlock := s.locks.lock(studentID)
	defer unlock()

	progress, err := s.progress.Ensure(ctx, studentID)
	if err != nil {
		return models.Progress{}, err
	}

	progress.CompletedTasks++

	if CompletionRate(progress.CompletedTasks, progress.TotalTasks) >= bestPerformerRate {
		s.award(&progress, models.BadgeBestPerformer)
	}

	if onTime {
		count, err := s.submissions.CountApprovedOnTime(ctx, studentID)
		if err != nil {
			return models.Progress{}, err
		}
		if count >= onTimeHeroCount {
			s.award(&progress, models.BadgeOnTimeHero)
		}
	}

	if err := s.progress.Save(ctx, &progress); err != nil {
		return models.Progress{}, err
	}

	return progress, nil
}

func (s *progressService) RevertCompletion(ctx context.Context, studentID string) error {
	unlock := s.locks.lock(studentID)
	defer unlock()

	progress, err := s.progress.Ensure(ctx, studentID)
	if err != nil {
		return err
	}

	if progress.CompletedTasks > 0 {
		progress.CompletedTasks--
	}

	return s.progress.Save(ctx, &progress)
}

// Get returns the caller's own progress, creating a zero record on first read.
func (s *progressService) Get(ctx context.Context, studentID string) (dto.ProgressResponse, error) {
	progress, err := s.progress.Ensure(ctx, studentID)
	if err != nil {
		return dto.ProgressResponse{}, err
	}

	return dto.NewProgressResponse(progress, CompletionRate(progress.CompletedTasks, progress.TotalTasks)), nil
}

// GetByStudent is the admin lookup; an unknown student id is an error here.
func (s *progressService) GetByStudent(ctx context.Context, studentID string) (dto.ProgressResponse, error) {
	progress, err := s.progress.GetByStudent(ctx, studentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ProgressResponse{}, ErrProgressNotFound
		}
		return dto.ProgressResponse{}, err
	}

	return dto.NewProgressResponse(progress, CompletionRate(progress.CompletedTasks, progress.TotalTasks)), nil
}

func (s *progressService) Leaderboard(ctx context.Context) ([]dto.LeaderboardEntry, error) {
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, leaderboardCacheKey).Result(); err == nil {
			var entries []dto.LeaderboardEntry
			if unmarshalErr := json.Unmarshal([]byte(cached), &entries); unmarshalErr == nil {
				return entries, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn().Err(err).Msg("failed to read leaderboard cache")
		}
	}

	records, err := s.progress.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	students, err := s.users.ListByRole(ctx, models.RoleStudent)
	if err != nil {
		return nil, err
	}

	names := make(map[string]string, len(students))
	for _, student := range students {
		names[student.ID] = student.Name
	}

	entries := make([]dto.LeaderboardEntry, 0, len(records))
	for _, record := range records {
		name, known := names[record.StudentID]
		if !known {
			continue
		}
		badges := make([]string, len(record.Badges))
		copy(badges, record.Badges)
		entries = append(entries, dto.LeaderboardEntry{
			StudentID:      record.StudentID,
			Name:           name,
			CompletedTasks: record.CompletedTasks,
			TotalTasks:     record.TotalTasks,
			CompletionRate: CompletionRate(record.CompletedTasks, record.TotalTasks),
			CurrentStreak:  record.CurrentStreak,
			Badges:         badges,
		})
	}

	// Ties keep the order in which records were listed.
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].CompletionRate != entries[j].CompletionRate {
			return entries[i].CompletionRate > entries[j].CompletionRate
		}
		return entries[i].CurrentStreak > entries[j].CurrentStreak
	})

	if s.cache != nil {
		if payload, err := json.Marshal(entries); err == nil {
			if err := s.cache.Set(ctx, leaderboardCacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store leaderboard cache")
			}
		}
	}

	return entries, nil
}

func (s *progressService) award(progress *models.Progress, badge string) {
	if progress.AwardBadge(badge) {
		observability.BadgesAwarded().WithLabelValues(badge).Inc()
		s.logger.Info().
			Str("student_id", progress.StudentID).
			Str("badge", badge).
			Msg("badge awarded")
	}
}

// streakFromDates derives the length of the maximal run of consecutive
// calendar days ending at the most recent recorded date. The whole set is
// re-derived on every call, so inserting a past date yields the same result
// as if the dates had arrived in order.
func streakFromDates(dates []string) int {
	parsed := make([]time.Time, 0, len(dates))
	seen := make(map[string]struct{}, len(dates))
	for _, raw := range dates {
		if _, dup := seen[raw]; dup {
			continue
		}
		seen[raw] = struct{}{}
		day, err := time.ParseInLocation(models.StreakDateLayout, raw, time.UTC)
		if err != nil {
			continue
		}
		parsed = append(parsed, day)
	}

	if len(parsed) == 0 {
		return 0
	}

	sort.Slice(parsed, func(i, j int) bool { return parsed[i].Before(parsed[j]) })

	streak := 1
	for i := len(parsed) - 1; i > 0; i-- {
		if parsed[i].Sub(parsed[i-1]) == 24*time.Hour {
			streak++
			continue
		}
		break
	}

	return streak
}

// keyedMutex serialises progress mutations per student id.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*sync.Mutex)
	}
	lock, ok := k.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		k.locks[key] = lock
	}
	k.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
