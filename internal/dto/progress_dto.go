package dto

import (
	"time"

	"github.com/noah-isme/taskbridge-api/internal/models"
)

// ProgressResponse is the public view of a student's progress record.
type ProgressResponse struct {
	StudentID      string    `json:"student_id"`
	CompletedTasks int       `json:"completed_tasks"`
	TotalTasks     int       `json:"total_tasks"`
	CompletionRate float64   `json:"completion_rate"`
	CurrentStreak  int       `json:"current_streak"`
	LongestStreak  int       `json:"longest_streak"`
	StreakDates    []string  `json:"streak_dates"`
	Badges         []string  `json:"badges"`
	LastActivity   time.Time `json:"last_activity"`
}

// LeaderboardEntry summarises one student for the admin leaderboard.
type LeaderboardEntry struct {
	StudentID      string   `json:"student_id"`
	Name           string   `json:"name"`
	CompletedTasks int      `json:"completed_tasks"`
	TotalTasks     int      `json:"total_tasks"`
	CompletionRate float64  `json:"completion_rate"`
	CurrentStreak  int      `json:"current_streak"`
	Badges         []string `json:"badges"`
}

// NewProgressResponse converts a Progress model into a DTO. The completion
// rate is derived here so every read surface reports the same value.
func NewProgressResponse(model models.Progress, completionRate float64) ProgressResponse {
	dates := make([]string, len(model.StreakDates))
	copy(dates, model.StreakDates)
	badges := make([]string, len(model.Badges))
	copy(badges, model.Badges)

	return ProgressResponse{
		StudentID:      model.StudentID,
		CompletedTasks: model.CompletedTasks,
		TotalTasks:     model.TotalTasks,
		CompletionRate: completionRate,
		CurrentStreak:  model.CurrentStreak,
		LongestStreak:  model.LongestStreak,
		StreakDates:    dates,
		Badges:         badges,
		LastActivity:   model.LastActivity,
	}
}
