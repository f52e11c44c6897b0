package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Badge names awarded by the progress engine. Badges are append-only and
// never revoked once earned.
const (
	BadgeSevenDayStreak = "7-Day Streak"
	BadgeBestPerformer  = "Best Performer"
	BadgeOnTimeHero     = "On-Time Hero"
)

// StreakDateLayout is the calendar-date format stored in StreakDates.
const StreakDateLayout = "2006-01-02"

// Progress tracks one student's completion counters, streak and badges.
// Exactly one row exists per student.
type Progress struct {
	ID             string                       `gorm:"primaryKey;size:36" json:"id"`
	StudentID      string                       `gorm:"size:36;uniqueIndex;not null" json:"student_id"`
	CompletedTasks int                          `gorm:"not null;default:0" json:"completed_tasks"`
	TotalTasks     int                          `gorm:"not null;default:0" json:"total_tasks"`
	CurrentStreak  int                          `gorm:"not null;default:0" json:"current_streak"`
	LongestStreak  int                          `gorm:"not null;default:0" json:"longest_streak"`
	StreakDates    datatypes.JSONSlice[string]  `json:"streak_dates"`
	Badges         datatypes.JSONSlice[string]  `json:"badges"`
	LastActivity   time.Time                    `json:"last_activity"`
	CreatedAt      time.Time                    `json:"created_at"`
	UpdatedAt      time.Time                    `json:"updated_at"`
}

// BeforeCreate assigns a UUID primary key when none was provided.
func (p *Progress) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// HasStreakDate reports whether the calendar date is already recorded.
func (p Progress) HasStreakDate(date string) bool {
	for _, recorded := range p.StreakDates {
		if recorded == date {
			return true
		}
	}
	return false
}

// HasBadge reports whether the badge has already been earned.
func (p Progress) HasBadge(name string) bool {
	for _, badge := range p.Badges {
		if badge == name {
			return true
		}
	}
	return false
}

// AwardBadge adds the badge when absent and reports whether it was added.
func (p *Progress) AwardBadge(name string) bool {
	if p.HasBadge(name) {
		return false
	}
	p.Badges = append(p.Badges, name)
	return true
}
