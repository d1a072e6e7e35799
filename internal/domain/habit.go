package domain

import "time"

// Habit tracks one habit for one user. Streak counters are maintained by the
// habit-log repository: a completed log bumps them, a missed day resets the
// current streak.
type Habit struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	UserID          uint       `gorm:"index;not null" json:"user_id"`
	Name            string     `gorm:"size:255;not null" json:"name"`
	Description     string     `gorm:"size:1024" json:"description"`
	TargetDays      int        `gorm:"not null;default:21" json:"target_days"`
	StreakDays      int        `gorm:"not null;default:21" json:"streak_days"`
	StartDate       time.Time  `gorm:"not null" json:"start_date"`
	LastStreakStart *time.Time `json:"last_streak_start,omitempty"`
	CurrentStreak   int        `gorm:"default:0" json:"current_streak"`
	TotalCompleted  int        `gorm:"default:0" json:"total_completed"`
	IsTracked       bool       `gorm:"default:false" json:"is_tracked"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// HabitLog records whether a habit was completed on a given date. At most one
// log may exist per (habit, date).
type HabitLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	HabitID   uint      `gorm:"not null;uniqueIndex:idx_habit_log_day" json:"habit_id"`
	LogDate   time.Time `gorm:"not null;uniqueIndex:idx_habit_log_day" json:"log_date"`
	Completed bool      `gorm:"not null" json:"completed"`
	CreatedAt time.Time `json:"created_at"`
}

// Day truncates t to a UTC calendar date, the canonical form for log dates.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
