package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/habitbot/habitbot/internal/domain"
	"github.com/habitbot/habitbot/internal/errs"
	"github.com/habitbot/habitbot/internal/observability"
)

type HabitLogRepository interface {
	// Create inserts a log for (habitID, date) and adjusts the habit's streak
	// counters in the same transaction. A second log for the same day fails
	// with errs.ErrAlreadyExists and leaves the counters untouched.
	Create(ctx context.Context, habitID uint, date time.Time, completed bool) (*domain.HabitLog, error)
	ListByHabit(ctx context.Context, habitID uint) ([]domain.HabitLog, error)
}

type GormHabitLogRepository struct{ db *gorm.DB }

func NewHabitLogRepository(db *gorm.DB) HabitLogRepository { return &GormHabitLogRepository{db: db} }

func (r *GormHabitLogRepository) Create(ctx context.Context, habitID uint, date time.Time, completed bool) (*domain.HabitLog, error) {
	day := domain.Day(date)
	log := &domain.HabitLog{HabitID: habitID, LogDate: day, Completed: completed}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var habit domain.Habit
		if err := tx.First(&habit, habitID).Error; err != nil {
			return err
		}
		if err := tx.Create(log).Error; err != nil {
			return err
		}
		updates := map[string]any{}
		if completed {
			updates["current_streak"] = habit.CurrentStreak + 1
			updates["total_completed"] = habit.TotalCompleted + 1
			if habit.CurrentStreak == 0 {
				updates["last_streak_start"] = day
			}
		} else {
			updates["current_streak"] = 0
		}
		return tx.Model(&domain.Habit{}).Where("id = ?", habitID).Updates(updates).Error
	})
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			observability.RecordRepositoryOperation(ctx, "habit_log", "create", "not_found")
			return nil, errs.ErrNotFound
		case isUniqueViolation(err):
			observability.RecordRepositoryOperation(ctx, "habit_log", "create", "conflict")
			return nil, errs.ErrAlreadyExists
		default:
			observability.RecordRepositoryOperation(ctx, "habit_log", "create", "error")
			return nil, err
		}
	}
	observability.RecordRepositoryOperation(ctx, "habit_log", "create", "success")
	return log, nil
}

func (r *GormHabitLogRepository) ListByHabit(ctx context.Context, habitID uint) ([]domain.HabitLog, error) {
	var logs []domain.HabitLog
	err := r.db.WithContext(ctx).Where("habit_id = ?", habitID).Order("log_date").Find(&logs).Error
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "habit_log", "list_by_habit", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "habit_log", "list_by_habit", "success")
	return logs, nil
}
