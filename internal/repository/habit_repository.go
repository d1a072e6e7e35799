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

// HabitUpdate carries a partial update; nil fields are left untouched.
type HabitUpdate struct {
	Name        *string
	Description *string
	TargetDays  *int
	StreakDays  *int
	StartDate   *time.Time
	IsTracked   *bool
}

// ReminderTarget pairs a tracked, not-yet-logged habit with the chat it
// belongs to.
type ReminderTarget struct {
	ChatID    int64
	HabitName string
}

type HabitRepository interface {
	Get(ctx context.Context, habitID uint) (*domain.Habit, error)
	ListByUser(ctx context.Context, userID uint) ([]domain.Habit, error)
	// ListUnlogged returns the user's tracked habits with no log for asOf.
	ListUnlogged(ctx context.Context, userID uint, asOf time.Time) ([]domain.Habit, error)
	Create(ctx context.Context, habit *domain.Habit) error
	Update(ctx context.Context, habitID uint, upd HabitUpdate) (*domain.Habit, error)
	Delete(ctx context.Context, habitID uint) error
	// ListReminderTargets returns every tracked habit across all users that
	// has no log for asOf, joined with the owner's chat identity.
	ListReminderTargets(ctx context.Context, asOf time.Time) ([]ReminderTarget, error)
}

type GormHabitRepository struct{ db *gorm.DB }

func NewHabitRepository(db *gorm.DB) HabitRepository { return &GormHabitRepository{db: db} }

func (r *GormHabitRepository) Get(ctx context.Context, habitID uint) (*domain.Habit, error) {
	var h domain.Habit
	err := r.db.WithContext(ctx).First(&h, habitID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(ctx, "habit", "get", "not_found")
			return nil, errs.ErrNotFound
		}
		observability.RecordRepositoryOperation(ctx, "habit", "get", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "habit", "get", "success")
	return &h, nil
}

func (r *GormHabitRepository) ListByUser(ctx context.Context, userID uint) ([]domain.Habit, error) {
	var habits []domain.Habit
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("id").Find(&habits).Error
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "habit", "list_by_user", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "habit", "list_by_user", "success")
	return habits, nil
}

func (r *GormHabitRepository) ListUnlogged(ctx context.Context, userID uint, asOf time.Time) ([]domain.Habit, error) {
	day := domain.Day(asOf)
	var habits []domain.Habit
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_tracked = ?", userID, true).
		Where("NOT EXISTS (SELECT 1 FROM habit_logs WHERE habit_logs.habit_id = habits.id AND habit_logs.log_date = ?)", day).
		Order("id").
		Find(&habits).Error
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "habit", "list_unlogged", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "habit", "list_unlogged", "success")
	return habits, nil
}

func (r *GormHabitRepository) Create(ctx context.Context, habit *domain.Habit) error {
	err := r.db.WithContext(ctx).Create(habit).Error
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "habit", "create", "error")
		return err
	}
	observability.RecordRepositoryOperation(ctx, "habit", "create", "success")
	return nil
}

func (r *GormHabitRepository) Update(ctx context.Context, habitID uint, upd HabitUpdate) (*domain.Habit, error) {
	updates := map[string]any{}
	if upd.Name != nil {
		updates["name"] = *upd.Name
	}
	if upd.Description != nil {
		updates["description"] = *upd.Description
	}
	if upd.TargetDays != nil {
		updates["target_days"] = *upd.TargetDays
	}
	if upd.StreakDays != nil {
		updates["streak_days"] = *upd.StreakDays
	}
	if upd.StartDate != nil {
		updates["start_date"] = *upd.StartDate
	}
	if upd.IsTracked != nil {
		updates["is_tracked"] = *upd.IsTracked
	}

	var h domain.Habit
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&h, habitID).Error; err != nil {
			return err
		}
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(&h).Updates(updates).Error; err != nil {
			return err
		}
		return tx.First(&h, habitID).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(ctx, "habit", "update", "not_found")
			return nil, errs.ErrNotFound
		}
		observability.RecordRepositoryOperation(ctx, "habit", "update", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "habit", "update", "success")
	return &h, nil
}

func (r *GormHabitRepository) Delete(ctx context.Context, habitID uint) error {
	res := r.db.WithContext(ctx).Delete(&domain.Habit{}, habitID)
	if res.Error != nil {
		observability.RecordRepositoryOperation(ctx, "habit", "delete", "error")
		return res.Error
	}
	if res.RowsAffected == 0 {
		observability.RecordRepositoryOperation(ctx, "habit", "delete", "not_found")
		return errs.ErrNotFound
	}
	observability.RecordRepositoryOperation(ctx, "habit", "delete", "success")
	return nil
}

func (r *GormHabitRepository) ListReminderTargets(ctx context.Context, asOf time.Time) ([]ReminderTarget, error) {
	day := domain.Day(asOf)
	var targets []ReminderTarget
	err := r.db.WithContext(ctx).
		Model(&domain.Habit{}).
		Select("users.chat_id AS chat_id, habits.name AS habit_name").
		Joins("JOIN users ON users.id = habits.user_id").
		Where("habits.is_tracked = ?", true).
		Where("NOT EXISTS (SELECT 1 FROM habit_logs WHERE habit_logs.habit_id = habits.id AND habit_logs.log_date = ?)", day).
		Scan(&targets).Error
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "habit", "list_reminder_targets", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "habit", "list_reminder_targets", "success")
	return targets, nil
}
