package domain

import "time"

type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"size:64;uniqueIndex;not null" json:"username"`
	PasswordHash string    `gorm:"size:128;not null" json:"-"`
	ChatID       int64     `gorm:"uniqueIndex" json:"chat_id"`
	CreatedAt    time.Time `json:"created_at"`

	Habits []Habit `json:"-"`
}
