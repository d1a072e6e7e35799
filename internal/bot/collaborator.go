package bot

import (
	"context"
	"time"
)

// Habit is the collaborator-side view of a habit, shaped after the API's
// habit payload.
type Habit struct {
	ID             uint      `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	TargetDays     int       `json:"target_days"`
	StreakDays     int       `json:"streak_days"`
	StartDate      time.Time `json:"start_date"`
	CurrentStreak  int       `json:"current_streak"`
	TotalCompleted int       `json:"total_completed"`
	IsTracked      bool      `json:"is_tracked"`
}

// Credentials is what the bot presents when exchanging for tokens. The chat
// identity doubles as the secret, matching how Register derives accounts from
// chat contacts.
type Credentials struct {
	Username string
	Password string
	ChatID   int64
}

// TokenPair mirrors the API token response.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
}

// CreateHabitRequest carries the completed habit form.
type CreateHabitRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	TargetDays  int    `json:"target_days"`
}

// UpdateHabitRequest carries a single-field edit. Nil fields stay untouched.
type UpdateHabitRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	TargetDays  *int    `json:"target_days,omitempty"`
	IsTracked   *bool   `json:"is_tracked,omitempty"`
}

// CreateLogRequest marks a habit done or skipped for a calendar day.
type CreateLogRequest struct {
	LogDate   time.Time `json:"log_date"`
	Completed bool      `json:"completed"`
}

// Collaborator is the authenticated service the navigation engine drives.
// Implementations map transport failures onto the errs sentinels so the
// controller can react uniformly.
type Collaborator interface {
	Authenticate(ctx context.Context, creds Credentials) (TokenPair, error)
	Register(ctx context.Context, creds Credentials) (TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (TokenPair, error)

	ListHabits(ctx context.Context, accessToken string) ([]Habit, error)
	ListUnlogged(ctx context.Context, accessToken string, asOf time.Time) ([]Habit, error)
	CreateHabit(ctx context.Context, accessToken string, req CreateHabitRequest) (Habit, error)
	UpdateHabit(ctx context.Context, accessToken string, habitID uint, req UpdateHabitRequest) (Habit, error)
	DeleteHabit(ctx context.Context, accessToken string, habitID uint) error
	CreateLog(ctx context.Context, accessToken string, habitID uint, req CreateLogRequest) error
}
