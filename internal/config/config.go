// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Env string

	// API process.
	HTTPAddr    string
	DatabaseDSN string
	RedisAddr   string

	JWTSecret  string
	JWTIssuer  string
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	// Bot process.
	APIBaseURL        string
	ReminderHourUTC   int
	ReminderMinuteUTC int

	OTELMetricsEnabled bool
	OTELServiceName    string
}

func Load() (*Config, error) {
	cfg := &Config{
		Env:                getEnv("APP_ENV", "dev"),
		HTTPAddr:           getEnv("HTTP_ADDR", ":8080"),
		DatabaseDSN:        getEnv("DATABASE_DSN", "habit.db"),
		RedisAddr:          getEnv("REDIS_ADDR", ""),
		JWTSecret:          getEnv("JWT_SECRET", ""),
		JWTIssuer:          getEnv("JWT_ISSUER", "habit-service"),
		APIBaseURL:         getEnv("API_BASE_URL", "http://localhost:8080"),
		OTELServiceName:    getEnv("OTEL_SERVICE_NAME", "habit-service"),
		OTELMetricsEnabled: getEnv("OTEL_METRICS_ENABLED", "false") == "true",
	}

	var err error
	if cfg.AccessTTL, err = getDuration("ACCESS_TOKEN_TTL", 15*time.Minute); err != nil {
		return nil, err
	}
	if cfg.RefreshTTL, err = getDuration("REFRESH_TOKEN_TTL", 30*24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.ReminderHourUTC, err = getInt("REMINDER_HOUR_UTC", 20); err != nil {
		return nil, err
	}
	if cfg.ReminderMinuteUTC, err = getInt("REMINDER_MINUTE_UTC", 0); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.AccessTTL <= 0 || c.RefreshTTL <= 0 {
		return fmt.Errorf("token TTLs must be positive")
	}
	if c.ReminderHourUTC < 0 || c.ReminderHourUTC > 23 {
		return fmt.Errorf("REMINDER_HOUR_UTC out of range: %d", c.ReminderHourUTC)
	}
	if c.ReminderMinuteUTC < 0 || c.ReminderMinuteUTC > 59 {
		return fmt.Errorf("REMINDER_MINUTE_UTC out of range: %d", c.ReminderMinuteUTC)
	}
	return nil
}

// ValidateSecrets enforces the signing-key requirements. Only the API process
// calls it; the bot never touches the JWT secret.
func (c *Config) ValidateSecrets() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 bytes")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return n, nil
}
