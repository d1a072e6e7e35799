// Package auth exchanges credentials for token pairs.
package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/habitbot/habitbot/internal/domain"
	"github.com/habitbot/habitbot/internal/errs"
	"github.com/habitbot/habitbot/internal/observability"
	"github.com/habitbot/habitbot/internal/repository"
	"github.com/habitbot/habitbot/internal/security"
	"github.com/habitbot/habitbot/internal/token"
)

var (
	// ErrBadCredentials covers both unknown username and wrong secret; the
	// distinction is logged, never surfaced.
	ErrBadCredentials = errors.New("bad credentials")
	// ErrUserExists indicates the username is already registered.
	ErrUserExists = errors.New("user already registered")
	// ErrInvalidRefreshToken indicates the presented refresh token is
	// expired, malformed, revoked or of the wrong kind.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
)

// TokenPair is what a successful credential exchange yields. Both tokens share
// the same subject. RefreshToken may be empty (registration issues only an
// access token, matching the original public contract).
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
}

type Service struct {
	users  repository.UserRepository
	tokens *token.Service
}

func NewService(users repository.UserRepository, tokens *token.Service) *Service {
	return &Service{users: users, tokens: tokens}
}

// Authenticate verifies username+secret and issues a fresh token pair.
func (s *Service) Authenticate(ctx context.Context, username, secret string) (TokenPair, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			observability.RecordAuthAttempt(ctx, "login", "not_found")
			return TokenPair{}, ErrBadCredentials
		}
		observability.RecordAuthAttempt(ctx, "login", "error")
		return TokenPair{}, err
	}
	if !security.VerifyPassword(user.PasswordHash, secret) {
		observability.RecordAuthAttempt(ctx, "login", "bad_secret")
		return TokenPair{}, ErrBadCredentials
	}
	pair, err := s.issuePair(username)
	if err != nil {
		observability.RecordAuthAttempt(ctx, "login", "error")
		return TokenPair{}, err
	}
	observability.RecordAuthAttempt(ctx, "login", "success")
	return pair, nil
}

// Register creates a credential and returns an access token for it. The
// storage layer's uniqueness constraint is the race guard: two concurrent
// registrations with the same username cannot both succeed.
func (s *Service) Register(ctx context.Context, username, secret string, chatID int64) (TokenPair, error) {
	if _, err := s.users.FindByUsername(ctx, username); err == nil {
		observability.RecordAuthAttempt(ctx, "register", "exists")
		return TokenPair{}, ErrUserExists
	} else if !errors.Is(err, errs.ErrNotFound) {
		observability.RecordAuthAttempt(ctx, "register", "error")
		return TokenPair{}, err
	}

	hash, err := security.HashPassword(secret)
	if err != nil {
		return TokenPair{}, fmt.Errorf("hash password: %w", err)
	}
	user := &domain.User{Username: username, PasswordHash: hash, ChatID: chatID}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, errs.ErrAlreadyExists) {
			observability.RecordAuthAttempt(ctx, "register", "exists")
			return TokenPair{}, ErrUserExists
		}
		observability.RecordAuthAttempt(ctx, "register", "error")
		return TokenPair{}, err
	}

	access, err := s.tokens.IssueAccess(username)
	if err != nil {
		return TokenPair{}, err
	}
	observability.RecordAuthAttempt(ctx, "register", "success")
	return TokenPair{AccessToken: access, TokenType: "bearer"}, nil
}

// Refresh exchanges a valid refresh token for a brand-new pair with the same
// subject. The old refresh token stays valid until its natural expiry; it is
// not revoked on rotation.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	subject, err := s.tokens.Verify(ctx, refreshToken, security.TokenKindRefresh)
	if err != nil {
		observability.RecordAuthAttempt(ctx, "refresh", "invalid")
		return TokenPair{}, ErrInvalidRefreshToken
	}
	pair, err := s.issuePair(subject)
	if err != nil {
		observability.RecordAuthAttempt(ctx, "refresh", "error")
		return TokenPair{}, err
	}
	observability.RecordAuthAttempt(ctx, "refresh", "success")
	return pair, nil
}

// Revoke invalidates the presented token for its remaining lifetime.
func (s *Service) Revoke(ctx context.Context, raw string) error {
	return s.tokens.Revoke(ctx, raw)
}

func (s *Service) issuePair(subject string) (TokenPair, error) {
	access, err := s.tokens.IssueAccess(subject)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := s.tokens.IssueRefresh(subject)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh, TokenType: "bearer"}, nil
}
