// Package token implements issuance, verification and revocation of signed,
// time-bound credentials.
package token

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/habitbot/habitbot/internal/observability"
	"github.com/habitbot/habitbot/internal/security"
)

var (
	// ErrTokenExpired means the token is past its expiry timestamp.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenMalformed means the signature or structure is invalid.
	ErrTokenMalformed = errors.New("token malformed")
	// ErrTokenRevoked means the token was revoked before its natural expiry.
	ErrTokenRevoked = errors.New("token revoked")
	// ErrWrongTokenKind means a refresh token was presented where an access
	// token is required, or vice versa.
	ErrWrongTokenKind = errors.New("wrong token kind")
)

type Service struct {
	jwtMgr      *security.JWTManager
	revocations RevocationStore
	accessTTL   time.Duration
	refreshTTL  time.Duration
}

func NewService(jwtMgr *security.JWTManager, revocations RevocationStore, accessTTL, refreshTTL time.Duration) *Service {
	return &Service{jwtMgr: jwtMgr, revocations: revocations, accessTTL: accessTTL, refreshTTL: refreshTTL}
}

func (s *Service) IssueAccess(subject string) (string, error) {
	return s.jwtMgr.Sign(subject, security.TokenKindAccess, s.accessTTL)
}

func (s *Service) IssueRefresh(subject string) (string, error) {
	return s.jwtMgr.Sign(subject, security.TokenKindRefresh, s.refreshTTL)
}

// Verify checks signature, expiry, kind and revocation, in that order, and
// returns the token's subject.
func (s *Service) Verify(ctx context.Context, raw string, kind security.TokenKind) (string, error) {
	claims, err := s.jwtMgr.Parse(raw)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			observability.RecordTokenVerification(ctx, string(kind), "expired")
			return "", ErrTokenExpired
		}
		observability.RecordTokenVerification(ctx, string(kind), "malformed")
		return "", ErrTokenMalformed
	}
	if claims.Kind != kind {
		observability.RecordTokenVerification(ctx, string(kind), "wrong_kind")
		return "", ErrWrongTokenKind
	}
	revoked, err := s.revocations.IsRevoked(ctx, claims.ID)
	if err != nil {
		observability.RecordTokenVerification(ctx, string(kind), "store_error")
		return "", err
	}
	if revoked {
		observability.RecordTokenVerification(ctx, string(kind), "revoked")
		return "", ErrTokenRevoked
	}
	observability.RecordTokenVerification(ctx, string(kind), "valid")
	return claims.Subject, nil
}

// Revoke blocks a token for the rest of its natural lifetime. An already
// expired token is a no-op: there is nothing left to block, and skipping the
// insert keeps the store bounded to currently-valid revoked tokens.
func (s *Service) Revoke(ctx context.Context, raw string) error {
	claims, err := s.jwtMgr.ParseExpired(raw)
	if err != nil {
		return ErrTokenMalformed
	}
	if claims.ExpiresAt == nil {
		return ErrTokenMalformed
	}
	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl <= 0 {
		observability.RecordTokenRevocation(ctx, "noop_expired")
		return nil
	}
	if err := s.revocations.Revoke(ctx, claims.ID, ttl); err != nil {
		observability.RecordTokenRevocation(ctx, "error")
		return err
	}
	observability.RecordTokenRevocation(ctx, "revoked")
	return nil
}
