package token

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/habitbot/habitbot/internal/security"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	mgr := security.NewJWTManager("habit-service", "0123456789abcdef0123456789abcdef")
	return NewService(mgr, NewInMemoryRevocationStore(), 15*time.Minute, 30*24*time.Hour)
}

func TestVerifyRoundTrip(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	for _, subject := range []string{"alice", "bob", "чел-42"} {
		raw, err := svc.IssueAccess(subject)
		if err != nil {
			t.Fatalf("issue access for %q: %v", subject, err)
		}
		got, err := svc.Verify(ctx, raw, security.TokenKindAccess)
		if err != nil {
			t.Fatalf("verify for %q: %v", subject, err)
		}
		if got != subject {
			t.Fatalf("subject = %q, want %q", got, subject)
		}
	}
}

func TestVerifyExpired(t *testing.T) {
	mgr := security.NewJWTManager("habit-service", "0123456789abcdef0123456789abcdef")
	svc := NewService(mgr, NewInMemoryRevocationStore(), -time.Minute, -time.Minute)

	raw, err := svc.IssueAccess("alice")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := svc.Verify(context.Background(), raw, security.TokenKindAccess); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestVerifyMalformed(t *testing.T) {
	svc := newTestService(t)
	if _, err := svc.Verify(context.Background(), "not-a-token", security.TokenKindAccess); !errors.Is(err, ErrTokenMalformed) {
		t.Fatalf("expected ErrTokenMalformed, got %v", err)
	}
}

func TestVerifyWrongKind(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	refresh, err := svc.IssueRefresh("alice")
	if err != nil {
		t.Fatalf("issue refresh: %v", err)
	}
	if _, err := svc.Verify(ctx, refresh, security.TokenKindAccess); !errors.Is(err, ErrWrongTokenKind) {
		t.Fatalf("expected ErrWrongTokenKind, got %v", err)
	}

	access, err := svc.IssueAccess("alice")
	if err != nil {
		t.Fatalf("issue access: %v", err)
	}
	if _, err := svc.Verify(ctx, access, security.TokenKindRefresh); !errors.Is(err, ErrWrongTokenKind) {
		t.Fatalf("expected ErrWrongTokenKind, got %v", err)
	}
}

func TestRevokeBlocksUntilExpiry(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	raw, err := svc.IssueAccess("alice")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if err := svc.Revoke(ctx, raw); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := svc.Verify(ctx, raw, security.TokenKindAccess); !errors.Is(err, ErrTokenRevoked) {
			t.Fatalf("verify #%d: expected ErrTokenRevoked, got %v", i, err)
		}
	}
}

func TestRevokeExpiredIsNoop(t *testing.T) {
	mgr := security.NewJWTManager("habit-service", "0123456789abcdef0123456789abcdef")
	store := NewInMemoryRevocationStore()
	svc := NewService(mgr, store, -time.Minute, -time.Minute)

	raw, err := svc.IssueAccess("alice")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if err := svc.Revoke(context.Background(), raw); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if n := store.Len(); n != 0 {
		t.Fatalf("expected empty store for expired token, got %d entries", n)
	}
}

func TestRevokeMalformed(t *testing.T) {
	svc := newTestService(t)
	if err := svc.Revoke(context.Background(), "garbage"); !errors.Is(err, ErrTokenMalformed) {
		t.Fatalf("expected ErrTokenMalformed, got %v", err)
	}
}
