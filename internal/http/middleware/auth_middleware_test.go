package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/habitbot/habitbot/internal/security"
	"github.com/habitbot/habitbot/internal/token"
)

func newTestTokens(t *testing.T) *token.Service {
	t.Helper()
	mgr := security.NewJWTManager("habit-service", "0123456789abcdef0123456789abcdef")
	return token.NewService(mgr, token.NewInMemoryRevocationStore(), 15*time.Minute, 24*time.Hour)
}

func protectedHandler(t *testing.T, gotSubject *string) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject, ok := SubjectFromContext(r.Context())
		if !ok {
			t.Fatal("subject missing from context")
		}
		*gotSubject = subject
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestAuthMiddlewareAcceptsValidToken(t *testing.T) {
	tokens := newTestTokens(t)
	access, err := tokens.IssueAccess("alice")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	var subject string
	h := AuthMiddleware(tokens)(protectedHandler(t, &subject))
	req := httptest.NewRequest(http.MethodGet, "/habits", nil)
	req.Header.Set("Authorization", "Bearer "+access)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if subject != "alice" {
		t.Fatalf("subject = %q, want alice", subject)
	}
}

func TestAuthMiddlewareRejections(t *testing.T) {
	tokens := newTestTokens(t)
	refresh, err := tokens.IssueRefresh("alice")
	if err != nil {
		t.Fatalf("issue refresh: %v", err)
	}
	access, err := tokens.IssueAccess("alice")
	if err != nil {
		t.Fatalf("issue access: %v", err)
	}
	if err := tokens.Revoke(context.Background(), access); err != nil {
		t.Fatalf("revoke: %v", err)
	}

	cases := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not bearer", "Basic abc"},
		{"malformed token", "Bearer garbage"},
		{"refresh used as access", "Bearer " + refresh},
		{"revoked token", "Bearer " + access},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := AuthMiddleware(tokens)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Fatal("handler must not run")
			}))
			req := httptest.NewRequest(http.MethodGet, "/habits", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want 401", rec.Code)
			}
		})
	}
}
