package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/habitbot/habitbot/internal/http/response"
	"github.com/habitbot/habitbot/internal/security"
	"github.com/habitbot/habitbot/internal/token"
)

type contextKey string

const (
	subjectContextKey  contextKey = "subject"
	rawTokenContextKey contextKey = "raw_token"
)

// AuthMiddleware authenticates requests via the Authorization: Bearer header.
// Verification includes the revocation check, so a revoked access token is
// rejected for its whole remaining lifetime.
func AuthMiddleware(tokens *token.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if !strings.HasPrefix(strings.ToLower(auth), "bearer ") {
				response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing access token")
				return
			}
			raw := strings.TrimSpace(auth[7:])
			subject, err := tokens.Verify(r.Context(), raw, security.TokenKindAccess)
			if err != nil {
				response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid access token")
				return
			}
			ctx := context.WithValue(r.Context(), subjectContextKey, subject)
			ctx = context.WithValue(ctx, rawTokenContextKey, raw)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SubjectFromContext returns the authenticated username set by AuthMiddleware.
func SubjectFromContext(ctx context.Context) (string, bool) {
	s, ok := ctx.Value(subjectContextKey).(string)
	return s, ok
}

// RawTokenFromContext returns the bearer token the request authenticated with.
func RawTokenFromContext(ctx context.Context) (string, bool) {
	s, ok := ctx.Value(rawTokenContextKey).(string)
	return s, ok
}
