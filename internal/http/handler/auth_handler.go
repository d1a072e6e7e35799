// Package handler implements the HTTP endpoints of the REST API.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/habitbot/habitbot/internal/auth"
	"github.com/habitbot/habitbot/internal/http/middleware"
	"github.com/habitbot/habitbot/internal/http/response"
	"github.com/habitbot/habitbot/internal/repository"
)

type AuthHandler struct {
	authService *auth.Service
	users       repository.UserRepository
	logger      *slog.Logger
}

func NewAuthHandler(authService *auth.Service, users repository.UserRepository, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{authService: authService, users: users, logger: logger}
}

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	ChatID   int64  `json:"chat_id,omitempty"`
}

// Register creates a credential and returns an access token.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "username and password are required")
		return
	}
	pair, err := h.authService.Register(r.Context(), req.Username, req.Password, req.ChatID)
	if err != nil {
		if errors.Is(err, auth.ErrUserExists) {
			response.Error(w, r, http.StatusConflict, "CONFLICT", "user already registered")
			return
		}
		h.logger.Error("register failed", "error", err)
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "registration failed")
		return
	}
	response.JSON(w, r, http.StatusOK, pair)
}

// Token authenticates a form-encoded username/password and returns a full pair.
func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid form body")
		return
	}
	username := r.PostFormValue("username")
	password := r.PostFormValue("password")
	if username == "" || password == "" {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "username and password are required")
		return
	}
	pair, err := h.authService.Authenticate(r.Context(), username, password)
	if err != nil {
		if errors.Is(err, auth.ErrBadCredentials) {
			response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "incorrect username or password")
			return
		}
		h.logger.Error("token exchange failed", "error", err)
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "authentication failed")
		return
	}
	response.JSON(w, r, http.StatusOK, pair)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// RefreshToken exchanges a refresh token for a new pair.
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "refresh_token is required")
		return
	}
	pair, err := h.authService.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidRefreshToken) {
			response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid refresh token")
			return
		}
		h.logger.Error("refresh failed", "error", err)
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "refresh failed")
		return
	}
	response.JSON(w, r, http.StatusOK, pair)
}

// Logout revokes the access token the request authenticated with.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	raw, ok := middleware.RawTokenFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing access token")
		return
	}
	if err := h.authService.Revoke(r.Context(), raw); err != nil {
		h.logger.Error("logout failed", "error", err)
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "logout failed")
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]string{"status": "logged_out"})
}

// Me returns the authenticated user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	subject, ok := middleware.SubjectFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing access token")
		return
	}
	user, err := h.users.FindByUsername(r.Context(), subject)
	if err != nil {
		response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "user not found")
		return
	}
	response.JSON(w, r, http.StatusOK, user)
}
