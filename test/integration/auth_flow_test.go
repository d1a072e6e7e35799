package integration

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/habitbot/habitbot/internal/auth"
	"github.com/habitbot/habitbot/internal/domain"
	"github.com/habitbot/habitbot/internal/http/handler"
	"github.com/habitbot/habitbot/internal/http/router"
	"github.com/habitbot/habitbot/internal/repository"
	"github.com/habitbot/habitbot/internal/security"
	"github.com/habitbot/habitbot/internal/token"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type tokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

type habitView struct {
	ID             uint   `json:"id"`
	Name           string `json:"name"`
	Description    string `json:"description"`
	TargetDays     int    `json:"target_days"`
	CurrentStreak  int    `json:"current_streak"`
	TotalCompleted int    `json:"total_completed"`
	IsTracked      bool   `json:"is_tracked"`
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&domain.User{}, &domain.Habit{}, &domain.HabitLog{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mgr := security.NewJWTManager("habit-service", "0123456789abcdef0123456789abcdef")
	tokens := token.NewService(mgr, token.NewInMemoryRevocationStore(), 15*time.Minute, 24*time.Hour)

	users := repository.NewUserRepository(db)
	habits := repository.NewHabitRepository(db)
	logs := repository.NewHabitLogRepository(db)
	authService := auth.NewService(users, tokens)

	h := router.NewRouter(router.Dependencies{
		AuthHandler:  handler.NewAuthHandler(authService, users, logger),
		HabitHandler: handler.NewHabitHandler(users, habits, logs, logger),
		TokenService: tokens,
		Logger:       logger,
	})
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, rawURL, accessToken string, body any) (int, envelope) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rd = bytes.NewReader(buf)
	}
	req, err := http.NewRequest(method, rawURL, rd)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()
	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return resp.StatusCode, env
}

func doForm(t *testing.T, rawURL string, form url.Values) (int, envelope) {
	t.Helper()
	resp, err := http.Post(rawURL, "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	if err != nil {
		t.Fatalf("post form: %v", err)
	}
	defer resp.Body.Close()
	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return resp.StatusCode, env
}

func register(t *testing.T, base, username, password string) tokenPair {
	t.Helper()
	status, env := doJSON(t, http.MethodPost, base+"/register", "", map[string]any{
		"username": username,
		"password": password,
		"chat_id":  424242,
	})
	if status != http.StatusOK || !env.Success {
		t.Fatalf("register: status=%d success=%v", status, env.Success)
	}
	var pair tokenPair
	if err := json.Unmarshal(env.Data, &pair); err != nil {
		t.Fatalf("decode pair: %v", err)
	}
	return pair
}

func login(t *testing.T, base, username, password string) tokenPair {
	t.Helper()
	status, env := doForm(t, base+"/token", url.Values{
		"username": {username},
		"password": {password},
	})
	if status != http.StatusOK || !env.Success {
		t.Fatalf("token: status=%d success=%v", status, env.Success)
	}
	var pair tokenPair
	if err := json.Unmarshal(env.Data, &pair); err != nil {
		t.Fatalf("decode pair: %v", err)
	}
	return pair
}

func TestRegisterLoginAndMe(t *testing.T) {
	srv := newTestServer(t)

	pair := register(t, srv.URL, "alice", "424242")
	if pair.AccessToken == "" || pair.RefreshToken != "" {
		t.Fatalf("register should yield an access token only: %+v", pair)
	}

	status, env := doJSON(t, http.MethodPost, srv.URL+"/register", "", map[string]any{
		"username": "alice",
		"password": "424242",
	})
	if status != http.StatusConflict || env.Error == nil || env.Error.Code != "CONFLICT" {
		t.Fatalf("duplicate register: status=%d error=%+v", status, env.Error)
	}

	full := login(t, srv.URL, "alice", "424242")
	if full.AccessToken == "" || full.RefreshToken == "" || full.TokenType != "bearer" {
		t.Fatalf("unexpected pair: %+v", full)
	}

	status, _ = doForm(t, srv.URL+"/token", url.Values{
		"username": {"alice"},
		"password": {"wrong"},
	})
	if status != http.StatusUnauthorized {
		t.Fatalf("bad password: status=%d, want 401", status)
	}

	status, env = doJSON(t, http.MethodGet, srv.URL+"/users/me", full.AccessToken, nil)
	if status != http.StatusOK {
		t.Fatalf("me: status=%d", status)
	}
	var me struct {
		Username string `json:"username"`
		ChatID   int64  `json:"chat_id"`
	}
	if err := json.Unmarshal(env.Data, &me); err != nil {
		t.Fatalf("decode me: %v", err)
	}
	if me.Username != "alice" || me.ChatID != 424242 {
		t.Fatalf("unexpected me: %+v", me)
	}
}

func TestHabitCRUDAndDailyLog(t *testing.T) {
	srv := newTestServer(t)
	register(t, srv.URL, "alice", "424242")
	pair := login(t, srv.URL, "alice", "424242")

	status, env := doJSON(t, http.MethodPost, srv.URL+"/habits", pair.AccessToken, map[string]any{
		"name":        "Бег",
		"description": "Бегать по утрам",
		"is_tracked":  true,
	})
	if status != http.StatusCreated {
		t.Fatalf("create habit: status=%d", status)
	}
	var habit habitView
	if err := json.Unmarshal(env.Data, &habit); err != nil {
		t.Fatalf("decode habit: %v", err)
	}
	if habit.TargetDays != 21 {
		t.Fatalf("target_days = %d, want default 21", habit.TargetDays)
	}

	status, env = doJSON(t, http.MethodPatch, srv.URL+"/habits/"+itoa(habit.ID), pair.AccessToken, map[string]any{
		"target_days": 14,
	})
	if status != http.StatusOK {
		t.Fatalf("patch habit: status=%d", status)
	}
	var patched habitView
	if err := json.Unmarshal(env.Data, &patched); err != nil {
		t.Fatalf("decode patched: %v", err)
	}
	if patched.TargetDays != 14 || patched.Name != "Бег" {
		t.Fatalf("unexpected patched habit: %+v", patched)
	}

	status, env = doJSON(t, http.MethodGet, srv.URL+"/habits/unlogged?as_of=2024-09-17", pair.AccessToken, nil)
	if status != http.StatusOK {
		t.Fatalf("unlogged: status=%d", status)
	}
	var unlogged []habitView
	if err := json.Unmarshal(env.Data, &unlogged); err != nil {
		t.Fatalf("decode unlogged: %v", err)
	}
	if len(unlogged) != 1 {
		t.Fatalf("unlogged = %d habits, want 1", len(unlogged))
	}

	logBody := map[string]any{"log_date": "2024-09-17", "completed": true}
	status, _ = doJSON(t, http.MethodPost, srv.URL+"/habits/"+itoa(habit.ID)+"/logs", pair.AccessToken, logBody)
	if status != http.StatusCreated {
		t.Fatalf("create log: status=%d", status)
	}
	status, env = doJSON(t, http.MethodPost, srv.URL+"/habits/"+itoa(habit.ID)+"/logs", pair.AccessToken, logBody)
	if status != http.StatusConflict || env.Error == nil || env.Error.Code != "CONFLICT" {
		t.Fatalf("duplicate log: status=%d error=%+v", status, env.Error)
	}

	status, env = doJSON(t, http.MethodGet, srv.URL+"/habits", pair.AccessToken, nil)
	if status != http.StatusOK {
		t.Fatalf("list: status=%d", status)
	}
	var habits []habitView
	if err := json.Unmarshal(env.Data, &habits); err != nil {
		t.Fatalf("decode habits: %v", err)
	}
	if len(habits) != 1 || habits[0].CurrentStreak != 1 || habits[0].TotalCompleted != 1 {
		t.Fatalf("streak not applied exactly once: %+v", habits)
	}

	status, _ = doJSON(t, http.MethodDelete, srv.URL+"/habits/"+itoa(habit.ID), pair.AccessToken, nil)
	if status != http.StatusOK {
		t.Fatalf("delete: status=%d", status)
	}
	status, _ = doJSON(t, http.MethodDelete, srv.URL+"/habits/"+itoa(habit.ID), pair.AccessToken, nil)
	if status != http.StatusNotFound {
		t.Fatalf("second delete: status=%d, want 404", status)
	}
}

func TestForeignHabitIsInvisible(t *testing.T) {
	srv := newTestServer(t)
	register(t, srv.URL, "alice", "424242")
	alice := login(t, srv.URL, "alice", "424242")

	status, env := doJSON(t, http.MethodPost, srv.URL+"/habits", alice.AccessToken, map[string]any{"name": "Бег"})
	if status != http.StatusCreated {
		t.Fatalf("create: status=%d", status)
	}
	var habit habitView
	if err := json.Unmarshal(env.Data, &habit); err != nil {
		t.Fatalf("decode: %v", err)
	}

	status, _ = doJSON(t, http.MethodPost, srv.URL+"/register", "", map[string]any{
		"username": "bob", "password": "x", "chat_id": 7,
	})
	if status != http.StatusOK {
		t.Fatalf("register bob: status=%d", status)
	}
	bob := login(t, srv.URL, "bob", "x")

	status, _ = doJSON(t, http.MethodPatch, srv.URL+"/habits/"+itoa(habit.ID), bob.AccessToken, map[string]any{"name": "Чужое"})
	if status != http.StatusNotFound {
		t.Fatalf("foreign patch: status=%d, want 404", status)
	}
}

func TestLogoutRevokesAccessToken(t *testing.T) {
	srv := newTestServer(t)
	register(t, srv.URL, "alice", "424242")
	pair := login(t, srv.URL, "alice", "424242")

	status, _ := doJSON(t, http.MethodGet, srv.URL+"/users/me", pair.AccessToken, nil)
	if status != http.StatusOK {
		t.Fatalf("me before logout: status=%d", status)
	}
	status, _ = doJSON(t, http.MethodPost, srv.URL+"/logout", pair.AccessToken, nil)
	if status != http.StatusOK {
		t.Fatalf("logout: status=%d", status)
	}
	status, _ = doJSON(t, http.MethodGet, srv.URL+"/users/me", pair.AccessToken, nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("me after logout: status=%d, want 401", status)
	}
}

func TestRefreshTokenFlow(t *testing.T) {
	srv := newTestServer(t)
	register(t, srv.URL, "alice", "424242")
	pair := login(t, srv.URL, "alice", "424242")

	status, env := doJSON(t, http.MethodPost, srv.URL+"/refresh-token", "", map[string]string{
		"refresh_token": pair.RefreshToken,
	})
	if status != http.StatusOK {
		t.Fatalf("refresh: status=%d", status)
	}
	var next tokenPair
	if err := json.Unmarshal(env.Data, &next); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if next.AccessToken == "" || next.RefreshToken == "" {
		t.Fatalf("incomplete pair: %+v", next)
	}

	status, _ = doJSON(t, http.MethodGet, srv.URL+"/users/me", next.AccessToken, nil)
	if status != http.StatusOK {
		t.Fatalf("me with refreshed access: status=%d", status)
	}

	// An access token is not accepted by the refresh endpoint.
	status, _ = doJSON(t, http.MethodPost, srv.URL+"/refresh-token", "", map[string]string{
		"refresh_token": pair.AccessToken,
	})
	if status != http.StatusUnauthorized {
		t.Fatalf("refresh with access token: status=%d, want 401", status)
	}
}

func itoa(v uint) string { return strconv.FormatUint(uint64(v), 10) }
