package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/habitbot/habitbot/internal/bot"
	"github.com/habitbot/habitbot/internal/errs"
)

func respond(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": status < 400, "data": data})
}

func TestAuthenticateSendsForm(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/token" || r.Method != http.MethodPost {
			t.Fatalf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/x-www-form-urlencoded" {
			t.Fatalf("content type = %q", ct)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if r.PostFormValue("username") != "alice" || r.PostFormValue("password") != "424242" {
			t.Fatalf("unexpected form: %v", r.PostForm)
		}
		respond(w, http.StatusOK, map[string]string{
			"access_token":  "a",
			"refresh_token": "r",
			"token_type":    "bearer",
		})
	}))
	defer srv.Close()

	c := New(srv.URL)
	pair, err := c.Authenticate(context.Background(), bot.Credentials{Username: "alice", Password: "424242", ChatID: 424242})
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if pair.AccessToken != "a" || pair.RefreshToken != "r" {
		t.Fatalf("unexpected pair: %+v", pair)
	}
}

func TestRefreshPostsToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/refresh-token" || r.Method != http.MethodPost {
			t.Fatalf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body["refresh_token"] != "old-refresh" {
			t.Fatalf("unexpected body: %v", body)
		}
		respond(w, http.StatusOK, map[string]string{
			"access_token":  "a2",
			"refresh_token": "r2",
			"token_type":    "bearer",
		})
	}))
	defer srv.Close()

	c := New(srv.URL)
	pair, err := c.Refresh(context.Background(), "old-refresh")
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if pair.AccessToken != "a2" || pair.RefreshToken != "r2" {
		t.Fatalf("unexpected pair: %+v", pair)
	}
}

func TestStatusMapping(t *testing.T) {
	cases := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, errs.ErrUnauthorized},
		{http.StatusConflict, errs.ErrAlreadyExists},
		{http.StatusNotFound, errs.ErrNotFound},
		{http.StatusInternalServerError, errs.ErrUnavailable},
	}
	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			respond(w, tc.status, nil)
		}))
		c := New(srv.URL)
		_, err := c.ListHabits(context.Background(), "tok")
		srv.Close()
		if !errors.Is(err, tc.want) {
			t.Fatalf("status %d: got %v, want %v", tc.status, err, tc.want)
		}
	}
}

func TestListHabitsDecodesEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Fatalf("authorization = %q", got)
		}
		respond(w, http.StatusOK, []map[string]any{
			{"id": 1, "name": "Бег", "target_days": 21},
		})
	}))
	defer srv.Close()

	c := New(srv.URL)
	habits, err := c.ListHabits(context.Background(), "tok")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(habits) != 1 || habits[0].Name != "Бег" || habits[0].TargetDays != 21 {
		t.Fatalf("unexpected habits: %+v", habits)
	}
}

func TestCreateLogFormatsDate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body["log_date"] != "2024-09-17" || body["completed"] != true {
			t.Fatalf("unexpected body: %v", body)
		}
		respond(w, http.StatusCreated, nil)
	}))
	defer srv.Close()

	c := New(srv.URL)
	err := c.CreateLog(context.Background(), "tok", 5, bot.CreateLogRequest{
		LogDate:   mustDate("2024-09-17T12:30:00Z"),
		Completed: true,
	})
	if err != nil {
		t.Fatalf("create log: %v", err)
	}
}

func mustDate(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}
