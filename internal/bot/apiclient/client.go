// Package apiclient is the HTTP implementation of the bot's Collaborator
// boundary, speaking the habit API's JSON envelope.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/habitbot/habitbot/internal/bot"
	"github.com/habitbot/habitbot/internal/errs"
)

const defaultTimeout = 10 * time.Second

// Client talks to the habit API over HTTP and maps its status codes onto the
// errs sentinels the navigation controller reacts to.
type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
	}
}

// envelope mirrors the API's response wrapper.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *apiError       `json:"error"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (c *Client) Authenticate(ctx context.Context, creds bot.Credentials) (bot.TokenPair, error) {
	form := url.Values{
		"username": {creds.Username},
		"password": {creds.Password},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/token", strings.NewReader(form.Encode()))
	if err != nil {
		return bot.TokenPair{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var pair bot.TokenPair
	if err := c.do(req, &pair); err != nil {
		return bot.TokenPair{}, err
	}
	return pair, nil
}

func (c *Client) Register(ctx context.Context, creds bot.Credentials) (bot.TokenPair, error) {
	body := map[string]any{
		"username": creds.Username,
		"password": creds.Password,
		"chat_id":  creds.ChatID,
	}
	var pair bot.TokenPair
	if err := c.doJSON(ctx, http.MethodPost, "/register", body, &pair); err != nil {
		return bot.TokenPair{}, err
	}
	return pair, nil
}

func (c *Client) Refresh(ctx context.Context, refreshToken string) (bot.TokenPair, error) {
	body := map[string]string{"refresh_token": refreshToken}
	var pair bot.TokenPair
	if err := c.doJSON(ctx, http.MethodPost, "/refresh-token", body, &pair); err != nil {
		return bot.TokenPair{}, err
	}
	return pair, nil
}

func (c *Client) ListHabits(ctx context.Context, accessToken string) ([]bot.Habit, error) {
	var habits []bot.Habit
	if err := c.doAuth(ctx, accessToken, http.MethodGet, "/habits", nil, &habits); err != nil {
		return nil, err
	}
	return habits, nil
}

func (c *Client) ListUnlogged(ctx context.Context, accessToken string, asOf time.Time) ([]bot.Habit, error) {
	path := "/habits/unlogged?as_of=" + asOf.UTC().Format("2006-01-02")
	var habits []bot.Habit
	if err := c.doAuth(ctx, accessToken, http.MethodGet, path, nil, &habits); err != nil {
		return nil, err
	}
	return habits, nil
}

func (c *Client) CreateHabit(ctx context.Context, accessToken string, req bot.CreateHabitRequest) (bot.Habit, error) {
	var habit bot.Habit
	if err := c.doAuth(ctx, accessToken, http.MethodPost, "/habits", req, &habit); err != nil {
		return bot.Habit{}, err
	}
	return habit, nil
}

func (c *Client) UpdateHabit(ctx context.Context, accessToken string, habitID uint, req bot.UpdateHabitRequest) (bot.Habit, error) {
	var habit bot.Habit
	path := fmt.Sprintf("/habits/%d", habitID)
	if err := c.doAuth(ctx, accessToken, http.MethodPatch, path, req, &habit); err != nil {
		return bot.Habit{}, err
	}
	return habit, nil
}

func (c *Client) DeleteHabit(ctx context.Context, accessToken string, habitID uint) error {
	path := fmt.Sprintf("/habits/%d", habitID)
	return c.doAuth(ctx, accessToken, http.MethodDelete, path, nil, nil)
}

func (c *Client) CreateLog(ctx context.Context, accessToken string, habitID uint, req bot.CreateLogRequest) error {
	body := map[string]any{
		"log_date":  req.LogDate.UTC().Format("2006-01-02"),
		"completed": req.Completed,
	}
	path := fmt.Sprintf("/habits/%d/logs", habitID)
	return c.doAuth(ctx, accessToken, http.MethodPost, path, body, nil)
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	req, err := c.newJSONRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) doAuth(ctx context.Context, accessToken, method, path string, body, out any) error {
	req, err := c.newJSONRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	return c.do(req, out)
}

func (c *Client) newJSONRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		rd = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if err := statusError(resp.StatusCode); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if env.Data == nil {
		return nil
	}
	return json.Unmarshal(env.Data, out)
}

func statusError(status int) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusUnauthorized:
		return errs.ErrUnauthorized
	case status == http.StatusConflict:
		return errs.ErrAlreadyExists
	case status == http.StatusNotFound:
		return errs.ErrNotFound
	case status >= 500:
		return fmt.Errorf("%w: server returned %d", errs.ErrUnavailable, status)
	default:
		return fmt.Errorf("unexpected status %d", status)
	}
}
