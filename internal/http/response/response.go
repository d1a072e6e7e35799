// Package response renders the JSON envelope shared by the habit API and
// the bot's HTTP client.
package response

import (
	"encoding/json"
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

type envelope struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *apiError `json:"error,omitempty"`
	Meta    meta      `json:"meta"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type meta struct {
	RequestID string `json:"request_id"`
	ServedAt  string `json:"served_at"`
}

// JSON writes a success envelope around data.
func JSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	write(w, r, status, envelope{Success: true, Data: data})
}

// Error writes a failure envelope. The code is a stable machine-readable
// tag; the message is for humans and carries no internal detail.
func Error(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	write(w, r, status, envelope{Success: false, Error: &apiError{Code: code, Message: message}})
}

func write(w http.ResponseWriter, r *http.Request, status int, env envelope) {
	env.Meta = meta{RequestID: requestID(r), ServedAt: time.Now().UTC().Format(time.RFC3339)}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

func requestID(r *http.Request) string {
	if id := chimiddleware.GetReqID(r.Context()); id != "" {
		return id
	}
	if id := r.Header.Get("X-Request-Id"); id != "" {
		return id
	}
	return "req-unknown"
}
