package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestErrorEnvelope(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/habits", nil)
	r.Header.Set("X-Request-Id", "req-abc")
	w := httptest.NewRecorder()

	Error(w, r, http.StatusNotFound, "NOT_FOUND", "habit not found")

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	var body struct {
		Success bool `json:"success"`
		Error   *struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
		Meta struct {
			RequestID string `json:"request_id"`
			ServedAt  string `json:"served_at"`
		} `json:"meta"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Success {
		t.Fatal("success = true on an error envelope")
	}
	if body.Error == nil || body.Error.Code != "NOT_FOUND" || body.Error.Message != "habit not found" {
		t.Fatalf("unexpected error: %+v", body.Error)
	}
	if body.Meta.RequestID != "req-abc" {
		t.Fatalf("request id = %q", body.Meta.RequestID)
	}
	if _, err := time.Parse(time.RFC3339, body.Meta.ServedAt); err != nil {
		t.Fatalf("served_at %q not RFC3339: %v", body.Meta.ServedAt, err)
	}
}

func TestJSONEnvelopeOmitsError(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/habits", nil)
	w := httptest.NewRecorder()

	JSON(w, r, http.StatusOK, map[string]string{"status": "ok"})

	var body map[string]json.RawMessage
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := body["error"]; ok {
		t.Fatal("error key present on a success envelope")
	}
	var data map[string]string
	if err := json.Unmarshal(body["data"], &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if data["status"] != "ok" {
		t.Fatalf("data = %v", data)
	}
}
