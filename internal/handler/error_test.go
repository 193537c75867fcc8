package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/averline/concierge/internal/domain"
)

func TestErrorCodeToHTTPStatus(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{domain.EINVALID, http.StatusBadRequest},
		{domain.EUNAUTHORIZED, http.StatusUnauthorized},
		{domain.EFORBIDDEN, http.StatusForbidden},
		{domain.ENOTFOUND, http.StatusNotFound},
		{domain.ECONFLICT, http.StatusConflict},
		{domain.ERATELIMIT, http.StatusTooManyRequests},
		{domain.EINTERNAL, http.StatusInternalServerError},
		{"bogus_code", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := ErrorCodeToHTTPStatus(tt.code); got != tt.want {
			t.Errorf("ErrorCodeToHTTPStatus(%q) = %d, want %d", tt.code, got, tt.want)
		}
	}
}

func TestErrorResponse_WritesJSONBody(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	err := domain.NotFound("pricing.get_rule", "pricing rule", "dining")

	req := httptest.NewRequest("GET", "/api/v1/admin/rules/dining", nil)
	rec := httptest.NewRecorder()

	ErrorResponse(rec, req, logger, err)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected JSON content type, got %q", ct)
	}

	var body JSONError
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not valid JSON: %v", err)
	}
	if body.Error.Code != domain.ENOTFOUND {
		t.Errorf("expected code %q, got %q", domain.ENOTFOUND, body.Error.Code)
	}
}

func TestErrorResponse_DoesNotExposeOperationName(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	err := domain.Internal(assertableErr("pq: relation does not exist"), "pricing.list_rules", "Failed to list pricing rules")

	req := httptest.NewRequest("GET", "/api/v1/admin/rules", nil)
	rec := httptest.NewRecorder()

	ErrorResponse(rec, req, logger, err)

	body := rec.Body.String()
	if strings.Contains(body, "pricing.list_rules") {
		t.Errorf("response exposes internal operation name: %s", body)
	}
	if strings.Contains(body, "relation does not exist") {
		t.Errorf("response exposes internal error detail: %s", body)
	}
}

type assertableErr string

func (e assertableErr) Error() string { return string(e) }
