package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/enfdev/letterbox/internal/apperror"
)

func TestWriteError_StatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{"validation", apperror.ValidationFailed("title", "title is required"), http.StatusBadRequest, "validation_error"},
		{"not found", apperror.NotFound("letter", "abc"), http.StatusNotFound, "not_found"},
		{"forbidden", apperror.Forbidden("letter belongs to another mailbox"), http.StatusForbidden, "forbidden"},
		{"conflict", apperror.Conflict("letter", "already has a reply"), http.StatusConflict, "conflict"},
		{"quota", apperror.QuotaExceeded("user-1"), http.StatusTooManyRequests, "quota_exceeded"},
		{"invalid code", apperror.InvalidCode(), http.StatusUnauthorized, "invalid_code"},
		{"provider down", apperror.ProviderUnavailable("timeout"), http.StatusBadGateway, "provider_unavailable"},
		{"wrapped", fmt.Errorf("replying: %w", apperror.QuotaExceeded("user-1")), http.StatusTooManyRequests, "quota_exceeded"},
		{"unknown", errors.New("disk on fire"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeError(rec, tt.err)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			var body ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decoding body: %v", err)
			}
			if body.Error != tt.wantType {
				t.Errorf("error type = %q, want %q", body.Error, tt.wantType)
			}
			if body.Message == "" {
				t.Error("message must not be empty")
			}
		})
	}
}

func TestWriteError_HidesInternalDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, errors.New("SELECT * FROM users failed"))

	var body ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body.Message != "an unexpected error occurred" {
		t.Errorf("internal detail leaked: %q", body.Message)
	}
}
