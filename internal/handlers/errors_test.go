package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"fourall/internal/models"
)

func TestRespondWithErrorWritesStatusAndBody(t *testing.T) {
	recorder := httptest.NewRecorder()

	respondWithError(recorder, zap.NewNop(), 418, "Teapot", "", nil)

	if recorder.Code != 418 {
		t.Fatalf("expected status 418, got %d", recorder.Code)
	}
	if ct := recorder.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected JSON content type, got %q", ct)
	}

	var body errorBody
	if err := json.NewDecoder(recorder.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Error != "Teapot" {
		t.Fatalf("expected error 'Teapot', got %q", body.Error)
	}
}

func TestRespondWithErrorLogsMessage(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	recorder := httptest.NewRecorder()

	respondWithError(recorder, zap.New(core), 500, ErrInternalServerError, "", errors.New("boom"))

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected one log entry, got %d", len(entries))
	}
	if entries[0].Message != ErrInternalServerError {
		t.Fatalf("expected log to use user message, got %q", entries[0].Message)
	}
	if got := fmt.Sprint(entries[0].ContextMap()["error"]); got != "boom" {
		t.Fatalf("expected log to include error, got %q", got)
	}
	if !json.Valid(recorder.Body.Bytes()) {
		t.Fatalf("expected a JSON body, got %q", recorder.Body.String())
	}
}

func TestRespondWithDomainError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"validation", models.ValidationError{Field: "pin", Message: "PIN must be 4 to 6 digits"}, http.StatusBadRequest, "PIN must be 4 to 6 digits"},
		{"no progress", fmt.Errorf("load: %w", models.ErrNoProgress), http.StatusNotFound, ErrNoProgressMsg},
		{"not found", models.ErrNotFound, http.StatusNotFound, ErrNotFoundMsg},
		{"invalid step", models.ErrInvalidStep, http.StatusBadRequest, ErrInvalidStepMsg},
		{"step incomplete", models.ErrStepIncomplete, http.StatusConflict, ErrStepIncompleteMsg},
		{"already complete", models.ErrOnboardingComplete, http.StatusConflict, ErrAlreadyCompleteMsg},
		{"bad pin", models.ErrInvalidPIN, http.StatusUnauthorized, ErrInvalidPINMsg},
		{"text mode", models.ErrTextMode, http.StatusConflict, ErrVoiceUnavailableMsg},
		{"unexpected", errors.New("disk on fire"), http.StatusInternalServerError, ErrInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			respondWithDomainError(recorder, zap.NewNop(), "op", tt.err)

			if recorder.Code != tt.status {
				t.Fatalf("expected status %d, got %d", tt.status, recorder.Code)
			}
			var body errorBody
			if err := json.NewDecoder(recorder.Body).Decode(&body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if body.Error != tt.msg {
				t.Fatalf("expected %q, got %q", tt.msg, body.Error)
			}
		})
	}
}
