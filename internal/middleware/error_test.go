package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"feira-smart/internal/domain"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"go.uber.org/zap"
)

var classStatuses = []struct {
	class  error
	status int
}{
	{domain.ErrValidation, http.StatusBadRequest},
	{domain.ErrUnauthenticated, http.StatusUnauthorized},
	{domain.ErrPermission, http.StatusForbidden},
	{domain.ErrNotFound, http.StatusNotFound},
	{domain.ErrConflict, http.StatusConflict},
	{domain.ErrTransient, http.StatusServiceUnavailable},
}

func decodeEnvelope(w *httptest.ResponseRecorder) (ErrorResponse, bool) {
	var response ErrorResponse
	if w.Header().Get("Content-Type") != "application/json" {
		return response, false
	}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		return response, false
	}
	return response, true
}

func TestProperty_DomainErrorsKeepMessageAndEnvelope(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("classed errors map to their status with the original message", prop.ForAll(
		func(pick int, message string) bool {
			tc := classStatuses[pick%len(classStatuses)]

			w := httptest.NewRecorder()
			err := fmt.Errorf("failed to load order: %w", domain.NewError(tc.class, message))
			RespondWithDomainError(w, zap.NewNop(), err)

			response, ok := decodeEnvelope(w)
			if !ok || w.Code != tc.status {
				return false
			}
			if response.Error.Code != http.StatusText(tc.status) || response.Error.Message != message {
				return false
			}
			_, parseErr := time.Parse(time.RFC3339, response.Error.Timestamp)
			return parseErr == nil
		},
		gen.IntRange(0, 1000),
		gen.AlphaString().SuchThat(func(s string) bool { return s != "" }),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestProperty_ValidationErrorsListEveryField(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("every failing field appears in details", prop.ForAll(
		func(fields []string) bool {
			failures := make([]ValidationError, 0, len(fields))
			for _, f := range fields {
				failures = append(failures, ValidationError{Field: f, Message: f + " is required"})
			}

			w := httptest.NewRecorder()
			RespondWithValidationErrors(w, failures)

			response, ok := decodeEnvelope(w)
			if !ok || w.Code != http.StatusBadRequest {
				return false
			}
			listed, ok := response.Error.Details["validation_errors"].([]interface{})
			return ok && len(listed) == len(fields)
		},
		gen.SliceOfN(4, gen.Identifier()),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestRespondWithJSON(t *testing.T) {
	w := httptest.NewRecorder()
	RespondWithJSON(w, http.StatusCreated, map[string]string{"status": "pendente"})

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "pendente" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.NewError(domain.ErrValidation, "bad"), http.StatusBadRequest},
		{domain.NewError(domain.ErrUnauthenticated, "who"), http.StatusUnauthorized},
		{domain.NewError(domain.ErrPermission, "no"), http.StatusForbidden},
		{fmt.Errorf("failed to find: %w", domain.ErrNotFound), http.StatusNotFound},
		{domain.NewError(domain.ErrConflict, "taken"), http.StatusConflict},
		{fmt.Errorf("failed to query: %w", domain.NewError(domain.ErrTransient, "busy")), http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := StatusFor(tt.err); got != tt.want {
			t.Errorf("StatusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestRespondWithDomainError_Transient(t *testing.T) {
	w := httptest.NewRecorder()
	RespondWithDomainError(w, zap.NewNop(), domain.NewError(domain.ErrTransient, "database is busy"))

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
	if w.Header().Get("Retry-After") != TransientRetryAfter {
		t.Fatalf("expected Retry-After %q, got %q", TransientRetryAfter, w.Header().Get("Retry-After"))
	}

	var response ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatal(err)
	}
	if response.Error.Message != "database is busy" {
		t.Fatalf("unexpected message %q", response.Error.Message)
	}
}

func TestRespondWithDomainError_HidesUnclassified(t *testing.T) {
	w := httptest.NewRecorder()
	RespondWithDomainError(w, zap.NewNop(), errors.New("pq: relation does not exist"))

	var response ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatal(err)
	}
	if w.Code != http.StatusInternalServerError || response.Error.Message != "internal server error" {
		t.Fatalf("unexpected response %d %q", w.Code, response.Error.Message)
	}
}

func TestRespondWithDomainErrorDetails_KeepsDetails(t *testing.T) {
	w := httptest.NewRecorder()
	details := map[string]interface{}{"groups": []string{"a"}}
	RespondWithDomainErrorDetails(w, zap.NewNop(), domain.NewError(domain.ErrConflict, "insufficient stock"), details)

	var response ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatal(err)
	}
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}
	if _, ok := response.Error.Details["groups"]; !ok {
		t.Fatal("expected groups in details")
	}
}
