package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"go.uber.org/zap"
)

func decodeErrorBody(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("error body is not valid JSON: %v: %s", err, rec.Body.String())
	}
	return resp
}

func TestProperty_ErrorEnvelopeShape(t *testing.T) {
	properties := gopter.NewProperties(nil)

	statusCodes := []int{
		http.StatusBadRequest,
		http.StatusUnauthorized,
		http.StatusForbidden,
		http.StatusNotFound,
		http.StatusConflict,
		http.StatusTooManyRequests,
		http.StatusBadGateway,
		http.StatusInternalServerError,
	}

	properties.Property("every error carries code, message, and an RFC3339 timestamp", prop.ForAll(
		func(message string, codeIndex int) bool {
			statusCode := statusCodes[codeIndex%len(statusCodes)]

			rec := httptest.NewRecorder()
			RespondWithError(rec, statusCode, message)

			if rec.Code != statusCode || rec.Header().Get("Content-Type") != "application/json" {
				return false
			}

			var resp ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				return false
			}
			if resp.Error.Code != http.StatusText(statusCode) || resp.Error.Message != message {
				return false
			}
			_, err := time.Parse(time.RFC3339, resp.Error.Timestamp)
			return err == nil
		},
		gen.AlphaString().SuchThat(func(s string) bool { return len(s) > 0 }),
		gen.IntRange(0, 1000),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestRespondWithErrorDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondWithErrorDetails(rec, http.StatusConflict, "order already delivered", map[string]interface{}{
		"order_id": "abc",
	})

	resp := decodeErrorBody(t, rec)
	if resp.Error.Details["order_id"] != "abc" {
		t.Errorf("expected details to round-trip, got %+v", resp.Error.Details)
	}
}

func TestRespondWithValidationErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondWithValidationErrors(rec, []ValidationError{
		{Field: "phone", Message: "phone is required"},
		{Field: "password", Message: "password must be at least 6 characters long"},
	})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	resp := decodeErrorBody(t, rec)
	if resp.Error.Message != "validation failed" {
		t.Errorf("expected the validation failure message, got %q", resp.Error.Message)
	}
	raw, ok := resp.Error.Details["validation_errors"]
	if !ok {
		t.Fatalf("expected validation_errors in details, got %+v", resp.Error.Details)
	}
	if entries, ok := raw.([]interface{}); !ok || len(entries) != 2 {
		t.Errorf("expected 2 validation entries, got %+v", raw)
	}
}

func TestErrorHandlingMiddlewareRecoversPanics(t *testing.T) {
	handler := ErrorHandlingMiddleware(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/products", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 after a panic, got %d", rec.Code)
	}
	resp := decodeErrorBody(t, rec)
	if resp.Error.Message != "internal server error" {
		t.Errorf("panic detail must not leak to the client, got %q", resp.Error.Message)
	}
}

func TestErrorHandlingMiddlewarePassesThrough(t *testing.T) {
	handler := ErrorHandlingMiddleware(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		RespondWithJSON(w, http.StatusTeapot, map[string]string{"ok": "yes"})
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusTeapot {
		t.Errorf("middleware must not touch non-panicking handlers, got %d", rec.Code)
	}
}
