package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestHealthCheckHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	HealthCheckHandler()(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var status HealthStatus
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("Failed to decode body: %v", err)
	}
	if status.Status != "healthy" {
		t.Errorf("Expected status 'healthy', got '%s'", status.Status)
	}
	if status.Service != ServiceName {
		t.Errorf("Expected service %q, got %q", ServiceName, status.Service)
	}
}

func TestReadinessHandler(t *testing.T) {
	ok := func(ctx context.Context) error { return nil }
	down := func(ctx context.Context) error { return errors.New("connection refused") }

	tests := []struct {
		name       string
		checks     []DependencyCheck
		wantCode   int
		wantStatus string
	}{
		{"no checks", nil, http.StatusOK, "ready"},
		{"all healthy", []DependencyCheck{{"store", ok}, {"transcriber", ok}}, http.StatusOK, "ready"},
		{"store down", []DependencyCheck{{"store", down}, {"transcriber", ok}}, http.StatusServiceUnavailable, "not_ready"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			ReadinessHandler(tt.checks...)(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

			if rec.Code != tt.wantCode {
				t.Errorf("Expected code %d, got %d", tt.wantCode, rec.Code)
			}
			var status HealthStatus
			if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
				t.Fatalf("Failed to decode body: %v", err)
			}
			if status.Status != tt.wantStatus {
				t.Errorf("Expected status %q, got %q", tt.wantStatus, status.Status)
			}
			if len(status.Dependencies) != len(tt.checks) {
				t.Errorf("Expected %d dependencies, got %d", len(tt.checks), len(status.Dependencies))
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		"warn":    zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"info":    zerolog.InfoLevel,
		"verbose": zerolog.InfoLevel,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestSessionMetrics_EndWithoutStart(t *testing.T) {
	m := NewSessionMetrics("s1", "test")
	// must not panic or drive the gauge negative
	m.RecordRecordingEnd("aborted")
	m.RecordRecordingStart()
	m.RecordRecordingStart()
	m.RecordRecordingEnd("completed")
	m.RecordRecordingEnd("completed")
}

func TestWithCorrelationID(t *testing.T) {
	var buf bytes.Buffer
	logger, id := WithCorrelationID(zerolog.New(&buf), "req-42")
	logger.Info().Msg("hello")

	if id != "req-42" {
		t.Errorf("Expected id req-42, got %q", id)
	}
	if !strings.Contains(buf.String(), `"correlation_id":"req-42"`) {
		t.Errorf("Expected correlation_id field, got %s", buf.String())
	}

	_, generated := WithCorrelationID(zerolog.Nop(), "")
	if generated == "" {
		t.Error("Expected a generated correlation id")
	}
}
