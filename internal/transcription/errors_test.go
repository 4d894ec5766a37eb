package transcription

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/voicenav/voice-gateway/internal/resilience"
)

func TestUploadError_Temporary(t *testing.T) {
	tests := []struct {
		name     string
		err      *UploadError
		expected bool
	}{
		{"connection refused", &UploadError{Op: "upload", Err: errors.New("dial tcp 127.0.0.1:1: connection refused")}, true},
		{"no cause", &UploadError{Op: "upload", Message: "empty reply"}, true},
		{"cancelled", &UploadError{Op: "upload", Err: context.Canceled}, false},
		{"circuit open", &UploadError{Op: "upload", Message: "provider temporarily unavailable", Err: resilience.ErrCircuitOpen}, false},
		{"rate limited", &UploadError{Op: "submit", StatusCode: 429}, true},
		{"server error", &UploadError{Op: "submit", StatusCode: 503}, true},
		{"unauthorized", &UploadError{Op: "upload", StatusCode: 401}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Temporary(); got != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestIsRetryableUpload_UntypedErrors(t *testing.T) {
	if !isRetryableUpload(errors.New("read tcp: connection reset by peer")) {
		t.Error("Expected transport errors to be retryable")
	}
	if isRetryableUpload(errors.New("invalid audio")) {
		t.Error("Expected other errors not to be retryable")
	}
}

func TestIsTimeout(t *testing.T) {
	if !IsTimeout(&TimeoutError{JobID: "j1", Attempts: 3, Elapsed: time.Second}) {
		t.Error("Expected TimeoutError to be a timeout")
	}
	if IsTimeout(&TranscriptionError{Message: "bad audio"}) {
		t.Error("Expected TranscriptionError not to be a timeout")
	}
}
