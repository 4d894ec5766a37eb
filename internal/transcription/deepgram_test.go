package transcription

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestDeepgram(t *testing.T, handler http.HandlerFunc) *Deepgram {
	t.Helper()
	t.Setenv("DEEPGRAM_HOST", "")

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	d, err := NewDeepgram(DeepgramConfig{APIKey: "dg-test", Host: srv.URL})
	if err != nil {
		t.Fatalf("NewDeepgram failed: %v", err)
	}
	return d
}

func TestDeepgram_Transcribe(t *testing.T) {
	d := newTestDeepgram(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || !strings.HasSuffix(r.URL.Path, "/listen") {
			t.Errorf("Unexpected request %s %s", r.Method, r.URL.Path)
		}
		if !strings.Contains(r.Header.Get("Authorization"), "dg-test") {
			t.Errorf("Expected API key in Authorization header, got %q", r.Header.Get("Authorization"))
		}
		if got := r.URL.Query().Get("model"); got != "nova-2" {
			t.Errorf("Expected model nova-2, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"results":{"channels":[{"alternatives":[{"transcript":" open youtube ","confidence":0.98}]}]}}`))
	})

	text, err := d.Transcribe(context.Background(), WAV([]byte("RIFF")))
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}
	if text != "open youtube" {
		t.Errorf("Expected trimmed text 'open youtube', got %q", text)
	}
}

func TestDeepgram_NoTranscript(t *testing.T) {
	d := newTestDeepgram(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"results":{"channels":[]}}`))
	})

	_, err := d.Transcribe(context.Background(), WAV([]byte("RIFF")))
	var te *TranscriptionError
	if !errors.As(err, &te) || te.Message != "no transcript in response" {
		t.Errorf("Expected no-transcript TranscriptionError, got %v", err)
	}
}

func TestDeepgram_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		kind   string
		code   int
	}{
		{"rejected audio", http.StatusBadRequest, `{"err_code":"Bad Request","err_msg":"corrupt or unsupported data"}`, "transcription", 0},
		{"bad key", http.StatusUnauthorized, `{"err_code":"INVALID_AUTH"}`, "upload", http.StatusUnauthorized},
		{"provider down", http.StatusServiceUnavailable, ``, "upload", http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestDeepgram(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			_, err := d.Transcribe(context.Background(), WAV([]byte("RIFF")))
			if Kind(err) != tt.kind {
				t.Fatalf("Expected %s error, got %v", tt.kind, err)
			}
			var ue *UploadError
			if errors.As(err, &ue) && ue.StatusCode != tt.code {
				t.Errorf("Expected status %d, got %d", tt.code, ue.StatusCode)
			}
			var te *TranscriptionError
			if errors.As(err, &te) && te.Message != "corrupt or unsupported data" {
				t.Errorf("Expected provider message, got %q", te.Message)
			}
		})
	}
}

func TestDeepgram_EmptyAudio(t *testing.T) {
	d := newTestDeepgram(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("Expected no request for empty audio")
	})
	if _, err := d.Transcribe(context.Background(), Audio{}); !errors.Is(err, ErrEmptyAudio) {
		t.Errorf("Expected ErrEmptyAudio, got %v", err)
	}
}

func TestNewDeepgram_RequiresKey(t *testing.T) {
	if _, err := NewDeepgram(DeepgramConfig{}); err == nil {
		t.Error("Expected error without API key")
	}
}
