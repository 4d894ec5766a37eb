package transcription

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestWhisper_Transcribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/audio/transcriptions") {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("Unexpected auth header %q", got)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("Expected multipart body: %v", err)
			return
		}
		if r.FormValue("model") != "whisper-1" {
			t.Errorf("Expected model whisper-1, got %q", r.FormValue("model"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"text":" open netflix "}`))
	}))
	defer srv.Close()

	c, err := NewWhisper(WhisperConfig{APIKey: "sk-test", BaseURL: srv.URL + "/v1"})
	if err != nil {
		t.Fatalf("NewWhisper failed: %v", err)
	}

	text, err := c.Transcribe(context.Background(), WAV([]byte("RIFF")))
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}
	if text != "open netflix" {
		t.Errorf("Expected trimmed text 'open netflix', got %q", text)
	}
}

func TestWhisper_BadRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"Invalid file format.","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	c, _ := NewWhisper(WhisperConfig{APIKey: "sk-test", BaseURL: srv.URL + "/v1"})
	_, err := c.Transcribe(context.Background(), WAV([]byte("RIFF")))
	if Kind(err) != "transcription" {
		t.Errorf("Expected transcription error, got %v", err)
	}
}
