package transcription

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// WhisperConfig configures the OpenAI audio transcription provider.
type WhisperConfig struct {
	APIKey   string
	Model    string // whisper-1
	Language string
	BaseURL  string // optional, for compatible gateways
}

// Whisper transcribes recordings with OpenAI's audio transcription endpoint.
type Whisper struct {
	cfg    WhisperConfig
	client *openai.Client
}

// NewWhisper creates a Whisper client.
func NewWhisper(cfg WhisperConfig) (*Whisper, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("whisper: API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = openai.Whisper1
	}

	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	return &Whisper{cfg: cfg, client: openai.NewClientWithConfig(oc)}, nil
}

// Name implements Transcriber.
func (w *Whisper) Name() string { return "whisper" }

// Transcribe implements Transcriber.
func (w *Whisper) Transcribe(ctx context.Context, audio Audio) (string, error) {
	if len(audio.Data) == 0 {
		return "", ErrEmptyAudio
	}
	filename := audio.Filename
	if filename == "" {
		filename = "recording.wav"
	}

	resp, err := w.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    w.cfg.Model,
		FilePath: filename,
		Reader:   bytes.NewReader(audio.Data),
		Language: w.cfg.Language,
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			if apiErr.HTTPStatusCode == http.StatusBadRequest {
				return "", &TranscriptionError{Message: apiErr.Message}
			}
			return "", &UploadError{Op: "transcribe", StatusCode: apiErr.HTTPStatusCode, Message: apiErr.Message, Err: err}
		}
		return "", &UploadError{Op: "transcribe", Err: err}
	}

	return strings.TrimSpace(resp.Text), nil
}
