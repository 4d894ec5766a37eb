package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"time"

	"github.com/voicenav/voice-gateway/internal/resilience"
)

// Statuses a single-shot endpoint may report for a successful transcription.
var singleShotSuccess = map[string]bool{
	"completed":         true,
	"Recording stopped": true,
}

// SingleShotConfig configures a synchronous multipart transcription endpoint.
type SingleShotConfig struct {
	Endpoint   string // e.g. http://localhost:5000/stop_recording
	FieldName  string // multipart field, default audio_data
	Retry      *resilience.RetryConfig
	HTTPClient *http.Client
}

// SingleShot posts audio in one request and reads the text from the response.
type SingleShot struct {
	cfg    SingleShotConfig
	client *http.Client
}

// SingleShotResponse is the endpoint's JSON reply.
type SingleShotResponse struct {
	Status string `json:"status"`
	Text   string `json:"text"`
	Error  string `json:"error,omitempty"`
}

// NewSingleShot creates a single-shot client.
func NewSingleShot(cfg SingleShotConfig) (*SingleShot, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("single-shot: endpoint is required")
	}
	if cfg.FieldName == "" {
		cfg.FieldName = "audio_data"
	}
	if cfg.Retry == nil {
		cfg.Retry = &resilience.RetryConfig{MaxAttempts: 1}
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 2 * time.Minute}
	}
	return &SingleShot{cfg: cfg, client: client}, nil
}

// Name implements Transcriber.
func (s *SingleShot) Name() string { return "local" }

// Transcribe implements Transcriber.
func (s *SingleShot) Transcribe(ctx context.Context, audio Audio) (string, error) {
	if len(audio.Data) == 0 {
		return "", ErrEmptyAudio
	}

	body, contentType, err := multipartBody(s.cfg.FieldName, audio)
	if err != nil {
		return "", &UploadError{Op: "transcribe", Err: err}
	}

	var out SingleShotResponse
	err = resilience.Retry(ctx, func(ctx context.Context) error {
		return s.post(ctx, body, contentType, &out)
	}, s.cfg.Retry, isRetryableUpload)
	if err != nil {
		return "", err
	}

	if out.Error != "" {
		return "", &TranscriptionError{Message: out.Error}
	}
	if !singleShotSuccess[out.Status] {
		return "", &TranscriptionError{Message: fmt.Sprintf("unexpected status %q", out.Status)}
	}
	return out.Text, nil
}

func (s *SingleShot) post(ctx context.Context, body []byte, contentType string, out *SingleShotResponse) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return &UploadError{Op: "transcribe", Err: err}
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := s.client.Do(req)
	if err != nil {
		return &UploadError{Op: "transcribe", Err: err}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return &UploadError{Op: "transcribe", StatusCode: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &UploadError{Op: "transcribe", StatusCode: resp.StatusCode, Message: providerMessage(payload)}
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return &UploadError{Op: "transcribe", StatusCode: resp.StatusCode, Message: "invalid JSON response", Err: err}
	}
	return nil
}

func multipartBody(field string, audio Audio) ([]byte, string, error) {
	filename := audio.Filename
	if filename == "" {
		filename = "recording.wav"
	}
	contentType := audio.ContentType
	if contentType == "" {
		contentType = "audio/wav"
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, filename))
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(audio.Data); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}
