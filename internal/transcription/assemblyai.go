package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/voicenav/voice-gateway/internal/observability"
	"github.com/voicenav/voice-gateway/internal/resilience"
)

// AssemblyAIConfig configures the poll-based client.
type AssemblyAIConfig struct {
	BaseURL      string // e.g. https://api.assemblyai.com/v2
	APIKey       string
	LanguageCode string
	Poll         resilience.PollPolicy
	Retry        *resilience.RetryConfig
	Breaker      *resilience.CircuitBreaker
	HTTPClient   *http.Client
	Logger       zerolog.Logger
}

// AssemblyAI uploads audio, submits a transcript job and polls it to completion.
type AssemblyAI struct {
	cfg    AssemblyAIConfig
	client *http.Client
	logger zerolog.Logger
}

// NewAssemblyAI creates a poll-based client.
func NewAssemblyAI(cfg AssemblyAIConfig) (*AssemblyAI, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("assemblyai: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.assemblyai.com/v2"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.LanguageCode == "" {
		cfg.LanguageCode = "en"
	}
	if cfg.Poll.Interval <= 0 {
		cfg.Poll = resilience.DefaultPollPolicy()
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}

	return &AssemblyAI{
		cfg:    cfg,
		client: client,
		logger: cfg.Logger.With().Str("provider", "assemblyai").Logger(),
	}, nil
}

// Name implements Transcriber.
func (c *AssemblyAI) Name() string { return "assemblyai" }

type uploadResponse struct {
	UploadURL string `json:"upload_url"`
}

type transcriptRequest struct {
	AudioURL     string `json:"audio_url"`
	LanguageCode string `json:"language_code,omitempty"`
}

type transcriptResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Text   string `json:"text"`
	Error  string `json:"error"`
}

// Transcribe implements Transcriber: upload, submit, then poll.
func (c *AssemblyAI) Transcribe(ctx context.Context, audio Audio) (string, error) {
	if len(audio.Data) == 0 {
		return "", ErrEmptyAudio
	}

	audioURL, err := c.Upload(ctx, audio.Data)
	if err != nil {
		return "", err
	}

	job, err := c.Submit(ctx, audioURL)
	if err != nil {
		return "", err
	}

	job, err = c.Wait(ctx, job)
	if err != nil {
		return "", err
	}
	return job.Text, nil
}

// Upload sends raw audio bytes and returns the provider-hosted URL.
func (c *AssemblyAI) Upload(ctx context.Context, data []byte) (string, error) {
	var out uploadResponse
	err := c.guarded(ctx, "upload", func(ctx context.Context) error {
		return c.do(ctx, "upload", http.MethodPost, "/upload", "application/octet-stream", bytes.NewReader(data), &out)
	})
	if err != nil {
		return "", err
	}
	if out.UploadURL == "" {
		return "", &UploadError{Op: "upload", Message: "response did not include upload_url"}
	}

	observability.RecordAudioBytes("uploaded", len(data))
	c.logger.Debug().Int("bytes", len(data)).Msg("Audio uploaded")
	return out.UploadURL, nil
}

// Submit creates a transcript job for an uploaded audio URL.
func (c *AssemblyAI) Submit(ctx context.Context, audioURL string) (*Job, error) {
	body, err := json.Marshal(transcriptRequest{AudioURL: audioURL, LanguageCode: c.cfg.LanguageCode})
	if err != nil {
		return nil, fmt.Errorf("failed to encode transcript request: %w", err)
	}

	var out transcriptResponse
	err = c.guarded(ctx, "submit", func(ctx context.Context) error {
		return c.do(ctx, "submit", http.MethodPost, "/transcript", "application/json", bytes.NewReader(body), &out)
	})
	if err != nil {
		return nil, err
	}
	if out.ID == "" {
		return nil, &UploadError{Op: "submit", Message: "response did not include a transcript id"}
	}

	job := &Job{ID: out.ID, AudioURL: audioURL, Status: StatusSubmitted, SubmittedAt: time.Now()}
	c.logger.Info().Str("job_id", job.ID).Msg("Transcription job submitted")
	return job, nil
}

// status fetches the current state of a job.
func (c *AssemblyAI) status(ctx context.Context, id string) (*transcriptResponse, error) {
	var out transcriptResponse
	if err := c.do(ctx, "status", http.MethodGet, "/transcript/"+id, "", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Wait polls the job at the configured interval until it completes or fails.
func (c *AssemblyAI) Wait(ctx context.Context, job *Job) (*Job, error) {
	res, err := resilience.Poll(ctx, c.cfg.Poll, func(ctx context.Context, attempt int) (bool, error) {
		st, err := c.status(ctx, job.ID)
		if err != nil {
			if isRetryableUpload(err) && ctx.Err() == nil {
				c.logger.Warn().Err(err).Str("job_id", job.ID).Int("attempt", attempt).Msg("Status check failed, will poll again")
				return false, nil
			}
			return false, err
		}

		job.Polls = attempt
		switch st.Status {
		case "completed":
			job.Status = StatusCompleted
			job.Text = st.Text
			job.CompletedAt = time.Now()
		case "error":
			job.Status = StatusFailed
			job.Error = st.Error
			return false, &TranscriptionError{JobID: job.ID, Message: st.Error}
		case "processing":
			job.Status = StatusProcessing
		}
		return job.Status.Terminal(), nil
	})
	observability.RecordPollAttempts(res.Attempts)

	switch {
	case err == nil:
		c.logger.Info().Str("job_id", job.ID).Int("polls", res.Attempts).Dur("elapsed", res.Elapsed).Msg("Transcription completed")
		return job, nil
	case errors.Is(err, resilience.ErrPollExhausted), errors.Is(err, context.DeadlineExceeded):
		return job, &TimeoutError{JobID: job.ID, Attempts: res.Attempts, Elapsed: res.Elapsed}
	default:
		return job, err
	}
}

// guarded runs fn behind the circuit breaker with retries on transient failures.
func (c *AssemblyAI) guarded(ctx context.Context, op string, fn resilience.RetryableFunc) error {
	call := fn
	if c.cfg.Breaker != nil {
		call = func(ctx context.Context) error {
			err := c.cfg.Breaker.Call(func() error { return fn(ctx) }, isRetryableUpload)
			if errors.Is(err, resilience.ErrCircuitOpen) {
				return &UploadError{Op: op, Message: "provider temporarily unavailable", Err: err}
			}
			return err
		}
	}
	return resilience.Retry(ctx, call, c.cfg.Retry, isRetryableUpload)
}

func (c *AssemblyAI) do(ctx context.Context, op, method, path, contentType string, body io.Reader, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, body)
	if err != nil {
		return &UploadError{Op: op, Err: err}
	}
	req.Header.Set("authorization", c.cfg.APIKey)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return &UploadError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return &UploadError{Op: op, StatusCode: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &UploadError{Op: op, StatusCode: resp.StatusCode, Message: providerMessage(payload)}
	}

	if err := json.Unmarshal(payload, out); err != nil {
		return &UploadError{Op: op, StatusCode: resp.StatusCode, Message: "invalid JSON response", Err: err}
	}
	return nil
}

// providerMessage extracts {"error": "..."} from an error body, else the raw text.
func providerMessage(body []byte) string {
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		return e.Error
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}
