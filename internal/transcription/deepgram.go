package transcription

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"

	api "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/rest"
	interfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/interfaces"
	listenClient "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/listen"
)

// DeepgramConfig configures the pre-recorded Deepgram provider.
type DeepgramConfig struct {
	APIKey   string
	Model    string // nova-2, enhanced, base
	Language string
	Host     string // optional, e.g. a self-hosted deployment
}

// Deepgram transcribes a whole recording with Deepgram's pre-recorded REST API.
type Deepgram struct {
	cfg    DeepgramConfig
	client *api.Client
}

// NewDeepgram creates a pre-recorded Deepgram client.
func NewDeepgram(cfg DeepgramConfig) (*Deepgram, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("deepgram: API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "nova-2"
	}
	if cfg.Language == "" {
		cfg.Language = "en"
	}

	rest := listenClient.NewREST(cfg.APIKey, &interfaces.ClientOptions{Host: cfg.Host})
	if rest == nil {
		return nil, errors.New("deepgram: invalid client options")
	}
	return &Deepgram{cfg: cfg, client: api.New(rest)}, nil
}

// Name implements Transcriber.
func (d *Deepgram) Name() string { return "deepgram" }

// Transcribe implements Transcriber.
func (d *Deepgram) Transcribe(ctx context.Context, audio Audio) (string, error) {
	if len(audio.Data) == 0 {
		return "", ErrEmptyAudio
	}

	opts := &interfaces.PreRecordedTranscriptionOptions{
		Model:       d.cfg.Model,
		Language:    d.cfg.Language,
		Punctuate:   true,
		SmartFormat: true,
	}

	res, err := d.client.FromStream(ctx, bytes.NewReader(audio.Data), opts)
	if err != nil {
		return "", deepgramError(ctx, err)
	}
	if res == nil || res.Results == nil || len(res.Results.Channels) == 0 ||
		len(res.Results.Channels[0].Alternatives) == 0 {
		return "", &TranscriptionError{Message: "no transcript in response"}
	}

	return strings.TrimSpace(res.Results.Channels[0].Alternatives[0].Transcript), nil
}

// deepgramError maps SDK failures onto the provider-neutral error types.
// A 400 carrying a Deepgram error body means the audio was rejected.
func deepgramError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return &UploadError{Op: "transcribe", Err: ctx.Err()}
	}
	var se *interfaces.StatusError
	if errors.As(err, &se) && se.Resp != nil {
		if se.DeepgramError != nil && se.Resp.StatusCode == http.StatusBadRequest {
			msg := se.DeepgramError.ErrMsg
			if msg == "" {
				msg = se.DeepgramError.Description
			}
			return &TranscriptionError{Message: msg}
		}
		return &UploadError{Op: "transcribe", StatusCode: se.Resp.StatusCode, Message: se.Resp.Status, Err: err}
	}
	return &UploadError{Op: "transcribe", Err: err}
}
