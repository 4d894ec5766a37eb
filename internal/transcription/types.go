package transcription

import (
	"context"
	"time"
)

// Audio is an encoded recording ready to send to a provider.
type Audio struct {
	Data        []byte
	Filename    string // e.g. recording.wav
	ContentType string // e.g. audio/wav
}

// WAV wraps encoded WAV bytes with the default upload name.
func WAV(data []byte) Audio {
	return Audio{Data: data, Filename: "recording.wav", ContentType: "audio/wav"}
}

// Transcriber turns recorded audio into text.
type Transcriber interface {
	// Transcribe blocks until the provider returns text or fails with an
	// UploadError, TranscriptionError or TimeoutError.
	Transcribe(ctx context.Context, audio Audio) (string, error)

	// Name identifies the provider in logs and metrics.
	Name() string
}

// Status is the lifecycle state of a remote transcription job.
type Status string

const (
	StatusSubmitted  Status = "submitted"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether no further polling is needed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Job tracks a poll-based transcription from submission to a terminal status.
type Job struct {
	ID          string
	AudioURL    string
	Status      Status
	Text        string
	Error       string
	SubmittedAt time.Time
	CompletedAt time.Time
	Polls       int
}
