package capture

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/voicenav/voice-gateway/internal/audio"
	"github.com/voicenav/voice-gateway/internal/observability"
	"github.com/voicenav/voice-gateway/internal/transcription"
)

// State is the lifecycle state of a Session.
type State int

const (
	StateIdle State = iota
	StateRecording
	StateProcessing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StateProcessing:
		return "processing"
	}
	return "unknown"
}

// Result is the outcome of a finalized recording.
type Result struct {
	Text     string
	WAV      []byte
	Duration time.Duration
	Chunks   int
	Level    float64 // RMS of the captured PCM, 0..1
}

// Options configure a Session.
type Options struct {
	Device      Device
	Decoder     Decoder
	Transcriber transcription.Transcriber
	Constraints Constraints
	Logger      zerolog.Logger
}

// Session records audio from a Device and turns it into text.
// At most one recording is open at a time.
type Session struct {
	id          string
	device      Device
	decoder     Decoder
	transcriber transcription.Transcriber
	constraints Constraints
	logger      zerolog.Logger

	mu        sync.Mutex
	state     State
	stream    Stream
	recording *audio.Recording
	pumpDone  chan struct{}
	metrics   *observability.SessionMetrics
	lastErr   error
}

// NewSession creates an idle session.
func NewSession(opts Options) *Session {
	if opts.Constraints == (Constraints{}) {
		opts.Constraints = DefaultConstraints()
	}
	id := observability.NewCorrelationID()
	return &Session{
		id:          id,
		device:      opts.Device,
		decoder:     opts.Decoder,
		transcriber: opts.Transcriber,
		constraints: opts.Constraints,
		logger:      opts.Logger.With().Str("session_id", id).Logger(),
		state:       StateIdle,
	}
}

// ID returns the session's correlation id.
func (s *Session) ID() string { return s.id }

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LastError returns the reason the last recording ended abnormally, if any.
func (s *Session) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Start opens the device and begins accumulating chunks. Any recording
// that is still open is torn down first.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateProcessing {
		return ErrBusy
	}
	if s.state == StateRecording {
		s.logger.Info().Msg("Discarding previous recording")
		s.releaseLocked("aborted")
	}
	s.lastErr = nil

	stream, err := s.device.Open(ctx, s.constraints)
	if err != nil {
		s.lastErr = err
		observability.RecordError(errorType(err), "capture")
		return err
	}

	provider := ""
	if s.transcriber != nil {
		provider = s.transcriber.Name()
	}

	s.stream = stream
	s.recording = audio.NewRecording()
	s.pumpDone = make(chan struct{})
	s.metrics = observability.NewSessionMetrics(s.id, provider)
	s.metrics.RecordRecordingStart()
	s.state = StateRecording

	go s.pump(stream, s.recording, s.pumpDone)

	s.logger.Info().
		Int("sample_rate", s.constraints.SampleRate).
		Int("channels", s.constraints.Channels).
		Msg("Recording started")
	return nil
}

// pump appends delivered chunks in order until the stream ends.
func (s *Session) pump(stream Stream, rec *audio.Recording, done chan struct{}) {
	defer close(done)

	for chunk := range stream.Chunks() {
		if rec.Append(chunk) {
			observability.RecordAudioBytes("captured", len(chunk))
		}
	}

	if err := stream.Err(); err != nil {
		s.abort(stream, err)
	}
}

// abort resets the session after the stream failed on its own.
func (s *Session) abort(stream Stream, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stream != stream || s.state != StateRecording {
		return
	}
	s.logger.Warn().Err(err).Msg("Input stream ended unexpectedly")
	observability.RecordError(errorType(err), "capture")
	s.lastErr = err
	s.releaseLocked("device_error")
}

// Stop ends the recording and returns the transcribed text. The session is
// back in StateIdle when Stop returns, whatever the outcome.
func (s *Session) Stop(ctx context.Context) (*Result, error) {
	s.mu.Lock()
	switch s.state {
	case StateProcessing:
		s.mu.Unlock()
		return nil, ErrBusy
	case StateIdle:
		s.mu.Unlock()
		return nil, ErrNoActiveRecording
	}

	s.state = StateProcessing
	stream, rec, done, metrics := s.stream, s.recording, s.pumpDone, s.metrics
	s.mu.Unlock()

	_ = stream.Close()
	<-done

	res, err := s.finalize(ctx, rec, metrics)

	outcome := "completed"
	switch {
	case errors.Is(err, ErrEmptyRecording):
		outcome = "empty"
	case err != nil:
		outcome = "failed"
	}

	s.mu.Lock()
	s.releaseLocked(outcome)
	s.mu.Unlock()

	return res, err
}

func (s *Session) finalize(ctx context.Context, rec *audio.Recording, metrics *observability.SessionMetrics) (*Result, error) {
	if rec.IsEmpty() {
		s.logger.Warn().Msg("Recording stopped without audio")
		return nil, ErrEmptyRecording
	}

	chunks := rec.Chunks()
	raw := rec.Bytes()
	level := audio.Level(raw)
	buf, err := s.decoder.Decode(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("capture: decode recording: %w", err)
	}

	wav, err := audio.EncodeWAV(buf)
	if err != nil {
		return nil, fmt.Errorf("capture: encode wav: %w", err)
	}
	observability.RecordAudioBytes("encoded", len(wav))
	duration, _ := audio.WAVDuration(wav)

	s.logger.Info().
		Int("chunks", chunks).
		Int("wav_bytes", len(wav)).
		Dur("duration", duration).
		Float64("level", level).
		Msg("Recording encoded")

	metrics.RecordTranscribeStart()
	text, err := s.transcriber.Transcribe(ctx, transcription.WAV(wav))
	metrics.RecordTranscribeEnd(err == nil)
	if err != nil {
		return nil, err
	}

	return &Result{Text: text, WAV: wav, Duration: duration, Chunks: chunks, Level: level}, nil
}

// Release tears down any open stream and returns to StateIdle. It is
// idempotent and safe from any state, except that a recording being
// finalized by Stop is left for Stop to clean up.
func (s *Session) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateProcessing {
		return
	}
	s.releaseLocked("aborted")
}

// releaseLocked must be called with mu held.
func (s *Session) releaseLocked(outcome string) {
	if s.stream != nil {
		if err := s.stream.Close(); err != nil {
			s.logger.Debug().Err(err).Msg("Error closing input stream")
		}
	}
	if s.metrics != nil {
		s.metrics.RecordRecordingEnd(outcome)
	}
	s.stream = nil
	s.recording = nil
	s.pumpDone = nil
	s.metrics = nil
	s.state = StateIdle
}

func errorType(err error) string {
	switch {
	case errors.Is(err, ErrPermission):
		return "permission"
	case errors.Is(err, ErrDevice):
		return "device"
	}
	return "stream"
}
