package capture

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/voicenav/voice-gateway/internal/audio"
	"github.com/voicenav/voice-gateway/internal/transcription"
)

type fakeTranscriber struct {
	mu    sync.Mutex
	calls int
	got   []byte
	text  string
	err   error
	block chan struct{}
}

func (f *fakeTranscriber) Name() string { return "fake" }

func (f *fakeTranscriber) Transcribe(ctx context.Context, a transcription.Audio) (string, error) {
	f.mu.Lock()
	f.calls++
	f.got = a.Data
	block := f.block
	f.mu.Unlock()
	if block != nil {
		<-block
	}
	return f.text, f.err
}

func (f *fakeTranscriber) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type failingDevice struct{ err error }

func (d failingDevice) Open(context.Context, Constraints) (Stream, error) { return nil, d.err }

func newTestSession(dev Device, tr transcription.Transcriber) *Session {
	return NewSession(Options{
		Device:      dev,
		Decoder:     audio.PCM16Decoder{SampleRate: 44100, Channels: 1},
		Transcriber: tr,
		Logger:      zerolog.Nop(),
	})
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestSession_RecordAndTranscribe(t *testing.T) {
	dev := NewPushDevice(8)
	tr := &fakeTranscriber{text: "open youtube"}
	s := newTestSession(dev, tr)

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if s.State() != StateRecording {
		t.Fatalf("Expected recording, got %s", s.State())
	}

	dev.Push(audio.SamplesToBytes([]int16{0, 16384}))
	dev.Push(nil)
	dev.Push(audio.SamplesToBytes([]int16{-16384}))

	res, err := s.Stop(context.Background())
	if err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if res.Text != "open youtube" {
		t.Errorf("Expected text 'open youtube', got %q", res.Text)
	}
	if res.Chunks != 2 {
		t.Errorf("Expected 2 non-empty chunks, got %d", res.Chunks)
	}
	if len(res.WAV) != audio.WAVHeaderSize+2*3 {
		t.Errorf("Expected WAV of %d bytes, got %d", audio.WAVHeaderSize+6, len(res.WAV))
	}
	if res.Level < 0.40 || res.Level > 0.41 {
		t.Errorf("Expected RMS level around 0.408, got %.3f", res.Level)
	}
	if string(tr.got) != string(res.WAV) {
		t.Error("Expected transcriber to receive the encoded WAV")
	}
	if s.State() != StateIdle {
		t.Errorf("Expected idle after Stop, got %s", s.State())
	}
}

func TestSession_EmptyRecordingSkipsNetwork(t *testing.T) {
	dev := NewPushDevice(8)
	tr := &fakeTranscriber{text: "unused"}
	s := newTestSession(dev, tr)

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	dev.Push([]byte{})

	_, err := s.Stop(context.Background())
	if !errors.Is(err, ErrEmptyRecording) {
		t.Errorf("Expected ErrEmptyRecording, got %v", err)
	}
	if tr.Calls() != 0 {
		t.Errorf("Expected no transcription call, got %d", tr.Calls())
	}
	if s.State() != StateIdle {
		t.Errorf("Expected idle, got %s", s.State())
	}
}

func TestSession_StopWithoutStart(t *testing.T) {
	s := newTestSession(NewPushDevice(1), &fakeTranscriber{})

	if _, err := s.Stop(context.Background()); !errors.Is(err, ErrNoActiveRecording) {
		t.Errorf("Expected ErrNoActiveRecording, got %v", err)
	}
}

func TestSession_StartFailures(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"permission", ErrPermission},
		{"device", ErrDevice},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSession(failingDevice{err: tt.err}, &fakeTranscriber{})
			err := s.Start(context.Background())
			if !errors.Is(err, tt.err) {
				t.Errorf("Expected %v, got %v", tt.err, err)
			}
			if s.State() != StateIdle {
				t.Errorf("Expected idle after failed Start, got %s", s.State())
			}
		})
	}
}

func TestSession_RestartTearsDownPrevious(t *testing.T) {
	dev := NewPushDevice(8)
	s := newTestSession(dev, &fakeTranscriber{text: "second"})

	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	first := dev.current
	dev.Push([]byte{1, 0})

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("second Start failed: %v", err)
	}
	if first.Push([]byte{1, 0}) {
		t.Error("Expected first stream to be closed by the second Start")
	}

	dev.Push(audio.SamplesToBytes([]int16{5, 6}))
	res, err := s.Stop(context.Background())
	if err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if len(res.WAV) != audio.WAVHeaderSize+4 {
		t.Errorf("Expected only the second recording's samples, got %d bytes", len(res.WAV))
	}
}

func TestSession_StopWhileProcessing(t *testing.T) {
	dev := NewPushDevice(8)
	tr := &fakeTranscriber{text: "slow", block: make(chan struct{})}
	s := newTestSession(dev, tr)

	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	dev.Push([]byte{1, 0})

	done := make(chan error, 1)
	go func() {
		_, err := s.Stop(context.Background())
		done <- err
	}()
	waitFor(t, func() bool { return tr.Calls() == 1 })

	if s.State() != StateProcessing {
		t.Errorf("Expected processing, got %s", s.State())
	}
	if _, err := s.Stop(context.Background()); !errors.Is(err, ErrBusy) {
		t.Errorf("Expected ErrBusy for second Stop, got %v", err)
	}
	if err := s.Start(context.Background()); !errors.Is(err, ErrBusy) {
		t.Errorf("Expected ErrBusy for Start while processing, got %v", err)
	}

	close(tr.block)
	if err := <-done; err != nil {
		t.Errorf("Expected first Stop to succeed, got %v", err)
	}
	if s.State() != StateIdle {
		t.Errorf("Expected idle, got %s", s.State())
	}
}

func TestSession_TranscriptionFailureResets(t *testing.T) {
	dev := NewPushDevice(8)
	failure := &transcription.TranscriptionError{Message: "bad audio"}
	s := newTestSession(dev, &fakeTranscriber{err: failure})

	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	dev.Push([]byte{1, 0})

	_, err := s.Stop(context.Background())
	var te *transcription.TranscriptionError
	if !errors.As(err, &te) {
		t.Errorf("Expected TranscriptionError, got %v", err)
	}
	if s.State() != StateIdle {
		t.Errorf("Expected idle, got %s", s.State())
	}
	if err := s.Start(context.Background()); err != nil {
		t.Errorf("Expected a new recording to start after failure, got %v", err)
	}
	s.Release()
}

func TestSession_StreamLostMidRecording(t *testing.T) {
	dev := NewPushDevice(8)
	s := newTestSession(dev, &fakeTranscriber{})

	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	dev.Fail(ErrPermission)

	waitFor(t, func() bool { return s.State() == StateIdle })
	if !errors.Is(s.LastError(), ErrPermission) {
		t.Errorf("Expected LastError to be ErrPermission, got %v", s.LastError())
	}
	if _, err := s.Stop(context.Background()); !errors.Is(err, ErrNoActiveRecording) {
		t.Errorf("Expected ErrNoActiveRecording after lost stream, got %v", err)
	}
}

func TestSession_ReleaseIdempotent(t *testing.T) {
	dev := NewPushDevice(8)
	s := newTestSession(dev, &fakeTranscriber{})

	s.Release()
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	s.Release()
	s.Release()

	if s.State() != StateIdle {
		t.Errorf("Expected idle, got %s", s.State())
	}
	if dev.Push([]byte{1}) {
		t.Error("Expected stream to be closed after Release")
	}
}

func TestFFmpegDevice_Args(t *testing.T) {
	d := &FFmpegDevice{InputFormat: "avfoundation", InputDevice: "default"}
	args := d.Args(DefaultConstraints())
	joined := " " + strings.Join(args, " ") + " "

	for _, want := range []string{" -f avfoundation ", " -i :default ", " -ac 1 ", " -ar 44100 ", " -f s16le ", " -af afftdn,dynaudnorm ", " pipe:1 "} {
		if !strings.Contains(joined, want) {
			t.Errorf("Expected args to contain %q, got %q", want, joined)
		}
	}
}

func TestClassifyFFmpegError(t *testing.T) {
	cause := errors.New("exit status 1")
	if err := classifyFFmpegError("[pulse] Permission denied", cause); !errors.Is(err, ErrPermission) {
		t.Errorf("Expected ErrPermission, got %v", err)
	}
	if err := classifyFFmpegError("hw:3: No such file or directory", cause); !errors.Is(err, ErrDevice) {
		t.Errorf("Expected ErrDevice, got %v", err)
	}
	if err := classifyFFmpegError("something else", cause); err == nil {
		t.Error("Expected generic error")
	}
}
