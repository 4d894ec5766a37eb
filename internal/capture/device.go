package capture

import (
	"context"
	"errors"

	"github.com/voicenav/voice-gateway/internal/audio"
)

var (
	// ErrPermission means access to the microphone was denied.
	ErrPermission = errors.New("capture: microphone permission denied")
	// ErrDevice means no usable input device is available.
	ErrDevice = errors.New("capture: no input device available")
	// ErrNoActiveRecording is returned by Stop when nothing is recording.
	ErrNoActiveRecording = errors.New("capture: no active recording")
	// ErrEmptyRecording is returned by Stop when no audio was delivered.
	ErrEmptyRecording = errors.New("capture: recording is empty")
	// ErrBusy is returned while a previous recording is being finalized.
	ErrBusy = errors.New("capture: previous recording is still processing")
)

// Constraints describe the requested input format.
type Constraints struct {
	Channels         int
	SampleRate       int
	SampleSize       int
	EchoCancellation bool
	NoiseSuppression bool
	AutoGainControl  bool
}

// DefaultConstraints is mono 44.1 kHz 16-bit with all input processing on.
func DefaultConstraints() Constraints {
	return Constraints{
		Channels:         1,
		SampleRate:       44100,
		SampleSize:       16,
		EchoCancellation: true,
		NoiseSuppression: true,
		AutoGainControl:  true,
	}
}

// Device opens audio input streams.
type Device interface {
	// Open starts capturing. It fails with an error wrapping ErrPermission
	// or ErrDevice when the input cannot be acquired.
	Open(ctx context.Context, c Constraints) (Stream, error)
}

// Stream delivers encoded audio chunks until it is closed or fails.
type Stream interface {
	// Chunks is closed once the stream has delivered its last chunk.
	Chunks() <-chan []byte
	// Err reports why Chunks was closed; nil after a normal Close.
	Err() error
	// Close stops the input. It is safe to call more than once.
	Close() error
}

// Decoder turns the concatenated chunks into sample data.
type Decoder interface {
	Decode(ctx context.Context, data []byte) (*audio.Buffer, error)
}
