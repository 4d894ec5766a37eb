package capture

import (
	"context"
	"sync"
)

// PushDevice is a Device fed by the caller, e.g. from WebSocket frames.
// Each Open starts a new stream; Push writes into the current one.
type PushDevice struct {
	buffer int

	mu      sync.Mutex
	current *PushStream
}

// NewPushDevice creates a push device whose streams buffer up to n chunks.
func NewPushDevice(n int) *PushDevice {
	if n <= 0 {
		n = 256
	}
	return &PushDevice{buffer: n}
}

// Open implements Device.
func (d *PushDevice) Open(_ context.Context, _ Constraints) (Stream, error) {
	s := &PushStream{chunks: make(chan []byte, d.buffer)}
	d.mu.Lock()
	d.current = s
	d.mu.Unlock()
	return s, nil
}

// Push delivers a chunk to the open stream. It reports false when no
// stream is open.
func (d *PushDevice) Push(chunk []byte) bool {
	d.mu.Lock()
	s := d.current
	d.mu.Unlock()
	if s == nil {
		return false
	}
	return s.Push(chunk)
}

// Fail ends the open stream with err, as if the input had been lost.
func (d *PushDevice) Fail(err error) {
	d.mu.Lock()
	s := d.current
	d.mu.Unlock()
	if s != nil {
		s.CloseWithError(err)
	}
}

// PushStream is the Stream returned by PushDevice.
type PushStream struct {
	mu     sync.Mutex
	chunks chan []byte
	closed bool
	err    error
}

// Push delivers a chunk. It reports false after the stream was closed.
func (s *PushStream) Push(chunk []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	c := make([]byte, len(chunk))
	copy(c, chunk)
	s.chunks <- c
	return true
}

func (s *PushStream) Chunks() <-chan []byte { return s.chunks }

func (s *PushStream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *PushStream) Close() error {
	s.CloseWithError(nil)
	return nil
}

// CloseWithError closes the stream; a non-nil err is reported by Err.
func (s *PushStream) CloseWithError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.err = err
	close(s.chunks)
}
