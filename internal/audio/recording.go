package audio

import (
	"bytes"
	"sync"
)

// Recording accumulates encoded audio chunks in delivery order.
// Empty chunks are skipped. It is safe for concurrent use.
type Recording struct {
	mu     sync.Mutex
	chunks [][]byte
	size   int
}

// NewRecording returns an empty recording.
func NewRecording() *Recording {
	return &Recording{}
}

// Append stores a copy of chunk. It reports whether the chunk was kept.
func (r *Recording) Append(chunk []byte) bool {
	if len(chunk) == 0 {
		return false
	}
	c := make([]byte, len(chunk))
	copy(c, chunk)

	r.mu.Lock()
	r.chunks = append(r.chunks, c)
	r.size += len(c)
	r.mu.Unlock()
	return true
}

// Chunks returns the number of stored chunks.
func (r *Recording) Chunks() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.chunks)
}

// Size returns the total number of stored bytes.
func (r *Recording) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.size
}

// IsEmpty reports whether no non-empty chunk was delivered.
func (r *Recording) IsEmpty() bool {
	return r.Size() == 0
}

// Bytes concatenates every chunk into one blob.
func (r *Recording) Bytes() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out bytes.Buffer
	out.Grow(r.size)
	for _, c := range r.chunks {
		out.Write(c)
	}
	return out.Bytes()
}

