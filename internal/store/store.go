package store

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DefaultListLimit caps list queries when the caller passes no limit.
const DefaultListLimit = 10

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("store: record not found")
	// ErrUnauthorized is returned when the caller does not own the record.
	ErrUnauthorized = errors.New("store: not authorized")
)

// StorageError wraps a failure of the persistence backend.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s failed: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

// Metadata describes the audio a transcription came from.
type Metadata struct {
	Duration         float64 // seconds, 0 if unknown
	FileSize         int64
	OriginalFilename string
	AudioPath        string // server-side only
}

// TranscriptionRecord is a persisted transcription. AudioPath is never
// serialized to clients.
type TranscriptionRecord struct {
	ID               string    `json:"id"`
	Text             string    `json:"text"`
	CreatedAt        time.Time `json:"createdAt"`
	Duration         float64   `json:"duration,omitempty"`
	FileSize         int64     `json:"fileSize,omitempty"`
	OriginalFilename string    `json:"originalFilename,omitempty"`
	AudioPath        string    `json:"-"`
}

// SearchRecord is a saved query owned by one user.
type SearchRecord struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// TranscriptionStore persists transcriptions.
type TranscriptionStore interface {
	SaveTranscription(ctx context.Context, text string, meta Metadata) (TranscriptionRecord, error)
	// ListTranscriptions returns at most limit records, most recent first.
	ListTranscriptions(ctx context.Context, limit int) ([]TranscriptionRecord, error)
	// DeleteAllTranscriptions removes every record and returns the audio
	// paths they referenced so the caller can remove the files.
	DeleteAllTranscriptions(ctx context.Context) ([]string, error)
}

// SearchStore persists per-user searches.
type SearchStore interface {
	SaveSearch(ctx context.Context, userID, text string) (SearchRecord, error)
	ListSearches(ctx context.Context, userID string, limit int) ([]SearchRecord, error)
	// DeleteSearch fails with ErrNotFound or ErrUnauthorized.
	DeleteSearch(ctx context.Context, id, ownerID string) error
}

// Store is a complete backend.
type Store interface {
	TranscriptionStore
	SearchStore
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return limit
}
