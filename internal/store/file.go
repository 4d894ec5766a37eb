package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type fileTranscription struct {
	TranscriptionRecord
	AudioPath string `json:"audioPath,omitempty"`
	Seq       int64  `json:"seq"`
}

type fileSearch struct {
	SearchRecord
	Seq int64 `json:"seq"`
}

type fileData struct {
	Transcriptions []fileTranscription `json:"transcriptions"`
	Searches       []fileSearch        `json:"searches"`
	Seq            int64               `json:"seq"`
}

// FileStore keeps all records in one JSON file, rewritten atomically on
// every change. It suits a single gateway instance.
type FileStore struct {
	mu   sync.RWMutex
	path string
	data fileData
	now  func() time.Time
}

// NewFileStore opens (or creates) dataDir/store.json.
func NewFileStore(dataDir string) (*FileStore, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, storageErr("open", fmt.Errorf("create data directory: %w", err))
	}

	s := &FileStore{path: filepath.Join(dataDir, "store.json"), now: time.Now}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileStore) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = fileData{}
	file, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return s.saveLocked()
	}
	if err != nil {
		return storageErr("open", err)
	}
	defer file.Close()

	if err := json.NewDecoder(file).Decode(&s.data); err != nil {
		if errors.Is(err, io.EOF) {
			return s.saveLocked()
		}
		return storageErr("open", fmt.Errorf("decode %s: %w", s.path, err))
	}
	return nil
}

func (s *FileStore) saveLocked() error {
	tmp, err := os.CreateTemp(filepath.Dir(s.path), "store-*.json")
	if err != nil {
		return storageErr("write", err)
	}

	encoder := json.NewEncoder(tmp)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(s.data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return storageErr("write", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return storageErr("write", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return storageErr("write", err)
	}
	return nil
}

func (s *FileStore) nextSeq() int64 {
	s.data.Seq++
	return s.data.Seq
}

// SaveTranscription implements TranscriptionStore.
func (s *FileStore) SaveTranscription(ctx context.Context, text string, meta Metadata) (TranscriptionRecord, error) {
	if err := ctx.Err(); err != nil {
		return TranscriptionRecord{}, storageErr("save transcription", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec := TranscriptionRecord{
		ID:               uuid.NewString(),
		Text:             text,
		CreatedAt:        s.now().UTC(),
		Duration:         meta.Duration,
		FileSize:         meta.FileSize,
		OriginalFilename: meta.OriginalFilename,
		AudioPath:        meta.AudioPath,
	}
	s.data.Transcriptions = append(s.data.Transcriptions, fileTranscription{
		TranscriptionRecord: rec,
		AudioPath:           meta.AudioPath,
		Seq:                 s.nextSeq(),
	})

	if err := s.saveLocked(); err != nil {
		s.data.Transcriptions = s.data.Transcriptions[:len(s.data.Transcriptions)-1]
		return TranscriptionRecord{}, err
	}
	return rec, nil
}

// ListTranscriptions implements TranscriptionStore.
func (s *FileStore) ListTranscriptions(ctx context.Context, limit int) ([]TranscriptionRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, storageErr("list transcriptions", err)
	}

	s.mu.RLock()
	items := make([]fileTranscription, len(s.data.Transcriptions))
	copy(items, s.data.Transcriptions)
	s.mu.RUnlock()

	sort.Slice(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.After(items[j].CreatedAt)
		}
		return items[i].Seq > items[j].Seq
	})

	limit = normalizeLimit(limit)
	if len(items) > limit {
		items = items[:limit]
	}

	out := make([]TranscriptionRecord, 0, len(items))
	for _, it := range items {
		rec := it.TranscriptionRecord
		rec.AudioPath = it.AudioPath
		out = append(out, rec)
	}
	return out, nil
}

// DeleteAllTranscriptions implements TranscriptionStore.
func (s *FileStore) DeleteAllTranscriptions(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, storageErr("delete transcriptions", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	previous := s.data.Transcriptions
	paths := make([]string, 0, len(previous))
	for _, t := range previous {
		if t.AudioPath != "" {
			paths = append(paths, t.AudioPath)
		}
	}

	s.data.Transcriptions = nil
	if err := s.saveLocked(); err != nil {
		s.data.Transcriptions = previous
		return nil, err
	}
	return paths, nil
}

// SaveSearch implements SearchStore.
func (s *FileStore) SaveSearch(ctx context.Context, userID, text string) (SearchRecord, error) {
	if err := ctx.Err(); err != nil {
		return SearchRecord{}, storageErr("save search", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec := SearchRecord{ID: uuid.NewString(), UserID: userID, Text: text, CreatedAt: s.now().UTC()}
	s.data.Searches = append(s.data.Searches, fileSearch{SearchRecord: rec, Seq: s.nextSeq()})

	if err := s.saveLocked(); err != nil {
		s.data.Searches = s.data.Searches[:len(s.data.Searches)-1]
		return SearchRecord{}, err
	}
	return rec, nil
}

// ListSearches implements SearchStore.
func (s *FileStore) ListSearches(ctx context.Context, userID string, limit int) ([]SearchRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, storageErr("list searches", err)
	}

	s.mu.RLock()
	var items []fileSearch
	for _, it := range s.data.Searches {
		if it.UserID == userID {
			items = append(items, it)
		}
	}
	s.mu.RUnlock()

	sort.Slice(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.After(items[j].CreatedAt)
		}
		return items[i].Seq > items[j].Seq
	})

	limit = normalizeLimit(limit)
	if len(items) > limit {
		items = items[:limit]
	}

	out := make([]SearchRecord, 0, len(items))
	for _, it := range items {
		out = append(out, it.SearchRecord)
	}
	return out, nil
}

// DeleteSearch implements SearchStore.
func (s *FileStore) DeleteSearch(ctx context.Context, id, ownerID string) error {
	if err := ctx.Err(); err != nil {
		return storageErr("delete search", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, it := range s.data.Searches {
		if it.ID != id {
			continue
		}
		if it.UserID != ownerID {
			return ErrUnauthorized
		}

		previous := s.data.Searches
		s.data.Searches = append(append([]fileSearch{}, previous[:i]...), previous[i+1:]...)
		if err := s.saveLocked(); err != nil {
			s.data.Searches = previous
			return err
		}
		return nil
	}
	return ErrNotFound
}

// Ping implements Store by checking the data file is still reachable.
func (s *FileStore) Ping(ctx context.Context) error {
	if _, err := os.Stat(s.path); err != nil {
		return storageErr("ping", err)
	}
	return nil
}

// Close implements Store.
func (s *FileStore) Close(ctx context.Context) error {
	return nil
}
