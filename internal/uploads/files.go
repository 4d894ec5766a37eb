package uploads

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

var (
	// ErrTooLarge is returned when an upload exceeds the size limit.
	ErrTooLarge = errors.New("audio file exceeds maximum size")
	// ErrUnsupportedType is returned for content types outside the audio allow-list.
	ErrUnsupportedType = errors.New("unsupported audio type")
)

var allowedContentTypes = map[string]string{
	"audio/webm":  ".webm",
	"audio/wav":   ".wav",
	"audio/x-wav": ".wav",
	"audio/wave":  ".wav",
	"audio/mp3":   ".mp3",
	"audio/mpeg":  ".mp3",
}

// AllowedContentType reports whether contentType (parameters ignored) is
// an accepted audio upload.
func AllowedContentType(contentType string) bool {
	_, ok := allowedContentTypes[baseContentType(contentType)]
	return ok
}

func baseContentType(contentType string) string {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	return ct
}

// FileManager owns the uploads directory.
type FileManager struct {
	dir            string
	maxUploadBytes int64
	now            func() time.Time
}

// NewFileManager creates dir if needed. maxUploadBytes <= 0 disables the limit.
func NewFileManager(dir string, maxUploadBytes int64) (*FileManager, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create dir %s: %w", dir, err)
	}
	return &FileManager{dir: dir, maxUploadBytes: maxUploadBytes, now: time.Now}, nil
}

// Dir returns the uploads directory.
func (fm *FileManager) Dir() string {
	return fm.dir
}

// MaxUploadBytes returns the configured limit.
func (fm *FileManager) MaxUploadBytes() int64 {
	return fm.maxUploadBytes
}

// Save writes r to <unixms>-<name> and returns the path and byte count.
// Nothing is left on disk when it fails.
func (fm *FileManager) Save(r io.Reader, originalName, contentType string) (string, int64, error) {
	if !AllowedContentType(contentType) {
		return "", 0, fmt.Errorf("%w: %s", ErrUnsupportedType, contentType)
	}

	name := sanitizeName(originalName)
	if filepath.Ext(name) == "" {
		name += allowedContentTypes[baseContentType(contentType)]
	}
	path := filepath.Join(fm.dir, fmt.Sprintf("%d-%s", fm.now().UnixMilli(), name))

	out, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return "", 0, fmt.Errorf("create audio file: %w", err)
	}

	cleanup := func(err error) (string, int64, error) {
		out.Close()
		os.Remove(path)
		return "", 0, err
	}

	src := r
	if fm.maxUploadBytes > 0 {
		src = io.LimitReader(r, fm.maxUploadBytes+1)
	}

	n, err := io.Copy(out, src)
	if err != nil {
		return cleanup(fmt.Errorf("write audio file: %w", err))
	}
	if fm.maxUploadBytes > 0 && n > fm.maxUploadBytes {
		return cleanup(ErrTooLarge)
	}

	if err := out.Close(); err != nil {
		os.Remove(path)
		return "", 0, fmt.Errorf("close audio file: %w", err)
	}
	return path, n, nil
}

// Remove deletes path. A file that is already gone is not an error.
func (fm *FileManager) Remove(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	return nil
}

// RemoveAll deletes every regular file in the uploads directory and
// returns the count removed alongside the per-file failures.
func (fm *FileManager) RemoveAll() (int, error) {
	return fm.removeMatching(func(os.FileInfo) bool { return true })
}

// Sweep deletes files whose modification time is older than olderThan.
func (fm *FileManager) Sweep(olderThan time.Duration) (int, error) {
	cutoff := fm.now().Add(-olderThan)
	return fm.removeMatching(func(info os.FileInfo) bool {
		return info.ModTime().Before(cutoff)
	})
}

func (fm *FileManager) removeMatching(match func(os.FileInfo) bool) (int, error) {
	entries, err := os.ReadDir(fm.dir)
	if err != nil {
		return 0, fmt.Errorf("read uploads dir: %w", err)
	}

	removed := 0
	var errs []error
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			// removed concurrently
			continue
		}
		if !match(info) {
			continue
		}
		if err := fm.Remove(filepath.Join(fm.dir, entry.Name())); err != nil {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	return removed, errors.Join(errs...)
}

func sanitizeName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		}
		return '_'
	}, name)
	name = strings.TrimLeft(name, ".")
	if name == "" {
		return "recording"
	}
	return name
}
