package transcription

import (
	"errors"
	"fmt"
	"time"

	"github.com/voicenav/voice-gateway/internal/resilience"
)

// ErrEmptyAudio is returned when there are no bytes to transcribe.
var ErrEmptyAudio = errors.New("transcription: empty audio")

// UploadError is a network or HTTP failure while sending audio or a request.
type UploadError struct {
	Op         string // upload, submit, status, transcribe
	StatusCode int    // 0 when no response was received
	Message    string
	Err        error
}

func (e *UploadError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s failed with HTTP %d: %s", e.Op, e.StatusCode, msg)
	}
	return fmt.Sprintf("%s failed: %s", e.Op, msg)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// Temporary reports whether retrying the request may succeed. Without an
// HTTP status the transport error decides.
func (e *UploadError) Temporary() bool {
	if e.StatusCode == 0 {
		return e.Err == nil || resilience.IsRetryableNetworkError(e.Err)
	}
	return e.StatusCode == 429 || e.StatusCode >= 500
}

// TranscriptionError is a provider-reported processing failure.
type TranscriptionError struct {
	JobID   string
	Message string
}

func (e *TranscriptionError) Error() string {
	return "Transcription failed: " + e.Message
}

// TimeoutError is returned when a job does not finish within the poll policy.
type TimeoutError struct {
	JobID    string
	Attempts int
	Elapsed  time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("transcription %s timed out after %d status checks (%s)", e.JobID, e.Attempts, e.Elapsed.Round(time.Millisecond))
}

// IsTimeout reports whether err is a TimeoutError.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}

// isRetryableUpload is the retry predicate for upload and submit calls.
func isRetryableUpload(err error) bool {
	var ue *UploadError
	if errors.As(err, &ue) {
		return ue.Temporary()
	}
	return resilience.IsRetryableNetworkError(err)
}

// Kind classifies a failure as upload, transcription, timeout or other.
func Kind(err error) string {
	var (
		ue *UploadError
		te *TranscriptionError
		to *TimeoutError
	)
	switch {
	case errors.As(err, &to):
		return "timeout"
	case errors.As(err, &te):
		return "transcription"
	case errors.As(err, &ue):
		return "upload"
	}
	return "other"
}
