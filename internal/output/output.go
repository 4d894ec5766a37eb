package output

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/voicenav/voice-gateway/internal/capture"
	"github.com/voicenav/voice-gateway/internal/command"
	"github.com/voicenav/voice-gateway/internal/store"
	"github.com/voicenav/voice-gateway/internal/transcription"
)

type Formatter struct {
	w io.Writer
}

func NewFormatter(w io.Writer) *Formatter {
	return &Formatter{w: w}
}

func (f *Formatter) RecordingStarted() {
	fmt.Fprintf(f.w, "🎙️  Recording... press Enter to stop\n")
}

func (f *Formatter) RecordingStopped(duration time.Duration) {
	fmt.Fprintf(f.w, "⏹️  Recording stopped (%s)\n", formatDuration(duration))
}

func (f *Formatter) Transcribing(provider string) {
	fmt.Fprintf(f.w, "📝 Transcribing audio with %s...\n", provider)
}

func (f *Formatter) Transcript(text string) {
	fmt.Fprintf(f.w, "💬 %q\n", text)
}

func (f *Formatter) Action(a command.Action) {
	switch a.Kind {
	case command.KindNavigate:
		fmt.Fprintf(f.w, "🌐 Opening %s (%s)\n", a.URL, a.Command)
	default:
		fmt.Fprintf(f.w, "🔎 Searching: %s\n", a.URL)
	}
}

func (f *Formatter) HistoryHeader(n int) {
	if n == 0 {
		fmt.Fprintf(f.w, "No transcriptions yet.\n")
		return
	}
	fmt.Fprintf(f.w, "📜 Recent transcriptions:\n\n")
}

func (f *Formatter) HistoryItem(r store.TranscriptionRecord) {
	fmt.Fprintf(f.w, "  %s  %s\n", r.CreatedAt.Local().Format("2006-01-02 15:04"), r.Text)
}

func (f *Formatter) Error(msg string) {
	fmt.Fprintf(f.w, "❌ %s\n", msg)
}

func (f *Formatter) Info(msg string) {
	fmt.Fprintf(f.w, "ℹ️  %s\n", msg)
}

func (f *Formatter) Success(msg string) {
	fmt.Fprintf(f.w, "✅ %s\n", msg)
}

func (f *Formatter) Warning(msg string) {
	fmt.Fprintf(f.w, "⚠️  %s\n", msg)
}

func (f *Formatter) Check(name string, ok bool, detail string) {
	if ok {
		fmt.Fprintf(f.w, "  ✅ %s: %s\n", name, detail)
	} else {
		fmt.Fprintf(f.w, "  ❌ %s: %s\n", name, detail)
	}
}

// Status turns a pipeline failure into the message shown to the user.
func Status(err error) string {
	var (
		upload  *transcription.UploadError
		failed  *transcription.TranscriptionError
		timeout *transcription.TimeoutError
	)
	switch {
	case errors.Is(err, capture.ErrPermission):
		return "Error accessing microphone: permission denied"
	case errors.Is(err, capture.ErrDevice):
		return "Error accessing microphone: no input device available"
	case errors.Is(err, capture.ErrEmptyRecording):
		return "No audio was recorded"
	case errors.Is(err, capture.ErrNoActiveRecording):
		return "Not recording"
	case errors.Is(err, capture.ErrBusy):
		return "Still processing the previous recording"
	case errors.As(err, &timeout):
		return "Error processing audio: transcription timed out"
	case errors.As(err, &failed):
		return "Error: " + failed.Message
	case errors.As(err, &upload):
		return "Error processing audio: " + upload.Error()
	}
	return "Error processing audio: " + err.Error()
}

func formatDuration(d time.Duration) string {
	d = d.Round(100 * time.Millisecond)
	m := d / time.Minute
	d -= m * time.Minute
	s := d.Seconds()

	if m > 0 {
		return fmt.Sprintf("%dm%04.1fs", m, s)
	}
	return fmt.Sprintf("%.1fs", s)
}
