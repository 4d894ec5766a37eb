package api

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/voicenav/voice-gateway/internal/audio"
	"github.com/voicenav/voice-gateway/internal/command"
	"github.com/voicenav/voice-gateway/internal/observability"
	"github.com/voicenav/voice-gateway/internal/store"
	"github.com/voicenav/voice-gateway/internal/transcription"
	"github.com/voicenav/voice-gateway/internal/uploads"
)

type transcriptionView struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Duration  float64   `json:"duration"`
	FileSize  int64     `json:"fileSize"`
	Filename  string    `json:"filename"`
	CreatedAt time.Time `json:"createdAt"`
}

type transcribeResponse struct {
	Success       bool              `json:"success"`
	Transcription transcriptionView `json:"transcription"`
	Action        command.Action    `json:"action"`
}

// handleTranscribe stores the upload, transcribes it and persists the
// result. The uploaded file is removed if any step fails.
func (a *API) handleTranscribe(c *gin.Context) {
	logger := requestLogger(c)

	fileHeader, err := c.FormFile("audio")
	if err != nil {
		if isTooLarge(err) {
			respondError(c, uploads.ErrTooLarge)
			return
		}
		respondMessage(c, http.StatusBadRequest, "No audio file provided")
		return
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if !uploads.AllowedContentType(contentType) {
		respondMessage(c, http.StatusUnsupportedMediaType, "Invalid file type. Only audio files are allowed.")
		return
	}

	upload, err := fileHeader.Open()
	if err != nil {
		logger.Error().Err(err).Msg("Failed to open uploaded file")
		respondMessage(c, http.StatusInternalServerError, "unable to read uploaded file")
		return
	}
	defer upload.Close()

	path, size, err := a.files.Save(upload, fileHeader.Filename, contentType)
	if err != nil {
		logger.Warn().Err(err).Str("filename", fileHeader.Filename).Msg("Failed to save upload")
		respondError(c, err)
		return
	}
	observability.RecordAudioBytes("upload", int(size))

	fail := func(err error) {
		if rmErr := a.files.Remove(path); rmErr != nil {
			logger.Error().Err(rmErr).Str("path", path).Msg("Failed to delete upload after error")
		}
		respondError(c, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		fail(err)
		return
	}

	ctx := c.Request.Context()
	text, err := a.transcriber.Transcribe(ctx, transcription.Audio{
		Data:        data,
		Filename:    filepath.Base(path),
		ContentType: contentType,
	})
	if err != nil {
		logger.Error().Err(err).Str("kind", transcription.Kind(err)).Msg("Transcription failed")
		fail(err)
		return
	}

	rec, err := a.store.SaveTranscription(ctx, text, store.Metadata{
		Duration:         uploadDuration(data, contentType),
		FileSize:         size,
		OriginalFilename: fileHeader.Filename,
		AudioPath:        path,
	})
	if err != nil {
		logger.Error().Err(err).Msg("Failed to persist transcription")
		fail(err)
		return
	}

	c.JSON(http.StatusOK, transcribeResponse{
		Success: true,
		Transcription: transcriptionView{
			ID:        rec.ID,
			Text:      rec.Text,
			Duration:  rec.Duration,
			FileSize:  rec.FileSize,
			Filename:  rec.OriginalFilename,
			CreatedAt: rec.CreatedAt,
		},
		Action: a.interpreter.Interpret(text),
	})
}

type singleShotResponse struct {
	Status string          `json:"status"`
	Text   string          `json:"text,omitempty"`
	Error  string          `json:"error,omitempty"`
	Action *command.Action `json:"action,omitempty"`
}

// handleSingleShot serves the single-shot contract used by the capture
// client: one multipart request in, {status, text} out. Nothing is kept.
func (a *API) handleSingleShot(c *gin.Context) {
	logger := requestLogger(c)

	fileHeader, err := c.FormFile("audio_data")
	if err != nil {
		fileHeader, err = c.FormFile("audio")
	}
	if err != nil {
		status := http.StatusBadRequest
		message := "No audio file provided"
		if isTooLarge(err) {
			status = http.StatusRequestEntityTooLarge
			message = uploads.ErrTooLarge.Error()
		}
		c.AbortWithStatusJSON(status, singleShotResponse{Status: "error", Error: message})
		return
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" || strings.EqualFold(contentType, "application/octet-stream") {
		contentType = "audio/wav"
	}
	if !uploads.AllowedContentType(contentType) {
		c.AbortWithStatusJSON(http.StatusUnsupportedMediaType, singleShotResponse{Status: "error", Error: uploads.ErrUnsupportedType.Error()})
		return
	}

	upload, err := fileHeader.Open()
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, singleShotResponse{Status: "error", Error: "unable to read uploaded file"})
		return
	}
	defer upload.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, upload); err != nil {
		c.AbortWithStatusJSON(statusFor(err), singleShotResponse{Status: "error", Error: err.Error()})
		return
	}
	observability.RecordAudioBytes("upload", buf.Len())

	text, err := a.transcriber.Transcribe(c.Request.Context(), transcription.Audio{
		Data:        buf.Bytes(),
		Filename:    fileHeader.Filename,
		ContentType: contentType,
	})
	if err != nil {
		logger.Error().Err(err).Str("kind", transcription.Kind(err)).Msg("Single-shot transcription failed")
		c.AbortWithStatusJSON(statusFor(err), singleShotResponse{Status: "error", Error: err.Error()})
		return
	}

	action := a.interpreter.Interpret(text)
	c.JSON(http.StatusOK, singleShotResponse{Status: "completed", Text: text, Action: &action})
}

func (a *API) handleListTranscriptions(c *gin.Context) {
	limit := store.DefaultListLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondMessage(c, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	records, err := a.store.ListTranscriptions(c.Request.Context(), limit)
	if err != nil {
		logger := requestLogger(c)
		logger.Error().Err(err).Msg("Failed to list transcriptions")
		respondError(c, err)
		return
	}
	if records == nil {
		records = []store.TranscriptionRecord{}
	}
	c.JSON(http.StatusOK, records)
}

// handleClearTranscriptions deletes every record, then best-effort
// removes the audio files. File errors never fail the request.
func (a *API) handleClearTranscriptions(c *gin.Context) {
	logger := requestLogger(c)

	paths, err := a.store.DeleteAllTranscriptions(c.Request.Context())
	if err != nil {
		logger.Error().Err(err).Msg("Failed to delete transcriptions")
		respondError(c, err)
		return
	}

	for _, path := range paths {
		if err := a.files.Remove(path); err != nil {
			logger.Error().Err(err).Str("path", path).Msg("Error deleting file")
		}
	}
	if removed, err := a.files.RemoveAll(); err != nil {
		logger.Error().Err(err).Msg("Error clearing uploads directory")
	} else if removed > 0 {
		logger.Info().Int("removed", removed).Msg("Cleared uploads directory")
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "All transcriptions cleared"})
}

func (a *API) handleInterpret(c *gin.Context) {
	var payload struct {
		Text string `json:"text" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondMessage(c, http.StatusBadRequest, "text is required")
		return
	}

	c.JSON(http.StatusOK, a.interpreter.Interpret(payload.Text))
}

func (a *API) handleListCommands(c *gin.Context) {
	c.JSON(http.StatusOK, a.interpreter.Table())
}

func isTooLarge(err error) bool {
	var maxBytes *http.MaxBytesError
	return errors.As(err, &maxBytes) || errors.Is(err, uploads.ErrTooLarge)
}

// uploadDuration is known only for WAV uploads; 0 otherwise.
func uploadDuration(data []byte, contentType string) float64 {
	if !strings.Contains(strings.ToLower(contentType), "wav") {
		return 0
	}
	d, err := audio.WAVDuration(data)
	if err != nil {
		return 0
	}
	return d.Seconds()
}
