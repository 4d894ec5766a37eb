package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/voicenav/voice-gateway/internal/store"
	"github.com/voicenav/voice-gateway/internal/transcription"
	"github.com/voicenav/voice-gateway/internal/uploads"
)

// statusFor maps domain failures onto HTTP status codes.
func statusFor(err error) int {
	var (
		maxBytes *http.MaxBytesError
		upload   *transcription.UploadError
		failed   *transcription.TranscriptionError
		storage  *store.StorageError
	)

	switch {
	case errors.Is(err, uploads.ErrTooLarge), errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, uploads.ErrUnsupportedType):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, transcription.ErrEmptyAudio):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrUnauthorized):
		return http.StatusUnauthorized
	case transcription.IsTimeout(err):
		return http.StatusGatewayTimeout
	case errors.As(err, &upload), errors.As(err, &failed):
		return http.StatusBadGateway
	case errors.As(err, &storage):
		return http.StatusInternalServerError
	}
	return http.StatusInternalServerError
}

// messageFor keeps internal details out of 5xx storage responses.
func messageFor(err error, status int) string {
	switch {
	case errors.Is(err, uploads.ErrTooLarge), status == http.StatusRequestEntityTooLarge:
		return uploads.ErrTooLarge.Error()
	case errors.Is(err, store.ErrNotFound):
		return "Not found"
	case errors.Is(err, store.ErrUnauthorized):
		return "User not authorized"
	case status == http.StatusInternalServerError:
		return "Internal server error"
	}
	return err.Error()
}

func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	respondMessage(c, status, messageFor(err, status))
}

func respondMessage(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}
