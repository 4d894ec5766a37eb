package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/voicenav/voice-gateway/internal/auth"
	"github.com/voicenav/voice-gateway/internal/store"
)

func (a *API) handleSaveSearch(c *gin.Context) {
	var payload struct {
		Text string `json:"text" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil || strings.TrimSpace(payload.Text) == "" {
		respondMessage(c, http.StatusBadRequest, "text is required")
		return
	}

	rec, err := a.store.SaveSearch(c.Request.Context(), auth.UserID(c), payload.Text)
	if err != nil {
		logger := requestLogger(c)
		logger.Error().Err(err).Msg("Failed to save search")
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (a *API) handleListSearches(c *gin.Context) {
	records, err := a.store.ListSearches(c.Request.Context(), auth.UserID(c), store.DefaultListLimit)
	if err != nil {
		logger := requestLogger(c)
		logger.Error().Err(err).Msg("Failed to list searches")
		respondError(c, err)
		return
	}
	if records == nil {
		records = []store.SearchRecord{}
	}
	c.JSON(http.StatusOK, records)
}

func (a *API) handleDeleteSearch(c *gin.Context) {
	err := a.store.DeleteSearch(c.Request.Context(), c.Param("id"), auth.UserID(c))
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"message": "Search removed"})
	case statusFor(err) == http.StatusNotFound:
		respondMessage(c, http.StatusNotFound, "Search not found")
	default:
		if statusFor(err) == http.StatusInternalServerError {
			logger := requestLogger(c)
			logger.Error().Err(err).Msg("Failed to delete search")
		}
		respondError(c, err)
	}
}
