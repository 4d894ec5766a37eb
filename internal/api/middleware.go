package api

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/voicenav/voice-gateway/internal/auth"
	"github.com/voicenav/voice-gateway/internal/observability"
)

const (
	correlationHeader = "X-Correlation-ID"
	loggerKey         = "api.logger"
)

// multipartOverhead is allowed on top of the upload limit for form
// boundaries and headers.
const multipartOverhead = 1 << 20

// CORS allows the configured browser origins.
func CORS(origins []string) gin.HandlerFunc {
	config := cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With", auth.HeaderToken, correlationHeader},
		ExposeHeaders:    []string{correlationHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 {
		config.AllowOrigins = nil
		config.AllowAllOrigins = true
		config.AllowCredentials = false
	}
	return cors.New(config)
}

// RequestLogger attaches a correlation-scoped logger to every request and
// logs the outcome.
func RequestLogger(base zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		logger, id := observability.WithCorrelationID(base, c.GetHeader(correlationHeader))
		c.Set(loggerKey, logger)
		c.Header(correlationHeader, id)

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		event := logger.Info()
		if c.Writer.Status() >= http.StatusInternalServerError {
			event = logger.Error()
		} else if c.Writer.Status() >= http.StatusBadRequest {
			event = logger.Warn()
		}
		event.
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("Request handled")
	}
}

// MaxBodySize caps request bodies.
func MaxBodySize(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limit > 0 {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}
		c.Next()
	}
}

func requestLogger(c *gin.Context) zerolog.Logger {
	if v, ok := c.Get(loggerKey); ok {
		if logger, ok := v.(zerolog.Logger); ok {
			return logger
		}
	}
	return observability.GetLogger()
}
