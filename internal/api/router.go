package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/voicenav/voice-gateway/internal/auth"
	"github.com/voicenav/voice-gateway/internal/command"
	"github.com/voicenav/voice-gateway/internal/observability"
	"github.com/voicenav/voice-gateway/internal/store"
	"github.com/voicenav/voice-gateway/internal/transcription"
	"github.com/voicenav/voice-gateway/internal/uploads"
)

// Deps are the collaborators the HTTP layer needs.
type Deps struct {
	Store       store.Store
	Files       *uploads.FileManager
	Transcriber transcription.Transcriber
	Interpreter *command.Interpreter
	Auth        *auth.Verifier // nil disables search history
	Logger      zerolog.Logger

	CORSOrigins    []string
	MetricsEnabled bool
	Readiness      []observability.DependencyCheck
}

// API holds the handlers.
type API struct {
	store       store.Store
	files       *uploads.FileManager
	transcriber transcription.Transcriber
	interpreter *command.Interpreter
	logger      zerolog.Logger
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(deps Deps) *gin.Engine {
	interpreter := deps.Interpreter
	if interpreter == nil {
		interpreter = command.NewInterpreter(nil)
	}

	a := &API{
		store:       deps.Store,
		files:       deps.Files,
		transcriber: deps.Transcriber,
		interpreter: interpreter,
		logger:      deps.Logger,
	}

	var bodyLimit int64
	if deps.Files != nil && deps.Files.MaxUploadBytes() > 0 {
		bodyLimit = deps.Files.MaxUploadBytes() + multipartOverhead
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(RequestLogger(deps.Logger))
	engine.Use(CORS(deps.CORSOrigins))

	engine.GET("/health", gin.WrapF(observability.HealthCheckHandler()))
	engine.GET("/ready", gin.WrapF(observability.ReadinessHandler(deps.Readiness...)))
	if deps.MetricsEnabled {
		engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	limited := engine.Group("/", MaxBodySize(bodyLimit))
	{
		limited.POST("/stop_recording", a.handleSingleShot)
		limited.POST("/transcribe", a.handleSingleShot)
	}

	api := engine.Group("/api", MaxBodySize(bodyLimit))
	{
		api.POST("/transcribe", a.handleTranscribe)
		api.GET("/transcriptions", a.handleListTranscriptions)
		api.DELETE("/transcriptions", a.handleClearTranscriptions)
		api.POST("/interpret", a.handleInterpret)
		api.GET("/commands", a.handleListCommands)

		search := api.Group("/search", deps.Auth.Middleware())
		{
			search.POST("", a.handleSaveSearch)
			search.GET("", a.handleListSearches)
			search.DELETE("/:id", a.handleDeleteSearch)
		}
	}

	engine.GET("/streams/capture", a.handleCaptureStream)

	engine.NoRoute(func(c *gin.Context) {
		respondMessage(c, http.StatusNotFound, "route not found")
	})

	if deps.Auth == nil {
		deps.Logger.Warn().Msg("JWT_SECRET not set, search history endpoints will reject every request")
	}

	return engine
}
