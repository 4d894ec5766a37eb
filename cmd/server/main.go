package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/voicenav/voice-gateway/internal/api"
	"github.com/voicenav/voice-gateway/internal/auth"
	"github.com/voicenav/voice-gateway/internal/command"
	"github.com/voicenav/voice-gateway/internal/config"
	"github.com/voicenav/voice-gateway/internal/observability"
	"github.com/voicenav/voice-gateway/internal/resilience"
	"github.com/voicenav/voice-gateway/internal/store"
	"github.com/voicenav/voice-gateway/internal/transcription"
	"github.com/voicenav/voice-gateway/internal/uploads"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		// Use fmt for fatal errors before logger is initialized
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize structured logger
	observability.InitLogger(cfg.LogLevel, cfg.LogPretty)
	logger := observability.GetLogger()

	logger.Info().
		Str("port", cfg.Port).
		Str("provider", cfg.TranscriptionProvider).
		Str("store", cfg.StoreBackend).
		Str("log_level", cfg.LogLevel).
		Bool("metrics_enabled", cfg.MetricsEnabled).
		Msg("Voice navigation gateway starting")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to open store")
	}

	files, err := uploads.NewFileManager(cfg.UploadsDir, cfg.MaxUploadBytes())
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to prepare uploads directory")
	}

	transcriber, err := transcription.FromConfig(cfg, observability.Component("transcription"))
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create transcription client")
	}

	table, err := command.LoadTable(cfg.CommandsFile)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load command table")
	}

	gin.SetMode(gin.ReleaseMode)
	router := api.NewRouter(api.Deps{
		Store:          st,
		Files:          files,
		Transcriber:    transcriber,
		Interpreter:    command.NewInterpreter(table),
		Auth:           auth.NewVerifier(cfg.JWTSecret),
		Logger:         observability.Component("http"),
		CORSOrigins:    cfg.CORSOrigins,
		MetricsEnabled: cfg.MetricsEnabled,
		Readiness: []observability.DependencyCheck{
			{Name: "store", Check: st.Ping},
			{Name: "uploads", Check: func(ctx context.Context) error {
				_, err := os.Stat(files.Dir())
				return err
			}},
		},
	})

	sweeper := uploads.NewSweeper(files, cfg.Retention(), cfg.SweepInterval(), logger)
	go sweeper.Run(ctx)

	// Transcription can poll for up to TRANSCRIPTION_TIMEOUT
	writeTimeout := time.Duration(cfg.TranscriptionTimeout)*time.Second + 30*time.Second

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: writeTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("endpoint", fmt.Sprintf("ws://localhost:%s/streams/capture", cfg.Port)).
			Msg("Server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}
	if err := st.Close(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Failed to close store")
	}

	logger.Info().Msg("Server exited gracefully")
}

func openStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (store.Store, error) {
	switch cfg.StoreBackend {
	case config.StoreMongo:
		reconnect := &resilience.ReconnectConfig{
			MaxAttempts: cfg.ReconnectMaxAttempts,
			Backoff:     time.Duration(cfg.ReconnectBackoff) * time.Millisecond,
			Multiplier:  2.0,
			MaxBackoff:  30 * time.Second,
		}
		return store.NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDatabase, reconnect, observability.Component("store"))
	default:
		logger.Info().Str("dir", cfg.DataDir).Msg("Using file store")
		return store.NewFileStore(cfg.DataDir)
	}
}
