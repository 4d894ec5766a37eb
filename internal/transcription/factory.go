package transcription

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/voicenav/voice-gateway/internal/config"
	"github.com/voicenav/voice-gateway/internal/observability"
	"github.com/voicenav/voice-gateway/internal/resilience"
)

// FromConfig builds the provider selected by TRANSCRIPTION_PROVIDER,
// wrapped with metrics and logging.
func FromConfig(cfg *config.Config, logger zerolog.Logger) (Transcriber, error) {
	retry := &resilience.RetryConfig{
		MaxAttempts:       cfg.RetryMaxAttempts,
		InitialBackoff:    time.Duration(cfg.RetryInitialBackoff) * time.Millisecond,
		MaxBackoff:        5 * time.Second,
		BackoffMultiplier: 2.0,
		Jitter:            true,
	}
	timeout := time.Duration(cfg.TranscriptionTimeout) * time.Second

	var (
		t   Transcriber
		err error
	)
	switch cfg.TranscriptionProvider {
	case config.ProviderAssemblyAI:
		breaker := resilience.NewCircuitBreaker("assemblyai",
			cfg.CircuitBreakerMaxFailures,
			time.Duration(cfg.CircuitBreakerResetTimeout)*time.Second)
		breaker.OnStateChange = func(name string, s resilience.CircuitState) {
			observability.UpdateCircuitBreakerState(name, int(s))
			logger.Warn().Str("service", name).Str("state", s.String()).Msg("Circuit breaker state changed")
		}
		breaker.OnFailure = observability.IncrementCircuitBreakerFailures

		t, err = NewAssemblyAI(AssemblyAIConfig{
			BaseURL:      cfg.AssemblyAIBaseURL,
			APIKey:       cfg.AssemblyAIAPIKey,
			LanguageCode: cfg.TranscriptionLanguage,
			Poll: resilience.PollPolicy{
				Interval:    time.Duration(cfg.PollInterval) * time.Millisecond,
				MaxAttempts: cfg.PollMaxAttempts,
				Timeout:     timeout,
			},
			Retry:   retry,
			Breaker: breaker,
			Logger:  logger,
		})
	case config.ProviderLocal:
		t, err = NewSingleShot(SingleShotConfig{
			Endpoint:   cfg.LocalTranscribeURL,
			Retry:      retry,
			HTTPClient: &http.Client{Timeout: timeout},
		})
	case config.ProviderDeepgram:
		t, err = NewDeepgram(DeepgramConfig{
			APIKey:   cfg.DeepgramAPIKey,
			Model:    cfg.DeepgramModel,
			Language: cfg.TranscriptionLanguage,
		})
	case config.ProviderWhisper:
		t, err = NewWhisper(WhisperConfig{
			APIKey:   cfg.OpenAIAPIKey,
			Model:    cfg.WhisperModel,
			Language: cfg.TranscriptionLanguage,
		})
	default:
		return nil, fmt.Errorf("unknown transcription provider %q", cfg.TranscriptionProvider)
	}
	if err != nil {
		return nil, err
	}

	return Instrument(t, logger), nil
}

// Instrument wraps t so every call is timed, counted and logged.
func Instrument(t Transcriber, logger zerolog.Logger) Transcriber {
	return &instrumented{next: t, logger: logger.With().Str("provider", t.Name()).Logger()}
}

type instrumented struct {
	next   Transcriber
	logger zerolog.Logger
}

func (i *instrumented) Name() string { return i.next.Name() }

func (i *instrumented) Transcribe(ctx context.Context, audio Audio) (string, error) {
	start := time.Now()
	text, err := i.next.Transcribe(ctx, audio)
	elapsed := time.Since(start)

	observability.RecordTranscription(i.next.Name(), err == nil, elapsed)
	if err != nil {
		observability.RecordError(Kind(err), "transcription")
		i.logger.Error().Err(err).Int("bytes", len(audio.Data)).Dur("elapsed", elapsed).Msg("Transcription failed")
		return "", err
	}

	i.logger.Info().Int("bytes", len(audio.Data)).Int("chars", len(text)).Dur("elapsed", elapsed).Msg("Transcription finished")
	return text, nil
}
