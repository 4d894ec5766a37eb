package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Transcription providers understood by TRANSCRIPTION_PROVIDER
const (
	ProviderAssemblyAI = "assemblyai"
	ProviderLocal      = "local"
	ProviderDeepgram   = "deepgram"
	ProviderWhisper    = "whisper"
)

// Store backends understood by STORE_BACKEND
const (
	StoreFile  = "file"
	StoreMongo = "mongo"
)

// Config holds all configuration for the voice navigation gateway
type Config struct {
	// Server configuration
	Port        string   `envconfig:"PORT" default:"5000"`
	CORSOrigins []string `envconfig:"CORS_ORIGINS" default:"http://localhost:3000,http://localhost:5173"`

	// Transcription provider selection
	TranscriptionProvider string `envconfig:"TRANSCRIPTION_PROVIDER" default:"assemblyai"`
	TranscriptionLanguage string `envconfig:"TRANSCRIPTION_LANGUAGE" default:"en"`
	TranscriptionTimeout  int    `envconfig:"TRANSCRIPTION_TIMEOUT" default:"120"` // seconds, whole job

	// AssemblyAI (poll-based) configuration
	AssemblyAIAPIKey  string `envconfig:"ASSEMBLYAI_API_KEY"`
	AssemblyAIBaseURL string `envconfig:"ASSEMBLYAI_BASE_URL" default:"https://api.assemblyai.com/v2"`
	PollInterval      int    `envconfig:"POLL_INTERVAL" default:"1000"`    // milliseconds between status checks
	PollMaxAttempts   int    `envconfig:"POLL_MAX_ATTEMPTS" default:"120"` // 0 means bounded by timeout only

	// Single-shot endpoint configuration
	LocalTranscribeURL string `envconfig:"LOCAL_TRANSCRIBE_URL" default:"http://localhost:5500/stop_recording"`

	// Deepgram pre-recorded configuration
	DeepgramAPIKey string `envconfig:"DEEPGRAM_API_KEY"`
	DeepgramModel  string `envconfig:"DEEPGRAM_MODEL" default:"nova-2"`

	// OpenAI Whisper configuration
	OpenAIAPIKey string `envconfig:"OPENAI_API_KEY"`
	WhisperModel string `envconfig:"WHISPER_MODEL" default:"whisper-1"`

	// Resilience configuration
	CircuitBreakerMaxFailures  int `envconfig:"CIRCUIT_BREAKER_MAX_FAILURES" default:"5"`   // Failures before opening circuit
	CircuitBreakerResetTimeout int `envconfig:"CIRCUIT_BREAKER_RESET_TIMEOUT" default:"30"` // Seconds before attempting recovery
	RetryMaxAttempts           int `envconfig:"RETRY_MAX_ATTEMPTS" default:"3"`
	RetryInitialBackoff        int `envconfig:"RETRY_INITIAL_BACKOFF" default:"100"` // milliseconds
	ReconnectMaxAttempts       int `envconfig:"RECONNECT_MAX_ATTEMPTS" default:"5"`
	ReconnectBackoff           int `envconfig:"RECONNECT_BACKOFF" default:"1000"` // milliseconds

	// Persistence configuration
	StoreBackend  string `envconfig:"STORE_BACKEND" default:"file"`
	MongoURI      string `envconfig:"MONGODB_URI"`
	MongoDatabase string `envconfig:"MONGODB_DATABASE" default:"voicenav"`
	DataDir       string `envconfig:"DATA_DIR" default:"data"`

	// Uploads and retention
	UploadsDir           string `envconfig:"UPLOADS_DIR" default:"uploads"`
	MaxUploadMB          int    `envconfig:"MAX_UPLOAD_MB" default:"10"`
	RetentionMinutes     int    `envconfig:"RETENTION_MINUTES" default:"60"`
	SweepIntervalMinutes int    `envconfig:"SWEEP_INTERVAL_MINUTES" default:"60"`

	// Auth for search history. Empty disables the search endpoints.
	JWTSecret string `envconfig:"JWT_SECRET"`

	// Optional YAML command table replacing the built-in phrases
	CommandsFile string `envconfig:"COMMANDS_FILE"`

	// Observability configuration
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`       // Log level: debug, info, warn, error
	LogPretty      bool   `envconfig:"LOG_PRETTY" default:"false"`     // Pretty print logs (for development)
	MetricsEnabled bool   `envconfig:"METRICS_ENABLED" default:"true"` // Enable Prometheus metrics
}

// Load reads configuration from environment variables
// It first attempts to load from .env file if it exists, then from environment
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	return LoadFromEnv()
}

// LoadFromEnv loads configuration directly from environment variables
// without attempting to load .env file (useful for containerized deployments)
func LoadFromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that the selected provider and store have what they need.
func (c *Config) Validate() error {
	c.TranscriptionProvider = strings.ToLower(strings.TrimSpace(c.TranscriptionProvider))
	c.StoreBackend = strings.ToLower(strings.TrimSpace(c.StoreBackend))

	switch c.TranscriptionProvider {
	case ProviderAssemblyAI:
		if c.AssemblyAIAPIKey == "" {
			return fmt.Errorf("ASSEMBLYAI_API_KEY is required for provider %q", c.TranscriptionProvider)
		}
	case ProviderLocal:
		if c.LocalTranscribeURL == "" {
			return fmt.Errorf("LOCAL_TRANSCRIBE_URL is required for provider %q", c.TranscriptionProvider)
		}
	case ProviderDeepgram:
		if c.DeepgramAPIKey == "" {
			return fmt.Errorf("DEEPGRAM_API_KEY is required for provider %q", c.TranscriptionProvider)
		}
	case ProviderWhisper:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required for provider %q", c.TranscriptionProvider)
		}
	default:
		return fmt.Errorf("unknown TRANSCRIPTION_PROVIDER %q", c.TranscriptionProvider)
	}

	switch c.StoreBackend {
	case StoreFile:
		if c.DataDir == "" {
			return fmt.Errorf("DATA_DIR is required for the file store")
		}
	case StoreMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("MONGODB_URI is required for the mongo store")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}

	if c.MaxUploadMB <= 0 {
		return fmt.Errorf("MAX_UPLOAD_MB must be positive")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("POLL_INTERVAL must be positive")
	}

	return nil
}

// MaxUploadBytes is the upload size limit in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

// Retention is how long uploaded audio is kept before the sweep removes it.
func (c *Config) Retention() time.Duration {
	return time.Duration(c.RetentionMinutes) * time.Minute
}

// SweepInterval is the period of the retention sweep.
func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalMinutes) * time.Minute
}

// GetEnv returns the value of an environment variable or a default value
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
