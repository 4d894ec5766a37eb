package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	t.Setenv("ASSEMBLYAI_API_KEY", "test-assembly-key")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.AssemblyAIAPIKey != "test-assembly-key" {
		t.Errorf("Expected AssemblyAIAPIKey 'test-assembly-key', got '%s'", cfg.AssemblyAIAPIKey)
	}
}

func TestLoad_MissingProviderKey(t *testing.T) {
	t.Setenv("ASSEMBLYAI_API_KEY", "")
	t.Setenv("TRANSCRIPTION_PROVIDER", "assemblyai")

	_, err := Load()
	if err == nil {
		t.Error("Expected error when ASSEMBLYAI_API_KEY is missing")
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ASSEMBLYAI_API_KEY", "test-assembly-key")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() failed: %v", err)
	}

	if cfg.Port != "5000" {
		t.Errorf("Expected default Port '5000', got '%s'", cfg.Port)
	}
	if cfg.TranscriptionProvider != ProviderAssemblyAI {
		t.Errorf("Expected default provider %q, got %q", ProviderAssemblyAI, cfg.TranscriptionProvider)
	}
	if cfg.AssemblyAIBaseURL != "https://api.assemblyai.com/v2" {
		t.Errorf("Expected default AssemblyAIBaseURL, got '%s'", cfg.AssemblyAIBaseURL)
	}
	if cfg.TranscriptionLanguage != "en" {
		t.Errorf("Expected default TranscriptionLanguage 'en', got '%s'", cfg.TranscriptionLanguage)
	}
	if cfg.PollInterval != 1000 {
		t.Errorf("Expected default PollInterval 1000, got %d", cfg.PollInterval)
	}
	if cfg.StoreBackend != StoreFile {
		t.Errorf("Expected default StoreBackend %q, got %q", StoreFile, cfg.StoreBackend)
	}
	if cfg.MaxUploadBytes() != 10<<20 {
		t.Errorf("Expected default MaxUploadBytes %d, got %d", 10<<20, cfg.MaxUploadBytes())
	}
	if cfg.Retention() != time.Hour {
		t.Errorf("Expected default Retention 1h, got %v", cfg.Retention())
	}
	if cfg.SweepInterval() != time.Hour {
		t.Errorf("Expected default SweepInterval 1h, got %v", cfg.SweepInterval())
	}
	if len(cfg.CORSOrigins) != 2 {
		t.Errorf("Expected 2 default CORS origins, got %v", cfg.CORSOrigins)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name: "local provider",
			cfg: Config{TranscriptionProvider: "LOCAL", LocalTranscribeURL: "http://localhost:5500/stop_recording",
				StoreBackend: "file", DataDir: "data", MaxUploadMB: 10, PollInterval: 1000},
		},
		{
			name:    "deepgram without key",
			cfg:     Config{TranscriptionProvider: "deepgram", StoreBackend: "file", DataDir: "data", MaxUploadMB: 10, PollInterval: 1000},
			wantErr: true,
		},
		{
			name: "whisper with key",
			cfg: Config{TranscriptionProvider: "whisper", OpenAIAPIKey: "sk-test",
				StoreBackend: "file", DataDir: "data", MaxUploadMB: 10, PollInterval: 1000},
		},
		{
			name: "mongo without uri",
			cfg: Config{TranscriptionProvider: "local", LocalTranscribeURL: "http://x",
				StoreBackend: "mongo", MaxUploadMB: 10, PollInterval: 1000},
			wantErr: true,
		},
		{
			name:    "unknown provider",
			cfg:     Config{TranscriptionProvider: "siri", StoreBackend: "file", DataDir: "data", MaxUploadMB: 10, PollInterval: 1000},
			wantErr: true,
		},
		{
			name: "zero upload limit",
			cfg: Config{TranscriptionProvider: "local", LocalTranscribeURL: "http://x",
				StoreBackend: "file", DataDir: "data", PollInterval: 1000},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_ResilienceDefaults(t *testing.T) {
	t.Setenv("ASSEMBLYAI_API_KEY", "test-assembly-key")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.CircuitBreakerMaxFailures != 5 {
		t.Errorf("Expected default CircuitBreakerMaxFailures 5, got %d", cfg.CircuitBreakerMaxFailures)
	}
	if cfg.CircuitBreakerResetTimeout != 30 {
		t.Errorf("Expected default CircuitBreakerResetTimeout 30, got %d", cfg.CircuitBreakerResetTimeout)
	}
	if cfg.RetryMaxAttempts != 3 {
		t.Errorf("Expected default RetryMaxAttempts 3, got %d", cfg.RetryMaxAttempts)
	}
	if cfg.ReconnectMaxAttempts != 5 {
		t.Errorf("Expected default ReconnectMaxAttempts 5, got %d", cfg.ReconnectMaxAttempts)
	}
}

func TestGetEnv(t *testing.T) {
	t.Setenv("TEST_KEY", "test-value")

	value := GetEnv("TEST_KEY", "default")
	if value != "test-value" {
		t.Errorf("Expected 'test-value', got '%s'", value)
	}

	value = GetEnv("NON_EXISTENT_KEY", "default")
	if value != "default" {
		t.Errorf("Expected 'default', got '%s'", value)
	}
}

func TestLoadCLI_FileAndOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `server_url = "http://gateway:5000"
provider = "AssemblyAI"
input_device = "hw:1"
open_browser = true
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("VOICENAV_CONFIG", path)
	t.Setenv("VOICENAV_INPUT_DEVICE", "hw:2")
	t.Setenv("VOICENAV_SERVER_URL", "")
	t.Setenv("VOICENAV_PROVIDER", "")

	cfg, err := LoadCLI()
	if err != nil {
		t.Fatalf("LoadCLI() failed: %v", err)
	}

	if cfg.ServerURL != "http://gateway:5000" {
		t.Errorf("Expected ServerURL from file, got '%s'", cfg.ServerURL)
	}
	if cfg.Provider != ProviderAssemblyAI {
		t.Errorf("Expected provider %q, got %q", ProviderAssemblyAI, cfg.Provider)
	}
	if cfg.InputDevice != "hw:2" {
		t.Errorf("Expected env override 'hw:2', got '%s'", cfg.InputDevice)
	}
	if !cfg.OpenBrowser {
		t.Error("Expected OpenBrowser true")
	}
	if cfg.Language != "en" {
		t.Errorf("Expected default language 'en', got '%s'", cfg.Language)
	}
}

func TestLoadCLI_NoFile(t *testing.T) {
	t.Setenv("VOICENAV_CONFIG", filepath.Join(t.TempDir(), "missing.toml"))
	t.Setenv("VOICENAV_SERVER_URL", "")
	t.Setenv("VOICENAV_PROVIDER", "")

	cfg, err := LoadCLI()
	if err != nil {
		t.Fatalf("LoadCLI() failed: %v", err)
	}
	if cfg.ServerURL != "http://localhost:5000" {
		t.Errorf("Expected default ServerURL, got '%s'", cfg.ServerURL)
	}
	if cfg.Provider != ProviderLocal {
		t.Errorf("Expected default provider %q, got %q", ProviderLocal, cfg.Provider)
	}
}
