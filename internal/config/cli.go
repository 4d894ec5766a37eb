package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// CLIConfig is the configuration of the voicenav command line client.
type CLIConfig struct {
	ServerURL    string // gateway base URL, used for history and single-shot transcription
	Provider     string // local (gateway /stop_recording) or assemblyai
	AssemblyKey  string
	Language     string
	InputFormat  string // ffmpeg input format, e.g. pulse, avfoundation, dshow
	InputDevice  string // ffmpeg input device name
	CommandsFile string
	OpenBrowser  bool
}

type cliFileConfig struct {
	ServerURL    string `toml:"server_url"`
	Provider     string `toml:"provider"`
	AssemblyKey  string `toml:"assemblyai_api_key"`
	Language     string `toml:"language"`
	InputFormat  string `toml:"input_format"`
	InputDevice  string `toml:"input_device"`
	CommandsFile string `toml:"commands_file"`
	OpenBrowser  *bool  `toml:"open_browser"`
}

// LoadCLI reads the TOML config file, if any, and applies VOICENAV_* overrides.
func LoadCLI() (*CLIConfig, error) {
	cfg := &CLIConfig{
		ServerURL:   "http://localhost:5000",
		Provider:    ProviderLocal,
		Language:    "en",
		InputFormat: defaultInputFormat(),
		InputDevice: "default",
	}

	if path := CLIConfigPath(); path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := cfg.mergeFile(path); err != nil {
				return nil, err
			}
		}
	}

	applyCLIEnvOverrides(cfg)
	return cfg, nil
}

func (c *CLIConfig) mergeFile(path string) error {
	var fc cliFileConfig
	if _, err := toml.DecodeFile(path, &fc); err != nil {
		return err
	}
	if fc.ServerURL != "" {
		c.ServerURL = fc.ServerURL
	}
	if fc.Provider != "" {
		c.Provider = strings.ToLower(fc.Provider)
	}
	c.AssemblyKey = fc.AssemblyKey
	if fc.Language != "" {
		c.Language = fc.Language
	}
	if fc.InputFormat != "" {
		c.InputFormat = fc.InputFormat
	}
	if fc.InputDevice != "" {
		c.InputDevice = fc.InputDevice
	}
	if fc.CommandsFile != "" {
		c.CommandsFile = expandTilde(fc.CommandsFile)
	}
	if fc.OpenBrowser != nil {
		c.OpenBrowser = *fc.OpenBrowser
	}
	return nil
}

// CLIConfigPath returns $XDG_CONFIG_HOME/voicenav/config.toml.
func CLIConfigPath() string {
	if p := os.Getenv("VOICENAV_CONFIG"); p != "" {
		return p
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "voicenav", "config.toml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "voicenav", "config.toml")
}

func applyCLIEnvOverrides(c *CLIConfig) {
	if v := os.Getenv("VOICENAV_SERVER_URL"); v != "" {
		c.ServerURL = v
	}
	if v := os.Getenv("VOICENAV_PROVIDER"); v != "" {
		c.Provider = strings.ToLower(v)
	}
	if v := os.Getenv("ASSEMBLYAI_API_KEY"); v != "" {
		c.AssemblyKey = v
	}
	if v := os.Getenv("VOICENAV_INPUT_DEVICE"); v != "" {
		c.InputDevice = v
	}
	if v := os.Getenv("VOICENAV_COMMANDS_FILE"); v != "" {
		c.CommandsFile = expandTilde(v)
	}
}

func defaultInputFormat() string {
	switch {
	case fileExists("/usr/bin/pactl"), fileExists("/usr/bin/pulseaudio"):
		return "pulse"
	case fileExists("/System/Library"):
		return "avfoundation"
	default:
		return "alsa"
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func expandTilde(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
