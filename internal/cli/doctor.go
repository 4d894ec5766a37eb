package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/voicenav/voice-gateway/internal/capture"
	"github.com/voicenav/voice-gateway/internal/config"
	"github.com/voicenav/voice-gateway/internal/output"
)

func NewDoctorCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check that recording and transcription are set up",
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := output.NewFormatter(cmd.OutOrStdout())
			cfg := deps.Config

			if err := capture.CheckFFmpeg(); err != nil {
				formatter.Check("ffmpeg", false, "not found in PATH")
			} else {
				formatter.Check("ffmpeg", true, "installed")
			}
			formatter.Check("input", true, cfg.InputFormat+" "+cfg.InputDevice)

			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
			defer cancel()
			if err := deps.Client.Health(ctx); err != nil {
				formatter.Check("gateway", false, err.Error())
			} else {
				formatter.Check("gateway", true, cfg.ServerURL)
			}

			switch cfg.Provider {
			case config.ProviderAssemblyAI:
				formatter.Check("provider", cfg.AssemblyKey != "", "assemblyai")
			default:
				formatter.Check("provider", true, cfg.Provider)
			}

			formatter.Check("config", true, config.CLIConfigPath())
			return nil
		},
	}
}
