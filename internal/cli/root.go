package cli

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/voicenav/voice-gateway/internal/client"
	"github.com/voicenav/voice-gateway/internal/command"
	"github.com/voicenav/voice-gateway/internal/config"
	"github.com/voicenav/voice-gateway/internal/version"
)

type Dependencies struct {
	Config      *config.CLIConfig
	Interpreter *command.Interpreter
	Client      *client.Client
	Logger      zerolog.Logger
}

func NewRootCmd(deps *Dependencies) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "voicenav",
		Short:         "Navigate the web by voice",
		Long:          "Record a voice command from the microphone, transcribe it and open the matching site or a web search.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.Version = version.Version
	rootCmd.SetVersionTemplate(version.Full() + "\n")

	rootCmd.AddCommand(NewRecordCmd(deps))
	rootCmd.AddCommand(NewInterpretCmd(deps))
	rootCmd.AddCommand(NewHistoryCmd(deps))
	rootCmd.AddCommand(NewClearCmd(deps))
	rootCmd.AddCommand(NewDoctorCmd(deps))

	return rootCmd
}
