package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/voicenav/voice-gateway/internal/output"
)

func NewInterpretCmd(deps *Dependencies) *cobra.Command {
	var open bool
	var remote bool

	cmd := &cobra.Command{
		Use:   "interpret <text...>",
		Short: "Show what a phrase would open",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := output.NewFormatter(cmd.OutOrStdout())
			text := strings.Join(args, " ")

			action := deps.Interpreter.Interpret(text)
			if remote {
				var err error
				action, err = deps.Client.Interpret(cmd.Context(), text)
				if err != nil {
					return err
				}
			}

			formatter.Action(action)
			if open {
				return OpenURL(action.URL)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&open, "open", "o", false, "Open the resulting URL in the default browser")
	cmd.Flags().BoolVar(&remote, "remote", false, "Use the gateway's command table instead of the local one")

	return cmd
}
