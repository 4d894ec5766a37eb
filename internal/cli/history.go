package cli

import (
	"github.com/spf13/cobra"

	"github.com/voicenav/voice-gateway/internal/output"
)

func NewHistoryCmd(deps *Dependencies) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent transcriptions stored by the gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := output.NewFormatter(cmd.OutOrStdout())

			records, err := deps.Client.ListTranscriptions(cmd.Context(), limit)
			if err != nil {
				return err
			}

			formatter.HistoryHeader(len(records))
			for _, r := range records {
				formatter.HistoryItem(r)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of transcriptions to show")

	return cmd
}

func NewClearCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete all stored transcriptions and their audio",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := deps.Client.ClearTranscriptions(cmd.Context()); err != nil {
				return err
			}
			output.NewFormatter(cmd.OutOrStdout()).Success("All transcriptions cleared")
			return nil
		},
	}
}
