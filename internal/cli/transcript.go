package cli

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/intake/internal/config"
)

func TranscriptCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "transcript <conversation-id>",
		Short: "Print one conversation's transcript as it would be stored",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(os.Stderr)
			if err != nil {
				return err
			}
			if cfg.ElevenLabsAPIKey == "" {
				return &config.MissingError{Keys: []string{"ELEVENLABS_API_KEY"}}
			}

			d := &deps{cfg: cfg, logger: logger}
			text, err := d.transcriptClient().TranscriptText(cmd.Context(), args[0])
			if err != nil {
				color.New(color.FgRed).Fprintln(cmd.ErrOrStderr(), "Failed to fetch transcript")
				return err
			}
			if text == "" {
				color.New(color.FgYellow).Fprintln(cmd.ErrOrStderr(), "Transcript is empty")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}
}
