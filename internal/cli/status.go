package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/intake/internal/reconcile"
)

func StatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the interview agent, its conversation count and intake URL",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(os.Stderr)
			if err != nil {
				return err
			}
			if err := cfg.RequireTranscripts(); err != nil {
				return err
			}

			d := &deps{cfg: cfg, logger: logger}
			status, err := d.statusReconciler().Status(cmd.Context())
			if err != nil {
				color.New(color.FgRed).Fprintln(cmd.ErrOrStderr(), "Failed to fetch ElevenLabs status")
				return err
			}
			printStatus(cmd.OutOrStdout(), status)
			return nil
		},
	}
}

func printStatus(w io.Writer, s *reconcile.Status) {
	fmt.Fprintf(w, "Agent:         %s\n", s.AgentID)
	fmt.Fprintf(w, "Conversations: %s\n", color.New(color.FgCyan).Sprint(s.TotalConversations))
	fmt.Fprintf(w, "Interview URL: %s\n", s.InterviewURL)
}
