package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/intake/internal/reconcile"
)

func SyncCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run one ElevenLabs transcript sync and print the report",
		Long: `Fetch every conversation recorded by the interview agent, ingest the ones not
yet stored, and backfill transcripts that are still missing. Per-conversation
failures are listed in the report; the command exits non-zero only when the
run could not start.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(os.Stderr)
			if err != nil {
				return err
			}

			d, err := openDeps(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer d.Close()

			var opts []reconcile.Option
			if poster := d.slackPoster(); poster != nil {
				opts = append(opts, reconcile.WithNotifier(poster))
			}

			rec, err := d.reconciler(opts...)
			if err != nil {
				return err
			}

			report, err := rec.Run(cmd.Context())
			if err != nil {
				color.New(color.FgRed).Fprintln(cmd.ErrOrStderr(), "Failed to sync with ElevenLabs")
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			printReport(cmd.OutOrStdout(), report)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the report as JSON")

	return cmd
}

func printReport(w io.Writer, r *reconcile.Report) {
	fmt.Fprintf(w, "%s %s\n", color.New(color.FgGreen).Sprint("✓"), r.Message)
	fmt.Fprintf(w, "  new:     %s\n", color.New(color.FgCyan).Sprint(r.Synced))
	fmt.Fprintf(w, "  updated: %s\n", color.New(color.FgCyan).Sprint(r.Updated))

	if len(r.Errors) == 0 {
		return
	}
	fmt.Fprintf(w, "%s %d error(s)\n", color.New(color.FgYellow).Sprint("!"), len(r.Errors))
	for _, e := range r.Errors {
		fmt.Fprintf(w, "  - %s\n", color.New(color.FgRed).Sprint(e))
	}
}
