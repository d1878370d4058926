package cli

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func MigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(os.Stderr)
			if err != nil {
				return err
			}
			if err := cfg.RequireStore(); err != nil {
				return err
			}

			// sqlite.Open migrates on open.
			d, err := openDeps(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer d.Close()

			if d.pg != nil {
				if err := d.pg.Migrate(cmd.Context()); err != nil {
					return err
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s schema applied\n", color.New(color.FgGreen).Sprint("✓"))
			return nil
		},
	}
}
