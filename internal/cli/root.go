package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/intake/internal/config"
)

// version is overridden at build time with -ldflags "-X .../internal/cli.version=...".
var version = "dev"

// RootCmd returns the intake command tree.
func RootCmd() *cobra.Command {
	var envFile string

	root := &cobra.Command{
		Use:     "intake",
		Short:   "Consulting intake backend with ElevenLabs interview sync",
		Version: version,
		Long: `intake serves the consulting-workflow API and keeps the local interviews
table in step with conversations recorded by the ElevenLabs interview agent.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadEnvFile(envFile)
		},
	}

	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Optional dotenv file loaded before reading the environment")

	root.AddCommand(ServeCmd())
	root.AddCommand(SyncCmd())
	root.AddCommand(StatusCmd())
	root.AddCommand(TranscriptCmd())
	root.AddCommand(MigrateCmd())

	return root
}

// loadEnvFile applies a dotenv file without overriding variables already set.
// A missing file is not an error.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// loadConfig reads configuration and installs the default logger.
func loadConfig(logOut io.Writer) (config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, err
	}
	setupLogging(logOut, cfg.LogLevel)
	return cfg, slog.Default(), nil
}

func setupLogging(w io.Writer, level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
