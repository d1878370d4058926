package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/MikeSquared-Agency/intake/internal/analysis"
	"github.com/MikeSquared-Agency/intake/internal/anthropic"
	"github.com/MikeSquared-Agency/intake/internal/config"
	"github.com/MikeSquared-Agency/intake/internal/elevenlabs"
	"github.com/MikeSquared-Agency/intake/internal/openai"
	"github.com/MikeSquared-Agency/intake/internal/reconcile"
	"github.com/MikeSquared-Agency/intake/internal/slack"
	"github.com/MikeSquared-Agency/intake/internal/sqlite"
	"github.com/MikeSquared-Agency/intake/internal/store"
)

// deps holds the collaborators a command opened; Close releases them.
type deps struct {
	cfg    config.Config
	logger *slog.Logger

	pg          *store.Store
	lite        *sqlite.Store
	interviews  reconcile.InterviewStore
	transcripts *elevenlabs.Client
}

// openDeps opens the configured interview store. Transcript client construction is
// deferred to reconciler so commands that only touch the database work without keys.
func openDeps(ctx context.Context, cfg config.Config, logger *slog.Logger) (*deps, error) {
	d := &deps{cfg: cfg, logger: logger}

	if err := cfg.RequireStore(); err != nil {
		return d, nil
	}

	if cfg.UsesSQLite() {
		lite, err := sqlite.Open(ctx, cfg.SQLitePath())
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		d.lite = lite
		d.interviews = lite
		logger.Info("sqlite store opened", "path", cfg.SQLitePath())
		return d, nil
	}

	pg, err := store.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	d.pg = pg
	d.interviews = pg
	logger.Info("database connected")
	return d, nil
}

func (d *deps) Close() {
	if d.pg != nil {
		d.pg.Close()
	}
	if d.lite != nil {
		if err := d.lite.Close(); err != nil {
			d.logger.Warn("failed to close sqlite store", "error", err)
		}
	}
}

// transcriptClient builds the ElevenLabs client from config.
func (d *deps) transcriptClient() *elevenlabs.Client {
	if d.transcripts == nil {
		d.transcripts = elevenlabs.NewClient(d.cfg.ElevenLabsAPIKey,
			elevenlabs.WithBaseURL(d.cfg.ElevenLabsBaseURL),
			elevenlabs.WithAppURL(d.cfg.ElevenLabsAppURL),
			elevenlabs.WithTimeout(d.cfg.ElevenLabsTimeout),
		)
	}
	return d.transcripts
}

// reconciler returns a configured reconciler, or a *config.MissingError naming
// what is absent.
func (d *deps) reconciler(opts ...reconcile.Option) (*reconcile.Reconciler, error) {
	if err := d.cfg.RequireTranscripts(); err != nil {
		return nil, err
	}
	if d.interviews == nil {
		return nil, &config.MissingError{Keys: []string{"DATABASE_URL"}}
	}
	return reconcile.New(d.transcriptClient(), d.interviews, d.cfg.InterviewAgentID, d.logger, opts...), nil
}

// statusReconciler can answer Status without a store; it must never Run.
func (d *deps) statusReconciler() *reconcile.Reconciler {
	return reconcile.New(d.transcriptClient(), nil, d.cfg.InterviewAgentID, d.logger)
}

// analyzer returns nil when no provider is configured or the store cannot hold findings.
func (d *deps) analyzer() *analysis.Analyzer {
	if d.pg == nil || !d.cfg.AnalysisConfigured() {
		return nil
	}
	return analysis.New(newCompleter(d.cfg, d.logger), d.logger)
}

func newCompleter(cfg config.Config, logger *slog.Logger) analysis.Completer {
	switch cfg.AnalysisProvider {
	case "openai":
		c := openai.NewClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel)
		logger.Info("analysis provider ready", "provider", "openai", "model", c.Model())
		return c
	case "anthropic", "":
	default:
		logger.Warn("unknown analysis provider, using anthropic", "provider", cfg.AnalysisProvider)
	}
	c := anthropic.NewClient(cfg.AnthropicAPIKey, cfg.AnthropicModel)
	logger.Info("analysis provider ready", "provider", "anthropic", "model", c.Model())
	return c
}

// slackPoster returns nil when Slack is not configured.
func (d *deps) slackPoster() *slack.Poster {
	if d.cfg.SlackBotToken == "" || d.cfg.SlackChannel == "" {
		return nil
	}
	return slack.NewPoster(d.cfg.SlackBotToken, d.cfg.SlackChannel, d.logger)
}
