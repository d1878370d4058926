package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/intake/internal/api"
	"github.com/MikeSquared-Agency/intake/internal/config"
	"github.com/MikeSquared-Agency/intake/internal/hermes"
	"github.com/MikeSquared-Agency/intake/internal/reconcile"
	"github.com/MikeSquared-Agency/intake/internal/scheduler"
)

func ServeCmd() *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, sync schedule and event subscriptions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(os.Stdout)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, logger, migrate)
		},
	}

	cmd.Flags().BoolVar(&migrate, "migrate", false, "Apply the database schema before serving")

	return cmd
}

func serve(parent context.Context, cfg config.Config, logger *slog.Logger, migrate bool) error {
	logger.Info("intake starting", "port", cfg.Port, "version", version)

	if cfg.SyncSchedule != "" {
		if err := scheduler.ValidateSpec(cfg.SyncSchedule); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	d, err := openDeps(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer d.Close()

	if migrate && d.pg != nil {
		if err := d.pg.Migrate(ctx); err != nil {
			return err
		}
		logger.Info("schema applied")
	}

	var (
		notifiers []reconcile.Option
		bus       *hermes.Client
	)

	// NATS is optional; without it there are no sync events or remote triggers.
	if cfg.NatsURL != "" {
		bus, err = hermes.NewClient(ctx, cfg.NatsURL, cfg.NatsToken, logger)
		if err != nil {
			return err
		}
		defer bus.Close()
		notifiers = append(notifiers, reconcile.WithNotifier(hermes.NewNotifier(bus)))
		logger.Info("NATS connected", "url", cfg.NatsURL)
	} else {
		logger.Warn("NATS not configured, running without sync events")
	}

	poster := d.slackPoster()
	if poster != nil {
		notifiers = append(notifiers, reconcile.WithNotifier(poster))
		logger.Info("slack poster ready", "channel", cfg.SlackChannel)
	}

	rec, opts := d.syncOptions(notifiers...)
	if bus != nil {
		opts = append(opts, api.WithEventBus(bus))
	}

	if d.pg != nil {
		opts = append(opts,
			api.WithProjects(d.pg),
			api.WithInterviewAgent(cfg.InterviewAgentID, d.interviewURL()),
		)
		if a := d.analyzer(); a != nil {
			var reviewer api.Reviewer
			if poster != nil {
				reviewer = poster
			}
			opts = append(opts, api.WithAnalysis(a, d.pg, reviewer))
		}
	}

	if rec != nil && cfg.SyncSchedule != "" {
		sched := scheduler.New(rec, logger)
		if err := sched.Start(cfg.SyncSchedule); err != nil {
			return err
		}
		defer sched.Stop()
	}

	if rec != nil && bus != nil {
		handle := hermes.SyncRequestHandler(ctx, rec, bus, logger)
		if err := bus.Subscribe(hermes.SubjectSyncRequested, handle); err != nil {
			return err
		}
	}

	srv := api.NewServer(cfg.Port, logger, opts...)
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	if bus != nil {
		if err := bus.Publish(hermes.SubjectAgentRegistered, hermes.AgentRegistration{
			Name:         "intake",
			Version:      version,
			AgentID:      cfg.InterviewAgentID,
			Capabilities: capabilities(rec != nil, d.pg != nil),
			StartedAt:    time.Now().UTC(),
		}); err != nil {
			logger.Warn("failed to publish registration", "error", err)
		}
	}

	logger.Info("intake ready", "port", cfg.Port)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown failed", "error", err)
	}
	logger.Info("intake stopped")
	return nil
}

// syncOptions wires the sync endpoints. Without a database the status endpoint is
// still served, since it only talks to ElevenLabs.
func (d *deps) syncOptions(notifiers ...reconcile.Option) (*reconcile.Reconciler, []api.Option) {
	rec, err := d.reconciler(notifiers...)
	switch {
	case err == nil:
		d.logger.Info("sync reconciler ready", "agent_id", rec.AgentID())
		return rec, []api.Option{api.WithSync(rec)}
	case isMissing(err, "DATABASE_URL"):
		d.logger.Warn("sync runs disabled, serving status only", "error", err)
		return nil, []api.Option{
			api.WithSyncUnavailable(api.NotConfiguredDatabase),
			api.WithSyncStatus(d.statusReconciler()),
		}
	default:
		d.logger.Warn("sync disabled", "error", err)
		return nil, []api.Option{}
	}
}

// interviewURL is the public intake link stamped on scheduled interviews, empty without an agent.
func (d *deps) interviewURL() string {
	if d.cfg.InterviewAgentID == "" {
		return ""
	}
	return d.transcriptClient().InterviewURL(d.cfg.InterviewAgentID)
}

func capabilities(sync, projects bool) []string {
	caps := []string{}
	if sync {
		caps = append(caps, "interview_sync")
	}
	if projects {
		caps = append(caps, "projects")
	}
	return caps
}

func isMissing(err error, key string) bool {
	var missing *config.MissingError
	if !errors.As(err, &missing) {
		return false
	}
	for _, k := range missing.Keys {
		if k == key {
			return true
		}
	}
	return false
}
