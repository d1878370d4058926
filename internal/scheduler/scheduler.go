package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/MikeSquared-Agency/intake/internal/reconcile"
)

// SyncRunner runs one reconciliation pass.
type SyncRunner interface {
	Run(ctx context.Context) (*reconcile.Report, error)
}

// Scheduler triggers sync runs on a cron schedule.
type Scheduler struct {
	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
	runner SyncRunner
	logger *slog.Logger
	entry  cron.EntryID
}

// ValidateSpec reports whether spec is a usable five-field cron expression or descriptor.
func ValidateSpec(spec string) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("invalid sync schedule %q: %w", spec, err)
	}
	return nil
}

// New builds a scheduler. Runs carry no deadline of their own; each remote call is
// bounded by the transcript client's timeout, and Stop cancels an in-flight run.
func New(runner SyncRunner, logger *slog.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:   cron.New(cron.WithLocation(time.UTC)),
		ctx:    ctx,
		cancel: cancel,
		runner: runner,
		logger: logger,
	}
}

// Start registers the sync job and starts the cron loop.
func (s *Scheduler) Start(spec string) error {
	id, err := s.cron.AddFunc(spec, s.runOnce)
	if err != nil {
		return fmt.Errorf("invalid sync schedule %q: %w", spec, err)
	}
	s.entry = id
	s.cron.Start()
	s.logger.Info("sync scheduler started", "schedule", spec, "next", s.Next())
	return nil
}

func (s *Scheduler) runOnce() {
	s.logger.Info("scheduled sync triggered")
	if _, err := s.runner.Run(s.ctx); err != nil {
		s.logger.Error("scheduled sync failed", "error", err)
	}
}

// Next returns the next scheduled run, or the zero time when not started.
func (s *Scheduler) Next() time.Time {
	if s.entry == 0 {
		return time.Time{}
	}
	return s.cron.Entry(s.entry).Next
}

// Stop cancels the job context and waits for a running job to return.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
	s.logger.Info("sync scheduler stopped")
}

func (s *Scheduler) IsRunning() bool {
	return s.entry != 0 && len(s.cron.Entries()) > 0
}
