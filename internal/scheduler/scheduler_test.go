package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MikeSquared-Agency/intake/internal/reconcile"
)

type countingRunner struct {
	calls atomic.Int32
	err   error
}

func (c *countingRunner) Run(ctx context.Context) (*reconcile.Report, error) {
	c.calls.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	return &reconcile.Report{Success: true, Errors: []string{}}, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestValidateSpec(t *testing.T) {
	tests := []struct {
		spec    string
		wantErr bool
	}{
		{"*/15 * * * *", false},
		{"0 21 * * *", false},
		{"@hourly", false},
		{"@every 10m", false},
		{"", true},
		{"not a schedule", true},
		{"61 * * * *", true},
	}
	for _, tt := range tests {
		err := ValidateSpec(tt.spec)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateSpec(%q) error = %v, wantErr %v", tt.spec, err, tt.wantErr)
		}
	}
}

func TestStart_RejectsBadSpec(t *testing.T) {
	s := New(&countingRunner{}, discardLogger())
	if err := s.Start("bogus"); err == nil {
		t.Fatal("expected error for bad spec")
	}
	if s.IsRunning() {
		t.Error("expected scheduler not to be running")
	}
}

func TestStart_SchedulesNextRun(t *testing.T) {
	s := New(&countingRunner{}, discardLogger())
	if err := s.Start("@hourly"); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer s.Stop()

	if !s.IsRunning() {
		t.Error("expected scheduler to be running")
	}
	next := s.Next()
	if next.IsZero() || !next.After(time.Now()) {
		t.Errorf("expected a future next run, got %v", next)
	}
}

func TestRunOnce_LogsFailureWithoutPanicking(t *testing.T) {
	runner := &countingRunner{err: errors.New("fetch conversations: boom")}
	s := New(runner, discardLogger())
	defer s.Stop()

	s.runOnce()
	s.runOnce()

	if got := runner.calls.Load(); got != 2 {
		t.Errorf("expected 2 runs, got %d", got)
	}
}

// blockingRunner reports whether its context carried a deadline and waits for cancellation.
type blockingRunner struct {
	started     chan struct{}
	hadDeadline bool
	cancelled   bool
}

func (b *blockingRunner) Run(ctx context.Context) (*reconcile.Report, error) {
	_, b.hadDeadline = ctx.Deadline()
	close(b.started)
	<-ctx.Done()
	b.cancelled = true
	return nil, ctx.Err()
}

func TestRunOnce_NoDeadlineAndStopCancels(t *testing.T) {
	runner := &blockingRunner{started: make(chan struct{})}
	s := New(runner, discardLogger())

	done := make(chan struct{})
	go func() {
		s.runOnce()
		close(done)
	}()

	<-runner.started
	s.Stop()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after Stop")
	}
	if runner.hadDeadline {
		t.Error("scheduled runs must not carry a deadline")
	}
	if !runner.cancelled {
		t.Error("expected Stop to cancel the in-flight run")
	}
}
