package hermes

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/MikeSquared-Agency/intake/internal/reconcile"
)

const (
	SubjectSyncRequested   = "intake.interviews.sync.requested"
	SubjectSynced          = "intake.interviews.synced"
	SubjectSyncFailed      = "intake.interviews.sync.failed"
	SubjectAgentRegistered = "intake.agent.registered"
)

// SyncEvent is published after every completed sync run.
type SyncEvent struct {
	AgentID   string    `json:"agent_id"`
	Synced    int       `json:"synced"`
	Updated   int       `json:"updated"`
	Errors    []string  `json:"errors"`
	Timestamp time.Time `json:"timestamp"`
}

// SyncFailedEvent is published when a requested run aborts before producing a report.
type SyncFailedEvent struct {
	AgentID   string    `json:"agent_id"`
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

// SyncRequest is the optional payload of a sync request; an empty body is fine.
type SyncRequest struct {
	RequestedBy string `json:"requested_by"`
}

// AgentRegistration announces the service on startup.
type AgentRegistration struct {
	Name         string    `json:"name"`
	Version      string    `json:"version"`
	AgentID      string    `json:"agent_id,omitempty"`
	Capabilities []string  `json:"capabilities"`
	StartedAt    time.Time `json:"started_at"`
}

// Notifier publishes sync reports. It satisfies reconcile.Notifier.
type Notifier struct {
	pub Publisher
}

func NewNotifier(pub Publisher) *Notifier {
	return &Notifier{pub: pub}
}

func (n *Notifier) NotifySync(ctx context.Context, report *reconcile.Report) error {
	ts := report.FinishedAt
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	return n.pub.Publish(SubjectSynced, SyncEvent{
		AgentID:   report.AgentID,
		Synced:    report.Synced,
		Updated:   report.Updated,
		Errors:    report.Errors,
		Timestamp: ts,
	})
}

// SyncRunner runs one reconciliation pass.
type SyncRunner interface {
	Run(ctx context.Context) (*reconcile.Report, error)
	AgentID() string
}

// SyncRequestHandler returns a subscription handler that runs a sync per request.
// Runs use ctx as is, so only process shutdown cancels them. Completed runs are
// announced by the reconciler's notifiers; aborted runs are published on
// SubjectSyncFailed.
func SyncRequestHandler(ctx context.Context, runner SyncRunner, pub Publisher, logger *slog.Logger) func(subject string, data []byte) {
	return func(subject string, data []byte) {
		var req SyncRequest
		if len(data) > 0 {
			if err := json.Unmarshal(data, &req); err != nil {
				logger.Warn("ignoring malformed sync request body", "subject", subject, "error", err)
			}
		}
		logger.Info("sync requested over nats", "requested_by", req.RequestedBy)

		if _, err := runner.Run(ctx); err != nil {
			logger.Error("requested sync failed", "error", err)
			if perr := pub.Publish(SubjectSyncFailed, SyncFailedEvent{
				AgentID:   runner.AgentID(),
				Error:     err.Error(),
				Timestamp: time.Now().UTC(),
			}); perr != nil {
				logger.Warn("failed to publish sync failure", "error", perr)
			}
		}
	}
}
