package reconcile

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/intake/internal/config"
	"github.com/MikeSquared-Agency/intake/internal/elevenlabs"
	"github.com/MikeSquared-Agency/intake/internal/interview"
)

// TranscriptSource is the remote conversation API.
type TranscriptSource interface {
	ListConversations(ctx context.Context, agentID string) ([]elevenlabs.ConversationSummary, error)
	GetConversation(ctx context.Context, conversationID string) (*elevenlabs.Conversation, error)
	InterviewURL(agentID string) string
}

// InterviewStore is the slice of the interviews table the reconciler reads and writes.
type InterviewStore interface {
	KnownConversationIDs(ctx context.Context) (map[string]struct{}, error)
	// FindPlaceholder returns nil, nil when no scheduled placeholder is waiting.
	FindPlaceholder(ctx context.Context, agentID string) (*interview.Interview, error)
	AttachConversation(ctx context.Context, id uuid.UUID, w interview.TranscriptWrite) error
	InsertTranscribed(ctx context.Context, w interview.TranscriptWrite) (uuid.UUID, error)
	ListMissingTranscripts(ctx context.Context) ([]interview.Interview, error)
	UpdateTranscript(ctx context.Context, id uuid.UUID, raw json.RawMessage, text string) error
}

// Notifier is told about every completed run.
type Notifier interface {
	NotifySync(ctx context.Context, report *Report) error
}

type Option func(*Reconciler)

func WithNotifier(n Notifier) Option {
	return func(r *Reconciler) { r.notifiers = append(r.notifiers, n) }
}

// Reconciler keeps local interview records in step with the remote conversation list.
type Reconciler struct {
	source    TranscriptSource
	store     InterviewStore
	agentID   string
	logger    *slog.Logger
	notifiers []Notifier

	mu sync.Mutex // serializes runs within the process
}

func New(source TranscriptSource, store InterviewStore, agentID string, logger *slog.Logger, opts ...Option) *Reconciler {
	r := &Reconciler{
		source:  source,
		store:   store,
		agentID: agentID,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Reconciler) AgentID() string { return r.agentID }

// Run performs one reconciliation pass. It returns an error only when the agent is
// not configured or the remote conversation list cannot be fetched; every other
// failure is recorded in the report.
func (r *Reconciler) Run(ctx context.Context) (*Report, error) {
	if r.agentID == "" {
		return nil, &config.MissingError{Keys: []string{"ELEVENLABS_INTERVIEW_AGENT_ID"}}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	report := &Report{AgentID: r.agentID, StartedAt: time.Now().UTC()}

	conversations, err := r.source.ListConversations(ctx, r.agentID)
	if err != nil {
		return nil, fmt.Errorf("fetch conversations: %w", err)
	}

	known, err := r.store.KnownConversationIDs(ctx)
	if err != nil {
		r.logger.Warn("failed to load known conversation ids, treating all as new", "error", err)
		known = make(map[string]struct{})
	}

	var fresh []elevenlabs.ConversationSummary
	for _, c := range conversations {
		if _, seen := known[c.ConversationID]; seen {
			continue
		}
		// Guard against the list repeating an id within one run.
		known[c.ConversationID] = struct{}{}
		fresh = append(fresh, c)
	}

	r.logger.Info("sync started",
		"agent_id", r.agentID,
		"remote", len(conversations),
		"new", len(fresh),
	)

	results := make([]itemResult, 0, len(fresh))
	for _, c := range fresh {
		results = append(results, r.ingest(ctx, c))
	}
	results = append(results, r.backfill(ctx)...)

	report.fold(results)
	report.finish()
	report.FinishedAt = time.Now().UTC()

	r.logger.Info("sync complete",
		"agent_id", r.agentID,
		"synced", report.Synced,
		"updated", report.Updated,
		"errors", len(report.Errors),
		"duration", report.FinishedAt.Sub(report.StartedAt).String(),
	)

	for _, n := range r.notifiers {
		if err := n.NotifySync(ctx, report); err != nil {
			r.logger.Warn("sync notification failed", "error", err)
		}
	}

	return report, nil
}

// ingest lands one new remote conversation, on a scheduled placeholder when
// one is waiting for this agent, otherwise on a fresh record.
func (r *Reconciler) ingest(ctx context.Context, summary elevenlabs.ConversationSummary) itemResult {
	id := summary.ConversationID

	conv, err := r.source.GetConversation(ctx, id)
	if err != nil {
		r.logger.Error("failed to fetch conversation", "conversation_id", id, "error", err)
		return failed("Failed to sync %s: %v", id, err)
	}

	w := interview.TranscriptWrite{
		ConversationID: id,
		AgentID:        r.agentID,
		Raw:            conv.RawTranscript(),
		Text:           elevenlabs.FormatTranscript(conv.Transcript),
		StartedAt:      summary.Started(),
		EndedAt:        conv.Ended(),
	}
	if w.StartedAt == nil {
		w.StartedAt = conv.Started()
	}

	placeholder, err := r.store.FindPlaceholder(ctx, r.agentID)
	if err != nil {
		r.logger.Error("failed to look up placeholder", "conversation_id", id, "error", err)
		return failed("Failed to match %s: %v", id, err)
	}

	if placeholder != nil {
		if err := r.store.AttachConversation(ctx, placeholder.ID, w); err != nil {
			r.logger.Error("failed to attach conversation", "conversation_id", id, "interview_id", placeholder.ID, "error", err)
			return failed("Failed to attach %s to %s: %v", id, placeholder.ID, err)
		}
		r.logger.Info("conversation attached to placeholder", "conversation_id", id, "interview_id", placeholder.ID)
		return ok(outcomeUpdated)
	}

	newID, err := r.store.InsertTranscribed(ctx, w)
	if err != nil {
		r.logger.Error("failed to insert interview", "conversation_id", id, "error", err)
		return failed("Failed to insert %s: %v", id, err)
	}
	r.logger.Info("conversation ingested", "conversation_id", id, "interview_id", newID)
	return ok(outcomeSynced)
}

// backfill re-fetches transcripts for records that reference a conversation but
// have no transcript text yet.
func (r *Reconciler) backfill(ctx context.Context) []itemResult {
	incomplete, err := r.store.ListMissingTranscripts(ctx)
	if err != nil {
		r.logger.Error("failed to list incomplete interviews", "error", err)
		return []itemResult{failed("Failed to list incomplete interviews: %v", err)}
	}

	results := make([]itemResult, 0, len(incomplete))
	for _, rec := range incomplete {
		if rec.ConversationID == nil || *rec.ConversationID == "" {
			continue
		}

		conv, err := r.source.GetConversation(ctx, *rec.ConversationID)
		if err != nil {
			r.logger.Error("failed to fetch conversation for backfill", "interview_id", rec.ID, "error", err)
			results = append(results, failed("Failed to update %s: %v", rec.ID, err))
			continue
		}

		text := elevenlabs.FormatTranscript(conv.Transcript)
		if err := r.store.UpdateTranscript(ctx, rec.ID, conv.RawTranscript(), text); err != nil {
			r.logger.Error("failed to backfill transcript", "interview_id", rec.ID, "error", err)
			results = append(results, failed("Failed to update %s: %v", rec.ID, err))
			continue
		}

		r.logger.Info("transcript backfilled", "interview_id", rec.ID, "conversation_id", *rec.ConversationID)
		results = append(results, ok(outcomeUpdated))
	}
	return results
}

// Status reports how many conversations the agent has and where stakeholders start one.
func (r *Reconciler) Status(ctx context.Context) (*Status, error) {
	if r.agentID == "" {
		return nil, &config.MissingError{Keys: []string{"ELEVENLABS_INTERVIEW_AGENT_ID"}}
	}

	conversations, err := r.source.ListConversations(ctx, r.agentID)
	if err != nil {
		return nil, fmt.Errorf("fetch conversations: %w", err)
	}

	return &Status{
		AgentID:            r.agentID,
		TotalConversations: len(conversations),
		InterviewURL:       r.source.InterviewURL(r.agentID),
	}, nil
}
