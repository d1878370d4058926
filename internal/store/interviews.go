package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/MikeSquared-Agency/intake/internal/interview"
)

const interviewSelect = `
	SELECT i.id, i.project_id, i.elevenlabs_conversation_id, i.elevenlabs_agent_id,
	       i.interview_url, i.interview_type, i.status, i.scheduled_at, i.started_at,
	       i.ended_at, i.duration_seconds, i.transcript_raw, i.transcript_text,
	       i.analysis_summary, i.key_quotes, i.created_at, i.updated_at,
	       s.id, s.name, s.role, s.department, s.email, s.interview_priority
	FROM interviews i
	LEFT JOIN stakeholders s ON s.id = i.stakeholder_id`

// scanInterview reads one interviewSelect row and resolves the joined stakeholder.
func scanInterview(row pgx.Row) (interview.Interview, error) {
	var (
		iv       interview.Interview
		status   string
		sID      *uuid.UUID
		sName    *string
		sRole    *string
		sDept    *string
		sEmail   *string
		sPrio    *int
		raw, kqs []byte
	)
	err := row.Scan(
		&iv.ID, &iv.ProjectID, &iv.ConversationID, &iv.AgentID,
		&iv.InterviewURL, &iv.InterviewType, &status, &iv.ScheduledAt, &iv.StartedAt,
		&iv.EndedAt, &iv.DurationSeconds, &raw, &iv.TranscriptText,
		&iv.AnalysisSummary, &kqs, &iv.CreatedAt, &iv.UpdatedAt,
		&sID, &sName, &sRole, &sDept, &sEmail, &sPrio,
	)
	if err != nil {
		return interview.Interview{}, err
	}
	iv.Status = interview.Status(status)
	if raw != nil {
		iv.TranscriptRaw = json.RawMessage(raw)
	}
	if kqs != nil {
		iv.KeyQuotes = json.RawMessage(kqs)
	}

	iv.Stakeholder = interview.NoStakeholder()
	if sID != nil && sName != nil {
		st := interview.Stakeholder{ID: *sID, Name: *sName, Role: sRole, Department: sDept, Email: sEmail}
		if sPrio != nil {
			st.InterviewPriority = *sPrio
		}
		iv.Stakeholder = interview.OneStakeholder(st)
	}
	return iv, nil
}

func collectInterviews(rows pgx.Rows) ([]interview.Interview, error) {
	defer rows.Close()
	out := []interview.Interview{}
	for rows.Next() {
		iv, err := scanInterview(rows)
		if err != nil {
			return nil, fmt.Errorf("scan interview: %w", err)
		}
		out = append(out, iv)
	}
	return out, rows.Err()
}

// KnownConversationIDs returns every external conversation id already stored.
func (s *Store) KnownConversationIDs(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT elevenlabs_conversation_id FROM interviews
		WHERE elevenlabs_conversation_id IS NOT NULL`)
	if err != nil {
		return nil, fmt.Errorf("query conversation ids: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan conversation id: %w", err)
		}
		ids[id] = struct{}{}
	}
	return ids, rows.Err()
}

// FindPlaceholder returns the earliest-scheduled interview still waiting for a
// conversation from agentID, or nil when there is none.
func (s *Store) FindPlaceholder(ctx context.Context, agentID string) (*interview.Interview, error) {
	row := s.pool.QueryRow(ctx, interviewSelect+`
		WHERE i.elevenlabs_agent_id = $1
		  AND i.status = 'scheduled'
		  AND i.elevenlabs_conversation_id IS NULL
		ORDER BY i.scheduled_at ASC NULLS LAST, i.created_at ASC
		LIMIT 1`, agentID)

	iv, err := scanInterview(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find placeholder: %w", err)
	}
	return &iv, nil
}

// AttachConversation lands a conversation on a placeholder. Rows that already
// carry a conversation id are never matched.
func (s *Store) AttachConversation(ctx context.Context, id uuid.UUID, w interview.TranscriptWrite) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE interviews SET
			elevenlabs_conversation_id = $2,
			elevenlabs_agent_id = $3,
			transcript_raw = $4,
			transcript_text = $5,
			status = 'transcribed',
			started_at = COALESCE($6, started_at),
			ended_at = COALESCE($7, ended_at),
			duration_seconds = COALESCE($8, duration_seconds),
			updated_at = now()
		WHERE id = $1 AND elevenlabs_conversation_id IS NULL`,
		id, w.ConversationID, w.AgentID, rawOrNil(w.Raw), w.Text, w.StartedAt, w.EndedAt, w.DurationSeconds(),
	)
	if err != nil {
		return fmt.Errorf("attach conversation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return interview.ErrNotFound
	}
	return nil
}

// InsertTranscribed creates a discovery interview for a conversation no placeholder claimed.
func (s *Store) InsertTranscribed(ctx context.Context, w interview.TranscriptWrite) (uuid.UUID, error) {
	id := uuid.New()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO interviews (id, elevenlabs_conversation_id, elevenlabs_agent_id, interview_type,
			status, started_at, ended_at, duration_seconds, transcript_raw, transcript_text)
		VALUES ($1, $2, $3, $4, 'transcribed', $5, $6, $7, $8, $9)`,
		id, w.ConversationID, w.AgentID, interview.TypeDiscovery,
		w.StartedAt, w.EndedAt, w.DurationSeconds(), rawOrNil(w.Raw), w.Text,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert interview: %w", err)
	}
	return id, nil
}

// ListMissingTranscripts returns interviews linked to a conversation but with no transcript text.
func (s *Store) ListMissingTranscripts(ctx context.Context) ([]interview.Interview, error) {
	rows, err := s.pool.Query(ctx, interviewSelect+`
		WHERE i.elevenlabs_conversation_id IS NOT NULL AND i.transcript_text IS NULL
		ORDER BY i.created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("query incomplete interviews: %w", err)
	}
	return collectInterviews(rows)
}

// UpdateTranscript fills in transcript fields only.
func (s *Store) UpdateTranscript(ctx context.Context, id uuid.UUID, raw json.RawMessage, text string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE interviews SET transcript_raw = $2, transcript_text = $3, status = 'transcribed', updated_at = now()
		WHERE id = $1`,
		id, rawOrNil(raw), text,
	)
	if err != nil {
		return fmt.Errorf("update transcript: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return interview.ErrNotFound
	}
	return nil
}

func (s *Store) GetInterview(ctx context.Context, id uuid.UUID) (*interview.Interview, error) {
	iv, err := scanInterview(s.pool.QueryRow(ctx, interviewSelect+` WHERE i.id = $1`, id))
	if err != nil {
		return nil, notFound(err, interview.ErrNotFound)
	}
	return &iv, nil
}

// ProjectInterviews lists a project's interviews, soonest scheduled first.
func (s *Store) ProjectInterviews(ctx context.Context, projectID uuid.UUID) ([]interview.Interview, error) {
	rows, err := s.pool.Query(ctx, interviewSelect+`
		WHERE i.project_id = $1
		ORDER BY i.scheduled_at ASC NULLS LAST, i.created_at ASC`, projectID)
	if err != nil {
		return nil, fmt.Errorf("query project interviews: %w", err)
	}
	return collectInterviews(rows)
}

// Placeholder describes an interview booked ahead of the conversation.
type Placeholder struct {
	ProjectID     uuid.UUID
	StakeholderID *uuid.UUID
	AgentID       string
	InterviewURL  string
	ScheduledAt   *time.Time
}

// ScheduleInterview books a placeholder that the next matching sync will attach a conversation to.
func (s *Store) ScheduleInterview(ctx context.Context, p Placeholder) (*interview.Interview, error) {
	id := uuid.New()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO interviews (id, project_id, stakeholder_id, elevenlabs_agent_id, interview_url,
			interview_type, status, scheduled_at)
		VALUES ($1, $2, $3, $4, $5, $6, 'scheduled', COALESCE($7, now()))`,
		id, p.ProjectID, p.StakeholderID, p.AgentID, p.InterviewURL, interview.TypeDiscovery, p.ScheduledAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert placeholder: %w", err)
	}
	return s.GetInterview(ctx, id)
}

// rawOrNil keeps an absent transcript as SQL NULL rather than an empty JSON value.
func rawOrNil(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
