package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

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

type scanner interface {
	Scan(dest ...any) error
}

func scanInterview(row scanner) (interview.Interview, error) {
	var (
		iv         interview.Interview
		status     string
		raw, quote sql.NullString
		sID        *uuid.UUID
		sName      sql.NullString
		sRole      *string
		sDept      *string
		sEmail     *string
		sPrio      sql.NullInt64
	)
	err := row.Scan(
		&iv.ID, &iv.ProjectID, &iv.ConversationID, &iv.AgentID,
		&iv.InterviewURL, &iv.InterviewType, &status, &iv.ScheduledAt, &iv.StartedAt,
		&iv.EndedAt, &iv.DurationSeconds, &raw, &iv.TranscriptText,
		&iv.AnalysisSummary, &quote, &iv.CreatedAt, &iv.UpdatedAt,
		&sID, &sName, &sRole, &sDept, &sEmail, &sPrio,
	)
	if err != nil {
		return interview.Interview{}, err
	}
	iv.Status = interview.Status(status)
	if raw.Valid {
		iv.TranscriptRaw = json.RawMessage(raw.String)
	}
	if quote.Valid {
		iv.KeyQuotes = json.RawMessage(quote.String)
	}

	iv.Stakeholder = interview.NoStakeholder()
	if sID != nil && sName.Valid {
		iv.Stakeholder = interview.OneStakeholder(interview.Stakeholder{
			ID:                *sID,
			Name:              sName.String,
			Role:              sRole,
			Department:        sDept,
			Email:             sEmail,
			InterviewPriority: int(sPrio.Int64),
		})
	}
	return iv, nil
}

func collectInterviews(rows *sql.Rows) ([]interview.Interview, error) {
	defer rows.Close()
	out := []interview.Interview{}
	for rows.Next() {
		iv, err := scanInterview(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan interview: %w", err)
		}
		out = append(out, iv)
	}
	return out, rows.Err()
}

// KnownConversationIDs returns every external conversation id already stored.
func (s *Store) KnownConversationIDs(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT elevenlabs_conversation_id FROM interviews WHERE elevenlabs_conversation_id IS NOT NULL")
	if err != nil {
		return nil, fmt.Errorf("failed to query conversation ids: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan conversation id: %w", err)
		}
		ids[id] = struct{}{}
	}
	return ids, rows.Err()
}

// FindPlaceholder returns the earliest-scheduled interview still waiting for a
// conversation from agentID, or nil when there is none.
func (s *Store) FindPlaceholder(ctx context.Context, agentID string) (*interview.Interview, error) {
	row := s.db.QueryRowContext(ctx, interviewSelect+`
		WHERE i.elevenlabs_agent_id = ?
		  AND i.status = 'scheduled'
		  AND i.elevenlabs_conversation_id IS NULL
		ORDER BY i.scheduled_at ASC NULLS LAST, i.created_at ASC
		LIMIT 1`, agentID)

	iv, err := scanInterview(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find placeholder: %w", err)
	}
	return &iv, nil
}

// AttachConversation lands a conversation on a placeholder. Rows that already
// carry a conversation id are never matched.
func (s *Store) AttachConversation(ctx context.Context, id uuid.UUID, w interview.TranscriptWrite) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE interviews SET
			elevenlabs_conversation_id = ?,
			elevenlabs_agent_id = ?,
			transcript_raw = ?,
			transcript_text = ?,
			status = 'transcribed',
			started_at = COALESCE(?, started_at),
			ended_at = COALESCE(?, ended_at),
			duration_seconds = COALESCE(?, duration_seconds),
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND elevenlabs_conversation_id IS NULL`,
		w.ConversationID, w.AgentID, rawOrNull(w.Raw), w.Text,
		utc(w.StartedAt), utc(w.EndedAt), w.DurationSeconds(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to attach conversation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to attach conversation: %w", err)
	}
	if n == 0 {
		return interview.ErrNotFound
	}
	return nil
}

// InsertTranscribed creates a discovery interview for a conversation no placeholder claimed.
func (s *Store) InsertTranscribed(ctx context.Context, w interview.TranscriptWrite) (uuid.UUID, error) {
	id := uuid.New()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO interviews (id, elevenlabs_conversation_id, elevenlabs_agent_id, interview_type,
			status, started_at, ended_at, duration_seconds, transcript_raw, transcript_text)
		VALUES (?, ?, ?, ?, 'transcribed', ?, ?, ?, ?, ?)`,
		id, w.ConversationID, w.AgentID, interview.TypeDiscovery,
		utc(w.StartedAt), utc(w.EndedAt), w.DurationSeconds(), rawOrNull(w.Raw), w.Text,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to insert interview: %w", err)
	}
	return id, nil
}

// ListMissingTranscripts returns interviews linked to a conversation but with no transcript text.
func (s *Store) ListMissingTranscripts(ctx context.Context) ([]interview.Interview, error) {
	rows, err := s.db.QueryContext(ctx, interviewSelect+`
		WHERE i.elevenlabs_conversation_id IS NOT NULL AND i.transcript_text IS NULL
		ORDER BY i.created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query incomplete interviews: %w", err)
	}
	return collectInterviews(rows)
}

// UpdateTranscript fills in transcript fields only.
func (s *Store) UpdateTranscript(ctx context.Context, id uuid.UUID, raw json.RawMessage, text string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE interviews SET transcript_raw = ?, transcript_text = ?, status = 'transcribed', updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		rawOrNull(raw), text, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update transcript: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update transcript: %w", err)
	}
	if n == 0 {
		return interview.ErrNotFound
	}
	return nil
}

func (s *Store) GetInterview(ctx context.Context, id uuid.UUID) (*interview.Interview, error) {
	iv, err := scanInterview(s.db.QueryRowContext(ctx, interviewSelect+" WHERE i.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, interview.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get interview: %w", err)
	}
	return &iv, nil
}

// SchedulePlaceholder books an interview that the next sync for agentID will attach to.
func (s *Store) SchedulePlaceholder(ctx context.Context, agentID, interviewURL string, scheduledAt *time.Time) (uuid.UUID, error) {
	id := uuid.New()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO interviews (id, elevenlabs_agent_id, interview_url, interview_type, status, scheduled_at)
		VALUES (?, ?, ?, ?, 'scheduled', ?)`,
		id, agentID, interviewURL, interview.TypeDiscovery, utc(scheduledAt),
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to insert placeholder: %w", err)
	}
	return id, nil
}

func rawOrNull(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

// utc keeps stored timestamps in one zone so they sort as text.
func utc(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
