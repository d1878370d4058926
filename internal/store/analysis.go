package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/intake/internal/analysis"
	"github.com/MikeSquared-Agency/intake/internal/interview"
	"github.com/MikeSquared-Agency/intake/internal/project"
)

// WriteAnalysis stores an analysis result in one transaction: the interview gets its
// summary, key quotes and status analyzed, and its findings are replaced.
func (s *Store) WriteAnalysis(ctx context.Context, interviewID uuid.UUID, projectID *uuid.UUID, res *analysis.Result) error {
	quotes, err := json.Marshal(res.KeyQuotes)
	if err != nil {
		return fmt.Errorf("marshal key quotes: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE interviews SET analysis_summary = $2, key_quotes = $3, status = $4, updated_at = now()
		WHERE id = $1`,
		interviewID, res.Summary, string(quotes), string(interview.StatusAnalyzed),
	)
	if err != nil {
		return fmt.Errorf("update interview: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return interview.ErrNotFound
	}

	// Re-analysis replaces earlier findings for the same interview.
	if _, err := tx.Exec(ctx, `DELETE FROM findings WHERE interview_id = $1`, interviewID); err != nil {
		return fmt.Errorf("clear findings: %w", err)
	}

	for _, f := range res.Findings {
		supporting, err := json.Marshal(f.SupportingQuotes)
		if err != nil {
			return fmt.Errorf("marshal supporting quotes: %w", err)
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO findings (id, project_id, interview_id, finding_type, title, description,
				impact_level, frequency, supporting_quotes, business_area, process_name, tags)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
			uuid.New(), projectID, interviewID, string(f.FindingType), f.Title, f.Description,
			f.ImpactLevel, f.Frequency, string(supporting), nullString(f.BusinessArea), nullString(f.ProcessName), f.Tags,
		)
		if err != nil {
			return fmt.Errorf("insert finding: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// ProjectFindings lists a project's findings, highest impact first.
func (s *Store) ProjectFindings(ctx context.Context, projectID uuid.UUID) ([]project.Finding, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, project_id, interview_id, finding_type, title, description, impact_level,
		       frequency, supporting_quotes, business_area, process_name, tags, created_at
		FROM findings WHERE project_id = $1
		ORDER BY impact_level DESC, frequency DESC, created_at ASC`, projectID)
	if err != nil {
		return nil, fmt.Errorf("query findings: %w", err)
	}
	defer rows.Close()

	out := []project.Finding{}
	for rows.Next() {
		var (
			f      project.Finding
			quotes []byte
		)
		err := rows.Scan(&f.ID, &f.ProjectID, &f.InterviewID, &f.FindingType, &f.Title, &f.Description,
			&f.ImpactLevel, &f.Frequency, &quotes, &f.BusinessArea, &f.ProcessName, &f.Tags, &f.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan finding: %w", err)
		}
		if quotes != nil {
			f.SupportingQuotes = json.RawMessage(quotes)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
