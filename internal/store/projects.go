package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/MikeSquared-Agency/intake/internal/project"
)

const projectSelect = `
	SELECT p.id, p.organization_id, o.name, p.name, p.description, p.status,
	       p.findings_approved, p.findings_approved_at, p.prd_approved, p.prd_approved_at,
	       p.qa_approved, p.qa_approved_at, p.started_at, p.completed_at, p.created_at, p.updated_at
	FROM projects p
	LEFT JOIN organizations o ON o.id = p.organization_id`

func scanProject(row pgx.Row) (project.Project, error) {
	var (
		p      project.Project
		status string
	)
	err := row.Scan(
		&p.ID, &p.OrganizationID, &p.OrganizationName, &p.Name, &p.Description, &status,
		&p.FindingsApproved, &p.FindingsApprovedAt, &p.PRDApproved, &p.PRDApprovedAt,
		&p.QAApproved, &p.QAApprovedAt, &p.StartedAt, &p.CompletedAt, &p.CreatedAt, &p.UpdatedAt,
	)
	p.Status = project.Status(status)
	return p, err
}

func collectProjects(rows pgx.Rows) ([]project.Project, error) {
	defer rows.Close()
	out := []project.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ListProjects returns projects, most recently updated first. An empty status lists all.
func (s *Store) ListProjects(ctx context.Context, status project.Status) ([]project.Project, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if status == "" {
		rows, err = s.pool.Query(ctx, projectSelect+` ORDER BY p.updated_at DESC`)
	} else {
		rows, err = s.pool.Query(ctx, projectSelect+` WHERE p.status = $1 ORDER BY p.updated_at DESC`, string(status))
	}
	if err != nil {
		return nil, fmt.Errorf("query projects: %w", err)
	}
	return collectProjects(rows)
}

func (s *Store) GetProject(ctx context.Context, id uuid.UUID) (*project.Project, error) {
	p, err := scanProject(s.pool.QueryRow(ctx, projectSelect+` WHERE p.id = $1`, id))
	if err != nil {
		return nil, notFound(err, project.ErrNotFound)
	}
	return &p, nil
}

// CreateProject inserts a project in discovery, creating its organization first when asked.
func (s *Store) CreateProject(ctx context.Context, np project.NewProject) (*project.Project, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	orgID := np.OrganizationID
	if name := strings.TrimSpace(np.NewOrgName); name != "" {
		newOrg := uuid.New()
		_, err = tx.Exec(ctx, `
			INSERT INTO organizations (id, name, industry) VALUES ($1, $2, $3)`,
			newOrg, name, nullString(np.NewOrgIndustry),
		)
		if err != nil {
			return nil, fmt.Errorf("insert organization: %w", err)
		}
		orgID = &newOrg
	}

	id := uuid.New()
	_, err = tx.Exec(ctx, `
		INSERT INTO projects (id, organization_id, name, description, status)
		VALUES ($1, $2, $3, $4, $5)`,
		id, orgID, strings.TrimSpace(np.Name), nullString(np.Description), string(project.StatusDiscovery),
	)
	if err != nil {
		return nil, fmt.Errorf("insert project: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return s.GetProject(ctx, id)
}

// UpdateProjectStatus moves a project to any valid status. Completing it stamps completed_at.
func (s *Store) UpdateProjectStatus(ctx context.Context, id uuid.UUID, status project.Status) (*project.Project, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("invalid project status %q", status)
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE projects SET
			status = $2,
			completed_at = CASE WHEN $2::text = 'completed' THEN now() ELSE completed_at END,
			updated_at = now()
		WHERE id = $1`,
		id, string(status),
	)
	if err != nil {
		return nil, fmt.Errorf("update project status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, project.ErrNotFound
	}
	return s.GetProject(ctx, id)
}

// ApproveGate records a sign-off and advances the project past the review stage.
func (s *Store) ApproveGate(ctx context.Context, id uuid.UUID, gate project.Gate) (*project.Project, error) {
	if _, err := project.ParseGate(string(gate)); err != nil {
		return nil, err
	}
	col := gate.Column()
	tag, err := s.pool.Exec(ctx, fmt.Sprintf(`
		UPDATE projects SET %s = true, %s_at = now(), status = $2, updated_at = now()
		WHERE id = $1`, col, col),
		id, string(gate.Advances()),
	)
	if err != nil {
		return nil, fmt.Errorf("approve %s: %w", gate, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, project.ErrNotFound
	}
	return s.GetProject(ctx, id)
}

// ProjectDetail loads a project with its interviews, findings, PRDs, tasks and assets.
func (s *Store) ProjectDetail(ctx context.Context, id uuid.UUID) (*project.Detail, error) {
	p, err := s.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}
	d := &project.Detail{Project: *p}

	if d.Interviews, err = s.ProjectInterviews(ctx, id); err != nil {
		return nil, err
	}
	if d.Findings, err = s.ProjectFindings(ctx, id); err != nil {
		return nil, err
	}

	d.PRDs = []project.PRD{}
	rows, err := s.pool.Query(ctx, `
		SELECT id, title, version, status FROM prds WHERE project_id = $1 ORDER BY version DESC`, id)
	if err != nil {
		return nil, fmt.Errorf("query prds: %w", err)
	}
	for rows.Next() {
		var prd project.PRD
		if err := rows.Scan(&prd.ID, &prd.Title, &prd.Version, &prd.Status); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan prd: %w", err)
		}
		d.PRDs = append(d.PRDs, prd)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query prds: %w", err)
	}

	d.Tasks = []project.Task{}
	rows, err = s.pool.Query(ctx, `
		SELECT id, title, status, task_type FROM tasks WHERE project_id = $1 ORDER BY priority ASC, created_at ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	for rows.Next() {
		var t project.Task
		if err := rows.Scan(&t.ID, &t.Title, &t.Status, &t.TaskType); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan task: %w", err)
		}
		d.Tasks = append(d.Tasks, t)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}

	d.Assets = []project.Asset{}
	rows, err = s.pool.Query(ctx, `
		SELECT id, name, asset_type, google_drive_url, figma_url FROM assets WHERE project_id = $1 ORDER BY created_at ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("query assets: %w", err)
	}
	for rows.Next() {
		var a project.Asset
		if err := rows.Scan(&a.ID, &a.Name, &a.AssetType, &a.GoogleDriveURL, &a.FigmaURL); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan asset: %w", err)
		}
		d.Assets = append(d.Assets, a)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query assets: %w", err)
	}

	return d, nil
}

func (s *Store) ListOrganizations(ctx context.Context) ([]project.Organization, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, industry, size, notes, created_at, updated_at
		FROM organizations ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query organizations: %w", err)
	}
	defer rows.Close()

	out := []project.Organization{}
	for rows.Next() {
		var o project.Organization
		if err := rows.Scan(&o.ID, &o.Name, &o.Industry, &o.Size, &o.Notes, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan organization: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func nullString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
