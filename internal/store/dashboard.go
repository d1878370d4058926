package store

import (
	"context"
	"fmt"

	"github.com/MikeSquared-Agency/intake/internal/project"
)

// DashboardStats counts the five headline numbers on the dashboard in one round trip.
func (s *Store) DashboardStats(ctx context.Context) (*project.Stats, error) {
	var st project.Stats
	err := s.pool.QueryRow(ctx, `
		SELECT
			(SELECT count(*) FROM projects WHERE status NOT IN ('completed', 'on_hold')),
			(SELECT count(*) FROM interviews WHERE status IN ('scheduled', 'in_progress')),
			(SELECT count(*) FROM findings),
			(SELECT count(*) FROM tasks WHERE status = 'done'),
			(SELECT count(*) FROM projects WHERE status IN ('review_findings', 'review_prd', 'review_qa'))`,
	).Scan(&st.ActiveProjects, &st.PendingInterviews, &st.Findings, &st.CompletedTasks, &st.PendingApprovals)
	if err != nil {
		return nil, fmt.Errorf("query dashboard stats: %w", err)
	}
	return &st, nil
}

func (s *Store) RecentProjects(ctx context.Context, limit int) ([]project.Project, error) {
	rows, err := s.pool.Query(ctx, projectSelect+` ORDER BY p.updated_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent projects: %w", err)
	}
	return collectProjects(rows)
}

// PendingApprovals lists projects sitting in a review stage, longest waiting first.
func (s *Store) PendingApprovals(ctx context.Context) ([]project.Project, error) {
	rows, err := s.pool.Query(ctx, projectSelect+`
		WHERE p.status IN ('review_findings', 'review_prd', 'review_qa')
		ORDER BY p.updated_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("query pending approvals: %w", err)
	}
	return collectProjects(rows)
}

// Dashboard assembles the dashboard payload.
func (s *Store) Dashboard(ctx context.Context, recent int) (*project.Dashboard, error) {
	stats, err := s.DashboardStats(ctx)
	if err != nil {
		return nil, err
	}
	recentProjects, err := s.RecentProjects(ctx, recent)
	if err != nil {
		return nil, err
	}
	pending, err := s.PendingApprovals(ctx)
	if err != nil {
		return nil, err
	}
	return &project.Dashboard{Stats: *stats, RecentProjects: recentProjects, PendingApprovals: pending}, nil
}
