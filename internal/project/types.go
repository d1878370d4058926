package project

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/intake/internal/interview"
)

type Organization struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Industry  *string   `json:"industry"`
	Size      *string   `json:"size"`
	Notes     *string   `json:"notes"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Project struct {
	ID                 uuid.UUID  `json:"id"`
	OrganizationID     *uuid.UUID `json:"organization_id"`
	OrganizationName   *string    `json:"organization_name"`
	Name               string     `json:"name"`
	Description        *string    `json:"description"`
	Status             Status     `json:"status"`
	FindingsApproved   bool       `json:"findings_approved"`
	FindingsApprovedAt *time.Time `json:"findings_approved_at"`
	PRDApproved        bool       `json:"prd_approved"`
	PRDApprovedAt      *time.Time `json:"prd_approved_at"`
	QAApproved         bool       `json:"qa_approved"`
	QAApprovedAt       *time.Time `json:"qa_approved_at"`
	StartedAt          time.Time  `json:"started_at"`
	CompletedAt        *time.Time `json:"completed_at"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// NewProject is the create payload. When NewOrgName is set an organization is
// created first and OrganizationID is ignored.
type NewProject struct {
	Name           string     `json:"name"`
	Description    string     `json:"description"`
	OrganizationID *uuid.UUID `json:"organization_id"`
	NewOrgName     string     `json:"new_org_name"`
	NewOrgIndustry string     `json:"new_org_industry"`
}

func (n NewProject) Validate() error {
	if strings.TrimSpace(n.Name) == "" {
		return errors.New("name is required")
	}
	return nil
}

type Finding struct {
	ID               uuid.UUID       `json:"id"`
	ProjectID        *uuid.UUID      `json:"project_id"`
	InterviewID      *uuid.UUID      `json:"interview_id"`
	FindingType      string          `json:"finding_type"`
	Title            string          `json:"title"`
	Description      string          `json:"description"`
	ImpactLevel      int             `json:"impact_level"`
	Frequency        int             `json:"frequency"`
	SupportingQuotes json.RawMessage `json:"supporting_quotes"`
	BusinessArea     *string         `json:"business_area"`
	ProcessName      *string         `json:"process_name"`
	Tags             []string        `json:"tags"`
	CreatedAt        time.Time       `json:"created_at"`
}

type PRD struct {
	ID      uuid.UUID `json:"id"`
	Title   string    `json:"title"`
	Version int       `json:"version"`
	Status  string    `json:"status"`
}

type Task struct {
	ID       uuid.UUID `json:"id"`
	Title    string    `json:"title"`
	Status   string    `json:"status"`
	TaskType string    `json:"task_type"`
}

type Asset struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	AssetType      string    `json:"asset_type"`
	GoogleDriveURL *string   `json:"google_drive_url"`
	FigmaURL       *string   `json:"figma_url"`
}

// Detail is everything the project page shows.
type Detail struct {
	Project    Project               `json:"project"`
	Interviews []interview.Interview `json:"interviews"`
	Findings   []Finding             `json:"findings"`
	PRDs       []PRD                 `json:"prds"`
	Tasks      []Task                `json:"tasks"`
	Assets     []Asset               `json:"assets"`
}

type Stats struct {
	ActiveProjects    int `json:"activeProjects"`
	PendingInterviews int `json:"pendingInterviews"`
	Findings          int `json:"findings"`
	CompletedTasks    int `json:"completedTasks"`
	PendingApprovals  int `json:"pendingApprovals"`
}

type Dashboard struct {
	Stats            Stats     `json:"stats"`
	RecentProjects   []Project `json:"recentProjects"`
	PendingApprovals []Project `json:"pendingApprovals"`
}
