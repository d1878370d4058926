package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/intake/internal/analysis"
	"github.com/MikeSquared-Agency/intake/internal/interview"
	"github.com/MikeSquared-Agency/intake/internal/project"
	"github.com/MikeSquared-Agency/intake/internal/store"
)

const recentProjects = 5

func (s *Server) dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := s.projects.Dashboard(r.Context(), recentProjects)
	if err != nil {
		s.writeStoreError(w, r, "dashboard", err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) listOrganizations(w http.ResponseWriter, r *http.Request) {
	orgs, err := s.projects.ListOrganizations(r.Context())
	if err != nil {
		s.writeStoreError(w, r, "list organizations", err)
		return
	}
	writeJSON(w, http.StatusOK, orgs)
}

func (s *Server) listProjects(w http.ResponseWriter, r *http.Request) {
	status := project.Status(r.URL.Query().Get("status"))
	if status != "" && !status.Valid() {
		writeError(w, http.StatusBadRequest, "invalid status filter")
		return
	}
	projects, err := s.projects.ListProjects(r.Context(), status)
	if err != nil {
		s.writeStoreError(w, r, "list projects", err)
		return
	}
	writeJSON(w, http.StatusOK, projects)
}

func (s *Server) createProject(w http.ResponseWriter, r *http.Request) {
	var np project.NewProject
	if err := json.NewDecoder(r.Body).Decode(&np); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := np.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	p, err := s.projects.CreateProject(r.Context(), np)
	if err != nil {
		s.writeStoreError(w, r, "create project", err)
		return
	}
	s.logger.Info("project created", "project_id", p.ID, "name", p.Name)
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) projectDetail(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	d, err := s.projects.ProjectDetail(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, r, "project detail", err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) updateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var body struct {
		Status project.Status `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !body.Status.Valid() {
		writeError(w, http.StatusBadRequest, "invalid status")
		return
	}

	p, err := s.projects.UpdateProjectStatus(r.Context(), id, body.Status)
	if err != nil {
		s.writeStoreError(w, r, "update project status", err)
		return
	}
	s.logger.Info("project status updated", "project_id", id, "status", p.Status)
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) approveGate(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	gate, err := project.ParseGate(chi.URLParam(r, "gate"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	p, err := s.projects.ApproveGate(r.Context(), id, gate)
	if err != nil {
		s.writeStoreError(w, r, "approve gate", err)
		return
	}
	s.logger.Info("gate approved", "project_id", id, "gate", gate, "status", p.Status)
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) scheduleInterview(w http.ResponseWriter, r *http.Request) {
	if s.agentID == "" {
		writeError(w, http.StatusInternalServerError, NotConfiguredElevenLabs)
		return
	}
	projectID, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var body struct {
		StakeholderID *uuid.UUID `json:"stakeholder_id"`
		ScheduledAt   *time.Time `json:"scheduled_at"`
	}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	iv, err := s.projects.ScheduleInterview(r.Context(), store.Placeholder{
		ProjectID:     projectID,
		StakeholderID: body.StakeholderID,
		AgentID:       s.agentID,
		InterviewURL:  s.interviewURL,
		ScheduledAt:   body.ScheduledAt,
	})
	if err != nil {
		s.writeStoreError(w, r, "schedule interview", err)
		return
	}
	s.logger.Info("interview scheduled", "project_id", projectID, "interview_id", iv.ID)
	writeJSON(w, http.StatusCreated, iv)
}

type analyzeResponse struct {
	InterviewID uuid.UUID           `json:"interview_id"`
	Summary     string              `json:"summary"`
	KeyQuotes   []analysis.KeyQuote `json:"key_quotes"`
	Findings    []analysis.Finding  `json:"findings"`
}

func (s *Server) analyzeInterview(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	iv, err := s.analysisStore.GetInterview(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, r, "load interview", err)
		return
	}

	res, err := s.analyzer.Analyze(r.Context(), *iv)
	if err != nil {
		if errors.Is(err, analysis.ErrNoTranscript) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("analysis failed", "interview_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "Failed to analyze interview", Details: err.Error()})
		return
	}

	if err := s.analysisStore.WriteAnalysis(r.Context(), iv.ID, iv.ProjectID, res); err != nil {
		s.writeStoreError(w, r, "write analysis", err)
		return
	}

	if s.reviewer != nil {
		if _, err := s.reviewer.PostFindingsReview(r.Context(), interviewLabel(iv), res); err != nil {
			s.logger.Warn("failed to post findings review", "interview_id", id, "error", err)
		}
	}

	writeJSON(w, http.StatusOK, analyzeResponse{
		InterviewID: iv.ID,
		Summary:     res.Summary,
		KeyQuotes:   res.KeyQuotes,
		Findings:    res.Findings,
	})
}

func interviewLabel(iv *interview.Interview) string {
	if sh, ok := iv.Stakeholder.Get(); ok {
		if sh.Role != nil && *sh.Role != "" {
			return sh.Name + " (" + *sh.Role + ")"
		}
		return sh.Name
	}
	return "interview " + iv.ID.String()
}
