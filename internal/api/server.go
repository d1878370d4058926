package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/intake/internal/analysis"
	"github.com/MikeSquared-Agency/intake/internal/interview"
	"github.com/MikeSquared-Agency/intake/internal/project"
	"github.com/MikeSquared-Agency/intake/internal/reconcile"
	"github.com/MikeSquared-Agency/intake/internal/store"
)

// StatusSource answers the sync status endpoint. It needs no database.
type StatusSource interface {
	Status(ctx context.Context) (*reconcile.Status, error)
}

// SyncService is the reconciler as seen by the sync endpoints.
type SyncService interface {
	StatusSource
	Run(ctx context.Context) (*reconcile.Report, error)
}

// BusStatus reports the event bus connection for the health endpoint.
type BusStatus interface {
	Connected() bool
}

// ProjectStore backs the dashboard and project routes.
type ProjectStore interface {
	Dashboard(ctx context.Context, recent int) (*project.Dashboard, error)
	ListOrganizations(ctx context.Context) ([]project.Organization, error)
	ListProjects(ctx context.Context, status project.Status) ([]project.Project, error)
	CreateProject(ctx context.Context, np project.NewProject) (*project.Project, error)
	ProjectDetail(ctx context.Context, id uuid.UUID) (*project.Detail, error)
	UpdateProjectStatus(ctx context.Context, id uuid.UUID, status project.Status) (*project.Project, error)
	ApproveGate(ctx context.Context, id uuid.UUID, gate project.Gate) (*project.Project, error)
	ScheduleInterview(ctx context.Context, p store.Placeholder) (*interview.Interview, error)
}

// Analyzer turns a transcribed interview into findings.
type Analyzer interface {
	Analyze(ctx context.Context, iv interview.Interview) (*analysis.Result, error)
}

// AnalysisStore loads interviews and persists analysis results.
type AnalysisStore interface {
	GetInterview(ctx context.Context, id uuid.UUID) (*interview.Interview, error)
	WriteAnalysis(ctx context.Context, interviewID uuid.UUID, projectID *uuid.UUID, res *analysis.Result) error
}

// Reviewer is told about fresh findings so a human can approve them.
type Reviewer interface {
	PostFindingsReview(ctx context.Context, label string, res *analysis.Result) (string, error)
}

// Error messages returned when a collaborator is not configured.
const (
	NotConfiguredElevenLabs = "ElevenLabs not configured"
	NotConfiguredDatabase   = "Database not configured"
)

type Option func(*Server)

// WithSync mounts the sync endpoints on a configured reconciler.
func WithSync(svc SyncService) Option {
	return func(s *Server) {
		s.sync = svc
		s.status = svc
	}
}

// WithSyncStatus serves GET on the sync endpoints when runs are unavailable,
// for instance because no database is configured.
func WithSyncStatus(st StatusSource) Option {
	return func(s *Server) { s.status = st }
}

// WithEventBus adds the bus connection state to /health.
func WithEventBus(bus BusStatus) Option {
	return func(s *Server) { s.bus = bus }
}

// WithSyncUnavailable overrides the error the sync endpoints return when no reconciler is configured.
func WithSyncUnavailable(reason string) Option {
	return func(s *Server) { s.syncUnavailable = reason }
}

// WithProjects mounts the dashboard and project routes.
func WithProjects(ps ProjectStore) Option {
	return func(s *Server) { s.projects = ps }
}

// WithInterviewAgent sets the agent and public URL stamped on scheduled interviews.
func WithInterviewAgent(agentID, interviewURL string) Option {
	return func(s *Server) {
		s.agentID = agentID
		s.interviewURL = interviewURL
	}
}

// WithAnalysis mounts the interview analysis route. reviewer may be nil.
func WithAnalysis(a Analyzer, as AnalysisStore, reviewer Reviewer) Option {
	return func(s *Server) {
		s.analyzer = a
		s.analysisStore = as
		s.reviewer = reviewer
	}
}

type Server struct {
	router     *chi.Mux
	port       int
	logger     *slog.Logger
	httpServer *http.Server

	sync            SyncService
	status          StatusSource
	bus             BusStatus
	syncUnavailable string
	projects        ProjectStore
	agentID         string
	interviewURL    string
	analyzer        Analyzer
	analysisStore   AnalysisStore
	reviewer        Reviewer
}

func NewServer(port int, logger *slog.Logger, opts ...Option) *Server {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router:          router,
		port:            port,
		logger:          logger,
		syncUnavailable: NotConfiguredElevenLabs,
	}
	for _, opt := range opts {
		opt(s)
	}

	router.Get("/health", s.health)

	for _, path := range []string{"/sync", "/api/elevenlabs/sync"} {
		router.Post(path, s.runSync)
		router.Get(path, s.syncStatus)
	}

	if s.projects != nil {
		router.Route("/api/v1", func(r chi.Router) {
			r.Get("/dashboard", s.dashboard)
			r.Get("/organizations", s.listOrganizations)
			r.Get("/projects", s.listProjects)
			r.Post("/projects", s.createProject)
			r.Route("/projects/{id}", func(r chi.Router) {
				r.Get("/", s.projectDetail)
				r.Patch("/status", s.updateStatus)
				r.Post("/approve/{gate}", s.approveGate)
				r.Post("/interviews", s.scheduleInterview)
			})
			if s.analyzer != nil && s.analysisStore != nil {
				r.Post("/interviews/{id}/analyze", s.analyzeInterview)
			}
		})
	}

	return s
}

// Handler exposes the router for embedding and tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("API server starting", "addr", addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	body := map[string]string{"status": "ok"}
	if s.bus != nil {
		body["nats"] = "disconnected"
		if s.bus.Connected() {
			body["nats"] = "connected"
		}
	}
	writeJSON(w, http.StatusOK, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// writeStoreError maps not-found sentinels to 404 and everything else to 500.
func (s *Server) writeStoreError(w http.ResponseWriter, r *http.Request, op string, err error) {
	if errors.Is(err, project.ErrNotFound) || errors.Is(err, interview.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	s.logger.Error(op+" failed", "error", err, "path", r.URL.Path)
	writeError(w, http.StatusInternalServerError, "Internal server error")
}

func pathUUID(r *http.Request, key string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, key))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s: %w", key, err)
	}
	return id, nil
}
