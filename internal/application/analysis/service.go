package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/bryanwahyu/bizpanel/internal/application"
	"github.com/bryanwahyu/bizpanel/internal/application/agents"
	domain "github.com/bryanwahyu/bizpanel/internal/domain/analysis"
)

// AgentRunner runs one agent against one context.
type AgentRunner interface {
	Analyze(ctx context.Context, a agents.Agent, c agents.Context) agents.Result
}

// Config holds the retry policy.
type Config struct {
	MaxRetries             int
	RetryDelay             time.Duration
	OrchestratorRetries    int
	OrchestratorRetryDelay time.Duration
}

func DefaultConfig() Config {
	return Config{
		MaxRetries:             2,
		RetryDelay:             30 * time.Second,
		OrchestratorRetries:    3,
		OrchestratorRetryDelay: 60 * time.Second,
	}
}

// Service implements use-cases untuk analysis request.
// Safe for concurrent use; all work runs on the Scheduler.
type Service struct {
	Requests domain.RequestRepository
	Reports  domain.ReportRepository
	Finals   domain.FinalReportRepository
	Tasks    domain.TaskRepository
	Archive  domain.ArchiveStore // optional

	Runner    AgentRunner
	Roster    agents.Roster
	Scheduler Scheduler
	Clock     application.Clock
	Log       *slog.Logger
	Metrics   Recorder
	Config    Config
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return time.Now().UTC()
	}
	return s.Clock.Now().UTC()
}

func (s *Service) logger() *slog.Logger {
	if s.Log == nil {
		return slog.Default()
	}
	return s.Log
}

func (s *Service) recorder() Recorder {
	if s.Metrics == nil {
		return nopRecorder{}
	}
	return s.Metrics
}

//
// ==== USE CASES ====
//

// Submit validates and persists a request, then queues its orchestration.
func (s *Service) Submit(ctx context.Context, sub domain.Submission) (*domain.Request, error) {
	sub = sub.Normalize()
	if err := sub.Validate(); err != nil {
		return nil, err
	}
	now := s.now()
	req := &domain.Request{
		ID:            domain.RequestID(uuid.NewString()),
		Title:         sub.Title,
		Description:   sub.Description,
		Category:      domain.Category(sub.Category),
		TargetSegment: sub.TargetSegment,
		Budget:        sub.Budget,
		Status:        domain.StatusPending,
		SubmittedAt:   now,
		UpdatedAt:     now,
	}
	if err := s.Requests.Create(ctx, req); err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if err := s.enqueue(ctx, req.ID); err != nil {
		return nil, err
	}
	req.Status = domain.StatusQueued
	s.recorder().AnalysisSubmitted()
	s.logger().Info("analysis submitted", "request_id", req.ID, "category", req.Category)
	return req, nil
}

func (s *Service) enqueue(ctx context.Context, id domain.RequestID) error {
	if err := s.Requests.UpdateStatus(ctx, id, domain.StatusQueued, ""); err != nil {
		return fmt.Errorf("queue request %s: %w", id, err)
	}
	if err := s.Scheduler.Submit(s.orchestrateJob(id, 1)); err != nil {
		return fmt.Errorf("queue request %s: %w", id, err)
	}
	return nil
}

// AgentStatus is one roster member's progress.
type AgentStatus struct {
	Agent      string              `json:"agent"`
	Status     domain.ReportStatus `json:"status"`
	Score      *int                `json:"score,omitempty"`
	Confidence float64             `json:"confidence"`
	Error      string              `json:"error_message,omitempty"`
}

// StatusView is the status boundary payload.
type StatusView struct {
	ID              domain.RequestID    `json:"id"`
	Status          domain.Status       `json:"status"`
	PercentComplete float64             `json:"percent_complete"`
	Agents          []AgentStatus       `json:"agents"`
	FailureReason   string              `json:"failure_reason,omitempty"`
	FinalReport     *domain.FinalReport `json:"final_report,omitempty"`
}

func (s *Service) Status(ctx context.Context, id domain.RequestID) (*StatusView, error) {
	req, err := s.Requests.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	reports, err := s.Reports.ListByRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	byAgent := map[string]*domain.AgentReport{}
	for _, r := range reports {
		byAgent[r.Agent] = r
	}

	view := &StatusView{ID: req.ID, Status: req.Status, FailureReason: req.FailureReason, Agents: []AgentStatus{}}
	completed := 0
	for _, name := range s.Roster.Names() {
		as := AgentStatus{Agent: name, Status: domain.ReportPending}
		if r, ok := byAgent[name]; ok {
			as.Status, as.Score, as.Confidence, as.Error = r.Status, r.Score, r.Confidence, r.Error
			if r.Status == domain.ReportCompleted {
				completed++
			}
		}
		view.Agents = append(view.Agents, as)
	}
	if n := s.Roster.Size(); n > 0 {
		view.PercentComplete = float64(completed) / float64(n) * 100
	}
	if req.Status == domain.StatusCompleted {
		f, err := s.Finals.Get(ctx, id)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		view.FinalReport = f
	}
	return view, nil
}

func (s *Service) Get(ctx context.Context, id domain.RequestID) (*domain.Request, error) {
	return s.Requests.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, page, pageSize int) ([]*domain.Request, error) {
	return s.Requests.List(ctx, page, pageSize)
}

// ListReports lists the agent reports of a request.
func (s *Service) ListReports(ctx context.Context, id domain.RequestID) ([]*domain.AgentReport, error) {
	if _, err := s.Requests.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.Reports.ListByRequest(ctx, id)
}

func (s *Service) FinalReport(ctx context.Context, id domain.RequestID) (*domain.FinalReport, error) {
	return s.Finals.Get(ctx, id)
}

func (s *Service) ListTasks(ctx context.Context, id domain.RequestID) ([]*domain.ExecutionTask, error) {
	if _, err := s.Requests.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.Tasks.ListByRequest(ctx, id)
}

func (s *Service) Summary(ctx context.Context) (domain.Summary, error) {
	return s.Requests.Summary(ctx)
}

// Reanalyze drops previous results and runs the request again.
func (s *Service) Reanalyze(ctx context.Context, id domain.RequestID) (*domain.Request, error) {
	req, err := s.Requests.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Status.InProgress() {
		return nil, domain.ErrAnalysisInProgress
	}
	if err := s.Finals.Delete(ctx, id); err != nil {
		return nil, fmt.Errorf("delete final report: %w", err)
	}
	if err := s.Reports.DeleteByRequest(ctx, id); err != nil {
		return nil, fmt.Errorf("delete reports: %w", err)
	}
	if err := s.Requests.Reset(ctx, id); err != nil {
		return nil, err
	}
	if err := s.enqueue(ctx, id); err != nil {
		return nil, err
	}
	s.logger().Info("analysis resubmitted", "request_id", id)
	return s.Requests.Get(ctx, id)
}

// Cancel stops a non-terminal request. Queued tasks observe the status and skip.
func (s *Service) Cancel(ctx context.Context, id domain.RequestID) (*domain.Request, error) {
	req, err := s.Requests.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Status.Terminal() {
		return nil, fmt.Errorf("%w: request is %s", domain.ErrInvalidTransition, req.Status)
	}
	if err := s.Requests.UpdateStatus(ctx, id, domain.StatusCancelled, "cancelled by user"); err != nil {
		return nil, err
	}
	s.recorder().AnalysisFinished(domain.StatusCancelled)
	s.logger().Info("analysis cancelled", "request_id", id)
	return s.Requests.Get(ctx, id)
}

// Resume re-queues requests a previous process left Queued or Analyzing.
func (s *Service) Resume(ctx context.Context) (int, error) {
	reqs, err := s.Requests.ListByStatus(ctx, domain.StatusQueued, domain.StatusAnalyzing)
	if err != nil {
		return 0, err
	}
	for _, r := range reqs {
		if err := s.Scheduler.Submit(s.orchestrateJob(r.ID, 1)); err != nil {
			return 0, err
		}
	}
	if len(reqs) > 0 {
		s.logger().Info("resumed unfinished analyses", "count", len(reqs))
	}
	return len(reqs), nil
}
