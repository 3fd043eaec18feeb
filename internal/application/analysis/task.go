package analysis

import (
	"context"
	"errors"
	"fmt"

	"github.com/bryanwahyu/bizpanel/internal/application/agents"
	domain "github.com/bryanwahyu/bizpanel/internal/domain/analysis"
	"github.com/bryanwahyu/bizpanel/internal/domain/llm"
)

// agentTask is one (request, agent) execution. Attempts run one after the
// other, never concurrently, and exactly one of them settles the chord.
type agentTask struct {
	requestID domain.RequestID
	runID     string
	agent     agents.Agent
	snapshot  agents.Context
	chord     *chord
	attempt   int
}

func (s *Service) agentJob(t *agentTask) Job {
	return func(ctx context.Context) { s.runAgent(ctx, t) }
}

func (s *Service) runAgent(ctx context.Context, t *agentTask) {
	name := t.agent.Name()
	log := s.logger().With("request_id", t.requestID, "agent", name, "attempt", t.attempt)

	state, err := s.runStateOf(ctx, t.requestID, t.runID)
	if err != nil {
		s.retryOrFail(ctx, t, nil, nil, err)
		return
	}
	if state != runCurrent {
		s.revoke(ctx, t, nil, state)
		return
	}

	rep, _, err := s.Reports.GetOrCreate(ctx, t.requestID, name)
	if err != nil {
		s.retryOrFail(ctx, t, nil, nil, err)
		return
	}
	rep.Status = domain.ReportInProgress
	rep.Error = ""
	if err := s.Reports.Save(ctx, rep); err != nil {
		s.retryOrFail(ctx, t, rep, nil, err)
		return
	}

	started := s.now()
	audit := &domain.ExecutionTask{
		RequestID: t.requestID,
		Agent:     name,
		ReportID:  rep.ID,
		Status:    domain.TaskStarted,
		Attempt:   t.attempt,
		CreatedAt: started,
		StartedAt: &started,
	}
	if err := s.Tasks.Create(ctx, audit); err != nil {
		log.Warn("record agent task", "err", err)
		audit = nil
	}
	s.recorder().AgentStarted(name)

	res := s.Runner.Analyze(ctx, t.agent, t.snapshot)
	if state, _ := s.runStateOf(ctx, t.requestID, t.runID); state != runCurrent {
		s.revoke(ctx, t, audit, state)
		return
	}
	if !res.Success {
		if llm.Retryable(res.Err) {
			s.retryOrFail(ctx, t, rep, audit, res.Err)
		} else {
			s.failAgent(ctx, t, rep, audit, res.Err)
		}
		return
	}

	score := agents.ScoreOf(res.Payload, agents.ScoreFieldsOf(t.agent))
	rep.Content = res.Content
	rep.Payload = res.Payload
	rep.Score = &score
	rep.Confidence = res.Confidence
	rep.Duration = res.Duration
	rep.Backend = res.Backend
	rep.Model = res.Model
	rep.TokenUsage = res.TokenUsage
	rep.Cost = res.Cost
	rep.Status = domain.ReportCompleted
	rep.Error = ""
	if err := s.Reports.Save(ctx, rep); err != nil {
		s.retryOrFail(ctx, t, rep, audit, err)
		return
	}

	s.finishAudit(ctx, audit, domain.TaskSuccess, fmt.Sprintf("score=%d confidence=%.1f", score, res.Confidence), "")
	s.recorder().AgentFinished(name, domain.ReportCompleted, res.Duration)
	log.Info("agent completed", "score", score, "backend", res.Backend, "tokens", res.TokenUsage)
	s.settle(t)
}

// runState is how a task stands against its request's current run.
type runState int

const (
	runCurrent runState = iota
	runCancelled
	runStale
)

func (st runState) String() string {
	switch st {
	case runCancelled:
		return "request cancelled"
	case runStale:
		return "superseded by a newer run"
	}
	return "current"
}

func (s *Service) runStateOf(ctx context.Context, id domain.RequestID, runID string) (runState, error) {
	req, err := s.Requests.Get(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		// request dihapus, tidak ada yang perlu ditulis
		return runStale, nil
	}
	if err != nil {
		return runCurrent, err
	}
	if req.RunID != runID {
		return runStale, nil
	}
	if req.Status == domain.StatusCancelled {
		return runCancelled, nil
	}
	return runCurrent, nil
}

// revoke drops a task without writing its result. A cancelled run still
// settles so its chord drains; a superseded run's chord is abandoned.
func (s *Service) revoke(ctx context.Context, t *agentTask, audit *domain.ExecutionTask, state runState) {
	reason := state.String()
	if audit == nil {
		now := s.now()
		audit = &domain.ExecutionTask{
			RequestID:   t.requestID,
			Agent:       t.agent.Name(),
			Status:      domain.TaskRevoked,
			Attempt:     t.attempt,
			Error:       reason,
			CreatedAt:   now,
			CompletedAt: &now,
		}
		if err := s.Tasks.Create(ctx, audit); err != nil {
			s.logger().Warn("record revoked task", "request_id", t.requestID, "agent", t.agent.Name(), "err", err)
		}
	} else {
		s.finishAudit(ctx, audit, domain.TaskRevoked, "", reason)
	}
	s.logger().Info("agent task revoked", "request_id", t.requestID, "run_id", t.runID, "agent", t.agent.Name(),
		"attempt", t.attempt, "reason", reason)
	if state == runCancelled {
		s.settle(t)
	}
}

// retryOrFail reschedules the task after the fixed backoff while the retry
// budget lasts, otherwise fails it permanently.
func (s *Service) retryOrFail(ctx context.Context, t *agentTask, rep *domain.AgentReport, audit *domain.ExecutionTask, cause error) {
	name := t.agent.Name()
	if t.attempt <= s.Config.MaxRetries {
		if rep != nil {
			rep.Status = domain.ReportRetrying
			rep.Error = cause.Error()
			if err := s.Reports.Save(ctx, rep); err != nil {
				s.logger().Warn("mark report retrying", "request_id", t.requestID, "agent", name, "err", err)
			}
		}
		s.finishAudit(ctx, audit, domain.TaskRetry, "", cause.Error())
		next := *t
		next.attempt++
		if err := s.Scheduler.SubmitAfter(s.Config.RetryDelay, s.agentJob(&next)); err == nil {
			s.recorder().AgentRetried(name)
			s.logger().Warn("agent failed, retrying", "request_id", t.requestID, "agent", name,
				"attempt", t.attempt, "delay", s.Config.RetryDelay, "err", cause)
			return
		}
	}
	s.failAgent(ctx, t, rep, audit, cause)
}

func (s *Service) failAgent(ctx context.Context, t *agentTask, rep *domain.AgentReport, audit *domain.ExecutionTask, cause error) {
	name := t.agent.Name()
	msg := "unknown error"
	if cause != nil {
		msg = cause.Error()
	}
	if rep == nil {
		if r, _, err := s.Reports.GetOrCreate(ctx, t.requestID, name); err == nil {
			rep = r
		}
	}
	if rep != nil {
		rep.Status = domain.ReportFailed
		rep.Error = msg
		if err := s.Reports.Save(ctx, rep); err != nil {
			s.logger().Error("mark report failed", "request_id", t.requestID, "agent", name, "err", err)
		}
	}
	s.finishAudit(ctx, audit, domain.TaskFailure, "", msg)
	s.recorder().AgentFinished(name, domain.ReportFailed, 0)
	s.logger().Warn("agent failed", "request_id", t.requestID, "agent", name, "attempt", t.attempt, "err", msg)
	s.settle(t)
}

// settle counts the task into its chord; the last one queues synthesis.
func (s *Service) settle(t *agentTask) {
	if !t.chord.settle() {
		return
	}
	if err := s.Scheduler.Submit(s.synthesisJob(t.requestID, t.runID, t.snapshot, 1)); err != nil {
		// request stays Analyzing and is picked up by Resume
		s.logger().Error("queue synthesis", "request_id", t.requestID, "err", err)
	}
}
