package analysis

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/bryanwahyu/bizpanel/internal/application/agents"
	domain "github.com/bryanwahyu/bizpanel/internal/domain/analysis"
)

// chord is the fan-in barrier of one orchestration run: the task that
// settles last triggers synthesis. A re-run gets a fresh chord and run id;
// tasks of an older run see a different run id and never settle.
type chord struct {
	remaining atomic.Int32
}

func newChord(n int) *chord {
	c := &chord{}
	c.remaining.Store(int32(n))
	return c
}

// settle reports whether the caller was the last member to settle.
func (c *chord) settle() bool {
	return c.remaining.Add(-1) == 0
}

func snapshotOf(req *domain.Request) agents.Context {
	return agents.Context{
		RequestID:     string(req.ID),
		Title:         req.Title,
		Description:   req.Description,
		Category:      string(req.Category),
		TargetSegment: req.TargetSegment,
		Budget:        req.Budget,
	}
}

func (s *Service) orchestrateJob(id domain.RequestID, attempt int) Job {
	return func(ctx context.Context) {
		err := s.orchestrate(ctx, id, attempt)
		if err == nil {
			return
		}
		log := s.logger().With("request_id", id, "attempt", attempt)
		if errors.Is(err, domain.ErrNotFound) {
			log.Warn("orchestration dropped: request not found")
			return
		}
		if attempt <= s.Config.OrchestratorRetries {
			log.Warn("orchestration failed, retrying", "err", err, "delay", s.Config.OrchestratorRetryDelay)
			if serr := s.Scheduler.SubmitAfter(s.Config.OrchestratorRetryDelay, s.orchestrateJob(id, attempt+1)); serr == nil {
				return
			}
		}
		log.Error("orchestration failed", "err", err)
		if uerr := s.Requests.UpdateStatus(ctx, id, domain.StatusFailed, err.Error()); uerr != nil {
			log.Error("mark request failed", "err", uerr)
		}
		s.recorder().AnalysisFinished(domain.StatusFailed)
	}
}

// orchestrate moves the request to Analyzing and fans out one task per
// roster specialist. It fails only before dispatch.
func (s *Service) orchestrate(ctx context.Context, id domain.RequestID, attempt int) error {
	req, err := s.Requests.Get(ctx, id)
	if err != nil {
		return err
	}
	if req.Status.Terminal() {
		s.logger().Info("orchestration skipped", "request_id", id, "status", req.Status)
		return nil
	}
	runID := uuid.NewString()
	if err := s.Requests.StartRun(ctx, id, runID); err != nil {
		return fmt.Errorf("mark analyzing: %w", err)
	}

	started := s.now()
	audit := &domain.ExecutionTask{RequestID: id, Status: domain.TaskStarted, Attempt: attempt, CreatedAt: started, StartedAt: &started}
	if err := s.Tasks.Create(ctx, audit); err != nil {
		s.logger().Warn("record orchestration task", "request_id", id, "err", err)
		audit = nil
	}

	snap := snapshotOf(req)
	n := s.Roster.Size()
	ch := newChord(n)
	for _, a := range s.Roster.Specialists {
		t := &agentTask{requestID: id, runID: runID, agent: a, snapshot: snap, chord: ch, attempt: 1}
		if err := s.Scheduler.Submit(s.agentJob(t)); err != nil {
			s.finishAudit(ctx, audit, domain.TaskFailure, "", err.Error())
			return fmt.Errorf("dispatch %s: %w", a.Name(), err)
		}
	}
	if n == 0 {
		if err := s.Scheduler.Submit(s.synthesisJob(id, runID, snap, 1)); err != nil {
			return err
		}
	}
	s.finishAudit(ctx, audit, domain.TaskSuccess, fmt.Sprintf("dispatched %d agents", n), "")
	s.logger().Info("analysis dispatched", "request_id", id, "run_id", runID, "agents", n)
	return nil
}

func (s *Service) finishAudit(ctx context.Context, t *domain.ExecutionTask, status domain.TaskStatus, result, errMsg string) {
	if t == nil {
		return
	}
	if err := s.Tasks.Finish(ctx, t.ID, status, result, errMsg, s.now()); err != nil {
		s.logger().Warn("finish task audit", "task_id", t.ID, "err", err)
	}
}
