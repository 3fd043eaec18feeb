package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/bryanwahyu/bizpanel/internal/application/agents"
	domain "github.com/bryanwahyu/bizpanel/internal/domain/analysis"
	"github.com/bryanwahyu/bizpanel/internal/domain/llm"
)

func (s *Service) synthesisJob(id domain.RequestID, runID string, snap agents.Context, attempt int) Job {
	return func(ctx context.Context) { s.synthesize(ctx, id, runID, snap, attempt) }
}

// synthesize runs the lead agent over every completed report of run runID
// and stores the final report. Re-running it updates the same final report.
func (s *Service) synthesize(ctx context.Context, id domain.RequestID, runID string, snap agents.Context, attempt int) {
	lead := s.Roster.Lead
	log := s.logger().With("request_id", id, "run_id", runID, "attempt", attempt)

	req, err := s.Requests.Get(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		log.Warn("synthesis dropped: request not found")
		return
	}
	if err != nil {
		s.retrySynthesis(ctx, id, runID, snap, attempt, nil, err)
		return
	}
	if req.RunID != runID {
		log.Info("synthesis dropped: run superseded")
		return
	}
	if req.Status == domain.StatusCancelled {
		log.Info("request cancelled, synthesis skipped")
		return
	}

	reports, err := s.Reports.ListByRequest(ctx, id)
	if err != nil {
		s.retrySynthesis(ctx, id, runID, snap, attempt, nil, err)
		return
	}
	if pending := s.unsettled(reports); len(pending) > 0 {
		s.retrySynthesis(ctx, id, runID, snap, attempt, nil,
			fmt.Errorf("%w: %s", domain.ErrReportsUnsettled, strings.Join(pending, ", ")))
		return
	}
	completed, failed := s.partition(reports)

	started := s.now()
	audit := &domain.ExecutionTask{RequestID: id, Agent: lead.Name(), Status: domain.TaskStarted, Attempt: attempt, CreatedAt: started, StartedAt: &started}
	if err := s.Tasks.Create(ctx, audit); err != nil {
		log.Warn("record synthesis task", "err", err)
		audit = nil
	}

	if len(completed) == 0 {
		s.failSynthesis(ctx, id, audit, domain.ErrAggregation)
		return
	}

	input, err := reportsJSON(completed)
	if err != nil {
		s.failSynthesis(ctx, id, audit, err)
		return
	}
	failedList := "None"
	if len(failed) > 0 {
		failedList = strings.Join(failed, ", ")
	}
	c := snap.With("agent_reports", input).With("failed_agents", failedList)

	res := s.Runner.Analyze(ctx, lead, c)
	if state, _ := s.runStateOf(ctx, id, runID); state != runCurrent {
		s.finishAudit(ctx, audit, domain.TaskRevoked, "", state.String())
		log.Info("synthesis revoked", "reason", state.String())
		return
	}
	if !res.Success {
		err := fmt.Errorf("lead agent %s failed: %w", lead.Name(), res.Err)
		if llm.Retryable(res.Err) {
			s.retrySynthesis(ctx, id, runID, snap, attempt, audit, err)
		} else {
			s.failSynthesis(ctx, id, audit, err)
		}
		return
	}

	final := s.buildFinal(id, res, completed, failed)
	if s.Archive != nil {
		url, err := s.Archive.PutJSON(ctx, fmt.Sprintf("final-reports/%s.json", id), final)
		if err != nil {
			log.Warn("archive final report", "err", err)
		} else {
			final.ArtifactURL = url
		}
	}

	if _, err := s.Finals.Upsert(ctx, final); err != nil {
		s.retrySynthesis(ctx, id, runID, snap, attempt, audit, fmt.Errorf("store final report: %w", err))
		return
	}
	if err := s.Requests.Complete(ctx, id, final.OverallScore, final.Recommendation, final.Confidence); err != nil {
		s.retrySynthesis(ctx, id, runID, snap, attempt, audit, fmt.Errorf("complete request: %w", err))
		return
	}

	s.finishAudit(ctx, audit, domain.TaskSuccess, fmt.Sprintf("overall_score=%d recommendation=%s", final.OverallScore, final.Recommendation), "")
	s.recorder().AnalysisFinished(domain.StatusCompleted)
	log.Info("analysis completed", "overall_score", final.OverallScore, "recommendation", final.Recommendation,
		"agents_completed", final.AgentsCompleted, "agents_failed", final.AgentsFailed, "total_cost", final.TotalCost)
}

// unsettled names roster agents whose report is still pending or running.
func (s *Service) unsettled(reports []*domain.AgentReport) []string {
	var out []string
	for _, r := range reports {
		if _, ok := s.Roster.Get(r.Agent); ok && !r.Status.Settled() {
			out = append(out, r.Agent)
		}
	}
	sort.Strings(out)
	return out
}

// partition splits roster reports into completed ones and the names of
// roster agents without a completed report.
func (s *Service) partition(reports []*domain.AgentReport) ([]*domain.AgentReport, []string) {
	done := map[string]*domain.AgentReport{}
	for _, r := range reports {
		if r.Status == domain.ReportCompleted {
			done[r.Agent] = r
		}
	}
	var completed []*domain.AgentReport
	var failed []string
	for _, name := range s.Roster.Names() {
		if r, ok := done[name]; ok {
			completed = append(completed, r)
		} else {
			failed = append(failed, name)
		}
	}
	return completed, failed
}

type reportInput struct {
	Score      int            `json:"score"`
	Confidence float64        `json:"confidence"`
	Data       map[string]any `json:"data"`
}

func reportsJSON(reports []*domain.AgentReport) (string, error) {
	in := make(map[string]reportInput, len(reports))
	for _, r := range reports {
		score := agents.DefaultScore
		if r.Score != nil {
			score = *r.Score
		}
		in[r.Agent] = reportInput{Score: score, Confidence: r.Confidence, Data: r.Payload}
	}
	b, err := json.MarshalIndent(in, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode agent reports: %w", err)
	}
	return string(b), nil
}

func (s *Service) buildFinal(id domain.RequestID, res agents.Result, completed []*domain.AgentReport, failed []string) *domain.FinalReport {
	p := res.Payload
	subs := map[string]int{}
	total := res.Cost
	for _, r := range completed {
		total += r.Cost
		if r.Score == nil {
			continue
		}
		if a, ok := s.Roster.Get(r.Agent); ok {
			subs[agents.DimensionOf(a)] = *r.Score
		}
	}

	findings := firstList(p, "key_findings", "success_factors")
	recs := firstList(p, "recommendations", "next_steps")
	summary := p.String("executive_summary", "")
	if summary == "" {
		summary = res.Content
	}

	return &domain.FinalReport{
		RequestID:        id,
		ExecutiveSummary: summary,
		KeyFindings:      findings,
		Recommendations:  recs,
		MajorRisks:       p.Strings("major_risks"),
		SubScores:        subs,
		OverallScore:     agents.ScoreOf(p, agents.ScoreFieldsOf(s.Roster.Lead)),
		Recommendation:   domain.ParseRecommendation(strings.ToUpper(strings.TrimSpace(p.String("recommendation", "")))),
		Confidence:       res.Confidence,
		GeneratedBy:      s.Roster.Lead.Name(),
		AgentsCompleted:  len(completed),
		AgentsFailed:     len(failed),
		TotalCost:        total,
	}
}

func firstList(p agents.Payload, keys ...string) []string {
	for _, k := range keys {
		if l := p.Strings(k); len(l) > 0 {
			return l
		}
	}
	return []string{}
}

func (s *Service) retrySynthesis(ctx context.Context, id domain.RequestID, runID string, snap agents.Context, attempt int, audit *domain.ExecutionTask, cause error) {
	if attempt <= s.Config.MaxRetries {
		s.finishAudit(ctx, audit, domain.TaskRetry, "", cause.Error())
		if err := s.Scheduler.SubmitAfter(s.Config.RetryDelay, s.synthesisJob(id, runID, snap, attempt+1)); err == nil {
			s.logger().Warn("synthesis failed, retrying", "request_id", id, "attempt", attempt, "err", cause)
			return
		}
	}
	s.failSynthesis(ctx, id, audit, cause)
}

func (s *Service) failSynthesis(ctx context.Context, id domain.RequestID, audit *domain.ExecutionTask, cause error) {
	s.finishAudit(ctx, audit, domain.TaskFailure, "", cause.Error())
	if err := s.Requests.UpdateStatus(ctx, id, domain.StatusFailed, cause.Error()); err != nil {
		s.logger().Error("mark request failed", "request_id", id, "err", err)
	}
	s.recorder().AnalysisFinished(domain.StatusFailed)
	s.logger().Warn("synthesis failed", "request_id", id, "err", cause)
}

// SubScoreKeys lists the dimensions in a stable order for display.
func SubScoreKeys(f *domain.FinalReport) []string {
	keys := make([]string, 0, len(f.SubScores))
	for k := range f.SubScores {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
