package agents

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/bryanwahyu/bizpanel/internal/domain/llm"
)

// Generator routes a completion to a named backend ("" = default).
type Generator interface {
	Generate(ctx context.Context, backend, system, user string, opts llm.Options) (llm.Response, error)
}

// Result is what one agent run produced. Analyze never panics or returns
// an error; failures are carried in Err.
type Result struct {
	Success    bool
	Content    string
	Payload    Payload
	Confidence float64
	Duration   time.Duration
	TokenUsage int
	Backend    string
	Model      string
	Cost       float64
	Err        error
}

func (r Result) Error() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// ErrEmptyResponse is returned when a backend answers with no content.
var ErrEmptyResponse = errors.New("empty response from model")

type Runner struct {
	Providers Generator
	Logger    *slog.Logger
	Now       func() time.Time
}

func NewRunner(p Generator, log *slog.Logger) *Runner {
	if log == nil {
		log = slog.Default()
	}
	return &Runner{Providers: p, Logger: log, Now: time.Now}
}

// Analyze renders the prompts for a, calls its backend and parses the answer.
func (r *Runner) Analyze(ctx context.Context, a Agent, c Context) Result {
	now := r.Now
	if now == nil {
		now = time.Now
	}
	start := now()
	route := routeOf(a)

	res, err := r.Providers.Generate(ctx, route.Backend, a.SystemPrompt(), a.AnalysisPrompt(c), route.Options)
	out := Result{
		Duration:   now().Sub(start),
		Content:    res.Content,
		TokenUsage: res.TokenUsage,
		Backend:    res.Backend,
		Model:      res.Model,
		Cost:       res.Cost,
	}
	if out.Backend == "" {
		out.Backend = route.Backend
	}
	if err == nil && res.Content == "" {
		err = llm.Failed(out.Backend, ErrEmptyResponse)
	}
	if err != nil {
		r.Logger.Warn("agent analysis failed", "agent", a.Name(), "request_id", c.RequestID, "backend", out.Backend, "err", err)
		out.Err = err
		out.Content = ""
		out.Payload = Payload{}
		return out
	}

	out.Payload = a.ParseResponse(res.Content)
	out.Confidence = Confidence(out.Payload, expectedFieldsOf(a))
	out.Success = true
	r.Logger.Info("agent analysis completed", "agent", a.Name(), "request_id", c.RequestID,
		"backend", out.Backend, "tokens", out.TokenUsage, "duration", out.Duration)
	return out
}
