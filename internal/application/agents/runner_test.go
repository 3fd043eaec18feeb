package agents

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/bizpanel/internal/domain/llm"
)

type fakeGenerator struct {
	backend, system, user string
	opts                  llm.Options
	resp                  llm.Response
	err                   error
}

func (f *fakeGenerator) Generate(_ context.Context, backend, system, user string, opts llm.Options) (llm.Response, error) {
	f.backend, f.system, f.user, f.opts = backend, system, user, opts
	return f.resp, f.err
}

func testContext() Context {
	b := 50000.0
	return Context{
		RequestID:   "req-1",
		Title:       "Neighbourhood coffee subscription",
		Description: "Monthly beans delivered from local roasters.",
		Category:    "FOOD",
		Budget:      &b,
	}
}

func TestRunnerAnalyzeSuccess(t *testing.T) {
	gen := &fakeGenerator{resp: llm.Response{
		Content:    `{"market_score": 77, "market_size": {"tam": "1B"}, "competitors": [], "risks": ["x"], "opportunities": ["y"]}`,
		TokenUsage: 1200, Backend: "openai", Model: "gpt-4", Cost: 0.036,
	}}
	r := NewRunner(gen, nil)
	agent := NewMarketResearch()
	agent.Route = Route{Backend: "openai", Options: llm.Options{MaxTokens: 900}}

	res := r.Analyze(context.Background(), agent, testContext())
	require.True(t, res.Success)
	assert.NoError(t, res.Err)
	assert.Equal(t, 77, ScoreOf(res.Payload, ScoreFieldsOf(agent)))
	assert.InDelta(t, 100, res.Confidence, 0.001)
	assert.Equal(t, 1200, res.TokenUsage)
	assert.Equal(t, "openai", res.Backend)
	assert.Equal(t, "openai", gen.backend)
	assert.Equal(t, 900, gen.opts.MaxTokens)
	assert.Contains(t, gen.user, "Neighbourhood coffee subscription")
	assert.Contains(t, gen.user, "Target Segment: Not specified")
	assert.NotContains(t, gen.user, "{title}")
}

func TestRunnerAnalyzeProviderError(t *testing.T) {
	gen := &fakeGenerator{err: llm.Unavailable("ollama", errors.New("connection refused"))}
	res := NewRunner(gen, nil).Analyze(context.Background(), NewFinancial(), testContext())
	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Err, llm.ErrProviderUnavailable)
	assert.True(t, strings.Contains(res.Error(), "connection refused"))
	assert.NotNil(t, res.Payload)
}

func TestRunnerAnalyzeEmptyContent(t *testing.T) {
	gen := &fakeGenerator{resp: llm.Response{Backend: "openai"}}
	res := NewRunner(gen, nil).Analyze(context.Background(), NewMarketing(), testContext())
	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Err, ErrEmptyResponse)
}

func TestRunnerAnalyzeUnstructured(t *testing.T) {
	gen := &fakeGenerator{resp: llm.Response{Content: "It is a decent idea, my rating: 64.", Backend: "ollama"}}
	agent := NewTechLead()
	res := NewRunner(gen, nil).Analyze(context.Background(), agent, testContext())
	require.True(t, res.Success)
	assert.Equal(t, 64, ScoreOf(res.Payload, ScoreFieldsOf(agent)))
	assert.LessOrEqual(t, res.Payload.Float("confidence_indicators.data_quality_multiplier", 1), HeuristicQuality)
}

func TestCEOFallbackRecommendation(t *testing.T) {
	p := NewCEO().ParseResponse("EXECUTIVE SUMMARY\nSolid niche.\n\nWe should proceed with caution. Overall score: 71")
	assert.Equal(t, "PROCEED_WITH_CAUTION", p.String("recommendation", ""))
	assert.Equal(t, 71, p.Int("overall_score", 0))
	assert.Equal(t, "Solid niche.", p.String("executive_summary", ""))

	p = NewCEO().ParseResponse("no verdict")
	assert.Equal(t, "MODIFY", p.String("recommendation", ""))
	assert.Equal(t, 50, p.Int("overall_score", 0))
}

func TestDefaultRoster(t *testing.T) {
	r := DefaultRoster(map[string]Route{TechLead: {Backend: "anthropic"}})
	assert.Equal(t, 5, r.Size())
	assert.Equal(t, []string{MarketResearch, Financial, Marketing, TechLead, RiskAnalyst}, r.Names())
	tl, ok := r.Get(TechLead)
	require.True(t, ok)
	assert.Equal(t, "anthropic", routeOf(tl).Backend)
	assert.Equal(t, "technical", DimensionOf(tl))
	lead, ok := r.Get(CEO)
	require.True(t, ok)
	assert.Equal(t, r.Lead, lead)
	_, ok = r.Get("nope")
	assert.False(t, ok)
}
