package agents

import (
	"strings"

	"github.com/bryanwahyu/bizpanel/internal/infra/ai/prompt"
)

const (
	CEO            = "CEO"
	MarketResearch = "MARKET_RESEARCH"
	Financial      = "FINANCIAL"
	Marketing      = "MARKETING"
	TechLead       = "TECH_LEAD"
	RiskAnalyst    = "RISK_ANALYST"
)

// Roster is the fixed set of specialists plus the lead agent that
// synthesises their reports.
type Roster struct {
	Lead        Agent
	Specialists []Agent
}

func (r Roster) Size() int { return len(r.Specialists) }

func (r Roster) Names() []string {
	out := make([]string, 0, len(r.Specialists))
	for _, a := range r.Specialists {
		out = append(out, a.Name())
	}
	return out
}

func (r Roster) Get(name string) (Agent, bool) {
	if r.Lead != nil && r.Lead.Name() == name {
		return r.Lead, true
	}
	for _, a := range r.Specialists {
		if a.Name() == name {
			return a, true
		}
	}
	return nil, false
}

// DimensionOf maps a specialist to the sub-score it feeds.
func DimensionOf(a Agent) string {
	if s, ok := a.(*Specialist); ok {
		return s.Dimension
	}
	return strings.ToLower(a.Name())
}

// DefaultRoster builds the five specialists and the CEO. routes override
// backend and options per agent name.
func DefaultRoster(routes map[string]Route) Roster {
	all := []*Specialist{NewMarketResearch(), NewFinancial(), NewMarketing(), NewTechLead(), NewRiskAnalyst()}
	ceo := NewCEO()
	apply := func(s *Specialist) {
		if r, ok := routes[s.ID]; ok {
			s.Route = r
		}
	}
	r := Roster{Lead: ceo}
	apply(ceo)
	for _, s := range all {
		apply(s)
		r.Specialists = append(r.Specialists, s)
	}
	return r
}

func NewMarketResearch() *Specialist {
	return &Specialist{
		ID:          MarketResearch,
		DisplayName: "Market Research Analyst",
		Dimension:   "market",
		System:      prompt.MarketResearchSystem,
		Analysis:    prompt.MarketResearchAnalysis,
		ScoreKeys:   []string{"market_score", "score"},
		Expected:    []string{"market_score", "market_size", "competitors", "risks", "opportunities"},
		Defaults:    Payload{"market_score": DefaultScore, "risks": []any{}, "opportunities": []any{}},
	}
}

func NewFinancial() *Specialist {
	return &Specialist{
		ID:          Financial,
		DisplayName: "Financial Analyst",
		Dimension:   "financial",
		System:      prompt.FinancialSystem,
		Analysis:    prompt.FinancialAnalysis,
		ScoreKeys:   []string{"financial_score", "score"},
		Expected:    []string{"financial_score", "revenue_model", "financial_metrics", "risks", "opportunities"},
		Defaults:    Payload{"financial_score": DefaultScore, "risks": []any{}, "opportunities": []any{}},
	}
}

func NewMarketing() *Specialist {
	return &Specialist{
		ID:          Marketing,
		DisplayName: "Marketing Strategist",
		Dimension:   "marketing",
		System:      prompt.MarketingSystem,
		Analysis:    prompt.MarketingAnalysis,
		ScoreKeys:   []string{"marketing_score", "score"},
		Expected:    []string{"marketing_score", "brand_strategy", "target_segments", "risks", "opportunities"},
		Defaults:    Payload{"marketing_score": DefaultScore, "risks": []any{}, "opportunities": []any{}},
	}
}

func NewTechLead() *Specialist {
	return &Specialist{
		ID:          TechLead,
		DisplayName: "Technical Lead",
		Dimension:   "technical",
		System:      prompt.TechnicalSystem,
		Analysis:    prompt.TechnicalAnalysis,
		ScoreKeys:   []string{"technical_score", "technical_feasibility.feasibility_score", "score"},
		Expected:    []string{"technical_score", "technical_feasibility", "development_plan", "risks", "opportunities"},
		Defaults:    Payload{"technical_score": DefaultScore, "risks": []any{}, "opportunities": []any{}},
	}
}

func NewRiskAnalyst() *Specialist {
	return &Specialist{
		ID:          RiskAnalyst,
		DisplayName: "Risk Analyst",
		Dimension:   "risk",
		System:      prompt.RiskSystem,
		Analysis:    prompt.RiskAnalysis,
		ScoreKeys:   []string{"risk_assessment.risk_score", "score"},
		Expected:    []string{"risk_assessment", "mitigation_strategies", "red_flags", "risks", "opportunities"},
		Defaults:    Payload{"risks": []any{}, "opportunities": []any{}},
	}
}

// NewCEO is the lead agent. Its fallback also recovers a recommendation.
func NewCEO() *Specialist {
	return &Specialist{
		ID:          CEO,
		DisplayName: "Chief Executive Officer",
		Dimension:   "overall",
		System:      prompt.CEOSystem,
		Analysis:    prompt.CEOAnalysis,
		ScoreKeys:   []string{"overall_score", "score"},
		Expected:    []string{"executive_summary", "overall_score", "recommendation", "success_factors", "major_risks"},
		Defaults:    Payload{"overall_score": DefaultScore, "recommendation": "MODIFY"},
		Fallback:    ceoFallback,
	}
}

var recommendationTokens = []string{"PROCEED_WITH_CAUTION", "PROCEED", "MODIFY", "DELAY", "REJECT"}

func ceoFallback(raw string) Payload {
	p := HeuristicPayload(raw, "overall_score")
	summary := ExtractSection(raw, "EXECUTIVE SUMMARY")
	if summary == "" {
		summary = truncate(raw, 300)
	}
	p["executive_summary"] = summary
	p["major_risks"] = ExtractList(raw, "risk")
	p["success_factors"] = ExtractList(raw, "success")
	p["recommendation"] = "MODIFY"
	upper := strings.ReplaceAll(strings.ToUpper(raw), "PROCEED WITH CAUTION", "PROCEED_WITH_CAUTION")
	for _, tok := range recommendationTokens {
		if strings.Contains(upper, tok) {
			p["recommendation"] = tok
			break
		}
	}
	return p
}
