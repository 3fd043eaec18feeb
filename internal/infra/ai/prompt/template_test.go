package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRender(t *testing.T) {
	out := Render("Idea: {title} ({category}) {missing}", map[string]string{
		"title":    "Eco Packaging",
		"category": "RETAIL",
	})
	assert.Equal(t, "Idea: Eco Packaging (RETAIL) {missing}", out)
}

func TestRenderLeavesJSONBracesAlone(t *testing.T) {
	tmpl := `Reply as {"score": 80, "risks": ["a"]} for {title}`
	out := Render(tmpl, map[string]string{"title": "X", "score": "nope"})
	assert.Equal(t, `Reply as {"score": 80, "risks": ["a"]} for X`, out)
}

func TestRenderIsFlat(t *testing.T) {
	// substituted values are not rendered again
	out := Render("{a}", map[string]string{"a": "{b}", "b": "deep"})
	assert.Equal(t, "{b}", out)
}

func TestBuiltinTemplatesUseKnownFields(t *testing.T) {
	known := map[string]bool{
		"title": true, "description": true, "category": true, "target_segment": true,
		"budget": true, "agent_reports": true, "failed_agents": true,
	}
	for name, tmpl := range map[string]string{
		"ceo": CEOAnalysis, "market": MarketResearchAnalysis, "financial": FinancialAnalysis,
		"marketing": MarketingAnalysis, "technical": TechnicalAnalysis, "risk": RiskAnalysis,
	} {
		for _, m := range placeholder.FindAllStringSubmatch(tmpl, -1) {
			assert.True(t, known[m[1]], "%s uses unknown field %s", name, m[1])
		}
	}
}
