package agents

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	t.Run("fenced block", func(t *testing.T) {
		raw := "Here you go:\n```json\n{\"market_score\": 72, \"risks\": [\"a\"]}\n```\nthanks"
		p, ok := ExtractJSON(raw)
		require.True(t, ok)
		assert.Equal(t, 72, p.Int("market_score", 0))
	})

	t.Run("braces in prose", func(t *testing.T) {
		p, ok := ExtractJSON(`Result {"score": 61, "nested": {"a": 1}} end`)
		require.True(t, ok)
		assert.Equal(t, 61, p.Int("score", 0))
		assert.Equal(t, 1, p.Int("nested.a", 0))
	})

	t.Run("no json", func(t *testing.T) {
		_, ok := ExtractJSON("just some text with no braces")
		assert.False(t, ok)
	})

	t.Run("broken json", func(t *testing.T) {
		_, ok := ExtractJSON(`{"score": 61,`)
		assert.False(t, ok)
	})
}

func TestExtractScore(t *testing.T) {
	cases := []struct {
		in    string
		want  int
		found bool
	}{
		{"Overall score: 82 out of 100", 82, true},
		{"RATING 7", 7, true},
		{"score: 250", 100, true},
		{"score: 0", 1, true},
		{"nothing here", 50, false},
	}
	for _, c := range cases {
		got, found := ExtractScore(c.in)
		assert.Equal(t, c.want, got, c.in)
		assert.Equal(t, c.found, found, c.in)
	}
}

func TestHeuristicPayload(t *testing.T) {
	p := HeuristicPayload("The market looks fine. Score: 68\nKey risks:\n- churn\n- pricing\n", "market_score")
	assert.Equal(t, 68, p.Int("market_score", 0))
	assert.Equal(t, HeuristicQuality, p.Float("confidence_indicators.data_quality_multiplier", 0))
	assert.Equal(t, []string{"churn", "pricing"}, p.Strings("risks"))

	p = HeuristicPayload("I cannot evaluate this.", "score")
	assert.Equal(t, DefaultScore, p.Int("score", 0))
	assert.Equal(t, MinimalQuality, p.Float("confidence_indicators.data_quality_multiplier", 0))
}

func TestScoreOf(t *testing.T) {
	assert.Equal(t, 40, ScoreOf(Payload{"market_score": 40, "financial_score": 90}, nil))
	assert.Equal(t, 90, ScoreOf(Payload{"financial_score": 90.4}, nil))
	assert.Equal(t, 55, ScoreOf(Payload{"score": "55"}, nil))
	assert.Equal(t, 50, ScoreOf(Payload{"other": 12}, nil))
	assert.Equal(t, 33, ScoreOf(Payload{"risk_assessment": map[string]any{"risk_score": 33}}, []string{"risk_assessment.risk_score"}))
	assert.Equal(t, 100, ScoreOf(Payload{"score": 140}, nil))
	assert.Equal(t, 100, ScoreOf(Payload{"overall_score": 1e20}, []string{"overall_score"}))
	assert.Equal(t, 1, ScoreOf(Payload{"overall_score": -1e20}, []string{"overall_score"}))
	assert.Equal(t, 100, ScoreOf(Payload{"score": "1e300"}, nil))
	assert.Equal(t, 60, ScoreOf(Payload{"score": "NaN", "market_score": 60}, nil))
}

func TestPayloadIntSaturates(t *testing.T) {
	p := Payload{"big": 1e20, "small": -1e20, "half": 2.5, "nan": "NaN"}
	assert.Equal(t, math.MaxInt, p.Int("big", 0))
	assert.Equal(t, math.MinInt, p.Int("small", 0))
	assert.Equal(t, 3, p.Int("half", 0))
	assert.Equal(t, 7, p.Int("nan", 7))
}

func TestConfidence(t *testing.T) {
	full := Payload{"score": 1, "risks": []any{}, "opportunities": []any{}}
	assert.InDelta(t, 100, Confidence(full, nil), 0.001)

	partial := Payload{"score": 1}
	assert.InDelta(t, 33.333, Confidence(partial, nil), 0.01)

	scaled := Payload{"score": 1, "risks": []any{}, "opportunities": []any{},
		"confidence_indicators": map[string]any{"data_quality_multiplier": 0.7}}
	assert.InDelta(t, 70, Confidence(scaled, nil), 0.001)

	over := Payload{"score": 1, "risks": []any{}, "opportunities": []any{},
		"confidence_indicators": map[string]any{"data_quality_multiplier": 3.0}}
	assert.Equal(t, 100.0, Confidence(over, nil))
}

func TestPayloadStrings(t *testing.T) {
	p := Payload{"risks": []any{"plain", map[string]any{"risk": "from object"}, 3, ""}}
	assert.Equal(t, []string{"plain", "from object"}, p.Strings("risks"))
	assert.Empty(t, p.Strings("missing"))
	assert.Empty(t, p.Map("risks"))
}

func TestFormatBudget(t *testing.T) {
	b := 25000.0
	assert.Equal(t, "$25,000.00", FormatBudget(&b))
	small := 999.5
	assert.Equal(t, "$999.50", FormatBudget(&small))
	big := 1234567.0
	assert.Equal(t, "$1,234,567.00", FormatBudget(&big))
	assert.Equal(t, "Not specified", FormatBudget(nil))
}

func TestHeuristicPayloadNestsDottedKey(t *testing.T) {
	p := HeuristicPayload("risk rating: 35", "risk_assessment.risk_score")
	assert.Equal(t, 35, ScoreOf(p, []string{"risk_assessment.risk_score"}))
	assert.True(t, p.Has("risk_assessment"))
}
