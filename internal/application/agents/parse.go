package agents

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
)

const (
	// HeuristicQuality is the data-quality multiplier for regex-extracted payloads.
	HeuristicQuality = 0.7
	// MinimalQuality is used when nothing structured could be recovered.
	MinimalQuality   = 0.5

	DefaultScore = 50
)

var (
	// DefaultScoreFields is the score precedence used when an agent declares none.
	DefaultScoreFields    = []string{"score", "market_score", "financial_score"}
	// DefaultExpectedFields drive the default confidence computation.
	DefaultExpectedFields = []string{"score", "risks", "opportunities"}

	rxScore    = regexp.MustCompile(`(?i)(?:score|rating)["']?[:\s]*(\d{1,3})`)
	rxListItem = regexp.MustCompile(`(?m)^\s*[-*]\s*(.+)$`)
	rxFence    = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*\\})\\s*```")
)

// ExtractJSON pulls the embedded JSON object out of a model response: a
// fenced ```json block when present, otherwise first '{' through last '}'.
func ExtractJSON(raw string) (Payload, bool) {
	candidates := []string{}
	if m := rxFence.FindStringSubmatch(raw); m != nil {
		candidates = append(candidates, m[1])
	}
	if start, end := strings.Index(raw, "{"), strings.LastIndex(raw, "}"); start >= 0 && end > start {
		candidates = append(candidates, raw[start:end+1])
	}
	for _, c := range candidates {
		var obj map[string]any
		if err := json.Unmarshal([]byte(c), &obj); err == nil && obj != nil {
			return Payload(obj), true
		}
	}
	return nil, false
}

// ExtractScore scans for a "score"/"rating" token and clamps it to [1,100].
func ExtractScore(text string) (int, bool) {
	m := rxScore.FindStringSubmatch(text)
	if m == nil {
		return DefaultScore, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return DefaultScore, false
	}
	return ClampScore(n), true
}

// ExtractList returns the bullet items following a line that mentions keyword.
func ExtractList(text, keyword string) []string {
	rx, err := regexp.Compile(`(?im)` + regexp.QuoteMeta(keyword) + `[^\n]*\n((?:\s*[-*]\s*.+\n?)+)`)
	if err != nil {
		return []string{}
	}
	m := rx.FindStringSubmatch(text)
	if m == nil {
		return []string{}
	}
	items := []string{}
	for _, it := range rxListItem.FindAllStringSubmatch(m[1], -1) {
		items = append(items, strings.TrimSpace(it[1]))
	}
	return items
}

// ExtractSection returns the paragraph under a heading.
func ExtractSection(text, name string) string {
	rx, err := regexp.Compile(`(?s)(?i:` + regexp.QuoteMeta(name) + `):?[ \t]*\n(.*?)(?:\n[ \t]*\n|\n[A-Z][A-Z ]{2,}:?[ \t]*\n|\n\d+\.|\z)`)
	if err != nil {
		return ""
	}
	if m := rx.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// ClampScore bounds a score to [1,100].
func ClampScore(n int) int {
	if n < 1 {
		return 1
	}
	if n > 100 {
		return 100
	}
	return n
}

// HeuristicPayload is the regex fallback for responses with no usable JSON.
// The score lands under scoreKey, defaulting to 50.
func HeuristicPayload(raw, scoreKey string) Payload {
	score, found := ExtractScore(raw)
	quality := MinimalQuality
	if found {
		quality = HeuristicQuality
	}
	p := Payload{}
	p.set(scoreKey, score)
	p["summary"] = truncate(raw, 200)
	p["risks"] = ExtractList(raw, "risk")
	p["opportunities"] = ExtractList(raw, "opportunit")
	p["confidence_indicators"] = map[string]any{"data_quality_multiplier": quality}
	return p
}

// ScoreOf returns the first present numeric field of keys, clamped, or 50.
func ScoreOf(p Payload, keys []string) int {
	if len(keys) == 0 {
		keys = DefaultScoreFields
	}
	for _, k := range keys {
		if f, ok := p.Number(k); ok && !math.IsNaN(f) {
			return ClampScore(roundInt(f))
		}
	}
	return DefaultScore
}

// Confidence is the fraction of expected fields present scaled to 0-100,
// times the payload's data-quality multiplier, clamped to [0,100].
func Confidence(p Payload, expected []string) float64 {
	if len(expected) == 0 {
		expected = DefaultExpectedFields
	}
	present := 0
	for _, f := range expected {
		if p.Has(f) {
			present++
		}
	}
	c := float64(present) / float64(len(expected)) * 100
	if m, ok := p.Number("confidence_indicators.data_quality_multiplier"); ok {
		c *= m
	}
	if c < 0 {
		return 0
	}
	if c > 100 {
		return 100
	}
	return c
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
