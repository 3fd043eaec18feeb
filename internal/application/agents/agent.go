package agents

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bryanwahyu/bizpanel/internal/domain/llm"
	"github.com/bryanwahyu/bizpanel/internal/infra/ai/prompt"
)

// Agent is the contract every analyst fulfils.
type Agent interface {
	Name() string
	SystemPrompt() string
	AnalysisPrompt(c Context) string
	ParseResponse(raw string) Payload
}

// Route is where an agent sends its calls. Empty Backend means the default backend.
type Route struct {
	Backend string
	Options llm.Options
}

// Context is the immutable snapshot an agent analyses.
type Context struct {
	RequestID     string
	Title         string
	Description   string
	Category      string
	TargetSegment string
	Budget        *float64
	additional    map[string]string
}

// With returns a copy of c carrying an extra template field.
func (c Context) With(key, value string) Context {
	extra := make(map[string]string, len(c.additional)+1)
	for k, v := range c.additional {
		extra[k] = v
	}
	extra[key] = value
	c.additional = extra
	return c
}

// Fields renders the context for prompt templates.
func (c Context) Fields() map[string]string {
	f := map[string]string{
		"request_id":     c.RequestID,
		"title":          c.Title,
		"description":    c.Description,
		"category":       c.Category,
		"target_segment": stringOr(c.TargetSegment, "Not specified"),
		"budget":         FormatBudget(c.Budget),
	}
	for k, v := range c.additional {
		f[k] = v
	}
	return f
}

// FormatBudget renders "$25,000.00" or "Not specified".
func FormatBudget(b *float64) string {
	if b == nil {
		return "Not specified"
	}
	s := strconv.FormatFloat(*b, 'f', 2, 64)
	intPart, frac := s[:len(s)-3], s[len(s)-3:]
	var sb strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			sb.WriteByte(',')
		}
		sb.WriteRune(r)
	}
	return "$" + sb.String() + frac
}

// Specialist is a configurable Agent: prompts, score precedence and
// confidence fields are data, not code.
type Specialist struct {
	ID          string
	DisplayName string
	Dimension   string
	System      string
	Analysis    string
	ScoreKeys   []string
	Expected    []string
	// Defaults fill required keys missing from a parsed JSON payload.
	Defaults Payload
	// Fallback builds a payload when the response carries no JSON.
	Fallback func(raw string) Payload
	Route    Route
}

var _ Agent = (*Specialist)(nil)

func (s *Specialist) Name() string         { return s.ID }
func (s *Specialist) SystemPrompt() string { return s.System }

func (s *Specialist) AnalysisPrompt(c Context) string {
	return prompt.Render(s.Analysis, c.Fields())
}

func (s *Specialist) ParseResponse(raw string) Payload {
	if p, ok := ExtractJSON(raw); ok {
		for k, v := range s.Defaults {
			if !p.Has(k) {
				p[k] = v
			}
		}
		return p
	}
	if s.Fallback != nil {
		return s.Fallback(raw)
	}
	return HeuristicPayload(raw, s.ScoreFields()[0])
}

func (s *Specialist) ScoreFields() []string {
	if len(s.ScoreKeys) == 0 {
		return DefaultScoreFields
	}
	return s.ScoreKeys
}

func (s *Specialist) ExpectedFields() []string {
	if len(s.Expected) == 0 {
		return DefaultExpectedFields
	}
	return s.Expected
}

func (s *Specialist) Routing() Route { return s.Route }

func (s *Specialist) String() string {
	return fmt.Sprintf("%s (%s)", s.DisplayName, s.ID)
}

// Optional capabilities, detected at runtime.
type (
	scorer   interface{ ScoreFields() []string }
	expecter interface{ ExpectedFields() []string }
	router   interface{ Routing() Route }
)

// ScoreFieldsOf returns the agent's score precedence.
func ScoreFieldsOf(a Agent) []string {
	if s, ok := a.(scorer); ok {
		return s.ScoreFields()
	}
	return DefaultScoreFields
}

func expectedFieldsOf(a Agent) []string {
	if e, ok := a.(expecter); ok {
		return e.ExpectedFields()
	}
	return DefaultExpectedFields
}

func routeOf(a Agent) Route {
	if r, ok := a.(router); ok {
		return r.Routing()
	}
	return Route{}
}

func stringOr(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
