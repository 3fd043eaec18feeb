package analysis

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrAggregation        = errors.New("no completed agent reports to synthesize")
	ErrReportsUnsettled   = errors.New("agent reports not settled")
	ErrAnalysisInProgress = errors.New("analysis already in progress")
	ErrInvalidTransition  = errors.New("invalid status transition")
)

// ValidationError lists every rejected submission field.
type ValidationError struct {
	Fields map[string]string `json:"fields"`
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "invalid submission: " + strings.Join(parts, "; ")
}
