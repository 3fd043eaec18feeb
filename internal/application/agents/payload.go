package agents

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Payload is the loosely-typed structured output of an agent. The schema
// varies per agent, so every accessor takes an explicit default.
type Payload map[string]any

// Lookup resolves a dotted path such as "risk_assessment.risk_score".
func (p Payload) Lookup(path string) (any, bool) {
	var cur any = map[string]any(p)
	for _, part := range strings.Split(path, ".") {
		m, ok := asMap(cur)
		if !ok {
			return nil, false
		}
		v, ok := m[part]
		if !ok || v == nil {
			return nil, false
		}
		cur = v
	}
	return cur, true
}

// set stores v at a dotted path, creating intermediate objects.
func (p Payload) set(path string, v any) {
	parts := strings.Split(path, ".")
	m := map[string]any(p)
	for _, k := range parts[:len(parts)-1] {
		next, ok := m[k].(map[string]any)
		if !ok {
			next = map[string]any{}
			m[k] = next
		}
		m = next
	}
	m[parts[len(parts)-1]] = v
}

// Has reports whether path resolves to a non-nil value.
func (p Payload) Has(path string) bool {
	_, ok := p.Lookup(path)
	return ok
}

// Number returns the numeric value at path. Numeric strings are accepted.
func (p Payload) Number(path string) (float64, bool) {
	v, ok := p.Lookup(path)
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(n, "%")), 64)
		return f, err == nil
	}
	return 0, false
}

func (p Payload) Int(path string, def int) int {
	if f, ok := p.Number(path); ok && !math.IsNaN(f) {
		return roundInt(f)
	}
	return def
}

// roundInt rounds half up, saturating at the bounds of int.
func roundInt(f float64) int {
	switch {
	case math.IsNaN(f):
		return 0
	case f >= float64(math.MaxInt):
		return math.MaxInt
	case f <= float64(math.MinInt):
		return math.MinInt
	}
	return int(math.Floor(f + 0.5))
}

func (p Payload) Float(path string, def float64) float64 {
	if f, ok := p.Number(path); ok {
		return f
	}
	return def
}

func (p Payload) String(path string, def string) string {
	v, ok := p.Lookup(path)
	if !ok {
		return def
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Strings returns the list at path. Object items contribute their first
// descriptive field (risk, title, name, description).
func (p Payload) Strings(path string) []string {
	v, ok := p.Lookup(path)
	if !ok {
		return []string{}
	}
	arr, ok := v.([]any)
	if !ok {
		if s, ok := v.([]string); ok {
			return s
		}
		return []string{}
	}
	out := make([]string, 0, len(arr))
	for _, it := range arr {
		switch x := it.(type) {
		case string:
			if strings.TrimSpace(x) != "" {
				out = append(out, x)
			}
		case map[string]any:
			for _, k := range []string{"risk", "title", "name", "description", "segment"} {
				if s, ok := x[k].(string); ok && s != "" {
					out = append(out, s)
					break
				}
			}
		}
	}
	return out
}

// Map returns the nested object at path, or an empty payload.
func (p Payload) Map(path string) Payload {
	v, ok := p.Lookup(path)
	if !ok {
		return Payload{}
	}
	if m, ok := asMap(v); ok {
		return Payload(m)
	}
	return Payload{}
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Payload:
		return m, true
	}
	return nil, false
}
