package llm

import (
	"context"
	"time"
)

// Options tune a single generation call. Zero values fall back to the
// backend defaults from its configuration entry.
type Options struct {
	Model       string
	MaxTokens   int
	Temperature *float64
	TopP        *float64
	Timeout     time.Duration
}

// Response is the normalized result of a generation call.
type Response struct {
	Content    string        `json:"content"`
	TokenUsage int           `json:"token_usage"`
	Backend    string        `json:"backend"`
	Model      string        `json:"model"`
	Duration   time.Duration `json:"duration"`
	Cost       float64       `json:"cost_estimate"`
}

// Provider port, one implementation per backend (openai, lm_studio, ollama, anthropic).
type Provider interface {
	Name() string
	Generate(ctx context.Context, systemPrompt, userPrompt string, opts Options) (Response, error)
	TestConnection(ctx context.Context) bool
}

// BackendConfig is the provider configuration boundary: one entry per backend.
type BackendConfig struct {
	Name            string
	Type            string
	Endpoint        string
	APIKey          string
	DefaultModel    string
	MaxTokens       int
	Temperature     float64
	Timeout         time.Duration
	CostPer1kTokens float64
}

// EstimateCost returns tokens / 1000 * unit cost. Local backends pass 0.
func EstimateCost(tokens int, costPer1k float64) float64 {
	if tokens <= 0 || costPer1k <= 0 {
		return 0
	}
	return float64(tokens) / 1000 * costPer1k
}

// Resolve merges per-call options over the backend defaults.
func (c BackendConfig) Resolve(opts Options) Options {
	out := opts
	if out.Model == "" {
		out.Model = c.DefaultModel
	}
	if out.MaxTokens <= 0 {
		out.MaxTokens = c.MaxTokens
	}
	if out.Temperature == nil {
		t := c.Temperature
		out.Temperature = &t
	}
	if out.Timeout <= 0 {
		out.Timeout = c.Timeout
	}
	if out.Timeout <= 0 {
		out.Timeout = 30 * time.Second
	}
	return out
}
