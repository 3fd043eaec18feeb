package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/bryanwahyu/bizpanel/internal/domain/llm"
)

const (
	defaultMaxTokens = 2048
	defaultEndpoint  = "https://api.openai.com/v1"
	probeTimeout     = 5 * time.Second
)

// Client serves both the hosted OpenAI API and OpenAI-compatible local
// servers (LM Studio), which differ only in base URL and cost.
type Client struct {
	api *openai.Client
	cfg llm.BackendConfig
}

// NewClient builds an "openai" backend.
func NewClient(cfg llm.BackendConfig) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaultEndpoint
	}
	return newClient(cfg, cfg.Endpoint)
}

// NewLMStudio builds an "lm_studio" backend. The endpoint is the server
// root; the OpenAI-compatible API lives under /v1. Local calls cost nothing.
func NewLMStudio(cfg llm.BackendConfig) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "http://localhost:1234"
	}
	if cfg.APIKey == "" {
		cfg.APIKey = "lm-studio"
	}
	cfg.CostPer1kTokens = 0
	return newClient(cfg, strings.TrimRight(cfg.Endpoint, "/")+"/v1")
}

func newClient(cfg llm.BackendConfig, baseURL string) *Client {
	oc := openai.DefaultConfig(cfg.APIKey)
	oc.BaseURL = strings.TrimRight(baseURL, "/")
	oc.HTTPClient = &http.Client{}
	return &Client{api: openai.NewClientWithConfig(oc), cfg: cfg}
}

func (c *Client) Name() string { return c.cfg.Name }

func (c *Client) Config() llm.BackendConfig { return c.cfg }

func (c *Client) Generate(ctx context.Context, systemPrompt, userPrompt string, opts llm.Options) (llm.Response, error) {
	o := c.cfg.Resolve(opts)
	if o.MaxTokens <= 0 {
		o.MaxTokens = defaultMaxTokens
	}
	ctx, cancel := context.WithTimeout(ctx, o.Timeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model: o.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
	}
	// reasoning models (o1/o3/o4/gpt-5*) pakai MaxCompletionTokens dan tidak terima temperature
	if reasoningModel(o.Model) {
		req.MaxCompletionTokens = o.MaxTokens
	} else {
		req.MaxTokens = o.MaxTokens
		if o.Temperature != nil {
			req.Temperature = float32(*o.Temperature)
		}
		if o.TopP != nil {
			req.TopP = float32(*o.TopP)
		}
	}

	start := time.Now()
	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return llm.Response{Backend: c.Name(), Model: o.Model}, classify(c.Name(), err)
	}
	if len(resp.Choices) == 0 {
		return llm.Response{Backend: c.Name(), Model: o.Model}, llm.Failed(c.Name(), errors.New("response has no choices"))
	}

	model := resp.Model
	if model == "" {
		model = o.Model
	}
	tokens := resp.Usage.TotalTokens
	return llm.Response{
		Content:    resp.Choices[0].Message.Content,
		TokenUsage: tokens,
		Backend:    c.Name(),
		Model:      model,
		Duration:   time.Since(start),
		Cost:       llm.EstimateCost(tokens, c.cfg.CostPer1kTokens),
	}, nil
}

// TestConnection lists models as a cheap liveness probe.
func (c *Client) TestConnection(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	_, err := c.api.ListModels(ctx)
	return err == nil
}

func reasoningModel(model string) bool {
	for _, p := range []string{"o1", "o3", "o4", "gpt-5"} {
		if strings.HasPrefix(model, p) {
			return true
		}
	}
	return false
}

// classify maps go-openai errors onto the llm error kinds.
func classify(backend string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return llm.Unavailable(backend, err)
	}
	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	default:
		// no HTTP status means the request never got an answer
		return llm.Unavailable(backend, err)
	}
	if status == http.StatusTooManyRequests {
		return llm.Failed(backend, fmt.Errorf("%w: %v", llm.ErrQuotaExceeded, err))
	}
	return llm.Failed(backend, err)
}
