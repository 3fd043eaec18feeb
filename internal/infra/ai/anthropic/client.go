package anthropic

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/bryanwahyu/bizpanel/internal/domain/llm"
)

const (
	defaultMaxTokens = 4096
	probeTimeout     = 5 * time.Second
)

// Client adapts the Anthropic Messages API to llm.Provider.
type Client struct {
	inner anthropic.Client
	cfg   llm.BackendConfig
}

// NewClient builds an "anthropic" backend. Extra options are appended
// after the defaults so tests can override base URL and retries.
func NewClient(cfg llm.BackendConfig, extra ...option.RequestOption) *Client {
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = string(anthropic.ModelClaudeSonnet4_20250514)
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithBaseURL(cfg.Endpoint))
	}
	opts = append(opts, extra...)
	return &Client{inner: anthropic.NewClient(opts...), cfg: cfg}
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

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(o.Model),
		MaxTokens: int64(o.MaxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	}
	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: systemPrompt}}
	}
	if o.Temperature != nil {
		params.Temperature = anthropic.Float(*o.Temperature)
	}
	if o.TopP != nil {
		params.TopP = anthropic.Float(*o.TopP)
	}

	start := time.Now()
	msg, err := c.inner.Messages.New(ctx, params)
	if err != nil {
		return llm.Response{Backend: c.Name(), Model: o.Model}, classify(c.Name(), err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if v, ok := block.AsAny().(anthropic.TextBlock); ok {
			sb.WriteString(v.Text)
		}
	}
	if sb.Len() == 0 {
		return llm.Response{Backend: c.Name(), Model: o.Model}, llm.Failed(c.Name(), errors.New("response has no text content"))
	}

	tokens := int(msg.Usage.InputTokens + msg.Usage.OutputTokens)
	model := string(msg.Model)
	if model == "" {
		model = o.Model
	}
	return llm.Response{
		Content:    sb.String(),
		TokenUsage: tokens,
		Backend:    c.Name(),
		Model:      model,
		Duration:   time.Since(start),
		Cost:       llm.EstimateCost(tokens, c.cfg.CostPer1kTokens),
	}, nil
}

// TestConnection lists one model page.
func (c *Client) TestConnection(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	_, err := c.inner.Models.List(ctx, anthropic.ModelListParams{Limit: anthropic.Int(1)})
	return err == nil
}

func classify(backend string, err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusTooManyRequests:
			return llm.Failed(backend, fmt.Errorf("%w: %v", llm.ErrQuotaExceeded, err))
		case apiErr.StatusCode == 529:
			// overloaded
			return llm.Unavailable(backend, err)
		}
		return llm.Failed(backend, err)
	}
	return llm.Unavailable(backend, err)
}
