package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bryanwahyu/bizpanel/internal/domain/llm"
)

const probeTimeout = 5 * time.Second

// Client talks to a local Ollama server over its native HTTP API.
type Client struct {
	cfg  llm.BackendConfig
	http *http.Client
}

func NewClient(cfg llm.BackendConfig) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "http://localhost:11434"
	}
	cfg.Endpoint = strings.TrimRight(cfg.Endpoint, "/")
	cfg.CostPer1kTokens = 0
	return &Client{cfg: cfg, http: &http.Client{}}
}

func (c *Client) Name() string { return c.cfg.Name }

func (c *Client) Config() llm.BackendConfig { return c.cfg }

type generateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	System  string         `json:"system,omitempty"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type generateResponse struct {
	Model           string `json:"model"`
	Response        string `json:"response"`
	Done            bool   `json:"done"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
	Error           string `json:"error"`
}

func (c *Client) Generate(ctx context.Context, systemPrompt, userPrompt string, opts llm.Options) (llm.Response, error) {
	o := c.cfg.Resolve(opts)
	ctx, cancel := context.WithTimeout(ctx, o.Timeout)
	defer cancel()

	options := map[string]any{}
	if o.Temperature != nil {
		options["temperature"] = *o.Temperature
	}
	if o.TopP != nil {
		options["top_p"] = *o.TopP
	}
	if o.MaxTokens > 0 {
		options["num_predict"] = o.MaxTokens
	}
	body, err := json.Marshal(generateRequest{Model: o.Model, Prompt: userPrompt, System: systemPrompt, Options: options})
	if err != nil {
		return llm.Response{}, llm.Failed(c.Name(), err)
	}

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return llm.Response{}, llm.Failed(c.Name(), err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return llm.Response{Backend: c.Name(), Model: o.Model}, llm.Unavailable(c.Name(), err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, 8<<20))
	if err != nil {
		return llm.Response{Backend: c.Name(), Model: o.Model}, llm.Unavailable(c.Name(), err)
	}
	if res.StatusCode == http.StatusTooManyRequests {
		return llm.Response{Backend: c.Name(), Model: o.Model}, llm.Failed(c.Name(), fmt.Errorf("%w: status %d", llm.ErrQuotaExceeded, res.StatusCode))
	}
	if res.StatusCode/100 != 2 {
		return llm.Response{Backend: c.Name(), Model: o.Model}, llm.Failed(c.Name(), fmt.Errorf("status %d: %s", res.StatusCode, strings.TrimSpace(string(raw))))
	}

	var out generateResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return llm.Response{Backend: c.Name(), Model: o.Model}, llm.Failed(c.Name(), fmt.Errorf("decode response: %w", err))
	}
	if out.Error != "" {
		return llm.Response{Backend: c.Name(), Model: o.Model}, llm.Failed(c.Name(), errors.New(out.Error))
	}

	tokens := out.PromptEvalCount + out.EvalCount
	if tokens == 0 {
		// ollama lama tidak kirim eval count, estimasi dari jumlah kata
		tokens = int(float64(len(strings.Fields(userPrompt+" "+out.Response))) * 1.3)
	}
	model := out.Model
	if model == "" {
		model = o.Model
	}
	return llm.Response{
		Content:    out.Response,
		TokenUsage: tokens,
		Backend:    c.Name(),
		Model:      model,
		Duration:   time.Since(start),
	}, nil
}

// TestConnection hits /api/tags, which answers as soon as the daemon is up.
func (c *Client) TestConnection(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.Endpoint+"/api/tags", nil)
	if err != nil {
		return false
	}
	res, err := c.http.Do(req)
	if err != nil {
		return false
	}
	defer res.Body.Close()
	_, _ = io.Copy(io.Discard, res.Body)
	return res.StatusCode == http.StatusOK
}
