package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/bizpanel/internal/domain/llm"
)

func newServer(t *testing.T, h http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func TestGenerate(t *testing.T) {
	var got map[string]any
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","model":"gpt-4o","choices":[{"index":0,"message":{"role":"assistant","content":"{\"score\": 80}"},"finish_reason":"stop"}],"usage":{"prompt_tokens":600,"completion_tokens":400,"total_tokens":1000}}`))
	})

	c := NewClient(llm.BackendConfig{Name: "openai", Endpoint: srv.URL + "/v1", APIKey: "k", DefaultModel: "gpt-4o", CostPer1kTokens: 0.03, Temperature: 0.7})
	resp, err := c.Generate(context.Background(), "system text", "user text", llm.Options{MaxTokens: 500})
	require.NoError(t, err)
	assert.Equal(t, `{"score": 80}`, resp.Content)
	assert.Equal(t, 1000, resp.TokenUsage)
	assert.Equal(t, "openai", resp.Backend)
	assert.InDelta(t, 0.03, resp.Cost, 1e-9)

	assert.Equal(t, "gpt-4o", got["model"])
	assert.EqualValues(t, 500, got["max_tokens"])
	msgs := got["messages"].([]any)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	assert.Equal(t, "user text", msgs[1].(map[string]any)["content"])
}

func TestLMStudioPathAndCost(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/models":
			_, _ = w.Write([]byte(`{"object":"list","data":[{"id":"local-model","object":"model"}]}`))
		case "/v1/chat/completions":
			_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"hi"}}],"usage":{"total_tokens":42}}`))
		default:
			http.NotFound(w, r)
		}
	})

	c := NewLMStudio(llm.BackendConfig{Name: "lm_studio", Endpoint: srv.URL, DefaultModel: "local-model", CostPer1kTokens: 5})
	assert.True(t, c.TestConnection(context.Background()))
	resp, err := c.Generate(context.Background(), "s", "u", llm.Options{})
	require.NoError(t, err)
	assert.Equal(t, 42, resp.TokenUsage)
	assert.Equal(t, "local-model", resp.Model)
	assert.Zero(t, resp.Cost)
}

func TestErrorClassification(t *testing.T) {
	t.Run("quota", func(t *testing.T) {
		srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":{"message":"rate limited","type":"requests"}}`))
		})
		c := NewClient(llm.BackendConfig{Name: "openai", Endpoint: srv.URL + "/v1", DefaultModel: "gpt-4"})
		_, err := c.Generate(context.Background(), "s", "u", llm.Options{})
		assert.ErrorIs(t, err, llm.ErrProviderFailed)
		assert.ErrorIs(t, err, llm.ErrQuotaExceeded)
	})

	t.Run("server error", func(t *testing.T) {
		srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`oops`))
		})
		c := NewClient(llm.BackendConfig{Name: "openai", Endpoint: srv.URL + "/v1", DefaultModel: "gpt-4"})
		_, err := c.Generate(context.Background(), "s", "u", llm.Options{})
		assert.ErrorIs(t, err, llm.ErrProviderFailed)
		assert.NotErrorIs(t, err, llm.ErrQuotaExceeded)
	})

	t.Run("no choices", func(t *testing.T) {
		srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"choices":[]}`))
		})
		c := NewClient(llm.BackendConfig{Name: "openai", Endpoint: srv.URL + "/v1", DefaultModel: "gpt-4"})
		_, err := c.Generate(context.Background(), "s", "u", llm.Options{})
		assert.ErrorIs(t, err, llm.ErrProviderFailed)
	})

	t.Run("unreachable", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()
		c := NewClient(llm.BackendConfig{Name: "openai", Endpoint: url + "/v1", DefaultModel: "gpt-4"})
		_, err := c.Generate(context.Background(), "s", "u", llm.Options{})
		assert.ErrorIs(t, err, llm.ErrProviderUnavailable)
		assert.False(t, c.TestConnection(context.Background()))
	})

	t.Run("timeout", func(t *testing.T) {
		srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		})
		c := NewClient(llm.BackendConfig{Name: "openai", Endpoint: srv.URL + "/v1", DefaultModel: "gpt-4"})
		_, err := c.Generate(context.Background(), "s", "u", llm.Options{Timeout: 50 * time.Millisecond})
		assert.ErrorIs(t, err, llm.ErrProviderUnavailable)
	})
}

func TestReasoningModel(t *testing.T) {
	assert.True(t, reasoningModel("o3-mini"))
	assert.True(t, reasoningModel("gpt-5"))
	assert.False(t, reasoningModel("gpt-4o"))
}
