package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/bizpanel/internal/domain/llm"
)

func testClient(url string) *Client {
	return NewClient(llm.BackendConfig{Name: "anthropic", APIKey: "test", DefaultModel: "claude-test", CostPer1kTokens: 0.015},
		option.WithBaseURL(url), option.WithMaxRetries(0))
}

func TestGenerate(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"msg_1","type":"message","role":"assistant","model":"claude-test",
			"content":[{"type":"text","text":"{\"score\": 66}"}],"stop_reason":"end_turn",
			"usage":{"input_tokens":700,"output_tokens":300}}`))
	}))
	defer srv.Close()

	resp, err := testClient(srv.URL).Generate(context.Background(), "sys", "analyse", llm.Options{MaxTokens: 800})
	require.NoError(t, err)
	assert.Equal(t, `{"score": 66}`, resp.Content)
	assert.Equal(t, 1000, resp.TokenUsage)
	assert.InDelta(t, 0.015, resp.Cost, 1e-9)
	assert.Equal(t, "claude-test", resp.Model)

	assert.EqualValues(t, 800, got["max_tokens"])
	assert.Equal(t, "claude-test", got["model"])
	require.Len(t, got["system"], 1)
}

func TestGenerateQuota(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Generate(context.Background(), "sys", "analyse", llm.Options{})
	assert.ErrorIs(t, err, llm.ErrQuotaExceeded)
	assert.ErrorIs(t, err, llm.ErrProviderFailed)
}

func TestClassify(t *testing.T) {
	assert.ErrorIs(t, classify("anthropic", errors.New("dial tcp: connection refused")), llm.ErrProviderUnavailable)
	assert.ErrorIs(t, classify("anthropic", context.DeadlineExceeded), llm.ErrProviderUnavailable)
}

func TestUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := testClient(url)
	assert.False(t, c.TestConnection(context.Background()))
	_, err := c.Generate(context.Background(), "sys", "analyse", llm.Options{})
	assert.ErrorIs(t, err, llm.ErrProviderUnavailable)
}
