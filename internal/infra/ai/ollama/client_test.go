package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/bizpanel/internal/domain/llm"
)

func TestGenerate(t *testing.T) {
	var got generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tags":
			_, _ = w.Write([]byte(`{"models":[]}`))
		case "/api/generate":
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			_, _ = w.Write([]byte(`{"model":"llama2","response":"{\"score\": 70}","done":true,"prompt_eval_count":120,"eval_count":30}`))
		}
	}))
	defer srv.Close()

	c := NewClient(llm.BackendConfig{Name: "ollama", Endpoint: srv.URL + "/", DefaultModel: "llama2", Temperature: 0.2, CostPer1kTokens: 1})
	assert.True(t, c.TestConnection(context.Background()))

	resp, err := c.Generate(context.Background(), "be brief", "rate this", llm.Options{MaxTokens: 256})
	require.NoError(t, err)
	assert.Equal(t, `{"score": 70}`, resp.Content)
	assert.Equal(t, 150, resp.TokenUsage)
	assert.Zero(t, resp.Cost)
	assert.Equal(t, "ollama", resp.Backend)

	assert.False(t, got.Stream)
	assert.Equal(t, "be brief", got.System)
	assert.Equal(t, "rate this", got.Prompt)
	assert.EqualValues(t, 256, got.Options["num_predict"])
	assert.EqualValues(t, 0.2, got.Options["temperature"])
}

func TestGenerateEstimatesTokens(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"response":"three word answer","done":true}`))
	}))
	defer srv.Close()

	c := NewClient(llm.BackendConfig{Name: "ollama", Endpoint: srv.URL, DefaultModel: "llama2"})
	resp, err := c.Generate(context.Background(), "", "one two three four five six seven", llm.Options{})
	require.NoError(t, err)
	// 10 words * 1.3
	assert.Equal(t, 13, resp.TokenUsage)
	assert.Equal(t, "llama2", resp.Model)
}

func TestGenerateErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/tags" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"model not found"}`))
	}))
	defer srv.Close()

	c := NewClient(llm.BackendConfig{Name: "ollama", Endpoint: srv.URL, DefaultModel: "missing"})
	assert.False(t, c.TestConnection(context.Background()))
	_, err := c.Generate(context.Background(), "", "hi", llm.Options{})
	assert.ErrorIs(t, err, llm.ErrProviderFailed)
	assert.Contains(t, err.Error(), "model not found")

	down := NewClient(llm.BackendConfig{Name: "ollama", Endpoint: "http://127.0.0.1:1", DefaultModel: "x"})
	_, err = down.Generate(context.Background(), "", "hi", llm.Options{})
	assert.ErrorIs(t, err, llm.ErrProviderUnavailable)
}
