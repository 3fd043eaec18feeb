package bootstrap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/bizpanel/internal/application/agents"
	"github.com/bryanwahyu/bizpanel/internal/config"
	"github.com/bryanwahyu/bizpanel/internal/domain/llm"
)

func parse(t *testing.T, raw string) *config.Config {
	t.Helper()
	cfg, err := config.Parse([]byte(raw))
	require.NoError(t, err)
	return cfg
}

func TestNewProvidersImplicitDefault(t *testing.T) {
	cfg := parse(t, `
providers:
  - {name: remote, type: openai, active: false}
  - {name: local, type: ollama, endpoint: "http://localhost:11434"}
  - {name: studio, type: lm_studio, endpoint: "http://localhost:1234"}
  - {name: claude, type: anthropic}
`)
	m, err := NewProviders(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, "local", m.Default())
	assert.Len(t, m.Backends(), 4)
}

func TestNewProvidersExplicitDefault(t *testing.T) {
	cfg := parse(t, `
providers:
  - {name: local, type: ollama}
  - {name: claude, type: anthropic, default: true}
`)
	m, err := NewProviders(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, "claude", m.Default())
}

func TestNewProviderUnknownType(t *testing.T) {
	_, err := NewProvider(config.Provider{Name: "x", Type: "gemini"})
	assert.ErrorIs(t, err, llm.ErrUnknownProvider)
}

func TestNewRoster(t *testing.T) {
	cfg := parse(t, `
providers:
  - {name: local, type: ollama}
agents:
  FINANCIAL: {backend: local, model: qwen2.5, max_tokens: 1500}
`)
	roster, err := NewRoster(cfg)
	require.NoError(t, err)
	assert.Equal(t, 5, roster.Size())
	a, ok := roster.Get(agents.Financial)
	require.True(t, ok)
	route := a.(*agents.Specialist).Routing()
	assert.Equal(t, "local", route.Backend)
	assert.Equal(t, "qwen2.5", route.Options.Model)
	assert.Equal(t, 1500, route.Options.MaxTokens)

	cfg.LeadAgent = "FINANCIAL"
	_, err = NewRoster(cfg)
	assert.Error(t, err)

	cfg.LeadAgent = "CEO"
	cfg.Agents["INTERN"] = config.Agent{}
	_, err = NewRoster(cfg)
	assert.ErrorContains(t, err, "agents.INTERN")
}

func TestAppLifecycle(t *testing.T) {
	cfg := parse(t, "database:\n  driver: sqlite\n  path: "+filepath.Join(t.TempDir(), "app.db")+"\n")
	ctx := context.Background()

	app, err := New(ctx, cfg, nil)
	require.NoError(t, err)
	n, err := app.Start(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	srv := httptest.NewServer(app.Handler())
	defer srv.Close()
	resp, err := http.Get(srv.URL + "/ready")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	shutdown, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	assert.NoError(t, app.Close(shutdown))
}
