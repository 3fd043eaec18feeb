package providers

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/bizpanel/internal/domain/llm"
)

type configuredProvider struct {
	*fakeProvider
	cfg llm.BackendConfig
}

func (c configuredProvider) Config() llm.BackendConfig { return c.cfg }

type fakeProvider struct {
	mu      sync.Mutex
	name    string
	healthy bool
	err     error
	calls   int
	probes  int
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Generate(_ context.Context, _, _ string, opts llm.Options) (llm.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return llm.Response{}, f.err
	}
	return llm.Response{Content: "ok from " + f.name, Model: opts.Model, TokenUsage: 10}, nil
}

func (f *fakeProvider) TestConnection(context.Context) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.probes++
	return f.healthy
}

func TestRoutingExplicitAndDefault(t *testing.T) {
	m := NewManager(nil)
	a := &fakeProvider{name: "openai", healthy: true}
	b := &fakeProvider{name: "ollama", healthy: true}
	require.NoError(t, m.Register(a, true, true))
	require.NoError(t, m.Register(b, true, false))

	resp, err := m.Generate(context.Background(), "", "sys", "user", llm.Options{})
	require.NoError(t, err)
	assert.Equal(t, "openai", resp.Backend)

	resp, err = m.Generate(context.Background(), "ollama", "sys", "user", llm.Options{Model: "llama2"})
	require.NoError(t, err)
	assert.Equal(t, "ollama", resp.Backend)
	assert.Equal(t, "llama2", resp.Model)
	assert.Equal(t, 1, a.calls)
	assert.Equal(t, 1, b.calls)
}

func TestNoFallbackOnFailure(t *testing.T) {
	m := NewManager(nil)
	down := &fakeProvider{name: "lm_studio", healthy: false}
	spare := &fakeProvider{name: "openai", healthy: true}
	require.NoError(t, m.Register(down, true, true))
	require.NoError(t, m.Register(spare, true, false))

	_, err := m.Generate(context.Background(), "", "s", "u", llm.Options{})
	assert.ErrorIs(t, err, llm.ErrProviderUnavailable)
	assert.Equal(t, 0, down.calls)
	assert.Equal(t, 1, down.probes)
	assert.Equal(t, 0, spare.calls)
}

func TestUnavailableErrorMarksBackendDown(t *testing.T) {
	m := NewManager(nil)
	p := &fakeProvider{name: "ollama", healthy: true, err: llm.Unavailable("ollama", errors.New("dial tcp: refused"))}
	require.NoError(t, m.Register(p, true, true))

	_, err := m.Generate(context.Background(), "ollama", "s", "u", llm.Options{})
	assert.ErrorIs(t, err, llm.ErrProviderUnavailable)
	assert.Empty(t, m.Available())

	// the next call re-probes before dispatching
	p.err = nil
	_, err = m.Generate(context.Background(), "ollama", "s", "u", llm.Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, p.probes)
	assert.Equal(t, []string{"ollama"}, m.Available())
}

func TestResponseErrorKeepsAvailability(t *testing.T) {
	m := NewManager(nil)
	p := &fakeProvider{name: "openai", healthy: true, err: llm.Failed("openai", errors.New("bad json"))}
	require.NoError(t, m.Register(p, true, true))

	_, err := m.Generate(context.Background(), "", "s", "u", llm.Options{})
	assert.ErrorIs(t, err, llm.ErrProviderFailed)
	assert.Equal(t, []string{"openai"}, m.Available())
}

func TestInactiveBackends(t *testing.T) {
	m := NewManager(nil)
	off := &fakeProvider{name: "anthropic", healthy: true}
	require.NoError(t, m.Register(off, false, false))

	assert.ErrorIs(t, m.SetDefault("anthropic"), ErrInactive)
	assert.ErrorIs(t, m.Register(&fakeProvider{name: "x"}, false, true), ErrInactive)
	assert.Equal(t, "", m.Default())
	assert.Len(t, m.Backends(), 1)

	_, err := m.Generate(context.Background(), "x", "s", "u", llm.Options{})
	assert.ErrorIs(t, err, llm.ErrUnknownProvider)
	_, err = m.Generate(context.Background(), "", "s", "u", llm.Options{})
	assert.ErrorIs(t, err, ErrNoDefault)
	_, err = m.Generate(context.Background(), "missing", "s", "u", llm.Options{})
	assert.ErrorIs(t, err, llm.ErrUnknownProvider)
	assert.Equal(t, 0, off.calls)

	// explicit routing still reaches an inactive backend
	resp, err := m.Generate(context.Background(), "anthropic", "s", "u", llm.Options{})
	require.NoError(t, err)
	assert.Equal(t, "anthropic", resp.Backend)
	assert.Equal(t, 1, off.calls)
	assert.Empty(t, m.Available())

	// a rejected registration leaves the name free
	require.NoError(t, m.Register(&fakeProvider{name: "x", healthy: true}, true, true))
	assert.Equal(t, "x", m.Default())
	assert.Len(t, m.Backends(), 2)
}

func TestBackendsInfo(t *testing.T) {
	m := NewManager(nil)
	require.NoError(t, m.Register(&fakeProvider{name: "openai", healthy: true}, true, true))
	require.NoError(t, m.Register(&fakeProvider{name: "ollama", healthy: false}, true, false))
	assert.Error(t, m.Register(&fakeProvider{name: "openai"}, true, false))

	res := m.TestAll(context.Background())
	assert.Equal(t, map[string]bool{"openai": true, "ollama": false}, res)

	infos := m.Backends()
	require.Len(t, infos, 2)
	assert.True(t, infos[0].Default)
	assert.True(t, infos[0].Available)
	assert.False(t, infos[1].Available)
	assert.False(t, infos[1].LastCheck.IsZero())

	require.NoError(t, m.Register(configuredProvider{
		fakeProvider: &fakeProvider{name: "lm_studio", healthy: true},
		cfg:          llm.BackendConfig{Type: "lm_studio", Endpoint: "http://localhost:1234", DefaultModel: "local"},
	}, true, false))
	infos = m.Backends()
	require.Len(t, infos, 3)
	assert.Equal(t, "http://localhost:1234", infos[2].Endpoint)
	assert.Equal(t, "local", infos[2].Model)

	ok, err := m.Test(context.Background(), "nope")
	assert.False(t, ok)
	assert.ErrorIs(t, err, llm.ErrUnknownProvider)
}
