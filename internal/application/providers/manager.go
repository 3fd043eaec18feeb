package providers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/bryanwahyu/bizpanel/internal/domain/llm"
)

var (
	ErrNoDefault = errors.New("no default provider configured")
	ErrInactive  = errors.New("provider is not active")
)

// Info is the read-only view of a registered backend.
type Info struct {
	Name      string    `json:"name"`
	Type      string    `json:"type,omitempty"`
	Endpoint  string    `json:"endpoint,omitempty"`
	Model     string    `json:"default_model,omitempty"`
	Active    bool      `json:"active"`
	Available bool      `json:"available"`
	Default   bool      `json:"default"`
	LastCheck time.Time `json:"last_check,omitempty"`
}

// configured is implemented by backends that expose their configuration.
type configured interface {
	Config() llm.BackendConfig
}

type entry struct {
	provider  llm.Provider
	active    bool
	available bool
	lastCheck time.Time
}

// Manager routes generation calls to named backends. There is no
// fallback: a call to an unavailable backend fails. Inactive backends are
// never the default but stay reachable by explicit name.
type Manager struct {
	mu       sync.RWMutex
	backends map[string]*entry
	order    []string
	def      string
	log      *slog.Logger
	now      func() time.Time

	// OnCall, when set, observes every routed call.
	OnCall func(backend string, took time.Duration, err error)
}

func NewManager(log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{backends: map[string]*entry{}, log: log, now: time.Now}
}

// Register adds p. Only an active backend may be the default.
func (m *Manager) Register(p llm.Provider, active, isDefault bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	name := p.Name()
	if name == "" {
		return errors.New("provider name is empty")
	}
	if _, dup := m.backends[name]; dup {
		return fmt.Errorf("provider %q registered twice", name)
	}
	if isDefault && !active {
		return fmt.Errorf("default provider %q: %w", name, ErrInactive)
	}
	m.backends[name] = &entry{provider: p, active: active}
	m.order = append(m.order, name)
	if isDefault {
		m.def = name
	}
	return nil
}

// SetDefault designates name as the default backend. Only active backends qualify.
func (m *Manager) SetDefault(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.backends[name]
	if !ok {
		return fmt.Errorf("%w: %s", llm.ErrUnknownProvider, name)
	}
	if !e.active {
		return fmt.Errorf("%s: %w", name, ErrInactive)
	}
	m.def = name
	return nil
}

func (m *Manager) Default() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.def
}

func (m *Manager) resolve(name string) (string, *entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if name == "" {
		name = m.def
		if name == "" {
			return "", nil, ErrNoDefault
		}
	}
	e, ok := m.backends[name]
	if !ok {
		return name, nil, fmt.Errorf("%w: %s", llm.ErrUnknownProvider, name)
	}
	return name, e, nil
}

// Generate sends the prompts to backend, or to the default when backend is "".
func (m *Manager) Generate(ctx context.Context, backend, system, user string, opts llm.Options) (llm.Response, error) {
	name, e, err := m.resolve(backend)
	if err != nil {
		return llm.Response{}, err
	}
	if !m.isAvailable(e) {
		if !m.probe(ctx, name, e) {
			return llm.Response{Backend: name}, llm.Unavailable(name, errors.New("health check failed"))
		}
	}

	start := m.now()
	resp, err := e.provider.Generate(ctx, system, user, opts)
	took := m.now().Sub(start)
	if resp.Backend == "" {
		resp.Backend = name
	}
	if resp.Duration == 0 {
		resp.Duration = took
	}
	if m.OnCall != nil {
		m.OnCall(name, took, err)
	}
	if err != nil {
		if errors.Is(err, llm.ErrProviderUnavailable) {
			m.setAvailable(e, false)
		}
		m.log.Warn("provider call failed", "backend", name, "err", err)
		return resp, err
	}
	return resp, nil
}

// Test probes a single backend and records the outcome.
func (m *Manager) Test(ctx context.Context, name string) (bool, error) {
	m.mu.RLock()
	e, ok := m.backends[name]
	m.mu.RUnlock()
	if !ok {
		return false, fmt.Errorf("%w: %s", llm.ErrUnknownProvider, name)
	}
	return m.probe(ctx, name, e), nil
}

// TestAll probes every registered backend.
func (m *Manager) TestAll(ctx context.Context) map[string]bool {
	out := map[string]bool{}
	for _, in := range m.Backends() {
		ok, _ := m.Test(ctx, in.Name)
		out[in.Name] = ok
	}
	return out
}

// Available lists active backends whose last probe or call succeeded,
// i.e. the pool a default may be picked from.
func (m *Manager) Available() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []string
	for _, n := range m.order {
		if e := m.backends[n]; e.active && e.available {
			out = append(out, n)
		}
	}
	sort.Strings(out)
	return out
}

func (m *Manager) Backends() []Info {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Info, 0, len(m.order))
	for _, n := range m.order {
		e := m.backends[n]
		in := Info{Name: n, Active: e.active, Available: e.available, Default: n == m.def, LastCheck: e.lastCheck}
		if c, ok := e.provider.(configured); ok {
			cfg := c.Config()
			in.Type, in.Endpoint, in.Model = cfg.Type, cfg.Endpoint, cfg.DefaultModel
		}
		out = append(out, in)
	}
	return out
}

func (m *Manager) probe(ctx context.Context, name string, e *entry) bool {
	ok := e.provider.TestConnection(ctx)
	m.mu.Lock()
	e.available = ok
	e.lastCheck = m.now()
	m.mu.Unlock()
	if !ok {
		m.log.Warn("provider health check failed", "backend", name)
	}
	return ok
}

func (m *Manager) isAvailable(e *entry) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return e.available
}

func (m *Manager) setAvailable(e *entry, v bool) {
	m.mu.Lock()
	e.available = v
	m.mu.Unlock()
}
