package middleware

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	domain "github.com/bryanwahyu/bizpanel/internal/domain/analysis"
)

// Metrics stores application metrics. One instance is shared by the HTTP
// middleware, the analysis service and the provider manager.
type Metrics struct {
	RequestsTotal      atomic.Uint64
	RequestsInProgress atomic.Int64
	RequestsSuccess    atomic.Uint64
	RequestsFailed     atomic.Uint64

	AnalysesSubmitted atomic.Uint64
	AnalysesCompleted atomic.Uint64
	AnalysesFailed    atomic.Uint64
	AnalysesCancelled atomic.Uint64

	AgentsRunning atomic.Int64
	AgentsFailed  atomic.Uint64
	AgentsRetried atomic.Uint64

	StartTime time.Time

	mu        sync.Mutex
	providers map[string]*providerStats
}

type providerStats struct {
	Calls   uint64  `json:"calls"`
	Errors  uint64  `json:"errors"`
	Seconds float64 `json:"seconds"`
}

func NewMetrics() *Metrics {
	return &Metrics{StartTime: time.Now(), providers: map[string]*providerStats{}}
}

func (m *Metrics) AnalysisSubmitted() { m.AnalysesSubmitted.Add(1) }

func (m *Metrics) AnalysisFinished(status domain.Status) {
	switch status {
	case domain.StatusCompleted:
		m.AnalysesCompleted.Add(1)
	case domain.StatusFailed:
		m.AnalysesFailed.Add(1)
	case domain.StatusCancelled:
		m.AnalysesCancelled.Add(1)
	}
}

func (m *Metrics) AgentStarted(string) { m.AgentsRunning.Add(1) }

func (m *Metrics) AgentFinished(_ string, status domain.ReportStatus, _ time.Duration) {
	if status == domain.ReportFailed {
		m.AgentsFailed.Add(1)
	}
	// failures before the model call never incremented running
	if m.AgentsRunning.Add(-1) < 0 {
		m.AgentsRunning.Store(0)
	}
}

func (m *Metrics) AgentRetried(string) {
	m.AgentsRetried.Add(1)
	if m.AgentsRunning.Add(-1) < 0 {
		m.AgentsRunning.Store(0)
	}
}

// ProviderCall matches the provider manager's OnCall hook.
func (m *Metrics) ProviderCall(backend string, took time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.providers[backend]
	if !ok {
		st = &providerStats{}
		m.providers[backend] = st
	}
	st.Calls++
	st.Seconds += took.Seconds()
	if err != nil {
		st.Errors++
	}
}

// Snapshot returns current metrics
func (m *Metrics) Snapshot() map[string]interface{} {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	m.mu.Lock()
	names := make([]string, 0, len(m.providers))
	for n := range m.providers {
		names = append(names, n)
	}
	sort.Strings(names)
	providers := make(map[string]providerStats, len(names))
	for _, n := range names {
		providers[n] = *m.providers[n]
	}
	m.mu.Unlock()

	return map[string]interface{}{
		"requests_total":       m.RequestsTotal.Load(),
		"requests_in_progress": m.RequestsInProgress.Load(),
		"requests_success":     m.RequestsSuccess.Load(),
		"requests_failed":      m.RequestsFailed.Load(),
		"analyses_submitted":   m.AnalysesSubmitted.Load(),
		"analyses_completed":   m.AnalysesCompleted.Load(),
		"analyses_failed":      m.AnalysesFailed.Load(),
		"analyses_cancelled":   m.AnalysesCancelled.Load(),
		"agents_running":       m.AgentsRunning.Load(),
		"agents_failed":        m.AgentsFailed.Load(),
		"agents_retried":       m.AgentsRetried.Load(),
		"providers":            providers,
		"uptime_seconds":       time.Since(m.StartTime).Seconds(),
		"memory": map[string]interface{}{
			"alloc_bytes":       mem.Alloc,
			"total_alloc_bytes": mem.TotalAlloc,
			"sys_bytes":         mem.Sys,
			"num_gc":            mem.NumGC,
		},
		"goroutines": runtime.NumGoroutine(),
	}
}

// Middleware tracks request metrics
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.RequestsTotal.Add(1)
		m.RequestsInProgress.Add(1)
		defer m.RequestsInProgress.Add(-1)

		wrapped := wrapWriter(w)
		next.ServeHTTP(wrapped, r)

		if wrapped.statusCode >= 200 && wrapped.statusCode < 400 {
			m.RequestsSuccess.Add(1)
		} else {
			m.RequestsFailed.Add(1)
		}
	})
}

// Handler returns metrics as JSON
func (m *Metrics) Handler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(m.Snapshot())
}
