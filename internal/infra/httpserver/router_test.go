package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/bizpanel/internal/application/agents"
	appanalysis "github.com/bryanwahyu/bizpanel/internal/application/analysis"
	"github.com/bryanwahyu/bizpanel/internal/application/providers"
	domain "github.com/bryanwahyu/bizpanel/internal/domain/analysis"
	"github.com/bryanwahyu/bizpanel/internal/domain/llm"
	"github.com/bryanwahyu/bizpanel/internal/infra/ai/prompt"
	"github.com/bryanwahyu/bizpanel/internal/infra/db/sqlite"
	"github.com/bryanwahyu/bizpanel/internal/infra/db/sqlstore"
	"github.com/bryanwahyu/bizpanel/internal/middleware"
)

type stubBackend struct{}

func (stubBackend) Name() string { return "stub" }
func (stubBackend) TestConnection(context.Context) bool { return true }

func (stubBackend) Generate(_ context.Context, system, _ string, _ llm.Options) (llm.Response, error) {
	if system == prompt.CEOSystem {
		return llm.Response{Content: `{"executive_summary": "ok", "overall_score": 81, "recommendation": "PROCEED"}`}, nil
	}
	return llm.Response{Content: `{"score": 70, "risks": [], "opportunities": []}`}, nil
}

type fixture struct {
	srv   *httptest.Server
	pool  *appanalysis.Pool
	store *sqlstore.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	db, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "router.db"))
	require.NoError(t, err)
	store := sqlstore.New(db, sqlstore.SQLite)
	require.NoError(t, store.Migrate(ctx))

	prov := providers.NewManager(nil)
	require.NoError(t, prov.Register(stubBackend{}, true, true))

	pool := appanalysis.NewPool(2, nil)
	pool.Start(ctx)
	svc := &appanalysis.Service{
		Requests:  store.Requests,
		Reports:   store.Reports,
		Finals:    store.Finals,
		Tasks:     store.Tasks,
		Runner:    agents.NewRunner(prov, nil),
		Roster:    agents.DefaultRoster(nil),
		Scheduler: pool,
		Config:    appanalysis.Config{MaxRetries: 1, RetryDelay: time.Millisecond, OrchestratorRetries: 1, OrchestratorRetryDelay: time.Millisecond},
	}
	limiter := middleware.NewRateLimiter(100, 10)
	h := NewRouter(svc, prov, Options{
		Metrics:  middleware.NewMetrics(),
		Limiter:  limiter,
		Critical: map[string]middleware.HealthChecker{"database": &middleware.DatabaseHealthChecker{DB: db}},
	})
	srv := httptest.NewServer(h)
	t.Cleanup(func() {
		srv.Close()
		limiter.Close()
		_ = pool.Shutdown(context.Background())
		_ = store.Close()
	})
	return &fixture{srv: srv, pool: pool, store: store}
}

func (f *fixture) do(t *testing.T, method, path, body string) (int, map[string]any, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, f.srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var raw json.RawMessage
	_ = json.NewDecoder(resp.Body).Decode(&raw)
	var obj map[string]any
	_ = json.Unmarshal(raw, &obj)
	return resp.StatusCode, obj, raw
}

const validBody = `{"title": "Eco Packaging", "description": "Biodegradable packaging for grocery retailers", "category": "retail", "estimated_budget": 25000}`

func TestSubmitAndFollowAnalysis(t *testing.T) {
	f := newFixture(t)

	code, body, _ := f.do(t, http.MethodPost, "/v1/analyses", validBody)
	require.Equal(t, http.StatusAccepted, code)
	id := body["id"].(string)
	assert.Equal(t, string(domain.StatusQueued), body["status"])
	assert.Contains(t, body, "queued_at")
	assert.NotContains(t, body, "queuedAt")

	f.pool.Wait()

	code, body, _ = f.do(t, http.MethodGet, "/v1/analyses/"+id+"/status", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, string(domain.StatusCompleted), body["status"])
	assert.EqualValues(t, 100, body["percent_complete"])

	code, body, _ = f.do(t, http.MethodGet, "/v1/analyses/"+id+"/final-report", "")
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 81, body["overall_score"])
	assert.Equal(t, "PROCEED", body["final_recommendation"])

	code, _, raw := f.do(t, http.MethodGet, "/v1/analyses/"+id+"/reports", "")
	require.Equal(t, http.StatusOK, code)
	var reports []map[string]any
	require.NoError(t, json.Unmarshal(raw, &reports))
	assert.Len(t, reports, 5)

	code, _, raw = f.do(t, http.MethodGet, "/v1/analyses/"+id+"/tasks", "")
	require.Equal(t, http.StatusOK, code)
	var tasks []map[string]any
	require.NoError(t, json.Unmarshal(raw, &tasks))
	assert.Len(t, tasks, 7)

	code, body, _ = f.do(t, http.MethodGet, "/v1/analyses?page=1&page_size=10", "")
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["items"], 1)

	code, body, _ = f.do(t, http.MethodGet, "/v1/summary", "")
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 1, body["total"])

	code, _, _ = f.do(t, http.MethodPost, "/v1/analyses/"+id+"/cancel", "")
	assert.Equal(t, http.StatusConflict, code)

	require.NoError(t, f.store.Requests.UpdateStatus(context.Background(), domain.RequestID(id), domain.StatusAnalyzing, ""))
	code, _, _ = f.do(t, http.MethodPost, "/v1/analyses/"+id+"/reanalyze", "")
	assert.Equal(t, http.StatusConflict, code)
}

func TestSubmitRejectsBadInput(t *testing.T) {
	f := newFixture(t)

	code, body, _ := f.do(t, http.MethodPost, "/v1/analyses", `{"title": "abc", "description": "short", "estimated_budget": -1}`)
	require.Equal(t, http.StatusBadRequest, code)
	fields := body["fields"].(map[string]any)
	assert.Contains(t, fields, "title")
	assert.Contains(t, fields, "description")
	assert.Contains(t, fields, "estimated_budget")

	code, _, _ = f.do(t, http.MethodPost, "/v1/analyses", `{"title":`)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestUnknownAnalysis(t *testing.T) {
	f := newFixture(t)
	for _, path := range []string{
		"/v1/analyses/6f1c1c2e-8a4b-4e0a-9d43-0c8f1b6e2f10",
		"/v1/analyses/6f1c1c2e-8a4b-4e0a-9d43-0c8f1b6e2f10/final-report",
		"/v1/analyses/not-a-uuid/status",
	} {
		code, _, _ := f.do(t, http.MethodGet, path, "")
		assert.Equal(t, http.StatusNotFound, code, path)
	}
}

func TestFinalReportNotFoundWhileRunning(t *testing.T) {
	f := newFixture(t)
	req := &domain.Request{ID: "6f1c1c2e-8a4b-4e0a-9d43-0c8f1b6e2f11", Title: "Pending one", Description: "Still waiting on specialists.", Category: domain.CategoryOther, Status: domain.StatusAnalyzing}
	require.NoError(t, f.store.Requests.Create(context.Background(), req))

	code, _, _ := f.do(t, http.MethodGet, "/v1/analyses/"+string(req.ID)+"/final-report", "")
	assert.Equal(t, http.StatusNotFound, code)
	code, body, _ := f.do(t, http.MethodGet, "/v1/analyses/"+string(req.ID)+"/status", "")
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 0, body["percent_complete"])
}

func TestProvidersEndpoints(t *testing.T) {
	f := newFixture(t)

	code, body, _ := f.do(t, http.MethodGet, "/v1/providers", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "stub", body["default"])
	assert.Len(t, body["backends"], 1)

	code, body, _ = f.do(t, http.MethodPost, "/v1/providers/stub/test", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["available"])

	code, _, _ = f.do(t, http.MethodPost, "/v1/providers/missing/test", "")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestHealthAndMetrics(t *testing.T) {
	f := newFixture(t)
	for _, path := range []string{"/health", "/ready", "/healthz", "/metrics"} {
		code, _, _ := f.do(t, http.MethodGet, path, "")
		assert.Equal(t, http.StatusOK, code, path)
	}
}
