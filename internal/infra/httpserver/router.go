package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	appanalysis "github.com/bryanwahyu/bizpanel/internal/application/analysis"
	"github.com/bryanwahyu/bizpanel/internal/application/providers"
	domain "github.com/bryanwahyu/bizpanel/internal/domain/analysis"
	"github.com/bryanwahyu/bizpanel/internal/domain/llm"
	"github.com/bryanwahyu/bizpanel/internal/middleware"
)

// maxBody caps submission payloads (description is at most 5000 chars).
const maxBody = 64 << 10

type Router struct {
	svc       *appanalysis.Service
	providers *providers.Manager
	log       *slog.Logger
}

// Options carries the optional pieces of the HTTP surface.
type Options struct {
	Log         *slog.Logger
	Metrics     *middleware.Metrics
	Limiter     *middleware.RateLimiter // submission only
	Critical    map[string]middleware.HealthChecker
	Optional    map[string]middleware.HealthChecker
	CORSOrigins []string
}

func NewRouter(svc *appanalysis.Service, prov *providers.Manager, opts Options) http.Handler {
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}
	r := &Router{svc: svc, providers: prov, log: log}
	mux := chi.NewRouter()

	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "Authorization"},
		MaxAge:         300,
	}))
	mux.Use(middleware.Logging(log))
	if opts.Metrics != nil {
		mux.Use(opts.Metrics.Middleware)
		mux.Get("/metrics", opts.Metrics.Handler)
	}

	mux.Get("/health", middleware.LivenessHandler)
	mux.Get("/ready", middleware.ReadinessHandler(opts.Critical["database"]))
	mux.Get("/healthz", middleware.HealthHandler(opts.Critical, opts.Optional))

	mux.Route("/v1", func(rt chi.Router) {
		rt.Group(func(g chi.Router) {
			if opts.Limiter != nil {
				g.Use(middleware.RateLimit(opts.Limiter))
			}
			g.Post("/analyses", r.wrap(r.handleSubmit))
		})
		rt.Get("/analyses", r.wrap(r.handleList))
		rt.Route("/analyses/{id}", func(a chi.Router) {
			a.Get("/", r.wrap(r.handleGet))
			a.Get("/status", r.wrap(r.handleStatus))
			a.Get("/reports", r.wrap(r.handleReports))
			a.Get("/final-report", r.wrap(r.handleFinalReport))
			a.Get("/tasks", r.wrap(r.handleTasks))
			a.Post("/reanalyze", r.wrap(r.handleReanalyze))
			a.Post("/cancel", r.wrap(r.handleCancel))
		})
		rt.Get("/summary", r.wrap(r.handleSummary))
		rt.Get("/providers", r.wrap(r.handleProviders))
		rt.Post("/providers/{name}/test", r.wrap(r.handleProviderTest))
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

// badRequest marks client input errors that are not submission validation.
type badRequest struct{ msg string }

func (e badRequest) Error() string { return e.msg }

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}
		var verr *domain.ValidationError
		var bad badRequest
		switch {
		case errors.As(err, &verr):
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "validation failed", "fields": verr.Fields})
		case errors.As(err, &bad):
			writeError(w, http.StatusBadRequest, bad.msg)
		case errors.Is(err, domain.ErrNotFound), errors.Is(err, llm.ErrUnknownProvider):
			writeError(w, http.StatusNotFound, "not found")
		case errors.Is(err, domain.ErrAnalysisInProgress), errors.Is(err, domain.ErrInvalidTransition):
			writeError(w, http.StatusConflict, err.Error())
		case errors.Is(err, llm.ErrQuotaExceeded):
			writeError(w, http.StatusTooManyRequests, "ai quota exceeded")
		default:
			r.log.Error("request failed", "method", req.Method, "path", req.URL.Path, "err", err)
			writeError(w, http.StatusInternalServerError, "internal error")
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func requestID(req *http.Request) (domain.RequestID, error) {
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateRequestID(id); err != nil {
		// id yang bukan UUID pasti tidak ada
		return "", domain.ErrNotFound
	}
	return domain.RequestID(id), nil
}

// POST /v1/analyses
// Body: {"title", "description", "category", "target_segment", "estimated_budget"}
func (r *Router) handleSubmit(w http.ResponseWriter, req *http.Request) error {
	var body domain.Submission
	dec := json.NewDecoder(http.MaxBytesReader(w, req.Body, maxBody))
	if err := dec.Decode(&body); err != nil {
		return badRequest{msg: fmt.Sprintf("invalid JSON body: %v", err)}
	}
	body.Title = middleware.SanitizeString(body.Title)
	body.Description = middleware.SanitizeString(body.Description)
	body.TargetSegment = middleware.SanitizeString(body.TargetSegment)

	a, err := r.svc.Submit(req.Context(), body)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"id":        a.ID,
		"status":    a.Status,
		"queued_at": time.Now().UTC(),
	})
	return nil
}

// GET /v1/analyses?page=&page_size=
func (r *Router) handleList(w http.ResponseWriter, req *http.Request) error {
	q := req.URL.Query()
	page := middleware.ValidatePage(q.Get("page"))
	size := middleware.ValidateLimit(q.Get("page_size"))

	list, err := r.svc.List(req.Context(), page, size)
	if err != nil {
		return err
	}
	if list == nil {
		list = []*domain.Request{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"page": page, "page_size": size, "items": list})
	return nil
}

// GET /v1/analyses/{id}
func (r *Router) handleGet(w http.ResponseWriter, req *http.Request) error {
	id, err := requestID(req)
	if err != nil {
		return err
	}
	a, err := r.svc.Get(req.Context(), id)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, a)
	return nil
}

// GET /v1/analyses/{id}/status
func (r *Router) handleStatus(w http.ResponseWriter, req *http.Request) error {
	id, err := requestID(req)
	if err != nil {
		return err
	}
	view, err := r.svc.Status(req.Context(), id)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, view)
	return nil
}

// GET /v1/analyses/{id}/reports
func (r *Router) handleReports(w http.ResponseWriter, req *http.Request) error {
	id, err := requestID(req)
	if err != nil {
		return err
	}
	list, err := r.svc.ListReports(req.Context(), id)
	if err != nil {
		return err
	}
	if list == nil {
		list = []*domain.AgentReport{}
	}
	writeJSON(w, http.StatusOK, list)
	return nil
}

// GET /v1/analyses/{id}/final-report
func (r *Router) handleFinalReport(w http.ResponseWriter, req *http.Request) error {
	id, err := requestID(req)
	if err != nil {
		return err
	}
	f, err := r.svc.FinalReport(req.Context(), id)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, f)
	return nil
}

// GET /v1/analyses/{id}/tasks
func (r *Router) handleTasks(w http.ResponseWriter, req *http.Request) error {
	id, err := requestID(req)
	if err != nil {
		return err
	}
	list, err := r.svc.ListTasks(req.Context(), id)
	if err != nil {
		return err
	}
	if list == nil {
		list = []*domain.ExecutionTask{}
	}
	writeJSON(w, http.StatusOK, list)
	return nil
}

// POST /v1/analyses/{id}/reanalyze
func (r *Router) handleReanalyze(w http.ResponseWriter, req *http.Request) error {
	id, err := requestID(req)
	if err != nil {
		return err
	}
	a, err := r.svc.Reanalyze(req.Context(), id)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"id": a.ID, "status": a.Status})
	return nil
}

// POST /v1/analyses/{id}/cancel
func (r *Router) handleCancel(w http.ResponseWriter, req *http.Request) error {
	id, err := requestID(req)
	if err != nil {
		return err
	}
	a, err := r.svc.Cancel(req.Context(), id)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, a)
	return nil
}

// GET /v1/summary
func (r *Router) handleSummary(w http.ResponseWriter, req *http.Request) error {
	summary, err := r.svc.Summary(req.Context())
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, summary)
	return nil
}

// GET /v1/providers
func (r *Router) handleProviders(w http.ResponseWriter, req *http.Request) error {
	writeJSON(w, http.StatusOK, map[string]any{
		"default":   r.providers.Default(),
		"available": r.providers.Available(),
		"backends":  r.providers.Backends(),
	})
	return nil
}

// POST /v1/providers/{name}/test
func (r *Router) handleProviderTest(w http.ResponseWriter, req *http.Request) error {
	name := chi.URLParam(req, "name")
	if err := middleware.ValidateBackendName(name); err != nil {
		return badRequest{msg: err.Error()}
	}
	ok, err := r.providers.Test(req.Context(), name)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, map[string]any{"name": name, "available": ok})
	return nil
}
