// Package bootstrap wires configuration into a running analysis service.
// Both the HTTP server and the CLI start through here.
package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/bryanwahyu/bizpanel/internal/application"
	"github.com/bryanwahyu/bizpanel/internal/application/agents"
	appanalysis "github.com/bryanwahyu/bizpanel/internal/application/analysis"
	"github.com/bryanwahyu/bizpanel/internal/application/providers"
	"github.com/bryanwahyu/bizpanel/internal/config"
	"github.com/bryanwahyu/bizpanel/internal/domain/llm"
	"github.com/bryanwahyu/bizpanel/internal/infra/ai/anthropic"
	"github.com/bryanwahyu/bizpanel/internal/infra/ai/ollama"
	"github.com/bryanwahyu/bizpanel/internal/infra/ai/openai"
	mysqlp "github.com/bryanwahyu/bizpanel/internal/infra/db/mysql"
	"github.com/bryanwahyu/bizpanel/internal/infra/db/postgres"
	"github.com/bryanwahyu/bizpanel/internal/infra/db/sqlite"
	"github.com/bryanwahyu/bizpanel/internal/infra/db/sqlstore"
	"github.com/bryanwahyu/bizpanel/internal/infra/httpserver"
	"github.com/bryanwahyu/bizpanel/internal/infra/storage"
	"github.com/bryanwahyu/bizpanel/internal/middleware"
)

type App struct {
	Config    *config.Config
	Log       *slog.Logger
	Store     *sqlstore.Store
	Providers *providers.Manager
	Pool      *appanalysis.Pool
	Service   *appanalysis.Service
	Metrics   *middleware.Metrics
	Limiter   *middleware.RateLimiter
}

// New connects the database, migrates it and assembles the service. The
// worker pool is not started yet.
func New(ctx context.Context, cfg *config.Config, log *slog.Logger) (*App, error) {
	if log == nil {
		log = slog.Default()
	}
	db, dialect, err := OpenDatabase(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	store := sqlstore.New(db, dialect)
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	metrics := middleware.NewMetrics()
	prov, err := NewProviders(cfg, log)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	prov.OnCall = metrics.ProviderCall

	roster, err := NewRoster(cfg)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	pool := appanalysis.NewPool(cfg.Workers, log)
	svc := &appanalysis.Service{
		Requests:  store.Requests,
		Reports:   store.Reports,
		Finals:    store.Finals,
		Tasks:     store.Tasks,
		Runner:    agents.NewRunner(prov, log),
		Roster:    roster,
		Scheduler: pool,
		Clock:     application.SystemClock{},
		Log:       log,
		Metrics:   metrics,
		Config: appanalysis.Config{
			MaxRetries:             cfg.Execution.MaxRetries,
			RetryDelay:             cfg.Execution.RetryDelay,
			OrchestratorRetries:    cfg.Execution.OrchestratorRetries,
			OrchestratorRetryDelay: cfg.Execution.OrchestratorRetryDelay,
		},
	}

	if cfg.Minio.Endpoint != "" {
		archive, err := storage.New(ctx, storage.Config{
			Endpoint:  cfg.Minio.Endpoint,
			Region:    cfg.Minio.Region,
			Bucket:    cfg.Minio.BucketName,
			AccessKey: cfg.Minio.AccessKey,
			SecretKey: cfg.Minio.SecretKey,
			UseSSL:    cfg.Minio.UseSSL,
			Prefix:    cfg.Minio.Prefix,
		})
		if err != nil {
			// arsip opsional, service tetap jalan tanpa minio
			log.Warn("minio init failed, final reports will not be archived", "err", err)
		} else {
			svc.Archive = archive
		}
	}

	return &App{
		Config:    cfg,
		Log:       log,
		Store:     store,
		Providers: prov,
		Pool:      pool,
		Service:   svc,
		Metrics:   metrics,
	}, nil
}

// OpenDatabase opens the configured driver and returns its SQL dialect.
func OpenDatabase(ctx context.Context, c config.Database) (*sql.DB, sqlstore.Dialect, error) {
	dialect, err := sqlstore.ParseDialect(c.Driver)
	if err != nil {
		return nil, "", err
	}
	var db *sql.DB
	switch dialect {
	case sqlstore.MySQL:
		db, err = mysqlp.Connect(ctx, mysqlp.Config{Host: c.Host, Port: c.Port, User: c.User, Password: c.Password, Name: c.Name}.DSN())
	case sqlstore.Postgres:
		db, err = postgres.Connect(ctx, postgres.Config{Host: c.Host, Port: c.Port, User: c.User, Password: c.Password, Name: c.Name, SSLMode: c.SSLMode}.DSN())
	default:
		db, err = sqlite.Open(ctx, c.Path)
	}
	if err != nil {
		return nil, "", fmt.Errorf("%s connect: %w", dialect, err)
	}
	return db, dialect, nil
}

// NewProvider builds the client for one configured backend.
func NewProvider(p config.Provider) (llm.Provider, error) {
	bc := p.Backend()
	switch p.Type {
	case config.TypeOpenAI:
		return openai.NewClient(bc), nil
	case config.TypeLMStudio:
		return openai.NewLMStudio(bc), nil
	case config.TypeOllama:
		return ollama.NewClient(bc), nil
	case config.TypeAnthropic:
		return anthropic.NewClient(bc), nil
	}
	return nil, fmt.Errorf("%w: type %q", llm.ErrUnknownProvider, p.Type)
}

// NewProviders registers every configured backend. Without an explicit
// default the first active backend becomes the default.
func NewProviders(cfg *config.Config, log *slog.Logger) (*providers.Manager, error) {
	m := providers.NewManager(log)
	explicit := false
	for _, p := range cfg.Providers {
		explicit = explicit || p.Default
	}
	for _, p := range cfg.Providers {
		client, err := NewProvider(p)
		if err != nil {
			return nil, err
		}
		if err := m.Register(client, p.IsActive(), p.Default); err != nil {
			return nil, err
		}
		if !explicit && m.Default() == "" && p.IsActive() {
			if err := m.SetDefault(p.Name); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

// NewRoster applies per-agent routing from the config to the default roster.
func NewRoster(cfg *config.Config) (agents.Roster, error) {
	routes := make(map[string]agents.Route, len(cfg.Agents))
	for name, a := range cfg.Agents {
		routes[name] = agents.Route{Backend: a.Backend, Options: a.Options()}
	}
	roster := agents.DefaultRoster(routes)
	if cfg.LeadAgent != roster.Lead.Name() {
		return agents.Roster{}, fmt.Errorf("lead_agent %q: only %s can synthesize", cfg.LeadAgent, roster.Lead.Name())
	}
	for name := range cfg.Agents {
		if _, ok := roster.Get(name); !ok {
			return agents.Roster{}, fmt.Errorf("agents.%s: unknown agent", name)
		}
	}
	return roster, nil
}

// Start runs the workers and re-queues analyses left unfinished by a
// previous process.
func (a *App) Start(ctx context.Context) (int, error) {
	a.Pool.Start(ctx)
	return a.Service.Resume(ctx)
}

// Handler builds the HTTP surface.
func (a *App) Handler() http.Handler {
	if a.Limiter == nil {
		a.Limiter = middleware.NewRateLimiter(10, 1)
	}
	optional := map[string]middleware.HealthChecker{}
	for _, b := range a.Providers.Backends() {
		optional["provider:"+b.Name] = &middleware.ProviderHealthChecker{Providers: a.Providers, Name: b.Name}
	}
	return httpserver.NewRouter(a.Service, a.Providers, httpserver.Options{
		Log:      a.Log,
		Metrics:  a.Metrics,
		Limiter:  a.Limiter,
		Critical: map[string]middleware.HealthChecker{"database": &middleware.DatabaseHealthChecker{DB: a.Store.DB}},
		Optional: optional,
	})
}

// Close drains the workers and closes the database.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if err := a.Pool.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("pool shutdown: %w", err))
	}
	if a.Limiter != nil {
		a.Limiter.Close()
	}
	if err := a.Store.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
