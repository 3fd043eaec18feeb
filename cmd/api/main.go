package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bryanwahyu/bizpanel/internal/bootstrap"
	"github.com/bryanwahyu/bizpanel/internal/config"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)

	// load config
	cfg, err := config.Load(config.Path())
	if err != nil {
		log.Error("config load error", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, log)
	if err != nil {
		log.Error("bootstrap error", "err", err)
		os.Exit(1)
	}

	// probe backends once so /v1/providers starts with real availability
	for name, ok := range app.Providers.TestAll(ctx) {
		log.Info("provider probed", "backend", name, "available", ok)
	}

	// workers run on a context that outlives the signal, Close drains them
	resumed, err := app.Start(context.Background())
	if err != nil {
		log.Error("resume error", "err", err)
	}
	if resumed > 0 {
		log.Info("resumed analyses", "count", resumed)
	}

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      app.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// run server
	go func() {
		log.Info("server listening", "addr", addr, "database", cfg.Database.Driver, "workers", cfg.Workers)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "err", err)
			stop()
		}
	}()

	// graceful shutdown
	<-ctx.Done()
	log.Info("shutting down server...")

	ctx2, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		log.Error("shutdown error", "err", err)
	}
	if err := app.Close(ctx2); err != nil {
		log.Error("worker shutdown error", "err", err)
	}
}
