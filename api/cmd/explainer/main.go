package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"explain-proxy/api/internal/bootstrap"
	"explain-proxy/api/internal/config"
	"explain-proxy/api/internal/handle"
	"explain-proxy/api/internal/observability"
)

const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "explainer terminated with error: %v\n", err)
	}
	os.Exit(code)
}

func run() (int, error) {
	cfg, err := config.Load()
	if err != nil {
		return exitConfig, err
	}
	log := observability.Init(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, log)
	if err != nil {
		return exitConfig, err
	}
	defer func() { _ = app.Close() }()

	opts := []handle.Option{
		handle.WithMaxUploadBytes(cfg.MaxUploadBytes),
		handle.WithEngineInfo(app.Engine.Name(), app.Engine.GetModel()),
	}
	if app.Audit != nil {
		opts = append(opts, handle.WithAuditStats(app.Audit))
	}
	h := handle.New(app.Service, log, opts...)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           h.Routes(cfg.AllowedOrigin),
		ReadHeaderTimeout: 10 * time.Second,
		// generation plus upload
		WriteTimeout: cfg.GenerationTimeout + 30*time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("explainer listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return exitRuntime, fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		log.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.GenerationTimeout+5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return exitRuntime, fmt.Errorf("shutdown: %w", err)
	}
	return exitOK, nil
}
