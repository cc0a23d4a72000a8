package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"telesession/internal/compliance"
	"telesession/internal/invitetoken"
	"telesession/internal/media"
	"telesession/internal/platform/config"
	"telesession/internal/platform/httpserver"
	"telesession/internal/platform/logger"
	"telesession/internal/platform/middleware"
	"telesession/internal/registry"
	"telesession/internal/session"
	"telesession/internal/session/metrics"
	httptransport "telesession/internal/transport/http"
)

// Exit codes reported to the service manager.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "dev"

// main stays a thin wrapper so run's defers execute before the process exits.
func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "telesession terminated: %v\n", err)
	}
	os.Exit(code)
}

func run() (int, error) {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return exitConfig, err
	}

	log := logger.New(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})

	// Audit events flow through a buffered async sink so slow emission never
	// blocks a session mutation.
	auditSink := compliance.NewAsyncSink(compliance.NewSlogSink(log), 0)
	sinkCtx, stopSink := context.WithCancel(context.Background())
	defer stopSink()
	sinkDone := make(chan error, 1)
	go func() { sinkDone <- auditSink.Run(sinkCtx) }()

	sessionMetrics := metrics.New()
	reg := registry.New(
		registry.Defaults{
			MaxParticipants: cfg.MaxParticipants,
			InvitationTTL:   cfg.InvitationTTL,
		},
		registry.WithLogger(log),
		registry.WithMetrics(sessionMetrics),
		registry.WithSessionOptions(
			session.WithLogger(log),
			session.WithMetrics(sessionMetrics),
			session.WithMediaController(media.NewLocalController()),
			session.WithComplianceSink(auditSink),
		),
	)
	tokens := invitetoken.NewService(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.JWTTokenTTL)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RequestTime)
	router.Use(middleware.ClientMetadata)
	router.Use(middleware.Recovery(log))
	router.Use(middleware.Logger(log))
	router.Use(middleware.Timeout(cfg.RequestTimeout))
	router.Use(middleware.ContentTypeJSON)
	router.Use(middleware.Tracing)

	httptransport.New(reg, tokens, log, version).Register(router)
	if cfg.MetricsEnabled {
		router.Handle("/metrics", promhttp.Handler())
	}

	srv := httpserver.New(cfg.Addr, router)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		log.Info("starting telesession server", "addr", cfg.Addr, "version", version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-serveErr:
		return exitRuntime, err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	// Stop accepting requests first, then end whatever sessions are still live
	// so each one gets its final audit event, then let the sink drain.
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http server shutdown failed", "error", err)
	}
	if err := reg.Shutdown(shutdownCtx, "server_shutdown"); err != nil {
		log.Error("failed to end live sessions", "error", err)
		return exitRuntime, err
	}
	stopSink()
	<-sinkDone

	log.Info("server stopped")
	return exitOK, nil
}
