package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	rmhttp "github.com/rainmakerhq/rainmaker/internal/adapter/http"
	rmnats "github.com/rainmakerhq/rainmaker/internal/adapter/nats"
	rmotel "github.com/rainmakerhq/rainmaker/internal/adapter/otel"
	"github.com/rainmakerhq/rainmaker/internal/adapter/postgres"
	"github.com/rainmakerhq/rainmaker/internal/adapter/ristretto"
	"github.com/rainmakerhq/rainmaker/internal/adapter/scribe"
	"github.com/rainmakerhq/rainmaker/internal/adapter/wisecrm"
	"github.com/rainmakerhq/rainmaker/internal/adapter/ws"
	"github.com/rainmakerhq/rainmaker/internal/agent"
	"github.com/rainmakerhq/rainmaker/internal/config"
	"github.com/rainmakerhq/rainmaker/internal/logger"
	"github.com/rainmakerhq/rainmaker/internal/middleware"
	"github.com/rainmakerhq/rainmaker/internal/resilience"
	"github.com/rainmakerhq/rainmaker/internal/service"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, logCloser := logger.New(logger.Options{
		Level:   cfg.Logging.Level,
		Service: cfg.Logging.Service,
		Async:   cfg.Logging.Async,
	})
	slog.SetDefault(log)
	defer logCloser.Close()

	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"pg_max_conns", cfg.Postgres.MaxConns,
	)

	ctx := context.Background()

	// --- Telemetry ---
	otelShutdown, err := rmotel.Setup(ctx, cfg.Logging.Service, cfg.Otel.Endpoint)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = otelShutdown(shutdownCtx)
	}()

	metrics, err := rmotel.NewMetrics()
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	// --- Infrastructure ---
	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()
	slog.Info("postgres connected")

	if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	slog.Info("migrations applied")

	queue, err := rmnats.Connect(ctx, cfg.NATS.URL)
	if err != nil {
		return fmt.Errorf("nats: %w", err)
	}
	defer func() { _ = queue.Close() }()

	ctxCache, err := ristretto.New(cfg.Cache.MaxSizeMB << 20)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer ctxCache.Close()

	// --- Collaborators ---
	scribeClient := scribe.NewClient(cfg.Scribe.URL, cfg.Scribe.APIKey, cfg.Scribe.Timeout)
	scribeClient.SetBreaker(resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout))

	crmClient := wisecrm.NewClient(cfg.CRM.URL, cfg.CRM.APIKey, cfg.CRM.Timeout)
	crmClient.SetBreaker(resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout))

	// --- Services ---
	hub := ws.NewHub()
	store := postgres.NewStore(pool)
	eventStore := postgres.NewEventStore(pool)
	registry := agent.DefaultRegistry()

	contexts := service.NewContextProvider(store, ctxCache, cfg.Cache.TTL)

	dispatcher := service.NewDispatchService(store, eventStore, scribeClient, crmClient, contexts)
	dispatcher.SetHub(hub)
	dispatcher.SetQueue(queue)
	dispatcher.SetMetrics(metrics)

	signalSvc := service.NewSignalService(store, dispatcher, cfg.Signals)
	signalSvc.SetHub(hub)
	signalSvc.SetQueue(queue)
	signalSvc.SetMetrics(metrics)

	pipeline := service.NewPipelineService(eventStore, store, registry, contexts, dispatcher, cfg.Pipeline.MaxParallelAgents)
	pipeline.SetSignals(signalSvc)
	pipeline.SetHub(hub)
	pipeline.SetQueue(queue)
	pipeline.SetMetrics(metrics)

	eventLog := service.NewEventLogService(eventStore, store, registry)
	eventLog.SetPipeline(pipeline)
	eventLog.SetQueue(queue)
	eventLog.SetMetrics(metrics)

	approvals := service.NewApprovalService(store, dispatcher)
	interactions := service.NewInteractionService(store, eventLog, contexts)

	stopSweeper := signalSvc.StartSweeper(ctx)
	defer stopSweeper()

	// --- HTTP ---
	handlers := &rmhttp.Handlers{
		EventLog:     eventLog,
		Approvals:    approvals,
		Signals:      signalSvc,
		Interactions: interactions,
		Healthy: func() map[string]bool {
			return map[string]bool{
				"postgres": pool.Ping(ctx) == nil,
				"nats":     queue.IsConnected(),
			}
		},
	}

	r := chi.NewRouter()
	r.Use(rmhttp.CORS(cfg.Server.CORSOrigin))
	r.Use(rmhttp.Logger)
	r.Use(middleware.RequestID)
	r.Use(middleware.TenantID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(rmotel.HTTPMiddleware(cfg.Logging.Service))

	r.Get("/ws", hub.HandleWS)
	rmhttp.MountRoutes(r, handlers)

	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
		}
	}()

	<-done
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}
