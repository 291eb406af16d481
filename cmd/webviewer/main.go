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

	wvhttp "github.com/anombyte93/TaskMasterWebViewer/internal/adapter/http"
	"github.com/anombyte93/TaskMasterWebViewer/internal/adapter/issuefile"
	otelx "github.com/anombyte93/TaskMasterWebViewer/internal/adapter/otel"
	"github.com/anombyte93/TaskMasterWebViewer/internal/adapter/taskfile"
	"github.com/anombyte93/TaskMasterWebViewer/internal/adapter/ws"
	"github.com/anombyte93/TaskMasterWebViewer/internal/config"
	"github.com/anombyte93/TaskMasterWebViewer/internal/logger"
	"github.com/anombyte93/TaskMasterWebViewer/internal/query"
	"github.com/anombyte93/TaskMasterWebViewer/internal/service"
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

	slog.SetDefault(logger.New(cfg.Logging))
	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"tasks_path", cfg.Data.TasksPath,
		"issues_dir", cfg.Data.IssuesDir,
		"debounce", cfg.Watcher.Debounce,
	)

	ctx := context.Background()

	// --- Telemetry ---
	shutdownTelemetry, err := otelx.Setup(ctx, cfg.Telemetry.Endpoint, cfg.Logging.Service)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() { _ = shutdownTelemetry(context.Background()) }()

	metrics, err := otelx.NewMetrics()
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	// --- Stores ---
	taskStore := taskfile.New(cfg.Data.TasksPath)

	issueCache, err := issuefile.NewCache(cfg.Cache.MaxSizeMB<<20, cfg.Cache.TTL)
	if err != nil {
		return fmt.Errorf("issue cache: %w", err)
	}
	defer issueCache.Close()
	issueStore := issuefile.New(cfg.Data.IssuesDir, issuefile.WithCache(issueCache))

	// --- Services ---
	taskSvc := service.NewTaskService(taskStore,
		service.WithDebounce(cfg.Watcher.Debounce),
		service.WithMetrics(metrics),
	)
	if err := taskSvc.Start(ctx); err != nil {
		return fmt.Errorf("task watcher: %w", err)
	}
	defer taskSvc.Stop()

	issueSvc := service.NewIssueService(issueStore)

	// --- Realtime hub ---
	hub := ws.NewHub(cfg.WS.HeartbeatInterval,
		ws.WithMetrics(metrics),
		ws.WithWriteTimeout(cfg.WS.WriteTimeout),
	)
	defer hub.Close()

	unsubscribe := taskSvc.Subscribe(service.Handler{
		OnChange: func(ev service.ChangeEvent) {
			hub.BroadcastTasksUpdate(ctx, ev.Count, ev.At)
		},
		OnError: func(ev service.ErrorEvent) {
			hub.BroadcastTasksError(ctx, ev.Err.Error(), ev.At)
		},
	})
	defer unsubscribe()

	// --- HTTP ---
	searchOpts := query.Options{
		Threshold:      cfg.Search.Threshold,
		Distance:       cfg.Search.Distance,
		MinMatchLength: cfg.Search.MinMatchLength,
	}
	handlers := wvhttp.NewHandlers(taskSvc, issueSvc, hub, searchOpts)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(wvhttp.CORS(cfg.Server.CORSOrigin))
	r.Use(wvhttp.Logger)
	r.Use(chimw.Recoverer)
	r.Use(otelx.HTTPMiddleware(cfg.Logging.Service))

	wvhttp.MountRoutes(r, handlers)

	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown
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
