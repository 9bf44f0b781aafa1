// Package internal provides the main application initialization and runtime logic.
package internal

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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/laguz/internal/api"
	"github.com/starford/laguz/internal/index"
	"github.com/starford/laguz/internal/mcpserver"
	"github.com/starford/laguz/internal/notebookservice"
	"github.com/starford/laguz/internal/sse"
	"github.com/starford/laguz/internal/storage"
)

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("workspace_path", cfg.Workspace.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Ensure workspace directory exists.
	if err := os.MkdirAll(cfg.Workspace.Path, 0o755); err != nil {
		return fmt.Errorf("create workspace dir: %w", err)
	}

	// Initialize storage.
	store, err := storage.NewFS(cfg.Workspace.Path)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	// Initialize SQLite index.
	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init index: %w", err)
	}
	defer db.Close()

	// Run initial sync.
	if err := index.Sync(db, store, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	// Build notebook service and API router.
	svc := notebookservice.NewService(store, db, broker)
	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker, store.Root())

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Start file watcher with SSE callback.
	g.Go(func() error {
		err := index.Watch(gCtx, db, store, cfg.Workspace.Path, logger, func(kind, path string) {
			broker.PublishNotebookEvent(kind, path)
		})
		if err != nil {
			logger.Warn("watcher stopped", slog.String("error", err.Error()))
		}
		return nil
	})

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP starts the MCP server on stdin/stdout. Logs go to stderr so that
// stdout stays reserved for the protocol.
func RunMCP(_ context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	if err := os.MkdirAll(cfg.Workspace.Path, 0o755); err != nil {
		return fmt.Errorf("create workspace dir: %w", err)
	}

	store, err := storage.NewFS(cfg.Workspace.Path)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init index: %w", err)
	}
	defer db.Close()

	if err := index.Sync(db, store, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	svc := notebookservice.NewService(store, db, nil)

	logger.Info("MCP server starting on stdio",
		slog.String("workspace_path", cfg.Workspace.Path))

	return mcpserver.New(svc, store).ServeStdio()
}
