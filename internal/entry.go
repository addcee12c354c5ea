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
	"github.com/starford/laguz/internal/engine"
	"github.com/starford/laguz/internal/journal"
	"github.com/starford/laguz/internal/mcpserver"
	"github.com/starford/laguz/internal/reports"
	"github.com/starford/laguz/internal/sse"
	"github.com/starford/laguz/internal/storage"
	"github.com/starford/laguz/internal/store"
	"github.com/starford/laguz/internal/tracker"
)

// runtime is everything built from the config that both the HTTP server
// and the MCP server need.
type runtime struct {
	logger  *slog.Logger
	vault   storage.Provider
	db      *store.DB
	engine  *engine.Engine
	reports *reports.Store
}

func newApplication(opts []Option) (*application, error) {
	app := &application{logOutput: os.Stdout}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

// bootstrap opens the journal and database, loads the marker catalog and
// brings the plan index up to date. The caller closes rt.db.
func (app *application) bootstrap(ctx context.Context) (*runtime, error) {
	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(app.logOutput, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("journal_path", cfg.Journal.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("locale", cfg.Engine.Locale),
		slog.String("log_level", cfg.App.LogLevel.String()))

	if err := os.MkdirAll(cfg.Journal.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create journal dir: %w", err)
	}
	vault, err := storage.NewFS(cfg.Journal.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	eng, err := buildEngine(cfg.Engine)
	if err != nil {
		return nil, err
	}

	markers, err := store.LoadCatalog(cfg.Catalog.Path)
	if err != nil {
		return nil, err
	}

	db, err := store.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}
	if err := db.ReplaceCatalog(ctx, markers); err != nil {
		db.Close()
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	logger.Info("catalog: loaded", slog.Int("markers", len(markers)), slog.String("path", cfg.Catalog.Path))

	if err := journal.Sync(ctx, db, vault, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	return &runtime{
		logger:  logger,
		vault:   vault,
		db:      db,
		engine:  eng,
		reports: reports.NewStore(vault),
	}, nil
}

func buildEngine(cfg EngineConfig) (*engine.Engine, error) {
	opts := []engine.Option{engine.WithLocale(cfg.Tag())}
	if cfg.FocusAreas != "" {
		data, err := os.ReadFile(cfg.FocusAreas)
		if err != nil {
			return nil, fmt.Errorf("read focus areas: %w", err)
		}
		table, err := engine.ParseKeywordTable(data)
		if err != nil {
			return nil, err
		}
		classifier, err := engine.NewFocusClassifier(table)
		if err != nil {
			return nil, err
		}
		opts = append(opts, engine.WithFocusClassifier(classifier))
	}
	return engine.New(opts...), nil
}

// Run starts the HTTP server and the journal watcher.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	rt, err := app.bootstrap(ctx)
	if err != nil {
		return err
	}
	defer rt.db.Close()
	logger := rt.logger

	// SSE broker: every mutation fans out as <entity>.<kind> plus a
	// throttled dashboard.updated.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	trackerSvc := tracker.NewService(rt.db, rt.engine, tracker.WithChangeFunc(broker.PublishChange))
	journalSvc := journal.NewService(rt.vault, rt.db, journal.WithChangeFunc(broker.PublishPlanChange))

	apiRouter := api.NewRouter(api.RouterConfig{
		Tracker:     trackerSvc,
		Journal:     journalSvc,
		Reports:     rt.reports,
		AuthEnabled: cfg.Auth.AuthEnabled(),
		Token:       cfg.Auth.Token,
		Events:      broker,
	})

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
		if err := rt.db.Ping(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Journal watcher: plan edits made outside the API reach the index
	// and the SSE stream.
	g.Go(func() error {
		if err := journal.Watch(gCtx, rt.db, rt.vault, cfg.Journal.Path, logger, broker.PublishPlanChange); err != nil {
			logger.Error("watcher: failed", slog.String("error", err.Error()))
		}
		return nil
	})

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
		defer signal.Stop(quit)

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
		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the errgroup context so the watcher stops with the
// HTTP server.
var errShutdown = errors.New("shutdown")

// RunMCP serves the MCP tools over stdio. Logs go to stderr unless
// WithLogOutput says otherwise.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if err != nil {
		return err
	}

	rt, err := app.bootstrap(ctx)
	if err != nil {
		return err
	}
	defer rt.db.Close()

	srv := mcpserver.New(
		tracker.NewService(rt.db, rt.engine),
		journal.NewService(rt.vault, rt.db),
		rt.reports,
	)
	rt.logger.Info("MCP server starting on stdio")
	return srv.ServeStdio()
}
