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
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/jotter/internal/api"
	"github.com/starford/jotter/internal/index"
	"github.com/starford/jotter/internal/mcpserver"
	"github.com/starford/jotter/internal/noteservice"
	"github.com/starford/jotter/internal/render"
	"github.com/starford/jotter/internal/root"
	"github.com/starford/jotter/internal/sse"
	"github.com/starford/jotter/internal/watch"
)

// EventsPath is where the live-reload event stream is served.
const EventsPath = "/events"

func newApplication(opts []Option) (*application, error) {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if app.root == "" {
		return nil, fmt.Errorf("root is required")
	}
	if app.logger == nil {
		app.logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: app.config.App.LogLevel,
		}))
	}
	if app.version == "" {
		app.version = "dev"
	}
	return app, nil
}

// service builds the note service for the application's tree. The returned
// close function releases the search catalog.
func (a *application) service(renderOpts ...render.Option) (*noteservice.Service, func() error, error) {
	cfg := a.config
	if err := os.MkdirAll(filepath.Dir(cfg.SQLite.Path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create catalog dir: %w", err)
	}
	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("init catalog: %w", err)
	}
	if cfg.Site.CSS != "" {
		renderOpts = append(renderOpts, render.WithCSS(cfg.Site.CSS))
	}
	svc := noteservice.NewService(a.root,
		noteservice.WithLogger(a.logger),
		noteservice.WithRenderer(render.New(renderOpts...)),
		noteservice.WithCatalog(db),
	)
	return svc, db.Close, nil
}

// NewService builds a note service for one-shot commands. The caller must
// invoke the returned close function.
func NewService(opts ...Option) (*noteservice.Service, func() error, error) {
	app, err := newApplication(opts)
	if err != nil {
		return nil, nil, err
	}
	return app.service()
}

// RunMCP serves the MCP tools on stdin/stdout until the client disconnects.
func RunMCP(_ context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	svc, closeFn, err := app.service()
	if err != nil {
		return err
	}
	defer closeFn()

	app.logger.Info("MCP server starting", slog.String("root", app.root))
	return mcpserver.New(svc, app.version).ServeStdio()
}

// Run starts the development server with the given options: rendered pages,
// the JSON API, and live reload driven by a file watcher.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := app.logger

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("root", app.root),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	tree, err := root.LoadConfig(app.root)
	if err != nil {
		return err
	}

	svc, closeFn, err := app.service(render.WithLiveReload(EventsPath))
	if err != nil {
		return err
	}
	defer closeFn()

	// SSE broker.
	broker := sse.NewBroker(cfg.Site.ReloadWindow)
	defer broker.Close()

	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

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
	r.Get("/health/ready", func(w http.ResponseWriter, req *http.Request) {
		if _, err := svc.Citekeys(req.Context()); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Start file watcher; changes are batched into reload events for open pages.
	g.Go(func() error {
		roots := append([]string{app.root}, tree.LinkedRoots(app.root)...)
		if err := watch.Watch(gCtx, roots, logger, broker.Notify); err != nil {
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
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		// Event streams only end when their subscription closes.
		broker.Close()

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
