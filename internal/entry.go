// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mattn/go-isatty"
	"golang.org/x/sync/errgroup"

	"github.com/starford/kinship/internal/api"
	"github.com/starford/kinship/internal/familyservice"
	"github.com/starford/kinship/internal/familytree"
	"github.com/starford/kinship/internal/index"
	"github.com/starford/kinship/internal/mcpserver"
	"github.com/starford/kinship/internal/menu"
	"github.com/starford/kinship/internal/sse"
	"github.com/starford/kinship/internal/storage"
)

// RunMenu loads the family file and runs the interactive menu until the user
// exits or input ends.
func RunMenu(ctx context.Context, opts ...Option) error {
	app := newApplication(opts)
	if app.config == nil {
		return fmt.Errorf("config is required")
	}
	cfg := app.config

	logger := newLogger(app.logWriter(os.Stderr), cfg.App.LogLevel)
	slog.SetDefault(logger)

	tree, _, err := openTree(cfg, logger)
	if err != nil {
		return err
	}

	if err := menu.New(tree, app.in, app.out).Run(ctx); err != nil {
		return fmt.Errorf("menu: %w", err)
	}
	return nil
}

// Serve runs the HTTP API, the SSE stream and the family file watcher until
// ctx is cancelled or a shutdown signal arrives.
func Serve(ctx context.Context, opts ...Option) error {
	app := newApplication(opts)
	if app.config == nil {
		return fmt.Errorf("config is required")
	}
	cfg := app.config

	logger := newLogger(app.logWriter(os.Stdout), cfg.App.LogLevel)
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("family_path", cfg.Family.Path),
		slog.Bool("index_enabled", cfg.Index.Enabled),
		slog.String("index_path", cfg.Index.Path),
		slog.String("auth_mode", cfg.Auth.Mode),
		slog.String("log_level", cfg.App.LogLevel.String()))

	tree, filePath, err := openTree(cfg, logger)
	if err != nil {
		return err
	}

	db, err := openIndex(cfg)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	svc := familyservice.NewService(tree, db, logger)
	if err := svc.SyncIndex(ctx); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	broker := sse.NewBroker(cfg.Events.GraphThrottle)
	defer broker.Close()
	svc.OnEvent(broker.PublishTreeEvent)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           newHTTPHandler(svc, broker, cfg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Reload the tree when the family file is edited outside the process.
	g.Go(func() error {
		if err := watchFamilyFile(gCtx, filePath, svc, logger); err != nil {
			logger.Warn("watcher: not running", slog.String("error", err.Error()))
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

		// Open SSE streams only end when their subscriber channel closes.
		broker.Close()

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

// ServeMCP exposes the family tree as MCP tools over stdin/stdout.
func ServeMCP(ctx context.Context, opts ...Option) error {
	app := newApplication(opts)
	if app.config == nil {
		return fmt.Errorf("config is required")
	}
	cfg := app.config

	// stdout carries the MCP protocol.
	logger := newLogger(app.logWriter(os.Stderr), cfg.App.LogLevel)
	slog.SetDefault(logger)

	tree, filePath, err := openTree(cfg, logger)
	if err != nil {
		return err
	}

	db, err := openIndex(cfg)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	svc := familyservice.NewService(tree, db, logger)
	if err := svc.SyncIndex(ctx); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		if err := watchFamilyFile(watchCtx, filePath, svc, logger); err != nil {
			logger.Warn("watcher: not running", slog.String("error", err.Error()))
		}
	}()

	logger.Info("MCP server starting on stdio", slog.String("family_path", cfg.Family.Path))
	if err := mcpserver.New(svc).ServeStdio(); err != nil {
		return fmt.Errorf("mcp: %w", err)
	}
	return nil
}

// errShutdown ends the errgroup once the HTTP server has been shut down so
// that the watcher goroutine is cancelled too.
var errShutdown = errors.New("shutdown")

func (a *application) logWriter(fallback io.Writer) io.Writer {
	if a.logOut != nil {
		return a.logOut
	}
	return fallback
}

// newLogger writes human-readable text to a terminal and JSON otherwise.
func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if f, ok := w.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// openTree loads the configured family file and returns the tree together
// with the file's absolute path.
func openTree(cfg *Config, logger *slog.Logger) (*familytree.Tree, string, error) {
	dir, file := filepath.Split(cfg.Family.Path)
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, "", fmt.Errorf("create family dir: %w", err)
	}

	store, err := storage.NewFS(dir)
	if err != nil {
		return nil, "", fmt.Errorf("init storage: %w", err)
	}
	abs, err := store.Abs(file)
	if err != nil {
		return nil, "", fmt.Errorf("family path: %w", err)
	}

	tree := familytree.New(store, file, logger)
	tree.Load()
	return tree, abs, nil
}

// openIndex returns nil when the index is disabled. The result is typed as
// the interface so a disabled index is a true nil for the service.
func openIndex(cfg *Config) (index.PeopleIndex, error) {
	if !cfg.Index.Enabled {
		return nil, nil
	}
	if dir := filepath.Dir(cfg.Index.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create index dir: %w", err)
		}
	}
	db, err := index.Open(cfg.Index.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}
	return db, nil
}

func watchFamilyFile(ctx context.Context, path string, svc *familyservice.Service, logger *slog.Logger) error {
	return index.Watch(ctx, path, logger, func(ctx context.Context) {
		if err := svc.ReloadIfChanged(ctx); err != nil {
			logger.Warn("reload failed", slog.String("error", err.Error()))
		}
	})
}

// newHTTPHandler builds the root router: health probes plus the API under /api.
func newHTTPHandler(svc *familyservice.Service, broker *sse.Broker, cfg *Config) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", health)
	r.Get("/health/ready", health)

	var events http.Handler
	if broker != nil {
		events = broker
	}
	r.Mount("/api", api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, events))

	return r
}

func health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
