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
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/cellcheck/internal/api"
	"github.com/starford/cellcheck/internal/index"
	"github.com/starford/cellcheck/internal/mcpserver"
	"github.com/starford/cellcheck/internal/noteservice"
	"github.com/starford/cellcheck/internal/sse"
	"github.com/starford/cellcheck/internal/storage"
)

var errConfigRequired = errors.New("config is required")

// vault bundles the storage, index and service shared by every entry point.
type vault struct {
	store *storage.FS
	db    *index.DB
	svc   *noteservice.Service
}

func (v *vault) Close() error { return v.db.Close() }

// openVault prepares storage and the index and runs the startup sync.
func openVault(cfg *Config, logger *slog.Logger, svcOpts ...noteservice.Option) (*vault, error) {
	if err := os.MkdirAll(cfg.Vault.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create vault dir: %w", err)
	}
	store, err := storage.NewFS(cfg.Vault.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}

	if err := index.Sync(db, store, logger, index.SyncOptions{Repair: cfg.Checkbox.RepairOnSync}); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	opts := append([]noteservice.Option{
		noteservice.WithLogger(logger),
		noteservice.WithMaxSessions(cfg.Session.MaxOpen),
	}, svcOpts...)
	return &vault{store: store, db: db, svc: noteservice.NewService(store, db, opts...)}, nil
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// Run starts the HTTP server and the vault watcher.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	logger := newLogger(os.Stdout, cfg.App.LogLevel)
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.Bool("repair_on_sync", cfg.Checkbox.RepairOnSync),
		slog.Bool("repair_on_watch", cfg.Checkbox.RepairOnWatch),
		slog.String("log_level", cfg.App.LogLevel.String()))

	broker := sse.NewBroker(cfg.Events.Throttle)
	defer broker.Close()

	v, err := openVault(cfg, logger, noteservice.WithSessionNotify(broker.PublishSessionEvent))
	if err != nil {
		return err
	}
	defer v.Close()

	apiRouter := api.NewRouter(v.svc, logger, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

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

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Watcher: external edits are indexed, repaired when enabled, announced
	// over SSE and pushed into open sessions.
	g.Go(func() error {
		return index.Watch(gCtx, v.db, v.store, v.store.Root(), logger,
			index.SyncOptions{Repair: cfg.Checkbox.RepairOnWatch},
			func(kind, path string) {
				broker.PublishNoteEvent(kind, path)
				if kind == index.EventDeleted {
					v.svc.NotifyDeleted(path)
					return
				}
				v.svc.NotifyChanged(path)
			})
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

// errShutdown cancels the group once the server has been shut down, so the
// watcher stops too.
var errShutdown = errors.New("shutdown")

// RunMCP serves the MCP tools on stdio. Logs go to stderr because stdout
// carries the protocol.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	logger := newLogger(os.Stderr, cfg.App.LogLevel)
	slog.SetDefault(logger)

	v, err := openVault(cfg, logger)
	if err != nil {
		return err
	}
	defer v.Close()

	logger.Info("MCP server starting", slog.String("vault_path", cfg.Vault.Path))

	errCh := make(chan error, 1)
	go func() { errCh <- mcpserver.New(v.svc, app.version).ServeStdio() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return nil
	}
}
