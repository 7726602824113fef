// Package bootstrap wires all dependencies and starts the application:
// config, logger, document store, schema registry, runtime, and HTTP server.
package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/formbase/formbase/adapters/metrics"
	"github.com/formbase/formbase/config"
	"github.com/formbase/formbase/core/registry"
	"github.com/formbase/formbase/core/runtime"
	"github.com/formbase/formbase/core/storage"
	"github.com/formbase/formbase/web"
	"github.com/rs/zerolog"
)

// App represents the running application.
type App struct {
	Logger     zerolog.Logger
	Config     *config.Config
	Store      storage.Store
	Registry   *registry.Registry
	Runtime    *runtime.Runtime
	Metrics    *metrics.Collector
	HTTPServer *http.Server

	holder *config.Holder
}

// New creates and initializes the application from a loaded config.
func New(cfg *config.Config) (*App, error) {
	logger := setupLogger(cfg)

	store, err := openStore(cfg)
	if err != nil {
		return nil, err
	}

	// Registry is populated exactly once, before the listener accepts
	// connections. There is no runtime schema registration path.
	reg, err := BuildRegistry(cfg.Schemas.Dir)
	if err != nil {
		store.Close()
		return nil, err
	}
	logger.Info().Strs("schemas", reg.Names()).Msg("schema registry populated")

	rt := runtime.New(reg, store)

	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		collector = metrics.New()
	}

	handler := web.NewHandler(reg, rt, logger, collector)
	router := web.NewRouter(handler, logger, web.RouterConfig{
		Metrics: collector,
		CORS:    cfg.CORS.Enabled,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return &App{
		Logger:     logger,
		Config:     cfg,
		Store:      store,
		Registry:   reg,
		Runtime:    rt,
		Metrics:    collector,
		HTTPServer: server,
	}, nil
}

// NewWithHotReload creates the application from a config file and watches it
// for changes. Only logging settings apply on reload; the schema registry
// and the store binding are fixed for the process lifetime.
func NewWithHotReload(path string) (*App, error) {
	logger := setupLoggerFromEnv()

	holder, err := config.NewHolder(path, logger)
	if err != nil {
		return nil, err
	}

	app, err := New(holder.Get())
	if err != nil {
		return nil, err
	}
	app.holder = holder

	holder.OnChange(func(cfg *config.Config) {
		if level, err := zerolog.ParseLevel(cfg.Logging.Level); err == nil {
			zerolog.SetGlobalLevel(level)
		}
	})

	if err := holder.WatchFile(); err != nil {
		app.Logger.Warn().Err(err).Msg("config file watch unavailable")
	}
	holder.WatchSignals()

	return app, nil
}

// Run starts the HTTP server and blocks until SIGINT/SIGTERM, then shuts
// down gracefully.
func (a *App) Run() error {
	errCh := make(chan error, 1)

	go func() {
		a.Logger.Info().Str("addr", a.HTTPServer.Addr).Msg("http server listening")
		if err := a.HTTPServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case sig := <-sigCh:
		a.Logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.HTTPServer.Shutdown(ctx); err != nil {
		a.Logger.Error().Err(err).Msg("shutdown incomplete")
	}

	return a.Close()
}

// Close releases resources without serving.
func (a *App) Close() error {
	if a.holder != nil {
		a.holder.Stop()
	}
	return a.Store.Close()
}

// openStore opens the configured document store backend.
func openStore(cfg *config.Config) (storage.Store, error) {
	switch cfg.Database.Driver {
	case "memory":
		return storage.NewMemoryStore(), nil
	default:
		store, err := storage.NewSQLiteStore(cfg.Database.DSN)
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		return store, nil
	}
}

// setupLogger configures zerolog from the loaded config.
func setupLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Logging.Format == "console" {
		output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		return zerolog.New(output).With().Timestamp().Logger()
	}

	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// setupLoggerFromEnv builds a logger before config is available, from the
// same env vars the config layer honors.
func setupLoggerFromEnv() zerolog.Logger {
	levelStr := os.Getenv(config.EnvLogLevel)
	if levelStr == "" {
		levelStr = "info"
	}

	level, err := zerolog.ParseLevel(levelStr)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if os.Getenv(config.EnvLogFormat) == "console" {
		output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		return zerolog.New(output).With().Timestamp().Logger()
	}

	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}
