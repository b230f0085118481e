// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/wingedpig/gemini-desktop/internal/acp"
	"github.com/wingedpig/gemini-desktop/internal/api"
	"github.com/wingedpig/gemini-desktop/internal/config"
	"github.com/wingedpig/gemini-desktop/internal/events"
	"github.com/wingedpig/gemini-desktop/internal/project"
)

// App is the main application container: it owns the project registry,
// session manager, event bus, and API server for the lifetime of one
// process (C8's host).
type App struct {
	configPath string
	version    string
	config     *config.Config

	eventBus    events.EventBus
	natsBridge  *events.NATSBridge
	registry    *project.Registry
	manager     *acp.Manager
	rotation    *acp.RotationScheduler
	watcher     *config.Watcher
	apiServer   *api.Server
	tracingStop func(context.Context) error

	done     chan struct{}
	stopOnce sync.Once
}

// Options holds configuration options for the app.
type Options struct {
	ConfigPath string
	Host       string
	Port       int
	Debug      bool
	Version    string
}

// New loads configuration and constructs the project registry, event bus,
// and session manager. It does not yet start the HTTP server or any
// background watchers; call Initialize then Start (or Run for both plus
// the signal-driven shutdown wait).
func New(opts Options) (*App, error) {
	app := &App{
		configPath: opts.ConfigPath,
		version:    opts.Version,
		done:       make(chan struct{}),
	}

	loader := config.NewLoader()
	cfg, err := loader.LoadWithDefaults(context.Background(), opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if opts.Host != "" {
		cfg.Server.Host = opts.Host
	}
	if opts.Port > 0 {
		cfg.Server.Port = opts.Port
	}
	app.config = cfg

	bus := events.NewMemoryEventBus(events.MemoryBusConfig{
		HistoryMaxEvents: cfg.Events.History.MaxEvents,
		HistoryMaxAge:    config.ParseDuration(cfg.Events.History.MaxAge, time.Hour),
	})
	app.eventBus = bus

	if cfg.Events.NATS.Enabled {
		bridge, err := events.NewNATSBridge(bus, cfg.Events.NATS.URL, cfg.Events.NATS.SubjectPrefix)
		if err != nil {
			log.Printf("Warning: failed to connect NATS event bridge: %v", err)
		} else {
			app.natsBridge = bridge
			app.eventBus = bridge
		}
	}

	app.registry = project.NewRegistry(cfg.Storage.Home, config.ParseDuration(cfg.Storage.TouchMinInterval, time.Second))
	app.manager = acp.NewManager(app.registry, acp.NewBusSink(app.eventBus), acp.NewOSProcessKiller())

	return app, nil
}

// Initialize wires tracing, the rotation scheduler, config hot-reload, and
// the API server. Separated from New so a caller can inspect/adjust the
// loaded config before committing to background goroutines.
func (app *App) Initialize(ctx context.Context) error {
	cfg := app.config

	stop, err := acp.InitTracing(ctx, acp.TracingConfig{
		Enabled:      cfg.Tracing.Enabled,
		ServiceName:  orDefault(cfg.Tracing.ServiceName, "gemini-desktop-acp-core"),
		OTLPEndpoint: cfg.Tracing.OTLPEndpoint,
		Insecure:     cfg.Tracing.Insecure,
	})
	if err != nil {
		log.Printf("Warning: failed to initialize tracing: %v", err)
		stop = func(context.Context) error { return nil }
	}
	app.tracingStop = stop

	app.rotation = acp.StartRotationScheduler(app.registry, config.ParseDuration(cfg.Storage.LogMaxAge, 0))

	if app.configPath != "" {
		watcher, err := config.NewWatcher(app.configPath, app.onConfigReload)
		if err != nil {
			log.Printf("Warning: failed to start config watcher: %v", err)
		} else {
			app.watcher = watcher
		}
	}

	app.apiServer = api.NewServer(
		api.ServerConfig{
			Host:    cfg.Server.Host,
			Port:    cfg.Server.Port,
			TLSCert: cfg.Server.TLSCert,
			TLSKey:  cfg.Server.TLSKey,
		},
		api.Dependencies{
			Manager:  app.manager,
			Registry: app.registry,
			EventBus: app.eventBus,
			Version:  app.version,
		},
	)

	return nil
}

// onConfigReload is invoked by the config.Watcher on every validated
// change to the config file. It replaces app.config only: the project
// registry, session manager, rotation scheduler, tracer and API server
// keep the settings they were built with at startup.
func (app *App) onConfigReload(cfg *config.Config) {
	app.config = cfg
	log.Printf("Config reloaded from %s", app.configPath)
}

// Start starts the API server in the background.
func (app *App) Start(ctx context.Context) error {
	go func() {
		log.Printf("Starting API server on %s:%d", app.config.Server.Host, app.config.Server.Port)
		if err := app.apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("API server error: %v", err)
		}
	}()

	return nil
}

// Run initializes and starts the app, then blocks until a shutdown signal,
// context cancellation, or explicit Stop() call, before shutting down.
func (app *App) Run(ctx context.Context) error {
	if err := app.Initialize(ctx); err != nil {
		return err
	}

	if err := app.Start(ctx); err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("Received signal %v, shutting down...", sig)
	case <-ctx.Done():
		log.Printf("Context cancelled, shutting down...")
	case <-app.done:
		log.Printf("Shutdown requested...")
	}

	return app.Shutdown(context.Background())
}

// Shutdown gracefully shuts down all components.
func (app *App) Shutdown(ctx context.Context) error {
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if app.apiServer != nil {
		if err := app.apiServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("Error shutting down API server: %v", err)
		}
	}

	if app.watcher != nil {
		app.watcher.Close()
	}

	if app.rotation != nil {
		app.rotation.Stop()
	}

	if app.tracingStop != nil {
		if err := app.tracingStop(shutdownCtx); err != nil {
			log.Printf("Error shutting down tracing: %v", err)
		}
	}

	if app.eventBus != nil {
		if err := app.eventBus.Close(); err != nil {
			log.Printf("Error closing event bus: %v", err)
		}
	}

	log.Println("Shutdown complete")
	return nil
}

// Stop signals the app to shut down. Safe to call multiple times.
func (app *App) Stop() {
	app.stopOnce.Do(func() {
		close(app.done)
	})
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
