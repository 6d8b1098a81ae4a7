package app

import (
	"context"
	"fmt"
	"io"
	"log"

	"appforge/internal/cache/compiled"
	"appforge/internal/gateway/config"
	"appforge/internal/gateway/handler/api"
	"appforge/internal/gateway/run"
	"appforge/internal/gateway/server"
	"appforge/internal/llm"
	"appforge/internal/runner"
)

type App struct {
	server    *server.Server
	providers *llm.Registry
	stores    *gatewayStores
	logger    *log.Logger
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger := log.Default()

	// Providers
	catalog := llm.DefaultCatalog()
	if cfg.ProviderCatalog != "" {
		catalog, err = llm.LoadCatalog(cfg.ProviderCatalog)
		if err != nil {
			return nil, err
		}
	}
	providers, err := catalog.Build(ctx, logger)
	if err != nil {
		return nil, err
	}

	// Stores & caches
	stores := initStores(cfg, logger)
	cache := compiled.New(compiled.DefaultCacheConfig())

	// Run service
	interp := runner.New(providers, logger)
	traces := run.NewTraceLogger(cfg.TraceDir)
	runSvc := run.New(stores.apps, cache, interp, traces, logger)

	// Routing & Server
	h := api.New(stores.apps, stores.artifact, cache, runSvc, providers, logger)
	mux := server.NewMux(h)
	srv := server.New(cfg.Port, mux)

	return &App{
		server:    srv,
		providers: providers,
		stores:    stores,
		logger:    logger,
	}, nil
}

func (a *App) Start() error {
	return a.server.Start()
}

func (a *App) Shutdown(ctx context.Context) error {
	return a.server.Shutdown(ctx)
}

// Close releases providers and store connections after the server has
// drained.
func (a *App) Close() error {
	var firstErr error
	if err := a.providers.Close(); err != nil {
		firstErr = err
	}
	if err := a.stores.apps.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if c, ok := a.stores.artifact.(io.Closer); ok {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
