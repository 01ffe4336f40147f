// Package app is the composition root: it wires the configured fork
// backends into the two simulation engines, the HTTP API, and metrics
// collection, and exposes the result through fx for cmd/simulator.
package app

import (
	"context"
	"log"
	"net/http"

	"github.com/mev-engine/tx-simulator/internal/api"
	"github.com/mev-engine/tx-simulator/internal/config"
	"github.com/mev-engine/tx-simulator/pkg/engine"
	"github.com/mev-engine/tx-simulator/pkg/forkclient"
	"github.com/mev-engine/tx-simulator/pkg/metadata"
	"github.com/mev-engine/tx-simulator/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
)

const recentBufferSize = 100

// Application owns the fork backends and the HTTP server built over
// them. NewApplication always constructs both backends and both
// engines, whether or not each fork was reachable at startup.
type Application struct {
	config *config.Config

	evmBackend     *forkclient.EVMBackend
	runtimeBackend *forkclient.RuntimeBackend

	server *api.Server
}

// NewApplication connects the configured fork backends and builds the
// engines, handlers, and API server over them. Connection failures are
// logged, not fatal: a backend that can't be reached at startup stays
// configured but reports "unreachable" from /health; nothing reconnects
// it after startup, per §4.1/§4.2's fork-availability assumption.
func NewApplication(cfg *config.Config) *Application {
	a := &Application{config: cfg}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.EVM.RequestTimeout)
	defer cancel()
	a.evmBackend = forkclient.NewEVMBackend()
	if err := a.evmBackend.Connect(ctx, cfg.EVM.ForkURL); err != nil {
		log.Printf("evm backend: initial connect to %s failed: %v", cfg.EVM.ForkURL, err)
	}

	rctx, rcancel := context.WithTimeout(context.Background(), cfg.Runtime.RequestTimeout)
	defer rcancel()
	a.runtimeBackend = forkclient.NewRuntimeBackend()
	if err := a.runtimeBackend.Connect(rctx, cfg.Runtime.Endpoint); err != nil {
		log.Printf("runtime backend: initial connect to %s failed: %v", cfg.Runtime.Endpoint, err)
	}

	evmResolver := metadata.NewEVMTokenResolver(a.evmBackend)
	runtimeResolver := metadata.NewRuntimeAssetResolver(a.runtimeBackend)
	moduleResolver := metadata.StaticModuleErrorResolver{}

	evmEngine := &engine.EVMEngine{
		Backend:        a.evmBackend,
		Resolver:       evmResolver,
		Logger:         log.Default(),
		NativeSymbol:   cfg.EVM.NativeSymbol,
		NativeDecimals: cfg.EVM.NativeDecimals,
	}
	runtimeEngine := &engine.RuntimeEngine{
		Backend:        a.runtimeBackend,
		Resolver:       runtimeResolver,
		ModuleResolver: moduleResolver,
		Logger:         log.Default(),
	}

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)
	recent := api.NewRecentBuffer(recentBufferSize)
	evmHealth := &api.EngineHealth{Backend: a.evmBackend, Engine: evmEngine}
	runtimeHealth := &api.EngineHealth{Backend: a.runtimeBackend, Engine: runtimeEngine}
	handlers := api.NewHandlers(evmEngine, runtimeEngine, collector, recent, evmHealth, runtimeHealth)

	var metricsHandler http.Handler
	if cfg.Monitoring.Enabled {
		metricsHandler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	}
	a.server = api.NewServer(cfg, handlers, metricsHandler, collector)

	return a
}

// Start starts the HTTP API server and blocks until ctx is cancelled.
func (a *Application) Start(ctx context.Context) error {
	if err := a.server.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return nil
}

// Stop shuts down the HTTP API server.
func (a *Application) Stop(ctx context.Context) error {
	return a.server.Stop(ctx)
}

// Module provides the application and its lifecycle hooks to fx.
var Module = fx.Options(
	fx.Provide(NewApplication),
	fx.Invoke(func(lifecycle fx.Lifecycle, a *Application) {
		lifecycle.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				go func() {
					if err := a.Start(context.Background()); err != nil {
						log.Printf("application stopped: %v", err)
					}
				}()
				return nil
			},
			OnStop: func(ctx context.Context) error {
				return a.Stop(ctx)
			},
		})
	}),
)
