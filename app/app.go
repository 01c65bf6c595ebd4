// Package app wires the configured components into a running service.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/jonwraymond/filmjoin/cache"
	"github.com/jonwraymond/filmjoin/catalog"
	"github.com/jonwraymond/filmjoin/config"
	"github.com/jonwraymond/filmjoin/health"
	"github.com/jonwraymond/filmjoin/observe"
	"github.com/jonwraymond/filmjoin/resilience"
	"github.com/jonwraymond/filmjoin/server"
	"github.com/jonwraymond/filmjoin/upstream"
)

// App owns every long-lived component. Build one per process with New and
// release it with Close.
type App struct {
	Config   config.Config
	Observer observe.Observer
	Client   *upstream.Client
	Cache    *cache.ResponseCache
	Catalog  *catalog.Service
	Health   *health.Aggregator
	Server   *server.Server

	logger observe.Logger
}

// New builds the component graph from cfg.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	obs, err := observe.NewObserver(ctx, cfg.Observe)
	if err != nil {
		return nil, fmt.Errorf("app: observer: %w", err)
	}

	a, err := build(cfg, obs)
	if err != nil {
		_ = obs.Shutdown(ctx)
		return nil, err
	}
	return a, nil
}

func build(cfg config.Config, obs observe.Observer) (*App, error) {
	mw, err := observe.MiddlewareFromObserver(obs)
	if err != nil {
		return nil, fmt.Errorf("app: middleware: %w", err)
	}
	logger := obs.Logger()

	client, err := upstream.New(cfg.Upstream, upstream.WithMiddleware(mw))
	if err != nil {
		return nil, fmt.Errorf("app: upstream: %w", err)
	}

	rc, err := cache.New(client, cfg.Cache,
		cache.WithExecutor(resilience.NewExecutorFromPolicy(withBreakerLogging(cfg.Resilience, logger))),
		cache.WithLogger(logger.With(observe.F("component", "cache"))),
		cache.WithMetrics(mw.Metrics()),
	)
	if err != nil {
		return nil, fmt.Errorf("app: cache: %w", err)
	}

	svc, err := catalog.New(rc,
		catalog.WithExtractor(cfg.Extract.Extractor()),
		catalog.WithMiddleware(mw),
	)
	if err != nil {
		return nil, fmt.Errorf("app: catalog: %w", err)
	}

	agg := health.NewAggregator(health.DefaultTimeout)
	agg.Register(health.NewPingChecker("upstream", client, cfg.Upstream.Timeout/2))
	agg.Register(health.NewCacheChecker(rc))

	opts := []server.Option{server.WithMiddleware(mw), server.WithHealth(agg)}
	if cfg.Observe.Metrics.Enabled && cfg.Observe.Metrics.Exporter == "prometheus" {
		opts = append(opts, server.WithPrometheus())
	}

	return &App{
		Config:   cfg,
		Observer: obs,
		Client:   client,
		Cache:    rc,
		Catalog:  svc,
		Health:   agg,
		Server:   server.New(svc, opts...),
		logger:   logger,
	}, nil
}

// withBreakerLogging logs circuit transitions when a breaker is configured.
func withBreakerLogging(p resilience.Policy, logger observe.Logger) resilience.Policy {
	if p.Circuit == nil {
		return p
	}
	circuit := *p.Circuit
	circuit.OnStateChange = func(from, to resilience.State) {
		logger.Warn(context.Background(), "upstream circuit changed state",
			observe.F("from", from.String()),
			observe.F("to", to.String()),
		)
	}
	p.Circuit = &circuit
	return p
}

// Serve listens on the configured address until ctx is done, then shuts the
// HTTP server down gracefully.
func (a *App) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.Config.Server.Addr)
	if err != nil {
		return fmt.Errorf("app: listen: %w", err)
	}
	return a.ServeListener(ctx, ln)
}

// ServeListener serves on ln until ctx is done.
func (a *App) ServeListener(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           a.Server.Handler(),
		ReadHeaderTimeout: a.Config.Server.ReadTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info(ctx, "listening", observe.F("addr", ln.Addr().String()))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.Config.Server.ShutdownTimeout)
	defer cancel()
	a.logger.Info(ctx, "shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("app: shutdown: %w", err)
	}
	return nil
}

// Close flushes telemetry.
func (a *App) Close(ctx context.Context) error {
	return a.Observer.Shutdown(ctx)
}
