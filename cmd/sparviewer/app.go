package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tledoux/spar-mets-viewer/config"
	"github.com/tledoux/spar-mets-viewer/decorate"
	gatewayhttp "github.com/tledoux/spar-mets-viewer/gateway/http"
	"github.com/tledoux/spar-mets-viewer/health"
	"github.com/tledoux/spar-mets-viewer/labels"
	"github.com/tledoux/spar-mets-viewer/metric"
)

// app holds the wired viewer components.
type app struct {
	cfg       *config.Config
	registry  *metric.MetricsRegistry
	labels    *labels.Service
	decorator *decorate.Decorator
	monitor   *health.Monitor
	server    *http.Server
	logger    *slog.Logger
}

// newQuerier picks fixture labels on the TEST platform, the SPARQL endpoint otherwise.
func newQuerier(cfg *config.Config, logger *slog.Logger) (labels.Querier, string, error) {
	if cfg.IsTest() {
		return labels.FixtureQuerier{}, "fixture", nil
	}
	q, err := labels.NewSPARQLQuerier(labels.SPARQLConfig{
		Endpoint:  cfg.SPARQLEndpoint,
		Timeout:   cfg.Labels.Timeout.Std(),
		RateLimit: cfg.Labels.RateLimit,
		Burst:     cfg.Labels.Burst,
		Logger:    logger,
	})
	if err != nil {
		return nil, "", err
	}
	return q, "sparql", nil
}

func buildApp(cfg *config.Config, logger *slog.Logger) (*app, error) {
	registry := metric.NewMetricsRegistry()

	querier, source, err := newQuerier(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("create label querier: %w", err)
	}

	svc, err := labels.NewService(querier, labels.ServiceConfig{
		Cache:    cfg.Labels.Cache,
		Retry:    cfg.Labels.Retry.Schedule(),
		Source:   source,
		Registry: registry,
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create label service: %w", err)
	}

	decorator := decorate.New(decorate.ServiceSource{Service: svc}, decorate.Config{
		Workers:   cfg.Labels.Workers,
		QueueSize: cfg.Labels.QueueSize,
		Language:  cfg.Languages[0],
		Registry:  registry,
		Logger:    logger,
	})

	monitor := health.NewMonitor(appName)
	monitor.Register("labels", labelsCheck(cfg, svc, source))
	monitor.Register("decorator", decoratorCheck(decorator))

	srv, err := gatewayhttp.NewServer(gatewayhttp.Config{
		Timeout:        cfg.HTTP.Timeout.Std(),
		MaxRequestSize: cfg.HTTP.MaxRequestSize,
		MetricsPath:    cfg.MetricsPath,
		Languages:      cfg.Languages,
	}, gatewayhttp.Dependencies{
		Labels:    svc,
		Decorator: decorator,
		Monitor:   monitor,
		Registry:  registry,
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create http server: %w", err)
	}

	return &app{
		cfg:       cfg,
		registry:  registry,
		labels:    svc,
		decorator: decorator,
		monitor:   monitor,
		server: &http.Server{
			Addr:              cfg.HTTP.Addr,
			Handler:           srv.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logger,
	}, nil
}

func labelsCheck(cfg *config.Config, svc *labels.Service, source string) health.CheckFunc {
	return func(context.Context) health.Status {
		status := health.NewHealthy("labels", "serving "+source+" labels").
			WithDetail("platform", cfg.Platform).
			WithDetail("source", source).
			WithDetail("ark_download", cfg.ArkDownloadAllowed())
		if stats := svc.CacheStats(); stats != nil {
			status = status.WithDetail("cache", stats.Summary())
		}
		return status
	}
}

func decoratorCheck(d *decorate.Decorator) health.CheckFunc {
	return func(context.Context) health.Status {
		stats := d.PoolStats()
		status := health.NewHealthy("decorator", "lookup pool running")
		if stats.QueueDepth >= stats.QueueSize {
			status = health.NewDegraded("decorator", "lookup queue full")
		}
		return status.WithDetail("pool", stats)
	}
}

// run serves until ctx is cancelled, then shuts down within shutdownTimeout.
// The lookup pool runs on its own context so requests still in flight when
// the signal arrives get their labels; shutdown stops it after the server.
func (a *app) run(ctx context.Context, shutdownTimeout time.Duration) error {
	if err := a.decorator.Start(context.Background()); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info("HTTP server listening", "addr", a.server.Addr, "platform", a.cfg.Platform)
		if err := a.server.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		if ctx.Err() != nil {
			a.logger.Info("Received shutdown signal")
		}
		return a.shutdown(shutdownTimeout)
	})
	return g.Wait()
}

func (a *app) shutdown(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var firstErr error
	if err := a.server.Shutdown(ctx); err != nil {
		a.logger.Error("Error stopping HTTP server", "error", err)
		firstErr = err
	}
	if err := a.decorator.Stop(time.Until(deadlineOf(ctx, timeout))); err != nil {
		a.logger.Error("Error stopping decorator", "error", err)
		if firstErr == nil {
			firstErr = err
		}
	}
	if err := a.labels.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

func deadlineOf(ctx context.Context, fallback time.Duration) time.Time {
	if deadline, ok := ctx.Deadline(); ok {
		return deadline
	}
	return time.Now().Add(fallback)
}
