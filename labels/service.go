package labels

import (
	"context"
	"log/slog"
	"time"

	"github.com/tledoux/spar-mets-viewer/errors"
	"github.com/tledoux/spar-mets-viewer/metric"
	"github.com/tledoux/spar-mets-viewer/pkg/cache"
	"github.com/tledoux/spar-mets-viewer/pkg/retry"
)

// Lookup outcomes, used as metric label values.
const (
	OutcomeFound = "found"
	OutcomeEmpty = "empty"
	OutcomeError = "error"
)

// ServiceConfig configures a Service.
type ServiceConfig struct {
	// Cache configures result memoization; the zero value disables it.
	Cache cache.Config

	// Retry schedules further attempts after transient querier errors; the
	// zero value queries once.
	Retry retry.Config

	// Source names the querier in metrics and logs (e.g. "sparql", "fixture").
	Source string

	// Registry receives the cache metrics and provides the core lookup
	// metrics. Optional.
	Registry *metric.MetricsRegistry

	Logger *slog.Logger
}

// Service memoizes label lookups of a Querier.
//
// Successful results, including empty ones, are cached under lang|identifier.
// Errors are never cached. Cached results are shared: callers must not modify
// them.
type Service struct {
	querier Querier
	retry   retry.Config
	cache   cache.Cache[*Results]
	metrics *metric.Metrics
	source  string
	logger  *slog.Logger
}

// NewService wraps querier with a cache built from cfg.
func NewService(querier Querier, cfg ServiceConfig) (*Service, error) {
	if querier == nil {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "LabelService", "New", "querier is nil")
	}

	if err := cfg.Retry.Validate(); err != nil {
		return nil, errors.Wrap(err, "LabelService", "New", "validate retry")
	}

	source := cfg.Source
	if source == "" {
		source = "default"
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "labels", "source", source)

	c, err := cache.NewFromConfig[*Results](cfg.Cache,
		cache.WithMetrics[*Results](cfg.Registry, "labels_"+source),
		cache.WithEvictionCallback(func(key string, _ *Results) {
			logger.Debug("label evicted from cache", "key", key)
		}))
	if err != nil {
		return nil, errors.Wrap(err, "LabelService", "New", "create cache")
	}

	return &Service{
		querier: querier,
		retry:   cfg.Retry,
		cache:   c,
		metrics: cfg.Registry.CoreMetrics(),
		source:  source,
		logger:  logger,
	}, nil
}

func cacheKey(identifier, lang string) string {
	return lang + "|" + identifier
}

// Lookup returns the label results for identifier in lang.
func (s *Service) Lookup(ctx context.Context, identifier, lang string) (*Results, error) {
	key := cacheKey(identifier, lang)
	if res, ok := s.cache.Get(key); ok {
		return res, nil
	}

	start := time.Now()
	attempts := 0
	res, err := retry.DoWithResult(ctx, s.retry, func(ctx context.Context) (*Results, error) {
		attempts++
		return s.querier.Label(ctx, identifier, lang)
	})
	elapsed := time.Since(start).Seconds()
	if err != nil {
		s.metrics.RecordLookup(s.source, OutcomeError, elapsed)
		s.logger.Warn("label lookup failed", "identifier", identifier, "lang", lang,
			"attempts", attempts, "error", err)
		return nil, err
	}
	if res == nil {
		res = EmptyResults()
	}

	outcome := OutcomeEmpty
	if _, ok := res.FirstLabel(); ok {
		outcome = OutcomeFound
	}
	s.metrics.RecordLookup(s.source, outcome, elapsed)
	s.logger.Debug("label lookup", "identifier", identifier, "lang", lang, "outcome", outcome)

	if _, err := s.cache.Set(key, res); err != nil {
		s.logger.Debug("label cache set failed", "key", key, "error", err)
	}
	return res, nil
}

// Label returns the first label for identifier, or false when there is none
// or the lookup failed.
func (s *Service) Label(ctx context.Context, identifier, lang string) (string, bool) {
	res, err := s.Lookup(ctx, identifier, lang)
	if err != nil {
		return "", false
	}
	return res.FirstLabel()
}

// CacheStats returns the cache statistics, nil when caching is disabled.
func (s *Service) CacheStats() *cache.Statistics {
	return s.cache.Stats()
}

// Close releases the cache and its metrics.
func (s *Service) Close() error {
	return s.cache.Close()
}
