package cache

import (
	"fmt"

	"github.com/tledoux/spar-mets-viewer/errors"
)

// DefaultMaxSize is the number of label results kept by default.
const DefaultMaxSize = 128

// Config contains configuration for cache creation.
type Config struct {
	// Enabled determines if caching is enabled.
	Enabled bool `json:"enabled" yaml:"enabled" env:"ENABLED"`

	// MaxSize is the maximum number of entries kept by the LRU cache.
	MaxSize int `json:"max_size" yaml:"max_size" env:"MAX_SIZE"`
}

// DefaultConfig returns a default cache configuration.
func DefaultConfig() Config {
	return Config{
		Enabled: true,
		MaxSize: DefaultMaxSize,
	}
}

// Validate checks if the configuration is valid.
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.MaxSize <= 0 {
		return errors.WrapInvalid(errors.ErrInvalidData, "cache", "Validate",
			fmt.Sprintf("max_size must be positive, got %d", c.MaxSize))
	}
	return nil
}

// NewFromConfig creates a cache based on the provided configuration.
// Returns a no-op cache if config.Enabled is false.
func NewFromConfig[V any](config Config, options ...Option[V]) (Cache[V], error) {
	if err := config.Validate(); err != nil {
		return nil, errors.WrapInvalid(err, "cache", "NewFromConfig", "config validation")
	}
	if !config.Enabled {
		return NewNoop[V](), nil
	}
	return NewLRU[V](config.MaxSize, options...)
}

// NewLRU creates a new LRU cache with the specified maximum size.
func NewLRU[V any](maxSize int, options ...Option[V]) (Cache[V], error) {
	if maxSize <= 0 {
		return nil, errors.WrapInvalid(errors.ErrInvalidData, "cache", "NewLRU",
			fmt.Sprintf("max_size must be positive, got %d", maxSize))
	}
	return newLRUCache[V](maxSize, applyOptions(options...))
}

// NewNoop creates a cache that never stores anything.
func NewNoop[V any]() Cache[V] {
	return &noopCache[V]{}
}

type noopCache[V any] struct{}

func (c *noopCache[V]) Get(_ string) (V, bool) {
	var zero V
	return zero, false
}

func (c *noopCache[V]) Set(_ string, _ V) (bool, error) { return false, nil }
func (c *noopCache[V]) Delete(_ string) (bool, error)   { return false, nil }
func (c *noopCache[V]) Clear() error                    { return nil }
func (c *noopCache[V]) Size() int                       { return 0 }
func (c *noopCache[V]) Keys() []string                  { return nil }
func (c *noopCache[V]) Stats() *Statistics              { return nil }
func (c *noopCache[V]) Close() error                    { return nil }

func wrapMetricsErr(err error, method string) error {
	return errors.WrapTransient(err, "cache", method, "metrics registration")
}
