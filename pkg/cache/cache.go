// Package cache provides generic, thread-safe caches used to memoize label
// lookups. Two implementations are offered: an LRU cache bounded by entry count
// and a no-op cache used when caching is disabled by configuration.
//
// Statistics are always collected. Prometheus export is optional via WithMetrics.
package cache

import (
	"github.com/tledoux/spar-mets-viewer/errors"
)

// Cache represents a generic cache interface that all cache implementations must satisfy.
type Cache[V any] interface {
	// Get retrieves a value by key. Returns the value and true if found.
	Get(key string) (V, bool)

	// Set stores a value with the given key. Returns true if a new entry was created.
	Set(key string, value V) (bool, error)

	// Delete removes an entry by key. Returns true if the key existed.
	Delete(key string) (bool, error)

	// Clear removes all entries from the cache.
	Clear() error

	// Size returns the current number of entries in the cache.
	Size() int

	// Keys returns all keys currently in the cache.
	Keys() []string

	// Stats returns cache statistics, nil for the no-op cache.
	Stats() *Statistics

	// Close releases any resources held by the cache.
	Close() error
}

// EvictCallback is called when an entry is evicted from the cache.
type EvictCallback[V any] func(key string, value V)

func validateKey(key string) error {
	if key == "" {
		return errors.WrapInvalid(errors.ErrInvalidData, "cache", "validateKey", "key cannot be empty")
	}
	return nil
}
