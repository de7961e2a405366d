package cache

import (
	"container/list"
	"sync"
)

type lruEntry[V any] struct {
	key   string
	value V
}

// lruCache evicts the least recently used entry once maxSize is exceeded.
type lruCache[V any] struct {
	mu      sync.Mutex
	maxSize int
	items   map[string]*list.Element
	order   *list.List // front = most recently used
	stats   *Statistics
	metrics *cacheMetrics
	evictFn EvictCallback[V]
}

func newLRUCache[V any](maxSize int, opts *cacheOptions[V]) (*lruCache[V], error) {
	var metrics *cacheMetrics
	if opts.metricsReg != nil && opts.metricsPrefix != "" {
		var err error
		metrics, err = newCacheMetrics(opts.metricsReg, opts.metricsPrefix)
		if err != nil {
			return nil, wrapMetricsErr(err, "newLRUCache")
		}
	}

	return &lruCache[V]{
		maxSize: maxSize,
		items:   make(map[string]*list.Element),
		order:   list.New(),
		stats:   NewStatistics(),
		metrics: metrics,
		evictFn: opts.evictCallback,
	}, nil
}

// Get retrieves a value by key and marks it as recently used.
func (c *lruCache[V]) Get(key string) (V, bool) {
	var value V

	c.mu.Lock()
	element, exists := c.items[key]
	if exists {
		c.order.MoveToFront(element)
		value = element.Value.(*lruEntry[V]).value
	}
	c.mu.Unlock()

	if !exists {
		c.stats.misses.Add(1)
		if c.metrics != nil {
			c.metrics.misses.Inc()
		}
		return value, false
	}

	c.stats.hits.Add(1)
	if c.metrics != nil {
		c.metrics.hits.Inc()
	}
	return value, true
}

// Set stores a value with the given key and marks it as recently used.
func (c *lruCache[V]) Set(key string, value V) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}

	var evicted *lruEntry[V]

	c.mu.Lock()
	element, exists := c.items[key]
	if exists {
		element.Value.(*lruEntry[V]).value = value
		c.order.MoveToFront(element)
	} else {
		c.items[key] = c.order.PushFront(&lruEntry[V]{key: key, value: value})
		if len(c.items) > c.maxSize {
			evicted = c.removeOldestLocked()
		}
	}
	size := len(c.items)
	c.mu.Unlock()

	c.stats.sets.Add(1)
	c.stats.currentSize.Store(int64(size))
	if c.metrics != nil {
		c.metrics.sets.Inc()
		c.metrics.size.Set(float64(size))
	}

	if evicted != nil {
		c.stats.evictions.Add(1)
		if c.metrics != nil {
			c.metrics.evictions.Inc()
		}
		// Callbacks run outside the lock so they may call back into the cache.
		if c.evictFn != nil {
			c.evictFn(evicted.key, evicted.value)
		}
	}

	return !exists, nil
}

// Delete removes an entry by key.
func (c *lruCache[V]) Delete(key string) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}

	c.mu.Lock()
	element, exists := c.items[key]
	if !exists {
		c.mu.Unlock()
		return false, nil
	}
	entry := c.removeLocked(element)
	size := len(c.items)
	c.mu.Unlock()

	c.stats.deletes.Add(1)
	c.stats.currentSize.Store(int64(size))
	if c.metrics != nil {
		c.metrics.size.Set(float64(size))
	}
	if c.evictFn != nil {
		c.evictFn(entry.key, entry.value)
	}
	return true, nil
}

// Clear removes all entries from the cache.
func (c *lruCache[V]) Clear() error {
	var removed []*lruEntry[V]

	c.mu.Lock()
	if c.evictFn != nil {
		removed = make([]*lruEntry[V], 0, len(c.items))
		for element := c.order.Back(); element != nil; element = element.Prev() {
			removed = append(removed, element.Value.(*lruEntry[V]))
		}
	}
	c.items = make(map[string]*list.Element)
	c.order.Init()
	c.mu.Unlock()

	c.stats.currentSize.Store(0)
	if c.metrics != nil {
		c.metrics.size.Set(0)
	}
	for _, entry := range removed {
		c.evictFn(entry.key, entry.value)
	}
	return nil
}

// Size returns the current number of entries in the cache.
func (c *lruCache[V]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Keys returns keys in LRU order, most recently used first.
func (c *lruCache[V]) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]string, 0, len(c.items))
	for element := c.order.Front(); element != nil; element = element.Next() {
		keys = append(keys, element.Value.(*lruEntry[V]).key)
	}
	return keys
}

// Stats returns cache statistics.
func (c *lruCache[V]) Stats() *Statistics {
	return c.stats
}

// Close unregisters the cache metrics. The cache stays usable.
func (c *lruCache[V]) Close() error {
	if c.metrics != nil {
		c.metrics.unregister()
	}
	return nil
}

// Must be called with mu held.
func (c *lruCache[V]) removeOldestLocked() *lruEntry[V] {
	element := c.order.Back()
	if element == nil {
		return nil
	}
	return c.removeLocked(element)
}

// Must be called with mu held.
func (c *lruCache[V]) removeLocked(element *list.Element) *lruEntry[V] {
	entry := element.Value.(*lruEntry[V])
	delete(c.items, entry.key)
	c.order.Remove(element)
	return entry
}
