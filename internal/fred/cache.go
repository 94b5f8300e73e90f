package fred

import (
	"context"
	"fmt"
	"sync"
	"time"

	"macropulse/internal/infrastructure"
	"macropulse/internal/pipeline"
)

// Cache is an explicit TTL cache in front of a Fetcher, keyed by
// (series id, start, end). A hit inside the freshness window returns the
// previously fetched series without touching the upstream; entries are
// evicted lazily on lookup. Safe for concurrent use.
//
// Caching here is an optimization only: the pure pipeline stages never see
// it, and correctness never depends on it.
type Cache struct {
	upstream Fetcher
	ttl      time.Duration
	metrics  *infrastructure.Metrics

	mu      sync.Mutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	series    pipeline.Series
	fetchedAt time.Time
}

// NewCache wraps upstream with a freshness window of ttl. A non-positive ttl
// disables caching entirely. metrics may be nil.
func NewCache(upstream Fetcher, ttl time.Duration, metrics *infrastructure.Metrics) *Cache {
	return &Cache{
		upstream: upstream,
		ttl:      ttl,
		metrics:  metrics,
		entries:  make(map[string]cacheEntry),
	}
}

// Fetch implements Fetcher.
func (c *Cache) Fetch(ctx context.Context, seriesID string, start, end time.Time) (pipeline.Series, error) {
	if c.ttl <= 0 {
		return c.upstream.Fetch(ctx, seriesID, start, end)
	}

	key := fmt.Sprintf("%s|%s|%s", seriesID,
		start.Format(pipeline.DateLayout), end.Format(pipeline.DateLayout))

	c.mu.Lock()
	entry, found := c.entries[key]
	if found && time.Since(entry.fetchedAt) < c.ttl {
		c.mu.Unlock()
		if c.metrics != nil {
			c.metrics.RecordCache(ctx, true)
		}
		return entry.series, nil
	}
	if found {
		delete(c.entries, key)
	}
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.RecordCache(ctx, false)
	}
	series, err := c.upstream.Fetch(ctx, seriesID, start, end)
	if err != nil {
		return pipeline.Series{}, err
	}

	c.mu.Lock()
	c.entries[key] = cacheEntry{series: series, fetchedAt: time.Now()}
	c.mu.Unlock()
	return series, nil
}

// Len reports the number of cached entries, fresh or stale.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
