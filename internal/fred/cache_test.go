package fred

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"macropulse/internal/pipeline"
)

// countingFetcher counts upstream calls per series id.
type countingFetcher struct {
	mu    sync.Mutex
	calls map[string]int
}

func newCountingFetcher() *countingFetcher {
	return &countingFetcher{calls: make(map[string]int)}
}

func (f *countingFetcher) Fetch(ctx context.Context, seriesID string, start, end time.Time) (pipeline.Series, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[seriesID]++
	return pipeline.Series{
		Name:     seriesID,
		SourceID: seriesID,
		Obs:      []pipeline.Observation{{Date: start, Value: pipeline.Value(float64(f.calls[seriesID]))}},
	}, nil
}

func (f *countingFetcher) count(seriesID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[seriesID]
}

func TestCache_HitWithinTTL(t *testing.T) {
	upstream := newCountingFetcher()
	cache := NewCache(upstream, time.Hour, nil)

	ctx := context.Background()
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2020, 12, 31, 0, 0, 0, 0, time.UTC)

	first, err := cache.Fetch(ctx, "FEDFUNDS", start, end)
	require.NoError(t, err)
	second, err := cache.Fetch(ctx, "FEDFUNDS", start, end)
	require.NoError(t, err)

	assert.Equal(t, 1, upstream.count("FEDFUNDS"))
	assert.Equal(t, *first.Obs[0].Value, *second.Obs[0].Value)
	assert.Equal(t, 1, cache.Len())
}

func TestCache_DistinctKeysFetchSeparately(t *testing.T) {
	upstream := newCountingFetcher()
	cache := NewCache(upstream, time.Hour, nil)

	ctx := context.Background()
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2020, 12, 31, 0, 0, 0, 0, time.UTC)

	_, err := cache.Fetch(ctx, "FEDFUNDS", start, end)
	require.NoError(t, err)
	_, err = cache.Fetch(ctx, "UNRATE", start, end)
	require.NoError(t, err)
	// Same series, different range: its own cache key.
	_, err = cache.Fetch(ctx, "FEDFUNDS", start, end.AddDate(1, 0, 0))
	require.NoError(t, err)

	assert.Equal(t, 2, upstream.count("FEDFUNDS"))
	assert.Equal(t, 1, upstream.count("UNRATE"))
	assert.Equal(t, 3, cache.Len())
}

func TestCache_ExpiryRefetches(t *testing.T) {
	upstream := newCountingFetcher()
	cache := NewCache(upstream, 10*time.Millisecond, nil)

	ctx := context.Background()
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := cache.Fetch(ctx, "CPIAUCSL", start, start)
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond)
	_, err = cache.Fetch(ctx, "CPIAUCSL", start, start)
	require.NoError(t, err)

	assert.Equal(t, 2, upstream.count("CPIAUCSL"))
}

func TestCache_DisabledByZeroTTL(t *testing.T) {
	upstream := newCountingFetcher()
	cache := NewCache(upstream, 0, nil)

	ctx := context.Background()
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		_, err := cache.Fetch(ctx, "GDPC1", start, start)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, upstream.count("GDPC1"))
	assert.Equal(t, 0, cache.Len())
}
