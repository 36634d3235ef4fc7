package aggregator

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopscope/shopscope/pkg/domain"
	"github.com/shopscope/shopscope/pkg/source"
)

type fakeAdapter struct {
	name  string
	items []domain.Item
	err   error
	delay time.Duration
	calls atomic.Int64
}

func (f *fakeAdapter) Name() string { return f.name }

func (f *fakeAdapter) Search(ctx context.Context, _ string, _ domain.Filters, _ int) ([]domain.Item, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.items, f.err
}

func newAggregator(t *testing.T, adapters ...*fakeAdapter) (*Aggregator, *source.Cache) {
	t.Helper()
	registry := source.NewRegistry()
	for _, a := range adapters {
		registry.Register(a, time.Hour)
	}
	cache := source.NewCache()
	agg := New(Config{
		Registry:         registry,
		Cache:            cache,
		Limiter:          source.NewLimiter(0, 0),
		PerSourceTimeout: 2 * time.Second,
		PerSourceLimit:   10,
	})
	return agg, cache
}

func TestAggregateMergesSources(t *testing.T) {
	a1 := &fakeAdapter{name: "amazon", items: []domain.Item{
		{Title: "Jacket A", URL: "http://a/1", Site: "amazon"},
		{Title: "Jacket B", URL: "http://a/2", Site: "amazon"},
	}}
	a2 := &fakeAdapter{name: "ebay", items: []domain.Item{
		{Title: "Jacket C", URL: "http://e/1", Site: "ebay"},
	}}

	agg, _ := newAggregator(t, a1, a2)
	items, failures := agg.Aggregate(context.Background(), "jacket", domain.Filters{}, 10)
	assert.Empty(t, failures)
	assert.Len(t, items, 3)
}

func TestAggregateOneSourceFailing(t *testing.T) {
	a1 := &fakeAdapter{name: "amazon", items: []domain.Item{
		{Title: "Jacket A", URL: "http://a/1", Site: "amazon"},
	}}
	a2 := &fakeAdapter{name: "ebay", err: errors.New("connection refused")}
	a3 := &fakeAdapter{name: "etsy", items: []domain.Item{
		{Title: "Jacket C", URL: "http://et/1", Site: "etsy"},
	}}

	agg, _ := newAggregator(t, a1, a2, a3)
	items, failures := agg.Aggregate(context.Background(), "jacket", domain.Filters{}, 10)

	assert.Len(t, items, 2, "healthy sources still answer")
	require.Len(t, failures, 1)
	assert.Contains(t, failures["ebay"].Error(), "connection refused")
}

func TestAggregateDeduplicatesByURL(t *testing.T) {
	shared := domain.Item{Title: "Same Jacket", URL: "http://shop/1"}
	a1 := &fakeAdapter{name: "amazon", items: []domain.Item{shared}}
	a2 := &fakeAdapter{name: "ebay", items: []domain.Item{shared}}

	agg, _ := newAggregator(t, a1, a2)
	items, failures := agg.Aggregate(context.Background(), "jacket", domain.Filters{}, 10)
	assert.Empty(t, failures)
	assert.Len(t, items, 1)
}

func TestAggregateUsesCache(t *testing.T) {
	a1 := &fakeAdapter{name: "amazon", items: []domain.Item{
		{Title: "Jacket A", URL: "http://a/1", Site: "amazon"},
	}}

	agg, _ := newAggregator(t, a1)
	_, failures := agg.Aggregate(context.Background(), "jacket", domain.Filters{}, 10)
	require.Empty(t, failures)
	items, failures := agg.Aggregate(context.Background(), "jacket", domain.Filters{}, 10)
	require.Empty(t, failures)

	assert.Len(t, items, 1)
	assert.Equal(t, int64(1), a1.calls.Load(), "second search served from cache")
}

func TestAggregateCanceledContext(t *testing.T) {
	fast := &fakeAdapter{name: "amazon", items: []domain.Item{
		{Title: "Jacket A", URL: "http://a/1", Site: "amazon"},
	}}
	slow := &fakeAdapter{name: "ebay", delay: 5 * time.Second}

	agg, _ := newAggregator(t, fast, slow)
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	items, failures := agg.Aggregate(ctx, "jacket", domain.Filters{}, 10)
	assert.Less(t, time.Since(start), 2*time.Second, "does not wait for the slow source")

	assert.Len(t, items, 1)
	require.Contains(t, failures, "ebay")
	assert.ErrorIs(t, failures["ebay"], context.DeadlineExceeded)
}

func TestAggregateLimit(t *testing.T) {
	a1 := &fakeAdapter{name: "amazon", items: []domain.Item{
		{Title: "A", URL: "http://a/1"},
		{Title: "B", URL: "http://a/2"},
		{Title: "C", URL: "http://a/3"},
	}}

	agg, _ := newAggregator(t, a1)
	items, _ := agg.Aggregate(context.Background(), "jacket", domain.Filters{}, 2)
	assert.Len(t, items, 2)
}

func TestAggregateStampsSite(t *testing.T) {
	a1 := &fakeAdapter{name: "amazon", items: []domain.Item{
		{Title: "A", URL: "http://a/1"}, // adapter forgot to set Site
	}}

	agg, _ := newAggregator(t, a1)
	items, _ := agg.Aggregate(context.Background(), "jacket", domain.Filters{}, 10)
	require.Len(t, items, 1)
	assert.Equal(t, "amazon", items[0].Site)
}

func TestAggregateNoSources(t *testing.T) {
	agg, _ := newAggregator(t)
	items, failures := agg.Aggregate(context.Background(), "jacket", domain.Filters{}, 10)
	assert.Empty(t, items)
	assert.Empty(t, failures)
}
