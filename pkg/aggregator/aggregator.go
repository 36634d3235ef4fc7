// Package aggregator fans a search out to every registered source,
// collects whatever comes back in time and merges the results into a
// single deduplicated listing set. One slow or broken source never
// takes the whole search down.
package aggregator

import (
	"context"
	"sort"
	"time"

	"github.com/go-pkgz/lgr"
	"golang.org/x/sync/errgroup"

	"github.com/shopscope/shopscope/pkg/domain"
	"github.com/shopscope/shopscope/pkg/scoring"
	"github.com/shopscope/shopscope/pkg/source"
)

// Aggregator queries all registered sources concurrently. Per-source
// results are cached and rate limited; the per-source timeout bounds how
// long any single source may hold the search up.
type Aggregator struct {
	registry *source.Registry
	cache    *source.Cache
	limiter  *source.Limiter

	perSourceTimeout time.Duration
	perSourceLimit   int
	maxConcurrent    int
}

// Config holds aggregator dependencies and operational parameters
type Config struct {
	Registry         *source.Registry
	Cache            *source.Cache
	Limiter          *source.Limiter
	PerSourceTimeout time.Duration
	PerSourceLimit   int
	MaxConcurrent    int
}

// New creates an aggregator from the config, applying defaults for
// unset operational parameters
func New(cfg Config) *Aggregator {
	a := &Aggregator{
		registry:         cfg.Registry,
		cache:            cfg.Cache,
		limiter:          cfg.Limiter,
		perSourceTimeout: cfg.PerSourceTimeout,
		perSourceLimit:   cfg.PerSourceLimit,
		maxConcurrent:    cfg.MaxConcurrent,
	}
	if a.perSourceTimeout <= 0 {
		a.perSourceTimeout = 30 * time.Second
	}
	if a.perSourceLimit <= 0 {
		a.perSourceLimit = 50
	}
	if a.maxConcurrent <= 0 {
		a.maxConcurrent = 8
	}
	return a
}

type sourceResult struct {
	name  string
	items []domain.Item
	err   error
}

// Aggregate runs the query against every registered source in parallel and
// merges the results, deduplicated by URL. The returned map carries one entry
// per failed source; a search succeeds as long as at least one source answers.
// When ctx ends early the sources still in flight are reported as failed and
// their late results are discarded.
func (a *Aggregator) Aggregate(ctx context.Context, query string, filters domain.Filters, limit int) ([]domain.Item, map[string]error) {
	names := a.registry.Names()
	failures := make(map[string]error)
	if len(names) == 0 {
		return nil, failures
	}

	// buffered so abandoned workers can still send and exit
	results := make(chan sourceResult, len(names))
	var g errgroup.Group
	g.SetLimit(a.maxConcurrent)
	for _, name := range names {
		g.Go(func() error {
			items, err := a.searchSource(ctx, name, query, filters)
			results <- sourceResult{name: name, items: items, err: err}
			return nil
		})
	}
	go func() {
		_ = g.Wait() // workers never return errors, failures travel in results
		close(results)
	}()

	var merged []domain.Item
	pending := make(map[string]bool, len(names))
	for _, name := range names {
		pending[name] = true
	}

collect:
	for range names {
		select {
		case res := <-results:
			delete(pending, res.name)
			if res.err != nil {
				lgr.Printf("[WARN] source %s failed: %v", res.name, res.err)
				failures[res.name] = res.err
				continue
			}
			merged = append(merged, res.items...)
		case <-ctx.Done():
			break collect
		}
	}

	if len(pending) > 0 && ctx.Err() != nil {
		stuck := make([]string, 0, len(pending))
		for name := range pending {
			stuck = append(stuck, name)
		}
		sort.Strings(stuck)
		for _, name := range stuck {
			lgr.Printf("[WARN] source %s did not answer in time: %v", name, ctx.Err())
			failures[name] = ctx.Err()
		}
	}

	merged = scoring.DedupeByURL(merged)
	if limit > 0 && len(merged) > limit {
		merged = merged[:limit]
	}
	return merged, failures
}

// searchSource runs one source query: cache first, then the adapter behind
// the rate limiter. The adapter call is detached from the caller context so a
// fetch that completes after the caller gave up still lands in the cache.
func (a *Aggregator) searchSource(ctx context.Context, name, query string, filters domain.Filters) ([]domain.Item, error) {
	if items, ok := a.cache.Get(name, query, a.perSourceLimit); ok {
		lgr.Printf("[DEBUG] cache hit for %s query %q", name, query)
		return items, nil
	}

	adapter, err := a.registry.Get(name)
	if err != nil {
		return nil, err
	}

	if err := a.limiter.Wait(ctx, name); err != nil {
		return nil, err
	}

	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.perSourceTimeout)
	defer cancel()

	items, err := adapter.Search(sctx, query, filters, a.perSourceLimit)
	if err != nil {
		return nil, err
	}

	for i := range items {
		if items[i].Site == "" {
			items[i].Site = name
		}
		items[i].Normalize()
	}

	a.cache.Set(name, query, a.perSourceLimit, items, a.registry.TTL(name))
	lgr.Printf("[DEBUG] source %s returned %d items for %q", name, len(items), query)
	return items, nil
}
