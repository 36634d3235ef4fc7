package source

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopscope/shopscope/pkg/domain"
)

// Adapter is the single capability every external source implements.
// An adapter performs one search attempt and either returns items or fails;
// retries, caching and pacing are the orchestrator's concern.
type Adapter interface {
	Name() string
	Search(ctx context.Context, terms string, filters domain.Filters, limit int) ([]domain.Item, error)
}

// Registry keeps the configured adapters keyed by source name, with a
// per-source cache TTL. Safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
	ttls     map[string]time.Duration
}

// NewRegistry creates an empty adapter registry
func NewRegistry() *Registry {
	return &Registry{
		adapters: make(map[string]Adapter),
		ttls:     make(map[string]time.Duration),
	}
}

// Register adds an adapter under its own name with the given cache TTL
func (r *Registry) Register(a Adapter, cacheTTL time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[a.Name()] = a
	r.ttls[a.Name()] = cacheTTL
}

// Get returns the adapter for a source name
func (r *Registry) Get(name string) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[name]
	if !ok {
		return nil, fmt.Errorf("unknown source %q", name)
	}
	return a, nil
}

// TTL returns the cache TTL configured for a source, zero when unknown
func (r *Registry) TTL(name string) time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ttls[name]
}

// Names returns all registered source names, sorted for determinism
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
