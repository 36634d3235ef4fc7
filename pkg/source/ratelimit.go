package source

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter enforces a minimum wall-clock interval between consecutive
// outbound requests to the same source, with optional random jitter on top.
// Sources never block each other, only themselves.
type Limiter struct {
	interval time.Duration
	jitter   time.Duration

	mu       sync.Mutex
	limiters map[string]*rate.Limiter

	sleep func(ctx context.Context, d time.Duration) error // test hook
}

// NewLimiter creates a per-source limiter with the given base interval and jitter
func NewLimiter(interval, jitter time.Duration) *Limiter {
	return &Limiter{
		interval: interval,
		jitter:   jitter,
		limiters: make(map[string]*rate.Limiter),
		sleep:    sleepCtx,
	}
}

// Wait blocks until a request to the source is allowed, or the context ends.
// The first request per source goes through immediately.
func (l *Limiter) Wait(ctx context.Context, sourceName string) error {
	if l.interval <= 0 {
		return nil
	}

	l.mu.Lock()
	lim, ok := l.limiters[sourceName]
	if !ok {
		lim = rate.NewLimiter(rate.Every(l.interval), 1)
		l.limiters[sourceName] = lim
	}
	l.mu.Unlock()

	if err := lim.Wait(ctx); err != nil {
		return err
	}

	if l.jitter > 0 {
		return l.sleep(ctx, time.Duration(rand.Int63n(int64(l.jitter)))) //nolint:gosec // jitter, not crypto
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
