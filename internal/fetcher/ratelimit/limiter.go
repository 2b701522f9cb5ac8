// Package ratelimit spaces out fetches to the same site with a token bucket
// per host.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/JakeFAU/concurrent-sentiment/internal/metrics"
)

// Fetcher is the page fetcher being limited.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Config holds the per-host budget. A non-positive RPS disables limiting.
type Config struct {
	RPS   float64
	Burst int
}

// Limiter hands out tokens per host. Each worker process has its own.
type Limiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

// New creates a Limiter.
func New(cfg Config) *Limiter {
	limit := rate.Limit(cfg.RPS)
	if cfg.RPS <= 0 {
		limit = rate.Inf
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return &Limiter{limiters: make(map[string]*rate.Limiter), limit: limit, burst: burst}
}

// Wait blocks until a request to rawURL's host may go out.
func (l *Limiter) Wait(ctx context.Context, rawURL string) error {
	site := metrics.SanitizeSite(rawURL)

	l.mu.Lock()
	lim, ok := l.limiters[site]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.limiters[site] = lim
	}
	l.mu.Unlock()

	start := time.Now()
	if err := lim.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait for %s: %w", site, err)
	}
	if d := time.Since(start); d > time.Millisecond {
		metrics.ObserveRateLimitDelay(site, d)
	}
	return nil
}

// Sites reports how many hosts have a bucket.
func (l *Limiter) Sites() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

// Limited is a Fetcher that waits on a Limiter before every fetch.
type Limited struct {
	Next    Fetcher
	Limiter *Limiter
}

// Wrap returns next unchanged when cfg disables limiting.
func Wrap(next Fetcher, cfg Config) Fetcher {
	if cfg.RPS <= 0 {
		return next
	}
	return Limited{Next: next, Limiter: New(cfg)}
}

// Fetch implements Fetcher.
func (f Limited) Fetch(ctx context.Context, url string) ([]byte, error) {
	if err := f.Limiter.Wait(ctx, url); err != nil {
		return nil, err
	}
	return f.Next.Fetch(ctx, url)
}
