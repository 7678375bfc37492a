package marketdata

import (
	"context"
	"strings"
	"sync"
	"time"
)

type cacheKey struct {
	input  string
	ticker string
}

type cacheEntry struct {
	value   float64
	expires time.Time // zero means never
}

// CachingProvider memoizes successful lookups of an underlying provider.
// Failures are never cached.
type CachingProvider struct {
	inner Provider
	ttl   time.Duration
	now   func() time.Time

	mu      sync.RWMutex
	entries map[cacheKey]cacheEntry
}

// NewCachingProvider wraps inner. A ttl <= 0 keeps entries until Clear.
func NewCachingProvider(inner Provider, ttl time.Duration) *CachingProvider {
	return &CachingProvider{
		inner:   inner,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[cacheKey]cacheEntry),
	}
}

// Clear drops every cached value.
func (c *CachingProvider) Clear() {
	c.mu.Lock()
	c.entries = make(map[cacheKey]cacheEntry)
	c.mu.Unlock()
}

// Len returns the number of cached values, including expired ones not yet evicted.
func (c *CachingProvider) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *CachingProvider) CurrentPrice(ctx context.Context, ticker string) (float64, error) {
	return c.get("price", ticker, func() (float64, error) { return c.inner.CurrentPrice(ctx, ticker) })
}

func (c *CachingProvider) DividendYield(ctx context.Context, ticker string) (float64, error) {
	return c.get("dividend_yield", ticker, func() (float64, error) { return c.inner.DividendYield(ctx, ticker) })
}

func (c *CachingProvider) Volatility(ctx context.Context, ticker string) (float64, error) {
	return c.get("volatility", ticker, func() (float64, error) { return c.inner.Volatility(ctx, ticker) })
}

func (c *CachingProvider) FundingSpread(ctx context.Context, ticker string) (float64, error) {
	return c.get("funding_spread", ticker, func() (float64, error) { return c.inner.FundingSpread(ctx, ticker) })
}

func (c *CachingProvider) BenchmarkRate(ctx context.Context) (float64, error) {
	return c.get("benchmark_rate", "", func() (float64, error) { return c.inner.BenchmarkRate(ctx) })
}

func (c *CachingProvider) get(input, ticker string, fetch func() (float64, error)) (float64, error) {
	key := cacheKey{input: input, ticker: strings.ToUpper(ticker)}
	now := c.now()

	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if ok && (e.expires.IsZero() || now.Before(e.expires)) {
		return e.value, nil
	}

	v, err := fetch()
	if err != nil {
		return 0, err
	}

	e = cacheEntry{value: v}
	if c.ttl > 0 {
		e.expires = now.Add(c.ttl)
	}
	c.mu.Lock()
	c.entries[key] = e
	c.mu.Unlock()
	return v, nil
}
