package pricing

import (
	"sync"
	"time"

	"github.com/Alex41970/tradehaven-webtrader-sub001/internal/types"
)

// Quote is the last known bid/ask for a symbol. Quotes arrive from the feed
// relay and may be stale; consumers decide via the cache's max age.
type Quote struct {
	Bid       float64
	Ask       float64
	UpdatedAt time.Time
}

// MarkFor returns the price a position of the given direction would close at:
// longs close at the bid, shorts at the ask.
func (q Quote) MarkFor(direction types.TradeDirection) float64 {
	if direction == types.DirectionShort {
		return q.Ask
	}
	return q.Bid
}

// Source is the read-only price lookup consumed by the reconciliation
// engines. A missing or stale symbol returns ok=false and must not be
// treated as an error by callers.
type Source interface {
	Quote(symbol string) (Quote, bool)
}

// Cache is the process-wide quote cache. It is populated by the feed relay
// and read concurrently by both engines and the HTTP surface.
type Cache struct {
	mu     sync.RWMutex
	maxAge time.Duration
	quotes map[string]Quote
}

func NewCache(maxAge time.Duration) *Cache {
	return &Cache{maxAge: maxAge, quotes: make(map[string]Quote)}
}

func (c *Cache) Set(symbol string, bid, ask float64) {
	if symbol == "" || bid <= 0 || ask <= 0 {
		return
	}
	c.mu.Lock()
	c.quotes[symbol] = Quote{Bid: bid, Ask: ask, UpdatedAt: time.Now().UTC()}
	c.mu.Unlock()
}

func (c *Cache) Quote(symbol string) (Quote, bool) {
	c.mu.RLock()
	q, ok := c.quotes[symbol]
	c.mu.RUnlock()
	if !ok {
		return Quote{}, false
	}
	if q.UpdatedAt.IsZero() || (c.maxAge > 0 && time.Since(q.UpdatedAt) > c.maxAge) {
		return Quote{}, false
	}
	return q, true
}

// MarkStale forces the symbol to be treated as unavailable until the next
// Set, regardless of the cache's max age. The feed relay reports it when
// the upstream connection for a symbol drops.
func (c *Cache) MarkStale(symbol string) {
	c.mu.Lock()
	if q, ok := c.quotes[symbol]; ok {
		q.UpdatedAt = time.Time{}
		c.quotes[symbol] = q
	}
	c.mu.Unlock()
}

// EvictStale drops entries older than the max age, plus anything marked
// stale, and returns how many were removed.
func (c *Cache) EvictStale() int {
	var cutoff time.Time
	if c.maxAge > 0 {
		cutoff = time.Now().Add(-c.maxAge)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	evicted := 0
	for sym, q := range c.quotes {
		if q.UpdatedAt.IsZero() || (c.maxAge > 0 && q.UpdatedAt.Before(cutoff)) {
			delete(c.quotes, sym)
			evicted++
		}
	}
	return evicted
}

type CacheStats struct {
	Symbols int `json:"symbols"`
	Fresh   int `json:"fresh"`
}

func (c *Cache) Stats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	stats := CacheStats{Symbols: len(c.quotes)}
	for _, q := range c.quotes {
		if !q.UpdatedAt.IsZero() && (c.maxAge <= 0 || time.Since(q.UpdatedAt) <= c.maxAge) {
			stats.Fresh++
		}
	}
	return stats
}
