package cache

import (
    "context"
    "sync"
    "time"

    "golang.org/x/sync/singleflight"

    "github.com/achandranjr/Stock-dashboard/internal/quote"
)

// DefaultTTL matches the reference dashboard's five-minute freshness window.
const DefaultTTL = 5 * time.Minute

// entry stores one symbol's snapshot with its fetch time.
type entry struct {
    series    quote.TimeSeries
    fetchedAt time.Time
}

// Cache memoizes per-symbol daily series from an underlying client for a
// TTL. It implements quote.Client, so callers cannot tell it from a direct
// client; concurrent fetches for one symbol collapse into a single
// upstream call.
type Cache struct {
    client quote.Client
    ttl    time.Duration
    now    func() time.Time

    mu      sync.RWMutex
    entries map[string]entry // key: normalized symbol

    // coalesce concurrent refreshes per symbol
    sf singleflight.Group
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock substitutes the time source, for tests.
func WithClock(now func() time.Time) Option {
    return func(c *Cache) { c.now = now }
}

// New wraps client with a TTL cache. ttl <= 0 falls back to DefaultTTL.
func New(client quote.Client, ttl time.Duration, opts ...Option) *Cache {
    if ttl <= 0 {
        ttl = DefaultTTL
    }
    c := &Cache{
        client:  client,
        ttl:     ttl,
        now:     time.Now,
        entries: make(map[string]entry),
    }
    for _, opt := range opts {
        opt(c)
    }
    return c
}

// Fetch returns the stored series while its age is under the TTL and asks
// the underlying client otherwise. Every caller gets an independent copy,
// so a later refresh can never alter a result already handed out. A failed
// refresh keeps the previous snapshot in place and reports the error; all
// callers waiting on the same in-flight refresh observe the same outcome.
func (c *Cache) Fetch(ctx context.Context, symbol string) (quote.TimeSeries, error) {
    key := quote.NormalizeSymbol(symbol)

    if s, ok := c.fresh(key); ok {
        return s, nil
    }

    v, err, _ := c.sf.Do(key, func() (any, error) {
        // Re-check under the flight: a racing caller may have stored a
        // fresh snapshot while this one queued.
        if s, ok := c.fresh(key); ok {
            return s, nil
        }
        s, err := c.client.Fetch(ctx, key)
        if err != nil {
            // Keep whatever snapshot exists; a transient provider failure
            // must not erase previously obtained data.
            return nil, err
        }
        c.mu.Lock()
        c.entries[key] = entry{series: s, fetchedAt: c.now()}
        c.mu.Unlock()
        return s, nil
    })
    if err != nil {
        return quote.TimeSeries{}, err
    }
    return v.(quote.TimeSeries).Clone(), nil
}

// InvalidateAll discards every entry unconditionally. The next call for
// any symbol behaves as a cold cache. This backs the manual refresh
// action.
func (c *Cache) InvalidateAll() {
    c.mu.Lock()
    c.entries = make(map[string]entry)
    c.mu.Unlock()
}

// LastKnown returns the most recent snapshot stored for symbol regardless
// of freshness, along with its fetch time. Serving layers use it to show
// last-good data beside a fetch error.
func (c *Cache) LastKnown(symbol string) (quote.TimeSeries, time.Time, bool) {
    key := quote.NormalizeSymbol(symbol)
    c.mu.RLock()
    e, ok := c.entries[key]
    c.mu.RUnlock()
    if !ok {
        return quote.TimeSeries{}, time.Time{}, false
    }
    return e.series.Clone(), e.fetchedAt, true
}

// fresh returns a copy of the stored series when it is younger than the
// TTL.
func (c *Cache) fresh(key string) (quote.TimeSeries, bool) {
    c.mu.RLock()
    e, ok := c.entries[key]
    c.mu.RUnlock()
    if !ok || c.now().Sub(e.fetchedAt) >= c.ttl {
        return quote.TimeSeries{}, false
    }
    return e.series.Clone(), true
}
