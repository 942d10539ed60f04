package ratelimit

import (
    "context"
    "sync"
    "time"

    "github.com/achandranjr/Stock-dashboard/internal/quote"
)

// MinInterval wraps a client and enforces a minimum time between upstream
// calls. Callers wait until the interval has elapsed since the last call,
// or return early if the context is canceled. The wrapped call itself is
// never reissued.
type MinInterval struct {
    C        quote.Client
    Interval time.Duration
    mu       sync.Mutex
    last     time.Time
}

func (m *MinInterval) Fetch(ctx context.Context, symbol string) (quote.TimeSeries, error) {
    if m.Interval > 0 {
        // simple gate: ensure at least Interval since last
        m.mu.Lock()
        wait := time.Until(m.last.Add(m.Interval))
        m.mu.Unlock()
        if wait > 0 {
            t := time.NewTimer(wait)
            defer t.Stop()
            select {
            case <-ctx.Done():
                return quote.TimeSeries{}, ctx.Err()
            case <-t.C:
            }
        }
    }
    s, err := m.C.Fetch(ctx, symbol)
    if m.Interval > 0 {
        m.mu.Lock()
        m.last = time.Now()
        m.mu.Unlock()
    }
    return s, err
}
