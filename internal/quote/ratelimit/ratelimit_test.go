package ratelimit_test

import (
    "context"
    "sync"
    "testing"
    "time"

    "github.com/stretchr/testify/require"

    "github.com/achandranjr/Stock-dashboard/internal/quote"
    "github.com/achandranjr/Stock-dashboard/internal/quote/ratelimit"
)

type countingClient struct {
    mu    sync.Mutex
    calls int
}

func (c *countingClient) Fetch(ctx context.Context, symbol string) (quote.TimeSeries, error) {
    c.mu.Lock()
    c.calls++
    c.mu.Unlock()
    return quote.TimeSeries{Symbol: symbol}, nil
}

func (c *countingClient) count() int {
    c.mu.Lock()
    defer c.mu.Unlock()
    return c.calls
}

func TestMinInterval_SpacesConsecutiveCalls(t *testing.T) {
    t.Parallel()

    fake := &countingClient{}
    m := &ratelimit.MinInterval{C: fake, Interval: 50 * time.Millisecond}

    start := time.Now()
    _, err := m.Fetch(t.Context(), "IBM")
    require.NoError(t, err)
    _, err = m.Fetch(t.Context(), "IBM")
    require.NoError(t, err)

    require.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
    require.Equal(t, 2, fake.count())
}

func TestMinInterval_CanceledContext(t *testing.T) {
    t.Parallel()

    fake := &countingClient{}
    m := &ratelimit.MinInterval{C: fake, Interval: time.Hour}

    _, err := m.Fetch(t.Context(), "IBM")
    require.NoError(t, err)

    ctx, cancel := context.WithCancel(t.Context())
    cancel()
    _, err = m.Fetch(ctx, "IBM")
    require.ErrorIs(t, err, context.Canceled)
    require.Equal(t, 1, fake.count(), "a canceled wait must not reach the client")
}

func TestTokenBucket_AllowsConfiguredBurst(t *testing.T) {
    t.Parallel()

    fake := &countingClient{}
    tb := &ratelimit.TokenBucketClient{C: fake, TB: ratelimit.NewTokenBucket(0.001, 2)}

    start := time.Now()
    _, err := tb.Fetch(t.Context(), "IBM")
    require.NoError(t, err)
    _, err = tb.Fetch(t.Context(), "IBM")
    require.NoError(t, err)

    // Both calls fit in the burst; neither should sit in the refill loop.
    require.Less(t, time.Since(start), time.Second)
    require.Equal(t, 2, fake.count())
}

func TestTokenBucket_CanceledContext(t *testing.T) {
    t.Parallel()

    fake := &countingClient{}
    tb := &ratelimit.TokenBucketClient{C: fake, TB: ratelimit.NewTokenBucket(0.001, 1)}

    _, err := tb.Fetch(t.Context(), "IBM")
    require.NoError(t, err)

    ctx, cancel := context.WithCancel(t.Context())
    cancel()
    _, err = tb.Fetch(ctx, "IBM")
    require.ErrorIs(t, err, context.Canceled)
    require.Equal(t, 1, fake.count())
}
