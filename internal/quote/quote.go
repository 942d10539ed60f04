package quote

import (
    "context"
    "strings"
    "time"

    "github.com/shopspring/decimal"
)

// DailyBar is one trading session's OHLCV record. Prices stay decimal end
// to end so exports reproduce the provider's figures exactly.
type DailyBar struct {
    Date   time.Time       `json:"date"`
    Open   decimal.Decimal `json:"open"`
    High   decimal.Decimal `json:"high"`
    Low    decimal.Decimal `json:"low"`
    Close  decimal.Decimal `json:"close"`
    Volume int64           `json:"volume"`
}

// TimeSeries is one symbol's daily history, bars strictly ascending by
// date with no duplicates. Treat it as immutable once built: derived
// values go into new structures, and the cache hands out copies rather
// than its stored slice.
type TimeSeries struct {
    Symbol string     `json:"symbol"`
    Bars   []DailyBar `json:"bars"`
}

// Client fetches the recent daily series for a single symbol.
type Client interface {
    Fetch(ctx context.Context, symbol string) (TimeSeries, error)
}

// NormalizeSymbol trims and uppercases a ticker. Cache keys and outbound
// requests must agree on this form so "ibm" and "IBM" share one entry.
func NormalizeSymbol(symbol string) string {
    return strings.ToUpper(strings.TrimSpace(symbol))
}

func (s TimeSeries) Len() int { return len(s.Bars) }

// Last returns the most recent bar, false on an empty series.
func (s TimeSeries) Last() (DailyBar, bool) {
    if len(s.Bars) == 0 {
        return DailyBar{}, false
    }
    return s.Bars[len(s.Bars)-1], true
}

// Tail returns an independent series holding the trailing n bars. n <= 0
// or n past the length keeps every bar.
func (s TimeSeries) Tail(n int) TimeSeries {
    bars := s.Bars
    if n > 0 && n < len(bars) {
        bars = bars[len(bars)-n:]
    }
    out := TimeSeries{Symbol: s.Symbol, Bars: make([]DailyBar, len(bars))}
    copy(out.Bars, bars)
    return out
}

// Clone returns an independent copy of the series.
func (s TimeSeries) Clone() TimeSeries {
    return s.Tail(0)
}
