package metrics

import (
    "fmt"
    "strconv"
    "strings"

    "github.com/guregu/null/v6"
    "gonum.org/v1/gonum/stat"

    "github.com/achandranjr/Stock-dashboard/internal/quote"
)

// Window selects how many trailing daily bars feed a computation.
type Window int

// All covers every available bar.
const All Window = 0

// ParseWindow turns a query value like "30" or "all" into a Window.
// Empty input means All.
func ParseWindow(s string) (Window, error) {
    t := strings.TrimSpace(s)
    if t == "" || strings.EqualFold(t, "all") {
        return All, nil
    }
    n, err := strconv.Atoi(t)
    if err != nil || n <= 0 {
        return All, fmt.Errorf("invalid window %q", s)
    }
    return Window(n), nil
}

func (w Window) String() string {
    if w <= 0 {
        return "all"
    }
    return strconv.Itoa(int(w))
}

// Snapshot is a point-in-time summary of one symbol's daily series.
// Optional fields are null when the window holds too few bars to
// support them.
type Snapshot struct {
    CurrentPrice   float64    `json:"current_price"`
    PreviousPrice  float64    `json:"previous_price"`
    AbsoluteChange float64    `json:"absolute_change"`
    PercentChange  null.Float `json:"percent_change"`
    LatestVolume   int64      `json:"latest_volume"`
    AverageVolume  float64    `json:"average_volume"`
    WindowHigh     float64    `json:"window_high"`
    WindowLow      float64    `json:"window_low"`
    VolatilityPct  null.Float `json:"volatility_pct"`
    MA20           null.Float `json:"ma_20"`
    MA50           null.Float `json:"ma_50"`
}

// Compute summarizes the trailing w bars of series.
// Rules:
// - PreviousPrice is the second-to-last close, or the last close when
//   only one bar exists, making the change zero.
// - PercentChange is null when PreviousPrice is zero.
// - WindowHigh and WindowLow cover the selected window only, not the
//   instrument's full history.
// - VolatilityPct is the sample standard deviation (n-1 divisor) of
//   day-over-day percent changes in the close; it needs at least
//   three bars.
// - MA20 and MA50 are trailing simple moving averages at the final
//   bar, null when the window holds fewer bars than the period.
// The input is never mutated; an empty window yields the zero Snapshot.
func Compute(series quote.TimeSeries, w Window) Snapshot {
    bars := series.Tail(int(w)).Bars
    if len(bars) == 0 {
        return Snapshot{}
    }

    closes := make([]float64, len(bars))
    volumes := make([]float64, len(bars))
    for i, b := range bars {
        closes[i] = b.Close.InexactFloat64()
        volumes[i] = float64(b.Volume)
    }

    current := closes[len(closes)-1]
    previous := current
    if len(closes) > 1 {
        previous = closes[len(closes)-2]
    }

    s := Snapshot{
        CurrentPrice:   current,
        PreviousPrice:  previous,
        AbsoluteChange: current - previous,
        LatestVolume:   bars[len(bars)-1].Volume,
        AverageVolume:  stat.Mean(volumes, nil),
        WindowHigh:     bars[0].High.InexactFloat64(),
        WindowLow:      bars[0].Low.InexactFloat64(),
    }
    if previous != 0 {
        s.PercentChange = null.FloatFrom((current - previous) / previous * 100)
    }
    for _, b := range bars[1:] {
        if h := b.High.InexactFloat64(); h > s.WindowHigh {
            s.WindowHigh = h
        }
        if l := b.Low.InexactFloat64(); l < s.WindowLow {
            s.WindowLow = l
        }
    }
    if v, ok := volatilityPct(closes); ok {
        s.VolatilityPct = null.FloatFrom(v)
    }
    if m, ok := trailingMean(closes, 20); ok {
        s.MA20 = null.FloatFrom(m)
    }
    if m, ok := trailingMean(closes, 50); ok {
        s.MA50 = null.FloatFrom(m)
    }
    return s
}

func volatilityPct(closes []float64) (float64, bool) {
    if len(closes) < 3 {
        return 0, false
    }
    rets := make([]float64, 0, len(closes)-1)
    for i := 1; i < len(closes); i++ {
        if closes[i-1] == 0 {
            continue
        }
        rets = append(rets, closes[i]/closes[i-1]-1)
    }
    if len(rets) < 2 {
        return 0, false
    }
    return stat.StdDev(rets, nil) * 100, true
}

func trailingMean(values []float64, period int) (float64, bool) {
    if period <= 0 || len(values) < period {
        return 0, false
    }
    return stat.Mean(values[len(values)-period:], nil), true
}
