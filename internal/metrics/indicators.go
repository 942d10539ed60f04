package metrics

import (
    "github.com/guregu/null/v6"
    "gonum.org/v1/gonum/stat"

    "github.com/achandranjr/Stock-dashboard/internal/quote"
)

// Indicators carries per-bar derived columns aligned with a series.
// An entry is null where the indicator is undefined, such as the
// leading bars of a moving average or the first daily return.
type Indicators struct {
    MA20        []null.Float `json:"ma_20"`
    MA50        []null.Float `json:"ma_50"`
    DailyReturn []null.Float `json:"daily_return"`
}

// DeriveIndicators computes the rolling columns for a series: trailing
// 20 and 50 bar moving averages of the close and the day-over-day
// fractional change. Pass the windowed series; the columns describe
// exactly the bars they sit beside.
func DeriveIndicators(series quote.TimeSeries) Indicators {
    closes := make([]float64, len(series.Bars))
    for i, b := range series.Bars {
        closes[i] = b.Close.InexactFloat64()
    }
    return Indicators{
        MA20:        rollingMean(closes, 20),
        MA50:        rollingMean(closes, 50),
        DailyReturn: dailyReturns(closes),
    }
}

func rollingMean(values []float64, period int) []null.Float {
    out := make([]null.Float, len(values))
    for i := range values {
        if i+1 >= period {
            out[i] = null.FloatFrom(stat.Mean(values[i+1-period:i+1], nil))
        }
    }
    return out
}

func dailyReturns(closes []float64) []null.Float {
    out := make([]null.Float, len(closes))
    for i := 1; i < len(closes); i++ {
        if closes[i-1] == 0 {
            continue
        }
        out[i] = null.FloatFrom(closes[i]/closes[i-1] - 1)
    }
    return out
}
