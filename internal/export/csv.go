package export

import (
    "encoding/csv"
    "fmt"
    "io"
    "sort"
    "strconv"
    "time"

    "github.com/guregu/null/v6"
    "github.com/shopspring/decimal"

    "github.com/achandranjr/Stock-dashboard/internal/metrics"
    "github.com/achandranjr/Stock-dashboard/internal/quote"
)

const dateLayout = "2006-01-02"

var (
    baseHeader      = []string{"Date", "Open", "High", "Low", "Close", "Volume"}
    indicatorHeader = []string{"MA_20", "MA_50", "Daily_Return"}
)

// Write renders series as a CSV table, one row per trading day in
// ascending date order. Prices keep the exact digits the provider
// reported, so reading the table back loses nothing.
func Write(w io.Writer, series quote.TimeSeries) error {
    return writeRows(w, series, nil)
}

// WriteWithIndicators appends MA_20, MA_50 and Daily_Return columns.
// Cells where an indicator is undefined stay empty. The indicator
// columns must be aligned with series, row for row.
func WriteWithIndicators(w io.Writer, series quote.TimeSeries, ind metrics.Indicators) error {
    if len(ind.MA20) != len(series.Bars) || len(ind.MA50) != len(series.Bars) || len(ind.DailyReturn) != len(series.Bars) {
        return fmt.Errorf("indicator columns do not match series: %d/%d/%d rows for %d bars",
            len(ind.MA20), len(ind.MA50), len(ind.DailyReturn), len(series.Bars))
    }
    return writeRows(w, series, &ind)
}

func writeRows(w io.Writer, series quote.TimeSeries, ind *metrics.Indicators) error {
    cw := csv.NewWriter(w)

    header := baseHeader
    if ind != nil {
        header = append(append(make([]string, 0, len(baseHeader)+len(indicatorHeader)), baseHeader...), indicatorHeader...)
    }
    if err := cw.Write(header); err != nil {
        return err
    }

    for i, b := range series.Bars {
        row := []string{
            b.Date.Format(dateLayout),
            b.Open.String(),
            b.High.String(),
            b.Low.String(),
            b.Close.String(),
            strconv.FormatInt(b.Volume, 10),
        }
        if ind != nil {
            row = append(row, cell(ind.MA20[i]), cell(ind.MA50[i]), cell(ind.DailyReturn[i]))
        }
        if err := cw.Write(row); err != nil {
            return err
        }
    }

    cw.Flush()
    return cw.Error()
}

func cell(f null.Float) string {
    if !f.Valid {
        return ""
    }
    return strconv.FormatFloat(f.Float64, 'f', -1, 64)
}

// Read parses a table produced by Write back into a series. Columns
// past the first six are ignored, so tables with indicator columns
// read the same as plain ones. Rows come back sorted by date; a date
// appearing twice is an error.
func Read(r io.Reader, symbol string) (quote.TimeSeries, error) {
    cr := csv.NewReader(r)
    cr.FieldsPerRecord = -1

    records, err := cr.ReadAll()
    if err != nil {
        return quote.TimeSeries{}, fmt.Errorf("reading table: %w", err)
    }
    if len(records) == 0 {
        return quote.TimeSeries{}, fmt.Errorf("empty table")
    }
    if err := checkHeader(records[0]); err != nil {
        return quote.TimeSeries{}, err
    }

    bars := make([]quote.DailyBar, 0, len(records)-1)
    for i, rec := range records[1:] {
        bar, err := parseRow(rec)
        if err != nil {
            return quote.TimeSeries{}, fmt.Errorf("row %d: %w", i+2, err)
        }
        bars = append(bars, bar)
    }
    sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
    for i := 1; i < len(bars); i++ {
        if !bars[i-1].Date.Before(bars[i].Date) {
            return quote.TimeSeries{}, fmt.Errorf("duplicate date %s", bars[i].Date.Format(dateLayout))
        }
    }

    return quote.TimeSeries{Symbol: quote.NormalizeSymbol(symbol), Bars: bars}, nil
}

func checkHeader(head []string) error {
    if len(head) < len(baseHeader) {
        return fmt.Errorf("unexpected header %v", head)
    }
    for i, name := range baseHeader {
        if head[i] != name {
            return fmt.Errorf("unexpected header column %q, want %q", head[i], name)
        }
    }
    return nil
}

func parseRow(rec []string) (quote.DailyBar, error) {
    if len(rec) < len(baseHeader) {
        return quote.DailyBar{}, fmt.Errorf("want at least %d columns, got %d", len(baseHeader), len(rec))
    }

    date, err := time.Parse(dateLayout, rec[0])
    if err != nil {
        return quote.DailyBar{}, fmt.Errorf("parsing date: %w", err)
    }

    prices := make([]decimal.Decimal, 4)
    for i, cell := range rec[1:5] {
        p, err := decimal.NewFromString(cell)
        if err != nil {
            return quote.DailyBar{}, fmt.Errorf("parsing %s: %w", baseHeader[i+1], err)
        }
        prices[i] = p
    }

    volume, err := strconv.ParseInt(rec[5], 10, 64)
    if err != nil {
        return quote.DailyBar{}, fmt.Errorf("parsing volume: %w", err)
    }

    return quote.DailyBar{
        Date:   date,
        Open:   prices[0],
        High:   prices[1],
        Low:    prices[2],
        Close:  prices[3],
        Volume: volume,
    }, nil
}
