package alphavantage

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/achandranjr/Stock-dashboard/internal/quote"
)

// dateLayout is the calendar-day key format used by the daily endpoint.
const dateLayout = "2006-01-02"

// dailyResponse mirrors the TIME_SERIES_DAILY payload. Provider-level
// failures arrive as 200s carrying one of the sentinel keys instead of
// the series.
type dailyResponse struct {
	ErrorMessage string              `json:"Error Message"`
	Note         string              `json:"Note"`
	MetaData     dailyMetaData       `json:"Meta Data"`
	TimeSeries   map[string]dailyBar `json:"Time Series (Daily)"`
}

type dailyMetaData struct {
	Information   string `json:"1. Information"`
	Symbol        string `json:"2. Symbol"`
	LastRefreshed string `json:"3. Last Refreshed"`
	OutputSize    string `json:"4. Output Size"`
	TimeZone      string `json:"5. Time Zone"`
}

// dailyBar holds one session's figures, string-encoded as the API sends
// them.
type dailyBar struct {
	Open   string `json:"1. open"`
	High   string `json:"2. high"`
	Low    string `json:"3. low"`
	Close  string `json:"4. close"`
	Volume string `json:"5. volume"`
}

// Fetch retrieves the compact daily series (the most recent ~100 trading
// sessions) for symbol and returns it sorted ascending by date. It
// implements quote.Client. Failures come back as *quote.FetchError; the
// classification follows the payload sentinels, and a single unparseable
// record rejects the whole response rather than yielding a partial series.
// Fetch keeps no state and never retries.
func (c *AlphaVantageAPIClient) Fetch(ctx context.Context, symbol string) (quote.TimeSeries, error) {
	symbol = quote.NormalizeSymbol(symbol)
	if symbol == "" {
		return quote.TimeSeries{}, &quote.FetchError{Kind: quote.KindInvalidSymbol, Message: "empty symbol"}
	}

	query := maps.Clone(c.query)
	query.Set("function", "TIME_SERIES_DAILY")
	query.Set("symbol", symbol)
	query.Set("outputsize", "compact")

	url := fmt.Sprintf("%s/query?%s", c.baseURL, query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return quote.TimeSeries{}, &quote.FetchError{
			Kind: quote.KindNetwork, Symbol: symbol,
			Err: fmt.Errorf("creating request: %w", err),
		}
	}
	req.Header = c.header.Clone()

	res, err := c.httpClient.Do(req)
	if err != nil {
		return quote.TimeSeries{}, &quote.FetchError{
			Kind: quote.KindNetwork, Symbol: symbol,
			Err: fmt.Errorf("performing request: %w", err),
		}
	}
	defer res.Body.Close()

	// Alpha Vantage signals symbol and quota problems inside 200
	// responses; anything else at the status level is transport trouble.
	if res.StatusCode != http.StatusOK {
		return quote.TimeSeries{}, &quote.FetchError{
			Kind: quote.KindNetwork, Symbol: symbol,
			Message: fmt.Sprintf("unexpected status code: %d", res.StatusCode),
		}
	}

	var body dailyResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return quote.TimeSeries{}, &quote.FetchError{
			Kind: quote.KindMalformedResponse, Symbol: symbol,
			Err: fmt.Errorf("decoding daily response: %w", err),
		}
	}

	if body.ErrorMessage != "" {
		return quote.TimeSeries{}, &quote.FetchError{Kind: quote.KindInvalidSymbol, Symbol: symbol, Message: body.ErrorMessage}
	}
	if body.Note != "" {
		return quote.TimeSeries{}, &quote.FetchError{Kind: quote.KindRateLimited, Symbol: symbol, Message: body.Note}
	}
	if len(body.TimeSeries) == 0 {
		return quote.TimeSeries{}, &quote.FetchError{Kind: quote.KindEmptyResult, Symbol: symbol, Message: "no daily series in response"}
	}

	bars := make([]quote.DailyBar, 0, len(body.TimeSeries))
	for date, raw := range body.TimeSeries {
		bar, err := parseDailyBar(date, raw)
		if err != nil {
			// One bad record poisons the response; a partial series would
			// silently skew every downstream metric.
			return quote.TimeSeries{}, &quote.FetchError{Kind: quote.KindMalformedResponse, Symbol: symbol, Err: err}
		}
		bars = append(bars, bar)
	}

	// The provider emits newest-first; that order is not contractual.
	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })

	return quote.TimeSeries{Symbol: symbol, Bars: bars}, nil
}

func parseDailyBar(date string, raw dailyBar) (quote.DailyBar, error) {
	day, err := time.Parse(dateLayout, date)
	if err != nil {
		return quote.DailyBar{}, fmt.Errorf("parsing date %q: %w", date, err)
	}
	open, err := parsePrice("open", raw.Open)
	if err != nil {
		return quote.DailyBar{}, err
	}
	high, err := parsePrice("high", raw.High)
	if err != nil {
		return quote.DailyBar{}, err
	}
	low, err := parsePrice("low", raw.Low)
	if err != nil {
		return quote.DailyBar{}, err
	}
	cls, err := parsePrice("close", raw.Close)
	if err != nil {
		return quote.DailyBar{}, err
	}
	volume, err := strconv.ParseInt(raw.Volume, 10, 64)
	if err != nil {
		return quote.DailyBar{}, fmt.Errorf("parsing volume %q: %w", raw.Volume, err)
	}
	if volume < 0 {
		return quote.DailyBar{}, fmt.Errorf("negative volume %d on %s", volume, date)
	}
	return quote.DailyBar{Date: day, Open: open, High: high, Low: low, Close: cls, Volume: volume}, nil
}

func parsePrice(field, s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parsing %s %q: %w", field, s, err)
	}
	if d.Sign() <= 0 {
		return decimal.Decimal{}, fmt.Errorf("non-positive %s %q", field, s)
	}
	return d, nil
}
