package main

import (
    "compress/gzip"
    "context"
    "encoding/json"
    "fmt"
    "io"
    "log"
    "net/http"
    "os"
    "os/signal"
    "strings"
    "sync"
    "syscall"
    "time"

    "github.com/go-chi/chi/v5"
    "github.com/guregu/null/v6"
    "github.com/joho/godotenv"
    "github.com/shopspring/decimal"

    "github.com/achandranjr/Stock-dashboard/internal/config"
    "github.com/achandranjr/Stock-dashboard/internal/export"
    "github.com/achandranjr/Stock-dashboard/internal/httpx"
    "github.com/achandranjr/Stock-dashboard/internal/metrics"
    "github.com/achandranjr/Stock-dashboard/internal/quote"
    "github.com/achandranjr/Stock-dashboard/internal/quote/alphavantage"
    "github.com/achandranjr/Stock-dashboard/internal/quote/cache"
    "github.com/achandranjr/Stock-dashboard/internal/quote/ratelimit"
)

const dateLayout = "2006-01-02"

// popularSymbols seeds the dashboard's symbol picker.
var popularSymbols = []string{"AAPL", "GOOGL", "MSFT", "AMZN", "TSLA", "META", "NVDA", "NFLX"}

type metricsResponse struct {
    Symbol        string           `json:"symbol"`
    Window        string           `json:"window"`
    Bars          int              `json:"bars"`
    LastRefreshed string           `json:"last_refreshed,omitempty"`
    Metrics       metrics.Snapshot `json:"metrics"`
}

type historyRow struct {
    Date        string          `json:"date"`
    Open        decimal.Decimal `json:"open"`
    High        decimal.Decimal `json:"high"`
    Low         decimal.Decimal `json:"low"`
    Close       decimal.Decimal `json:"close"`
    Volume      int64           `json:"volume"`
    MA20        null.Float      `json:"ma_20"`
    MA50        null.Float      `json:"ma_50"`
    DailyReturn null.Float      `json:"daily_return"`
}

type historyResponse struct {
    Symbol string       `json:"symbol"`
    Window string       `json:"window"`
    Rows   []historyRow `json:"rows"`
}

type symbolsResponse struct {
    Symbols []string `json:"symbols"`
}

type refreshResponse struct {
    Invalidated bool `json:"invalidated"`
}

// staleData rides along on error responses when an expired snapshot is
// still on hand, so a dashboard can keep rendering through an outage.
type staleData struct {
    FetchedAt time.Time        `json:"fetched_at"`
    Metrics   metrics.Snapshot `json:"metrics"`
}

type errorResponse struct {
    Error  string     `json:"error"`
    Kind   string     `json:"kind,omitempty"`
    Symbol string     `json:"symbol,omitempty"`
    Stale  *staleData `json:"stale,omitempty"`
}

type server struct {
    series  *cache.Cache
    timeout time.Duration
}

func main() {
    _ = godotenv.Load()

    cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
    if err != nil { log.Fatalf("config: %v", err) }
    if err := cfg.Validate(); err != nil { log.Fatalf("config: %v", err) }

    timeout := time.Duration(cfg.Server.RequestTimeoutSec) * time.Second
    httpClient := httpx.New(timeout)

    opts := []alphavantage.AlphaVantageAPIClientOption{
        alphavantage.WithHTTPClient(httpClient),
        alphavantage.WithHeader(http.Header{
            "User-Agent": []string{"stock-dashboard/1.0"},
        }),
    }
    if cfg.AlphaVantage.BaseURL != "" {
        opts = append(opts, alphavantage.WithBaseURL(cfg.AlphaVantage.BaseURL))
    }
    av, err := alphavantage.NewAlphaVantageAPIClient(cfg.AlphaVantage.APIKey, opts...)
    if err != nil { log.Fatalf("alphavantage client: %v", err) }

    var client quote.Client = av
    // Prefer token bucket with burst if RPM is set, otherwise use min-interval
    if cfg.AlphaVantage.MaxRequestsPerMinute > 0 {
        rate := float64(cfg.AlphaVantage.MaxRequestsPerMinute) / 60.0
        burst := cfg.AlphaVantage.Burst
        if burst <= 0 { burst = 1 }
        client = &ratelimit.TokenBucketClient{C: client, TB: ratelimit.NewTokenBucket(rate, burst)}
    } else if cfg.AlphaVantage.MinRequestIntervalSec > 0 {
        interval := time.Duration(cfg.AlphaVantage.MinRequestIntervalSec) * time.Second
        client = &ratelimit.MinInterval{C: client, Interval: interval}
    }

    s := &server{
        series:  cache.New(client, time.Duration(cfg.AlphaVantage.CacheTTLSeconds)*time.Second),
        timeout: timeout,
    }

    srv := &http.Server{
        Addr:              ":" + cfg.Server.Port,
        Handler:           s.handler(),
        ReadHeaderTimeout: 5 * time.Second,
        ReadTimeout:       15 * time.Second,
        WriteTimeout:      20 * time.Second,
        IdleTimeout:       60 * time.Second,
    }

    go func() {
        log.Printf("server listening on :%s", cfg.Server.Port)
        if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
            log.Fatalf("server: %v", err)
        }
    }()

    // graceful shutdown
    ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
    defer stop()
    <-ctx.Done()
    shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
    defer cancel()
    _ = srv.Shutdown(shutdownCtx)
}

func (s *server) handler() http.Handler {
    return withJSONHeaders(withGzip(recoverPanic(limitBody(s.routes()))))
}

func (s *server) routes() http.Handler {
    r := chi.NewRouter()
    r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
        w.WriteHeader(http.StatusOK)
        _, _ = w.Write([]byte("ok"))
    })
    r.Route("/api", func(r chi.Router) {
        r.Get("/symbols", s.handleSymbols)
        r.Post("/cache/refresh", s.handleCacheRefresh)
        r.Route("/stocks/{symbol}", func(r chi.Router) {
            r.Get("/metrics", s.handleMetrics)
            r.Get("/history", s.handleHistory)
            r.Get("/export", s.handleExport)
        })
    })
    return r
}

func (s *server) handleSymbols(w http.ResponseWriter, _ *http.Request) {
    writeJSON(w, http.StatusOK, symbolsResponse{Symbols: popularSymbols})
}

func (s *server) handleCacheRefresh(w http.ResponseWriter, _ *http.Request) {
    s.series.InvalidateAll()
    writeJSON(w, http.StatusOK, refreshResponse{Invalidated: true})
}

func (s *server) handleMetrics(w http.ResponseWriter, r *http.Request) {
    series, win, ok := s.loadSeries(w, r)
    if !ok {
        return
    }
    windowed := series.Tail(int(win))
    resp := metricsResponse{
        Symbol:  series.Symbol,
        Window:  win.String(),
        Bars:    windowed.Len(),
        Metrics: metrics.Compute(windowed, metrics.All),
    }
    if last, ok := series.Last(); ok {
        resp.LastRefreshed = last.Date.Format(dateLayout)
    }
    writeJSON(w, http.StatusOK, resp)
}

func (s *server) handleHistory(w http.ResponseWriter, r *http.Request) {
    series, win, ok := s.loadSeries(w, r)
    if !ok {
        return
    }
    windowed := series.Tail(int(win))
    ind := metrics.DeriveIndicators(windowed)

    rows := make([]historyRow, windowed.Len())
    for i, b := range windowed.Bars {
        rows[i] = historyRow{
            Date:        b.Date.Format(dateLayout),
            Open:        b.Open,
            High:        b.High,
            Low:         b.Low,
            Close:       b.Close,
            Volume:      b.Volume,
            MA20:        ind.MA20[i],
            MA50:        ind.MA50[i],
            DailyReturn: ind.DailyReturn[i],
        }
    }
    writeJSON(w, http.StatusOK, historyResponse{Symbol: series.Symbol, Window: win.String(), Rows: rows})
}

func (s *server) handleExport(w http.ResponseWriter, r *http.Request) {
    series, win, ok := s.loadSeries(w, r)
    if !ok {
        return
    }
    windowed := series.Tail(int(win))
    ind := metrics.DeriveIndicators(windowed)

    w.Header().Set("Content-Type", "text/csv; charset=utf-8")
    w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s_stock_data.csv"`, series.Symbol))
    _ = export.WriteWithIndicators(w, windowed, ind)
}

// loadSeries resolves the symbol and window of a stock request and
// fetches through the cache. On failure it writes the error response
// and reports ok=false.
func (s *server) loadSeries(w http.ResponseWriter, r *http.Request) (quote.TimeSeries, metrics.Window, bool) {
    symbol := chi.URLParam(r, "symbol")
    win, err := metrics.ParseWindow(r.URL.Query().Get("window"))
    if err != nil {
        writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error(), Symbol: quote.NormalizeSymbol(symbol)})
        return quote.TimeSeries{}, 0, false
    }

    ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
    defer cancel()
    series, err := s.series.Fetch(ctx, symbol)
    if err != nil {
        s.writeFetchError(w, symbol, win, err)
        return quote.TimeSeries{}, 0, false
    }
    return series, win, true
}

// writeFetchError turns a classified fetch failure into a status code
// and a message fit for an end user. Expired data rides along when
// available, windowed like the request, withheld on rate limits.
func (s *server) writeFetchError(w http.ResponseWriter, symbol string, win metrics.Window, err error) {
    symbol = quote.NormalizeSymbol(symbol)
    kind := quote.KindOf(err)
    resp := errorResponse{Kind: string(kind), Symbol: symbol}

    var status int
    switch kind {
    case quote.KindInvalidSymbol, quote.KindEmptyResult:
        status = http.StatusNotFound
        resp.Error = fmt.Sprintf("no data found for %q, check the ticker and try again", symbol)
    case quote.KindRateLimited:
        status = http.StatusTooManyRequests
        resp.Error = "provider request limit reached, wait a minute and try again"
    default:
        status = http.StatusBadGateway
        resp.Error = "could not reach the data provider, try again later"
    }

    if kind != quote.KindRateLimited {
        if snap, at, ok := s.series.LastKnown(symbol); ok {
            resp.Stale = &staleData{FetchedAt: at, Metrics: metrics.Compute(snap, win)}
        }
    }
    writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
    w.WriteHeader(status)
    enc := json.NewEncoder(w)
    enc.SetEscapeHTML(false)
    _ = enc.Encode(v)
}

func withJSONHeaders(next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        w.Header().Set("Content-Type", "application/json; charset=utf-8")
        // Basic CORS for browser usage; adjust as needed.
        w.Header().Set("Access-Control-Allow-Origin", "*")
        w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
        w.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
        if r.Method == http.MethodOptions {
            w.WriteHeader(http.StatusNoContent)
            return
        }
        next.ServeHTTP(w, r)
    })
}

// withGzip compresses response when client supports gzip.
func withGzip(next http.Handler) http.Handler {
    var gzPool = sync.Pool{New: func() any {
        // Prefer best speed to reduce CPU usage since payloads are JSON
        w, _ := gzip.NewWriterLevel(io.Discard, gzip.BestSpeed)
        return w
    }}
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
            next.ServeHTTP(w, r)
            return
        }
        gz := gzPool.Get().(*gzip.Writer)
        gz.Reset(w)
        defer func() {
            _ = gz.Close()
            gz.Reset(io.Discard)
            gzPool.Put(gz)
        }()
        w.Header().Set("Content-Encoding", "gzip")
        w.Header().Add("Vary", "Accept-Encoding")
        gw := gzipResponseWriter{ResponseWriter: w, Writer: gz}
        next.ServeHTTP(gw, r)
    })
}

type gzipResponseWriter struct {
    http.ResponseWriter
    Writer io.Writer
}

func (g gzipResponseWriter) Write(b []byte) (int, error) {
    return g.Writer.Write(b)
}

// limitBody caps request body size to avoid memory abuse.
func limitBody(next http.Handler) http.Handler {
    const maxBody = 1 << 20 // 1MB
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        if r.Method == http.MethodPost && r.Body != nil {
            r.Body = http.MaxBytesReader(w, r.Body, maxBody)
        }
        next.ServeHTTP(w, r)
    })
}

// recoverPanic protects handlers from panics.
func recoverPanic(next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        defer func() {
            if rec := recover(); rec != nil {
                http.Error(w, "internal server error", http.StatusInternalServerError)
            }
        }()
        next.ServeHTTP(w, r)
    })
}
