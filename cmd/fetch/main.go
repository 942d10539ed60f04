package main

import (
    "context"
    "encoding/json"
    "flag"
    "fmt"
    "io"
    "log"
    "net/http"
    "os"
    "strings"
    "time"

    "github.com/joho/godotenv"

    "github.com/achandranjr/Stock-dashboard/internal/config"
    "github.com/achandranjr/Stock-dashboard/internal/export"
    "github.com/achandranjr/Stock-dashboard/internal/httpx"
    "github.com/achandranjr/Stock-dashboard/internal/metrics"
    "github.com/achandranjr/Stock-dashboard/internal/quote"
    "github.com/achandranjr/Stock-dashboard/internal/quote/alphavantage"
    "github.com/achandranjr/Stock-dashboard/internal/quote/ratelimit"
)

type report struct {
    Symbol        string           `json:"symbol"`
    Window        string           `json:"window"`
    Bars          int              `json:"bars"`
    LastRefreshed string           `json:"last_refreshed,omitempty"`
    Metrics       metrics.Snapshot `json:"metrics"`
}

func main() {
    _ = godotenv.Load()

    var symbolsCSV string
    var windowStr string
    var csvOut bool
    var withIndicators bool
    var outPath string
    var timeout int
    var configPath string

    flag.StringVar(&symbolsCSV, "symbols", getenv("SYMBOLS", "AAPL"), "comma-separated ticker symbols")
    flag.StringVar(&windowStr, "window", getenv("WINDOW", "all"), "trailing days to report (e.g. 30, 60, 90 or all)")
    flag.BoolVar(&csvOut, "csv", false, "write the daily table as CSV instead of metrics JSON (single symbol only)")
    flag.BoolVar(&withIndicators, "indicators", true, "include MA_20, MA_50 and Daily_Return columns in CSV output")
    flag.StringVar(&outPath, "out", "", "write CSV to this file instead of stdout")
    flag.IntVar(&timeout, "timeout", getenvInt("REQUEST_TIMEOUT_SEC", 15), "request timeout seconds")
    flag.StringVar(&configPath, "config", getenv("CONFIG_FILE", ""), "path to config.json (optional)")
    flag.Parse()

    cfg, err := config.Load(configPath)
    if err != nil { log.Fatalf("config: %v", err) }
    if timeout != 0 { cfg.Server.RequestTimeoutSec = timeout }
    if err := cfg.Validate(); err != nil { log.Fatalf("config: %v", err) }

    win, err := metrics.ParseWindow(windowStr)
    if err != nil { log.Fatalf("window: %v", err) }

    symbols := splitCSV(symbolsCSV)
    if len(symbols) == 0 { log.Fatal("no symbols provided") }
    if csvOut && len(symbols) != 1 {
        log.Fatal("-csv supports exactly one symbol")
    }

    reqTimeout := time.Duration(cfg.Server.RequestTimeoutSec) * time.Second
    httpClient := httpx.New(reqTimeout)

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

    // Same pacing as the server, but no cache: a one-shot run always
    // wants fresh data.
    var client quote.Client = av
    if cfg.AlphaVantage.MaxRequestsPerMinute > 0 {
        rate := float64(cfg.AlphaVantage.MaxRequestsPerMinute) / 60.0
        burst := cfg.AlphaVantage.Burst
        if burst <= 0 { burst = 1 }
        client = &ratelimit.TokenBucketClient{C: client, TB: ratelimit.NewTokenBucket(rate, burst)}
    } else if cfg.AlphaVantage.MinRequestIntervalSec > 0 {
        interval := time.Duration(cfg.AlphaVantage.MinRequestIntervalSec) * time.Second
        client = &ratelimit.MinInterval{C: client, Interval: interval}
    }

    var reports []report
    var fetched []quote.TimeSeries
    for _, sym := range symbols {
        ctx, cancel := context.WithTimeout(context.Background(), reqTimeout)
        series, err := client.Fetch(ctx, sym)
        cancel()
        if err != nil {
            log.Printf("fetch %s: %v", quote.NormalizeSymbol(sym), err)
            continue
        }
        log.Printf("%s: %d bars", series.Symbol, series.Len())
        fetched = append(fetched, series)

        windowed := series.Tail(int(win))
        r := report{
            Symbol:  series.Symbol,
            Window:  win.String(),
            Bars:    windowed.Len(),
            Metrics: metrics.Compute(windowed, metrics.All),
        }
        if last, ok := series.Last(); ok {
            r.LastRefreshed = last.Date.Format("2006-01-02")
        }
        reports = append(reports, r)
    }
    if len(reports) == 0 {
        log.Fatal("no series received")
    }

    if csvOut {
        series := fetched[0]
        windowed := series.Tail(int(win))

        var w io.Writer = os.Stdout
        if outPath != "" {
            f, err := os.Create(outPath)
            if err != nil { log.Fatalf("create %s: %v", outPath, err) }
            defer f.Close()
            w = f
        }
        if withIndicators {
            err = export.WriteWithIndicators(w, windowed, metrics.DeriveIndicators(windowed))
        } else {
            err = export.Write(w, windowed)
        }
        if err != nil { log.Fatalf("write csv: %v", err) }
        if outPath != "" { log.Printf("wrote %s", outPath) }
        return
    }

    out := struct {
        Reports []report `json:"reports"`
    }{Reports: reports}
    b, _ := json.MarshalIndent(out, "", "  ")
    fmt.Println(string(b))
}

func splitCSV(s string) []string {
    parts := strings.Split(s, ",")
    out := make([]string, 0, len(parts))
    for _, p := range parts {
        p = strings.TrimSpace(p)
        if p != "" { out = append(out, p) }
    }
    return out
}

func getenv(key, def string) string { if v := os.Getenv(key); v != "" { return v }; return def }
func getenvInt(key string, def int) int {
    if v := os.Getenv(key); v != "" {
        var x int
        _, _ = fmt.Sscanf(v, "%d", &x)
        if x != 0 { return x }
    }
    return def
}
