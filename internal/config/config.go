package config

import (
    "encoding/json"
    "errors"
    "fmt"
    "os"
    "strings"

    "github.com/kelseyhightower/envconfig"
)

type Server struct {
    Port              string `json:"port" envconfig:"PORT"`
    RequestTimeoutSec int    `json:"request_timeout_sec" envconfig:"REQUEST_TIMEOUT_SEC"`
}

type AlphaVantage struct {
    APIKey                string `json:"api_key" envconfig:"ALPHA_VANTAGE_KEY"`
    BaseURL               string `json:"base_url" envconfig:"ALPHA_VANTAGE_BASE_URL"`
    CacheTTLSeconds       int    `json:"cache_ttl_sec" envconfig:"CACHE_TTL_SEC"`
    MaxRequestsPerMinute  int    `json:"max_requests_per_minute" envconfig:"MAX_RPM"`
    MinRequestIntervalSec int    `json:"min_request_interval_sec" envconfig:"MIN_INTERVAL_SEC"`
    Burst                 int    `json:"burst" envconfig:"BURST"`
}

type Config struct {
    Server       Server       `json:"server"`
    AlphaVantage AlphaVantage `json:"alphavantage"`
}

// placeholderKey is the value shipped in sample configs. Treated the
// same as no key at all.
const placeholderKey = "your_api_key_here"

func Default() Config {
    return Config{
        Server: Server{Port: "8080", RequestTimeoutSec: 15},
        AlphaVantage: AlphaVantage{
            CacheTTLSeconds:      300,
            MaxRequestsPerMinute: 5,
            Burst:                1,
        },
    }
}

// Load reads JSON config from path. If path is empty or the file does
// not exist, it returns defaults. Environment variables override file
// values so secrets can stay out of the file.
func Load(path string) (Config, error) {
    cfg := Default()
    if path == "" {
        if _, err := os.Stat("config.json"); err == nil {
            path = "config.json"
        }
    }
    if path != "" {
        b, err := os.ReadFile(path)
        if err != nil && !errors.Is(err, os.ErrNotExist) {
            return cfg, fmt.Errorf("read config: %w", err)
        }
        if err == nil {
            if err := json.Unmarshal(b, &cfg); err != nil {
                return cfg, fmt.Errorf("parse config: %w", err)
            }
        }
    }
    if err := envconfig.Process("", &cfg); err != nil {
        return cfg, fmt.Errorf("apply env: %w", err)
    }
    return cfg, nil
}

// Validate rejects configurations the binaries cannot run with.
// Checked once at startup.
func (c Config) Validate() error {
    key := strings.TrimSpace(c.AlphaVantage.APIKey)
    if key == "" || strings.EqualFold(key, placeholderKey) {
        return fmt.Errorf("alpha vantage api key missing: set ALPHA_VANTAGE_KEY or alphavantage.api_key in the config file")
    }
    if c.Server.Port == "" {
        return fmt.Errorf("server port must not be empty")
    }
    if c.Server.RequestTimeoutSec <= 0 {
        return fmt.Errorf("request timeout must be positive")
    }
    if c.AlphaVantage.CacheTTLSeconds < 0 {
        return fmt.Errorf("cache ttl must not be negative")
    }
    if c.AlphaVantage.MaxRequestsPerMinute < 0 || c.AlphaVantage.Burst < 0 {
        return fmt.Errorf("rate limit settings must not be negative")
    }
    return nil
}
