package config

import (
    "os"
    "path/filepath"
    "testing"
)

func valid() Config {
    cfg := Default()
    cfg.AlphaVantage.APIKey = "demo-key"
    return cfg
}

func TestLoad_DefaultsWhenNoFile(t *testing.T) {
    cfg, err := Load(filepath.Join(t.TempDir(), "missing.json"))
    if err != nil {
        t.Fatalf("Load: %v", err)
    }
    if cfg.Server.Port != "8080" || cfg.Server.RequestTimeoutSec != 15 {
        t.Fatalf("unexpected server defaults: %+v", cfg.Server)
    }
    av := cfg.AlphaVantage
    if av.CacheTTLSeconds != 300 || av.MaxRequestsPerMinute != 5 || av.Burst != 1 {
        t.Fatalf("unexpected provider defaults: %+v", av)
    }
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
    path := filepath.Join(t.TempDir(), "config.json")
    body := `{"server":{"port":"9090"},"alphavantage":{"api_key":"from-file","cache_ttl_sec":60}}`
    if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
        t.Fatalf("write config: %v", err)
    }

    cfg, err := Load(path)
    if err != nil {
        t.Fatalf("Load: %v", err)
    }
    if cfg.Server.Port != "9090" {
        t.Fatalf("want port 9090, got %q", cfg.Server.Port)
    }
    if cfg.Server.RequestTimeoutSec != 15 {
        t.Fatalf("untouched fields must keep defaults, got %+v", cfg.Server)
    }
    if cfg.AlphaVantage.APIKey != "from-file" || cfg.AlphaVantage.CacheTTLSeconds != 60 {
        t.Fatalf("unexpected provider config: %+v", cfg.AlphaVantage)
    }
}

func TestLoad_EnvOverridesFile(t *testing.T) {
    t.Setenv("ALPHA_VANTAGE_KEY", "from-env")
    t.Setenv("CACHE_TTL_SEC", "120")

    path := filepath.Join(t.TempDir(), "config.json")
    body := `{"alphavantage":{"api_key":"from-file","cache_ttl_sec":60}}`
    if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
        t.Fatalf("write config: %v", err)
    }

    cfg, err := Load(path)
    if err != nil {
        t.Fatalf("Load: %v", err)
    }
    if cfg.AlphaVantage.APIKey != "from-env" {
        t.Fatalf("env must beat file, got %q", cfg.AlphaVantage.APIKey)
    }
    if cfg.AlphaVantage.CacheTTLSeconds != 120 {
        t.Fatalf("want ttl 120, got %d", cfg.AlphaVantage.CacheTTLSeconds)
    }
}

func TestLoad_RejectsMalformedFile(t *testing.T) {
    path := filepath.Join(t.TempDir(), "config.json")
    if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
        t.Fatalf("write config: %v", err)
    }
    if _, err := Load(path); err == nil {
        t.Fatal("want error for malformed config file")
    }
}

func TestValidate(t *testing.T) {
    if err := valid().Validate(); err != nil {
        t.Fatalf("valid config rejected: %v", err)
    }

    cases := []struct {
        name   string
        mutate func(*Config)
    }{
        {"missing key", func(c *Config) { c.AlphaVantage.APIKey = "" }},
        {"blank key", func(c *Config) { c.AlphaVantage.APIKey = "   " }},
        {"placeholder key", func(c *Config) { c.AlphaVantage.APIKey = "your_api_key_here" }},
        {"placeholder key upper", func(c *Config) { c.AlphaVantage.APIKey = "YOUR_API_KEY_HERE" }},
        {"empty port", func(c *Config) { c.Server.Port = "" }},
        {"zero timeout", func(c *Config) { c.Server.RequestTimeoutSec = 0 }},
        {"negative ttl", func(c *Config) { c.AlphaVantage.CacheTTLSeconds = -1 }},
        {"negative burst", func(c *Config) { c.AlphaVantage.Burst = -1 }},
    }
    for _, c := range cases {
        cfg := valid()
        c.mutate(&cfg)
        if err := cfg.Validate(); err == nil {
            t.Fatalf("%s: want validation error", c.name)
        }
    }
}
