package config

import (
    "encoding/json"
    "errors"
    "fmt"
    "os"
    "strings"
)

type Server struct {
    Port              string `json:"port"`
    RequestTimeoutSec int    `json:"request_timeout_sec"`
}

type Investing struct {
    Enabled               bool   `json:"enabled"`
    Endpoint              string `json:"endpoint"`
    APIKey                string `json:"api_key"`
    MaxRequestsPerMinute  int    `json:"max_requests_per_minute"`
    MinRequestIntervalSec int    `json:"min_request_interval_sec"`
    Burst                 int    `json:"burst"`
    MaxConcurrency        int    `json:"max_concurrency"`
}

type Coingecko struct {
    Enabled               bool   `json:"enabled"`
    Endpoint              string `json:"endpoint"`
    APIKey                string `json:"api_key"`
    MaxRequestsPerMinute  int    `json:"max_requests_per_minute"`
    MinRequestIntervalSec int    `json:"min_request_interval_sec"`
    Burst                 int    `json:"burst"`
    VsCacheTTLSeconds     int    `json:"vs_cache_ttl_sec"`
}

type Yahoo struct {
    Enabled               bool   `json:"enabled"`
    Endpoint              string `json:"endpoint"`
    MaxRequestsPerMinute  int    `json:"max_requests_per_minute"`
    MinRequestIntervalSec int    `json:"min_request_interval_sec"`
    Burst                 int    `json:"burst"`
    Range                 string `json:"range"`
    Interval              string `json:"interval"`
}

type Cache struct {
    SearchTTLSeconds  int `json:"search_ttl_sec"`
    HistoryTTLSeconds int `json:"history_ttl_sec"`
}

type Store struct {
    Path string `json:"path"`
}

type Config struct {
    Server    Server    `json:"server"`
    Investing Investing `json:"investing"`
    Coingecko Coingecko `json:"coingecko"`
    Yahoo     Yahoo     `json:"yahoo"`
    Cache     Cache     `json:"cache"`
    Store     Store     `json:"store"`
}

func Default() Config {
    return Config{
        Server: Server{Port: "8080", RequestTimeoutSec: 30},
        Investing: Investing{
            Enabled:              true,
            Endpoint:             "https://api.investing.com",
            MaxRequestsPerMinute: 120,
            Burst:                1,
            MaxConcurrency:       4,
        },
        Coingecko: Coingecko{
            Enabled:              true,
            Endpoint:             "https://api.coingecko.com",
            MaxRequestsPerMinute: 100,
            Burst:                2,
            VsCacheTTLSeconds:    3600,
        },
        Yahoo: Yahoo{
            Enabled:              true,
            Endpoint:             "https://query1.finance.yahoo.com",
            MaxRequestsPerMinute: 240,
            Burst:                4,
            Range:                "max",
            Interval:             "1d",
        },
        Cache: Cache{
            SearchTTLSeconds:  0,
            HistoryTTLSeconds: 0,
        },
        Store: Store{Path: ""},
    }
}

// Load reads JSON config from path. If path is empty or the file does not
// exist, it returns defaults. Environment variables override select fields.
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
    applyEnv(&cfg)
    return cfg, nil
}

func applyEnv(cfg *Config) {
    if v := os.Getenv("PORT"); v != "" { cfg.Server.Port = v }
    if v := os.Getenv("REQUEST_TIMEOUT_SEC"); v != "" {
        var x int; fmt.Sscanf(v, "%d", &x); if x > 0 { cfg.Server.RequestTimeoutSec = x }
    }

    if v := os.Getenv("INVESTING_ENABLED"); v != "" { cfg.Investing.Enabled = parseBool(v, cfg.Investing.Enabled) }
    if v := os.Getenv("INVESTING_ENDPOINT"); v != "" { cfg.Investing.Endpoint = v }
    if v := os.Getenv("INVESTING_API_KEY"); v != "" { cfg.Investing.APIKey = v }
    if v := os.Getenv("INVESTING_MAX_RPM"); v != "" {
        var x int; fmt.Sscanf(v, "%d", &x); if x >= 0 { cfg.Investing.MaxRequestsPerMinute = x }
    }
    if v := os.Getenv("INVESTING_MIN_INTERVAL_SEC"); v != "" {
        var x int; fmt.Sscanf(v, "%d", &x); if x >= 0 { cfg.Investing.MinRequestIntervalSec = x }
    }
    if v := os.Getenv("INVESTING_BURST"); v != "" {
        var x int; fmt.Sscanf(v, "%d", &x); if x > 0 { cfg.Investing.Burst = x }
    }
    if v := os.Getenv("INVESTING_MAX_CONCURRENCY"); v != "" {
        var x int; fmt.Sscanf(v, "%d", &x); if x > 0 { cfg.Investing.MaxConcurrency = x }
    }

    if v := os.Getenv("COINGECKO_ENABLED"); v != "" { cfg.Coingecko.Enabled = parseBool(v, cfg.Coingecko.Enabled) }
    if v := os.Getenv("COINGECKO_ENDPOINT"); v != "" { cfg.Coingecko.Endpoint = v }
    if v := os.Getenv("COINGECKO_API_KEY"); v != "" { cfg.Coingecko.APIKey = v }
    if v := os.Getenv("COINGECKO_MAX_RPM"); v != "" {
        var x int; fmt.Sscanf(v, "%d", &x); if x >= 0 { cfg.Coingecko.MaxRequestsPerMinute = x }
    }
    if v := os.Getenv("COINGECKO_MIN_INTERVAL_SEC"); v != "" {
        var x int; fmt.Sscanf(v, "%d", &x); if x >= 0 { cfg.Coingecko.MinRequestIntervalSec = x }
    }
    if v := os.Getenv("COINGECKO_BURST"); v != "" {
        var x int; fmt.Sscanf(v, "%d", &x); if x > 0 { cfg.Coingecko.Burst = x }
    }
    if v := os.Getenv("COINGECKO_VS_CACHE_TTL_SEC"); v != "" {
        var x int; fmt.Sscanf(v, "%d", &x); if x >= 0 { cfg.Coingecko.VsCacheTTLSeconds = x }
    }

    if v := os.Getenv("YAHOO_ENABLED"); v != "" { cfg.Yahoo.Enabled = parseBool(v, cfg.Yahoo.Enabled) }
    if v := os.Getenv("YAHOO_ENDPOINT"); v != "" { cfg.Yahoo.Endpoint = v }
    if v := os.Getenv("YAHOO_MAX_RPM"); v != "" {
        var x int; fmt.Sscanf(v, "%d", &x); if x >= 0 { cfg.Yahoo.MaxRequestsPerMinute = x }
    }
    if v := os.Getenv("YAHOO_MIN_INTERVAL_SEC"); v != "" {
        var x int; fmt.Sscanf(v, "%d", &x); if x >= 0 { cfg.Yahoo.MinRequestIntervalSec = x }
    }
    if v := os.Getenv("YAHOO_BURST"); v != "" {
        var x int; fmt.Sscanf(v, "%d", &x); if x > 0 { cfg.Yahoo.Burst = x }
    }
    if v := os.Getenv("YAHOO_RANGE"); v != "" { cfg.Yahoo.Range = v }
    if v := os.Getenv("YAHOO_INTERVAL"); v != "" { cfg.Yahoo.Interval = v }

    if v := os.Getenv("SEARCH_CACHE_TTL_SEC"); v != "" {
        var x int; fmt.Sscanf(v, "%d", &x); if x >= 0 { cfg.Cache.SearchTTLSeconds = x }
    }
    if v := os.Getenv("HISTORY_CACHE_TTL_SEC"); v != "" {
        var x int; fmt.Sscanf(v, "%d", &x); if x >= 0 { cfg.Cache.HistoryTTLSeconds = x }
    }
    if v := os.Getenv("STORE_PATH"); v != "" { cfg.Store.Path = v }
}

func parseBool(v string, def bool) bool {
    switch strings.ToLower(v) {
    case "1", "true", "yes", "y":
        return true
    case "0", "false", "no", "n":
        return false
    }
    return def
}
