package config

import (
    "os"
    "strconv"
    "strings"
    "time"
)

// CacheConfig defines settings for the response cache middleware.
// When Enabled is false or no Redis client is configured, caching will be disabled.
// Methods lists the HTTP methods to cache (e.g. GET, HEAD).  TTL defines the
// lifetime of cache entries.  KeyStrategy determines which parts of the request
// contribute to the cache key.  Prefix and MaxBodyBytes allow control over
// namespacing and the maximum size of responses to cache.
type CacheConfig struct {
    Enabled      bool
    Methods      map[string]bool
    TTL          time.Duration
    KeyStrategy  string
    Prefix       string
    MaxBodyBytes int
}

// LoadCacheConfig reads environment variables to build a CacheConfig. The
// default TTL is short (2s) because seat-map reads during a flash sale go
// stale quickly; callers that want a slower-moving view can raise it.
func LoadCacheConfig() CacheConfig {
    return CacheConfig{
        Enabled:      getenv("SEATMAP_CACHE_ENABLED", "true") == "true",
        Methods:      parseMethods(getenv("SEATMAP_CACHE_METHODS", "GET")),
        TTL:          parseDur(getenv("SEATMAP_CACHE_TTL", "2s")),
        KeyStrategy:  getenv("SEATMAP_CACHE_KEY_STRATEGY", "route_query"),
        Prefix:       getenv("SEATMAP_CACHE_PREFIX", "seatmap"),
        MaxBodyBytes: atoi(getenv("SEATMAP_CACHE_MAX_BODY_BYTES", "1048576")),
    }
}

func parseMethods(s string) map[string]bool {
    m := map[string]bool{}
    for _, p := range strings.Split(s, ",") {
        p = strings.TrimSpace(strings.ToUpper(p))
        if p != "" {
            m[p] = true
        }
    }
    return m
}

// Helper functions used by LoadCacheConfig
func getenv(key, def string) string {
    if v := os.Getenv(key); v != "" {
        return v
    }
    return def
}

func atoi(s string) int {
    i, _ := strconv.Atoi(s)
    return i
}

func parseDur(s string) time.Duration {
    d, err := time.ParseDuration(s)
    if err != nil {
        return time.Second
    }
    return d
}