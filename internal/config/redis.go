package config

// Redis backs the registration rate limiter and the public listing
// cache.  Both degrade gracefully: when the connection cannot be
// established at startup this constructor returns nil and callers
// disable the dependent features.

import (
    "context"
    "os"
    "time"

    "github.com/redis/go-redis/v9"
)

// NewRedisClient instantiates a Redis client from REDIS_ADDR (default
// localhost:6379), REDIS_PASSWORD and REDIS_DB.  Returns nil when the
// server cannot be reached.
func NewRedisClient() *redis.Client {
    addr := envStr("REDIS_ADDR", "localhost:6379")
    client := redis.NewClient(&redis.Options{
        Addr:     addr,
        Password: os.Getenv("REDIS_PASSWORD"),
        DB:       envInt("REDIS_DB", 0),
    })
    ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
    defer cancel()
    if err := client.Ping(ctx).Err(); err != nil {
        return nil
    }
    return client
}

// RateLimitConfig tunes the fixed-window limiter applied to the
// registration endpoint.  Limit requests per Window per user.
type RateLimitConfig struct {
    Enabled bool
    Limit   int
    Window  time.Duration
    Prefix  string
}

// LoadRateLimitConfig reads limiter settings with sane defaults: ten
// registration attempts per user per minute.
func LoadRateLimitConfig() RateLimitConfig {
    cfg := RateLimitConfig{
        Enabled: envStr("RATE_LIMIT_ENABLED", "true") == "true",
        Limit:   envInt("RATE_LIMIT_MAX", 10),
        Window:  envDur("RATE_LIMIT_WINDOW", time.Minute),
        Prefix:  envStr("RATE_LIMIT_PREFIX", "rl"),
    }
    if cfg.Limit < 1 {
        cfg.Limit = 1
    }
    return cfg
}
