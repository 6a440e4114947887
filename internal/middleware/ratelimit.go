package middleware

import (
    "fmt"
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/cmis-dev/event-registration/internal/config"
)

// RateLimit returns a fixed-window limiter backed by Redis, keyed per
// authenticated user and route.  The first request in a window INCRs
// the counter and sets its expiry; once the counter exceeds the limit
// the request is rejected with 429 and a Retry-After header.
//
// When the limiter is disabled or Redis is unavailable the middleware
// is a no-op: availability of the API wins over throttling accuracy.
func RateLimit(cfg config.RateLimitConfig, rdb *redis.Client) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            key := rateKey(cfg.Prefix, c)
            ctx := c.Request().Context()

            n, err := rdb.Incr(ctx, key).Result()
            if err != nil {
                // Redis trouble must not take the endpoint down.
                return next(c)
            }
            if n == 1 {
                rdb.Expire(ctx, key, cfg.Window)
            }

            remaining := int64(cfg.Limit) - n
            if remaining < 0 {
                remaining = 0
            }
            c.Response().Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.Limit))
            c.Response().Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

            if n > int64(cfg.Limit) {
                ttl, err := rdb.TTL(ctx, key).Result()
                if err != nil || ttl < 0 {
                    ttl = cfg.Window
                }
                secs := int(ttl / time.Second)
                c.Response().Header().Set("Retry-After", strconv.Itoa(secs))
                return c.JSON(http.StatusTooManyRequests, echo.Map{
                    "error":       "too_many_requests",
                    "retry_after": secs,
                })
            }
            return next(c)
        }
    }
}

func rateKey(prefix string, c echo.Context) string {
    who := c.RealIP()
    if uid, ok := c.Get("user_id").(uint64); ok && uid != 0 {
        who = strconv.FormatUint(uid, 10)
    }
    return fmt.Sprintf("%s:%s:%s:%s", prefix, who, c.Request().Method, c.Path())
}
