package middleware

import (
    "bytes"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"
)

// bodyRecorder tees the response body so successful payloads can be
// stored after the handler runs.
type bodyRecorder struct {
    http.ResponseWriter
    status int
    buf    bytes.Buffer
}

func (w *bodyRecorder) WriteHeader(code int) {
    w.status = code
    w.ResponseWriter.WriteHeader(code)
}

func (w *bodyRecorder) Write(b []byte) (int, error) {
    w.buf.Write(b)
    return w.ResponseWriter.Write(b)
}

// CacheListing caches successful GET responses in Redis for ttl, keyed
// by route and query string.  It is applied only to the public event
// listing, which every client polls; admission always reads fresh
// counts from the database, so a stale listing never affects decisions.
// With a nil client the middleware is a no-op.
func CacheListing(rdb *redis.Client, ttl time.Duration) echo.MiddlewareFunc {
    if rdb == nil {
        return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if c.Request().Method != http.MethodGet {
                return next(c)
            }
            key := "cache:" + c.Path() + "?" + c.Request().URL.RawQuery
            ctx := c.Request().Context()

            if body, err := rdb.Get(ctx, key).Bytes(); err == nil {
                c.Response().Header().Set("X-Cache", "HIT")
                return c.JSONBlob(http.StatusOK, body)
            }

            rec := &bodyRecorder{ResponseWriter: c.Response().Writer, status: http.StatusOK}
            c.Response().Writer = rec
            if err := next(c); err != nil {
                return err
            }
            if rec.status == http.StatusOK && rec.buf.Len() > 0 {
                rdb.Set(ctx, key, rec.buf.Bytes(), ttl)
            }
            return nil
        }
    }
}
