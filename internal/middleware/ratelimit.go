package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

// RateLimit returns an Echo middleware enforcing a fixed-window request
// limit per client IP and route, backed by Redis so the limit holds across
// replicas.  The window is one minute.  The limiter fails open: when rdb is
// nil or Redis errors, requests pass through — availability of the booking
// API matters more than strict limiting.
func RateLimit(rdb *redis.Client, perMinute int) echo.MiddlewareFunc {
	if rdb == nil || perMinute <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			now := time.Now().UTC()
			key := fmt.Sprintf("rl:%s:%s:%d", c.RealIP(), c.Path(), now.Unix()/60)

			ctx := c.Request().Context()
			n, err := rdb.Incr(ctx, key).Result()
			if err != nil {
				return next(c)
			}
			if n == 1 {
				// first hit in this window; expire a little past the window
				// edge so clock skew cannot strand the key
				_ = rdb.Expire(ctx, key, 90*time.Second).Err()
			}
			if n > int64(perMinute) {
				return c.JSON(http.StatusTooManyRequests, echo.Map{"error": "rate limit exceeded"})
			}
			return next(c)
		}
	}
}
