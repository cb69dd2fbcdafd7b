package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"certhub/pkg/redis"
	"certhub/pkg/response"
)

// RateLimit throttles a public route per client IP with a Redis sliding
// window. It fails open: with no Redis, or when Redis errors, requests pass.
func RateLimit(rdb *redis.Client, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rdb == nil || limit <= 0 {
			c.Next()
			return
		}

		a, err := rdb.CheckRateLimit(c.Request.Context(), c.FullPath()+"|"+c.ClientIP(), limit, window)
		if err != nil {
			_ = c.Error(err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		if !a.Allowed {
			c.Header("X-RateLimit-Remaining", "0")
			c.Header("Retry-After", strconv.Itoa(int(window.Seconds())))
			response.Error(c, http.StatusTooManyRequests, 10004, "too many verification lookups, try again later")
			c.Abort()
			return
		}
		c.Header("X-RateLimit-Remaining", strconv.Itoa(a.Remaining))
		c.Next()
	}
}
