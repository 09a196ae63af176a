package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RateLimit limits requests per client IP using a Redis counter with a
// rolling window (INCR + EXPIRE in one pipeline). With no Redis client the
// middleware is a pass-through, matching the server's degraded mode.
// On Redis errors it fails open: dropping a request because the limiter is
// down would be worse than letting it through.
func RateLimit(rdc *redis.Client, maxRequests int, window time.Duration) gin.HandlerFunc {
	if rdc == nil {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		key := "ratelimit:" + c.ClientIP()

		pipe := rdc.Pipeline()
		incr := pipe.Incr(c.Request.Context(), key)
		pipe.Expire(c.Request.Context(), key, window)
		if _, err := pipe.Exec(c.Request.Context()); err != nil {
			zap.L().Warn("ratelimit.pipeline", zap.Error(err))
			c.Next()
			return
		}

		if incr.Val() > int64(maxRequests) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}
