package redis_client

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient connects and pings within 5s. Callers treat a connection
// failure as degraded mode (rate limiting and the presence mirror switch
// off), not a fatal error.
func NewRedisClient(host string, port int) (*redis.Client, error) {
	maxPool := runtime.NumCPU() * 8
	if maxPool > 512 {
		maxPool = 512
	}

	rc := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		PoolSize: maxPool,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := rc.Ping(ctx).Result(); err != nil {
		rc.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	return rc, nil
}
