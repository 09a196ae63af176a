// Package presence mirrors live per-room member counts into Redis so
// external consumers (ops dashboards, other services) can read occupancy
// without touching the server. The mirror is advisory; the in-process
// registry stays the source of truth.
package presence

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"drawonlinego/internal/ws"
)

const (
	hashKey     = "draw:presence"
	hashTTL     = 30 * time.Second
	syncPeriod  = 10 * time.Second
	syncTimeout = 1500 * time.Millisecond
)

// Run starts the mirror loop. It returns immediately; with a nil client it
// starts nothing.
func Run(ctx context.Context, rdc *redis.Client, reg *ws.Registry) {
	if rdc == nil {
		return
	}
	tk := time.NewTicker(syncPeriod)
	go func() {
		defer tk.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-tk.C:
				syncOnce(ctx, rdc, reg)
			}
		}
	}()
}

func syncOnce(ctx context.Context, rdc *redis.Client, reg *ws.Registry) {
	counts := reg.Counts()

	ctx, cancel := context.WithTimeout(ctx, syncTimeout)
	defer cancel()

	// Rewrite the whole hash in one pipelined round-trip so rooms that
	// disappeared since the last tick don't linger.
	pipe := rdc.Pipeline()
	pipe.Del(ctx, hashKey)
	if len(counts) > 0 {
		fields := make([]any, 0, len(counts)*2)
		for roomID, n := range counts {
			fields = append(fields, roomID, n)
		}
		pipe.HSet(ctx, hashKey, fields...)
		pipe.Expire(ctx, hashKey, hashTTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		zap.L().Warn("presence.sync", zap.Error(err))
	}
}
