package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"drawonlinego/internal/config"
	"drawonlinego/internal/database/db_client"
	"drawonlinego/internal/http/http_server"
	"drawonlinego/internal/presence"
	"drawonlinego/internal/redis/redis_client"
	"drawonlinego/internal/services/room"
	"drawonlinego/internal/store/drawstore"
	"drawonlinego/internal/store/roomstore"
	"drawonlinego/internal/ws"
)

var (
	Log, _ = zap.NewDevelopment()
)

func main() {
	defer Log.Sync()
	zap.ReplaceGlobals(Log)

	// 1. Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		Log.Fatal("Failed to load configuration", zap.Error(err))
	}
	Log.Debug("Configuration loaded successfully", zap.Any("config", cfg))

	// 2. Context with signal handling
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGINT, syscall.SIGTERM,
	)
	defer stop()

	// 3. Postgres. The server keeps running without it: stores degrade to
	// logged no-ops and drawings live only in memory.
	pgDb, err := db_client.Open(cfg.PostgresHost, cfg.PostgresPort,
		cfg.PostgresUser, cfg.PostgresPassword, cfg.PostgresDb)
	if err != nil {
		Log.Warn("pg-open failed, continuing without persistence", zap.Error(err))
		pgDb = nil
	} else {
		defer pgDb.Close()
		if err := db_client.InitSchema(pgDb); err != nil {
			Log.Warn("pg-schema", zap.Error(err))
		}
	}

	// 4. Redis, same story: optional. Disables rate limiting and presence.
	var redisClient *redis.Client
	redisClient, err = redis_client.NewRedisClient(cfg.RedisHost, int(cfg.RedisPort))
	if err != nil {
		Log.Warn("redis unavailable, continuing without it", zap.Error(err))
		redisClient = nil
	} else {
		defer redisClient.Close()
	}

	// 5. Stores + in-memory room registry
	roomStore := roomstore.New(pgDb)
	drawStore := drawstore.New(pgDb)
	registry := ws.NewRegistry()

	// 6. Room service
	roomService := room.NewRoomService(registry, roomStore, drawStore, cfg.MaxUsersPerRoom)

	// 7. Background: presence mirror -> Redis
	presence.Run(ctx, redisClient, registry)

	// 8. WebSocket session server
	wsSrv := ws.NewWsServer(registry, roomStore, drawStore)

	// 9. HTTP + WS server
	httpServer := http_server.NewHttpServer(cfg, wsSrv, roomService, pgDb, redisClient)
	go func() {
		<-ctx.Done()
		_ = httpServer.Dispose()
	}()
	if err := httpServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		Log.Fatal("Failed to start HTTP server", zap.Error(err))
	}
}
