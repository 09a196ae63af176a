package http_server

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/http"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"drawonlinego/internal/config"
	"drawonlinego/internal/http/middleware"
	"drawonlinego/internal/http/roomhandler"
	"drawonlinego/internal/services/room"
	"drawonlinego/internal/ws"
)

type httpServer struct {
	listenPort  uint16
	srv         http.Server
	ln          net.Listener
	roomService room.IRoomService
	wsSrv       *ws.WsServer
	db          *sql.DB
	rdc         *redis.Client
	cfg         *config.Config
}

func NewHttpServer(cfg *config.Config, wsSrv *ws.WsServer,
	roomService room.IRoomService, db *sql.DB, rdc *redis.Client) *httpServer {
	return &httpServer{
		listenPort:  cfg.HttpServerPort,
		wsSrv:       wsSrv,
		roomService: roomService,
		db:          db,
		rdc:         rdc,
		cfg:         cfg,
	}
}

func (h *httpServer) Start() error {
	var err error
	listenAddr := fmt.Sprintf(":%d", h.listenPort)
	h.ln, err = net.Listen("tcp", listenAddr)
	if err != nil {
		return err
	}

	routerEngine := gin.New()

	// Static files for the web UI
	routerEngine.StaticFile("/", "public/index.html")
	routerEngine.Static("/static", "public/static")

	routerEngine.Use(ginzap.Ginzap(zap.L(), time.RFC3339, true))
	routerEngine.Use(ginzap.RecoveryWithZap(zap.L(), true))

	// websocket endpoint
	routerEngine.GET("/ws/:room_id", h.wsSrv.Handle)

	// REST API
	createLimiter := middleware.RateLimit(h.rdc, h.cfg.CreateRoomRatePerMin, time.Minute)
	rh := roomhandler.New(h.roomService, h.db, h.rdc)
	rh.Register(routerEngine, createLimiter)

	h.srv = http.Server{
		Handler: routerEngine,
	}

	return h.srv.Serve(h.ln)
}

// Dispose gracefully shuts the HTTP server down.
// It waits up to 10 s for in-flight requests to finish.
func (h *httpServer) Dispose() error {
	// Fresh context: the process signal context is already canceled by the
	// time shutdown starts.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := h.srv.Shutdown(ctx); err != nil {
		zap.L().Error("http_dispose", zap.Error(err))
		return err // e.g. active conns didn't finish in time
	}
	return nil
}
