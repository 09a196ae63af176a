package roomhandler

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"drawonlinego/internal/services/room"
	"drawonlinego/internal/ws"
)

type Handler struct {
	svc room.IRoomService
	db  *sql.DB
	rdc *redis.Client
}

func New(svc room.IRoomService, db *sql.DB, rdc *redis.Client) *Handler {
	return &Handler{svc: svc, db: db, rdc: rdc}
}

// Register mounts the room API. createLimiter guards the creation endpoint.
func (h *Handler) Register(r gin.IRoutes, createLimiter gin.HandlerFunc) {
	r.POST("/api/rooms/create", createLimiter, h.create)
	r.GET("/api/rooms", h.list)
	r.GET("/api/rooms/:id", h.info)
	r.DELETE("/api/rooms/:id", h.delete)
	r.GET("/api/rooms/:id/stats", h.stats)
	r.GET("/health", h.health)
	r.GET("/api", h.root)
}

func (h *Handler) create(c *gin.Context) {
	var body CreateRoomBody
	// Empty body is fine; all fields have defaults.
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}
	}

	dto, err := h.svc.CreateRoom(c.Request.Context(), body.MaxUsers, body.CreatorName)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto)
}

func (h *Handler) info(c *gin.Context) {
	dto, err := h.svc.GetRoomInfo(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Room not found"})
		return
	}
	c.JSON(http.StatusOK, dto)
}

func (h *Handler) list(c *gin.Context) {
	out := h.svc.ListRooms(c.Request.Context())
	if out == nil {
		out = []room.RoomListItemDTO{}
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) delete(c *gin.Context) {
	roomID := c.Param("id")
	if err := h.svc.DeleteRoom(c.Request.Context(), roomID); err != nil {
		if errors.Is(err, ws.ErrRoomNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "Room not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, DeleteResponse{Message: fmt.Sprintf("Room %s deleted successfully", roomID)})
}

func (h *Handler) stats(c *gin.Context) {
	dto, err := h.svc.Stats(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Room not found"})
		return
	}
	c.JSON(http.StatusOK, dto)
}

func (h *Handler) health(c *gin.Context) {
	dbStatus := "disconnected"
	if h.db != nil && h.db.PingContext(c.Request.Context()) == nil {
		dbStatus = "connected"
	}
	redisStatus := "disconnected"
	if h.rdc != nil && h.rdc.Ping(c.Request.Context()).Err() == nil {
		redisStatus = "connected"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":       "healthy",
		"database":     dbStatus,
		"redis":        redisStatus,
		"active_rooms": h.svc.ActiveRooms(),
	})
}

func (h *Handler) root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Draw Online API",
		"status":  "running",
		"endpoints": gin.H{
			"health":      "/health",
			"create_room": "/api/rooms/create",
			"websocket":   "/ws/{room_id}",
		},
	})
}
