package roomhandler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drawonlinego/internal/services/room"
	"drawonlinego/internal/store/drawstore"
	"drawonlinego/internal/store/roomstore"
	"drawonlinego/internal/ws"
)

func newTestRouter(t *testing.T) (*gin.Engine, *ws.Registry) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	reg := ws.NewRegistry()
	svc := room.NewRoomService(reg, roomstore.New(nil), drawstore.New(nil), 5)
	h := New(svc, nil, nil)

	engine := gin.New()
	passThrough := func(c *gin.Context) { c.Next() }
	h.Register(engine, passThrough)
	return engine, reg
}

func doJSON(t *testing.T, engine *gin.Engine, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	var out map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	}
	return w, out
}

func TestCreateRoomEndpoint(t *testing.T) {
	engine, reg := newTestRouter(t)

	w, body := doJSON(t, engine, http.MethodPost, "/api/rooms/create",
		`{"max_users": 3, "creator_name": "alice"}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(3), body["max_users"])
	assert.Equal(t, "alice", body["creator_name"])
	roomID := body["room_id"].(string)
	assert.True(t, reg.Exists(roomID))
	assert.Equal(t, "/draw/"+roomID, body["shareable_url"])
}

func TestCreateRoomEmptyBodyUsesDefaults(t *testing.T) {
	engine, _ := newTestRouter(t)

	w, body := doJSON(t, engine, http.MethodPost, "/api/rooms/create", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(5), body["max_users"])
	assert.Equal(t, "Anonymous", body["creator_name"])
}

func TestCreateRoomRejectsBadBounds(t *testing.T) {
	engine, _ := newTestRouter(t)

	w, _ := doJSON(t, engine, http.MethodPost, "/api/rooms/create", `{"max_users": 99}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRoomInfoEndpoint(t *testing.T) {
	engine, reg := newTestRouter(t)
	reg.CreateRoom("room-1", 2, "alice")

	w, body := doJSON(t, engine, http.MethodGet, "/api/rooms/room-1", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "room-1", body["room_id"])
	assert.Equal(t, true, body["exists"])
	assert.Equal(t, float64(0), body["active_users"])
}

func TestRoomInfoNotFound(t *testing.T) {
	engine, _ := newTestRouter(t)

	w, _ := doJSON(t, engine, http.MethodGet, "/api/rooms/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteRoomEndpoint(t *testing.T) {
	engine, reg := newTestRouter(t)
	reg.CreateRoom("room-1", 2, "alice")

	w, _ := doJSON(t, engine, http.MethodDelete, "/api/rooms/room-1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, reg.Exists("room-1"))

	w, _ = doJSON(t, engine, http.MethodDelete, "/api/rooms/room-1", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStatsEndpoint(t *testing.T) {
	engine, reg := newTestRouter(t)
	reg.CreateRoom("room-1", 4, "alice")

	w, body := doJSON(t, engine, http.MethodGet, "/api/rooms/room-1/stats", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "alice", body["creator_name"])
	assert.Equal(t, float64(4), body["max_users"])
}

func TestHealthEndpoint(t *testing.T) {
	engine, reg := newTestRouter(t)
	reg.CreateRoom("room-1", 2, "alice")

	w, body := doJSON(t, engine, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "disconnected", body["database"])
	assert.Equal(t, float64(1), body["active_rooms"])
}
