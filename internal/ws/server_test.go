package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drawonlinego/internal/store/drawstore"
	"drawonlinego/internal/store/roomstore"
)

func newTestServer(t *testing.T, reg *Registry) (*httptest.Server, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	srv := NewWsServer(reg, roomstore.New(nil), drawstore.New(nil))
	engine := gin.New()
	engine.GET("/ws/:room_id", srv.Handle)

	ts := httptest.NewServer(engine)
	t.Cleanup(ts.Close)

	wsBase := "ws" + strings.TrimPrefix(ts.URL, "http")
	return ts, wsBase
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readJSON(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg map[string]any
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func expectCloseCode(t *testing.T, conn *websocket.Conn, code int) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	closeErr, ok := err.(*websocket.CloseError)
	require.True(t, ok, "expected close error, got %v", err)
	assert.Equal(t, code, closeErr.Code)
}

func join(t *testing.T, conn *websocket.Conn, name string) map[string]any {
	t.Helper()
	info := readJSON(t, conn)
	require.Equal(t, "room_info", info["type"])
	require.NoError(t, conn.WriteJSON(map[string]any{"type": "join", "userName": name}))
	connected := readJSON(t, conn)
	require.Equal(t, "connected", connected["type"])
	return connected
}

func TestUnknownRoomIsClosedWithNotFoundCode(t *testing.T) {
	reg := NewRegistry()
	_, wsBase := newTestServer(t, reg)

	conn := dial(t, wsBase+"/ws/nope")
	expectCloseCode(t, conn, CloseRoomNotFound)
}

func TestRoomFullScenario(t *testing.T) {
	reg := NewRegistry()
	room, _ := reg.CreateRoom("room-1", 2, "creator")
	_, wsBase := newTestServer(t, reg)

	a := dial(t, wsBase+"/ws/room-1")
	connectedA := join(t, a, "A")
	assert.Equal(t, float64(1), connectedA["activeUsers"])

	b := dial(t, wsBase+"/ws/room-1")
	connectedB := join(t, b, "B")
	assert.Equal(t, float64(2), connectedB["activeUsers"])

	// A learns about B.
	joined := readJSON(t, a)
	assert.Equal(t, "user_joined", joined["type"])
	assert.Equal(t, float64(2), joined["activeUsers"])

	// Third connection is refused outright.
	c := dial(t, wsBase+"/ws/room-1")
	expectCloseCode(t, c, CloseRoomFull)

	assert.Equal(t, 2, room.UserCount())
}

func TestJoinOverCapacityAtJoinTime(t *testing.T) {
	reg := NewRegistry()
	reg.CreateRoom("room-1", 1, "creator")
	_, wsBase := newTestServer(t, reg)

	// Both connect while the room still has a seat; only one join wins it.
	a := dial(t, wsBase+"/ws/room-1")
	b := dial(t, wsBase+"/ws/room-1")
	infoA := readJSON(t, a)
	require.Equal(t, "room_info", infoA["type"])
	infoB := readJSON(t, b)
	require.Equal(t, "room_info", infoB["type"])

	require.NoError(t, a.WriteJSON(map[string]any{"type": "join", "userName": "A"}))
	connected := readJSON(t, a)
	require.Equal(t, "connected", connected["type"])

	require.NoError(t, b.WriteJSON(map[string]any{"type": "join", "userName": "B"}))
	expectCloseCode(t, b, CloseRoomFull)
}

func TestDrawIsReplayedToLateJoinerWithAssignedIdentity(t *testing.T) {
	reg := NewRegistry()
	room, _ := reg.CreateRoom("room-1", 5, "creator")
	_, wsBase := newTestServer(t, reg)

	a := dial(t, wsBase+"/ws/room-1")
	connectedA := join(t, a, "A")
	colorA := connectedA["color"].(string)

	// Client-supplied color and name must be overridden server-side.
	require.NoError(t, a.WriteJSON(map[string]any{
		"type": "draw", "prevX": 1.0, "prevY": 2.0, "x": 3.0, "y": 4.0,
		"color": "#123456", "userName": "Mallory",
	}))
	require.Eventually(t, func() bool {
		return len(room.EventsSnapshot()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	b := dial(t, wsBase+"/ws/room-1")
	info := readJSON(t, b)
	require.Equal(t, "room_info", info["type"])
	require.NoError(t, b.WriteJSON(map[string]any{"type": "join", "userName": "B"}))

	connected := readJSON(t, b)
	require.Equal(t, "connected", connected["type"])

	initMsg := readJSON(t, b)
	require.Equal(t, "init", initMsg["type"])
	data := initMsg["data"].([]any)
	require.Len(t, data, 1)

	event := data[0].(map[string]any)
	assert.Equal(t, "A", event["userName"])
	assert.Equal(t, colorA, event["color"])
	assert.Equal(t, float64(3), event["x"])
}

func TestDrawIsBroadcastToPeersOnly(t *testing.T) {
	reg := NewRegistry()
	reg.CreateRoom("room-1", 5, "creator")
	_, wsBase := newTestServer(t, reg)

	a := dial(t, wsBase+"/ws/room-1")
	connectedA := join(t, a, "A")

	b := dial(t, wsBase+"/ws/room-1")
	join(t, b, "B")
	readJSON(t, a) // user_joined for B

	require.NoError(t, a.WriteJSON(map[string]any{"type": "draw", "x": 7.0, "y": 8.0}))

	got := readJSON(t, b)
	assert.Equal(t, "draw", got["type"])
	assert.Equal(t, float64(7), got["x"])
	assert.Equal(t, "A", got["userName"])
	assert.Equal(t, connectedA["color"], got["color"])
}

func TestClearScenario(t *testing.T) {
	reg := NewRegistry()
	room, _ := reg.CreateRoom("room-1", 5, "creator")
	_, wsBase := newTestServer(t, reg)

	a := dial(t, wsBase+"/ws/room-1")
	join(t, a, "A")
	b := dial(t, wsBase+"/ws/room-1")
	join(t, b, "B")
	readJSON(t, a) // user_joined for B

	require.NoError(t, a.WriteJSON(map[string]any{"type": "draw", "x": 1.0}))
	readJSON(t, b) // the draw

	require.NoError(t, a.WriteJSON(map[string]any{"type": "clear"}))
	got := readJSON(t, b)
	assert.Equal(t, "clear", got["type"])

	assert.Empty(t, room.EventsSnapshot())
}

func TestAbruptDisconnectNotifiesPeers(t *testing.T) {
	reg := NewRegistry()
	room, _ := reg.CreateRoom("room-1", 5, "creator")
	_, wsBase := newTestServer(t, reg)

	a := dial(t, wsBase+"/ws/room-1")
	join(t, a, "A")
	b := dial(t, wsBase+"/ws/room-1")
	join(t, b, "B")
	readJSON(t, a) // user_joined for B

	require.NoError(t, a.Close())

	left := readJSON(t, b)
	assert.Equal(t, "user_left", left["type"])
	assert.Equal(t, float64(1), left["activeUsers"])

	for _, u := range room.UsersInfo() {
		assert.NotEqual(t, "A", u.Name)
	}
}

func TestMessagesBeforeJoinAreIgnored(t *testing.T) {
	reg := NewRegistry()
	room, _ := reg.CreateRoom("room-1", 5, "creator")
	_, wsBase := newTestServer(t, reg)

	a := dial(t, wsBase+"/ws/room-1")
	info := readJSON(t, a)
	require.Equal(t, "room_info", info["type"])

	// Draw and clear before join are silently dropped.
	require.NoError(t, a.WriteJSON(map[string]any{"type": "draw", "x": 1.0}))
	require.NoError(t, a.WriteJSON(map[string]any{"type": "clear"}))
	require.NoError(t, a.WriteJSON(map[string]any{"type": "join", "userName": "A"}))

	connected := readJSON(t, a)
	assert.Equal(t, "connected", connected["type"])
	assert.Empty(t, room.EventsSnapshot())
}

// wsPair upgrades one ad-hoc connection and hands back its server side, so a
// room member can be constructed without a session loop around it.
func wsPair(t *testing.T) (client *websocket.Conn, server *websocket.Conn) {
	t.Helper()
	upgrader := websocket.Upgrader{}
	serverConns := make(chan *websocket.Conn, 1)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		serverConns <- conn
	}))
	t.Cleanup(ts.Close)

	client = dial(t, "ws"+strings.TrimPrefix(ts.URL, "http"))
	server = <-serverConns
	t.Cleanup(func() { server.Close() })
	return client, server
}

func TestBroadcastPrunesDeadConnections(t *testing.T) {
	room := newRoom("room-1", 5, "creator")

	_, aliveSrv := wsPair(t)
	_, deadSrv := wsPair(t)

	alive, err := room.AddConn(&clientConn{rawConn: aliveSrv}, "alive")
	require.NoError(t, err)
	_, err = room.AddConn(&clientConn{rawConn: deadSrv}, "dead")
	require.NoError(t, err)
	require.NoError(t, deadSrv.Close())

	room.Broadcast(json.RawMessage(`{"type":"draw"}`), nil)

	require.Equal(t, 1, room.UserCount())
	info := room.UsersInfo()
	assert.Equal(t, alive.ID, info[0].ID)
}
