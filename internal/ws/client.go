package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

type clientConn struct {
	rawConn *websocket.Conn
	mu      sync.Mutex
}

func (c *clientConn) write(mt int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_ = c.rawConn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.rawConn.WriteMessage(mt, data) // Text/Binary only
}

func (c *clientConn) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_ = c.rawConn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.rawConn.WriteJSON(v)
}

// closeWith sends a close control frame with the given code, then tears the
// transport down. Used for the room-full / room-not-found denial path.
func (c *clientConn) closeWith(code int, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	msg := websocket.FormatCloseMessage(code, reason)
	_ = c.rawConn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	_ = c.rawConn.Close()
}
