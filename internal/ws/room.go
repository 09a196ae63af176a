package ws

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var (
	ErrRoomNotFound = errors.New("room not found")
	ErrRoomFull     = errors.New("room is full")
)

// palette is the fixed set of colors handed out to joiners, in order.
// Beyond ten concurrent users colors repeat.
var palette = []string{
	"#FF0000", // red
	"#00FF00", // green
	"#0000FF", // blue
	"#FFFF00", // yellow
	"#FF00FF", // magenta
	"#00FFFF", // cyan
	"#FFA500", // orange
	"#800080", // purple
	"#FF1493", // deep pink
	"#32CD32", // lime green
}

// UserConn is one client's live participation in a Room.
type UserConn struct {
	ID    string
	Name  string
	Color string
	conn  *clientConn
}

// Room is a named collaborative session: bounded membership in join order,
// an append-only drawing log, and the color-assignment cursor. Every mutation
// happens under the room's own mutex, one lock per room.
type Room struct {
	ID          string
	MaxUsers    int
	CreatorName string

	mu          sync.Mutex
	conns       []*UserConn
	events      []json.RawMessage
	colorCursor int
}

func newRoom(id string, maxUsers int, creatorName string) *Room {
	return &Room{ID: id, MaxUsers: maxUsers, CreatorName: creatorName}
}

// AddConn admits a new member, assigning the next palette color. The capacity
// check and the append are a single critical section so concurrent joins
// cannot push the room past MaxUsers.
func (r *Room) AddConn(conn *clientConn, name string) (*UserConn, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.conns) >= r.MaxUsers {
		return nil, ErrRoomFull
	}

	uc := &UserConn{
		ID:    uuid.NewString(),
		Name:  name,
		Color: palette[r.colorCursor%len(palette)],
		conn:  conn,
	}
	r.colorCursor++
	r.conns = append(r.conns, uc)
	return uc, nil
}

// RemoveConn drops a member. No-op when the member already left.
func (r *Room) RemoveConn(uc *UserConn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeLocked(uc)
}

func (r *Room) removeLocked(uc *UserConn) {
	for i, c := range r.conns {
		if c == uc {
			r.conns = append(r.conns[:i], r.conns[i+1:]...)
			return
		}
	}
}

func (r *Room) IsFull() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns) >= r.MaxUsers
}

func (r *Room) UserCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}

// UsersInfo returns a snapshot of the membership in join order.
func (r *Room) UsersInfo() []UserInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]UserInfo, 0, len(r.conns))
	for _, c := range r.conns {
		out = append(out, UserInfo{ID: c.ID, Name: c.Name, Color: c.Color})
	}
	return out
}

func (r *Room) AppendEvent(event json.RawMessage) {
	r.mu.Lock()
	r.events = append(r.events, event)
	r.mu.Unlock()
}

func (r *Room) ClearEvents() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}

// seedEvents installs the history loaded from the store. Only applied while
// the log is still empty, so a re-hydration race cannot duplicate strokes.
func (r *Room) seedEvents(events []json.RawMessage) {
	r.mu.Lock()
	if len(r.events) == 0 {
		r.events = events
	}
	r.mu.Unlock()
}

// EventsSnapshot copies the log so the replay is immune to later appends.
func (r *Room) EventsSnapshot() []json.RawMessage {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]json.RawMessage, len(r.events))
	copy(out, r.events)
	return out
}

// Broadcast fans a message out to every member except the sender. Writes
// happen outside the room lock; members whose transport fails are collected
// and removed after the fan-out completes.
func (r *Room) Broadcast(msg any, exclude *UserConn) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}

	// Take a quick snapshot of the current connections
	r.mu.Lock()
	conns := make([]*UserConn, 0, len(r.conns))
	for _, c := range r.conns {
		if c != exclude {
			conns = append(conns, c)
		}
	}
	r.mu.Unlock()

	// Do the I/O outside the lock
	var failed []*UserConn
	for _, c := range conns {
		if err := c.conn.write(websocket.TextMessage, data); err != nil {
			failed = append(failed, c)
		}
	}
	for _, c := range failed {
		r.RemoveConn(c)
		_ = c.conn.rawConn.Close()
	}
}

// CloseAll disconnects every member. Used by room deletion; the caller is
// responsible for removing the room from the registry afterwards.
func (r *Room) CloseAll(reason string) {
	r.mu.Lock()
	conns := make([]*UserConn, len(r.conns))
	copy(conns, r.conns)
	r.mu.Unlock()

	for _, c := range conns {
		c.conn.closeWith(websocket.CloseNormalClosure, reason)
	}
}
