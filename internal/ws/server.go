package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"drawonlinego/internal/store/drawstore"
	"drawonlinego/internal/store/roomstore"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10 // must be < pongWait

	maxFrameSize = 4096

	// Budget for any single write-through persistence call. Failures are
	// logged and swallowed; the live session never waits longer than this.
	storeTimeout = 2 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true }, // dev-only
}

// WsServer drives one session per websocket connection: accept, explicit
// join, draw/clear loop, teardown. Room state changes go through the Room;
// persistence is written through best-effort.
type WsServer struct {
	registry  *Registry
	roomStore *roomstore.Store
	drawStore *drawstore.Store
}

func NewWsServer(reg *Registry, rooms *roomstore.Store, draws *drawstore.Store) *WsServer {
	return &WsServer{
		registry:  reg,
		roomStore: rooms,
		drawStore: draws,
	}
}

// ---------------------------------------------------------------------------
//  Public: Gin entry-point
// ---------------------------------------------------------------------------

func (s *WsServer) Handle(ginCtx *gin.Context) {
	roomID := ginCtx.Param("room_id")

	room := s.resolveRoom(ginCtx.Request.Context(), roomID)

	rawConn, err := upgrader.Upgrade(ginCtx.Writer, ginCtx.Request, nil)
	if err != nil {
		zap.L().Warn("ws.upgrade", zap.Error(err))
		return
	}
	rawConn.SetReadLimit(maxFrameSize)
	wsConn := &clientConn{rawConn: rawConn}

	if room == nil {
		wsConn.closeWith(CloseRoomNotFound, "Room not found")
		return
	}
	if room.IsFull() {
		wsConn.closeWith(CloseRoomFull, "Room is full")
		return
	}

	go s.session(room, wsConn)
	go s.pinger(wsConn)
}

// ---------------------------------------------------------------------------
//  Private helpers
// ---------------------------------------------------------------------------

// resolveRoom returns the live room, lazily hydrating it from the store when
// this is the first connection since the process started. History is seeded
// only by whichever caller actually inserted the room.
func (s *WsServer) resolveRoom(ctx context.Context, roomID string) *Room {
	if room, err := s.registry.GetRoom(roomID); err == nil {
		return room
	}

	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	rec, ok := s.roomStore.Get(ctx, roomID)
	if !ok {
		return nil
	}
	room, created := s.registry.CreateRoom(roomID, rec.MaxUsers, rec.CreatorName)
	if created {
		room.seedEvents(s.drawStore.LoadAll(ctx, roomID))
	}
	return room
}

// session is the per-connection protocol loop. It owns the read side of the
// transport; every state change it makes is broadcast to the other members.
func (s *WsServer) session(room *Room, conn *clientConn) {
	var user *UserConn

	defer func() {
		s.teardown(room, conn, user)
	}()

	_ = conn.rawConn.SetReadDeadline(time.Now().Add(pongWait))
	conn.rawConn.SetPongHandler(func(string) error {
		return conn.rawConn.SetReadDeadline(time.Now().Add(pongWait))
	})

	// Room metadata goes out before the client commits to joining.
	if err := conn.writeJSON(RoomInfoMsg{
		Type:        "room_info",
		CreatorName: room.CreatorName,
		MaxUsers:    room.MaxUsers,
	}); err != nil {
		return
	}

	for {
		_, raw, err := conn.rawConn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				zap.L().Debug("ws.read", zap.String("room_id", room.ID), zap.Error(err))
			}
			return
		}

		var frame inboundFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			// Malformed frame: drop it, keep the session.
			zap.L().Debug("ws.bad_frame", zap.String("room_id", room.ID), zap.Error(err))
			continue
		}

		switch frame.Type {
		case frameJoin:
			if user != nil {
				continue // already joined
			}
			user, err = s.handleJoin(room, conn, frame.UserName)
			if err != nil {
				if errors.Is(err, ErrRoomFull) {
					conn.closeWith(CloseRoomFull, "Room is full")
				}
				return
			}

		case frameDraw:
			if user == nil {
				continue // draw before join is ignored
			}
			s.handleDraw(room, user, raw)

		case frameClear:
			if user == nil {
				continue
			}
			s.handleClear(room, user)

		default:
			// Unknown types are dropped, not fatal.
		}
	}
}

func (s *WsServer) handleJoin(room *Room, conn *clientConn, userName string) (*UserConn, error) {
	if userName == "" {
		userName = "Anonymous"
	}

	user, err := room.AddConn(conn, userName)
	if err != nil {
		return nil, err
	}

	if err := conn.writeJSON(ConnectedMsg{
		Type:        "connected",
		Color:       user.Color,
		ActiveUsers: room.UserCount(),
		MaxUsers:    room.MaxUsers,
		Users:       room.UsersInfo(),
	}); err != nil {
		room.RemoveConn(user)
		return nil, err
	}

	// Replay history to this client only, in original receipt order.
	if events := room.EventsSnapshot(); len(events) > 0 {
		if err := conn.writeJSON(InitMsg{Type: "init", Data: events}); err != nil {
			room.RemoveConn(user)
			return nil, err
		}
	}

	room.Broadcast(PresenceMsg{
		Type:        "user_joined",
		ActiveUsers: room.UserCount(),
		MaxUsers:    room.MaxUsers,
		Users:       room.UsersInfo(),
	}, user)

	s.logActivity(room.ID, user.Name, roomstore.ActivityJoined)
	return user, nil
}

func (s *WsServer) handleDraw(room *Room, user *UserConn, raw []byte) {
	// Re-encode with the server-assigned identity; a client cannot spoof
	// another member's color or name.
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return
	}
	fields["userName"] = user.Name
	fields["color"] = user.Color

	event, err := json.Marshal(fields)
	if err != nil {
		return
	}

	room.AppendEvent(event)

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	s.drawStore.Save(ctx, room.ID, event, user.Name)
	cancel()

	room.Broadcast(json.RawMessage(event), user)
}

func (s *WsServer) handleClear(room *Room, user *UserConn) {
	room.ClearEvents()

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	s.drawStore.Clear(ctx, room.ID)
	cancel()

	s.logActivity(room.ID, user.Name, roomstore.ActivityClearedCanvas)

	room.Broadcast(ClearMsg{Type: "clear"}, user)
}

// teardown runs exactly once per session, whatever ended it.
func (s *WsServer) teardown(room *Room, conn *clientConn, user *UserConn) {
	_ = conn.rawConn.Close()

	if user == nil {
		return // never joined, nothing to announce
	}

	s.logActivity(room.ID, user.Name, roomstore.ActivityLeft)
	room.RemoveConn(user)

	room.Broadcast(PresenceMsg{
		Type:        "user_left",
		ActiveUsers: room.UserCount(),
		MaxUsers:    room.MaxUsers,
		Users:       room.UsersInfo(),
	}, nil)

	// Empty rooms stay registered so a reconnecting user finds the drawing
	// still there; they only go away on explicit deletion.
	if room.UserCount() == 0 {
		zap.L().Info("ws.room_empty", zap.String("room_id", room.ID))
	}
}

func (s *WsServer) logActivity(roomID, userName, activity string) {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	s.roomStore.LogActivity(ctx, roomID, userName, activity)
}

func (s *WsServer) pinger(conn *clientConn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for range ticker.C {
		if err := conn.write(websocket.PingMessage, nil); err != nil {
			_ = conn.rawConn.Close()
			return
		}
	}
}
