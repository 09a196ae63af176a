package ws

import "encoding/json"

// Inbound frame types.
const (
	frameJoin  = "join"
	frameDraw  = "draw"
	frameClear = "clear"
)

// WebSocket close codes surfaced to clients denied admission.
const (
	CloseRoomFull     = 4003
	CloseRoomNotFound = 4004
)

// inboundFrame is the envelope every client frame starts with. Draw frames
// carry stroke geometry on top of this; those fields pass through verbatim.
type inboundFrame struct {
	Type     string `json:"type"`
	UserName string `json:"userName"`
}

// UserInfo is the public shape of one room member.
type UserInfo struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// ──────────────────────────── Outbound DTOs ──────────────────────────────

// RoomInfoMsg is sent right after the transport handshake.
type RoomInfoMsg struct {
	Type        string `json:"type"` // "room_info"
	CreatorName string `json:"creatorName"`
	MaxUsers    int    `json:"maxUsers"`
}

// ConnectedMsg confirms a successful join to the joining client only.
type ConnectedMsg struct {
	Type        string     `json:"type"` // "connected"
	Color       string     `json:"color"`
	ActiveUsers int        `json:"activeUsers"`
	MaxUsers    int        `json:"maxUsers"`
	Users       []UserInfo `json:"users"`
}

// InitMsg replays the room's drawing history to a late joiner.
type InitMsg struct {
	Type string            `json:"type"` // "init"
	Data []json.RawMessage `json:"data"`
}

// PresenceMsg announces membership changes ("user_joined" / "user_left").
type PresenceMsg struct {
	Type        string     `json:"type"`
	ActiveUsers int        `json:"activeUsers"`
	MaxUsers    int        `json:"maxUsers"`
	Users       []UserInfo `json:"users"`
}

// ClearMsg tells peers the canvas was wiped.
type ClearMsg struct {
	Type string `json:"type"` // "clear"
}
