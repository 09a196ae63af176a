package room

import (
	"context"
	"fmt"
	"time"

	"drawonlinego/internal/store/drawstore"
	"drawonlinego/internal/store/roomstore"
	"drawonlinego/internal/ws"
)

type RoomDTO struct {
	RoomID       string `json:"room_id"`
	MaxUsers     int    `json:"max_users"`
	CreatorName  string `json:"creator_name"`
	ShareableURL string `json:"shareable_url"`
}

type RoomInfoDTO struct {
	RoomID      string `json:"room_id"`
	ActiveUsers int    `json:"active_users"`
	MaxUsers    int    `json:"max_users"`
	CreatorName string `json:"creator_name"`
	IsFull      bool   `json:"is_full"`
	Exists      bool   `json:"exists"`
}

type RoomListItemDTO struct {
	RoomID      string `json:"room_id"`
	MaxUsers    int    `json:"max_users"`
	CreatorName string `json:"creator_name"`
	ActiveUsers int    `json:"active_users"`
	IsActive    bool   `json:"is_active"`
	CreatedAt   string `json:"created_at"`
}

type RoomStatsDTO struct {
	RoomID         string                     `json:"room_id"`
	CreatorName    string                     `json:"creator_name"`
	ActiveUsers    int                        `json:"active_users"`
	MaxUsers       int                        `json:"max_users"`
	DrawingCount   int                        `json:"drawing_count"`
	UserActivities []roomstore.ActivityRecord `json:"user_activities"`
	CreatedAt      string                     `json:"created_at,omitempty"`
	UpdatedAt      string                     `json:"updated_at,omitempty"`
}

const activityHistoryLimit = 50

type IRoomService interface {
	CreateRoom(ctx context.Context, maxUsers int, creatorName string) (*RoomDTO, error)
	GetRoomInfo(ctx context.Context, roomID string) (*RoomInfoDTO, error)
	ListRooms(ctx context.Context) []RoomListItemDTO
	DeleteRoom(ctx context.Context, roomID string) error
	Stats(ctx context.Context, roomID string) (*RoomStatsDTO, error)
	ActiveRooms() int
}

type roomService struct {
	registry        *ws.Registry
	roomStore       *roomstore.Store
	drawStore       *drawstore.Store
	defaultMaxUsers int
}

func NewRoomService(reg *ws.Registry, rooms *roomstore.Store, draws *drawstore.Store, defaultMaxUsers int) IRoomService {
	return &roomService{
		registry:        reg,
		roomStore:       rooms,
		drawStore:       draws,
		defaultMaxUsers: defaultMaxUsers,
	}
}

// CreateRoom registers the room in memory and writes the metadata through.
// The store write is best-effort; the room is usable the moment it is in the
// registry.
func (svc *roomService) CreateRoom(ctx context.Context, maxUsers int, creatorName string) (*RoomDTO, error) {
	if maxUsers <= 0 {
		maxUsers = svc.defaultMaxUsers
	}
	if creatorName == "" {
		creatorName = "Anonymous"
	}

	room, _ := svc.registry.CreateRoom("", maxUsers, creatorName)
	svc.roomStore.Create(ctx, room.ID, maxUsers, creatorName)

	return &RoomDTO{
		RoomID:       room.ID,
		MaxUsers:     maxUsers,
		CreatorName:  creatorName,
		ShareableURL: fmt.Sprintf("/draw/%s", room.ID),
	}, nil
}

func (svc *roomService) GetRoomInfo(ctx context.Context, roomID string) (*RoomInfoDTO, error) {
	// Live room first.
	if room, err := svc.registry.GetRoom(roomID); err == nil {
		return &RoomInfoDTO{
			RoomID:      room.ID,
			ActiveUsers: room.UserCount(),
			MaxUsers:    room.MaxUsers,
			CreatorName: room.CreatorName,
			IsFull:      room.IsFull(),
			Exists:      true,
		}, nil
	}

	// Then persisted metadata.
	if rec, ok := svc.roomStore.Get(ctx, roomID); ok {
		return &RoomInfoDTO{
			RoomID:      rec.RoomID,
			ActiveUsers: 0,
			MaxUsers:    rec.MaxUsers,
			CreatorName: rec.CreatorName,
			IsFull:      false,
			Exists:      true,
		}, nil
	}

	return nil, ws.ErrRoomNotFound
}

func (svc *roomService) ListRooms(ctx context.Context) []RoomListItemDTO {
	records := svc.roomStore.List(ctx)
	counts := svc.registry.Counts()

	out := make([]RoomListItemDTO, 0, len(records))
	for _, rec := range records {
		n, live := counts[rec.RoomID]
		out = append(out, RoomListItemDTO{
			RoomID:      rec.RoomID,
			MaxUsers:    rec.MaxUsers,
			CreatorName: rec.CreatorName,
			ActiveUsers: n,
			IsActive:    live,
			CreatedAt:   rec.CreatedAt.Format(time.RFC3339),
		})
	}
	return out
}

// DeleteRoom disconnects any live members, then drops the room from the
// registry and the store, in that order.
func (svc *roomService) DeleteRoom(ctx context.Context, roomID string) error {
	room, err := svc.registry.GetRoom(roomID)
	if err != nil && !svc.roomStore.Exists(ctx, roomID) {
		return ws.ErrRoomNotFound
	}

	if room != nil {
		room.CloseAll("Room deleted")
		svc.registry.DeleteRoom(roomID)
	}
	svc.roomStore.Delete(ctx, roomID)
	return nil
}

func (svc *roomService) Stats(ctx context.Context, roomID string) (*RoomStatsDTO, error) {
	rec, persisted := svc.roomStore.Get(ctx, roomID)
	room, liveErr := svc.registry.GetRoom(roomID)
	if !persisted && liveErr != nil {
		return nil, ws.ErrRoomNotFound
	}

	stats := &RoomStatsDTO{
		RoomID:         roomID,
		CreatorName:    "Anonymous",
		MaxUsers:       svc.defaultMaxUsers,
		DrawingCount:   svc.drawStore.Count(ctx, roomID),
		UserActivities: svc.roomStore.Activities(ctx, roomID, activityHistoryLimit),
	}
	if rec != nil {
		stats.CreatorName = rec.CreatorName
		stats.MaxUsers = rec.MaxUsers
		stats.CreatedAt = rec.CreatedAt.Format(time.RFC3339)
		stats.UpdatedAt = rec.UpdatedAt.Format(time.RFC3339)
	}
	if room != nil {
		stats.ActiveUsers = room.UserCount()
		if rec == nil {
			stats.CreatorName = room.CreatorName
			stats.MaxUsers = room.MaxUsers
		}
	}
	return stats, nil
}

func (svc *roomService) ActiveRooms() int { return svc.registry.Len() }
