package ws

import (
	"sync"

	"github.com/google/uuid"
)

// Registry is the process-wide table of live rooms, keyed by room id. It is
// constructed once in main and injected wherever needed; it never touches the
// network or the database. The table lock is separate from each room's own
// mutex so unrelated rooms proceed independently.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*Room
}

func NewRegistry() *Registry {
	return &Registry{rooms: make(map[string]*Room)}
}

// CreateRoom inserts a room, allocating a fresh id when none is given.
// Creating an id that already exists is idempotent: the existing room is
// returned and created reports false.
func (reg *Registry) CreateRoom(roomID string, maxUsers int, creatorName string) (room *Room, created bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if roomID != "" {
		if r, ok := reg.rooms[roomID]; ok {
			return r, false
		}
	} else {
		roomID = uuid.NewString()
	}

	r := newRoom(roomID, maxUsers, creatorName)
	reg.rooms[roomID] = r
	return r, true
}

func (reg *Registry) GetRoom(roomID string) (*Room, error) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	r, ok := reg.rooms[roomID]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return r, nil
}

func (reg *Registry) Exists(roomID string) bool {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	_, ok := reg.rooms[roomID]
	return ok
}

// DeleteRoom removes the table entry only. Closing the room's connections is
// the caller's job, before calling this.
func (reg *Registry) DeleteRoom(roomID string) {
	reg.mu.Lock()
	delete(reg.rooms, roomID)
	reg.mu.Unlock()
}

func (reg *Registry) Len() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.rooms)
}

// Counts snapshots the live member count per room.
func (reg *Registry) Counts() map[string]int {
	reg.mu.RLock()
	rooms := make([]*Room, 0, len(reg.rooms))
	for _, r := range reg.rooms {
		rooms = append(rooms, r)
	}
	reg.mu.RUnlock()

	out := make(map[string]int, len(rooms))
	for _, r := range rooms {
		out[r.ID] = r.UserCount()
	}
	return out
}
