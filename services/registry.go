package services

import (
	"sync"
	"time"

	"github.com/bellapacxx/roshambo-backend/game"
	"github.com/google/uuid"
)

// Registry holds the live rooms of one engine. Removed rooms leave a
// tombstone until pruned so late plays are told the match is over.
type Registry struct {
	mu     sync.RWMutex
	rooms  map[string]*game.Room
	byConn map[string]map[string]struct{}
	ended  map[string]time.Time
}

func NewRegistry() *Registry {
	return &Registry{
		rooms:  make(map[string]*game.Room),
		byConn: make(map[string]map[string]struct{}),
		ended:  make(map[string]time.Time),
	}
}

// Create stores room, assigning an id when it has none.
func (r *Registry) Create(room *game.Room) (string, error) {
	if room.ID == "" {
		room.ID = uuid.NewString()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rooms[room.ID]; ok {
		return "", game.ErrDuplicateRoom
	}
	if _, ok := r.ended[room.ID]; ok {
		return "", game.ErrDuplicateRoom
	}
	r.rooms[room.ID] = room
	for _, conn := range room.ConnIDs() {
		if r.byConn[conn] == nil {
			r.byConn[conn] = make(map[string]struct{})
		}
		r.byConn[conn][room.ID] = struct{}{}
	}
	return room.ID, nil
}

func (r *Registry) Get(id string) (*game.Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room, ok := r.rooms[id]
	if !ok {
		if _, gone := r.ended[id]; gone {
			return nil, game.ErrRoomTerminal
		}
		return nil, game.ErrRoomNotFound
	}
	return room, nil
}

// Remove is a no-op for unknown ids.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[id]
	if !ok {
		return
	}
	delete(r.rooms, id)
	r.ended[id] = time.Now()
	for _, conn := range room.ConnIDs() {
		delete(r.byConn[conn], id)
		if len(r.byConn[conn]) == 0 {
			delete(r.byConn, conn)
		}
	}
}

// ForConn returns the rooms a connection is seated in.
func (r *Registry) ForConn(connID string) []*game.Room {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*game.Room, 0, len(r.byConn[connID]))
	for id := range r.byConn[connID] {
		out = append(out, r.rooms[id])
	}
	return out
}

// Prune forgets tombstones older than cutoff.
func (r *Registry) Prune(cutoff time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for id, at := range r.ended {
		if at.Before(cutoff) {
			delete(r.ended, id)
			n++
		}
	}
	return n
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}
