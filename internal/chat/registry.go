package chat

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// RoomInfo is a read-only view of one room for APIs.
type RoomInfo struct {
	Name        string `json:"name"`
	MemberCount int    `json:"member_count"`
}

// Registry maps room names to live rooms with get-or-create semantics.
// It is constructed once at process start and passed to every handler;
// there is no package-level instance.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*Room
}

func NewRegistry() *Registry {
	return &Registry{rooms: make(map[string]*Room)}
}

// GetOrCreate returns the room for name, creating it on first reference.
// Concurrent first access for the same name yields a single room.
func (g *Registry) GetOrCreate(name string) *Room {
	g.mu.RLock()
	room, ok := g.rooms[name]
	g.mu.RUnlock()
	if ok {
		return room
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if room, ok = g.rooms[name]; ok {
		return room
	}
	room = NewRoom(name)
	g.rooms[name] = room
	log.Info().Str("module", "chat.registry").Str("room", name).Msg("created room")
	return room
}

func (g *Registry) List() []RoomInfo {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]RoomInfo, 0, len(g.rooms))
	for name, r := range g.rooms {
		out = append(out, RoomInfo{Name: name, MemberCount: r.MemberCount()})
	}
	return out
}

// Sweep evicts rooms that have been empty for at least grace and
// returns how many were removed. A room evicted between a lookup and a
// later join simply gets recreated on the next GetOrCreate.
func (g *Registry) Sweep(grace time.Duration) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	evicted := 0
	for name, r := range g.rooms {
		if r.EmptyFor(grace) {
			delete(g.rooms, name)
			evicted++
			log.Info().Str("module", "chat.registry").Str("room", name).Msg("evicted empty room")
		}
	}
	return evicted
}

// Run sweeps empty rooms on a ticker until ctx is canceled.
// Callers only start it when eviction is enabled in config.
func (g *Registry) Run(ctx context.Context, grace, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.Sweep(grace)
		}
	}
}
