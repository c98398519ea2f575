// Package chat implements the room registry, per-room membership and
// broadcast fan-out, and the per-connection protocol state machine.
package chat

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Conn is the send capability owned by one member.
// Owned by the transport adapter; the adapter must Close() it.
type Conn interface {
	TrySend([]byte) error
	Close()
}

// PublishResult reports delivery stats for one broadcast.
type PublishResult struct {
	SentTo  int
	Dropped int
}

// Room owns the membership set for one named broadcast domain.
// Join order is preserved so the members query lists names in the
// order people arrived. All mutation and fan-out is serialized by mu.
type Room struct {
	name string

	mu         sync.Mutex
	members    []*Member
	emptySince time.Time
}

func NewRoom(name string) *Room {
	return &Room{
		name:       name,
		emptySince: time.Now(),
	}
}

func (r *Room) Name() string { return r.name }

// Join adds m to the membership set. Joining twice is a no-op.
func (r *Room) Join(m *Member) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.members {
		if existing == m {
			return
		}
	}
	r.members = append(r.members, m)
	r.emptySince = time.Time{}
	log.Info().Str("module", "chat.room").Str("room", r.name).Str("name", m.name).Int("members", len(r.members)).Msg("member joined")
}

// Leave removes m from the membership set. Leaving when absent is a no-op.
func (r *Room) Leave(m *Member) {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := false
	for i, existing := range r.members {
		if existing == m {
			r.members = append(r.members[:i], r.members[i+1:]...)
			removed = true
			break
		}
	}
	if !removed {
		return
	}
	if len(r.members) == 0 {
		r.emptySince = time.Now()
	}
	log.Info().Str("module", "chat.room").Str("room", r.name).Str("name", m.name).Int("members", len(r.members)).Msg("member left")
}

// Broadcast serializes msg once and delivers it to every current member,
// the originator included. A failed delivery never aborts the fan-out;
// dead connections are counted and skipped. The room lock is held for
// the whole fan-out, so broadcasts reach all members in invocation
// order; sends are non-blocking channel pushes, never real I/O.
func (r *Room) Broadcast(msg Message) PublishResult {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Str("module", "chat.room").Str("room", r.name).Msg("broadcast marshal")
		return PublishResult{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	res := PublishResult{}
	for _, m := range r.members {
		if err := m.conn.TrySend(data); err != nil {
			res.Dropped++
			log.Debug().Err(err).Str("module", "chat.room").Str("room", r.name).Str("name", m.name).Msg("dropped delivery")
			continue
		}
		res.SentTo++
	}
	log.Debug().Str("module", "chat.room").Str("room", r.name).Int("sent_to", res.SentTo).Int("dropped", res.Dropped).Msg("broadcast result")
	return res
}

// MemberNames returns display names of current members in join order.
func (r *Room) MemberNames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.members))
	for _, m := range r.members {
		out = append(out, m.name)
	}
	return out
}

func (r *Room) MemberCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members)
}

// EmptyFor reports whether the room has had no members for at least grace.
func (r *Room) EmptyFor(grace time.Duration) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members) == 0 && !r.emptySince.IsZero() && time.Since(r.emptySince) >= grace
}
