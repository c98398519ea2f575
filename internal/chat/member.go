package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

// ErrProtocol marks an inbound event the dispatcher cannot handle:
// an undecodable payload or an unrecognized type.
var ErrProtocol = errors.New("protocol violation")

// JokeFetcher fetches one joke from an external service.
type JokeFetcher interface {
	Fetch(ctx context.Context) (string, error)
}

// Fixed attribution names on single-requester replies,
// kept as the original client expects them.
const (
	jokeSender    = "ben"
	membersSender = "In room"
)

// Member is one connected participant bound to exactly one room for
// the life of its connection. It owns the connection's send capability
// and translates inbound protocol events into room operations.
//
// Dispatch and Close run on the connection's read goroutine, so name
// and joined need no lock of their own; the only concurrent caller is
// the joke task, which touches nothing but the connection.
type Member struct {
	conn  Conn
	room  *Room
	jokes JokeFetcher

	name   string
	joined bool
}

func NewMember(conn Conn, room *Room, jokes JokeFetcher) *Member {
	log.Debug().Str("module", "chat.member").Str("room", room.Name()).Msg("created chat member")
	return &Member{conn: conn, room: room, jokes: jokes}
}

func (m *Member) Room() *Room  { return m.room }
func (m *Member) Name() string { return m.name }

// Dispatch decodes one inbound event and routes it. Semantic misuse
// (chat before join, duplicate join) gets an error reply to the sender
// and a nil return; only protocol violations return ErrProtocol.
func (m *Member) Dispatch(ctx context.Context, raw []byte) error {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		m.send(ErrorReply("bad payload"))
		return fmt.Errorf("%w: undecodable payload", ErrProtocol)
	}

	switch env.Type {
	case "members":
		m.handleMembers()
	case "joke":
		m.handleJoke(ctx)
	case "join":
		m.handleJoin(env.Name)
	case "chat":
		m.handleChat(env.Text)
	default:
		m.send(ErrorReply("bad message: " + env.Type))
		return fmt.Errorf("%w: bad message: %s", ErrProtocol, env.Type)
	}
	return nil
}

// handleJoin binds the display name, joins the room and announces it.
func (m *Member) handleJoin(name string) {
	if m.joined {
		m.send(ErrorReply("already joined"))
		return
	}
	if name == "" {
		m.send(ErrorReply("name required"))
		return
	}
	m.name = name
	m.joined = true
	m.room.Join(m)
	m.room.Broadcast(Note(fmt.Sprintf("%s joined %q.", m.name, m.room.Name())))
}

// handleChat broadcasts one chat line from this member.
func (m *Member) handleChat(text string) {
	if !m.joined {
		m.send(ErrorReply("join a room first"))
		return
	}
	m.room.Broadcast(Chat(m.name, text))
}

// handleMembers replies to this member only with the names of everyone
// currently in the room, comma joined, in join order.
func (m *Member) handleMembers() {
	m.send(Chat(membersSender, strings.Join(m.room.MemberNames(), ", ")))
}

// handleJoke fetches a joke asynchronously and replies to this member
// only. The fetch runs in its own task so a slow joke service never
// holds up the room or this connection's event loop; a failure is
// reported to the requester and nowhere else.
func (m *Member) handleJoke(ctx context.Context) {
	if m.jokes == nil {
		m.send(ErrorReply("joke service unavailable"))
		return
	}
	go func() {
		joke, err := m.jokes.Fetch(ctx)
		if err != nil {
			log.Warn().Err(err).Str("module", "chat.member").Str("room", m.room.Name()).Msg("joke fetch failed")
			m.send(ErrorReply("joke service unavailable"))
			return
		}
		m.send(Chat(jokeSender, joke))
	}()
}

// Close removes the member from its room and announces the exit.
// Safe to call for a member that never joined: nothing is announced.
func (m *Member) Close() {
	if !m.joined {
		return
	}
	m.joined = false
	m.room.Leave(m)
	m.room.Broadcast(Note(fmt.Sprintf("%s left %s.", m.name, m.room.Name())))
}

// send delivers one message to this member's own connection.
// Delivery is best effort; a dead connection is logged and ignored.
func (m *Member) send(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Str("module", "chat.member").Msg("send marshal")
		return
	}
	if err := m.conn.TrySend(data); err != nil {
		log.Debug().Err(err).Str("module", "chat.member").Str("name", m.name).Msg("dropped reply")
	}
}
