package chat_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jazzcheema/websocket-groupchat/internal/chat"
)

// testConn captures everything delivered through the send capability.
type testConn struct {
	mu     sync.Mutex
	sent   []chat.Message
	failed bool
}

func (c *testConn) TrySend(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failed {
		return errors.New("connection gone")
	}
	var msg chat.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return err
	}
	c.sent = append(c.sent, msg)
	return nil
}

func (c *testConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failed = true
}

func (c *testConn) messages() []chat.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]chat.Message, len(c.sent))
	copy(out, c.sent)
	return out
}

// joinedMember wires a member into room through the normal join path.
func joinedMember(t *testing.T, room *chat.Room, name string) (*chat.Member, *testConn) {
	t.Helper()
	conn := &testConn{}
	m := chat.NewMember(conn, room, nil)
	raw := fmt.Sprintf(`{"type":"join","name":%q}`, name)
	require.NoError(t, m.Dispatch(context.Background(), []byte(raw)))
	return m, conn
}

func TestRoomJoinIdempotent(t *testing.T) {
	room := chat.NewRoom("lobby")
	m, _ := joinedMember(t, room, "alice")

	assert.Equal(t, 1, room.MemberCount())

	// A second Join for the same member must not duplicate it.
	room.Join(m)
	assert.Equal(t, 1, room.MemberCount())
	assert.Equal(t, []string{"alice"}, room.MemberNames())
}

func TestRoomLeaveAbsentIsNoop(t *testing.T) {
	room := chat.NewRoom("lobby")
	m, _ := joinedMember(t, room, "alice")
	stranger := chat.NewMember(&testConn{}, room, nil)

	room.Leave(stranger)
	assert.Equal(t, 1, room.MemberCount())

	room.Leave(m)
	assert.Equal(t, 0, room.MemberCount())

	// Leaving twice yields the same end state as leaving once.
	room.Leave(m)
	assert.Equal(t, 0, room.MemberCount())
}

func TestRoomMemberNamesPreserveJoinOrder(t *testing.T) {
	room := chat.NewRoom("lobby")
	joinedMember(t, room, "alice")
	joinedMember(t, room, "bob")
	joinedMember(t, room, "carol")

	assert.Equal(t, []string{"alice", "bob", "carol"}, room.MemberNames())
}

func TestRoomBroadcastReachesEveryMember(t *testing.T) {
	room := chat.NewRoom("lobby")
	_, connA := joinedMember(t, room, "alice")
	_, connB := joinedMember(t, room, "bob")

	res := room.Broadcast(chat.Chat("alice", "hi"))
	assert.Equal(t, 2, res.SentTo)
	assert.Equal(t, 0, res.Dropped)

	for _, conn := range []*testConn{connA, connB} {
		msgs := conn.messages()
		last := msgs[len(msgs)-1]
		assert.Equal(t, "chat", last.Type)
		assert.Equal(t, "alice", last.Name)
		assert.Equal(t, "hi", last.Text)
	}
}

func TestRoomBroadcastIsolatesDeliveryFailures(t *testing.T) {
	room := chat.NewRoom("lobby")
	_, connA := joinedMember(t, room, "alice")
	_, connB := joinedMember(t, room, "bob")
	_, connC := joinedMember(t, room, "carol")

	connB.Close() // dead connection in the middle of the fan-out

	before := len(connC.messages())
	res := room.Broadcast(chat.Note("still here"))

	assert.Equal(t, 2, res.SentTo)
	assert.Equal(t, 1, res.Dropped)
	assert.Len(t, connA.messages(), before+1)
	assert.Len(t, connC.messages(), before+1)
}

func TestRoomBroadcastOrdering(t *testing.T) {
	room := chat.NewRoom("lobby")
	_, conn := joinedMember(t, room, "alice")

	start := len(conn.messages())
	for i := 0; i < 20; i++ {
		room.Broadcast(chat.Chat("alice", fmt.Sprintf("msg-%d", i)))
	}

	msgs := conn.messages()[start:]
	require.Len(t, msgs, 20)
	for i, msg := range msgs {
		assert.Equal(t, fmt.Sprintf("msg-%d", i), msg.Text)
	}
}

func TestRoomConcurrentJoinLeaveBroadcast(t *testing.T) {
	room := chat.NewRoom("lobby")

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			conn := &testConn{}
			m := chat.NewMember(conn, room, nil)
			raw := fmt.Sprintf(`{"type":"join","name":"user-%d"}`, i)
			_ = m.Dispatch(context.Background(), []byte(raw))
			room.Broadcast(chat.Chat(m.Name(), "hello"))
			m.Close()
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 0, room.MemberCount())
}
