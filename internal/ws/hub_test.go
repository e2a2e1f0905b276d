package ws

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helpdesk-ai/support-platform/internal/model"
	"github.com/helpdesk-ai/support-platform/internal/store"
	"github.com/helpdesk-ai/support-platform/pkg/logger"
)

func newTestHub(t *testing.T) (*Hub, *store.UserStore) {
	t.Helper()
	users := store.NewUserStore()
	return NewHub(users, logger.NewNop()), users
}

func connect(t *testing.T, hub *Hub, users *store.UserStore, id string, role model.Role) *Client {
	t.Helper()
	user := &model.User{ID: id, Name: "User " + id, Role: role, CreatedAt: time.Now()}
	_ = users.Create(context.Background(), *user)
	c := NewClient(hub, nil, user)
	hub.Register(c)
	return c
}

// frames drains every queued envelope for a client.
func frames(t *testing.T, c *Client) []Envelope {
	t.Helper()
	var out []Envelope
	for {
		select {
		case frame := <-c.send:
			var env Envelope
			require.NoError(t, json.Unmarshal(frame, &env))
			out = append(out, env)
		default:
			return out
		}
	}
}

func eventsOf(envelopes []Envelope, event string) []Envelope {
	var out []Envelope
	for _, e := range envelopes {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

func TestHub_PresenceDirectory(t *testing.T) {
	hub, users := newTestHub(t)

	b := connect(t, hub, users, "bob", model.RoleCustomer)
	a := connect(t, hub, users, "alice", model.RoleAgent)

	directory := hub.Directory()
	require.Len(t, directory, 2)
	assert.Equal(t, "alice", directory[0].UserID)
	assert.Equal(t, "bob", directory[1].UserID)

	// Both connects pushed a users:online frame to bob.
	online := eventsOf(frames(t, b), EventUsersOnline)
	require.Len(t, online, 2)
	var entries []PresenceEntry
	require.NoError(t, json.Unmarshal(online[1].Data, &entries))
	assert.Len(t, entries, 2)

	stored, err := users.Get(context.Background(), "alice")
	require.NoError(t, err)
	assert.True(t, stored.IsOnline)

	hub.Unregister(a)
	assert.Len(t, hub.Directory(), 1)

	stored, err = users.Get(context.Background(), "alice")
	require.NoError(t, err)
	assert.False(t, stored.IsOnline)
	require.NotNil(t, stored.LastSeen)
}

func TestHub_DuplicatePrincipalReplacesSession(t *testing.T) {
	hub, users := newTestHub(t)

	first := connect(t, hub, users, "alice", model.RoleCustomer)
	second := connect(t, hub, users, "alice", model.RoleCustomer)

	require.Len(t, hub.Directory(), 1)

	// The replaced session is closed and no longer deliverable.
	assert.False(t, first.trySend([]byte("{}")))
	assert.True(t, second.trySend([]byte("{}")))

	// A stale unregister from the dead session must not evict the live one.
	hub.Unregister(first)
	assert.Len(t, hub.Directory(), 1)
}

func TestHub_ToRoom(t *testing.T) {
	hub, users := newTestHub(t)

	alice := connect(t, hub, users, "alice", model.RoleCustomer)
	bob := connect(t, hub, users, "bob", model.RoleAgent)
	carol := connect(t, hub, users, "carol", model.RoleCustomer)

	hub.Join(alice, "conv-1")
	hub.Join(bob, "conv-1")
	frames(t, alice)
	frames(t, bob)
	frames(t, carol)

	hub.ToRoom("conv-1", EventMessageReceived, MessagePayload{ConversationID: "conv-1"}, "alice")

	assert.Empty(t, eventsOf(frames(t, alice), EventMessageReceived))
	assert.Len(t, eventsOf(frames(t, bob), EventMessageReceived), 1)
	assert.Empty(t, eventsOf(frames(t, carol), EventMessageReceived))

	// Leaving stops delivery.
	hub.Leave(bob, "conv-1")
	hub.ToRoom("conv-1", EventMessageReceived, MessagePayload{ConversationID: "conv-1"}, "")
	assert.Empty(t, eventsOf(frames(t, bob), EventMessageReceived))
	assert.Len(t, eventsOf(frames(t, alice), EventMessageReceived), 1)
}

func TestHub_ToReviewers(t *testing.T) {
	hub, users := newTestHub(t)

	customer := connect(t, hub, users, "cust", model.RoleCustomer)
	agent := connect(t, hub, users, "agent", model.RoleAgent)
	admin := connect(t, hub, users, "admin", model.RoleAdmin)
	frames(t, customer)
	frames(t, agent)
	frames(t, admin)

	hub.ToReviewers(EventReportNew, map[string]string{"id": "r1"})

	assert.Empty(t, eventsOf(frames(t, customer), EventReportNew))
	assert.Len(t, eventsOf(frames(t, agent), EventReportNew), 1)
	assert.Len(t, eventsOf(frames(t, admin), EventReportNew), 1)
}

func TestHub_SlowClientIsDropped(t *testing.T) {
	hub, users := newTestHub(t)

	slow := connect(t, hub, users, "slow", model.RoleCustomer)
	hub.Join(slow, "conv-1")

	for slow.trySend([]byte("{}")) {
	}

	hub.ToRoom("conv-1", EventMessageReceived, MessagePayload{ConversationID: "conv-1"}, "")

	select {
	case <-slow.done:
	default:
		t.Fatal("expected slow client to be closed")
	}
}

func TestHub_UnregisterClearsRooms(t *testing.T) {
	hub, users := newTestHub(t)

	alice := connect(t, hub, users, "alice", model.RoleCustomer)
	bob := connect(t, hub, users, "bob", model.RoleCustomer)
	hub.Join(alice, "conv-1")
	hub.Join(bob, "conv-1")
	hub.Unregister(alice)
	frames(t, bob)

	hub.ToRoom("conv-1", EventMessageReceived, MessagePayload{ConversationID: "conv-1"}, "")
	assert.Empty(t, eventsOf(frames(t, alice), EventMessageReceived))
	assert.Len(t, eventsOf(frames(t, bob), EventMessageReceived), 1)
}
