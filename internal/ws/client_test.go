package ws

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helpdesk-ai/support-platform/internal/model"
)

func TestDecodeConversationID(t *testing.T) {
	assert.Equal(t, "conv-1", decodeConversationID(json.RawMessage(`"conv-1"`)))
	assert.Equal(t, "conv-2", decodeConversationID(json.RawMessage(`{"conversationId":"conv-2"}`)))
	assert.Empty(t, decodeConversationID(json.RawMessage(`42`)))
	assert.Empty(t, decodeConversationID(json.RawMessage(`{}`)))
}

func inbound(t *testing.T, event string, data any) []byte {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	frame, err := json.Marshal(Envelope{Event: event, Data: raw})
	require.NoError(t, err)
	return frame
}

func TestClient_Handle(t *testing.T) {
	hub, users := newTestHub(t)

	alice := connect(t, hub, users, "alice", model.RoleCustomer)
	bob := connect(t, hub, users, "bob", model.RoleCustomer)
	agent := connect(t, hub, users, "agent", model.RoleAgent)

	t.Run("join via bare string payload", func(t *testing.T) {
		alice.handle(inbound(t, EventConversationJoin, "conv-1"))
		bob.handle(inbound(t, EventConversationJoin, ConversationPayload{ConversationID: "conv-1"}))
		frames(t, alice)
		frames(t, bob)

		hub.ToRoom("conv-1", EventMessageReceived, MessagePayload{ConversationID: "conv-1"}, "")
		assert.Len(t, eventsOf(frames(t, alice), EventMessageReceived), 1)
		assert.Len(t, eventsOf(frames(t, bob), EventMessageReceived), 1)
	})

	t.Run("typing start relays to others only", func(t *testing.T) {
		alice.handle(inbound(t, EventTypingStart, ConversationPayload{ConversationID: "conv-1"}))

		assert.Empty(t, eventsOf(frames(t, alice), EventTypingUser))
		typing := eventsOf(frames(t, bob), EventTypingUser)
		require.Len(t, typing, 1)

		var p TypingPayload
		require.NoError(t, json.Unmarshal(typing[0].Data, &p))
		assert.Equal(t, "alice", p.UserID)
		assert.Equal(t, "User alice", p.UserName)
		assert.Equal(t, "conv-1", p.ConversationID)
	})

	t.Run("message relay reaches the whole room including the sender", func(t *testing.T) {
		alice.handle(inbound(t, EventMessageNew, MessagePayload{ConversationID: "conv-1"}))

		assert.Len(t, eventsOf(frames(t, alice), EventMessageReceived), 1)
		assert.Len(t, eventsOf(frames(t, bob), EventMessageReceived), 1)
	})

	t.Run("read receipts carry the reader and skip the sender", func(t *testing.T) {
		alice.handle(inbound(t, EventMessageRead, ReadPayload{
			ConversationID: "conv-1",
			MessageIDs:     []string{"m1"},
		}))

		assert.Empty(t, eventsOf(frames(t, alice), EventMessageRead))
		reads := eventsOf(frames(t, bob), EventMessageRead)
		require.Len(t, reads, 1)

		var p ReadPayload
		require.NoError(t, json.Unmarshal(reads[0].Data, &p))
		assert.Equal(t, "alice", p.ReadBy)
		assert.Equal(t, []string{"m1"}, p.MessageIDs)
	})

	t.Run("report relays go to reviewers regardless of rooms", func(t *testing.T) {
		frames(t, agent)
		alice.handle(inbound(t, EventReportCreated, map[string]string{"id": "r1"}))

		assert.Len(t, eventsOf(frames(t, agent), EventReportNew), 1)
		assert.Empty(t, eventsOf(frames(t, bob), EventReportNew))
	})

	t.Run("malformed and unknown frames are ignored", func(t *testing.T) {
		alice.handle([]byte(`not json`))
		alice.handle(inbound(t, "no:such:event", "x"))
		assert.Empty(t, frames(t, alice))
		assert.Empty(t, frames(t, bob))
	})

	t.Run("leave stops room delivery", func(t *testing.T) {
		bob.handle(inbound(t, EventConversationLeave, "conv-1"))
		hub.ToRoom("conv-1", EventMessageReceived, MessagePayload{ConversationID: "conv-1"}, "")

		assert.Len(t, eventsOf(frames(t, alice), EventMessageReceived), 1)
		assert.Empty(t, eventsOf(frames(t, bob), EventMessageReceived))
	})
}
