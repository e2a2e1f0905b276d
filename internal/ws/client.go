package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/helpdesk-ai/support-platform/internal/model"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBuffer     = 64
)

// Client is one authenticated websocket session. Its transport endpoint,
// display name, and role form the presence entry the hub keeps for the
// principal.
type Client struct {
	hub  *Hub
	conn *websocket.Conn

	userID string
	name   string
	role   model.Role

	send chan []byte
	done chan struct{}
	once sync.Once

	// rooms the client has joined; guarded by hub.mu.
	rooms map[string]struct{}
}

// NewClient creates a client for an authenticated connection. conn may be
// nil in tests that exercise the hub without a network transport.
func NewClient(hub *Hub, conn *websocket.Conn, user *model.User) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		userID: user.ID,
		name:   user.Name,
		role:   user.Role,
		send:   make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
		rooms:  make(map[string]struct{}),
	}
}

// trySend queues a frame without blocking. False means the client is gone
// or its buffer is full.
func (c *Client) trySend(frame []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// close terminates the session. Safe to call more than once.
func (c *Client) close() {
	c.once.Do(func() {
		close(c.done)
		if c.conn != nil {
			_ = c.conn.Close()
		}
	})
}

// readPump reads inbound frames until the connection drops, then
// unregisters the client.
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		c.handle(frame)
	}
}

// writePump writes queued frames and keepalive pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case frame := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// handle dispatches one inbound event. Unknown events are ignored; each
// typing start/stop is relayed verbatim, exactly once, with no debouncing.
func (c *Client) handle(frame []byte) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		c.hub.logger.Debug("dropping malformed frame", zap.String("user_id", c.userID))
		return
	}

	switch env.Event {
	case EventConversationJoin:
		if id := decodeConversationID(env.Data); id != "" {
			c.hub.Join(c, id)
		}

	case EventConversationLeave:
		if id := decodeConversationID(env.Data); id != "" {
			c.hub.Leave(c, id)
		}

	case EventTypingStart:
		var p ConversationPayload
		if json.Unmarshal(env.Data, &p) == nil && p.ConversationID != "" {
			c.hub.ToRoom(p.ConversationID, EventTypingUser, TypingPayload{
				UserID:         c.userID,
				UserName:       c.name,
				ConversationID: p.ConversationID,
			}, c.userID)
		}

	case EventTypingStop:
		var p ConversationPayload
		if json.Unmarshal(env.Data, &p) == nil && p.ConversationID != "" {
			c.hub.ToRoom(p.ConversationID, EventTypingStop, TypingPayload{
				UserID:         c.userID,
				ConversationID: p.ConversationID,
			}, c.userID)
		}

	case EventMessageNew:
		// Relay path: the whole room, sender included, receives the echo.
		var p MessagePayload
		if json.Unmarshal(env.Data, &p) == nil && p.ConversationID != "" {
			c.hub.ToRoom(p.ConversationID, EventMessageReceived, p, "")
		}

	case EventMessageRead:
		var p ReadPayload
		if json.Unmarshal(env.Data, &p) == nil && p.ConversationID != "" {
			p.ReadBy = c.userID
			c.hub.ToRoom(p.ConversationID, EventMessageRead, p, c.userID)
		}

	case EventAIResponding:
		var p ConversationPayload
		if json.Unmarshal(env.Data, &p) == nil && p.ConversationID != "" {
			c.hub.ToRoom(p.ConversationID, EventAITyping, p, c.userID)
		}

	case EventReportCreated:
		c.hub.ToReviewers(EventReportNew, env.Data)

	case EventReportUpdated:
		c.hub.ToReviewers(EventReportUpdate, env.Data)

	case EventAgentAssigned:
		var p AgentAssignedPayload
		if json.Unmarshal(env.Data, &p) == nil && p.ConversationID != "" {
			c.hub.ToRoom(p.ConversationID, EventAgentJoined, p, "")
		}
	}
}

// decodeConversationID accepts either a bare string or an object payload.
func decodeConversationID(data json.RawMessage) string {
	var id string
	if err := json.Unmarshal(data, &id); err == nil {
		return id
	}
	var p ConversationPayload
	if err := json.Unmarshal(data, &p); err == nil {
		return p.ConversationID
	}
	return ""
}
