package ws

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/helpdesk-ai/support-platform/internal/store"
	"github.com/helpdesk-ai/support-platform/pkg/logger"
	"github.com/helpdesk-ai/support-platform/pkg/metrics"
)

// Hub owns the presence registry and all event fan-out. It is created and
// injected at startup, never a package global. Presence keeps exactly one
// entry per principal: a new connection for the same principal replaces the
// prior one, last write wins.
type Hub struct {
	mu       sync.RWMutex
	presence map[string]*Client
	rooms    map[string]map[*Client]struct{}

	users  *store.UserStore
	logger *logger.Logger
}

// NewHub creates a new hub.
func NewHub(users *store.UserStore, log *logger.Logger) *Hub {
	return &Hub{
		presence: make(map[string]*Client),
		rooms:    make(map[string]map[*Client]struct{}),
		users:    users,
		logger:   log,
	}
}

// Register adds a connected client to the presence registry, replacing and
// closing any prior session for the same principal, marks the principal
// online, and broadcasts the full directory to everyone.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	if prev, ok := h.presence[c.userID]; ok {
		h.dropLocked(prev)
		prev.close()
	}
	h.presence[c.userID] = c
	h.mu.Unlock()

	if err := h.users.SetOnline(context.Background(), c.userID, true, time.Now()); err != nil && err != store.ErrNotFound {
		h.logger.Warn("failed to mark user online", zap.Error(err))
	}

	metrics.WSConnectionsActive.Inc()
	h.logger.Info("client connected",
		zap.String("user_id", c.userID),
		zap.String("role", string(c.role)),
	)

	h.broadcastDirectory()
}

// Unregister removes a client from presence if it is still the current
// session for its principal, marks the principal offline with last-seen,
// and broadcasts the updated directory.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	current, ok := h.presence[c.userID]
	if ok && current == c {
		delete(h.presence, c.userID)
	}
	h.dropLocked(c)
	h.mu.Unlock()

	if ok && current == c {
		if err := h.users.SetOnline(context.Background(), c.userID, false, time.Now()); err != nil && err != store.ErrNotFound {
			h.logger.Warn("failed to mark user offline", zap.Error(err))
		}
		h.broadcastDirectory()
	}

	metrics.WSConnectionsActive.Dec()
	h.logger.Info("client disconnected", zap.String("user_id", c.userID))
}

// dropLocked removes a client from every room. Caller holds h.mu.
func (h *Hub) dropLocked(c *Client) {
	for room := range c.rooms {
		if members, ok := h.rooms[room]; ok {
			delete(members, c)
			if len(members) == 0 {
				delete(h.rooms, room)
			}
		}
	}
	c.rooms = make(map[string]struct{})
}

// Join adds the client to a conversation room.
func (h *Hub) Join(c *Client, conversationID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.rooms[conversationID]
	if !ok {
		members = make(map[*Client]struct{})
		h.rooms[conversationID] = members
	}
	members[c] = struct{}{}
	c.rooms[conversationID] = struct{}{}
}

// Leave removes the client from a conversation room.
func (h *Hub) Leave(c *Client, conversationID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if members, ok := h.rooms[conversationID]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, conversationID)
		}
	}
	delete(c.rooms, conversationID)
}

// ToRoom delivers an event to the members of a conversation room. An empty
// excludeUserID sends to everyone including the originator.
func (h *Hub) ToRoom(conversationID, event string, payload any, excludeUserID string) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Warn("failed to marshal event payload", zap.String("event", event), zap.Error(err))
		return
	}

	h.mu.RLock()
	targets := make([]*Client, 0, len(h.rooms[conversationID]))
	for c := range h.rooms[conversationID] {
		if excludeUserID != "" && c.userID == excludeUserID {
			continue
		}
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		h.deliver(c, event, data)
	}
}

// ToReviewers delivers an event to every connected agent or admin,
// regardless of room membership.
func (h *Hub) ToReviewers(event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Warn("failed to marshal event payload", zap.String("event", event), zap.Error(err))
		return
	}

	h.mu.RLock()
	targets := make([]*Client, 0, len(h.presence))
	for _, c := range h.presence {
		if c.role.CanReview() {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		h.deliver(c, event, data)
	}
}

// Directory returns a snapshot of the presence registry, ordered by
// principal ID for stable output.
func (h *Hub) Directory() []PresenceEntry {
	h.mu.RLock()
	entries := make([]PresenceEntry, 0, len(h.presence))
	for _, c := range h.presence {
		entries = append(entries, PresenceEntry{
			UserID: c.userID,
			Name:   c.name,
			Role:   c.role,
		})
	}
	h.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].UserID < entries[j].UserID
	})
	return entries
}

// broadcastDirectory pushes the full directory to all connected clients.
// O(connected principals) per connect/disconnect; acceptable at expected
// scale.
func (h *Hub) broadcastDirectory() {
	directory := h.Directory()
	data, err := json.Marshal(directory)
	if err != nil {
		return
	}

	h.mu.RLock()
	targets := make([]*Client, 0, len(h.presence))
	for _, c := range h.presence {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		h.deliver(c, EventUsersOnline, data)
	}
}

// deliver queues one framed event for a client. Clients that cannot keep up
// are dropped rather than allowed to block the hub.
func (h *Hub) deliver(c *Client, event string, data json.RawMessage) {
	frame, err := json.Marshal(Envelope{Event: event, Data: data})
	if err != nil {
		return
	}

	if c.trySend(frame) {
		metrics.WSEventsTotal.WithLabelValues(event).Inc()
		return
	}

	h.logger.Warn("dropping slow client", zap.String("user_id", c.userID))
	c.close()
}
