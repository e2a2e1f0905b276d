// Package ws provides the real-time layer: the presence registry of
// connected principals and room-scoped/role-filtered event broadcast over
// websockets.
package ws

import (
	"encoding/json"

	"github.com/helpdesk-ai/support-platform/internal/model"
)

// Inbound event names (client to server).
const (
	EventConversationJoin  = "conversation:join"
	EventConversationLeave = "conversation:leave"
	EventTypingStart       = "typing:start"
	EventTypingStop        = "typing:stop"
	EventMessageNew        = "message:new"
	EventMessageRead       = "message:read"
	EventAIResponding      = "ai:responding"
	EventReportCreated     = "report:created"
	EventReportUpdated     = "report:updated"
	EventAgentAssigned     = "conversation:agent_assigned"
)

// Outbound event names (server to client).
const (
	EventTypingUser       = "typing:user"
	EventMessageReceived  = "message:received"
	EventAITyping         = "ai:typing"
	EventReportNew        = "report:new"
	EventReportUpdate     = "report:update"
	EventAgentJoined      = "conversation:agent_joined"
	EventUsersOnline      = "users:online"
)

// Envelope is the wire frame for every event in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// ConversationPayload scopes an event to a conversation.
type ConversationPayload struct {
	ConversationID string `json:"conversationId"`
}

// TypingPayload identifies who is typing where.
type TypingPayload struct {
	UserID         string `json:"userId"`
	UserName       string `json:"userName,omitempty"`
	ConversationID string `json:"conversationId"`
}

// MessagePayload carries a message into a room.
type MessagePayload struct {
	ConversationID string         `json:"conversationId"`
	Message        *model.Message `json:"message"`
}

// ReadPayload carries read receipts. ReadBy is added on the outbound
// broadcast.
type ReadPayload struct {
	ConversationID string   `json:"conversationId"`
	MessageIDs     []string `json:"messageIds"`
	ReadBy         string   `json:"readBy,omitempty"`
}

// AgentAssignedPayload announces an agent joining a conversation.
type AgentAssignedPayload struct {
	ConversationID string              `json:"conversationId"`
	AgentID        string              `json:"agentId"`
	Conversation   *model.Conversation `json:"conversation,omitempty"`
}

// PresenceEntry is one connected principal in the users:online directory.
type PresenceEntry struct {
	UserID string     `json:"userId"`
	Name   string     `json:"name"`
	Role   model.Role `json:"role"`
}
