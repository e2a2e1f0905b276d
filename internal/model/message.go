package model

import (
	"time"
)

// SenderType is a closed set of message authors. All sender-driven
// behavior (counter buckets, history-role mapping, generation eligibility)
// dispatches through the methods below rather than scattered comparisons.
type SenderType string

const (
	SenderUser  SenderType = "user"
	SenderAI    SenderType = "ai"
	SenderAgent SenderType = "agent"
)

// HistoryRole maps a sender type to the generation-role used when the
// message is replayed as conversation history. Customer turns map to the
// inbound role; AI and agent turns both map to the outbound role.
func (s SenderType) HistoryRole() string {
	if s == SenderUser {
		return "user"
	}
	return "assistant"
}

// CountsAsUser reports whether a message of this sender type increments the
// user-message counter. Agent messages bump the total only; that accounting
// gap is preserved from the observed system.
func (s SenderType) CountsAsUser() bool {
	return s == SenderUser
}

// MessageMetadata holds per-message classification and generation metadata.
type MessageMetadata struct {
	Sentiment        Sentiment `json:"sentiment"`
	ProcessingTimeMs int64     `json:"processing_time,omitempty"`
	TokensUsed       int       `json:"tokens_used,omitempty"`
	Model            string    `json:"model,omitempty"`
}

// Message represents a single message in a conversation. Messages are
// immutable once created except for the read-state fields, which transition
// exactly once from unread to read.
type Message struct {
	ID             string          `json:"id"`
	ConversationID string          `json:"conversation_id"`
	SenderID       string          `json:"sender_id"`
	SenderType     SenderType      `json:"sender_type"`
	Content        string          `json:"content"`
	Metadata       MessageMetadata `json:"metadata"`
	IsRead         bool            `json:"is_read"`
	ReadAt         *time.Time      `json:"read_at,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// SendMessageRequest is the request to send a new message.
type SendMessageRequest struct {
	Content string `json:"content"`
}

// SendMessageResponse is the response after sending a message. AIError is
// set when the user message was committed but the AI reply failed.
type SendMessageResponse struct {
	UserMessage *Message `json:"userMessage"`
	AIMessage   *Message `json:"aiMessage"`
	AIError     string   `json:"aiError,omitempty"`
}

// ContentViolationResponse is returned when the safety gate rejects a
// message before any state mutation.
type ContentViolationResponse struct {
	Error            string `json:"error"`
	ContentViolation bool   `json:"contentViolation"`
}

// ListMessagesResponse is the response for listing messages.
type ListMessagesResponse struct {
	Messages []Message `json:"messages"`
	Count    int       `json:"count"`
}

// MarkReadRequest marks a batch of messages as read.
type MarkReadRequest struct {
	MessageIDs []string `json:"messageIds"`
}
