// Package model defines data structures for the support platform.
package model

import (
	"time"
)

// Status represents the lifecycle state of a conversation.
type Status string

const (
	StatusActive    Status = "active"
	StatusEscalated Status = "escalated"
	StatusResolved  Status = "resolved"
)

// Valid reports whether s is a known conversation status.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusEscalated, StatusResolved:
		return true
	}
	return false
}

// Sentiment represents a classified message or conversation sentiment.
type Sentiment string

const (
	SentimentPositive   Sentiment = "positive"
	SentimentNeutral    Sentiment = "neutral"
	SentimentNegative   Sentiment = "negative"
	SentimentFrustrated Sentiment = "frustrated"
)

// ParseSentiment maps a classifier answer to a Sentiment, falling back to
// neutral for anything outside the closed vocabulary.
func ParseSentiment(s string) Sentiment {
	switch Sentiment(s) {
	case SentimentPositive, SentimentNeutral, SentimentNegative, SentimentFrustrated:
		return Sentiment(s)
	}
	return SentimentNeutral
}

// Category classifies the support topic of a conversation or knowledge entry.
type Category string

const (
	CategoryAccount   Category = "account"
	CategoryBilling   Category = "billing"
	CategoryTechnical Category = "technical"
	CategoryProduct   Category = "product"
	CategoryGeneral   Category = "general"
)

// ConversationMetadata holds the running counters for a conversation.
// AverageResponseTime is a running mean over AI-authored messages only,
// in milliseconds.
type ConversationMetadata struct {
	TotalMessages       int       `json:"total_messages"`
	AIMessages          int       `json:"ai_messages"`
	UserMessages        int       `json:"user_messages"`
	AverageResponseTime float64   `json:"average_response_time"`
	LastMessageAt       time.Time `json:"last_message_at"`
}

// Conversation represents a support conversation thread.
type Conversation struct {
	ID              string               `json:"id"`
	UserID          string               `json:"user_id"`
	Title           string               `json:"title"`
	Status          Status               `json:"status"`
	Sentiment       Sentiment            `json:"sentiment"`
	Category        Category             `json:"category"`
	AssignedAgentID string               `json:"assigned_agent_id,omitempty"`
	IsAgentInvolved bool                 `json:"is_agent_involved"`
	Metadata        ConversationMetadata `json:"metadata"`
	CreatedAt       time.Time            `json:"created_at"`
	UpdatedAt       time.Time            `json:"updated_at"`
}

// CreateConversationRequest is the request to open a new conversation.
type CreateConversationRequest struct {
	Title    string   `json:"title"`
	Category Category `json:"category,omitempty"`
}

// UpdateConversationRequest is the request to update a conversation.
// Status changes are not guarded by a transition table; any valid status
// may be set by an authorized agent or admin.
type UpdateConversationRequest struct {
	Title         string `json:"title,omitempty"`
	Status        Status `json:"status,omitempty"`
	AssignedAgent string `json:"assigned_agent,omitempty"`
}

// ListConversationsResponse is the response for listing conversations.
type ListConversationsResponse struct {
	Conversations []Conversation `json:"conversations"`
	Total         int            `json:"total"`
}
