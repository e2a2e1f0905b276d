package model

import (
	"time"
)

// KnowledgeEntry is a stored question/answer pair used as generation
// context and independently browsable as an FAQ. UsageCount increments for
// every entry returned as a retrieval candidate during a generation cycle,
// whether or not the generated answer used it.
type KnowledgeEntry struct {
	ID         string    `json:"id"`
	Category   Category  `json:"category"`
	Question   string    `json:"question"`
	Answer     string    `json:"answer"`
	Keywords   []string  `json:"keywords,omitempty"`
	IsActive   bool      `json:"is_active"`
	UsageCount int       `json:"usage_count"`
	CreatedBy  string    `json:"created_by,omitempty"`
	UpdatedBy  string    `json:"updated_by,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// CreateKnowledgeRequest is the request to add a knowledge entry.
type CreateKnowledgeRequest struct {
	Category Category `json:"category"`
	Question string   `json:"question"`
	Answer   string   `json:"answer"`
	Keywords []string `json:"keywords,omitempty"`
}

// UpdateKnowledgeRequest is the request to update a knowledge entry.
type UpdateKnowledgeRequest struct {
	Category Category `json:"category,omitempty"`
	Question string   `json:"question,omitempty"`
	Answer   string   `json:"answer,omitempty"`
	Keywords []string `json:"keywords,omitempty"`
	IsActive *bool    `json:"is_active,omitempty"`
}
