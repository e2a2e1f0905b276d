package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/helpdesk-ai/support-platform/internal/model"
	"github.com/helpdesk-ai/support-platform/internal/store"
	"github.com/helpdesk-ai/support-platform/pkg/logger"
	"github.com/helpdesk-ai/support-platform/pkg/metrics"
)

// ConversationService owns conversation lifecycle and is the single place
// conversation metadata is mutated. The counter operations run inside the
// store's per-document update so concurrent sends against one conversation
// cannot lose updates.
type ConversationService struct {
	store  *store.Store
	logger *logger.Logger
}

// NewConversationService creates a new conversation service.
func NewConversationService(s *store.Store, log *logger.Logger) *ConversationService {
	return &ConversationService{store: s, logger: log}
}

// Create opens a new conversation owned by the customer.
func (s *ConversationService) Create(ctx context.Context, principal *model.User, req *model.CreateConversationRequest) (*model.Conversation, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = "New Conversation"
	}
	category := req.Category
	if category == "" {
		category = model.CategoryGeneral
	}

	now := time.Now()
	conv := model.Conversation{
		ID:        uuid.Must(uuid.NewV7()).String(),
		UserID:    principal.ID,
		Title:     title,
		Status:    model.StatusActive,
		Sentiment: model.SentimentNeutral,
		Category:  category,
		Metadata: model.ConversationMetadata{
			LastMessageAt: now,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.store.Conversations.Create(ctx, conv); err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}

	metrics.ConversationsTotal.Inc()
	s.logger.Info("conversation created",
		zap.String("conversation_id", conv.ID),
		zap.String("user_id", principal.ID),
	)

	return &conv, nil
}

// Get returns a conversation the principal may access. Customers may only
// see their own conversations.
func (s *ConversationService) Get(ctx context.Context, principal *model.User, id string) (*model.Conversation, error) {
	conv, err := s.store.Conversations.Get(ctx, id)
	if err != nil {
		return nil, ErrNotFound
	}

	if principal.Role == model.RoleCustomer && conv.UserID != principal.ID {
		return nil, ErrForbidden
	}

	return conv, nil
}

// List returns conversations scoped by role: customers see their own,
// agents see assigned or escalated ones, admins see everything.
func (s *ConversationService) List(ctx context.Context, principal *model.User) ([]model.Conversation, error) {
	var filter func(*model.Conversation) bool
	switch principal.Role {
	case model.RoleCustomer:
		filter = func(c *model.Conversation) bool {
			return c.UserID == principal.ID
		}
	case model.RoleAgent:
		filter = func(c *model.Conversation) bool {
			return c.AssignedAgentID == principal.ID || c.Status == model.StatusEscalated
		}
	}

	return s.store.Conversations.List(ctx, filter)
}

// Update applies agent/admin triage changes. Status transitions are not
// guarded beyond role authorization; any valid status may be set. Assigning
// an agent marks the conversation agent-involved.
func (s *ConversationService) Update(ctx context.Context, principal *model.User, id string, req *model.UpdateConversationRequest) (*model.Conversation, error) {
	if !principal.Role.CanReview() {
		return nil, ErrForbidden
	}
	if req.Status != "" && !req.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, req.Status)
	}

	conv, err := s.store.Conversations.Update(ctx, id, func(c *model.Conversation) error {
		if req.Title != "" {
			c.Title = req.Title
		}
		if req.Status != "" {
			c.Status = req.Status
		}
		if req.AssignedAgent != "" {
			c.AssignedAgentID = req.AssignedAgent
			c.IsAgentInvolved = true
		}
		return nil
	})
	if err != nil {
		return nil, ErrNotFound
	}

	return conv, nil
}

// Delete removes a conversation and all of its messages. Administrative
// operation; the pipeline itself never deletes.
func (s *ConversationService) Delete(ctx context.Context, principal *model.User, id string) error {
	if principal.Role != model.RoleAdmin {
		return ErrForbidden
	}

	if err := s.store.Messages.DeleteByConversation(ctx, id); err != nil {
		return err
	}
	if err := s.store.Conversations.Delete(ctx, id); err != nil {
		return ErrNotFound
	}
	return nil
}

// Escalate forces a conversation into escalated status. Report creation
// calls this.
func (s *ConversationService) Escalate(ctx context.Context, id string) (*model.Conversation, error) {
	conv, err := s.store.Conversations.Update(ctx, id, func(c *model.Conversation) error {
		c.Status = model.StatusEscalated
		return nil
	})
	if err != nil {
		return nil, ErrNotFound
	}
	return conv, nil
}

// RecordUserMessage updates conversation state for one user- or
// agent-authored message: bumps the total, bumps the user counter for
// customer messages, stamps last activity, and overwrites the sentiment
// snapshot. An agent sender flips IsAgentInvolved (monotonic; never reset)
// and claims the conversation when no agent is assigned yet.
func (s *ConversationService) RecordUserMessage(ctx context.Context, conversationID string, sentiment model.Sentiment, senderType model.SenderType, senderID string) (*model.Conversation, error) {
	return s.store.Conversations.Update(ctx, conversationID, func(c *model.Conversation) error {
		c.Metadata.TotalMessages++
		if senderType.CountsAsUser() {
			c.Metadata.UserMessages++
		}
		c.Metadata.LastMessageAt = time.Now()
		c.Sentiment = sentiment

		if senderType == model.SenderAgent {
			c.IsAgentInvolved = true
			if c.AssignedAgentID == "" {
				c.AssignedAgentID = senderID
			}
		}
		return nil
	})
}

// RecordAIMessage updates conversation state for one successful AI
// generation: bumps the total and AI counters, stamps last activity, and
// folds the processing time into the running average. The average uses the
// post-increment AI count; with n messages at times t1..tn it equals
// mean(t1..tn) exactly.
func (s *ConversationService) RecordAIMessage(ctx context.Context, conversationID string, processingTimeMs int64) (*model.Conversation, error) {
	return s.store.Conversations.Update(ctx, conversationID, func(c *model.Conversation) error {
		c.Metadata.TotalMessages++
		c.Metadata.AIMessages++
		c.Metadata.LastMessageAt = time.Now()

		n := float64(c.Metadata.AIMessages)
		c.Metadata.AverageResponseTime = (c.Metadata.AverageResponseTime*(n-1) + float64(processingTimeMs)) / n
		return nil
	})
}
