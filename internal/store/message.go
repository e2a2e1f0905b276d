package store

import (
	"context"
	"sync"
	"time"

	"github.com/helpdesk-ai/support-platform/internal/model"
)

// MessageStore holds message documents ordered per conversation.
type MessageStore struct {
	mu     sync.RWMutex
	docs   map[string]*model.Message
	byConv map[string][]string
}

// NewMessageStore creates an empty message store.
func NewMessageStore() *MessageStore {
	return &MessageStore{
		docs:   make(map[string]*model.Message),
		byConv: make(map[string][]string),
	}
}

// Create inserts a new message.
func (s *MessageStore) Create(ctx context.Context, msg model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.docs[msg.ID]; exists {
		return ErrDuplicate
	}
	stored := msg
	s.docs[msg.ID] = &stored
	s.byConv[msg.ConversationID] = append(s.byConv[msg.ConversationID], msg.ID)
	return nil
}

// Get returns a copy of a message.
func (s *MessageStore) Get(ctx context.Context, id string) (*model.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msg, ok := s.docs[id]
	if !ok {
		return nil, ErrNotFound
	}
	doc := *msg
	return &doc, nil
}

// ListByConversation returns messages in creation order with offset/limit
// pagination. limit <= 0 means no limit.
func (s *MessageStore) ListByConversation(ctx context.Context, conversationID string, offset, limit int) ([]model.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byConv[conversationID]
	if offset > len(ids) {
		offset = len(ids)
	}
	ids = ids[offset:]
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}

	out := make([]model.Message, 0, len(ids))
	for _, id := range ids {
		out = append(out, *s.docs[id])
	}
	return out, nil
}

// Tail returns up to n of the most recent messages in creation order.
func (s *MessageStore) Tail(ctx context.Context, conversationID string, n int) ([]model.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byConv[conversationID]
	if n > 0 && len(ids) > n {
		ids = ids[len(ids)-n:]
	}

	out := make([]model.Message, 0, len(ids))
	for _, id := range ids {
		out = append(out, *s.docs[id])
	}
	return out, nil
}

// CountByConversation returns the number of messages in a conversation.
func (s *MessageStore) CountByConversation(ctx context.Context, conversationID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byConv[conversationID])
}

// MarkRead marks the given messages of a conversation as read. The
// unread-to-read transition happens at most once per message; already-read
// messages keep their original timestamp.
func (s *MessageStore) MarkRead(ctx context.Context, conversationID string, messageIDs []string, readAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range messageIDs {
		msg, ok := s.docs[id]
		if !ok || msg.ConversationID != conversationID || msg.IsRead {
			continue
		}
		msg.IsRead = true
		at := readAt
		msg.ReadAt = &at
	}
	return nil
}

// DeleteByConversation removes all messages of a conversation.
func (s *MessageStore) DeleteByConversation(ctx context.Context, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range s.byConv[conversationID] {
		delete(s.docs, id)
	}
	delete(s.byConv, conversationID)
	return nil
}
