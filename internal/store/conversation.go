package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/helpdesk-ai/support-platform/internal/model"
)

type conversationEntry struct {
	mu  sync.Mutex
	doc model.Conversation
}

// ConversationStore holds conversation documents. Each document carries its
// own lock; Update serializes mutations per conversation.
type ConversationStore struct {
	mu   sync.RWMutex
	docs map[string]*conversationEntry
}

// NewConversationStore creates an empty conversation store.
func NewConversationStore() *ConversationStore {
	return &ConversationStore{
		docs: make(map[string]*conversationEntry),
	}
}

// Create inserts a new conversation.
func (s *ConversationStore) Create(ctx context.Context, conv model.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.docs[conv.ID]; exists {
		return ErrDuplicate
	}
	s.docs[conv.ID] = &conversationEntry{doc: conv}
	return nil
}

// Get returns a copy of a conversation.
func (s *ConversationStore) Get(ctx context.Context, id string) (*model.Conversation, error) {
	s.mu.RLock()
	entry, ok := s.docs[id]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}

	entry.mu.Lock()
	doc := entry.doc
	entry.mu.Unlock()
	return &doc, nil
}

// List returns conversations matching the filter, most recent activity
// first. A nil filter matches everything.
func (s *ConversationStore) List(ctx context.Context, filter func(*model.Conversation) bool) ([]model.Conversation, error) {
	s.mu.RLock()
	entries := make([]*conversationEntry, 0, len(s.docs))
	for _, entry := range s.docs {
		entries = append(entries, entry)
	}
	s.mu.RUnlock()

	var out []model.Conversation
	for _, entry := range entries {
		entry.mu.Lock()
		doc := entry.doc
		entry.mu.Unlock()
		if filter == nil || filter(&doc) {
			out = append(out, doc)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Metadata.LastMessageAt.After(out[j].Metadata.LastMessageAt)
	})

	return out, nil
}

// Update applies fn to the conversation under its document lock and returns
// the updated copy. The closure sees current state and its writes commit
// atomically with respect to other Update calls for the same conversation.
func (s *ConversationStore) Update(ctx context.Context, id string, fn func(*model.Conversation) error) (*model.Conversation, error) {
	s.mu.RLock()
	entry, ok := s.docs[id]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if err := fn(&entry.doc); err != nil {
		return nil, err
	}
	entry.doc.UpdatedAt = time.Now()

	doc := entry.doc
	return &doc, nil
}

// Delete removes a conversation.
func (s *ConversationStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.docs[id]; !ok {
		return ErrNotFound
	}
	delete(s.docs, id)
	return nil
}
