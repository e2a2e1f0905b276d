// Package store provides the durable document store consumed by the
// pipeline. Documents live in concurrency-safe in-memory maps (a database
// would back this in production); knowledge search is a bleve full-text
// index. Conversation mutation goes through Update, which runs the caller's
// closure under the document lock so concurrent read-modify-write cycles on
// the counters serialize instead of losing updates.
package store

import (
	"errors"

	"github.com/helpdesk-ai/support-platform/pkg/logger"
)

// ErrNotFound is returned when a referenced document does not exist.
var ErrNotFound = errors.New("document not found")

// ErrDuplicate is returned when a uniqueness constraint is violated.
var ErrDuplicate = errors.New("document already exists")

// Store bundles the per-collection stores.
type Store struct {
	Conversations *ConversationStore
	Messages      *MessageStore
	Knowledge     *KnowledgeStore
	Reports       *ReportStore
	Users         *UserStore
}

// New creates an empty store.
func New(log *logger.Logger) (*Store, error) {
	knowledge, err := NewKnowledgeStore(log)
	if err != nil {
		return nil, err
	}

	return &Store{
		Conversations: NewConversationStore(),
		Messages:      NewMessageStore(),
		Knowledge:     knowledge,
		Reports:       NewReportStore(),
		Users:         NewUserStore(),
	}, nil
}

// Close releases store resources.
func (s *Store) Close() error {
	return s.Knowledge.Close()
}
