package store

import (
	"context"
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"go.uber.org/zap"

	"github.com/helpdesk-ai/support-platform/internal/model"
	"github.com/helpdesk-ai/support-platform/pkg/logger"
)

// knowledgeDoc is the indexed projection of a knowledge entry. The three
// text fields participate in the composite _all field that relevance
// queries run against; isActive is a filter term so inactive entries never
// occupy result slots.
type knowledgeDoc struct {
	Question string   `json:"question"`
	Answer   string   `json:"answer"`
	Keywords []string `json:"keywords"`
	IsActive bool     `json:"isActive"`
}

// KnowledgeStore holds knowledge entries with a bleve full-text index over
// question, answer, and keywords.
type KnowledgeStore struct {
	mu         sync.RWMutex
	docs       map[string]*model.KnowledgeEntry
	byQuestion map[string]string
	index      bleve.Index
	logger     *logger.Logger
}

// NewKnowledgeStore creates an empty knowledge store with an in-memory
// index.
func NewKnowledgeStore(log *logger.Logger) (*KnowledgeStore, error) {
	index, err := bleve.NewMemOnly(knowledgeMapping())
	if err != nil {
		return nil, err
	}

	return &KnowledgeStore{
		docs:       make(map[string]*model.KnowledgeEntry),
		byQuestion: make(map[string]string),
		index:      index,
		logger:     log,
	}, nil
}

func knowledgeMapping() mapping.IndexMapping {
	docMapping := bleve.NewDocumentMapping()

	textField := bleve.NewTextFieldMapping()
	textField.Index = true
	textField.IncludeInAll = true
	docMapping.AddFieldMappingsAt("question", textField)
	docMapping.AddFieldMappingsAt("answer", textField)
	docMapping.AddFieldMappingsAt("keywords", textField)

	boolField := bleve.NewBooleanFieldMapping()
	boolField.IncludeInAll = false
	docMapping.AddFieldMappingsAt("isActive", boolField)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.AddDocumentMapping("knowledge", docMapping)
	indexMapping.DefaultAnalyzer = "standard"

	return indexMapping
}

// Create inserts a new knowledge entry. Questions are unique.
func (s *KnowledgeStore) Create(ctx context.Context, entry model.KnowledgeEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.docs[entry.ID]; exists {
		return ErrDuplicate
	}
	if _, exists := s.byQuestion[entry.Question]; exists {
		return ErrDuplicate
	}

	if err := s.index.Index(entry.ID, knowledgeDoc{
		Question: entry.Question,
		Answer:   entry.Answer,
		Keywords: entry.Keywords,
		IsActive: entry.IsActive,
	}); err != nil {
		return err
	}

	stored := entry
	s.docs[entry.ID] = &stored
	s.byQuestion[entry.Question] = entry.ID
	return nil
}

// Get returns a copy of a knowledge entry.
func (s *KnowledgeStore) Get(ctx context.Context, id string) (*model.KnowledgeEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.docs[id]
	if !ok {
		return nil, ErrNotFound
	}
	doc := *entry
	return &doc, nil
}

// List returns all knowledge entries, optionally restricted to active ones.
func (s *KnowledgeStore) List(ctx context.Context, activeOnly bool) ([]model.KnowledgeEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.KnowledgeEntry, 0, len(s.docs))
	for _, entry := range s.docs {
		if activeOnly && !entry.IsActive {
			continue
		}
		out = append(out, *entry)
	}
	return out, nil
}

// Update applies fn to a knowledge entry and reindexes it.
func (s *KnowledgeStore) Update(ctx context.Context, id string, fn func(*model.KnowledgeEntry) error) (*model.KnowledgeEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.docs[id]
	if !ok {
		return nil, ErrNotFound
	}

	oldQuestion := entry.Question
	if err := fn(entry); err != nil {
		return nil, err
	}
	entry.UpdatedAt = time.Now()

	if entry.Question != oldQuestion {
		if otherID, exists := s.byQuestion[entry.Question]; exists && otherID != id {
			entry.Question = oldQuestion
			return nil, ErrDuplicate
		}
		delete(s.byQuestion, oldQuestion)
		s.byQuestion[entry.Question] = id
	}

	if err := s.index.Index(id, knowledgeDoc{
		Question: entry.Question,
		Answer:   entry.Answer,
		Keywords: entry.Keywords,
		IsActive: entry.IsActive,
	}); err != nil {
		return nil, err
	}

	doc := *entry
	return &doc, nil
}

// Delete removes a knowledge entry.
func (s *KnowledgeStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.docs[id]
	if !ok {
		return ErrNotFound
	}
	if err := s.index.Delete(id); err != nil {
		return err
	}
	delete(s.byQuestion, entry.Question)
	delete(s.docs, id)
	return nil
}

// Search returns active entries ranked by full-text relevance against the
// question, answer, and keyword fields.
func (s *KnowledgeStore) Search(ctx context.Context, text string, limit int) ([]model.KnowledgeEntry, error) {
	if limit <= 0 {
		limit = 5
	}

	match := bleve.NewMatchQuery(text)
	active := bleve.NewBoolFieldQuery(true)
	active.SetField("isActive")
	request := bleve.NewSearchRequest(bleve.NewConjunctionQuery(match, active))
	request.Size = limit

	result, err := s.index.Search(request)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.KnowledgeEntry, 0, limit)
	for _, hit := range result.Hits {
		entry, ok := s.docs[hit.ID]
		if !ok || !entry.IsActive {
			continue
		}
		out = append(out, *entry)
	}
	return out, nil
}

// IncrementUsage bumps the usage counter of each entry by one as a single
// batch keyed by entry identity.
func (s *KnowledgeStore) IncrementUsage(ctx context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		if entry, ok := s.docs[id]; ok {
			entry.UsageCount++
		}
	}
	return nil
}

// Close releases the index.
func (s *KnowledgeStore) Close() error {
	if err := s.index.Close(); err != nil {
		s.logger.Warn("failed to close knowledge index", zap.Error(err))
		return err
	}
	return nil
}
