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

// KnowledgeService handles knowledge retrieval for the generation path and
// the FAQ admin surface.
type KnowledgeService struct {
	store  *store.KnowledgeStore
	logger *logger.Logger
}

// NewKnowledgeService creates a new knowledge service.
func NewKnowledgeService(s *store.KnowledgeStore, log *logger.Logger) *KnowledgeService {
	return &KnowledgeService{store: s, logger: log}
}

// Retrieve returns up to limit active entries ranked by relevance to the
// message text. It does not touch usage counters; RecordUsage runs once the
// entries have actually been handed to a generation cycle.
func (s *KnowledgeService) Retrieve(ctx context.Context, text string, limit int) ([]model.KnowledgeEntry, error) {
	entries, err := s.store.Search(ctx, text, limit)
	if err != nil {
		return nil, fmt.Errorf("knowledge search: %w", err)
	}
	return entries, nil
}

// RecordUsage increments the usage counter of every entry returned as a
// candidate in one generation cycle, whether or not the generated answer
// used them.
func (s *KnowledgeService) RecordUsage(ctx context.Context, entries []model.KnowledgeEntry) {
	if len(entries) == 0 {
		return
	}

	ids := make([]string, len(entries))
	for i, entry := range entries {
		ids[i] = entry.ID
	}

	if err := s.store.IncrementUsage(ctx, ids); err != nil {
		s.logger.Warn("failed to record knowledge usage", zap.Error(err))
		return
	}
	metrics.KnowledgeRetrievalsTotal.Add(float64(len(ids)))
}

// Create adds a knowledge entry.
func (s *KnowledgeService) Create(ctx context.Context, createdBy string, req *model.CreateKnowledgeRequest) (*model.KnowledgeEntry, error) {
	question := strings.TrimSpace(req.Question)
	answer := strings.TrimSpace(req.Answer)
	if question == "" || answer == "" {
		return nil, fmt.Errorf("%w: question and answer are required", ErrInvalidInput)
	}

	category := req.Category
	if category == "" {
		category = model.CategoryGeneral
	}

	now := time.Now()
	entry := model.KnowledgeEntry{
		ID:        uuid.Must(uuid.NewV7()).String(),
		Category:  category,
		Question:  question,
		Answer:    answer,
		Keywords:  normalizeKeywords(req.Keywords),
		IsActive:  true,
		CreatedBy: createdBy,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.store.Create(ctx, entry); err != nil {
		if err == store.ErrDuplicate {
			return nil, fmt.Errorf("%w: question already exists", ErrInvalidInput)
		}
		return nil, err
	}

	return &entry, nil
}

// Get returns a knowledge entry.
func (s *KnowledgeService) Get(ctx context.Context, id string) (*model.KnowledgeEntry, error) {
	entry, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, ErrNotFound
	}
	return entry, nil
}

// List returns knowledge entries. Customers see active entries only.
func (s *KnowledgeService) List(ctx context.Context, principal *model.User) ([]model.KnowledgeEntry, error) {
	return s.store.List(ctx, !principal.Role.CanReview())
}

// Update edits a knowledge entry.
func (s *KnowledgeService) Update(ctx context.Context, updatedBy, id string, req *model.UpdateKnowledgeRequest) (*model.KnowledgeEntry, error) {
	entry, err := s.store.Update(ctx, id, func(e *model.KnowledgeEntry) error {
		if req.Category != "" {
			e.Category = req.Category
		}
		if req.Question != "" {
			e.Question = strings.TrimSpace(req.Question)
		}
		if req.Answer != "" {
			e.Answer = strings.TrimSpace(req.Answer)
		}
		if req.Keywords != nil {
			e.Keywords = normalizeKeywords(req.Keywords)
		}
		if req.IsActive != nil {
			e.IsActive = *req.IsActive
		}
		e.UpdatedBy = updatedBy
		return nil
	})
	if err != nil {
		switch err {
		case store.ErrNotFound:
			return nil, ErrNotFound
		case store.ErrDuplicate:
			return nil, fmt.Errorf("%w: question already exists", ErrInvalidInput)
		}
		return nil, err
	}
	return entry, nil
}

// Delete removes a knowledge entry.
func (s *KnowledgeService) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return ErrNotFound
	}
	return nil
}

func normalizeKeywords(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" {
			out = append(out, k)
		}
	}
	return out
}
