package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/helpdesk-ai/support-platform/internal/model"
)

// ReportStore holds report documents.
type ReportStore struct {
	mu   sync.RWMutex
	docs map[string]*model.Report
}

// NewReportStore creates an empty report store.
func NewReportStore() *ReportStore {
	return &ReportStore{
		docs: make(map[string]*model.Report),
	}
}

// Create inserts a new report.
func (s *ReportStore) Create(ctx context.Context, report model.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.docs[report.ID]; exists {
		return ErrDuplicate
	}
	stored := report
	s.docs[report.ID] = &stored
	return nil
}

// Get returns a copy of a report.
func (s *ReportStore) Get(ctx context.Context, id string) (*model.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	report, ok := s.docs[id]
	if !ok {
		return nil, ErrNotFound
	}
	doc := *report
	return &doc, nil
}

// List returns reports matching the filter, newest first. A nil filter
// matches everything.
func (s *ReportStore) List(ctx context.Context, filter func(*model.Report) bool) ([]model.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Report
	for _, report := range s.docs {
		doc := *report
		if filter == nil || filter(&doc) {
			out = append(out, doc)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	return out, nil
}

// Update applies fn to a report.
func (s *ReportStore) Update(ctx context.Context, id string, fn func(*model.Report) error) (*model.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	report, ok := s.docs[id]
	if !ok {
		return nil, ErrNotFound
	}
	if err := fn(report); err != nil {
		return nil, err
	}
	report.UpdatedAt = time.Now()

	doc := *report
	return &doc, nil
}
