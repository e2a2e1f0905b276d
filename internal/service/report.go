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
	"github.com/helpdesk-ai/support-platform/internal/ws"
	"github.com/helpdesk-ai/support-platform/pkg/logger"
	"github.com/helpdesk-ai/support-platform/pkg/metrics"
)

const maxReportDescription = 1000

// ReportService handles the report lifecycle. Creating a report escalates
// its conversation and notifies every connected agent and admin.
type ReportService struct {
	store         *store.Store
	conversations *ConversationService
	broadcaster   Broadcaster
	eventLog      EventLog
	logger        *logger.Logger
}

// NewReportService creates a new report service. broadcaster and eventLog
// may be nil.
func NewReportService(s *store.Store, conversations *ConversationService, broadcaster Broadcaster, eventLog EventLog, log *logger.Logger) *ReportService {
	return &ReportService{
		store:         s,
		conversations: conversations,
		broadcaster:   orNopBroadcaster(broadcaster),
		eventLog:      orNopEventLog(eventLog),
		logger:        log,
	}
}

// Create files a report against a conversation the principal may act on and
// escalates the conversation.
func (s *ReportService) Create(ctx context.Context, principal *model.User, req *model.CreateReportRequest) (*model.Report, error) {
	if !req.IssueType.Valid() {
		return nil, fmt.Errorf("%w: unknown issue type %q", ErrInvalidInput, req.IssueType)
	}
	description := strings.TrimSpace(req.Description)
	if description == "" {
		return nil, fmt.Errorf("%w: description is required", ErrInvalidInput)
	}
	if len(description) > maxReportDescription {
		return nil, fmt.Errorf("%w: description exceeds %d characters", ErrInvalidInput, maxReportDescription)
	}

	conv, err := s.store.Conversations.Get(ctx, req.ConversationID)
	if err != nil {
		return nil, ErrNotFound
	}
	if principal.Role == model.RoleCustomer && conv.UserID != principal.ID {
		return nil, ErrForbidden
	}

	priority := req.Priority
	if priority == "" {
		priority = model.PriorityMedium
	}

	now := time.Now()
	report := model.Report{
		ID:             uuid.Must(uuid.NewV7()).String(),
		ConversationID: req.ConversationID,
		ReportedBy:     principal.ID,
		IssueType:      req.IssueType,
		Description:    description,
		Status:         model.ReportPending,
		Priority:       priority,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.store.Reports.Create(ctx, report); err != nil {
		return nil, fmt.Errorf("create report: %w", err)
	}

	if _, err := s.conversations.Escalate(ctx, req.ConversationID); err != nil {
		s.logger.Warn("failed to escalate conversation",
			zap.String("conversation_id", req.ConversationID),
			zap.Error(err),
		)
	}

	metrics.ReportsTotal.WithLabelValues(string(req.IssueType)).Inc()

	if err := s.eventLog.PublishReportEvent(ctx, "created", &report); err != nil {
		s.logger.Warn("failed to log report event", zap.Error(err))
	}
	s.broadcaster.ToReviewers(ws.EventReportNew, &report)

	return &report, nil
}

// Get returns a report. Agents and admins only.
func (s *ReportService) Get(ctx context.Context, principal *model.User, id string) (*model.Report, error) {
	if !principal.Role.CanReview() {
		return nil, ErrForbidden
	}
	report, err := s.store.Reports.Get(ctx, id)
	if err != nil {
		return nil, ErrNotFound
	}
	return report, nil
}

// List returns reports filtered by status and priority. Agents see reports
// assigned to them plus the pending pool; admins see everything.
func (s *ReportService) List(ctx context.Context, principal *model.User, status model.ReportStatus, priority model.Priority) ([]model.Report, error) {
	if !principal.Role.CanReview() {
		return nil, ErrForbidden
	}

	return s.store.Reports.List(ctx, func(r *model.Report) bool {
		if status != "" && r.Status != status {
			return false
		}
		if priority != "" && r.Priority != priority {
			return false
		}
		if principal.Role == model.RoleAgent {
			return r.AssignedTo == principal.ID || r.Status == model.ReportPending
		}
		return true
	})
}

// Update triages a report: status, priority, assignee, resolution notes.
// Resolving stamps the resolver; reopening clears the resolution.
func (s *ReportService) Update(ctx context.Context, principal *model.User, id string, req *model.UpdateReportRequest) (*model.Report, error) {
	if !principal.Role.CanReview() {
		return nil, ErrForbidden
	}

	report, err := s.store.Reports.Update(ctx, id, func(r *model.Report) error {
		if req.Status != "" {
			r.Status = req.Status
			switch req.Status {
			case model.ReportResolved, model.ReportDismissed:
				now := time.Now()
				r.Resolution.ResolvedBy = principal.ID
				r.Resolution.ResolvedAt = &now
			default:
				r.Resolution.ResolvedBy = ""
				r.Resolution.ResolvedAt = nil
			}
		}
		if req.Priority != "" {
			r.Priority = req.Priority
		}
		if req.AssignedTo != "" {
			r.AssignedTo = req.AssignedTo
		}
		if req.Notes != "" {
			r.Resolution.Notes = req.Notes
		}
		return nil
	})
	if err != nil {
		return nil, ErrNotFound
	}

	if err := s.eventLog.PublishReportEvent(ctx, "updated", report); err != nil {
		s.logger.Warn("failed to log report event", zap.Error(err))
	}
	s.broadcaster.ToReviewers(ws.EventReportUpdate, report)

	return report, nil
}
