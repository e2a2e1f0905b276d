package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/helpdesk-ai/support-platform/internal/middleware"
	"github.com/helpdesk-ai/support-platform/internal/model"
	"github.com/helpdesk-ai/support-platform/internal/service"
	"github.com/helpdesk-ai/support-platform/internal/store"
	"github.com/helpdesk-ai/support-platform/pkg/logger"
)

// ReportHandler handles issue report endpoints.
type ReportHandler struct {
	service *service.ReportService
	users   *store.UserStore
	logger  *logger.Logger
}

// NewReportHandler creates a new report handler.
func NewReportHandler(svc *service.ReportService, users *store.UserStore, log *logger.Logger) *ReportHandler {
	return &ReportHandler{
		service: svc,
		users:   users,
		logger:  log,
	}
}

// Create handles POST /api/v1/reports
func (h *ReportHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req model.CreateReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidateID(req.ConversationID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	report, err := h.service.Create(ctx, principal(ctx, h.users), &req)
	if err != nil {
		writeServiceError(w, err, "failed to create report")
		return
	}

	writeJSON(w, http.StatusCreated, report)
}

// List handles GET /api/v1/reports
func (h *ReportHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status := model.ReportStatus(r.URL.Query().Get("status"))
	priority := model.Priority(r.URL.Query().Get("priority"))

	reports, err := h.service.List(ctx, principal(ctx, h.users), status, priority)
	if err != nil {
		writeServiceError(w, err, "failed to list reports")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"reports": reports,
		"count":   len(reports),
	})
}

// Get handles GET /api/v1/reports/:id
func (h *ReportHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	if err := middleware.ValidateID(id); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	report, err := h.service.Get(ctx, principal(ctx, h.users), id)
	if err != nil {
		writeServiceError(w, err, "failed to get report")
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// Update handles PUT /api/v1/reports/:id
func (h *ReportHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	if err := middleware.ValidateID(id); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req model.UpdateReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	report, err := h.service.Update(ctx, principal(ctx, h.users), id, &req)
	if err != nil {
		writeServiceError(w, err, "failed to update report")
		return
	}

	writeJSON(w, http.StatusOK, report)
}
