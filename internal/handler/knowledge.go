package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/helpdesk-ai/support-platform/internal/middleware"
	"github.com/helpdesk-ai/support-platform/internal/model"
	"github.com/helpdesk-ai/support-platform/internal/service"
	"github.com/helpdesk-ai/support-platform/internal/store"
	"github.com/helpdesk-ai/support-platform/pkg/logger"
)

// KnowledgeHandler handles FAQ knowledge-base endpoints. Writes are gated
// to agents and admins at the router.
type KnowledgeHandler struct {
	service *service.KnowledgeService
	users   *store.UserStore
	logger  *logger.Logger
}

// NewKnowledgeHandler creates a new knowledge handler.
func NewKnowledgeHandler(svc *service.KnowledgeService, users *store.UserStore, log *logger.Logger) *KnowledgeHandler {
	return &KnowledgeHandler{
		service: svc,
		users:   users,
		logger:  log,
	}
}

// Create handles POST /api/v1/knowledge
func (h *KnowledgeHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req model.CreateKnowledgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	entry, err := h.service.Create(ctx, middleware.GetUserID(ctx), &req)
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			writeError(w, http.StatusConflict, "an entry with this question already exists")
			return
		}
		writeServiceError(w, err, "failed to create knowledge entry")
		return
	}

	writeJSON(w, http.StatusCreated, entry)
}

// List handles GET /api/v1/knowledge. Customers see active entries only.
func (h *KnowledgeHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	entries, err := h.service.List(ctx, principal(ctx, h.users))
	if err != nil {
		writeServiceError(w, err, "failed to list knowledge entries")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"entries": entries,
		"count":   len(entries),
	})
}

// Get handles GET /api/v1/knowledge/:id
func (h *KnowledgeHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	if err := middleware.ValidateID(id); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	entry, err := h.service.Get(ctx, id)
	if err != nil {
		writeServiceError(w, err, "failed to get knowledge entry")
		return
	}

	writeJSON(w, http.StatusOK, entry)
}

// Update handles PUT /api/v1/knowledge/:id
func (h *KnowledgeHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	if err := middleware.ValidateID(id); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req model.UpdateKnowledgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	entry, err := h.service.Update(ctx, middleware.GetUserID(ctx), id, &req)
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			writeError(w, http.StatusConflict, "an entry with this question already exists")
			return
		}
		writeServiceError(w, err, "failed to update knowledge entry")
		return
	}

	writeJSON(w, http.StatusOK, entry)
}

// Delete handles DELETE /api/v1/knowledge/:id
func (h *KnowledgeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	if err := middleware.ValidateID(id); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.service.Delete(ctx, id); err != nil {
		writeServiceError(w, err, "failed to delete knowledge entry")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
