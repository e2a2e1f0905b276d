package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/helpdesk-ai/support-platform/internal/middleware"
	"github.com/helpdesk-ai/support-platform/internal/model"
	"github.com/helpdesk-ai/support-platform/internal/service"
	"github.com/helpdesk-ai/support-platform/internal/store"
	"github.com/helpdesk-ai/support-platform/pkg/logger"
)

// MessageHandler handles message endpoints.
type MessageHandler struct {
	service *service.MessageService
	users   *store.UserStore
	logger  *logger.Logger
}

// NewMessageHandler creates a new message handler.
func NewMessageHandler(svc *service.MessageService, users *store.UserStore, log *logger.Logger) *MessageHandler {
	return &MessageHandler{
		service: svc,
		users:   users,
		logger:  log,
	}
}

// Send handles POST /api/v1/conversations/:id/messages. A full success
// returns 201; a committed user message with a failed AI reply returns 200
// with the aiError field set.
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	conversationID := chi.URLParam(r, "id")

	if err := middleware.ValidateID(conversationID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req model.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := middleware.ValidateMessageContent(req.Content); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.service.Send(ctx, principal(ctx, h.users), conversationID, req.Content)
	if err != nil {
		writeServiceError(w, err, "failed to send message")
		return
	}

	if resp.AIError != "" {
		writeJSON(w, http.StatusOK, resp)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// List handles GET /api/v1/conversations/:id/messages
func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	conversationID := chi.URLParam(r, "id")

	if err := middleware.ValidateID(conversationID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	limit := 50
	offset := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}
	if o := r.URL.Query().Get("offset"); o != "" {
		if parsed, err := strconv.Atoi(o); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	messages, err := h.service.List(ctx, principal(ctx, h.users), conversationID, offset, limit)
	if err != nil {
		writeServiceError(w, err, "failed to list messages")
		return
	}

	writeJSON(w, http.StatusOK, &model.ListMessagesResponse{
		Messages: messages,
		Count:    len(messages),
	})
}

// Audit handles GET /api/v1/conversations/:id/events. It serves the durable
// event log rather than the message store, for reviewer audit.
func (h *MessageHandler) Audit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	conversationID := chi.URLParam(r, "id")

	if err := middleware.ValidateID(conversationID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	limit := 100
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 500 {
			limit = parsed
		}
	}

	messages, err := h.service.AuditLog(ctx, principal(ctx, h.users), conversationID, limit)
	if err != nil {
		writeServiceError(w, err, "failed to read event log")
		return
	}

	writeJSON(w, http.StatusOK, &model.ListMessagesResponse{
		Messages: messages,
		Count:    len(messages),
	})
}

// MarkRead handles PUT /api/v1/conversations/:id/messages/read
func (h *MessageHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	conversationID := chi.URLParam(r, "id")

	if err := middleware.ValidateID(conversationID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req model.MarkReadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.MessageIDs) == 0 {
		writeError(w, http.StatusBadRequest, "messageIds cannot be empty")
		return
	}

	if err := h.service.MarkRead(ctx, principal(ctx, h.users), conversationID, req.MessageIDs); err != nil {
		writeServiceError(w, err, "failed to mark messages read")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
