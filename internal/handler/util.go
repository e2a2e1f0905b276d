// Package handler provides HTTP handlers for the API.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/helpdesk-ai/support-platform/internal/middleware"
	"github.com/helpdesk-ai/support-platform/internal/model"
	"github.com/helpdesk-ai/support-platform/internal/service"
	"github.com/helpdesk-ai/support-platform/internal/store"
)

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
	})
}

// writeServiceError maps service-layer sentinel errors to HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, service.ErrContentViolation):
		writeJSON(w, http.StatusBadRequest, model.ContentViolationResponse{
			Error:            "Message content violates usage policies",
			ContentViolation: true,
		})
	case errors.Is(err, service.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrForbidden):
		writeError(w, http.StatusForbidden, "access denied")
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	default:
		writeError(w, http.StatusInternalServerError, fallback)
	}
}

// principal resolves the authenticated user, preferring the stored document
// so chat preferences survive into generation. Token claims back the
// principal when no document exists.
func principal(ctx context.Context, users *store.UserStore) *model.User {
	id := middleware.GetUserID(ctx)
	if user, err := users.Get(ctx, id); err == nil {
		return user
	}
	return &model.User{
		ID:   id,
		Name: middleware.GetName(ctx),
		Role: middleware.GetRole(ctx),
	}
}
