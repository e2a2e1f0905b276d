package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helpdesk-ai/support-platform/internal/model"
	"github.com/helpdesk-ai/support-platform/internal/service"
)

func TestWriteServiceError(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"content violation", service.ErrContentViolation, http.StatusBadRequest},
		{"invalid input", fmt.Errorf("%w: bad field", service.ErrInvalidInput), http.StatusBadRequest},
		{"forbidden", service.ErrForbidden, http.StatusForbidden},
		{"not found", service.ErrNotFound, http.StatusNotFound},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeServiceError(rec, tc.err, "fallback")
			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		})
	}

	t.Run("content violation body carries the flag", func(t *testing.T) {
		rec := httptest.NewRecorder()
		writeServiceError(rec, service.ErrContentViolation, "fallback")

		var body model.ContentViolationResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.True(t, body.ContentViolation)
		assert.NotEmpty(t, body.Error)
	})

	t.Run("unexpected errors hide details behind the fallback", func(t *testing.T) {
		rec := httptest.NewRecorder()
		writeServiceError(rec, errors.New("connection string leaked"), "failed to do the thing")

		var body map[string]string
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.Equal(t, "failed to do the thing", body["error"])
	})
}
