package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"web_accessibility_analyzer/internal/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"validation", errors.NewValidationError("url", "is required"), http.StatusBadRequest},
		{"wrapped validation", fmt.Errorf("create: %w", errors.NewValidationError("url", "bad")), http.StatusBadRequest},
		{"not found", errors.ErrNotFound, http.StatusNotFound},
		{"wrapped not found", errors.Wrap(errors.ErrNotFound, "get"), http.StatusNotFound},
		{"store failure", errors.New("connection reset"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, statusFor(tc.err))
		})
	}
}

func TestSendError(t *testing.T) {
	t.Run("client errors carry the cause", func(t *testing.T) {
		rec := httptest.NewRecorder()
		sendError(rec, "failed to create analysis", errors.NewValidationError("url", "is required"), http.StatusBadRequest)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		var resp ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, ErrorResponse{Message: "failed to create analysis", Error: "invalid url: is required", Code: 400}, resp)
	})

	t.Run("server errors hide internals", func(t *testing.T) {
		rec := httptest.NewRecorder()
		sendError(rec, "failed to list analyses", errors.New("dial tcp 10.0.0.5:5432: refused"), http.StatusInternalServerError)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		var resp ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "Internal Server Error", resp.Error)
		assert.NotContains(t, rec.Body.String(), "10.0.0.5")
	})
}
