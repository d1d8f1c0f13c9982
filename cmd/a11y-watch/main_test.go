package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"web_accessibility_analyzer/internal/client"
	"web_accessibility_analyzer/internal/domain/models"

	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func apiReturning(final models.Analysis) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.Method == http.MethodPost {
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(map[string]any{
				"message":  "analysis started",
				"analysis": models.Analysis{ID: final.ID, URL: final.URL, Status: models.StatusProcessing},
			})
			return
		}
		json.NewEncoder(w).Encode(final)
	}))
}

func TestRun_ReportsScoreAndGrade(t *testing.T) {
	score := 65
	srv := apiReturning(models.Analysis{
		ID: "a1", URL: "https://example.com", Status: models.StatusCompleted, Score: &score,
		Results: &models.AuditResult{Violations: []models.RuleResult{{ID: "image-alt"}}},
	})
	defer srv.Close()

	logger, hook := test.NewNullLogger()
	err := run(context.Background(), client.New(srv.URL, nil, logger), "https://example.com", time.Millisecond, logger)
	require.NoError(t, err)

	last := hook.LastEntry()
	require.NotNil(t, last)
	assert.Equal(t, "analysis completed", last.Message)
	assert.Equal(t, 65, last.Data["score"])
	assert.EqualValues(t, "fair", last.Data["grade"])
	assert.Equal(t, 1, last.Data["violations"])
}

func TestRun_ErrorStatusFails(t *testing.T) {
	srv := apiReturning(models.Analysis{ID: "a1", URL: "https://example.com", Status: models.StatusError})
	defer srv.Close()

	logger := log.New()
	err := run(context.Background(), client.New(srv.URL, nil, logger), "https://example.com", time.Millisecond, logger)
	assert.ErrorContains(t, err, "ended with status error")
}
