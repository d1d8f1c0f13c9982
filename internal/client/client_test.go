package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"web_accessibility_analyzer/internal/domain/models"
	"web_accessibility_analyzer/internal/pkg/errors"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAPI serves one analysis whose status advances on every GET.
type fakeAPI struct {
	mu       sync.Mutex
	statuses []models.Status
	gets     int
	deleted  bool
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/api/analyses":
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["url"] == "" {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]any{"message": "failed to create analysis", "error": "invalid url: is required", "code": 400})
			return
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{
			"message":  "analysis started",
			"analysis": models.Analysis{ID: "a1", URL: body["url"], Status: models.StatusProcessing},
		})
	case r.Method == http.MethodGet && r.URL.Path == "/api/analyses":
		json.NewEncoder(w).Encode([]models.Analysis{{ID: "a1", Status: models.StatusProcessing}})
	case r.URL.Path == "/api/analyses/a1" && !f.deleted:
		if r.Method == http.MethodDelete {
			f.deleted = true
			json.NewEncoder(w).Encode(map[string]string{"message": "analysis deleted"})
			return
		}
		i := f.gets
		if i >= len(f.statuses) {
			i = len(f.statuses) - 1
		}
		f.gets++
		a := models.Analysis{ID: "a1", Status: f.statuses[i]}
		if a.Status == models.StatusCompleted {
			score := 80
			a.Score = &score
			a.Results = &models.AuditResult{}
		}
		json.NewEncoder(w).Encode(a)
	default:
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]any{"message": "failed to get analysis", "error": "analysis not found", "code": 404})
	}
}

func newTestClient(t *testing.T, api *fakeAPI) *Client {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	return New(srv.URL+"/", nil, log.New())
}

func TestClient_CRUD(t *testing.T) {
	c := newTestClient(t, &fakeAPI{statuses: []models.Status{models.StatusProcessing}})
	ctx := context.Background()

	a, err := c.Create(ctx, "https://example.com")
	require.NoError(t, err)
	assert.Equal(t, "a1", a.ID)
	assert.Equal(t, models.StatusProcessing, a.Status)

	list, err := c.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, c.Delete(ctx, "a1"))

	_, err = c.Get(ctx, "a1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestClient_CreateValidationError(t *testing.T) {
	c := newTestClient(t, &fakeAPI{})

	_, err := c.Create(context.Background(), "")
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "invalid url: is required", apiErr.Detail)
	assert.False(t, errors.Is(err, errors.ErrNotFound))
}

func TestWatch_UntilTerminal(t *testing.T) {
	c := newTestClient(t, &fakeAPI{statuses: []models.Status{
		models.StatusProcessing, models.StatusProcessing, models.StatusCompleted,
	}})

	var seen []models.Status
	final, err := c.Watch(context.Background(), "a1", 5*time.Millisecond, func(a *models.Analysis) {
		seen = append(seen, a.Status)
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, final.Status)
	require.NotNil(t, final.Score)
	assert.Equal(t, 80, *final.Score)
	assert.Equal(t, []models.Status{models.StatusProcessing, models.StatusCompleted}, seen)
}

func TestWatch_StopsOnCancel(t *testing.T) {
	c := newTestClient(t, &fakeAPI{statuses: []models.Status{models.StatusProcessing}})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := c.Watch(ctx, "a1", 5*time.Millisecond, nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWatch_MissingAnalysis(t *testing.T) {
	c := newTestClient(t, &fakeAPI{statuses: []models.Status{models.StatusProcessing}})

	_, err := c.Watch(context.Background(), "nope", time.Millisecond, nil)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}
