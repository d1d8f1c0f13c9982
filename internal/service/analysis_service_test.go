package service

import (
	"context"
	"errors"
	"testing"

	"web_accessibility_analyzer/internal/domain/adaptors"
	"web_accessibility_analyzer/internal/domain/models"
	pkgerrors "web_accessibility_analyzer/internal/pkg/errors"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestCreate_StartsAnalysis(t *testing.T) {
	ctx := context.Background()
	st := newSQLiteStore(t)
	starter := new(MockStarter)
	starter.On("Start", mock.AnythingOfType("string"), "https://example.com").Once()
	notifier := &recordingNotifier{}

	svc := NewAnalysisService(st, starter, notifier, log.New())
	a, err := svc.Create(ctx, "https://example.com")
	require.NoError(t, err)

	assert.Equal(t, models.StatusProcessing, a.Status)
	assert.Nil(t, a.Score)
	assert.Nil(t, a.Results)
	starter.AssertCalled(t, "Start", a.ID, "https://example.com")

	events := notifier.all()
	require.Len(t, events, 1)
	assert.Equal(t, adaptors.EventAnalysisCreated, events[0].event)
}

func TestCreate_InvalidURL(t *testing.T) {
	ctx := context.Background()
	st := newSQLiteStore(t)
	starter := new(MockStarter)
	svc := NewAnalysisService(st, starter, nil, log.New())

	for _, raw := range []string{"", "not a url"} {
		_, err := svc.Create(ctx, raw)
		assert.True(t, pkgerrors.IsValidation(err), "url %q: %v", raw, err)
	}

	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
	starter.AssertNotCalled(t, "Start", mock.Anything, mock.Anything)
}

func TestCreate_StoreFailure(t *testing.T) {
	st := new(MockStore)
	st.On("Create", mock.Anything, "https://example.com").Return(nil, errors.New("connection refused"))
	starter := new(MockStarter)

	svc := NewAnalysisService(st, starter, nil, log.New())
	_, err := svc.Create(context.Background(), "https://example.com")
	require.Error(t, err)
	assert.False(t, pkgerrors.IsValidation(err))
	starter.AssertNotCalled(t, "Start", mock.Anything, mock.Anything)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	st := newSQLiteStore(t)
	starter := new(MockStarter)
	starter.On("Start", mock.Anything, mock.Anything)
	notifier := &recordingNotifier{}
	svc := NewAnalysisService(st, starter, notifier, log.New())

	a, err := svc.Create(ctx, "https://example.com")
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, a.ID))
	_, err = svc.Get(ctx, a.ID)
	assert.ErrorIs(t, err, pkgerrors.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, a.ID), pkgerrors.ErrNotFound)

	events := notifier.all()
	require.Len(t, events, 2)
	assert.Equal(t, adaptors.EventAnalysisDeleted, events[1].event)
	assert.Equal(t, a.ID, events[1].analysis.ID)
}

func TestReady(t *testing.T) {
	st := new(MockStore)
	st.On("Ping", mock.Anything).Return(errors.New("down")).Once()
	st.On("Ping", mock.Anything).Return(nil).Once()
	svc := NewAnalysisService(st, new(MockStarter), nil, log.New())

	assert.Error(t, svc.Ready(context.Background()))
	assert.NoError(t, svc.Ready(context.Background()))
}
