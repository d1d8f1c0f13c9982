package service

import (
	"context"
	"sync"

	"web_accessibility_analyzer/internal/domain/adaptors"
	"web_accessibility_analyzer/internal/domain/models"

	"github.com/stretchr/testify/mock"
)

// MockAuditor is a mock implementation of the PageAuditor interface
type MockAuditor struct {
	mock.Mock
}

func (m *MockAuditor) NewSession(ctx context.Context) (adaptors.AuditSession, error) {
	args := m.Called(ctx)
	session, _ := args.Get(0).(adaptors.AuditSession)
	return session, args.Error(1)
}

// MockSession is a mock implementation of the AuditSession interface
type MockSession struct {
	mock.Mock
}

func (m *MockSession) Audit(ctx context.Context, url string) (*models.AuditResult, error) {
	args := m.Called(ctx, url)
	result, _ := args.Get(0).(*models.AuditResult)
	return result, args.Error(1)
}

func (m *MockSession) Close() error {
	return m.Called().Error(0)
}

// MockStore is a mock implementation of the AnalysisStore interface
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Create(ctx context.Context, url string) (*models.Analysis, error) {
	args := m.Called(ctx, url)
	a, _ := args.Get(0).(*models.Analysis)
	return a, args.Error(1)
}

func (m *MockStore) List(ctx context.Context) ([]*models.Analysis, error) {
	args := m.Called(ctx)
	list, _ := args.Get(0).([]*models.Analysis)
	return list, args.Error(1)
}

func (m *MockStore) Get(ctx context.Context, id string) (*models.Analysis, error) {
	args := m.Called(ctx, id)
	a, _ := args.Get(0).(*models.Analysis)
	return a, args.Error(1)
}

func (m *MockStore) Update(ctx context.Context, id string, t models.Transition) error {
	return m.Called(ctx, id, t).Error(0)
}

func (m *MockStore) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockStore) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// MockStarter records started analyses
type MockStarter struct {
	mock.Mock
}

func (m *MockStarter) Start(analysisID, url string) {
	m.Called(analysisID, url)
}

type notification struct {
	event    string
	analysis *models.Analysis
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []notification
}

func (n *recordingNotifier) Notify(event string, a *models.Analysis) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, notification{event: event, analysis: a})
}

func (n *recordingNotifier) all() []notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notification(nil), n.events...)
}
