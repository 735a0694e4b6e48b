package api

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/mock"

	"github.com/wharfside/deepresearch/internal/config"
	"github.com/wharfside/deepresearch/internal/events"
	"github.com/wharfside/deepresearch/internal/store"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) CreateResearchRun(ctx context.Context, run store.ResearchRun) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *MockStore) UpdateResearchRun(ctx context.Context, run store.ResearchRun) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *MockStore) GetResearchRun(ctx context.Context, researchID string) (*store.ResearchRun, error) {
	args := m.Called(ctx, researchID)
	if value := args.Get(0); value != nil {
		return value.(*store.ResearchRun), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStore) ListResearchRuns(ctx context.Context) ([]store.ResearchRun, error) {
	args := m.Called(ctx)
	var result []store.ResearchRun
	if value := args.Get(0); value != nil {
		result = value.([]store.ResearchRun)
	}
	return result, args.Error(1)
}

func (m *MockStore) AppendEvent(ctx context.Context, event store.ProgressEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockStore) ListEvents(ctx context.Context, researchID string, afterSeq int64) ([]store.ProgressEvent, error) {
	args := m.Called(ctx, researchID, afterSeq)
	var result []store.ProgressEvent
	if value := args.Get(0); value != nil {
		result = value.([]store.ProgressEvent)
	}
	return result, args.Error(1)
}

func (m *MockStore) SaveReport(ctx context.Context, report store.Report) error {
	args := m.Called(ctx, report)
	return args.Error(0)
}

func (m *MockStore) GetReport(ctx context.Context, researchID string) (*store.Report, error) {
	args := m.Called(ctx, researchID)
	if value := args.Get(0); value != nil {
		return value.(*store.Report), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockBroker struct {
	mock.Mock
}

func (m *MockBroker) Publish(event events.ProgressEvent) {
	m.Called(event)
}

func (m *MockBroker) Subscribe(ctx context.Context, researchID string) <-chan events.ProgressEvent {
	args := m.Called(ctx, researchID)
	if value := args.Get(0); value != nil {
		if ch, ok := value.(chan events.ProgressEvent); ok {
			return ch
		}
		if ch, ok := value.(<-chan events.ProgressEvent); ok {
			return ch
		}
	}
	return nil
}

type MockTasks struct {
	mock.Mock
}

func (m *MockTasks) Start(ctx context.Context, prompt string) (*store.ResearchRun, error) {
	args := m.Called(ctx, prompt)
	if value := args.Get(0); value != nil {
		return value.(*store.ResearchRun), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockTasks) Cancel(researchID string) bool {
	args := m.Called(researchID)
	return args.Bool(0)
}

func newTestServer(t *testing.T, store store.Store, broker Broker, tasks TaskService, cfg config.Config) *httptest.Server {
	t.Helper()
	server := NewServer(store, broker, tasks, cfg)
	return httptest.NewServer(server.Router())
}
