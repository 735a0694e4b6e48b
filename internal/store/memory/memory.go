package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/wharfside/deepresearch/internal/store"
)

type MemoryStore struct {
	mu      sync.RWMutex
	runs    map[string]store.ResearchRun
	events  map[string][]store.ProgressEvent
	reports map[string]store.Report
}

func New() *MemoryStore {
	return &MemoryStore{
		runs:    map[string]store.ResearchRun{},
		events:  map[string][]store.ProgressEvent{},
		reports: map[string]store.Report{},
	}
}

func (m *MemoryStore) CreateResearchRun(ctx context.Context, run store.ResearchRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.runs[run.ID]; exists {
		return fmt.Errorf("research run already exists: %s", run.ID)
	}
	m.runs[run.ID] = run
	return nil
}

func (m *MemoryStore) UpdateResearchRun(ctx context.Context, run store.ResearchRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.runs[run.ID]; !exists {
		return fmt.Errorf("research run not found: %s", run.ID)
	}
	m.runs[run.ID] = run
	return nil
}

func (m *MemoryStore) GetResearchRun(ctx context.Context, researchID string) (*store.ResearchRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	run, exists := m.runs[researchID]
	if !exists {
		return nil, nil
	}
	return &run, nil
}

func (m *MemoryStore) ListResearchRuns(ctx context.Context) ([]store.ResearchRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	runs := make([]store.ResearchRun, 0, len(m.runs))
	for _, run := range m.runs {
		runs = append(runs, run)
	}
	sort.Slice(runs, func(i, j int) bool {
		if runs[i].CreatedAt == runs[j].CreatedAt {
			return runs[i].ID < runs[j].ID
		}
		return runs[i].CreatedAt > runs[j].CreatedAt
	})
	return runs, nil
}

func (m *MemoryStore) AppendEvent(ctx context.Context, event store.ProgressEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[event.ResearchID] = append(m.events[event.ResearchID], event)
	return nil
}

func (m *MemoryStore) ListEvents(ctx context.Context, researchID string, afterSeq int64) ([]store.ProgressEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []store.ProgressEvent{}
	for _, event := range m.events[researchID] {
		if event.Seq > afterSeq {
			out = append(out, event)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}

func (m *MemoryStore) SaveReport(ctx context.Context, report store.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports[report.ResearchID] = report
	return nil
}

func (m *MemoryStore) GetReport(ctx context.Context, researchID string) (*store.Report, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	report, exists := m.reports[researchID]
	if !exists {
		return nil, nil
	}
	return &report, nil
}
