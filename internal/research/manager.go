package research

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wharfside/deepresearch/internal/agents"
	"github.com/wharfside/deepresearch/internal/events"
	"github.com/wharfside/deepresearch/internal/report"
	"github.com/wharfside/deepresearch/internal/store"
)

// Publisher is the slice of the event broker the manager publishes to.
type Publisher interface {
	Publish(event events.ProgressEvent)
}

// ResolveImagesFunc post-processes report HTML, replacing embedded image
// directives with generated files. Nil leaves the HTML untouched.
type ResolveImagesFunc func(html string) string

// Manager starts research tasks in the background and tracks their
// lifecycle in the store. Each task gets its own agent, thread, and
// polling loop; the manager fans progress out through the broker and
// records the terminal outcome plus the assembled report.
type Manager struct {
	store         store.Store
	broker        Publisher
	runtime       SessionRuntime
	spec          agents.AgentSpec
	opts          Options
	resolveImages ResolveImagesFunc

	mu        sync.Mutex
	running   map[string]bool
	cancelled map[string]bool
	seq       map[string]int64
}

func NewManager(st store.Store, broker Publisher, runtime SessionRuntime, spec agents.AgentSpec, opts Options, resolveImages ResolveImagesFunc) *Manager {
	return &Manager{
		store:         st,
		broker:        broker,
		runtime:       runtime,
		spec:          spec,
		opts:          opts,
		resolveImages: resolveImages,
		running:       map[string]bool{},
		cancelled:     map[string]bool{},
		seq:           map[string]int64{},
	}
}

// Start records a new research run and launches its worker goroutine. The
// returned run reflects the row as created; the worker updates it as the
// task progresses.
func (m *Manager) Start(ctx context.Context, prompt string) (*store.ResearchRun, error) {
	id := uuid.New().String()
	now := time.Now().UTC().Format(time.RFC3339Nano)
	run := store.ResearchRun{
		ID:        id,
		Prompt:    prompt,
		Status:    store.StatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := m.store.CreateResearchRun(ctx, run); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.running[id] = true
	m.mu.Unlock()

	go m.runTask(id, prompt)
	return &run, nil
}

// Cancel flags a running task for cooperative cancellation. It reports
// whether the task was still running; the polling loop observes the flag
// on its next iteration.
func (m *Manager) Cancel(researchID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running[researchID] {
		return false
	}
	m.cancelled[researchID] = true
	return true
}

func (m *Manager) runTask(id, prompt string) {
	// Task lifetime is bounded by the poller deadline, not the submitting
	// request, so the worker runs on a fresh context.
	ctx := context.Background()
	defer func() {
		m.mu.Lock()
		delete(m.running, id)
		delete(m.cancelled, id)
		delete(m.seq, id)
		m.mu.Unlock()
	}()

	m.publish(id, events.TypeStatus, "starting research agent")
	session, err := Open(ctx, m.runtime, m.spec, m.opts)
	if err != nil {
		m.finish(ctx, id, "", store.StatusFailed, err.Error())
		return
	}
	defer session.Close(ctx)

	m.updateRun(ctx, id, func(run *store.ResearchRun) {
		run.AgentID = session.AgentID()
		run.ThreadID = session.ThreadID()
	})

	onProgress := func(text string) {
		for _, line := range strings.Split(text, "\n") {
			eventType := events.TypeReasoning
			if strings.HasPrefix(line, "Citation: ") {
				eventType = events.TypeCitation
			}
			m.publish(id, eventType, line)
		}
	}
	shouldCancel := func() bool {
		m.mu.Lock()
		defer m.mu.Unlock()
		return m.cancelled[id]
	}

	result, err := session.Run(ctx, prompt, onProgress, shouldCancel)
	runID := session.LastRunID()
	if err != nil {
		m.finish(ctx, id, runID, store.StatusFailed, err.Error())
		return
	}

	switch result.Outcome {
	case OutcomeCompleted:
		m.completeTask(ctx, id, runID, result)
	case OutcomeFailed:
		m.finish(ctx, id, runID, store.StatusFailed, result.ErrorDetail)
	case OutcomeCancelled:
		m.finish(ctx, id, runID, store.StatusCancelled, "")
	case OutcomeTimedOut:
		m.finish(ctx, id, runID, store.StatusTimedOut, "")
	case OutcomeRequiresAction:
		m.finish(ctx, id, runID, store.StatusRequiresAction, "")
	}
}

func (m *Manager) completeTask(ctx context.Context, id, runID string, result TerminalResult) {
	assembled := report.Assemble(result.Message)
	html := assembled.HTML()
	if m.resolveImages != nil {
		html = m.resolveImages(html)
	}
	saved := store.Report{
		ResearchID: id,
		Markdown:   assembled.Markdown(),
		HTML:       html,
		CreatedAt:  time.Now().UTC().Format(time.RFC3339Nano),
	}
	if err := m.store.SaveReport(ctx, saved); err != nil {
		log.Printf("save report for research %s: %v", id, err)
	}
	m.finish(ctx, id, runID, store.StatusCompleted, "")
	m.publish(id, events.TypeResult, saved.Markdown)
}

func (m *Manager) finish(ctx context.Context, id, runID, status, errorDetail string) {
	m.updateRun(ctx, id, func(run *store.ResearchRun) {
		run.RemoteRun = runID
		run.Status = status
		run.Error = errorDetail
	})
	if errorDetail != "" {
		m.publish(id, events.TypeError, errorDetail)
		return
	}
	m.publish(id, events.TypeStatus, status)
}

func (m *Manager) updateRun(ctx context.Context, id string, mutate func(run *store.ResearchRun)) {
	run, err := m.store.GetResearchRun(ctx, id)
	if err != nil || run == nil {
		log.Printf("load research run %s: %v", id, err)
		return
	}
	mutate(run)
	run.UpdatedAt = time.Now().UTC().Format(time.RFC3339Nano)
	if err := m.store.UpdateResearchRun(ctx, *run); err != nil {
		log.Printf("update research run %s: %v", id, err)
	}
}

func (m *Manager) publish(id, eventType, text string) {
	m.mu.Lock()
	m.seq[id]++
	seq := m.seq[id]
	m.mu.Unlock()
	event := events.ProgressEvent{
		ResearchID: id,
		Seq:        seq,
		Type:       eventType,
		Ts:         time.Now().UTC().Format(time.RFC3339Nano),
		Text:       text,
	}
	if err := m.store.AppendEvent(context.Background(), store.ProgressEvent{
		ResearchID: event.ResearchID,
		Seq:        event.Seq,
		Type:       event.Type,
		Timestamp:  event.Ts,
		Text:       event.Text,
	}); err != nil {
		log.Printf("record event for research %s: %v", id, err)
	}
	m.broker.Publish(event)
}
