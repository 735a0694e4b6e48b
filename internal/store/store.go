package store

import "context"

type ResearchRun struct {
	ID        string
	ThreadID  string
	AgentID   string
	RemoteRun string
	Prompt    string
	Status    string
	Error     string
	CreatedAt string
	UpdatedAt string
}

const (
	StatusRunning        = "running"
	StatusCompleted      = "completed"
	StatusFailed         = "failed"
	StatusCancelled      = "cancelled"
	StatusTimedOut       = "timed_out"
	StatusRequiresAction = "requires_action"
)

type Report struct {
	ResearchID string
	Markdown   string
	HTML       string
	CreatedAt  string
}

// ProgressEvent is the persisted form of a progress event, kept so SSE
// clients can replay what they missed after a reconnect.
type ProgressEvent struct {
	ResearchID string
	Seq        int64
	Type       string
	Timestamp  string
	Text       string
}

type Store interface {
	CreateResearchRun(ctx context.Context, run ResearchRun) error
	UpdateResearchRun(ctx context.Context, run ResearchRun) error
	GetResearchRun(ctx context.Context, researchID string) (*ResearchRun, error)
	ListResearchRuns(ctx context.Context) ([]ResearchRun, error)
	AppendEvent(ctx context.Context, event ProgressEvent) error
	ListEvents(ctx context.Context, researchID string, afterSeq int64) ([]ProgressEvent, error)
	SaveReport(ctx context.Context, report Report) error
	GetReport(ctx context.Context, researchID string) (*Report, error)
}
