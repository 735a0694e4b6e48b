package research

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/wharfside/deepresearch/internal/agents"
	"github.com/wharfside/deepresearch/internal/extract"
)

// Runtime is the slice of the agent-runtime client the poller drives.
// Status is authoritative on the remote side; the poller only reads it.
type Runtime interface {
	CreateMessage(ctx context.Context, threadID, role, content string) (*agents.Message, error)
	CreateRun(ctx context.Context, threadID, agentID string) (*agents.Run, error)
	GetRun(ctx context.Context, threadID, runID string) (*agents.Run, error)
	GetLastMessageByRole(ctx context.Context, threadID, role string) (*agents.Message, error)
}

type Outcome string

const (
	OutcomeCompleted      Outcome = "completed"
	OutcomeFailed         Outcome = "failed"
	OutcomeCancelled      Outcome = "cancelled"
	OutcomeTimedOut       Outcome = "timed_out"
	OutcomeRequiresAction Outcome = "requires_action"
)

// TerminalResult is the single value a finished polling cycle produces.
// Message is set only for OutcomeCompleted and may still be nil when the
// runtime produced no agent message; callers treat that as "no content".
type TerminalResult struct {
	Outcome     Outcome
	Message     *agents.Message
	ErrorDetail string
}

// ProgressFunc receives human-readable incremental text, zero or more
// times per run.
type ProgressFunc func(text string)

// CancelFunc is checked once per loop iteration; cancellation is
// cooperative, an in-flight remote call completes first.
type CancelFunc func() bool

type Options struct {
	PollInterval time.Duration
	MaxWait      time.Duration
}

const (
	defaultPollInterval = 2 * time.Second
	defaultMaxWait      = 30 * time.Minute
	progressCitationCap = 3
)

type Poller struct {
	runtime  Runtime
	interval time.Duration
	maxWait  time.Duration
}

func NewPoller(runtime Runtime, opts Options) *Poller {
	interval := opts.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	maxWait := opts.MaxWait
	if maxWait <= 0 {
		maxWait = defaultMaxWait
	}
	return &Poller{runtime: runtime, interval: interval, maxWait: maxWait}
}

// Submit creates the user message and then the run. Either remote call
// failing surfaces immediately as a SubmissionError; nothing is retried.
func (p *Poller) Submit(ctx context.Context, threadID, agentID, text string) (*agents.Run, error) {
	if _, err := p.runtime.CreateMessage(ctx, threadID, agents.RoleUser, text); err != nil {
		return nil, &SubmissionError{Op: "create message", Err: err}
	}
	run, err := p.runtime.CreateRun(ctx, threadID, agentID)
	if err != nil {
		return nil, &SubmissionError{Op: "create run", Err: err}
	}
	return run, nil
}

// PollUntilTerminal drives one run to a terminal outcome. Each iteration
// re-fetches the run status, sleeps the configured interval, and surfaces
// new reasoning output through onProgress. Message freshness is decided by
// id comparison only, so duplicate fetches of the same last message are
// idempotent.
func (p *Poller) PollUntilTerminal(ctx context.Context, run *agents.Run, onProgress ProgressFunc, shouldCancel CancelFunc) (TerminalResult, error) {
	if onProgress == nil {
		onProgress = func(string) {}
	}
	if shouldCancel == nil {
		shouldCancel = func() bool { return false }
	}

	deadline := time.Now().Add(p.maxWait)
	current := run
	lastMessageID := ""

	for {
		switch current.Status {
		case agents.RunStatusCompleted:
			final, err := p.runtime.GetLastMessageByRole(ctx, current.ThreadID, agents.RoleAgent)
			if err != nil {
				return TerminalResult{}, err
			}
			return TerminalResult{Outcome: OutcomeCompleted, Message: final}, nil
		case agents.RunStatusFailed:
			return TerminalResult{Outcome: OutcomeFailed, ErrorDetail: formatRunError(current.LastError)}, nil
		case agents.RunStatusRequiresAction:
			// The runtime is waiting on the caller. Surfaced as its own
			// outcome instead of looping forever or auto-approving.
			return TerminalResult{Outcome: OutcomeRequiresAction}, nil
		}

		if shouldCancel() {
			return TerminalResult{Outcome: OutcomeCancelled}, nil
		}
		if time.Now().After(deadline) {
			return TerminalResult{Outcome: OutcomeTimedOut}, nil
		}

		select {
		case <-ctx.Done():
			return TerminalResult{Outcome: OutcomeCancelled}, nil
		case <-time.After(p.interval):
		}

		refetched, err := p.runtime.GetRun(ctx, current.ThreadID, current.ID)
		if err != nil {
			return TerminalResult{}, err
		}
		current = refetched
		lastMessageID = p.surfaceProgress(ctx, current.ThreadID, lastMessageID, onProgress)
	}
}

// surfaceProgress fetches the newest agent message and emits a progress
// event when it is new reasoning content. The cursor advances for every
// new message id, reasoning or not, so answer-only intermediates are
// silently suppressed rather than re-examined.
func (p *Poller) surfaceProgress(ctx context.Context, threadID, lastMessageID string, onProgress ProgressFunc) string {
	message, err := p.runtime.GetLastMessageByRole(ctx, threadID, agents.RoleAgent)
	if err != nil {
		// The status fetch is load-bearing; this one is not.
		log.Printf("progress fetch failed: %v", err)
		return lastMessageID
	}
	if message == nil || message.ID == lastMessageID {
		return lastMessageID
	}
	if extract.HasReasoning(message) {
		onProgress(formatProgress(message))
	}
	return message.ID
}

func formatProgress(message *agents.Message) string {
	content := extract.Extract(message)
	lines := make([]string, 0, len(content.Reasoning)+progressCitationCap)
	for _, reasoning := range content.Reasoning {
		lines = append(lines, "Reasoning: "+reasoning)
	}
	annotations := message.URLCitationAnnotations()
	for i, ann := range annotations {
		if i == progressCitationCap {
			break
		}
		title := ann.URLCitation.Title
		if title == "" {
			title = ann.URLCitation.URL
		}
		lines = append(lines, fmt.Sprintf("Citation: [%s](%s)", title, ann.URLCitation.URL))
	}
	return strings.Join(lines, "\n")
}

func formatRunError(runError *agents.RunError) string {
	if runError == nil {
		return ""
	}
	if runError.Code == "" {
		return runError.Message
	}
	return fmt.Sprintf("%s: %s", runError.Code, runError.Message)
}
