package research

import (
	"context"
	"log"
	"sync"

	"github.com/wharfside/deepresearch/internal/agents"
)

// SessionRuntime adds the agent/thread lifecycle calls a session owns on
// top of the polling surface.
type SessionRuntime interface {
	Runtime
	CreateAgent(ctx context.Context, spec agents.AgentSpec) (*agents.Agent, error)
	DeleteAgent(ctx context.Context, agentID string) error
	CreateThread(ctx context.Context) (*agents.Thread, error)
}

// Session owns one registered agent and one conversation thread for its
// lifetime. The thread is reused across turns; the agent is deleted
// best-effort on Close. A session serializes runs: the single active-run
// flag is the only thing standing between the remote thread and
// interleaved polling, so Run rejects concurrent submissions outright.
type Session struct {
	runtime SessionRuntime
	poller  *Poller
	agent   *agents.Agent
	thread  *agents.Thread

	mu        sync.Mutex
	active    bool
	lastRunID string
}

func Open(ctx context.Context, runtime SessionRuntime, spec agents.AgentSpec, opts Options) (*Session, error) {
	agent, err := runtime.CreateAgent(ctx, spec)
	if err != nil {
		return nil, err
	}
	thread, err := runtime.CreateThread(ctx)
	if err != nil {
		// The agent exists remotely; clean it up rather than leak it.
		if deleteErr := runtime.DeleteAgent(ctx, agent.ID); deleteErr != nil {
			log.Printf("failed to delete agent %s after thread creation failure: %v", agent.ID, deleteErr)
		}
		return nil, err
	}
	return &Session{
		runtime: runtime,
		poller:  NewPoller(runtime, opts),
		agent:   agent,
		thread:  thread,
	}, nil
}

// Close deletes the registered agent. Deletion is best-effort: failure is
// logged and the session is considered closed either way.
func (s *Session) Close(ctx context.Context) {
	if s.agent == nil {
		return
	}
	if err := s.runtime.DeleteAgent(ctx, s.agent.ID); err != nil {
		log.Printf("failed to delete agent %s: %v", s.agent.ID, err)
	}
	s.agent = nil
}

func (s *Session) AgentID() string {
	if s.agent == nil {
		return ""
	}
	return s.agent.ID
}

func (s *Session) ThreadID() string {
	if s.thread == nil {
		return ""
	}
	return s.thread.ID
}

// Run submits text as a new user turn and polls the resulting run to a
// terminal outcome. A second Run while one is active returns ErrRunActive.
func (s *Session) Run(ctx context.Context, text string, onProgress ProgressFunc, shouldCancel CancelFunc) (TerminalResult, error) {
	s.mu.Lock()
	if s.active {
		s.mu.Unlock()
		return TerminalResult{}, ErrRunActive
	}
	s.active = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.active = false
		s.mu.Unlock()
	}()

	run, err := s.poller.Submit(ctx, s.thread.ID, s.agent.ID, text)
	if err != nil {
		return TerminalResult{}, err
	}
	s.mu.Lock()
	s.lastRunID = run.ID
	s.mu.Unlock()
	return s.poller.PollUntilTerminal(ctx, run, onProgress, shouldCancel)
}

// LastRunID reports the id of the most recently submitted run, empty before
// the first successful submission.
func (s *Session) LastRunID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRunID
}
