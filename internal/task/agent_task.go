package task

import (
	"bytes"
	"context"
	"sync"
	"time"
)

// ProgressUpdate is one live-progress message from a background agent.
type ProgressUpdate struct {
	Message string
	Done    bool
}

// AgentTask is a sub-agent delegation running in the background. It has no
// process of its own; Stop/Kill cancel the context its child loop runs
// under, and its "output" is the assistant text the child produces.
type AgentTask struct {
	ID          string
	AgentName   string
	Description string
	Status      TaskStatus
	StartTime   time.Time
	EndTime     time.Time
	TurnCount   int
	TokenUsage  int
	Error       string

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.RWMutex
	output      bytes.Buffer
	subscribers []chan ProgressUpdate
}

var _ BackgroundTask = (*AgentTask)(nil)

// NewAgentTask builds a running task; the caller starts the child loop.
func NewAgentTask(id, agentName, description string, ctx context.Context, cancel context.CancelFunc) *AgentTask {
	return &AgentTask{
		ID:          id,
		AgentName:   agentName,
		Description: description,
		Status:      StatusRunning,
		StartTime:   time.Now(),
		ctx:         ctx,
		cancel:      cancel,
	}
}

func (t *AgentTask) GetID() string          { return t.ID }
func (t *AgentTask) GetType() TaskType      { return TaskTypeAgent }
func (t *AgentTask) GetDescription() string { return t.Description }

// Subscribe registers a live-progress channel, closed when the task
// finishes.
func (t *AgentTask) Subscribe() <-chan ProgressUpdate {
	ch := make(chan ProgressUpdate, 100)
	t.mu.Lock()
	t.subscribers = append(t.subscribers, ch)
	t.mu.Unlock()
	return ch
}

// notifySubscribers fans an update out without blocking: a subscriber
// that has stopped draining just misses updates.
func (t *AgentTask) notifySubscribers(msg string, done bool) {
	update := ProgressUpdate{Message: msg, Done: done}
	for _, ch := range t.subscribers {
		select {
		case ch <- update:
		default:
		}
	}
}

func (t *AgentTask) closeSubscribers() {
	for _, ch := range t.subscribers {
		close(ch)
	}
	t.subscribers = nil
}

// AppendOutput collects a chunk of the child's assistant text and streams
// it to subscribers.
func (t *AgentTask) AppendOutput(data []byte) {
	t.mu.Lock()
	t.output.Write(data)
	subs := t.subscribers
	t.mu.Unlock()

	if len(subs) > 0 && len(data) > 0 {
		t.notifySubscribers(string(data), false)
	}
}

// AppendProgress streams a progress-only message (a tool-call marker)
// without adding it to the collected output.
func (t *AgentTask) AppendProgress(msg string) {
	t.mu.Lock()
	subs := t.subscribers
	t.mu.Unlock()

	if len(subs) > 0 {
		t.notifySubscribers(msg, false)
	}
}

// GetOutput returns everything collected so far.
func (t *AgentTask) GetOutput() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.output.String()
}

// Complete records the child loop's end and releases subscribers.
func (t *AgentTask) Complete(err error) {
	t.mu.Lock()
	t.EndTime = time.Now()
	if err != nil {
		t.Status = StatusFailed
		t.Error = err.Error()
	} else {
		t.Status = StatusCompleted
	}
	subs := t.subscribers
	t.mu.Unlock()

	if len(subs) > 0 {
		t.notifySubscribers("", true)
		t.mu.Lock()
		t.closeSubscribers()
		t.mu.Unlock()
	}
}

// MarkKilled records a forced termination.
func (t *AgentTask) MarkKilled() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Status = StatusKilled
	t.EndTime = time.Now()
}

// IsRunning reports whether the child loop is still going.
func (t *AgentTask) IsRunning() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.Status == StatusRunning
}

// WaitForCompletion blocks until the child finishes or timeout elapses.
func (t *AgentTask) WaitForCompletion(timeout time.Duration) bool {
	return awaitDone(t.IsRunning, timeout)
}

// Stop cancels the child loop's context; the loop winds down on its own.
func (t *AgentTask) Stop() error {
	if t.cancel != nil {
		t.cancel()
	}
	return nil
}

// Kill cancels the context and records the kill immediately.
func (t *AgentTask) Kill() error {
	if t.cancel != nil {
		t.cancel()
	}
	t.MarkKilled()
	return nil
}

// GetStatus snapshots the task.
func (t *AgentTask) GetStatus() TaskInfo {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return TaskInfo{
		ID:          t.ID,
		Type:        TaskTypeAgent,
		Description: t.Description,
		Status:      t.Status,
		StartTime:   t.StartTime,
		EndTime:     t.EndTime,
		Error:       t.Error,
		Output:      t.output.String(),
		AgentName:   t.AgentName,
		TurnCount:   t.TurnCount,
		TokenUsage:  t.TokenUsage,
	}
}

// UpdateProgress refreshes the turn/token counters shown by TaskOutput.
func (t *AgentTask) UpdateProgress(turnCount, tokenUsage int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.TurnCount = turnCount
	t.TokenUsage = tokenUsage
}

// GetContext exposes the context the child loop runs under.
func (t *AgentTask) GetContext() context.Context { return t.ctx }

// GetCancel exposes the cancel function for the child loop.
func (t *AgentTask) GetCancel() context.CancelFunc { return t.cancel }
