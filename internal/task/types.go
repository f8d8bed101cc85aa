// Package task tracks background work spawned from a conversation: shell
// commands running detached from the turn that started them, and
// sub-agent delegations running to completion off to the side. Both are
// addressable by short task IDs through the TaskOutput/TaskStop tools.
package task

import (
	"time"
)

// TaskType distinguishes the two kinds of background work.
type TaskType string

const (
	TaskTypeBash  TaskType = "bash"
	TaskTypeAgent TaskType = "agent"
)

// TaskStatus is a background task's lifecycle state.
type TaskStatus string

const (
	StatusRunning   TaskStatus = "running"
	StatusCompleted TaskStatus = "completed"
	StatusFailed    TaskStatus = "failed"
	StatusKilled    TaskStatus = "killed"
)

// BackgroundTask is the full surface both task kinds implement. The
// difference between them is what Stop/Kill mean: signaling a process
// group for a bash task, cancelling a context for an agent task.
type BackgroundTask interface {
	GetID() string
	GetType() TaskType
	GetDescription() string
	GetStatus() TaskInfo
	IsRunning() bool

	// WaitForCompletion blocks until the task finishes or timeout
	// elapses; reports whether it finished.
	WaitForCompletion(timeout time.Duration) bool

	// Stop requests a graceful end; Kill forces one.
	Stop() error
	Kill() error

	AppendOutput(data []byte)
	GetOutput() string
}

// TaskInfo is a point-in-time snapshot of a task, flattening both kinds'
// fields so callers can render either without a type switch.
type TaskInfo struct {
	ID          string
	Type        TaskType
	Description string
	Status      TaskStatus
	StartTime   time.Time
	EndTime     time.Time
	Output      string
	Error       string

	// Bash tasks only.
	Command  string
	PID      int
	ExitCode int

	// Agent tasks only.
	AgentName  string
	TurnCount  int
	TokenUsage int
}

// awaitDone polls stillRunning until it reports false or timeout elapses;
// reports whether the task finished. Polling keeps the wait independent
// of how each task kind signals completion.
func awaitDone(stillRunning func() bool, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for stillRunning() {
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(100 * time.Millisecond)
	}
	return true
}
