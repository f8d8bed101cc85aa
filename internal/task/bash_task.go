package task

import (
	"bytes"
	"context"
	"os/exec"
	"sync"
	"syscall"
	"time"
)

// BashTask is a shell command running detached from the turn that started
// it. Termination is signal-based, always addressed to the process group
// so the command's children go with it.
type BashTask struct {
	ID          string
	Command     string
	Description string
	Status      TaskStatus
	PID         int
	StartTime   time.Time
	EndTime     time.Time
	ExitCode    int
	Error       string
	Cmd         *exec.Cmd
	Ctx         context.Context
	Cancel      context.CancelFunc

	mu     sync.RWMutex // guards Status, EndTime, ExitCode, Error, output
	output bytes.Buffer
}

var _ BackgroundTask = (*BashTask)(nil)

// NewBashTask wraps an already-started command. cmd.Process must exist.
func NewBashTask(id, command, description string, cmd *exec.Cmd, ctx context.Context, cancel context.CancelFunc) *BashTask {
	return &BashTask{
		ID:          id,
		Command:     command,
		Description: description,
		Status:      StatusRunning,
		PID:         cmd.Process.Pid,
		StartTime:   time.Now(),
		Cmd:         cmd,
		Ctx:         ctx,
		Cancel:      cancel,
	}
}

func (t *BashTask) GetID() string          { return t.ID }
func (t *BashTask) GetType() TaskType      { return TaskTypeBash }
func (t *BashTask) GetDescription() string { return t.Description }

// AppendOutput collects a chunk of the command's combined output.
func (t *BashTask) AppendOutput(data []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.output.Write(data)
}

// GetOutput returns everything collected so far.
func (t *BashTask) GetOutput() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.output.String()
}

// Complete records the command's exit. A non-nil err or a non-zero exit
// code both count as failure.
func (t *BashTask) Complete(exitCode int, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.EndTime = time.Now()
	t.ExitCode = exitCode

	switch {
	case err != nil:
		t.Status = StatusFailed
		t.Error = err.Error()
	case exitCode != 0:
		t.Status = StatusFailed
	default:
		t.Status = StatusCompleted
	}
}

// MarkKilled records a forced termination.
func (t *BashTask) MarkKilled() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Status = StatusKilled
	t.EndTime = time.Now()
}

// IsRunning reports whether the command is still executing.
func (t *BashTask) IsRunning() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.Status == StatusRunning
}

// WaitForCompletion blocks until the command exits or timeout elapses.
func (t *BashTask) WaitForCompletion(timeout time.Duration) bool {
	return awaitDone(t.IsRunning, timeout)
}

// Stop cancels the context and SIGTERMs the process group.
func (t *BashTask) Stop() error {
	if t.Cancel != nil {
		t.Cancel()
	}
	return t.signalGroup(syscall.SIGTERM)
}

// Kill cancels the context, SIGKILLs the process group, and records the
// kill.
func (t *BashTask) Kill() error {
	if t.Cancel != nil {
		t.Cancel()
	}
	if err := t.signalGroup(syscall.SIGKILL); err != nil {
		return err
	}
	t.MarkKilled()
	return nil
}

// signalGroup delivers sig to the whole process group; an already-exited
// process is not an error.
func (t *BashTask) signalGroup(sig syscall.Signal) error {
	if t.PID <= 0 {
		return nil
	}
	if err := syscall.Kill(-t.PID, sig); err != nil && err != syscall.ESRCH {
		return err
	}
	return nil
}

// GetStatus snapshots the task.
func (t *BashTask) GetStatus() TaskInfo {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return TaskInfo{
		ID:          t.ID,
		Type:        TaskTypeBash,
		Command:     t.Command,
		Description: t.Description,
		Status:      t.Status,
		PID:         t.PID,
		StartTime:   t.StartTime,
		EndTime:     t.EndTime,
		ExitCode:    t.ExitCode,
		Error:       t.Error,
		Output:      t.output.String(),
	}
}
