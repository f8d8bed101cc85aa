package task

import (
	"context"
	"os/exec"
	"testing"
	"time"
)

// managedTask registers a trivial started command with m.
func managedTask(t *testing.T, m *Manager) *BashTask {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	cmd := exec.CommandContext(ctx, "echo", "test")
	cmd.Start()
	return m.Create(cmd, "echo test", "test task", ctx, cancel)
}

func TestManagerCreateAssignsIDAndGets(t *testing.T) {
	m := NewManager()
	created := managedTask(t, m)

	if created.ID == "" {
		t.Error("expected a non-empty task ID")
	}
	got, ok := m.Get(created.ID)
	if !ok || got.ID != created.ID {
		t.Errorf("expected Get to return the created task, got %+v ok=%v", got, ok)
	}
}

func TestManagerGetUnknownID(t *testing.T) {
	m := NewManager()
	if _, ok := m.Get("nonexistent"); ok {
		t.Error("expected no result for an unknown task ID")
	}
}

func TestManagerListRunningExcludesCompleted(t *testing.T) {
	m := NewManager()
	tasks := []*BashTask{managedTask(t, m), managedTask(t, m), managedTask(t, m)}
	tasks[0].Complete(0, nil)

	if got := len(m.ListRunning()); got != 2 {
		t.Errorf("expected 2 running tasks, got %d", got)
	}
	if got := len(m.List()); got != 3 {
		t.Errorf("expected List to include completed tasks, got %d", got)
	}
}

func TestManagerRemoveForgetsTask(t *testing.T) {
	m := NewManager()
	created := managedTask(t, m)

	m.Remove(created.ID)
	if _, ok := m.Get(created.ID); ok {
		t.Error("expected the removed task to be gone")
	}
}

func TestManagerCleanupDropsOldCompleted(t *testing.T) {
	m := NewManager()
	created := managedTask(t, m)
	created.Complete(0, nil)

	created.mu.Lock()
	created.EndTime = time.Now().Add(-2 * time.Hour)
	created.mu.Unlock()

	m.Cleanup(time.Hour)
	if _, ok := m.Get(created.ID); ok {
		t.Error("expected an old completed task to be cleaned up")
	}
}

func TestManagerCleanupKeepsRecentAndRunning(t *testing.T) {
	m := NewManager()
	recent := managedTask(t, m)
	recent.Complete(0, nil)
	running := managedTask(t, m)

	m.Cleanup(time.Hour)
	if _, ok := m.Get(recent.ID); !ok {
		t.Error("expected a just-completed task to survive cleanup")
	}
	m.Cleanup(0)
	if _, ok := m.Get(running.ID); !ok {
		t.Error("expected a running task to survive cleanup regardless of age")
	}
}

func TestManagerIDsAreUnique(t *testing.T) {
	m := NewManager()
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		created := managedTask(t, m)
		if seen[created.ID] {
			t.Fatalf("duplicate ID generated: %s", created.ID)
		}
		seen[created.ID] = true
	}
}
