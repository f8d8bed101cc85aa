package tool

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/arjunsethi/agentcore/internal/task"
	"github.com/arjunsethi/agentcore/internal/tool/ui"
)

const IconTaskOutput = ">"

const (
	taskOutputDefaultWait = 30 * time.Second
	taskOutputMaxWait     = 600 * time.Second
)

// TaskOutputTool reports a background task's status and collected output,
// for both bash tasks and delegated agent tasks. With block=true it waits
// up to the timeout for completion; a task that is still running after
// the wait is a normal answer, not an error, so the model can decide to
// poll again or stop the task.
type TaskOutputTool struct{}

func (t *TaskOutputTool) Name() string        { return "TaskOutput" }
func (t *TaskOutputTool) Description() string { return "Retrieve output from a background task" }
func (t *TaskOutputTool) Icon() string        { return IconTaskOutput }

func (t *TaskOutputTool) Execute(ctx context.Context, params map[string]any, cwd string) ui.ToolResult {
	start := time.Now()

	taskID, ok := params["task_id"].(string)
	if !ok || taskID == "" {
		return ui.NewErrorResult(t.Name(), "task_id is required")
	}

	block := true
	if b, ok := params["block"].(bool); ok {
		block = b
	}
	wait := taskOutputDefaultWait
	if timeoutMs, ok := params["timeout"].(float64); ok && timeoutMs > 0 {
		wait = min(time.Duration(timeoutMs)*time.Millisecond, taskOutputMaxWait)
	}

	bgTask, found := task.GetAny(taskID)
	if !found {
		return ui.NewErrorResult(t.Name(), fmt.Sprintf("task not found: %s", taskID))
	}

	if block && bgTask.IsRunning() {
		bgTask.WaitForCompletion(wait)
	}

	info := bgTask.GetStatus()
	if info.Status == task.StatusRunning {
		return t.runningResult(info, time.Since(start))
	}
	return t.finishedResult(info, time.Since(start))
}

// runningResult reports a task that hasn't finished: current progress,
// partial output, and what the model can do next.
func (t *TaskOutputTool) runningResult(info task.TaskInfo, duration time.Duration) ui.ToolResult {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Task %s is still running.\n", info.ID)
	sb.WriteString(describeTask(info))
	if info.Output != "" {
		fmt.Fprintf(&sb, "\nOutput so far:\n%s", info.Output)
	}
	fmt.Fprintf(&sb, "\nOptions:\n"+
		"- Call TaskOutput again later (with block=true to wait).\n"+
		"- Call TaskStop with task_id=%q to stop it.", info.ID)

	return ui.ToolResult{
		Success: true,
		Output:  sb.String(),
		Metadata: ui.ResultMetadata{
			Title:    t.Name(),
			Icon:     t.Icon(),
			Subtitle: fmt.Sprintf("%s: running", info.ID),
			Duration: duration,
		},
	}
}

// finishedResult reports a finished task's outcome and full output.
func (t *TaskOutputTool) finishedResult(info task.TaskInfo, duration time.Duration) ui.ToolResult {
	statusStr := string(info.Status)
	if info.Status == task.StatusFailed && info.Type == task.TaskTypeBash {
		statusStr = fmt.Sprintf("failed (exit code: %d)", info.ExitCode)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Task %s %s.\n", info.ID, statusStr)
	sb.WriteString(describeTask(info))
	if !info.EndTime.IsZero() {
		fmt.Fprintf(&sb, "Duration: %v\n", info.EndTime.Sub(info.StartTime).Round(time.Millisecond))
	}
	if info.Output != "" {
		fmt.Fprintf(&sb, "\nOutput:\n%s", info.Output)
	}
	if info.Error != "" {
		fmt.Fprintf(&sb, "\nError: %s", info.Error)
	}

	return ui.ToolResult{
		Success: info.Status != task.StatusFailed,
		Output:  sb.String(),
		Error:   info.Error,
		Metadata: ui.ResultMetadata{
			Title:    t.Name(),
			Icon:     t.Icon(),
			Subtitle: fmt.Sprintf("%s: %s", info.ID, info.Status),
			Duration: duration,
		},
	}
}

// describeTask renders the kind-specific detail lines.
func describeTask(info task.TaskInfo) string {
	var sb strings.Builder
	switch info.Type {
	case task.TaskTypeAgent:
		fmt.Fprintf(&sb, "Agent: %s\nTurns: %d\nTokens: %d\n", info.AgentName, info.TurnCount, info.TokenUsage)
	default:
		fmt.Fprintf(&sb, "PID: %d\n", info.PID)
		if info.Command != "" {
			fmt.Fprintf(&sb, "Command: %s\n", info.Command)
		}
	}
	return sb.String()
}

func init() {
	Register(&TaskOutputTool{})
}
