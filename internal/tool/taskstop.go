package tool

import (
	"context"
	"fmt"
	"time"

	"github.com/arjunsethi/agentcore/internal/task"
	"github.com/arjunsethi/agentcore/internal/tool/ui"
)

const IconTaskStop = "x"

// TaskStopTool stops a background task by ID, whichever kind it is: a
// bash task gets its process group signalled, an agent task gets its
// context cancelled.
type TaskStopTool struct{}

func (t *TaskStopTool) Name() string        { return "TaskStop" }
func (t *TaskStopTool) Description() string { return "Stops a running background task by its ID" }
func (t *TaskStopTool) Icon() string        { return IconTaskStop }

func (t *TaskStopTool) Execute(ctx context.Context, params map[string]any, cwd string) ui.ToolResult {
	start := time.Now()

	taskID, ok := params["task_id"].(string)
	if !ok || taskID == "" {
		return t.errorResult("task_id is required", "")
	}

	bgTask, found := task.GetAny(taskID)
	if !found {
		return t.errorResult(fmt.Sprintf("task not found: %s", taskID), "")
	}

	if !bgTask.IsRunning() {
		info := bgTask.GetStatus()
		return t.errorResult(
			fmt.Sprintf("task already completed with status: %s", info.Status),
			fmt.Sprintf("Already: %s", info.Status))
	}

	before := bgTask.GetStatus()

	if err := task.KillAny(taskID); err != nil {
		return ui.ToolResult{
			Success:  false,
			Error:    fmt.Sprintf("failed to kill task: %v", err),
			Metadata: ui.ResultMetadata{Title: t.Name(), Icon: t.Icon(), Duration: time.Since(start)},
		}
	}

	after := bgTask.GetStatus()
	output := fmt.Sprintf("Task stopped successfully.\nTask ID: %s\nStatus: %s", taskID, after.Status)
	if before.Type == task.TaskTypeBash {
		output = fmt.Sprintf("Task stopped successfully.\nTask ID: %s\nPID: %d\nStatus: %s", taskID, before.PID, after.Status)
	}
	if after.Output != "" {
		output += fmt.Sprintf("\n\nOutput before stop:\n%s", after.Output)
	}

	return ui.ToolResult{
		Success: true,
		Output:  output,
		Metadata: ui.ResultMetadata{
			Title:    t.Name(),
			Icon:     t.Icon(),
			Subtitle: fmt.Sprintf("Stopped: %s", taskID),
			Duration: time.Since(start),
		},
	}
}

func (t *TaskStopTool) errorResult(msg, subtitle string) ui.ToolResult {
	return ui.ToolResult{
		Success:  false,
		Error:    msg,
		Metadata: ui.ResultMetadata{Title: t.Name(), Icon: t.Icon(), Subtitle: subtitle},
	}
}

func init() {
	Register(&TaskStopTool{})
}
