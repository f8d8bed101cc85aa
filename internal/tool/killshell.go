package tool

import (
	"context"
	"fmt"
	"time"

	"github.com/arjunsethi/agentcore/internal/task"
	"github.com/arjunsethi/agentcore/internal/tool/ui"
)

const IconKillShell = "x"

// KillShellTool terminates a background bash task by ID.
type KillShellTool struct{}

func (t *KillShellTool) Name() string        { return "KillShell" }
func (t *KillShellTool) Description() string { return "Terminate a background task" }
func (t *KillShellTool) Icon() string        { return IconKillShell }

func (t *KillShellTool) Execute(ctx context.Context, params map[string]any, cwd string) ui.ToolResult {
	start := time.Now()

	shellID, ok := params["shell_id"].(string)
	if !ok || shellID == "" {
		return t.errorResult("shell_id is required", "")
	}

	bgTask, found := task.DefaultManager.Get(shellID)
	if !found {
		return t.errorResult(fmt.Sprintf("task not found: %s", shellID), "")
	}

	if !bgTask.IsRunning() {
		info := bgTask.GetStatus()
		return t.errorResult(
			fmt.Sprintf("task already completed with status: %s", info.Status),
			fmt.Sprintf("Already: %s", info.Status))
	}

	pid := bgTask.GetStatus().PID

	if err := task.DefaultManager.Kill(shellID); err != nil {
		return ui.ToolResult{
			Success:  false,
			Error:    fmt.Sprintf("failed to kill task: %v", err),
			Metadata: ui.ResultMetadata{Title: t.Name(), Icon: t.Icon(), Duration: time.Since(start)},
		}
	}

	final := bgTask.GetStatus()
	output := fmt.Sprintf("Task killed successfully.\nTask ID: %s\nPID: %d\nStatus: %s", shellID, pid, final.Status)
	if final.Output != "" {
		output += fmt.Sprintf("\n\nOutput before kill:\n%s", final.Output)
	}

	return ui.ToolResult{
		Success: true,
		Output:  output,
		Metadata: ui.ResultMetadata{
			Title:    t.Name(),
			Icon:     t.Icon(),
			Subtitle: fmt.Sprintf("Killed: %s", shellID),
			Duration: time.Since(start),
		},
	}
}

func (t *KillShellTool) errorResult(msg, subtitle string) ui.ToolResult {
	return ui.ToolResult{
		Success:  false,
		Error:    msg,
		Metadata: ui.ResultMetadata{Title: t.Name(), Icon: t.Icon(), Subtitle: subtitle},
	}
}

func init() {
	Register(&KillShellTool{})
}
