package tool

import (
	"context"
	"fmt"
	"strings"

	"github.com/arjunsethi/agentcore/internal/tool/ui"
)

// TodoGetTool renders one task's full details, including which of its
// blockers are still open.
type TodoGetTool struct{}

func (t *TodoGetTool) Name() string        { return "TaskGet" }
func (t *TodoGetTool) Description() string { return "Retrieve task details by ID" }
func (t *TodoGetTool) Icon() string        { return "📋" }

func (t *TodoGetTool) Execute(ctx context.Context, params map[string]any, cwd string) ui.ToolResult {
	taskID, _ := params["taskId"].(string)
	if taskID == "" {
		return ui.NewErrorResult(t.Name(), "taskId is required")
	}

	item, ok := DefaultTodoStore.Get(taskID)
	if !ok {
		return ui.NewErrorResult(t.Name(), fmt.Sprintf("task %s not found", taskID))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Task #%s: %s\n", item.ID, item.Subject)
	fmt.Fprintf(&sb, "Status: %s\n", item.Status)
	if item.Description != "" {
		fmt.Fprintf(&sb, "Description: %s\n", item.Description)
	}
	if item.ActiveForm != "" {
		fmt.Fprintf(&sb, "Active form: %s\n", item.ActiveForm)
	}
	if item.Owner != "" {
		fmt.Fprintf(&sb, "Owner: %s\n", item.Owner)
	}
	if len(item.Blocks) > 0 {
		fmt.Fprintf(&sb, "Blocks: %s\n", strings.Join(item.Blocks, ", "))
	}
	if open := DefaultTodoStore.OpenBlockers(item.ID); len(open) > 0 {
		fmt.Fprintf(&sb, "Blocked by (open): %s\n", strings.Join(open, ", "))
	}

	return ui.ToolResult{
		Success: true,
		Output:  sb.String(),
		Metadata: ui.ResultMetadata{
			Title:    t.Name(),
			Icon:     t.Icon(),
			Subtitle: fmt.Sprintf("#%s %s", item.ID, item.Subject),
		},
	}
}

func init() {
	Register(&TodoGetTool{})
}
