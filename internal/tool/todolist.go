package tool

import (
	"context"
	"fmt"
	"strings"

	"github.com/arjunsethi/agentcore/internal/tool/ui"
)

// TodoListTool renders every live task with its status, owner, and any
// still-open blockers.
type TodoListTool struct{}

func (t *TodoListTool) Name() string        { return "TaskList" }
func (t *TodoListTool) Description() string { return "List all tracked tasks" }
func (t *TodoListTool) Icon() string        { return "📋" }

func (t *TodoListTool) Execute(ctx context.Context, params map[string]any, cwd string) ui.ToolResult {
	items := DefaultTodoStore.List()
	if len(items) == 0 {
		return ui.ToolResult{
			Success: true,
			Output:  "No tasks found.",
			Metadata: ui.ResultMetadata{
				Title:    t.Name(),
				Icon:     t.Icon(),
				Subtitle: "0 tasks",
			},
		}
	}

	var sb strings.Builder
	completed := 0
	for _, item := range items {
		if item.Status == TodoStatusCompleted {
			completed++
		}

		fmt.Fprintf(&sb, "%s #%s: %s [%s]", statusMarker(item), item.ID, item.Subject, item.Status)
		if item.Owner != "" {
			fmt.Fprintf(&sb, " (owner: %s)", item.Owner)
		}
		if open := DefaultTodoStore.OpenBlockers(item.ID); len(open) > 0 {
			fmt.Fprintf(&sb, " [blocked by: %s]", strings.Join(open, ", "))
		}
		sb.WriteString("\n")
	}

	return ui.ToolResult{
		Success: true,
		Output:  sb.String(),
		Metadata: ui.ResultMetadata{
			Title:    t.Name(),
			Icon:     t.Icon(),
			Subtitle: fmt.Sprintf("%d/%d completed", completed, len(items)),
		},
	}
}

// statusMarker picks the one-character state glyph for a task line.
func statusMarker(item *TodoTask) string {
	switch item.Status {
	case TodoStatusCompleted:
		return "✓"
	case TodoStatusInProgress:
		return "⠋"
	default:
		if DefaultTodoStore.IsBlocked(item.ID) {
			return "▸"
		}
		return "☐"
	}
}

func init() {
	Register(&TodoListTool{})
}
