package tool

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/arjunsethi/agentcore/internal/tool/ui"
)

// TodoWriteTool replaces the model's whole progress checklist in one call,
// the lightweight companion to the TaskCreate/TaskUpdate store.
type TodoWriteTool struct{}

// NewTodoWriteTool returns a fresh tool instance.
func NewTodoWriteTool() *TodoWriteTool {
	return &TodoWriteTool{}
}

func (t *TodoWriteTool) Name() string { return "TodoWrite" }

func (t *TodoWriteTool) Description() string {
	return "Create and manage a structured task list. Use this to track progress on multi-step tasks."
}

func (t *TodoWriteTool) Icon() string { return "📋" }

func (t *TodoWriteTool) Execute(ctx context.Context, params map[string]any, cwd string) ui.ToolResult {
	todosRaw, ok := params["todos"]
	if !ok {
		return ui.NewErrorResult(t.Name(), "missing required parameter: todos")
	}

	// Round-trip through JSON to get typed items out of the generic map.
	todosJSON, err := json.Marshal(todosRaw)
	if err != nil {
		return ui.NewErrorResult(t.Name(), "invalid todos format: "+err.Error())
	}
	var todos []ui.TodoItem
	if err := json.Unmarshal(todosJSON, &todos); err != nil {
		return ui.NewErrorResult(t.Name(), "failed to parse todos: "+err.Error())
	}

	for i, todo := range todos {
		if todo.Content == "" {
			return ui.NewErrorResult(t.Name(), fmt.Sprintf("todo[%d]: content is required", i))
		}
		if todo.Status == "" {
			return ui.NewErrorResult(t.Name(), fmt.Sprintf("todo[%d]: status is required", i))
		}
		if todo.Status != "pending" && todo.Status != "in_progress" && todo.Status != "completed" {
			return ui.NewErrorResult(t.Name(),
				fmt.Sprintf("todo[%d]: invalid status '%s' (must be pending, in_progress, or completed)", i, todo.Status))
		}
		if todo.ActiveForm == "" {
			return ui.NewErrorResult(t.Name(), fmt.Sprintf("todo[%d]: activeForm is required", i))
		}
	}

	var pending, inProgress, completed int
	for _, todo := range todos {
		switch todo.Status {
		case "pending":
			pending++
		case "in_progress":
			inProgress++
		case "completed":
			completed++
		}
	}

	return ui.ToolResult{
		Success: true,
		Output: fmt.Sprintf("Todo list updated: %d pending, %d in progress, %d completed",
			pending, inProgress, completed),
		Metadata: ui.ResultMetadata{
			Title:     t.Name(),
			Icon:      t.Icon(),
			Subtitle:  fmt.Sprintf("%d tasks", len(todos)),
			ItemCount: len(todos),
		},
		TodoItems: todos,
	}
}

func init() {
	Register(NewTodoWriteTool())
}
