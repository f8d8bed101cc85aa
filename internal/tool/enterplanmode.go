package tool

import (
	"context"
	"fmt"

	"github.com/arjunsethi/agentcore/internal/tool/ui"
)

// EnterPlanRequest asks the user to approve switching into plan mode.
type EnterPlanRequest struct {
	ID      string
	Message string // optional rationale shown with the prompt
}

// EnterPlanResponse carries the user's decision back.
type EnterPlanResponse struct {
	RequestID string
	Approved  bool
}

// EnterPlanModeTool lets the model request plan mode for work that needs
// investigation before edits. The switch itself is the host's to make;
// this tool only carries the request and reports the decision.
type EnterPlanModeTool struct {
	requestCounter int
}

// NewEnterPlanModeTool returns a fresh tool instance.
func NewEnterPlanModeTool() *EnterPlanModeTool {
	return &EnterPlanModeTool{}
}

func (t *EnterPlanModeTool) Name() string { return "EnterPlanMode" }

func (t *EnterPlanModeTool) Description() string {
	return "Request to enter plan mode for complex implementation tasks. Use this when a task requires exploration and planning before making changes. The user must approve entering plan mode."
}

func (t *EnterPlanModeTool) Icon() string { return "📋" }

func (t *EnterPlanModeTool) RequiresInteraction() bool { return true }

// PrepareInteraction builds the consent request.
func (t *EnterPlanModeTool) PrepareInteraction(ctx context.Context, params map[string]any, cwd string) (any, error) {
	message, _ := params["message"].(string)

	t.requestCounter++
	return &EnterPlanRequest{
		ID:      fmt.Sprintf("enter-plan-%d", t.requestCounter),
		Message: message,
	}, nil
}

// ExecuteWithResponse turns the user's decision into guidance for the
// model's next step.
func (t *EnterPlanModeTool) ExecuteWithResponse(ctx context.Context, params map[string]any, response any, cwd string) ui.ToolResult {
	resp, ok := response.(*EnterPlanResponse)
	if !ok {
		return ui.NewErrorResult(t.Name(), "invalid response type")
	}

	if !resp.Approved {
		return ui.ToolResult{
			Success: true,
			Output:  "User declined to enter plan mode. Proceed with the task using available tools, or ask the user for clarification on how they would like to proceed.",
			Metadata: ui.ResultMetadata{
				Title:    t.Name(),
				Icon:     t.Icon(),
				Subtitle: "Declined",
			},
		}
	}

	return ui.ToolResult{
		Success: true,
		Output:  "User approved entering plan mode. You are now in plan mode. Explore the codebase using read-only tools (Read, Glob, Grep, WebFetch, WebSearch) to understand the context and create an implementation plan. When your plan is ready, use ExitPlanMode to submit it for user approval.",
		Metadata: ui.ResultMetadata{
			Title:    t.Name(),
			Icon:     t.Icon(),
			Subtitle: "Approved",
		},
	}
}

// Execute rejects direct invocation; the host must drive the interactive
// flow.
func (t *EnterPlanModeTool) Execute(ctx context.Context, params map[string]any, cwd string) ui.ToolResult {
	return ui.NewErrorResult(t.Name(), "this tool requires user interaction - use PrepareInteraction and ExecuteWithResponse")
}

func init() {
	Register(NewEnterPlanModeTool())
}
