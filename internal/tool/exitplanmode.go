package tool

import (
	"context"
	"fmt"

	"github.com/arjunsethi/agentcore/internal/tool/ui"
)

// PlanRequest carries the finished plan to the user for review.
type PlanRequest struct {
	ID   string
	Plan string // markdown
}

// PlanResponse carries the user's verdict. ApproveMode distinguishes how
// the follow-up implementation is gated: "clear-auto", "auto", or
// "manual"; "modify" means the user returned feedback in ModifiedPlan
// instead of accepting, and the model stays in plan mode to revise.
type PlanResponse struct {
	RequestID    string
	Approved     bool
	ApproveMode  string
	ModifiedPlan string
}

// approveModeMessages maps each approval mode to the guidance fed back to
// the model. "modify" is handled separately: it is feedback, not an
// approval.
var approveModeMessages = map[string]string{
	"clear-auto": "Plan approved. Context cleared. Auto-accept mode enabled for edits.",
	"auto":       "Plan approved. Auto-accept mode enabled for edits.",
	"manual":     "Plan approved. Manual approval mode - each change requires confirmation.",
}

// ExitPlanModeTool submits the plan produced in plan mode for user
// approval, ending the investigation phase.
type ExitPlanModeTool struct {
	requestCounter int
}

// NewExitPlanModeTool returns a fresh tool instance.
func NewExitPlanModeTool() *ExitPlanModeTool {
	return &ExitPlanModeTool{}
}

func (t *ExitPlanModeTool) Name() string { return "ExitPlanMode" }

func (t *ExitPlanModeTool) Description() string {
	return "Exit plan mode and submit the implementation plan for user approval. Call this when you have finished exploring and created a complete plan."
}

func (t *ExitPlanModeTool) Icon() string { return "📋" }

func (t *ExitPlanModeTool) RequiresInteraction() bool { return true }

// PrepareInteraction validates the plan parameter and builds the review
// request.
func (t *ExitPlanModeTool) PrepareInteraction(ctx context.Context, params map[string]any, cwd string) (any, error) {
	planContent, ok := params["plan"].(string)
	if !ok || planContent == "" {
		return nil, fmt.Errorf("missing required parameter: plan (the implementation plan content)")
	}

	t.requestCounter++
	return &PlanRequest{
		ID:   fmt.Sprintf("plan-%d", t.requestCounter),
		Plan: planContent,
	}, nil
}

// ExecuteWithResponse turns the user's verdict into the tool result the
// model reacts to.
func (t *ExitPlanModeTool) ExecuteWithResponse(ctx context.Context, params map[string]any, response any, cwd string) ui.ToolResult {
	resp, ok := response.(*PlanResponse)
	if !ok {
		return ui.NewErrorResult(t.Name(), "invalid response type")
	}

	if !resp.Approved {
		return ui.ToolResult{
			Success: true,
			Output:  "Plan was rejected by the user. Please modify the plan based on their feedback and try again.",
			Metadata: ui.ResultMetadata{
				Title:    t.Name(),
				Icon:     t.Icon(),
				Subtitle: "Rejected",
			},
		}
	}

	// "modify" means the user annotated the plan with feedback rather than
	// accepting it: stay in plan mode and revise.
	if resp.ApproveMode == "modify" {
		output := "The user requested changes to the plan. You are still in plan mode: " +
			"revise the plan to address the feedback below, then call ExitPlanMode again with the updated plan.\n\n" +
			resp.ModifiedPlan
		return ui.ToolResult{
			Success: true,
			Output:  output,
			Metadata: ui.ResultMetadata{
				Title:    t.Name(),
				Icon:     t.Icon(),
				Subtitle: "Revision requested",
			},
		}
	}

	description, exists := approveModeMessages[resp.ApproveMode]
	if !exists {
		description = "Plan approved."
	}

	return ui.ToolResult{
		Success: true,
		Output:  description + "\n\nYou may now proceed with the implementation.",
		Metadata: ui.ResultMetadata{
			Title:    t.Name(),
			Icon:     t.Icon(),
			Subtitle: "Approved",
		},
	}
}

// Execute rejects direct invocation; the host must drive the interactive
// flow.
func (t *ExitPlanModeTool) Execute(ctx context.Context, params map[string]any, cwd string) ui.ToolResult {
	return ui.NewErrorResult(t.Name(), "this tool requires user interaction - use PrepareInteraction and ExecuteWithResponse")
}

func init() {
	Register(NewExitPlanModeTool())
}
