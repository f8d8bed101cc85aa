package tool

import (
	"context"
	"fmt"
	"time"

	"github.com/arjunsethi/agentcore/internal/tool/permission"
	"github.com/arjunsethi/agentcore/internal/tool/ui"
)

const IconTask = "t"

// AgentExecutor runs delegated sub-agent work. The Task tool depends on
// this interface rather than the sub-agent manager directly, breaking
// the cycle between the tool inventory and the package that spawns child
// loops; the concrete executor is injected at startup via SetExecutor.
type AgentExecutor interface {
	// Run executes an agent in the foreground and returns its result.
	Run(ctx context.Context, req AgentExecRequest) (*AgentExecResult, error)

	// RunBackground starts an agent asynchronously, tracked as a
	// background task.
	RunBackground(req AgentExecRequest) (AgentTaskInfo, error)

	// GetAgentConfig reports a profile's display metadata.
	GetAgentConfig(agentType string) (AgentConfigInfo, bool)

	// GetParentModelID reports the spawning conversation's model, the
	// default when a call specifies none.
	GetParentModelID() string
}

// ProgressFunc receives live progress lines while an agent runs.
type ProgressFunc func(msg string)

// AgentExecRequest parameterizes one delegation.
type AgentExecRequest struct {
	Agent       string
	Prompt      string
	Description string
	Background  bool
	ResumeID    string
	Model       string // explicit override; wins over the parent's model
	MaxTurns    int
	Cwd         string
	OnProgress  ProgressFunc
}

// AgentExecResult is what a finished delegation reports back.
type AgentExecResult struct {
	AgentName   string
	Success     bool
	Content     string
	TurnCount   int
	TotalTokens int
	Error       string
}

// AgentTaskInfo identifies a background delegation for TaskOutput/TaskStop.
type AgentTaskInfo struct {
	TaskID    string
	AgentName string
}

// AgentConfigInfo is a profile's display metadata, shown at the approval
// prompt.
type AgentConfigInfo struct {
	Name           string
	Description    string
	PermissionMode string
	Tools          []string
}

// taskParams is the parsed argument set shared by PreparePermission and
// execute.
type taskParams struct {
	agentType     string
	prompt        string
	description   string
	runBackground bool
	resumeID      string
	model         string
	maxTurns      int
	onProgress    ProgressFunc
}

func parseTaskParams(params map[string]any) (taskParams, error) {
	var p taskParams
	var ok bool

	if p.agentType, ok = params["subagent_type"].(string); !ok || p.agentType == "" {
		return p, fmt.Errorf("subagent_type is required")
	}
	if p.prompt, ok = params["prompt"].(string); !ok || p.prompt == "" {
		return p, fmt.Errorf("prompt is required")
	}

	p.description, _ = params["description"].(string)
	p.runBackground, _ = params["run_in_background"].(bool)
	p.resumeID, _ = params["resume"].(string)
	p.model, _ = params["model"].(string)
	p.maxTurns = intParam(params, "max_turns", 0)
	if cb, ok := params["_onProgress"].(ProgressFunc); ok {
		p.onProgress = cb
	}
	return p, nil
}

// TaskTool delegates a task to a sub-agent: a child loop with its own
// context, run to completion (or in the background), whose final output
// comes back as this tool's result.
type TaskTool struct {
	Executor AgentExecutor
}

// NewTaskTool returns a TaskTool with no executor; the host wires one in
// before the first call.
func NewTaskTool() *TaskTool {
	return &TaskTool{}
}

func (t *TaskTool) Name() string        { return "Task" }
func (t *TaskTool) Description() string { return "Launch a subagent to handle complex tasks" }
func (t *TaskTool) Icon() string        { return IconTask }

// SetExecutor injects the concrete sub-agent runner.
func (t *TaskTool) SetExecutor(executor AgentExecutor) {
	t.Executor = executor
}

// Spawning an agent always requires approval: the child acts with real
// tools on the user's machine.
func (t *TaskTool) RequiresPermission() bool { return true }

// PreparePermission resolves the requested profile and builds the
// approval preview: which agent, with which tools and mode, on what
// prompt.
func (t *TaskTool) PreparePermission(ctx context.Context, params map[string]any, cwd string) (*permission.PermissionRequest, error) {
	p, err := parseTaskParams(params)
	if err != nil {
		return nil, err
	}
	if t.Executor == nil {
		return nil, fmt.Errorf("agent executor not configured")
	}

	cfg, ok := t.Executor.GetAgentConfig(p.agentType)
	if !ok {
		return nil, fmt.Errorf("unknown agent type: %s", p.agentType)
	}

	effectiveModel := p.model
	if effectiveModel == "" {
		effectiveModel = t.Executor.GetParentModelID()
	}

	description := p.description
	if description == "" {
		description = "Run agent task"
	}
	desc := fmt.Sprintf("Spawn %s agent: %s", cfg.Name, description)
	if p.runBackground {
		desc += " (background)"
	}

	return &permission.PermissionRequest{
		ID:          generateRequestID(),
		ToolName:    t.Name(),
		Description: desc,
		AgentMeta: &permission.AgentMetadata{
			AgentName:      cfg.Name,
			Description:    cfg.Description,
			Model:          effectiveModel,
			PermissionMode: cfg.PermissionMode,
			Tools:          cfg.Tools,
			Prompt:         p.prompt,
			Background:     p.runBackground,
		},
	}, nil
}

func (t *TaskTool) Execute(ctx context.Context, params map[string]any, cwd string) ui.ToolResult {
	return t.ExecuteApproved(ctx, params, cwd)
}

// ExecuteApproved runs the delegation after approval.
func (t *TaskTool) ExecuteApproved(ctx context.Context, params map[string]any, cwd string) ui.ToolResult {
	start := time.Now()

	p, err := parseTaskParams(params)
	if err != nil {
		return ui.NewErrorResult(t.Name(), err.Error())
	}
	if t.Executor == nil {
		return ui.NewErrorResult(t.Name(), "agent executor not configured")
	}

	req := AgentExecRequest{
		Agent:       p.agentType,
		Prompt:      p.prompt,
		Description: p.description,
		Background:  p.runBackground,
		ResumeID:    p.resumeID,
		Model:       p.model,
		MaxTurns:    p.maxTurns,
		Cwd:         cwd,
		OnProgress:  p.onProgress,
	}

	if p.runBackground {
		return t.startBackground(req, start)
	}

	result, err := t.Executor.Run(ctx, req)
	if err != nil {
		return ui.NewErrorResult(t.Name(), fmt.Sprintf("agent execution failed: %v", err))
	}
	return t.foregroundResult(p.agentType, result, time.Since(start))
}

// startBackground hands the delegation off and reports the task handle.
func (t *TaskTool) startBackground(req AgentExecRequest, start time.Time) ui.ToolResult {
	info, err := t.Executor.RunBackground(req)
	if err != nil {
		return ui.NewErrorResult(t.Name(), fmt.Sprintf("failed to start background agent: %v", err))
	}

	return ui.ToolResult{
		Success: true,
		Output: fmt.Sprintf("Agent started in background.\nTask ID: %s\nAgent: %s\nDescription: %s\n\nUse TaskOutput with task_id=%q to check the result.",
			info.TaskID, info.AgentName, req.Description, info.TaskID),
		Metadata: ui.ResultMetadata{
			Title:    t.Name(),
			Icon:     t.Icon(),
			Subtitle: fmt.Sprintf("[background] %s: %s", req.Agent, info.TaskID),
			Duration: time.Since(start),
		},
	}
}

// foregroundResult renders a completed delegation.
func (t *TaskTool) foregroundResult(agentType string, result *AgentExecResult, duration time.Duration) ui.ToolResult {
	if !result.Success {
		return ui.ToolResult{
			Success: false,
			Output:  result.Content,
			Error:   result.Error,
			Metadata: ui.ResultMetadata{
				Title:    t.Name(),
				Icon:     t.Icon(),
				Subtitle: fmt.Sprintf("%s: failed", agentType),
				Duration: duration,
			},
		}
	}

	output := result.Content
	if output == "" {
		output = fmt.Sprintf("Agent completed successfully.\nTurns: %d\nTokens: %d",
			result.TurnCount, result.TotalTokens)
	}
	return ui.ToolResult{
		Success: true,
		Output:  output,
		Metadata: ui.ResultMetadata{
			Title:    t.Name(),
			Icon:     t.Icon(),
			Subtitle: fmt.Sprintf("%s: done (%d turns)", agentType, result.TurnCount),
			Duration: duration,
		},
	}
}

func init() {
	Register(NewTaskTool())
}
