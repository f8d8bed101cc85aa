package subagent

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/arjunsethi/agentcore/internal/agentloop"
	"github.com/arjunsethi/agentcore/internal/approval"
	"github.com/arjunsethi/agentcore/internal/backend"
	"github.com/arjunsethi/agentcore/internal/config"
	"github.com/arjunsethi/agentcore/internal/hooks"
	"github.com/arjunsethi/agentcore/internal/log"
	"github.com/arjunsethi/agentcore/internal/mcp"
	"github.com/arjunsethi/agentcore/internal/message"
	"github.com/arjunsethi/agentcore/internal/system"
	"github.com/arjunsethi/agentcore/internal/task"
	"github.com/arjunsethi/agentcore/internal/tool"
)

// defaultChildMaxTurns bounds a delegated sub-agent run when the caller
// doesn't specify max_turns, preventing a misbehaving profile from looping
// forever on the parent's behalf.
const defaultChildMaxTurns = 40

// Manager discovers agent profiles and spawns child agentloop.Loop
// instances to run them, implementing tool.AgentExecutor. One Manager is
// shared by a single top-level Loop and every Task call it dispatches.
type Manager struct {
	profiles *profileSet

	NewProvider func(ctx context.Context, model string) (backend.Provider, error)
	Registry    *tool.Registry
	MCP         *mcp.Registry
	Settings    *config.Settings
	Hooks       *hooks.Engine
	Gate        *approval.Gate
	Cwd         string

	// ParentModelID is reported via GetParentModelID so a Task call with
	// no explicit model override inherits the parent conversation's model.
	ParentModelID string
	// ParentTracker chains this manager's children's dev-trace turn
	// numbering under the spawning loop's own tracker.
	ParentTracker *log.AgentTurnTracker
}

// New builds a Manager, discovering agent profiles from cwd's project
// directory, the user's home directory, and the builtin set.
func New(cwd string) *Manager {
	return &Manager{profiles: loadProfiles(cwd), Cwd: cwd}
}

// GetAgentConfig reports a profile's display metadata for the Task tool's
// permission-preview prompt.
func (m *Manager) GetAgentConfig(agentType string) (tool.AgentConfigInfo, bool) {
	p, ok := m.profiles.Get(agentType)
	if !ok {
		return tool.AgentConfigInfo{}, false
	}
	return tool.AgentConfigInfo{
		Name:           p.DisplayName,
		Description:    p.Description,
		PermissionMode: p.Overrides.PermissionMode,
		Tools:          p.Overrides.Tools,
	}, true
}

// GetParentModelID reports the spawning conversation's model.
func (m *Manager) GetParentModelID() string {
	return m.ParentModelID
}

// ProfileNames returns every discovered profile name in deterministic
// order, used to populate the Task tool's subagent_type enum.
func (m *Manager) ProfileNames() []string {
	return m.profiles.Order()
}

// Run builds and runs a child loop to completion, returning its final
// assistant message as the Task tool's result.
func (m *Manager) Run(ctx context.Context, req tool.AgentExecRequest) (*tool.AgentExecResult, error) {
	child, err := m.buildChild(ctx, req)
	if err != nil {
		return nil, err
	}

	// Assistant content arrives as deltas terminated by a Done event per
	// turn; collect all of it, and read the turn outcome off Done events.
	var content strings.Builder
	var stopReason string
	var stoppedByMiddleware bool
	for ev := range child.Act(ctx, req.Prompt, nil) {
		switch ev.Kind {
		case message.EventAssistant:
			content.WriteString(ev.Assistant.Content)
			if ev.Assistant.Done {
				stopReason = ev.Assistant.StopReason
				stoppedByMiddleware = ev.Assistant.StoppedByMiddleware
			}
		case message.EventToolCall:
			if req.OnProgress != nil {
				req.OnProgress(fmt.Sprintf("%s: %s", req.Agent, ev.ToolCall.ToolName))
			}
		}
	}

	tokens := child.TokenUsage()

	return &tool.AgentExecResult{
		AgentName:   req.Agent,
		Success:     stopReason != "" && !stoppedByMiddleware && !isErrorStopReason(stopReason),
		Content:     content.String(),
		TurnCount:   child.Turn(),
		TotalTokens: tokens.TotalTokens,
		Error:       errorFromStopReason(stopReason),
	}, nil
}

// RunBackground starts a child loop asynchronously, tracked via
// internal/task so TaskOutput/TaskStop can observe and cancel it.
func (m *Manager) RunBackground(req tool.AgentExecRequest) (tool.AgentTaskInfo, error) {
	runCtx, cancel := context.WithCancel(context.Background())
	id := generateTaskID()
	at := task.NewAgentTask(id, req.Agent, req.Description, runCtx, cancel)
	task.DefaultAgentManager.Register(at)

	go func() {
		child, err := m.buildChild(runCtx, req)
		if err != nil {
			at.Complete(err)
			return
		}
		var runErr error
		for ev := range child.Act(runCtx, req.Prompt, nil) {
			switch ev.Kind {
			case message.EventAssistant:
				at.AppendOutput([]byte(ev.Assistant.Content))
				if ev.Assistant.Done {
					at.UpdateProgress(child.Turn(), child.TokenUsage().TotalTokens)
					if isErrorStopReason(ev.Assistant.StopReason) {
						runErr = fmt.Errorf("%s", ev.Assistant.StopReason)
					}
				}
			case message.EventToolCall:
				at.AppendProgress(fmt.Sprintf("%s: %s", req.Agent, ev.ToolCall.ToolName))
			}
		}
		at.Complete(runErr)
	}()

	return tool.AgentTaskInfo{TaskID: id, AgentName: req.Agent}, nil
}

func (m *Manager) buildChild(ctx context.Context, req tool.AgentExecRequest) (*agentloop.Loop, error) {
	profile, ok := m.profiles.Get(req.Agent)
	if !ok {
		return nil, fmt.Errorf("unknown agent type: %s", req.Agent)
	}
	if profile.AgentType != AgentTypeSubagent {
		return nil, fmt.Errorf("agent %q is not a delegatable sub-agent (agent_type: %s)", req.Agent, profile.AgentType)
	}

	model := req.Model
	if model == "" {
		model = profile.Overrides.Model
	}
	if model == "" {
		model = m.ParentModelID
	}

	if m.NewProvider == nil {
		return nil, fmt.Errorf("subagent manager has no provider factory configured")
	}
	provider, err := m.NewProvider(ctx, model)
	if err != nil {
		return nil, fmt.Errorf("building provider for sub-agent %s: %w", req.Agent, err)
	}

	client := &backend.Client{Provider: provider, Model: model}

	cwd := req.Cwd
	if cwd == "" {
		cwd = m.Cwd
	}

	access := &tool.AccessConfig{Mode: tool.AccessAllowlist, Allow: profile.Overrides.Tools}
	if len(profile.Overrides.Tools) == 0 {
		access = &tool.AccessConfig{Mode: tool.AccessDenylist}
	}

	sys := &system.System{
		Client:   client,
		Cwd:      cwd,
		PlanMode: profile.Overrides.PermissionMode == "plan",
	}
	if profile.Overrides.SystemPrompt != "" {
		sys.Extra = []string{profile.Overrides.SystemPrompt}
	}

	maxTurns := req.MaxTurns
	if maxTurns <= 0 {
		maxTurns = defaultChildMaxTurns
	}

	opts := agentloop.Options{
		Client:           client,
		Tools:            &tool.Set{Access: access, MCP: mcpGetter(m.MCP)},
		Registry:         m.Registry,
		MCP:              m.MCP,
		System:           sys,
		Settings:         m.Settings,
		SessionPerms:     &config.SessionPermissions{},
		ApprovalGate:     m.Gate,
		Hooks:            m.Hooks,
		AgentProfile:     profile.Name,
		TurnLimitEnabled: true,
		MaxTurns:         maxTurns,
		Cwd:              cwd,
		AgentName:        req.Agent,
		ParentTracker:    m.ParentTracker,
	}

	return agentloop.New(opts), nil
}

func mcpGetter(reg *mcp.Registry) func() []backend.Tool {
	if reg == nil {
		return nil
	}
	return reg.GetToolSchemas
}

func isErrorStopReason(reason string) bool {
	return len(reason) >= 6 && reason[:6] == "error:"
}

func errorFromStopReason(reason string) string {
	if isErrorStopReason(reason) {
		return reason
	}
	return ""
}

func generateTaskID() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return "task-" + hex.EncodeToString(b)
}
