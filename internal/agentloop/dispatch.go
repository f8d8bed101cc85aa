package agentloop

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/arjunsethi/agentcore/internal/approval"
	"github.com/arjunsethi/agentcore/internal/config"
	"github.com/arjunsethi/agentcore/internal/hooks"
	"github.com/arjunsethi/agentcore/internal/log"
	"github.com/arjunsethi/agentcore/internal/mcp"
	"github.com/arjunsethi/agentcore/internal/message"
	"github.com/arjunsethi/agentcore/internal/tool"
	"github.com/arjunsethi/agentcore/internal/tool/ui"
)

// dispatchToolCalls runs every tool call from the last assistant message in
// ascending Index order, appending one tool-role message and emitting one
// ToolCallEvent + ToolResultEvent pair per call. A cancellation observed
// mid-dispatch stops issuing new calls; emitCancellation (called by the
// caller) fills in synthetic results for whatever remains.
func (l *Loop) dispatchToolCalls(ctx context.Context, calls []message.ToolCall, out chan<- message.Event) {
	ordered := append([]message.ToolCall(nil), calls...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Index < ordered[j].Index })
	for _, tc := range ordered {
		if l.isCancelled() || ctx.Err() != nil {
			return
		}
		l.dispatchOne(ctx, tc, out)
	}
}

func (l *Loop) dispatchOne(ctx context.Context, tc message.ToolCall, out chan<- message.Event) {
	start := time.Now()
	toolName := tc.Function.Name
	class := toolClass(toolName)

	// A call is only announced once it is actually runnable: arguments
	// that never assembled into valid JSON, or a name nothing answers to,
	// produce a bare ToolResultEvent with no preceding ToolCallEvent.
	args, parseErr := tc.ParseArguments()
	if parseErr != nil {
		l.finishToolCall(tc, out, toolResultOutcome{
			content: "invalid tool arguments JSON: " + parseErr.Error(),
			isError: true,
		}, start)
		return
	}

	var builtin tool.Tool
	if class == "builtin" {
		var ok bool
		if builtin, ok = l.opts.Registry.Get(toolName); !ok {
			l.finishToolCall(tc, out, toolResultOutcome{
				content: "unknown tool: " + toolName,
				isError: true,
			}, start)
			return
		}
	}

	out <- message.Event{
		Kind: message.EventToolCall,
		ToolCall: &message.ToolCallEvent{
			ToolName:    toolName,
			ToolClass:   class,
			Args:        args,
			ToolCallID:  tc.ID,
			LLMToolCall: tc,
		},
	}

	outcome := l.invoke(ctx, builtin, toolName, tc.ID, args, class)
	l.finishToolCall(tc, out, outcome, start)
}

type toolResultOutcome struct {
	content    string
	isError    bool
	skipped    bool
	skipReason string
}

func (l *Loop) finishToolCall(tc message.ToolCall, out chan<- message.Event, outcome toolResultOutcome, start time.Time) {
	l.messages = append(l.messages, message.ToolMessage(tc.ID, tc.Function.Name, outcome.content, outcome.isError))
	ev := &message.ToolResultEvent{
		ToolName:   tc.Function.Name,
		ToolCallID: tc.ID,
		Skipped:    outcome.skipped,
		SkipReason: outcome.skipReason,
		Duration:   time.Since(start),
	}
	if outcome.isError {
		ev.Error = outcome.content
	} else {
		ev.Result = outcome.content
	}
	out <- message.Event{Kind: message.EventToolResult, ToolResult: ev}
}

func toolClass(name string) string {
	if mcp.IsMCPTool(name) {
		return "mcp"
	}
	return "builtin"
}

// invoke runs the rest of the invocation pipeline for an already-resolved
// call: PreToolUse hook, permission check / approval gate, execution,
// PostToolUse hook. t is the builtin tool instance, nil for MCP proxies.
func (l *Loop) invoke(ctx context.Context, t tool.Tool, toolName, toolCallID string, args map[string]any, class string) toolResultOutcome {
	if l.opts.Hooks != nil {
		if pre := l.runHook(ctx, hooks.PreToolUse, toolName, args, toolCallID); pre.blocked {
			return toolResultOutcome{content: pre.reason, isError: true, skipped: true, skipReason: "hook"}
		} else if pre.updatedArgs != nil {
			args = pre.updatedArgs
		}
	}

	if class == "mcp" {
		return l.invokeMCP(ctx, toolName, args)
	}

	decision, reason := l.checkPermission(ctx, t, toolName, args)
	if decision == approval.Reject || decision == approval.Cancel {
		skipReason := "rejected"
		if decision == approval.Cancel {
			skipReason = "cancelled"
			if reason == "" {
				reason = "<cancelled>User cancelled</cancelled>"
			}
		}
		return toolResultOutcome{content: reason, isError: true, skipped: true, skipReason: skipReason}
	}

	result := l.execute(ctx, t, args)

	if l.opts.Hooks != nil {
		l.runPostHook(ctx, toolName, args, toolCallID, result)
	}

	return toolResultOutcome{content: result.FormatForLLM(), isError: !result.Success}
}

func (l *Loop) execute(ctx context.Context, t tool.Tool, args map[string]any) ui.ToolResult {
	start := time.Now()
	var result ui.ToolResult
	if pt, ok := t.(tool.PermissionAwareTool); ok && pt.RequiresPermission() {
		result = pt.ExecuteApproved(ctx, args, l.opts.Cwd)
	} else {
		result = t.Execute(ctx, args, l.opts.Cwd)
	}
	log.LogTool(t.Name(), result.Metadata.Summary(), time.Since(start).Milliseconds(), result.Success)
	return result
}

// checkPermission resolves the effective decision for one call: a
// destructive/denied pattern short-circuits to Reject without asking, an
// allowed pattern (or an existing always-allow grant) short-circuits to
// Allow, and everything else goes through the approval gate.
func (l *Loop) checkPermission(ctx context.Context, t tool.Tool, toolName string, args map[string]any) (approval.Decision, string) {
	pt, isPermissionAware := t.(tool.PermissionAwareTool)
	if !isPermissionAware || !pt.RequiresPermission() {
		return approval.Allow, ""
	}

	if l.opts.Settings != nil {
		switch l.opts.Settings.CheckPermission(toolName, args, l.opts.SessionPerms) {
		case config.PermissionDeny:
			return approval.Reject, "permission denied by configured rule"
		case config.PermissionAllow:
			return approval.Allow, ""
		}
	}

	if l.opts.ApprovalGate == nil {
		return approval.Allow, ""
	}

	detail, err := pt.PreparePermission(ctx, args, l.opts.Cwd)
	if err != nil {
		return approval.Reject, err.Error()
	}

	resp, err := l.opts.ApprovalGate.Ask(ctx, approval.Request{
		ToolName: toolName,
		Args:     args,
		Detail:   detail,
	})
	if err != nil {
		return approval.Cancel, resp.Reason
	}
	return resp.Decision, resp.Reason
}

func (l *Loop) invokeMCP(ctx context.Context, fullName string, args map[string]any) toolResultOutcome {
	if l.opts.MCP == nil {
		return toolResultOutcome{content: "MCP is not configured", isError: true}
	}
	result, err := l.opts.MCP.CallTool(ctx, fullName, args)
	if err != nil {
		return toolResultOutcome{content: err.Error(), isError: true}
	}
	return toolResultOutcome{content: mcpResultText(result), isError: result.IsError}
}

func mcpResultText(result *mcp.ToolResult) string {
	if result == nil {
		return ""
	}
	text := ""
	for _, c := range result.Content {
		if c.Type == "text" {
			text += c.Text
		}
	}
	return text
}

type hookDecision struct {
	blocked     bool
	reason      string
	updatedArgs map[string]any
}

func (l *Loop) runHook(ctx context.Context, event hooks.EventType, toolName string, args map[string]any, toolCallID string) hookDecision {
	outcome := l.opts.Hooks.Execute(ctx, event, hooks.HookInput{
		ToolName:  toolName,
		ToolInput: args,
		ToolUseID: toolCallID,
	})
	if !outcome.ShouldContinue && outcome.ShouldBlock {
		return hookDecision{blocked: true, reason: outcome.BlockReason}
	}
	if len(outcome.UpdatedInput) > 0 {
		return hookDecision{updatedArgs: outcome.UpdatedInput}
	}
	return hookDecision{}
}

func (l *Loop) runPostHook(ctx context.Context, toolName string, args map[string]any, toolCallID string, result ui.ToolResult) {
	resp, _ := json.Marshal(result.Output)
	l.opts.Hooks.ExecuteAsync(hooks.PostToolUse, hooks.HookInput{
		ToolName:     toolName,
		ToolInput:    args,
		ToolUseID:    toolCallID,
		ToolResponse: json.RawMessage(resp),
	})
}
