// Package approval implements the per-invocation permission gate that sits
// between the tool registry and the user. It is the core's side of the
// "approval prompt": the loop never reads or writes configuration directly,
// it only talks to this package's Gate, which in turn talks to a
// PermissionStore closure supplied by the caller.
package approval

import (
	"context"

	toolperm "github.com/arjunsethi/agentcore/internal/tool/permission"
)

// Decision is the user's answer to an approval Request. Four outcomes are
// representable, matching the four user intents the approval prompt must
// support: allow once, allow always (persists), reject once (with a reason
// fed back to the model), and cancel.
type Decision int

const (
	// Allow runs the tool once without changing any stored permission.
	Allow Decision = iota
	// AllowAlways runs the tool once and flips its stored permission to
	// always-allow so future calls in this session skip the gate.
	AllowAlways
	// Reject denies the call; Response.Reason is injected as the tool
	// result so the model can adapt.
	Reject
	// Cancel denies the call because the user cancelled the whole
	// operation, not just this one tool. Distinguished from Reject so the
	// caller can tag the synthetic tool result with <cancelled>.
	Cancel
)

// Request describes one tool call awaiting approval.
type Request struct {
	ToolName   string
	ToolCallID string
	Args       map[string]any
	// Detail carries the rich, tool-specific preview (a diff, a bash
	// command, a subagent spawn) that a host UI renders alongside the
	// plain Args map. Optional.
	Detail *toolperm.PermissionRequest
}

// Response is the user's (or auto-approve policy's) answer.
type Response struct {
	Decision Decision
	// Reason is a human-readable explanation, surfaced as the tool result
	// content when Decision is Reject or Cancel.
	Reason string
}

// Callback is supplied by the host (TUI, ACP adapter, test harness). It may
// block waiting on user input; the gate passes ctx through so cancellation
// unblocks it.
type Callback func(ctx context.Context, req Request) (Response, error)

// PermissionStore is the live configuration surface the gate mutates on
// AllowAlways. Kept as an interface (not a concrete *config.Settings
// pointer) so the gate has no hard dependency on the config package's
// shape, and so tests can supply an in-memory fake.
type PermissionStore interface {
	// IsAlwaysAllowed reports whether toolName has already been granted
	// always-allow, in which case the gate is bypassed entirely.
	IsAlwaysAllowed(toolName string) bool
	// AllowAlways persists an always-allow grant for toolName.
	AllowAlways(toolName string)
}

// Gate is the approval policy point. A Gate with a nil Callback
// auto-approves everything, matching an "auto-approve profile" where no
// approval callback is installed.
type Gate struct {
	Callback Callback
	Store    PermissionStore
}

// Ask runs the approval flow for one tool call. When no callback is
// installed, or the tool already carries an always-allow grant, it returns
// Allow without invoking the callback.
func (g *Gate) Ask(ctx context.Context, req Request) (Response, error) {
	if g.Store != nil && g.Store.IsAlwaysAllowed(req.ToolName) {
		return Response{Decision: Allow}, nil
	}
	if g.Callback == nil {
		return Response{Decision: Allow}, nil
	}

	resp, err := g.Callback(ctx, req)
	if err != nil {
		return Response{Decision: Cancel, Reason: err.Error()}, err
	}

	if resp.Decision == AllowAlways && g.Store != nil {
		g.Store.AllowAlways(req.ToolName)
	}
	return resp, nil
}
