// Package tool holds the builtin tool inventory and the contracts every
// tool satisfies. A tool is a named capability the model can invoke:
// schema-described (schema.go), registered at init time (registry.go),
// and executed through the dispatch pipeline, which layers permission
// checking and approval on top of the interfaces below.
package tool

import (
	"context"

	"github.com/arjunsethi/agentcore/internal/tool/permission"
	"github.com/arjunsethi/agentcore/internal/tool/ui"
)

// Tool is the minimal contract: identity plus a synchronous Execute that
// always produces a ToolResult (failures are results, not errors — the
// dispatch layer feeds them back to the model either way). params is the
// already-parsed JSON arguments object; each tool validates its own
// required fields and reports misuse as an error result.
type Tool interface {
	Name() string
	Description() string
	Icon() string

	Execute(ctx context.Context, params map[string]any, cwd string) ui.ToolResult
}

// PermissionAwareTool marks a tool whose calls go through the approval
// gate. PreparePermission runs before the user is asked and builds the
// rich preview (a diff, the command text, the sub-agent prompt); it is
// also where argument preconditions are checked, so a call that could
// never apply is rejected without prompting anyone. ExecuteApproved runs
// after the gate allows the call.
type PermissionAwareTool interface {
	Tool

	RequiresPermission() bool
	PreparePermission(ctx context.Context, params map[string]any, cwd string) (*permission.PermissionRequest, error)
	ExecuteApproved(ctx context.Context, params map[string]any, cwd string) ui.ToolResult
}
