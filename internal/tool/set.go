package tool

import (
	"strings"

	"github.com/arjunsethi/agentcore/internal/backend"
)

// AccessMode selects how an agent's tool list is filtered.
type AccessMode string

const (
	// AccessAllowlist exposes only the named tools.
	AccessAllowlist AccessMode = "allowlist"
	// AccessDenylist exposes everything except the named tools.
	AccessDenylist AccessMode = "denylist"
)

// AccessConfig is a sub-agent profile's tool filter.
type AccessConfig struct {
	Mode  AccessMode
	Allow []string
	Deny  []string
}

// Set resolves the tool schemas offered to the model on each turn. The
// zero configuration is the full builtin set; Static short-circuits
// everything (a fixed list for custom agents), Access applies a profile's
// allow/deny filter, and Disabled/PlanMode filter the default set.
type Set struct {
	Static   []backend.Tool        // fixed list, overrides all filtering
	Disabled map[string]bool       // tools excluded by configuration
	PlanMode bool                  // restrict to the read-only plan set
	MCP      func() []backend.Tool // live MCP proxy-tool schemas
	Access   *AccessConfig         // sub-agent allow/deny filter
}

// Tools returns the effective tool list for the next turn. It re-resolves
// every call, so MCP servers connecting mid-session and live config edits
// are visible on the following turn.
func (s *Set) Tools() []backend.Tool {
	switch {
	case s.Static != nil:
		return s.Static
	case s.Access != nil:
		return s.agentTools()
	default:
		return s.defaultTools()
	}
}

func (s *Set) defaultTools() []backend.Tool {
	if s.PlanMode {
		return GetPlanModeToolSchemasFiltered(s.Disabled)
	}

	tools := GetToolSchemasWithMCP(s.MCP)
	if len(s.Disabled) == 0 {
		return tools
	}
	filtered := make([]backend.Tool, 0, len(tools))
	for _, t := range tools {
		if !s.Disabled[t.Name] {
			filtered = append(filtered, t)
		}
	}
	return filtered
}

// agentBlockedTools are withheld from every sub-agent: delegation doesn't
// nest, and plan-mode transitions belong to the top-level conversation.
var agentBlockedTools = map[string]bool{
	"Task":          true,
	"EnterPlanMode": true,
	"ExitPlanMode":  true,
}

func (s *Set) agentTools() []backend.Tool {
	all := GetToolSchemas()
	filtered := make([]backend.Tool, 0, len(all))
	for _, t := range all {
		if agentBlockedTools[t.Name] || !s.allowed(t.Name) {
			continue
		}
		filtered = append(filtered, t)
	}
	return filtered
}

func (s *Set) allowed(name string) bool {
	switch s.Access.Mode {
	case AccessAllowlist:
		for _, entry := range s.Access.Allow {
			if strings.EqualFold(name, entry) {
				return true
			}
		}
		return false
	case AccessDenylist:
		for _, entry := range s.Access.Deny {
			if strings.EqualFold(name, entry) {
				return false
			}
		}
		return true
	default:
		return true
	}
}
