package config

import "sync"

// ToolPermissionStore adapts a live *Settings to the approval package's
// PermissionStore interface: AllowAlways persists a blanket allow rule
// ("ToolName(**)") into Settings.Permissions.Allow using the same
// MatchRule/BuildRule machinery CheckPermission already uses, so a grant
// made mid-session is visible to every subsequent CheckPermission call
// without any separate storage.
type ToolPermissionStore struct {
	Settings *Settings

	mu sync.Mutex
}

// blanketRule returns the always-allow pattern for a tool name.
func blanketRule(toolName string) string {
	return toolName + "(**)"
}

// IsAlwaysAllowed reports whether toolName already carries a blanket
// allow-always grant.
func (s *ToolPermissionStore) IsAlwaysAllowed(toolName string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	rule := blanketRule(toolName)
	for _, p := range s.Settings.Permissions.Allow {
		if p == rule {
			return true
		}
	}
	return false
}

// AllowAlways grants toolName a blanket allow-always rule, idempotently.
func (s *ToolPermissionStore) AllowAlways(toolName string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rule := blanketRule(toolName)
	for _, p := range s.Settings.Permissions.Allow {
		if p == rule {
			return
		}
	}
	s.Settings.Permissions.Allow = append(s.Settings.Permissions.Allow, rule)
}
