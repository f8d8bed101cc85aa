package config

// MergeSettings overlays one Settings on another: permission lists
// concatenate (deduplicated, base first), scalar values are
// overlay-wins-when-set, and maps merge key-wise with overlay entries
// replacing base entries.
func MergeSettings(base, overlay *Settings) *Settings {
	if base == nil {
		return overlay
	}
	if overlay == nil {
		return base
	}

	result := NewSettings()

	result.Permissions = PermissionSettings{
		Allow: appendDedup(base.Permissions.Allow, overlay.Permissions.Allow),
		Deny:  appendDedup(base.Permissions.Deny, overlay.Permissions.Deny),
		Ask:   appendDedup(base.Permissions.Ask, overlay.Permissions.Ask),
	}

	result.Model = base.Model
	if overlay.Model != "" {
		result.Model = overlay.Model
	}

	result.Hooks = mergeHookMaps(base.Hooks, overlay.Hooks)
	result.Env = overlayMap(base.Env, overlay.Env)
	result.EnabledPlugins = overlayMap(base.EnabledPlugins, overlay.EnabledPlugins)
	result.DisabledTools = overlayMap(base.DisabledTools, overlay.DisabledTools)

	return result
}

// appendDedup concatenates two rule lists preserving first-seen order.
func appendDedup(base, overlay []string) []string {
	seen := make(map[string]bool, len(base)+len(overlay))
	var out []string
	for _, s := range append(append([]string(nil), base...), overlay...) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// mergeHookMaps merges hook tables key-wise; an overlay entry replaces the
// base entry for the same event wholesale (hook lists don't concatenate —
// a project that redefines PreToolUse owns it).
func mergeHookMaps(base, overlay map[string][]Hook) map[string][]Hook {
	result := make(map[string][]Hook, len(base)+len(overlay))
	for k, v := range base {
		result[k] = append([]Hook{}, v...)
	}
	for k, v := range overlay {
		result[k] = append([]Hook{}, v...)
	}
	return result
}

// overlayMap merges two maps with overlay entries winning.
func overlayMap[V any](base, overlay map[string]V) map[string]V {
	result := make(map[string]V, len(base)+len(overlay))
	for k, v := range base {
		result[k] = v
	}
	for k, v := range overlay {
		result[k] = v
	}
	return result
}
