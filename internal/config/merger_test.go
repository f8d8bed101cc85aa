package config

import "testing"

func TestMergeSettingsNilBaseReturnsOverlay(t *testing.T) {
	overlay := &Settings{Model: "overlay-model"}
	got := MergeSettings(nil, overlay)
	if got != overlay {
		t.Error("expected a nil base to short-circuit to the overlay pointer")
	}
}

func TestMergeSettingsNilOverlayReturnsBase(t *testing.T) {
	base := &Settings{Model: "base-model"}
	got := MergeSettings(base, nil)
	if got != base {
		t.Error("expected a nil overlay to short-circuit to the base pointer")
	}
}

func TestMergeSettingsModelOverlayWinsWhenSet(t *testing.T) {
	base := &Settings{Model: "base-model"}
	overlay := &Settings{Model: "overlay-model"}
	got := MergeSettings(base, overlay)
	if got.Model != "overlay-model" {
		t.Errorf("expected the overlay model to win, got %q", got.Model)
	}
}

func TestMergeSettingsModelFallsBackToBaseWhenOverlayEmpty(t *testing.T) {
	base := &Settings{Model: "base-model"}
	overlay := &Settings{}
	got := MergeSettings(base, overlay)
	if got.Model != "base-model" {
		t.Errorf("expected the base model when overlay leaves it unset, got %q", got.Model)
	}
}

func TestMergeSettingsPermissionListsConcatenateAndDedupe(t *testing.T) {
	base := &Settings{Permissions: PermissionSettings{Allow: []string{"Read(**)", "Bash(npm:*)"}}}
	overlay := &Settings{Permissions: PermissionSettings{Allow: []string{"Bash(npm:*)", "Edit(**)"}}}

	got := MergeSettings(base, overlay).Permissions.Allow
	want := []string{"Read(**)", "Bash(npm:*)", "Edit(**)"}
	if len(got) != len(want) {
		t.Fatalf("expected %d deduplicated allow rules, got %v", len(want), got)
	}
	for i, w := range want {
		if got[i] != w {
			t.Errorf("index %d: expected %q, got %q", i, w, got[i])
		}
	}
}

func TestMergeSettingsEnvOverlayOverridesSameKey(t *testing.T) {
	base := &Settings{Env: map[string]string{"A": "base", "B": "keep"}}
	overlay := &Settings{Env: map[string]string{"A": "overlay"}}

	got := MergeSettings(base, overlay).Env
	if got["A"] != "overlay" {
		t.Errorf("expected overlay to replace a shared env key, got %q", got["A"])
	}
	if got["B"] != "keep" {
		t.Errorf("expected a base-only env key to survive the merge, got %q", got["B"])
	}
}

func TestMergeSettingsDisabledToolsOverlayCanReenable(t *testing.T) {
	base := &Settings{DisabledTools: map[string]bool{"Bash": true}}
	overlay := &Settings{DisabledTools: map[string]bool{"Bash": false}}

	got := MergeSettings(base, overlay).DisabledTools
	if got["Bash"] {
		t.Error("expected an overlay false to re-enable a tool the base disabled")
	}
}

func TestMergeSettingsHooksOverlayReplacesMatcherEntirely(t *testing.T) {
	base := &Settings{Hooks: map[string][]Hook{
		"PreToolUse": {{Matcher: "Bash", Hooks: []HookCmd{{Type: "command"}}}},
	}}
	overlay := &Settings{Hooks: map[string][]Hook{
		"PreToolUse": {{Matcher: "Edit", Hooks: []HookCmd{{Type: "command"}}}},
	}}

	got := MergeSettings(base, overlay).Hooks["PreToolUse"]
	if len(got) != 1 || got[0].Matcher != "Edit" {
		t.Errorf("expected the overlay's PreToolUse hooks to replace the base's, got %+v", got)
	}
}

func TestAppendDedupPreservesFirstSeenOrder(t *testing.T) {
	got := appendDedup([]string{"b", "a"}, []string{"a", "c"})
	want := []string{"b", "a", "c"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}
