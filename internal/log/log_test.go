package log

import "testing"

func TestSanitizeAgentNameReplacesSpecialChars(t *testing.T) {
	got := sanitizeAgentName("code-simplifier:explore/nested name")
	want := "code-simplifier_explore_nested_name"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestEscapeForLogNormalizesControlChars(t *testing.T) {
	got := escapeForLog("line one\nline two\r\n\ttabbed")
	want := "line one\\nline two\\n\\ttabbed"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestGetTurnPrefixFormatsMainLoop(t *testing.T) {
	got := GetTurnPrefix(5)
	want := "main-005"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestAgentTurnTrackerNextTurnIncrementsFromOne(t *testing.T) {
	tr := NewAgentTurnTracker("explore", nil)
	if got := tr.NextTurn(); got != 1 {
		t.Errorf("expected the first NextTurn to return 1, got %d", got)
	}
	if got := tr.NextTurn(); got != 2 {
		t.Errorf("expected the second NextTurn to return 2, got %d", got)
	}
	if got := tr.CurrentTurn(); got != 2 {
		t.Errorf("expected CurrentTurn to reflect the last NextTurn, got %d", got)
	}
}

func TestAgentTurnTrackerGetTurnPrefixNestsUnderParent(t *testing.T) {
	parent := NewAgentTurnTracker("code-simplifier", nil)
	parent.NextTurn() // parent turn 1
	parent.NextTurn() // parent turn 2

	child := NewAgentTurnTracker("explore", parent)
	got := child.GetTurnPrefix(1)

	wantPrefix := parent.parentPrefix + ":code-simplifier-002:explore-001"
	if got != wantPrefix {
		t.Errorf("expected a nested prefix anchored to the parent's current turn, got %q want %q", got, wantPrefix)
	}
}

func TestAgentTurnTrackerSanitizesNameInPrefix(t *testing.T) {
	tr := NewAgentTurnTracker("weird:name here", nil)
	got := tr.GetTurnPrefix(1)

	wantSuffix := "weird_name_here-001"
	if len(got) < len(wantSuffix) || got[len(got)-len(wantSuffix):] != wantSuffix {
		t.Errorf("expected the prefix to end with sanitized name %q, got %q", wantSuffix, got)
	}
}
