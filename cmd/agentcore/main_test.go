package main

import "testing"

func TestInputMessagePrefersPromptFlagOverArgs(t *testing.T) {
	orig := promptFlag
	defer func() { promptFlag = orig }()

	promptFlag = "flag message"
	got := inputMessage([]string{"positional", "args"})
	if got != "flag message" {
		t.Errorf("expected the -p flag to win, got %q", got)
	}
}

func TestInputMessageJoinsPositionalArgs(t *testing.T) {
	orig := promptFlag
	defer func() { promptFlag = orig }()
	promptFlag = ""

	got := inputMessage([]string{"hello", "world"})
	if got != "hello world" {
		t.Errorf("expected positional args to be space-joined, got %q", got)
	}
}

func TestSessionIDReusesContinueFlagWhenSet(t *testing.T) {
	orig := continueRun
	defer func() { continueRun = orig }()

	continueRun = "prior-session-id"
	if got := sessionID(); got != "prior-session-id" {
		t.Errorf("expected the --session flag value to be reused, got %q", got)
	}
}

func TestSessionIDGeneratesFreshIDWhenUnset(t *testing.T) {
	orig := continueRun
	defer func() { continueRun = orig }()
	continueRun = ""

	a := sessionID()
	b := sessionID()
	if a == "" || b == "" {
		t.Fatal("expected non-empty generated session IDs")
	}
	if a == b {
		t.Error("expected each call with no --session flag to generate a distinct ID")
	}
}
