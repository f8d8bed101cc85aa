package mcp

import (
	"testing"
)

func statusOf(t *testing.T, reg *Registry, name string) Server {
	t.Helper()
	for _, s := range reg.List() {
		if s.Config.Name == name {
			return s
		}
	}
	t.Fatalf("server %s not listed", name)
	return Server{}
}

func TestRegistryConnectionStateTransitions(t *testing.T) {
	reg := NewRegistryForTest(map[string]ServerConfig{
		"server1": {Name: "server1", URL: "http://example.com/mcp"},
		"server2": {Name: "server2", URL: "http://example2.com/mcp"},
	})

	for _, s := range reg.List() {
		if s.Status != StatusDisconnected {
			t.Errorf("expected %s to start disconnected, got %s", s.Config.Name, s.Status)
		}
	}

	reg.SetConnecting("server1", true)
	if got := statusOf(t, reg, "server1").Status; got != StatusConnecting {
		t.Errorf("expected connecting, got %s", got)
	}
	if got := statusOf(t, reg, "server2").Status; got != StatusDisconnected {
		t.Errorf("expected server2 untouched, got %s", got)
	}

	reg.SetConnecting("server1", false)
	reg.SetConnectError("server1", "connection refused")
	s1 := statusOf(t, reg, "server1")
	if s1.Status != StatusError || s1.Error != "connection refused" {
		t.Errorf("expected the recorded connect error to surface, got %+v", s1)
	}

	// Disabling a server doesn't change how it lists, only whether
	// ConnectAll touches it.
	reg.SetDisabled("server2", true)
	if got := statusOf(t, reg, "server2").Status; got != StatusDisconnected {
		t.Errorf("expected a disabled server to list as disconnected, got %s", got)
	}

	reg.SetConnectError("server1", "")
	if got := statusOf(t, reg, "server1").Status; got != StatusDisconnected {
		t.Errorf("expected disconnected after clearing the error, got %s", got)
	}
}
