package mcp

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestConfigLoaderSaveThenLoadRoundTrips(t *testing.T) {
	loader := NewConfigLoaderForTest(t.TempDir())

	saved := ServerConfig{
		Type:    TransportSTDIO,
		Command: "echo",
		Args:    []string{"hello"},
		Env:     map[string]string{"FOO": "bar"},
	}
	if err := loader.SaveServer("test-server", saved, ScopeLocal); err != nil {
		t.Fatalf("SaveServer: %v", err)
	}
	if _, err := os.Stat(loader.GetFilePath(ScopeLocal)); err != nil {
		t.Fatalf("expected the local config file on disk: %v", err)
	}

	configs, err := loader.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(configs) != 1 {
		t.Fatalf("expected exactly the saved server, got %d configs", len(configs))
	}
	loaded, ok := configs["test-server"]
	if !ok {
		t.Fatal("saved server missing from loaded configs")
	}
	if loaded.Command != "echo" {
		t.Errorf("expected command to round-trip, got %q", loaded.Command)
	}
	if len(loaded.Args) != 1 || loaded.Args[0] != "hello" {
		t.Errorf("expected args to round-trip, got %v", loaded.Args)
	}
}

func TestConfigLoaderProjectScopeOverridesUser(t *testing.T) {
	loader := NewConfigLoaderForTest(t.TempDir())
	os.MkdirAll(loader.GetUserDir(), 0755)
	os.MkdirAll(loader.GetProjectDir(), 0755)

	writeConfig := func(dir, command string) {
		data, _ := json.Marshal(MCPConfig{
			MCPServers: map[string]ServerConfig{"shared": {Command: command}},
		})
		os.WriteFile(filepath.Join(dir, "mcp.json"), data, 0644)
	}
	writeConfig(loader.GetUserDir(), "user-command")
	writeConfig(loader.GetProjectDir(), "project-command")

	configs, err := loader.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if got := configs["shared"].Command; got != "project-command" {
		t.Errorf("expected the project scope to win, got %q", got)
	}
}

func TestServerConfigGetTypeInference(t *testing.T) {
	tests := []struct {
		name   string
		config ServerConfig
		want   TransportType
	}{
		{"command defaults to stdio", ServerConfig{Command: "echo"}, TransportSTDIO},
		{"URL infers http", ServerConfig{URL: "https://example.com"}, TransportHTTP},
		{"explicit http", ServerConfig{Type: TransportHTTP, URL: "https://example.com"}, TransportHTTP},
		{"explicit sse", ServerConfig{Type: TransportSSE, URL: "https://example.com"}, TransportSSE},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.config.GetType(); got != tt.want {
				t.Errorf("GetType() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseMCPToolName(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantServer string
		wantTool   string
		wantOk     bool
	}{
		{"well-formed", "mcp__filesystem__read_file", "filesystem", "read_file", true},
		{"dashes survive", "mcp__my-server__my-tool", "my-server", "my-tool", true},
		{"builtin tool name", "Read", "", "", false},
		{"single underscore prefix", "mcp_server__tool", "", "", false},
		{"missing tool segment", "mcp__server", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, toolName, ok := ParseMCPToolName(tt.input)
			if ok != tt.wantOk {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOk)
			}
			if ok && (server != tt.wantServer || toolName != tt.wantTool) {
				t.Errorf("got (%q, %q), want (%q, %q)", server, toolName, tt.wantServer, tt.wantTool)
			}
		})
	}
}
