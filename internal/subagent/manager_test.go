package subagent

import (
	"context"
	"testing"

	"github.com/arjunsethi/agentcore/internal/backend"
	"github.com/arjunsethi/agentcore/internal/message"
	"github.com/arjunsethi/agentcore/internal/tool"
)

type scriptedProvider struct {
	responses []message.CompletionResponse
	calls     int
}

func (p *scriptedProvider) Stream(ctx context.Context, opts backend.CompletionOptions) <-chan message.StreamChunk {
	ch := make(chan message.StreamChunk, 1)
	resp := p.responses[p.calls]
	p.calls++
	go func() {
		defer close(ch)
		ch <- message.StreamChunk{Type: message.ChunkTypeDone, Response: &resp}
	}()
	return ch
}

func (p *scriptedProvider) ListModels(ctx context.Context) ([]backend.ModelInfo, error) { return nil, nil }
func (p *scriptedProvider) Name() string                                                { return "scripted:test" }

func newTestManager(profiles map[string]Profile, provider *scriptedProvider) *Manager {
	ps := &profileSet{byName: profiles}
	for name := range profiles {
		ps.order = append(ps.order, name)
	}
	return &Manager{
		profiles: ps,
		Registry: tool.NewRegistry(),
		NewProvider: func(ctx context.Context, model string) (backend.Provider, error) {
			return provider, nil
		},
	}
}

func TestBuildChildRejectsNonSubagentProfile(t *testing.T) {
	m := newTestManager(map[string]Profile{
		"reviewer": {Name: "reviewer", AgentType: AgentTypeAgent},
	}, &scriptedProvider{})

	_, err := m.Run(context.Background(), tool.AgentExecRequest{Agent: "reviewer", Prompt: "go"})
	if err == nil {
		t.Fatal("expected an error delegating to an agent_type:agent profile")
	}
}

func TestBuildChildUnknownProfile(t *testing.T) {
	m := newTestManager(map[string]Profile{}, &scriptedProvider{})
	_, err := m.Run(context.Background(), tool.AgentExecRequest{Agent: "ghost", Prompt: "go"})
	if err == nil {
		t.Fatal("expected an error for an unknown agent type")
	}
}

func TestRunDelegatesToSubagentProfile(t *testing.T) {
	provider := &scriptedProvider{responses: []message.CompletionResponse{
		{Content: "investigated the repo", StopReason: "end_turn"},
	}}
	m := newTestManager(map[string]Profile{
		"explore": {Name: "explore", AgentType: AgentTypeSubagent, Overrides: Overrides{PermissionMode: "plan"}},
	}, provider)

	result, err := m.Run(context.Background(), tool.AgentExecRequest{Agent: "explore", Prompt: "find the bug"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Success {
		t.Errorf("expected Success true, got result %+v", result)
	}
	if result.Content != "investigated the repo" {
		t.Errorf("expected the child's final assistant content, got %q", result.Content)
	}
	if result.TurnCount != 1 {
		t.Errorf("expected 1 turn, got %d", result.TurnCount)
	}
}

func TestRunReportsChildError(t *testing.T) {
	provider := &scriptedProvider{responses: []message.CompletionResponse{
		{StopReason: "error: backend exploded"},
	}}
	m := newTestManager(map[string]Profile{
		"explore": {Name: "explore", AgentType: AgentTypeSubagent},
	}, provider)

	result, err := m.Run(context.Background(), tool.AgentExecRequest{Agent: "explore", Prompt: "go"})
	if err != nil {
		t.Fatalf("unexpected error from Run itself: %v", err)
	}
	if result.Success {
		t.Error("expected Success false when the child's last stop reason is an error")
	}
	if result.Error == "" {
		t.Error("expected a non-empty Error field")
	}
}

func TestGetAgentConfigReportsOverrides(t *testing.T) {
	m := newTestManager(map[string]Profile{
		"explore": {
			Name:        "explore",
			DisplayName: "Explore",
			Description: "read-only investigation",
			AgentType:   AgentTypeSubagent,
			Overrides:   Overrides{PermissionMode: "plan", Tools: []string{"Read", "Grep"}},
		},
	}, &scriptedProvider{})

	cfg, ok := m.GetAgentConfig("explore")
	if !ok {
		t.Fatal("expected to find the explore profile")
	}
	if cfg.PermissionMode != "plan" || len(cfg.Tools) != 2 {
		t.Errorf("expected overrides to surface through GetAgentConfig, got %+v", cfg)
	}
}
