package approval

import (
	"context"
	"errors"
	"testing"
)

type fakeStore struct {
	allowed map[string]bool
}

func newFakeStore() *fakeStore { return &fakeStore{allowed: map[string]bool{}} }

func (s *fakeStore) IsAlwaysAllowed(toolName string) bool { return s.allowed[toolName] }
func (s *fakeStore) AllowAlways(toolName string)          { s.allowed[toolName] = true }

func TestGateNoCallbackAutoApproves(t *testing.T) {
	g := &Gate{}
	resp, err := g.Ask(context.Background(), Request{ToolName: "Bash"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Decision != Allow {
		t.Errorf("expected Allow when no callback is installed, got %v", resp.Decision)
	}
}

func TestGateAllowAlwaysPersists(t *testing.T) {
	store := newFakeStore()
	calls := 0
	g := &Gate{
		Store: store,
		Callback: func(ctx context.Context, req Request) (Response, error) {
			calls++
			return Response{Decision: AllowAlways}, nil
		},
	}

	resp, err := g.Ask(context.Background(), Request{ToolName: "Bash"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Decision != AllowAlways {
		t.Fatalf("expected AllowAlways, got %v", resp.Decision)
	}
	if !store.IsAlwaysAllowed("Bash") {
		t.Fatal("expected AllowAlways to persist the grant in the store")
	}

	// A subsequent call to the same tool does not
	// invoke the approval callback again.
	if _, err := g.Ask(context.Background(), Request{ToolName: "Bash"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected the callback to run exactly once, ran %d times", calls)
	}
}

func TestGateReject(t *testing.T) {
	g := &Gate{
		Callback: func(ctx context.Context, req Request) (Response, error) {
			return Response{Decision: Reject, Reason: "not today"}, nil
		},
	}
	resp, err := g.Ask(context.Background(), Request{ToolName: "Bash"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Decision != Reject || resp.Reason != "not today" {
		t.Errorf("expected Reject with reason, got %+v", resp)
	}
}

func TestGateCallbackErrorBecomesCancel(t *testing.T) {
	g := &Gate{
		Callback: func(ctx context.Context, req Request) (Response, error) {
			return Response{}, errors.New("user hit ctrl-c")
		},
	}
	resp, err := g.Ask(context.Background(), Request{ToolName: "Bash"})
	if err == nil {
		t.Fatal("expected the callback's error to propagate")
	}
	if resp.Decision != Cancel {
		t.Errorf("expected a callback error to surface as Cancel, got %v", resp.Decision)
	}
}

func TestGateStoreBypassesCallback(t *testing.T) {
	store := newFakeStore()
	store.AllowAlways("Read")
	called := false
	g := &Gate{
		Store: store,
		Callback: func(ctx context.Context, req Request) (Response, error) {
			called = true
			return Response{Decision: Allow}, nil
		},
	}
	resp, err := g.Ask(context.Background(), Request{ToolName: "Read"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Decision != Allow {
		t.Errorf("expected Allow, got %v", resp.Decision)
	}
	if called {
		t.Error("expected the callback to be bypassed once the store already grants always-allow")
	}
}
