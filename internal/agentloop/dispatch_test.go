package agentloop

import (
	"context"
	"testing"

	"github.com/arjunsethi/agentcore/internal/message"
	"github.com/arjunsethi/agentcore/internal/tool"
	"github.com/arjunsethi/agentcore/internal/tool/ui"
)

// recordingTool notes the order its calls arrive in.
type recordingTool struct {
	name  string
	order *[]string
}

func (r recordingTool) Name() string        { return r.name }
func (r recordingTool) Description() string { return "records invocation order" }
func (r recordingTool) Icon() string        { return "" }
func (r recordingTool) Execute(ctx context.Context, params map[string]any, cwd string) ui.ToolResult {
	*r.order = append(*r.order, r.name)
	return ui.ToolResult{Success: true, Output: "ok"}
}

func TestDispatchRunsToolCallsInIndexOrder(t *testing.T) {
	l, _ := newTestLoop(t, nil)
	var order []string
	l.opts.Registry = tool.NewRegistry()
	l.opts.Registry.Register(recordingTool{name: "first", order: &order})
	l.opts.Registry.Register(recordingTool{name: "second", order: &order})

	// Deliver the calls out of Index order, the way an interleaved stream
	// can surface them.
	calls := []message.ToolCall{
		{ID: "tc-b", Index: 1, Function: message.ToolFunction{Name: "second", Arguments: `{}`}},
		{ID: "tc-a", Index: 0, Function: message.ToolFunction{Name: "first", Arguments: `{}`}},
	}

	out := make(chan message.Event, 16)
	l.dispatchToolCalls(context.Background(), calls, out)
	close(out)

	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Fatalf("expected dispatch in ascending Index order [first, second], got %v", order)
	}

	var callIDs, resultIDs []string
	for ev := range out {
		switch ev.Kind {
		case message.EventToolCall:
			callIDs = append(callIDs, ev.ToolCall.ToolCallID)
		case message.EventToolResult:
			resultIDs = append(resultIDs, ev.ToolResult.ToolCallID)
		}
	}
	if len(callIDs) != 2 || callIDs[0] != "tc-a" || callIDs[1] != "tc-b" {
		t.Errorf("expected ToolCallEvents in Index order [tc-a, tc-b], got %v", callIDs)
	}
	if len(resultIDs) != 2 || resultIDs[0] != "tc-a" || resultIDs[1] != "tc-b" {
		t.Errorf("expected each ToolResultEvent to follow its call in order, got %v", resultIDs)
	}
}

func TestDispatchInvalidArgumentsJSONSkipsExecution(t *testing.T) {
	l, _ := newTestLoop(t, nil)
	var order []string
	l.opts.Registry = tool.NewRegistry()
	l.opts.Registry.Register(recordingTool{name: "first", order: &order})

	calls := []message.ToolCall{
		{ID: "tc-bad", Index: 0, Function: message.ToolFunction{Name: "first", Arguments: `{"path":`}},
	}

	out := make(chan message.Event, 8)
	l.dispatchToolCalls(context.Background(), calls, out)
	close(out)

	if len(order) != 0 {
		t.Fatalf("expected the tool never to run on malformed arguments, got %v", order)
	}
	for ev := range out {
		if ev.Kind == message.EventToolCall {
			t.Fatalf("a call whose arguments never parsed must not be announced, got %+v", ev)
		}
	}

	msgs := l.Messages()
	last := msgs[len(msgs)-1]
	if last.Role != message.RoleTool || last.ToolCallID != "tc-bad" || !last.IsError {
		t.Fatalf("expected an error tool-role message for the malformed call, got %+v", last)
	}
}

func TestDispatchUnknownToolBecomesErrorResult(t *testing.T) {
	l, _ := newTestLoop(t, nil)

	calls := []message.ToolCall{
		{ID: "tc-x", Index: 0, Function: message.ToolFunction{Name: "no_such_tool", Arguments: `{}`}},
	}

	out := make(chan message.Event, 8)
	l.dispatchToolCalls(context.Background(), calls, out)
	close(out)

	var sawResult bool
	for ev := range out {
		switch ev.Kind {
		case message.EventToolCall:
			t.Fatalf("an unknown tool must not be announced with a ToolCallEvent, got %+v", ev)
		case message.EventToolResult:
			sawResult = true
			if ev.ToolResult.Skipped {
				t.Errorf("an unknown tool is an error, not a skip: %+v", ev.ToolResult)
			}
		}
	}
	if !sawResult {
		t.Fatal("expected a ToolResultEvent reporting the unknown tool")
	}

	msgs := l.Messages()
	last := msgs[len(msgs)-1]
	if last.Role != message.RoleTool || !last.IsError {
		t.Fatalf("expected an error tool-role reply so the model can self-correct, got %+v", last)
	}
}
