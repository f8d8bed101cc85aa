package agentloop

import (
	"testing"

	"github.com/arjunsethi/agentcore/internal/message"
)

func collectEvents(ch chan message.Event) []message.Event {
	close(ch)
	var out []message.Event
	for ev := range ch {
		out = append(out, ev)
	}
	return out
}

func TestDemuxTextOnly(t *testing.T) {
	chunks := make(chan message.StreamChunk, 8)
	chunks <- message.StreamChunk{Type: message.ChunkTypeText, Text: "Hi"}
	chunks <- message.StreamChunk{Type: message.ChunkTypeDone, Response: &message.CompletionResponse{
		Content: "Hi", StopReason: "end_turn", Usage: message.Usage{InputTokens: 10, OutputTokens: 1},
	}}
	close(chunks)

	out := make(chan message.Event, 8)
	resp, contentEmitted, err := demux(chunks, out, "m1")
	if err != nil {
		t.Fatalf("demux error: %v", err)
	}
	if resp.Content != "Hi" {
		t.Errorf("expected content 'Hi', got %q", resp.Content)
	}
	if resp.Usage.InputTokens != 10 || resp.Usage.OutputTokens != 1 {
		t.Errorf("expected usage to come from the done chunk's Response, got %+v", resp.Usage)
	}
	if !contentEmitted {
		t.Error("expected the text chunk to have been emitted as a delta")
	}
}

func TestDemuxEmitsAssistantDeltaPerTextChunk(t *testing.T) {
	chunks := make(chan message.StreamChunk, 8)
	chunks <- message.StreamChunk{Type: message.ChunkTypeText, Text: "Hel"}
	chunks <- message.StreamChunk{Type: message.ChunkTypeText, Text: "lo"}
	chunks <- message.StreamChunk{Type: message.ChunkTypeDone}
	close(chunks)

	out := make(chan message.Event, 8)
	resp, contentEmitted, err := demux(chunks, out, "msg-42")
	if err != nil {
		t.Fatalf("demux error: %v", err)
	}
	if !contentEmitted {
		t.Fatal("expected contentEmitted to be reported")
	}

	var deltas []string
	for _, ev := range collectEvents(out) {
		if ev.Kind != message.EventAssistant {
			continue
		}
		// All deltas of one assistant message share one message id.
		if ev.Assistant.MessageID != "msg-42" {
			t.Errorf("expected every delta to carry the shared message id, got %q", ev.Assistant.MessageID)
		}
		deltas = append(deltas, ev.Assistant.Content)
	}
	if len(deltas) != 2 {
		t.Fatalf("expected one AssistantEvent per text chunk, got %d", len(deltas))
	}
	// Concatenating the deltas reproduces the assembled content.
	if joined := deltas[0] + deltas[1]; joined != resp.Content || joined != "Hello" {
		t.Errorf("expected deltas to concatenate to the assembled content, got %q vs %q", joined, resp.Content)
	}
}

func TestDemuxNoDeltaForDoneOnlyResponse(t *testing.T) {
	chunks := make(chan message.StreamChunk, 2)
	chunks <- message.StreamChunk{Type: message.ChunkTypeDone, Response: &message.CompletionResponse{Content: "whole"}}
	close(chunks)

	out := make(chan message.Event, 2)
	resp, contentEmitted, err := demux(chunks, out, "m1")
	if err != nil {
		t.Fatalf("demux error: %v", err)
	}
	if contentEmitted {
		t.Error("a response arriving whole produces no deltas; the caller's Done event carries it")
	}
	if resp.Content != "whole" {
		t.Errorf("expected the done chunk's content, got %q", resp.Content)
	}
	if events := collectEvents(out); len(events) != 0 {
		t.Errorf("expected no events for a done-only stream, got %+v", events)
	}
}

func TestDemuxReasoningFlushesBeforeContent(t *testing.T) {
	chunks := make(chan message.StreamChunk, 8)
	chunks <- message.StreamChunk{Type: message.ChunkTypeThinking, Text: "thinking..."}
	chunks <- message.StreamChunk{Type: message.ChunkTypeText, Text: "answer"}
	chunks <- message.StreamChunk{Type: message.ChunkTypeDone}
	close(chunks)

	out := make(chan message.Event, 8)
	if _, _, err := demux(chunks, out, "m1"); err != nil {
		t.Fatalf("demux error: %v", err)
	}
	events := collectEvents(out)
	if len(events) != 3 {
		t.Fatalf("expected [reasoning delta, reasoning flush, content delta], got %d: %+v", len(events), events)
	}
	if events[0].Kind != message.EventReasoning || events[0].Reasoning.Content != "thinking..." {
		t.Errorf("expected first event to be the reasoning delta, got %+v", events[0])
	}
	if events[0].Reasoning.MessageID != "m1" {
		t.Errorf("expected reasoning deltas to share the turn's message id, got %q", events[0].Reasoning.MessageID)
	}
	if events[1].Kind != message.EventReasoning || !events[1].Reasoning.Done {
		t.Errorf("expected second event to be the reasoning flush (Done=true) before content, got %+v", events[1])
	}
	if events[2].Kind != message.EventAssistant || events[2].Assistant.Content != "answer" {
		t.Errorf("expected the content delta after the reasoning flush, got %+v", events[2])
	}
}

func TestDemuxStreamingToolCallReassembly(t *testing.T) {
	// Arguments arrive split across two chunks and must reassemble into
	// one valid JSON document before the call is dispatched.
	chunks := make(chan message.StreamChunk, 8)
	chunks <- message.StreamChunk{Type: message.ChunkTypeToolStart, ToolIndex: 0, ToolID: "tc1", ToolName: "Read"}
	chunks <- message.StreamChunk{Type: message.ChunkTypeToolInput, ToolIndex: 0, Text: `{"path":"a`}
	chunks <- message.StreamChunk{Type: message.ChunkTypeToolInput, ToolIndex: 0, Text: `.txt"}`}
	chunks <- message.StreamChunk{Type: message.ChunkTypeDone}
	close(chunks)

	out := make(chan message.Event, 8)
	resp, _, err := demux(chunks, out, "m1")
	if err != nil {
		t.Fatalf("demux error: %v", err)
	}
	if len(resp.ToolCalls) != 1 {
		t.Fatalf("expected exactly one reassembled tool call, got %d", len(resp.ToolCalls))
	}
	tc := resp.ToolCalls[0]
	if tc.ID != "tc1" || tc.Function.Name != "Read" {
		t.Errorf("expected tool call id/name to survive reassembly, got %+v", tc)
	}
	want := `{"path":"a.txt"}`
	if tc.Function.Arguments != want {
		t.Errorf("expected reassembled arguments %q, got %q", want, tc.Function.Arguments)
	}
	if resp.StopReason != "tool_use" {
		t.Errorf("expected stop reason 'tool_use' when tool calls are present, got %q", resp.StopReason)
	}
}

func TestDemuxMultipleToolCallsPreserveIndexOrder(t *testing.T) {
	chunks := make(chan message.StreamChunk, 8)
	chunks <- message.StreamChunk{Type: message.ChunkTypeToolStart, ToolIndex: 1, ToolID: "tc-b", ToolName: "Grep"}
	chunks <- message.StreamChunk{Type: message.ChunkTypeToolStart, ToolIndex: 0, ToolID: "tc-a", ToolName: "Read"}
	chunks <- message.StreamChunk{Type: message.ChunkTypeDone}
	close(chunks)

	out := make(chan message.Event, 8)
	resp, _, err := demux(chunks, out, "m1")
	if err != nil {
		t.Fatalf("demux error: %v", err)
	}
	if len(resp.ToolCalls) != 2 {
		t.Fatalf("expected 2 tool calls, got %d", len(resp.ToolCalls))
	}
	// assembleToolCalls preserves first-seen order, not Index-sorted order;
	// the loop's dispatcher is what enforces non-decreasing Index (see
	// dispatch_test.go), not the demuxer.
	if resp.ToolCalls[0].ID != "tc-b" || resp.ToolCalls[1].ID != "tc-a" {
		t.Errorf("expected first-seen order [tc-b, tc-a], got [%s, %s]", resp.ToolCalls[0].ID, resp.ToolCalls[1].ID)
	}
}

func TestDemuxErrorChunkStopsEarly(t *testing.T) {
	chunks := make(chan message.StreamChunk, 8)
	chunks <- message.StreamChunk{Type: message.ChunkTypeText, Text: "partial"}
	chunks <- message.StreamChunk{Type: message.ChunkTypeError, Error: errTest}
	close(chunks)

	out := make(chan message.Event, 8)
	_, _, err := demux(chunks, out, "m1")
	if err != errTest {
		t.Fatalf("expected the error chunk's error to propagate, got %v", err)
	}
}

var errTest = &testErr{"boom"}

type testErr struct{ s string }

func (e *testErr) Error() string { return e.s }
