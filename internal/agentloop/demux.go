package agentloop

import (
	"github.com/arjunsethi/agentcore/internal/message"
)

// demux drains a backend's chunk stream, forwarding reasoning and content
// deltas as Events as they arrive and assembling the final
// CompletionResponse. Every emitted event carries msgID, the identity of
// the assistant message the caller will append once the stream ends, so
// all deltas of one turn share one message id. Reasoning is always flushed
// (Done: true) before the first content delta, mirroring the backends' own
// thinking-then-content ordering; this function does not reorder anything,
// it only tags the boundary so callers can render a visual break.
//
// The second return value reports whether any content delta was emitted;
// the caller uses it to decide whether the closing AssistantEvent still
// needs to carry the full content (non-streaming responses arrive as a
// single done chunk with no deltas at all).
func demux(chunks <-chan message.StreamChunk, out chan<- message.Event, msgID string) (message.CompletionResponse, bool, error) {
	var resp message.CompletionResponse
	reasoningOpen := false
	contentEmitted := false
	toolBuf := map[int]*message.ToolCall{}
	toolOrder := []int{}

	flushReasoning := func() {
		if reasoningOpen {
			out <- message.Event{Kind: message.EventReasoning, Reasoning: &message.ReasoningEvent{MessageID: msgID, Done: true}}
			reasoningOpen = false
		}
	}

	for chunk := range chunks {
		switch chunk.Type {
		case message.ChunkTypeThinking:
			reasoningOpen = true
			out <- message.Event{Kind: message.EventReasoning, Reasoning: &message.ReasoningEvent{
				Content:   chunk.Text,
				MessageID: msgID,
			}}

		case message.ChunkTypeText:
			flushReasoning()
			out <- message.Event{Kind: message.EventAssistant, Assistant: &message.AssistantEvent{
				Content:   chunk.Text,
				MessageID: msgID,
			}}
			contentEmitted = true
			resp.Content += chunk.Text

		case message.ChunkTypeToolStart:
			flushReasoning()
			tc, ok := toolBuf[chunk.ToolIndex]
			if !ok {
				tc = &message.ToolCall{Index: chunk.ToolIndex}
				toolBuf[chunk.ToolIndex] = tc
				toolOrder = append(toolOrder, chunk.ToolIndex)
			}
			tc.Merge(message.ToolCall{ID: chunk.ToolID, Function: message.ToolFunction{Name: chunk.ToolName}})

		case message.ChunkTypeToolInput:
			tc, ok := toolBuf[chunk.ToolIndex]
			if !ok {
				tc = &message.ToolCall{Index: chunk.ToolIndex}
				toolBuf[chunk.ToolIndex] = tc
				toolOrder = append(toolOrder, chunk.ToolIndex)
			}
			tc.Merge(message.ToolCall{Function: message.ToolFunction{Arguments: chunk.Text}})

		case message.ChunkTypeDone:
			flushReasoning()
			if chunk.Response != nil {
				return *chunk.Response, contentEmitted, nil
			}
			resp.ToolCalls = assembleToolCalls(toolBuf, toolOrder)
			resp.StopReason = doneStopReason(resp)
			return resp, contentEmitted, nil

		case message.ChunkTypeError:
			return resp, contentEmitted, chunk.Error
		}
	}

	flushReasoning()
	resp.ToolCalls = assembleToolCalls(toolBuf, toolOrder)
	if resp.StopReason == "" {
		resp.StopReason = doneStopReason(resp)
	}
	return resp, contentEmitted, nil
}

func assembleToolCalls(buf map[int]*message.ToolCall, order []int) []message.ToolCall {
	if len(buf) == 0 {
		return nil
	}
	out := make([]message.ToolCall, 0, len(buf))
	for _, idx := range order {
		out = append(out, *buf[idx])
	}
	return out
}

func doneStopReason(resp message.CompletionResponse) string {
	if len(resp.ToolCalls) > 0 {
		return "tool_use"
	}
	return "end_turn"
}
