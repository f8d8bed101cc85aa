package agentloop

import (
	"context"
	"crypto/rand"
	"encoding/hex"

	"github.com/arjunsethi/agentcore/internal/message"
	"github.com/arjunsethi/agentcore/internal/system"
)

// compactKeepRecentTurns is the number of trailing user/assistant/tool
// messages always kept uncompacted, so the model retains immediate
// context even right after a summary replaces everything older.
const compactKeepRecentTurns = 6

// compactSummaryMaxTokens bounds the utility call that produces the
// replacement summary message.
const compactSummaryMaxTokens = 1024

// compact replaces the conversation's older history with a single
// assistant-role summary message, preserving a leading system message (if
// any) and the last compactKeepRecentTurns messages verbatim. focus, if
// non-empty, is appended to the summarization prompt to bias the summary
// toward a specific topic (an explicit "/compact <focus>" command).
func (l *Loop) compact(ctx context.Context, focus string) (oldTokens, newTokens int, err error) {
	_, oldTokens, _ = l.stats.snapshot()

	if len(l.messages) <= compactKeepRecentTurns {
		return oldTokens, oldTokens, nil
	}

	var leadingSystem *message.Message
	start := 0
	if l.messages[0].Role == message.RoleSystem {
		m := l.messages[0]
		leadingSystem = &m
		start = 1
	}

	cut := len(l.messages) - compactKeepRecentTurns
	if cut <= start {
		return oldTokens, oldTokens, nil
	}
	toSummarize := l.messages[start:cut]
	recent := l.messages[cut:]

	prompt := message.BuildConversationText(toSummarize)
	if focus != "" {
		prompt += "\n\nFocus the summary on: " + focus
	}

	resp, cerr := l.opts.Client.CompleteUtility(ctx, system.CompactPrompt(),
		[]message.Message{message.UserMessage(prompt, nil)}, compactSummaryMaxTokens)
	if cerr != nil {
		return oldTokens, oldTokens, cerr
	}

	summary := message.AssistantMessage("Summary of the conversation so far:\n\n"+resp.Content, "", nil)

	rebuilt := make([]message.Message, 0, len(recent)+2)
	if leadingSystem != nil {
		rebuilt = append(rebuilt, *leadingSystem)
	}
	rebuilt = append(rebuilt, summary)
	rebuilt = append(rebuilt, recent...)
	l.messages = rebuilt

	newTokens = resp.Usage.InputTokens + resp.Usage.OutputTokens
	l.stats.mu.Lock()
	l.stats.ContextTokens = newTokens
	l.stats.mu.Unlock()

	return oldTokens, newTokens, nil
}

// compactWithEvents runs compact and brackets it with CompactStart/CompactEnd
// events on out, so every compaction path — the explicit "/compact" command,
// the auto-compact middleware, and the oversized-context backend-error retry
// — reports the same telemetry. out may be nil, in which case no events are
// emitted (compact still runs).
func (l *Loop) compactWithEvents(ctx context.Context, focus string, out chan<- message.Event) (oldTokens, newTokens int, err error) {
	if out == nil {
		return l.compact(ctx, focus)
	}

	id := newCompactID()
	before := len(l.messages)

	out <- message.Event{
		Kind: message.EventCompactStart,
		CompactStart: &message.CompactStartEvent{
			ToolCallID:   id,
			MessageCount: before,
			Focus:        focus,
		},
	}

	oldTokens, newTokens, err = l.compact(ctx, focus)

	replacedCount := before - len(l.messages)
	if replacedCount < 0 {
		replacedCount = 0
	}
	errStr := ""
	if err != nil {
		errStr = err.Error()
	}
	summary := ""
	if err == nil && len(l.messages) > 0 {
		summary = l.messages[0].Content
		if l.messages[0].Role == message.RoleSystem && len(l.messages) > 1 {
			summary = l.messages[1].Content
		}
	}
	out <- message.Event{
		Kind: message.EventCompactEnd,
		CompactEnd: &message.CompactEndEvent{
			ToolCallID:       id,
			Summary:          summary,
			ReplacedCount:    replacedCount,
			OldContextTokens: oldTokens,
			NewContextTokens: newTokens,
			Error:            errStr,
		},
	}

	return oldTokens, newTokens, err
}

// CompactNow runs an explicit, user-requested compaction pass (the
// "/compact" command), emitting CompactStart/CompactEnd events around it.
func (l *Loop) CompactNow(ctx context.Context, focus string) <-chan message.Event {
	events := make(chan message.Event, 4)
	go func() {
		defer close(events)
		_, _, _ = l.compactWithEvents(ctx, focus, events)
	}()
	return events
}

func newCompactID() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return "compact-" + hex.EncodeToString(b)
}
