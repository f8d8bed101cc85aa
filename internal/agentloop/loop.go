// Package agentloop implements the core scheduler: the state machine that
// turns a user prompt into a stream of typed events by alternating backend
// completions with tool dispatch, subject to the approval gate and the
// middleware pipeline. It generalizes a single hardcoded provider call into
// the backend abstraction, and streams results as a pull-style event
// channel instead of a single synchronous return value.
package agentloop

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/arjunsethi/agentcore/internal/approval"
	"github.com/arjunsethi/agentcore/internal/backend"
	"github.com/arjunsethi/agentcore/internal/config"
	"github.com/arjunsethi/agentcore/internal/hooks"
	"github.com/arjunsethi/agentcore/internal/log"
	"github.com/arjunsethi/agentcore/internal/mcp"
	"github.com/arjunsethi/agentcore/internal/message"
	"github.com/arjunsethi/agentcore/internal/middleware"
	"github.com/arjunsethi/agentcore/internal/system"
	"github.com/arjunsethi/agentcore/internal/tool"
)

// Stats tracks cumulative, loop-lifetime counters surfaced to middlewares
// and callers: per-session token accounting and a turn counter. Cost is
// not tracked here — it's derived on demand from backend.Client's own
// token accounting plus the active model's pricing (see
// backend.Client.CostUSD), since the client, not the loop, owns the
// authoritative usage totals.
type Stats struct {
	mu                sync.Mutex
	Turn              int
	ContextTokens     int
	ModelContextLimit int
}

func (s *Stats) snapshot() (turn, contextTokens, limit int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Turn, s.ContextTokens, s.ModelContextLimit
}

// Options configures a Loop. Zero values disable the corresponding
// middleware (TurnLimitEnabled/CostLimitEnabled default false, matching
// "no limit configured" rather than "limit of zero").
type Options struct {
	Client   *backend.Client
	Tools    *tool.Set
	Registry *tool.Registry // defaults to tool.DefaultRegistry when nil
	MCP      *mcp.Registry  // optional; nil disables MCP tool dispatch

	System *system.System

	Settings        *config.Settings
	SessionPerms    *config.SessionPermissions
	ApprovalGate    *approval.Gate
	Hooks           *hooks.Engine
	AgentProfile    string // active profile name, e.g. "plan"; "" for default

	TurnLimitEnabled bool
	MaxTurns         int
	CostLimitEnabled bool
	MaxPriceUSD      float64
	AutoCompactFrac  float64 // e.g. 0.9; 0 disables auto-compaction

	Cwd string

	// AgentName labels this loop's dev-trace files; empty for the top-level
	// loop, set to the sub-agent's name for a delegated child loop.
	AgentName string
	// ParentTracker chains this loop's turn numbering under a parent's, for
	// nested sub-agent dev traces. Nil for the top-level loop.
	ParentTracker *log.AgentTurnTracker
}

// Loop owns one conversation's message history and drives it forward one
// user prompt at a time via Act. It is not safe for concurrent use by
// multiple goroutines calling Act simultaneously, but Cancel may be called
// from another goroutine while Act is in flight.
type Loop struct {
	opts     Options
	messages []message.Message
	pipeline *middleware.Pipeline
	stats    *Stats
	tracker  *log.AgentTurnTracker

	cancelled atomic.Bool
}

// New builds a Loop from opts. The middleware pipeline is assembled here,
// in a fixed order: turn limit, cost limit, auto-compact, plan reminder.
func New(opts Options) *Loop {
	if opts.Registry == nil {
		opts.Registry = tool.DefaultRegistry
	}
	stats := &Stats{ModelContextLimit: opts.AutoCompactModelLimit()}

	l := &Loop{
		opts:    opts,
		stats:   stats,
		tracker: log.NewAgentTurnTracker(opts.AgentName, opts.ParentTracker),
	}

	ms := []middleware.Middleware{
		&middleware.TurnLimit{Enabled: opts.TurnLimitEnabled, MaxTurns: opts.MaxTurns},
		&middleware.CostLimit{Enabled: opts.CostLimitEnabled, MaxPriceUSD: opts.MaxPriceUSD},
	}
	if opts.AutoCompactFrac > 0 {
		ms = append(ms, &middleware.AutoCompact{Threshold: opts.AutoCompactFrac})
	}
	ms = append(ms, middleware.NewPlanReminder())
	l.pipeline = middleware.NewPipeline(ms...)

	return l
}

// AutoCompactModelLimit resolves the active model's context window from the
// backend's model metadata, falling back to 0 (no limit known) when the
// client or its provider can't report one.
func (o Options) AutoCompactModelLimit() int {
	if o.Client == nil || o.Client.Provider == nil {
		return 0
	}
	models, err := o.Client.Provider.ListModels(context.Background())
	if err != nil {
		return 0
	}
	for _, m := range models {
		if m.ID == o.Client.ModelID() {
			return m.InputTokenLimit
		}
	}
	return 0
}

// Messages returns a copy of the current conversation history, suitable for
// session persistence.
func (l *Loop) Messages() []message.Message {
	out := make([]message.Message, len(l.messages))
	copy(out, l.messages)
	return out
}

// SetMessages replaces the conversation history, used when resuming a
// persisted session.
func (l *Loop) SetMessages(msgs []message.Message) {
	l.messages = append([]message.Message(nil), msgs...)
}

// Stats exposes the loop's running counters.
func (l *Loop) Stats() *Stats { return l.stats }

// Tracker exposes the loop's turn tracker, so a sub-agent manager can
// chain child loops' dev-trace numbering under this loop's turns.
func (l *Loop) Tracker() *log.AgentTurnTracker { return l.tracker }

// Turn returns the 1-based index of the most recently started turn.
func (l *Loop) Turn() int {
	turn, _, _ := l.stats.snapshot()
	return turn
}

// TokenUsage returns the conversation's cumulative token consumption.
func (l *Loop) TokenUsage() backend.TokenUsage {
	return l.opts.Client.Tokens()
}

// Cancel marks the in-flight (or next) Act call as cancelled. Safe to call
// from another goroutine. A cancelled Act synthesizes <cancelled> tool
// results for every call still pending and ends the turn, leaving the
// message history in a valid, re-sendable state.
func (l *Loop) Cancel() {
	l.cancelled.Store(true)
}

func (l *Loop) resetCancel() {
	l.cancelled.Store(false)
}

func (l *Loop) isCancelled() bool {
	return l.cancelled.Load()
}

// Act runs the loop forward from a new user prompt (or, if prompt is empty,
// appends no user message and issues a fresh backend request over the
// existing history; tool calls left unanswered by a prior Act are not
// dispatched). It returns a
// channel of typed Events; the channel is closed when the turn sequence
// ends, whether by a natural stop, a middleware stop, cancellation, or an
// unrecoverable error (reported as a final ToolResultEvent or AssistantEvent
// as appropriate — Act itself never returns an error, matching the "the
// core never throws, it narrates" design of the event stream).
func (l *Loop) Act(ctx context.Context, prompt string, images []message.ImageData) <-chan message.Event {
	events := make(chan message.Event, 16)

	go func() {
		defer close(events)
		l.run(ctx, prompt, images, events)
	}()

	return events
}

func (l *Loop) run(ctx context.Context, prompt string, images []message.ImageData, out chan<- message.Event) {
	if prompt != "" {
		um := message.UserMessage(prompt, images)
		l.messages = append(l.messages, um)
		out <- message.Event{
			Kind: message.EventUserMessage,
			UserMessage: &message.UserMessageEvent{
				Content:   prompt,
				MessageID: um.MessageID,
			},
		}
	}

	for {
		if l.isCancelled() {
			l.emitCancellation(out)
			return
		}
		if ctx.Err() != nil {
			return
		}

		turn := l.tracker.NextTurn()
		l.stats.mu.Lock()
		l.stats.Turn = turn
		l.stats.mu.Unlock()

		mwCtx := l.middlewareContext(ctx, turn, out)
		if outcome := l.pipeline.BeforeTurn(mwCtx); outcome.Action != middleware.Continue {
			// InjectMessage emits the synthetic assistant notice and ends
			// the turn without a backend call; Stop ends it silently.
			l.handleMiddlewareOutcome(outcome, out)
			return
		}

		resp, msgID, contentEmitted, err := l.requestTurn(ctx, out)
		if err != nil {
			if l.handleBackendError(ctx, err, out) {
				continue // compaction retry succeeded once, retry this turn
			}
			return
		}

		l.messages = append(l.messages, message.Message{
			MessageID: msgID,
			Role:      message.RoleAssistant,
			Content:   resp.Content,
			Thinking:  resp.Thinking,
			ToolCalls: resp.ToolCalls,
		})
		l.opts.Client.AddUsage(resp.Usage)
		l.stats.mu.Lock()
		l.stats.ContextTokens = resp.Usage.InputTokens + resp.Usage.OutputTokens
		l.stats.mu.Unlock()

		// Close the delta stream for this assistant message. When the
		// backend streamed content deltas they already carried the text,
		// so the Done event adds only the stop reason; a response that
		// arrived whole (no deltas) is delivered here in full.
		finalContent := ""
		if !contentEmitted {
			finalContent = resp.Content
		}
		out <- message.Event{
			Kind: message.EventAssistant,
			Assistant: &message.AssistantEvent{
				Content:    finalContent,
				MessageID:  msgID,
				StopReason: resp.StopReason,
				Done:       true,
			},
		}

		if len(resp.ToolCalls) == 0 {
			// Natural end of turn: no tool dispatch. Post-turn middleware
			// runs here and may append one final injected notice.
			if afterOutcome := l.pipeline.AfterTurn(mwCtx); afterOutcome.Action != middleware.Continue {
				l.handleMiddlewareOutcome(afterOutcome, out)
			}
			return
		}

		l.dispatchToolCalls(ctx, resp.ToolCalls, out)
		if l.isCancelled() {
			// Dispatch stopped issuing calls mid-list; answer whatever is
			// still pending so the history stays re-sendable.
			l.emitCancellation(out)
			return
		}
		// loop continues: the freshly appended tool-result messages feed
		// the next backend request.
	}
}

func (l *Loop) middlewareContext(ctx context.Context, turn int, out chan<- message.Event) *middleware.Context {
	_, contextTokens, limit := l.stats.snapshot()
	return &middleware.Context{
		Turn:              turn,
		AgentProfile:      l.opts.AgentProfile,
		ContextTokens:     contextTokens,
		ModelContextLimit: limit,
		CumulativeCostUSD: l.opts.Client.CostUSD(ctx),
		Compact: func() (int, int, error) {
			return l.compactWithEvents(ctx, "", out)
		},
	}
}

func (l *Loop) handleMiddlewareOutcome(outcome middleware.Outcome, out chan<- message.Event) {
	if outcome.Action != middleware.InjectMessage {
		return
	}
	msg := message.AssistantMessage(outcome.Message, "", nil)
	l.messages = append(l.messages, msg)
	out <- message.Event{
		Kind: message.EventAssistant,
		Assistant: &message.AssistantEvent{
			Content:             outcome.Message,
			MessageID:           msg.MessageID,
			StopReason:          "end_turn",
			Done:                true,
			StoppedByMiddleware: true,
		},
	}
}

// requestTurn runs one backend Stream call to completion, demuxing chunks
// into per-delta Reasoning/Assistant events as they arrive and returning
// the assembled CompletionResponse. The returned msgID is the identity
// every delta was tagged with; the caller must append the assembled
// assistant message under the same id so deltas and history line up.
func (l *Loop) requestTurn(ctx context.Context, out chan<- message.Event) (resp message.CompletionResponse, msgID string, contentEmitted bool, err error) {
	tools := l.opts.Tools.Tools()
	sysPrompt := ""
	if l.opts.System != nil {
		sysPrompt = l.opts.System.Prompt()
	}

	// The provider's request/response logging picks the tracker up from
	// the context, so nested sub-agent traces file under this loop's turn
	// prefix.
	ctx = log.WithAgentTracker(ctx, l.tracker)

	msgID = message.NewMessageID()
	chunks := l.opts.Client.Stream(ctx, l.messages, tools, sysPrompt)
	resp, contentEmitted, err = demux(chunks, out, msgID)
	return resp, msgID, contentEmitted, err
}

// handleBackendError reports a non-retryable backend failure as a terminal
// assistant event, or, for an oversized-context failure, runs one
// compaction pass and signals the caller to retry the same turn. Returns
// true when the caller should retry.
func (l *Loop) handleBackendError(ctx context.Context, err error, out chan<- message.Event) bool {
	if be, ok := backend.AsBackendError(err); ok && be.OversizedContext {
		if _, _, cerr := l.compactWithEvents(ctx, "", out); cerr == nil {
			return true
		}
	}
	out <- message.Event{
		Kind: message.EventAssistant,
		Assistant: &message.AssistantEvent{
			StopReason: fmt.Sprintf("error: %v", err),
			Done:       true,
		},
	}
	return false
}

func (l *Loop) emitCancellation(out chan<- message.Event) {
	// Walk back past any tool replies already appended to find the
	// assistant message whose calls may still be pending.
	last := len(l.messages) - 1
	for last >= 0 && l.messages[last].Role == message.RoleTool {
		last--
	}
	if last < 0 || l.messages[last].Role != message.RoleAssistant {
		return
	}
	for _, tc := range l.messages[last].ToolCalls {
		if l.hasToolResult(tc.ID) {
			continue
		}
		l.messages = append(l.messages, message.ToolMessage(tc.ID, tc.Function.Name, "<cancelled>User cancelled</cancelled>", true))
		out <- message.Event{
			Kind: message.EventToolResult,
			ToolResult: &message.ToolResultEvent{
				ToolName:   tc.Function.Name,
				ToolCallID: tc.ID,
				Skipped:    true,
				SkipReason: "cancelled",
				Result:     "<cancelled>User cancelled</cancelled>",
			},
		}
	}
}

func (l *Loop) hasToolResult(toolCallID string) bool {
	for _, m := range l.messages {
		if m.Role == message.RoleTool && m.ToolCallID == toolCallID {
			return true
		}
	}
	return false
}
