// Package middleware implements the agent loop's pre/post-turn hook chain:
// turn-count limiting, cost limiting, context-window
// auto-compaction, and the plan-agent system reminder. Each middleware can
// let the turn continue, inject a synthetic assistant message that ends the
// turn, or stop the session outright.
package middleware

// Action is the outcome a middleware's hook requests of the pipeline.
type Action int

const (
	// Continue lets the turn proceed to the next middleware, or to the
	// backend call if this was the last one.
	Continue Action = iota
	// InjectMessage ends the turn immediately: the loop synthesizes an
	// assistant message from Outcome.Message and emits it with
	// StoppedByMiddleware set, without calling the backend.
	InjectMessage
	// Stop ends the whole session immediately, emitting no further events.
	Stop
)

// Outcome is returned by BeforeTurn/AfterTurn.
type Outcome struct {
	Action  Action
	Message string
}

var continueOutcome = Outcome{Action: Continue}

// Context carries the per-turn state a middleware needs to decide. It is
// rebuilt by the agent loop before every before/after hook; middlewares
// must not retain a Context across calls.
type Context struct {
	// Turn is the 1-based index of the turn about to run (BeforeTurn) or
	// that just ran (AfterTurn).
	Turn int
	// AgentProfile is the active profile's name (e.g. "plan", "explore").
	AgentProfile string
	// ContextTokens is the token occupancy of the context window after
	// the most recent backend response (agentloop.Stats.ContextTokens).
	ContextTokens int
	// ModelContextLimit is the active model's context window size.
	ModelContextLimit int
	// CumulativeCostUSD is the session's running cost estimate.
	CumulativeCostUSD float64
	// Compact runs context compaction and reports the context-token size
	// before and after. Only AutoCompact calls it; it is nil for
	// middlewares that don't need it. Wired as a closure (not a struct
	// reference) per the core's no-cyclic-ownership design.
	Compact func() (oldTokens, newTokens int, err error)
}

// Middleware is one pre/post-turn hook. Reset clears any cumulative
// per-session counters the middleware keeps (turn-limit and cost-limit are
// cumulative over the whole session, not per-turn).
type Middleware interface {
	BeforeTurn(ctx *Context) Outcome
	AfterTurn(ctx *Context) Outcome
	Reset()
}

// Pipeline runs a fixed, ordered list of middlewares, short-circuiting on
// the first non-Continue outcome.
type Pipeline struct {
	middlewares []Middleware
}

// NewPipeline builds a pipeline that runs ms in registration order.
func NewPipeline(ms ...Middleware) *Pipeline {
	return &Pipeline{middlewares: ms}
}

// BeforeTurn runs every middleware's BeforeTurn hook in order, stopping at
// the first one that doesn't return Continue.
func (p *Pipeline) BeforeTurn(ctx *Context) Outcome {
	for _, m := range p.middlewares {
		if out := m.BeforeTurn(ctx); out.Action != Continue {
			return out
		}
	}
	return continueOutcome
}

// AfterTurn runs every middleware's AfterTurn hook in order, stopping at the
// first one that doesn't return Continue.
func (p *Pipeline) AfterTurn(ctx *Context) Outcome {
	for _, m := range p.middlewares {
		if out := m.AfterTurn(ctx); out.Action != Continue {
			return out
		}
	}
	return continueOutcome
}

// Reset clears every middleware's per-session counters. Idempotent.
func (p *Pipeline) Reset() {
	for _, m := range p.middlewares {
		m.Reset()
	}
}
