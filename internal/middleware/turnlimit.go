package middleware

import "fmt"

// TurnLimit stops the session once MaxTurns turns have run. Enabled must be
// set true for the limit to apply — MaxTurns: 0, Enabled: true trips on the
// very first BeforeTurn; a limit left unconfigured (Enabled: false) never
// trips regardless of MaxTurns' value.
type TurnLimit struct {
	Enabled  bool
	MaxTurns int
}

// BeforeTurn injects a standard notice once Turn exceeds MaxTurns.
func (t *TurnLimit) BeforeTurn(ctx *Context) Outcome {
	if !t.Enabled {
		return continueOutcome
	}
	if ctx.Turn > t.MaxTurns {
		return Outcome{
			Action:  InjectMessage,
			Message: fmt.Sprintf("Reached the maximum of %d turns for this conversation. Stopping here.", t.MaxTurns),
		}
	}
	return continueOutcome
}

// AfterTurn never interrupts; the limit is only checked before a turn
// starts so a turn already in flight always completes.
func (t *TurnLimit) AfterTurn(ctx *Context) Outcome { return continueOutcome }

// Reset is a no-op: MaxTurns is a static configuration value, not a
// cumulative counter owned by this middleware (the loop supplies the
// current turn number via Context).
func (t *TurnLimit) Reset() {}
