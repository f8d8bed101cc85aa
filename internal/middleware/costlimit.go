package middleware

import "fmt"

// CostLimit stops the session once the cumulative estimated cost (usage x
// per-token price, computed by the caller and reported via
// Context.CumulativeCostUSD) reaches MaxPriceUSD. MaxPriceUSD: 0 with
// Enabled: true stops before the first backend call.
type CostLimit struct {
	Enabled     bool
	MaxPriceUSD float64
}

// BeforeTurn injects a standard notice once the running cost meets or
// exceeds MaxPriceUSD.
func (c *CostLimit) BeforeTurn(ctx *Context) Outcome {
	if !c.Enabled {
		return continueOutcome
	}
	if ctx.CumulativeCostUSD >= c.MaxPriceUSD {
		return Outcome{
			Action:  InjectMessage,
			Message: fmt.Sprintf("Reached the configured cost limit of $%.2f for this conversation. Stopping here.", c.MaxPriceUSD),
		}
	}
	return continueOutcome
}

func (c *CostLimit) AfterTurn(ctx *Context) Outcome { return continueOutcome }

// Reset is a no-op: the running cost is supplied by the caller via
// Context.CumulativeCostUSD, not tracked by this middleware.
func (c *CostLimit) Reset() {}
