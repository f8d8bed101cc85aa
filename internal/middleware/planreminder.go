package middleware

// planReminderText is the standard system-style reminder surfaced when the
// active agent profile is "plan": the model is expected to investigate and
// propose a plan without making any edits, until the user approves it via
// the exit_plan_mode tool.
const planReminderText = `You are in plan mode. Investigate the codebase and the user's request, ` +
	`then present a plan using the exit_plan_mode tool before making any edits. ` +
	`Do not call any tool that modifies files or runs commands with side effects while in this mode.`

// PlanReminder surfaces the plan-mode rules as a synthetic assistant
// message the first time a "plan"-profile loop runs a turn: treated as
// ending that one turn with a visible reminder rather than silently
// prepending a system note. It fires once per loop lifetime, not once per
// turn — the reminder is a session-opening notice, not a standing
// substitute for letting the model actually investigate and propose a
// plan on every subsequent turn.
type PlanReminder struct {
	// ProfileName is the agent-profile name that triggers the reminder.
	ProfileName string

	injected bool
}

// NewPlanReminder returns a PlanReminder watching the standard "plan"
// profile name.
func NewPlanReminder() *PlanReminder {
	return &PlanReminder{ProfileName: "plan"}
}

// BeforeTurn injects the reminder once, the first time the active profile
// matches ProfileName; every later turn (and every other profile)
// continues unaffected so the model can actually do the investigation the
// reminder asked for.
func (p *PlanReminder) BeforeTurn(ctx *Context) Outcome {
	if ctx.AgentProfile != p.ProfileName || p.injected {
		return continueOutcome
	}
	p.injected = true
	return Outcome{Action: InjectMessage, Message: planReminderText}
}

func (p *PlanReminder) AfterTurn(ctx *Context) Outcome { return continueOutcome }

// Reset clears the once-per-session latch, so a reused Loop (e.g. a
// sub-agent pooling middleware instances, were that ever done) shows the
// reminder again on its next conversation.
func (p *PlanReminder) Reset() { p.injected = false }
