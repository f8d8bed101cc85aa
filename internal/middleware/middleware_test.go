package middleware

import "testing"

func TestTurnLimitDisabledNeverTrips(t *testing.T) {
	tl := &TurnLimit{Enabled: false, MaxTurns: 1}
	out := tl.BeforeTurn(&Context{Turn: 100})
	if out.Action != Continue {
		t.Errorf("expected Continue when disabled, got %v", out.Action)
	}
}

func TestTurnLimitZeroTripsImmediately(t *testing.T) {
	// max_turns=0 injects the notice on the very first BeforeTurn.
	tl := &TurnLimit{Enabled: true, MaxTurns: 0}
	out := tl.BeforeTurn(&Context{Turn: 1})
	if out.Action != InjectMessage {
		t.Fatalf("expected InjectMessage on the first turn with max_turns=0, got %v", out.Action)
	}
	if out.Message == "" {
		t.Error("expected a non-empty notice message")
	}
}

func TestTurnLimitAllowsUpToMax(t *testing.T) {
	tl := &TurnLimit{Enabled: true, MaxTurns: 3}
	for turn := 1; turn <= 3; turn++ {
		if out := tl.BeforeTurn(&Context{Turn: turn}); out.Action != Continue {
			t.Fatalf("expected turn %d to continue, got %v", turn, out.Action)
		}
	}
	if out := tl.BeforeTurn(&Context{Turn: 4}); out.Action != InjectMessage {
		t.Errorf("expected turn 4 to trip the limit, got %v", out.Action)
	}
}

func TestCostLimitZeroStopsBeforeFirstCall(t *testing.T) {
	cl := &CostLimit{Enabled: true, MaxPriceUSD: 0}
	out := cl.BeforeTurn(&Context{CumulativeCostUSD: 0})
	if out.Action != InjectMessage {
		t.Fatalf("expected max_price=0 to inject a notice immediately, got %v", out.Action)
	}
}

func TestCostLimitDisabledIgnoresCost(t *testing.T) {
	cl := &CostLimit{Enabled: false, MaxPriceUSD: 1}
	out := cl.BeforeTurn(&Context{CumulativeCostUSD: 1000})
	if out.Action != Continue {
		t.Errorf("expected Continue when disabled regardless of cost, got %v", out.Action)
	}
}

func TestAutoCompactTriggersAtThreshold(t *testing.T) {
	var compacted bool
	ac := &AutoCompact{Threshold: 0.9}
	ctx := &Context{
		ContextTokens:     90,
		ModelContextLimit: 100,
		Compact: func() (int, int, error) {
			compacted = true
			return 90, 10, nil
		},
	}
	out := ac.BeforeTurn(ctx)
	if out.Action != Continue {
		t.Errorf("auto-compact never ends the turn itself, expected Continue, got %v", out.Action)
	}
	if !compacted {
		t.Error("expected Compact to run once occupancy reaches the threshold")
	}
}

func TestAutoCompactSkipsBelowThreshold(t *testing.T) {
	var compacted bool
	ac := &AutoCompact{Threshold: 0.9}
	ctx := &Context{
		ContextTokens:     10,
		ModelContextLimit: 100,
		Compact: func() (int, int, error) {
			compacted = true
			return 0, 0, nil
		},
	}
	ac.BeforeTurn(ctx)
	if compacted {
		t.Error("expected Compact not to run below the threshold")
	}
}

func TestAutoCompactNoopWithoutModelLimit(t *testing.T) {
	ac := &AutoCompact{Threshold: 0.1}
	out := ac.BeforeTurn(&Context{ContextTokens: 1000, ModelContextLimit: 0})
	if out.Action != Continue {
		t.Errorf("expected Continue when the model context limit is unknown, got %v", out.Action)
	}
}

func TestPlanReminderFiresOnceThenLetsTurnsThrough(t *testing.T) {
	pr := NewPlanReminder()
	out := pr.BeforeTurn(&Context{AgentProfile: "plan"})
	if out.Action != InjectMessage {
		t.Fatalf("expected the first plan-profile turn to inject the reminder, got %v", out.Action)
	}

	out = pr.BeforeTurn(&Context{AgentProfile: "plan"})
	if out.Action != Continue {
		t.Errorf("expected later plan-profile turns to proceed normally, got %v", out.Action)
	}
}

func TestPlanReminderIgnoresOtherProfiles(t *testing.T) {
	pr := NewPlanReminder()
	out := pr.BeforeTurn(&Context{AgentProfile: "explore"})
	if out.Action != Continue {
		t.Errorf("expected a non-plan profile to never trigger the reminder, got %v", out.Action)
	}
}

func TestPlanReminderResetRearmsTheLatch(t *testing.T) {
	pr := NewPlanReminder()
	pr.BeforeTurn(&Context{AgentProfile: "plan"})
	pr.Reset()
	out := pr.BeforeTurn(&Context{AgentProfile: "plan"})
	if out.Action != InjectMessage {
		t.Errorf("expected Reset to rearm the once-per-session latch, got %v", out.Action)
	}
}

func TestPipelineShortCircuitsOnFirstNonContinue(t *testing.T) {
	tl := &TurnLimit{Enabled: true, MaxTurns: 0}
	cl := &CostLimit{Enabled: true, MaxPriceUSD: 0}
	p := NewPipeline(tl, cl)

	out := p.BeforeTurn(&Context{Turn: 1})
	if out.Action != InjectMessage {
		t.Fatalf("expected the pipeline to stop at the first tripped middleware, got %v", out.Action)
	}
	// TurnLimit's message, not CostLimit's, should have been returned.
	if want := tl.BeforeTurn(&Context{Turn: 1}).Message; out.Message != want {
		t.Errorf("expected TurnLimit's message %q, got %q", want, out.Message)
	}
}

func TestPipelineRunsAllWhenAllContinue(t *testing.T) {
	p := NewPipeline(
		&TurnLimit{Enabled: true, MaxTurns: 10},
		&CostLimit{Enabled: true, MaxPriceUSD: 10},
	)
	out := p.BeforeTurn(&Context{Turn: 1, CumulativeCostUSD: 0})
	if out.Action != Continue {
		t.Errorf("expected Continue when nothing trips, got %v", out.Action)
	}
}

func TestPipelineResetIsIdempotent(t *testing.T) {
	pr := NewPlanReminder()
	p := NewPipeline(pr)
	p.BeforeTurn(&Context{AgentProfile: "plan"})
	p.Reset()
	p.Reset() // Reset is idempotent
	out := p.BeforeTurn(&Context{AgentProfile: "plan"})
	if out.Action != InjectMessage {
		t.Error("expected the reminder to be rearmed after a (double) reset")
	}
}
