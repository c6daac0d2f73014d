package core

import "context"

// Rule determines whether given state and trigger event should emit derived events.
type Rule interface {
	Evaluate(ctx context.Context, state Shanyrak, trigger Event) []Event
}

// MilestoneRule emits a milestone event each time a points award crosses a
// multiple of Step (e.g. Step=100 fires at 100, 200, ...).
type MilestoneRule struct{ Step int64 }

func (r MilestoneRule) Evaluate(_ context.Context, state Shanyrak, trigger Event) []Event {
	if trigger.Type != EventPointsAwarded || r.Step <= 0 {
		return nil
	}
	before := state.Points - trigger.Delta
	if before < 0 {
		before = 0
	}
	var out []Event
	for m := (before/r.Step + 1) * r.Step; m <= state.Points; m += r.Step {
		out = append(out, NewMilestoneReached(state.ID, m, state.Points))
	}
	return out
}
