package engine

import (
	"context"

	"shanyrakkit/core"
)

// ShanyrakService wires storage, event bus, and rules into a cohesive API.
// It holds no state of its own; every operation reads current values from
// storage, so there is no staleness across requests.
type ShanyrakService struct {
	storage Storage
	bus     *EventBus
	rules   RuleEngine
}

func NewShanyrakService(storage Storage, bus *EventBus, rules RuleEngine) *ShanyrakService {
	if storage == nil || bus == nil || rules == nil {
		panic("NewShanyrakService requires non-nil storage, bus, and rules")
	}
	return &ShanyrakService{storage: storage, bus: bus, rules: rules}
}

// DefaultRuleEngine fires a milestone event each time a house crosses a
// hundred-point boundary.
func DefaultRuleEngine() RuleEngine {
	return &simpleRuleEngine{rules: []core.Rule{core.MilestoneRule{Step: 100}}}
}

// Subscribe convenience method.
func (s *ShanyrakService) Subscribe(typ core.EventType, handler func(context.Context, core.Event)) func() {
	return s.bus.Subscribe(typ, handler)
}

func (s *ShanyrakService) Publish(ctx context.Context, ev core.Event) {
	s.bus.Publish(ctx, ev)
}

// ListAll returns every shanyrak in insertion order.
func (s *ShanyrakService) ListAll(ctx context.Context) ([]core.Shanyrak, error) {
	return s.storage.List(ctx)
}

// Leaderboard returns all shanyraks ordered by points descending; equal
// totals keep their creation order. Pure read, no ranking state is written.
func (s *ShanyrakService) Leaderboard(ctx context.Context) ([]core.Shanyrak, error) {
	return s.storage.ListByPoints(ctx)
}

func (s *ShanyrakService) Get(ctx context.Context, id core.ShanyrakID) (core.Shanyrak, error) {
	if err := core.ValidateID(id); err != nil {
		return core.Shanyrak{}, err
	}
	return s.storage.Get(ctx, id)
}

// Create validates and trims name and color, then inserts a new shanyrak
// with zero points and members. Caller-supplied totals are never accepted.
func (s *ShanyrakService) Create(ctx context.Context, name, color string) (core.Shanyrak, error) {
	name, err := core.NormalizeName(name)
	if err != nil {
		return core.Shanyrak{}, err
	}
	color, err = core.NormalizeColor(color)
	if err != nil {
		return core.Shanyrak{}, err
	}
	created, err := s.storage.Insert(ctx, name, color)
	if err != nil {
		return core.Shanyrak{}, err
	}
	s.bus.Publish(ctx, core.NewShanyrakCreated(created))
	return created, nil
}

// AddPoints awards a strictly positive number of points. The ledger only
// moves upward through this operation, keeping totals auditable.
func (s *ShanyrakService) AddPoints(ctx context.Context, id core.ShanyrakID, points int64) (core.Shanyrak, error) {
	if err := core.ValidateID(id); err != nil {
		return core.Shanyrak{}, err
	}
	if points <= 0 {
		return core.Shanyrak{}, core.Invalidf("points must be greater than 0, got %d", points)
	}
	updated, err := s.storage.AddPoints(ctx, id, points)
	if err != nil {
		return core.Shanyrak{}, err
	}
	ev := core.NewPointsAwarded(updated.ID, points, updated.Points)
	s.bus.Publish(ctx, ev)
	for _, d := range s.rules.Evaluate(ctx, updated, ev) {
		s.bus.Publish(ctx, d)
	}
	return updated, nil
}

// UpdateMembers applies a signed membership delta. A delta that would drive
// the count below zero is rejected whole; the store stays unchanged.
func (s *ShanyrakService) UpdateMembers(ctx context.Context, id core.ShanyrakID, delta int64) (core.Shanyrak, error) {
	if err := core.ValidateID(id); err != nil {
		return core.Shanyrak{}, err
	}
	updated, err := s.storage.AdjustMembers(ctx, id, delta)
	if err != nil {
		return core.Shanyrak{}, err
	}
	s.bus.Publish(ctx, core.NewMembersChanged(updated.ID, delta, updated.Members))
	return updated, nil
}

// RecalculateLeaderboard re-derives the ranked ordering. Rank is not
// persisted per row, so this rebuilds derived indexes where the store keeps
// one and is otherwise a consistency pass; readable state never changes and
// repeated calls are no-ops.
func (s *ShanyrakService) RecalculateLeaderboard(ctx context.Context) error {
	ranked, err := s.storage.ListByPoints(ctx)
	if err != nil {
		return err
	}
	if rb, ok := s.storage.(RankRebuilder); ok {
		if err := rb.RebuildRanks(ctx); err != nil {
			return err
		}
	}
	s.bus.Publish(ctx, core.NewLeaderboardRecalculated(len(ranked)))
	return nil
}

func (s *ShanyrakService) Close() { s.bus.Close() }

type simpleRuleEngine struct{ rules []core.Rule }

func (s *simpleRuleEngine) Evaluate(ctx context.Context, state core.Shanyrak, trigger core.Event) []core.Event {
	var out []core.Event
	for _, r := range s.rules {
		out = append(out, r.Evaluate(ctx, state, trigger)...)
	}
	return out
}
