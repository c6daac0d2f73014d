package engine

import (
	"context"

	"shanyrakkit/core"
)

// Storage abstracts persistence for shanyrak ledger state.
//
// AddPoints and AdjustMembers must be executed as atomic adjustments inside
// the store (increment expression, Lua script, per-record lock), never as an
// application-level read-modify-write, so concurrent callers cannot lose
// updates against the same id.
type Storage interface {
	// Insert creates a row with points=0, members=0 and a fresh id.
	// Returns a conflict error when name already exists.
	Insert(ctx context.Context, name, color string) (core.Shanyrak, error)
	// Get returns the shanyrak for id or a not-found error.
	Get(ctx context.Context, id core.ShanyrakID) (core.Shanyrak, error)
	// List returns all shanyraks in insertion order.
	List(ctx context.Context) ([]core.Shanyrak, error)
	// ListByPoints returns all shanyraks ordered by points descending,
	// ties broken by creation sequence ascending.
	ListByPoints(ctx context.Context) ([]core.Shanyrak, error)
	// AddPoints atomically adds delta to the points total.
	AddPoints(ctx context.Context, id core.ShanyrakID, delta int64) (core.Shanyrak, error)
	// AdjustMembers atomically applies a signed delta to the member count.
	// The adjustment is rejected with a validation error, leaving the store
	// unchanged, when the count would go negative.
	AdjustMembers(ctx context.Context, id core.ShanyrakID, delta int64) (core.Shanyrak, error)
}

// RankRebuilder is an optional Storage capability: stores keeping a derived
// ordering index (e.g. the in-memory skip list) rebuild it from row state.
// Rebuilding must be idempotent and never change readable row state.
type RankRebuilder interface {
	RebuildRanks(ctx context.Context) error
}

// RuleEngine evaluates rules and emits derived events.
type RuleEngine interface {
	Evaluate(ctx context.Context, state core.Shanyrak, trigger core.Event) []core.Event
}
