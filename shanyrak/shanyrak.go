package shanyrak

import (
	"context"

	"shanyrakkit/adapters/memory"
	"shanyrakkit/core"
	"shanyrakkit/engine"
	"shanyrakkit/realtime"
)

// Option configures the service builder.
type Option func(*config)

type config struct {
	storage engine.Storage
	mode    engine.DispatchMode
	rules   engine.RuleEngine
	hub     *realtime.Hub
}

// WithStorage sets the persistence adapter.
func WithStorage(s engine.Storage) Option { return func(c *config) { c.storage = s } }

// WithRuleEngine sets the rule engine.
func WithRuleEngine(r engine.RuleEngine) Option { return func(c *config) { c.rules = r } }

// WithDispatchMode selects sync or async event dispatch.
func WithDispatchMode(m engine.DispatchMode) Option { return func(c *config) { c.mode = m } }

// WithRealtime wires a realtime hub to receive all ledger events.
func WithRealtime(h *realtime.Hub) Option { return func(c *config) { c.hub = h } }

// New builds a configured ShanyrakService. If not provided, defaults are used:
//   - storage: in-memory
//   - rules: DefaultRuleEngine
//   - dispatch: async
func New(opts ...Option) *engine.ShanyrakService {
	cfg := &config{mode: engine.DispatchAsync, rules: engine.DefaultRuleEngine()}
	for _, o := range opts {
		o(cfg)
	}
	if cfg.storage == nil {
		cfg.storage = memory.New()
	}
	bus := engine.NewEventBus(cfg.mode)
	svc := engine.NewShanyrakService(cfg.storage, bus, cfg.rules)
	if cfg.hub != nil {
		// Bridge all primary events to realtime
		bridge := func(ctx context.Context, e core.Event) { cfg.hub.Broadcast(ctx, e) }
		bus.Subscribe(core.EventShanyrakCreated, bridge)
		bus.Subscribe(core.EventPointsAwarded, bridge)
		bus.Subscribe(core.EventMembersChanged, bridge)
		bus.Subscribe(core.EventMilestoneReached, bridge)
		bus.Subscribe(core.EventLeaderboardRecalculated, bridge)
	}
	return svc
}
