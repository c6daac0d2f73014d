package analytics

import (
	"context"
	"fmt"
	"sync"
	"time"

	"shanyrakkit/core"
	"shanyrakkit/engine"
)

// Hook receives ledger events for KPI aggregation.
type Hook interface {
	OnEvent(e core.Event)
}

// LedgerMetrics aggregates house activity across the event stream.
type LedgerMetrics struct {
	mu sync.RWMutex

	eventsByType map[core.EventType]int64

	// Points metrics
	pointsAwardedByDay  map[string]int64
	pointsAwardedByWeek map[string]int64
	pointsByShanyrak    map[core.ShanyrakID]int64
	awardsByShanyrak    map[core.ShanyrakID]int64

	// Membership metrics
	memberJoinsByDay  map[string]int64
	memberLeavesByDay map[string]int64

	// Milestone metrics
	milestonesByShanyrak map[core.ShanyrakID]int64

	// Houses active per day (any event counts as activity)
	activeByDay map[string]map[core.ShanyrakID]struct{}
}

func NewLedgerMetrics() *LedgerMetrics {
	return &LedgerMetrics{
		eventsByType:         make(map[core.EventType]int64),
		pointsAwardedByDay:   make(map[string]int64),
		pointsAwardedByWeek:  make(map[string]int64),
		pointsByShanyrak:     make(map[core.ShanyrakID]int64),
		awardsByShanyrak:     make(map[core.ShanyrakID]int64),
		memberJoinsByDay:     make(map[string]int64),
		memberLeavesByDay:    make(map[string]int64),
		milestonesByShanyrak: make(map[core.ShanyrakID]int64),
		activeByDay:          make(map[string]map[core.ShanyrakID]struct{}),
	}
}

func (lm *LedgerMetrics) OnEvent(e core.Event) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	day := e.Time.UTC().Format("2006-01-02")
	week := getWeekKey(e.Time)

	lm.eventsByType[e.Type]++
	if e.ShanyrakID != "" {
		if lm.activeByDay[day] == nil {
			lm.activeByDay[day] = make(map[core.ShanyrakID]struct{})
		}
		lm.activeByDay[day][e.ShanyrakID] = struct{}{}
	}

	switch e.Type {
	case core.EventPointsAwarded:
		if e.Delta > 0 {
			lm.pointsAwardedByDay[day] += e.Delta
			lm.pointsAwardedByWeek[week] += e.Delta
			lm.pointsByShanyrak[e.ShanyrakID] += e.Delta
			lm.awardsByShanyrak[e.ShanyrakID]++
		}
	case core.EventMembersChanged:
		if e.Delta > 0 {
			lm.memberJoinsByDay[day] += e.Delta
		} else {
			lm.memberLeavesByDay[day] += -e.Delta
		}
	case core.EventMilestoneReached:
		lm.milestonesByShanyrak[e.ShanyrakID]++
	}
}

// Attach subscribes the metrics hook to every event the service emits.
// It returns an unsubscribe function.
func (lm *LedgerMetrics) Attach(svc *engine.ShanyrakService) func() {
	types := []core.EventType{
		core.EventShanyrakCreated,
		core.EventPointsAwarded,
		core.EventMembersChanged,
		core.EventMilestoneReached,
		core.EventLeaderboardRecalculated,
	}
	unsubs := make([]func(), 0, len(types))
	for _, typ := range types {
		unsubs = append(unsubs, svc.Subscribe(typ, func(_ context.Context, e core.Event) {
			lm.OnEvent(e)
		}))
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

// EventCount returns how many events of the given type were observed.
func (lm *LedgerMetrics) EventCount(typ core.EventType) int64 {
	lm.mu.RLock()
	defer lm.mu.RUnlock()
	return lm.eventsByType[typ]
}

// PointsAwardedByDay returns total points awarded on a specific day (UTC, "2006-01-02").
func (lm *LedgerMetrics) PointsAwardedByDay(day string) int64 {
	lm.mu.RLock()
	defer lm.mu.RUnlock()
	return lm.pointsAwardedByDay[day]
}

// PointsAwardedByWeek returns total points awarded in an ISO week ("2006-W02").
func (lm *LedgerMetrics) PointsAwardedByWeek(week string) int64 {
	lm.mu.RLock()
	defer lm.mu.RUnlock()
	return lm.pointsAwardedByWeek[week]
}

// PointsFor returns the cumulative points observed for a house.
func (lm *LedgerMetrics) PointsFor(id core.ShanyrakID) int64 {
	lm.mu.RLock()
	defer lm.mu.RUnlock()
	return lm.pointsByShanyrak[id]
}

// AwardsFor returns how many individual awards a house has received.
func (lm *LedgerMetrics) AwardsFor(id core.ShanyrakID) int64 {
	lm.mu.RLock()
	defer lm.mu.RUnlock()
	return lm.awardsByShanyrak[id]
}

// MilestonesFor returns how many milestones a house has crossed.
func (lm *LedgerMetrics) MilestonesFor(id core.ShanyrakID) int64 {
	lm.mu.RLock()
	defer lm.mu.RUnlock()
	return lm.milestonesByShanyrak[id]
}

// MemberFlowByDay returns the joins and leaves recorded on a specific day.
func (lm *LedgerMetrics) MemberFlowByDay(day string) (joins, leaves int64) {
	lm.mu.RLock()
	defer lm.mu.RUnlock()
	return lm.memberJoinsByDay[day], lm.memberLeavesByDay[day]
}

// ActiveHouses returns the count of distinct houses with activity on a day.
func (lm *LedgerMetrics) ActiveHouses(day string) int {
	lm.mu.RLock()
	defer lm.mu.RUnlock()
	return len(lm.activeByDay[day])
}

func getWeekKey(t time.Time) string {
	tt := t.UTC()
	year, week := tt.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}
