package core

import "time"

// EventType enumerates domain events.
type EventType string

const (
	EventShanyrakCreated         EventType = "shanyrak_created"
	EventPointsAwarded           EventType = "points_awarded"
	EventMembersChanged          EventType = "members_changed"
	EventMilestoneReached        EventType = "milestone_reached"
	EventLeaderboardRecalculated EventType = "leaderboard_recalculated"
)

// Event represents an immutable domain event.
type Event struct {
	Type       EventType      `json:"type"`
	Time       time.Time      `json:"time"`
	ShanyrakID ShanyrakID     `json:"shanyrak_id,omitempty"`
	Name       string         `json:"name,omitempty"`
	Delta      int64          `json:"delta,omitempty"`
	Points     int64          `json:"points,omitempty"`
	Members    int64          `json:"members,omitempty"`
	Milestone  int64          `json:"milestone,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

func NewShanyrakCreated(s Shanyrak) Event {
	return Event{Type: EventShanyrakCreated, Time: time.Now().UTC(), ShanyrakID: s.ID, Name: s.Name}
}

func NewPointsAwarded(id ShanyrakID, delta int64, total int64) Event {
	return Event{Type: EventPointsAwarded, Time: time.Now().UTC(), ShanyrakID: id, Delta: delta, Points: total}
}

func NewMembersChanged(id ShanyrakID, delta int64, members int64) Event {
	return Event{Type: EventMembersChanged, Time: time.Now().UTC(), ShanyrakID: id, Delta: delta, Members: members}
}

func NewMilestoneReached(id ShanyrakID, milestone int64, total int64) Event {
	return Event{Type: EventMilestoneReached, Time: time.Now().UTC(), ShanyrakID: id, Milestone: milestone, Points: total}
}

func NewLeaderboardRecalculated(size int) Event {
	return Event{Type: EventLeaderboardRecalculated, Time: time.Now().UTC(), Metadata: map[string]any{"size": size}}
}
