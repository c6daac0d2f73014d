package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	if KindOf(Invalidf("bad")) != KindInvalid {
		t.Fatal("expected invalid kind")
	}
	if KindOf(NotFoundf("missing")) != KindNotFound {
		t.Fatal("expected not_found kind")
	}
	if KindOf(Conflictf("dup")) != KindConflict {
		t.Fatal("expected conflict kind")
	}
	if KindOf(errors.New("driver exploded")) != KindInternal {
		t.Fatal("unclassified errors must map to internal")
	}
}

func TestKindSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("create shanyrak: %w", Conflictf("name taken"))
	if !IsConflict(err) {
		t.Fatalf("wrapped conflict not detected: %v", err)
	}
}

func TestInternalPreservesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Internal("store unavailable", cause)
	if !errors.Is(err, cause) {
		t.Fatal("cause should be unwrappable")
	}
}

func TestMilestoneRule(t *testing.T) {
	rule := MilestoneRule{Step: 100}
	s := Shanyrak{ID: "s1", Points: 250}
	events := rule.Evaluate(nil, s, NewPointsAwarded("s1", 180, 250))
	if len(events) != 2 {
		t.Fatalf("expected milestones at 100 and 200, got %d events", len(events))
	}
	if events[0].Milestone != 100 || events[1].Milestone != 200 {
		t.Fatalf("unexpected milestones: %v %v", events[0].Milestone, events[1].Milestone)
	}
	if got := rule.Evaluate(nil, s, NewMembersChanged("s1", 1, 3)); got != nil {
		t.Fatal("non-points events should not trigger milestones")
	}
}
