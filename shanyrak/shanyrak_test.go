package shanyrak

import (
	"context"
	"testing"

	mem "shanyrakkit/adapters/memory"
	"shanyrakkit/core"
	"shanyrakkit/engine"
	"shanyrakkit/realtime"
)

func TestNewDefaultsAndOptions(t *testing.T) {
	hub := realtime.NewHub()
	svc := New(
		WithRealtime(hub),
		WithStorage(mem.New()),
		WithDispatchMode(engine.DispatchSync),
	)

	// basic operation
	row, err := svc.Create(context.Background(), "Red", "#F00")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// realtime bridge should receive subsequent events
	_, ch := hub.Subscribe(1)
	if _, err := svc.AddPoints(context.Background(), row.ID, 5); err != nil {
		t.Fatalf("add points: %v", err)
	}
	ev := <-ch
	if ev.ShanyrakID != row.ID || ev.Type != core.EventPointsAwarded {
		t.Fatalf("unexpected event: %+v", ev)
	}
}

func TestNewMemoryFallback(t *testing.T) {
	svc := New(WithDispatchMode(engine.DispatchSync))
	row, err := svc.Create(context.Background(), "Blue", "#00F")
	if err != nil {
		t.Fatalf("fallback create: %v", err)
	}
	got, err := svc.Get(context.Background(), row.ID)
	if err != nil || got.Name != "Blue" {
		t.Fatalf("fallback get: %+v %v", got, err)
	}
}
