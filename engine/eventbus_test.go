package engine

import (
	"context"
	"testing"
	"time"

	"shanyrakkit/core"
)

func TestEventBusSync(t *testing.T) {
	bus := NewEventBus(DispatchSync)
	count := 0
	bus.Subscribe(core.EventPointsAwarded, func(ctx context.Context, e core.Event) { count++ })
	bus.Publish(context.Background(), core.NewPointsAwarded("s1", 1, 1))
	if count != 1 {
		t.Fatalf("want 1 got %d", count)
	}
}

func TestEventBusAsync(t *testing.T) {
	bus := NewEventBus(DispatchAsync)
	defer bus.Close()
	ch := make(chan struct{})
	bus.Subscribe(core.EventPointsAwarded, func(ctx context.Context, e core.Event) { close(ch) })
	bus.Publish(context.Background(), core.NewPointsAwarded("s1", 1, 1))
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("timeout")
	}
}

func TestEventBusUnsubscribe(t *testing.T) {
	bus := NewEventBus(DispatchSync)
	count := 0
	unsub := bus.Subscribe(core.EventMembersChanged, func(ctx context.Context, e core.Event) { count++ })
	bus.Publish(context.Background(), core.NewMembersChanged("s1", 1, 1))
	unsub()
	bus.Publish(context.Background(), core.NewMembersChanged("s1", 1, 2))
	if count != 1 {
		t.Fatalf("want 1 got %d", count)
	}
}
