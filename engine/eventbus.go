package engine

import (
	"context"
	"sync"

	"shanyrakkit/core"
)

type DispatchMode int

const (
	DispatchSync DispatchMode = iota
	DispatchAsync
)

const (
	asyncQueueSize = 2048
	asyncWorkers   = 4
)

type handlerEntry struct {
	token int64
	fn    func(context.Context, core.Event)
}

// EventBus fans ledger events out to registered handlers. In sync mode the
// publisher runs handlers inline; in async mode a small worker pool drains a
// bounded queue and full queues drop events rather than block the ledger.
type EventBus struct {
	mode DispatchMode

	mu        sync.RWMutex
	handlers  map[core.EventType][]handlerEntry
	nextToken int64

	queue chan core.Event
	quit  chan struct{}
	wg    sync.WaitGroup
	once  sync.Once
}

func NewEventBus(mode DispatchMode) *EventBus {
	b := &EventBus{
		mode:     mode,
		handlers: make(map[core.EventType][]handlerEntry),
		queue:    make(chan core.Event, asyncQueueSize),
		quit:     make(chan struct{}),
	}
	if mode == DispatchAsync {
		b.wg.Add(asyncWorkers)
		for i := 0; i < asyncWorkers; i++ {
			go b.worker()
		}
	}
	return b
}

func (b *EventBus) worker() {
	defer b.wg.Done()
	for {
		select {
		case ev := <-b.queue:
			b.deliver(context.Background(), ev)
		case <-b.quit:
			return
		}
	}
}

// Close stops the async workers and waits for them to exit.
func (b *EventBus) Close() {
	b.once.Do(func() {
		close(b.quit)
	})
	b.wg.Wait()
}

// Subscribe registers a handler for an event type and returns its
// unsubscribe function.
func (b *EventBus) Subscribe(typ core.EventType, handler func(context.Context, core.Event)) func() {
	b.mu.Lock()
	b.nextToken++
	token := b.nextToken
	b.handlers[typ] = append(b.handlers[typ], handlerEntry{token: token, fn: handler})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		entries := b.handlers[typ]
		for i, e := range entries {
			if e.token == token {
				b.handlers[typ] = append(entries[:i:i], entries[i+1:]...)
				return
			}
		}
	}
}

// Publish sends an event to subscribers of its type.
func (b *EventBus) Publish(ctx context.Context, ev core.Event) {
	if b.mode == DispatchAsync {
		select {
		case b.queue <- ev:
		default:
			// queue full; dropping keeps award latency bounded
		}
		return
	}
	b.deliver(ctx, ev)
}

func (b *EventBus) deliver(ctx context.Context, ev core.Event) {
	b.mu.RLock()
	entries := b.handlers[ev.Type]
	fns := make([]func(context.Context, core.Event), len(entries))
	for i, e := range entries {
		fns[i] = e.fn
	}
	b.mu.RUnlock()

	for _, fn := range fns {
		fn(ctx, ev)
	}
}
