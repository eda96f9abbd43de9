// Package events carries monitor output to whoever consumes it.
//
// Monitors only see the Sink interface. Bus is the in-process
// implementation: any number of connections may Emit concurrently, nothing
// is dropped, and subscribers see events in the order they were emitted.
package events

import (
	"context"
	"sync"

	"github.com/eapache/queue"
)

// EventGift signals a giveaway opportunity in RoomID.
const EventGift = "gift"

// Event is one emitted notification.
type Event struct {
	Name   string
	RoomID int64
	Text   string // human-readable notice text, if any
}

// Sink receives events. Implementations must be safe for concurrent use.
type Sink interface {
	Emit(ev Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Event)

func (f SinkFunc) Emit(ev Event) { f(ev) }

// Bus is a fan-in pub/sub sink. Emit never blocks on subscribers: events
// wait in an unbounded queue until Run delivers them.
type Bus struct {
	mu       sync.Mutex
	pending  *queue.Queue
	handlers map[string][]func(Event)
	notify   chan struct{}
}

// NewBus creates an empty bus. Call Run to start delivery.
func NewBus() *Bus {
	return &Bus{
		pending:  queue.New(),
		handlers: make(map[string][]func(Event)),
		notify:   make(chan struct{}, 1),
	}
}

// On subscribes fn to events named name. Handlers run on the Run goroutine.
func (b *Bus) On(name string, fn func(Event)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[name] = append(b.handlers[name], fn)
}

// Emit queues ev for delivery.
func (b *Bus) Emit(ev Event) {
	b.mu.Lock()
	b.pending.Add(ev)
	b.mu.Unlock()

	select {
	case b.notify <- struct{}{}:
	default:
	}
}

// Len returns the number of queued, undelivered events.
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pending.Length()
}

// Run delivers queued events until ctx is done. Events still queued when
// ctx ends are delivered before Run returns.
func (b *Bus) Run(ctx context.Context) error {
	for {
		b.deliver()
		select {
		case <-b.notify:
		case <-ctx.Done():
			b.deliver()
			return ctx.Err()
		}
	}
}

// deliver drains the queue, calling handlers without holding the lock.
func (b *Bus) deliver() {
	for {
		b.mu.Lock()
		if b.pending.Length() == 0 {
			b.mu.Unlock()
			return
		}
		ev := b.pending.Remove().(Event)
		hs := b.handlers[ev.Name]
		b.mu.Unlock()

		for _, fn := range hs {
			fn(ev)
		}
	}
}
