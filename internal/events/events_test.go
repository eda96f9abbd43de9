package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type collector struct {
	mu     sync.Mutex
	events []Event
}

func (c *collector) add(ev Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
}

func (c *collector) snapshot() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Event(nil), c.events...)
}

func TestBus_DeliversInEmitOrder(t *testing.T) {
	bus := NewBus()
	var got collector
	bus.On(EventGift, got.add)

	for i := int64(1); i <= 5; i++ {
		bus.Emit(Event{Name: EventGift, RoomID: i})
	}
	assert.Equal(t, 5, bus.Len())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- bus.Run(ctx) }()

	require.Eventually(t, func() bool { return len(got.snapshot()) == 5 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)

	for i, ev := range got.snapshot() {
		assert.Equal(t, int64(i+1), ev.RoomID)
	}
	assert.Equal(t, 0, bus.Len())
}

func TestBus_ConcurrentEmitNoLoss(t *testing.T) {
	bus := NewBus()
	var got collector
	bus.On(EventGift, got.add)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go bus.Run(ctx)

	const producers, perProducer = 8, 200
	var wg sync.WaitGroup
	for p := range producers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range perProducer {
				bus.Emit(Event{Name: EventGift, RoomID: int64(p*perProducer + i)})
			}
		}()
	}
	wg.Wait()

	require.Eventually(t, func() bool {
		return len(got.snapshot()) == producers*perProducer
	}, 5*time.Second, 5*time.Millisecond)

	seen := make(map[int64]bool)
	for _, ev := range got.snapshot() {
		assert.False(t, seen[ev.RoomID], "duplicate room %d", ev.RoomID)
		seen[ev.RoomID] = true
	}
}

func TestBus_RoutesByName(t *testing.T) {
	bus := NewBus()
	var gifts, other collector
	bus.On(EventGift, gifts.add)
	bus.On("other", other.add)

	bus.Emit(Event{Name: EventGift, RoomID: 1})
	bus.Emit(Event{Name: "other", RoomID: 2})
	bus.Emit(Event{Name: "unsubscribed", RoomID: 3})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	bus.Run(ctx) // drains before returning

	assert.Equal(t, []Event{{Name: EventGift, RoomID: 1}}, gifts.snapshot())
	assert.Equal(t, []Event{{Name: "other", RoomID: 2}}, other.snapshot())
}

func TestSinkFunc(t *testing.T) {
	var got Event
	var s Sink = SinkFunc(func(ev Event) { got = ev })
	s.Emit(Event{Name: EventGift, RoomID: 9})
	assert.Equal(t, Event{Name: EventGift, RoomID: 9}, got)
}
