// Package events carries core state changes to whoever is presenting them:
// a UI, the CLI, or an SSE stream.
package events

import (
	"log/slog"
	"sync"

	"github.com/mcoot/mathlan/internal/dependencies/clock"
	"github.com/mcoot/mathlan/internal/model"
)

// DefaultBufferSize is the per-subscriber event buffer
const DefaultBufferSize = 256

// Publisher is the write side of a Bus
type Publisher interface {
	Publish(eventType model.EventType, payload any)
}

// Bus fans events out to subscribers. Publish never blocks: a subscriber
// whose buffer is full misses the event.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[*Subscription]bool
	closed      bool
	clock       clock.Clock
	logger      *slog.Logger
}

var _ Publisher = (*Bus)(nil)

// NewBus creates an empty Bus
func NewBus(clk clock.Clock, logger *slog.Logger) *Bus {
	return &Bus{
		subscribers: make(map[*Subscription]bool),
		clock:       clk,
		logger:      logger.With(slog.String("component", "events")),
	}
}

// Subscription receives events published after it was created
type Subscription struct {
	bus  *Bus
	ch   chan model.Event
	once sync.Once
}

// C returns the event channel. It is closed when the subscription or bus closes.
func (s *Subscription) C() <-chan model.Event {
	return s.ch
}

// Close detaches the subscription from the bus
func (s *Subscription) Close() {
	s.bus.unsubscribe(s)
}

// Subscribe registers a new subscriber with the given buffer size
func (b *Bus) Subscribe(buffer int) *Subscription {
	if buffer <= 0 {
		buffer = DefaultBufferSize
	}
	sub := &Subscription{
		bus: b,
		ch:  make(chan model.Event, buffer),
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		sub.once.Do(func() { close(sub.ch) })
		return sub
	}
	b.subscribers[sub] = true
	b.logger.Debug("event subscriber registered", slog.Int("total_subscribers", len(b.subscribers)))
	return sub
}

func (b *Bus) unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subscribers[sub]; ok {
		delete(b.subscribers, sub)
		sub.once.Do(func() { close(sub.ch) })
		b.logger.Debug("event subscriber unregistered", slog.Int("total_subscribers", len(b.subscribers)))
	}
}

// Publish stamps and delivers an event to every subscriber
func (b *Bus) Publish(eventType model.EventType, payload any) {
	event := model.Event{
		Type:      eventType,
		Timestamp: b.clock.Now(),
		Payload:   payload,
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	dropped := 0
	for sub := range b.subscribers {
		select {
		case sub.ch <- event:
		default:
			dropped++
		}
	}
	if dropped > 0 {
		b.logger.Warn("event dropped - subscriber buffer full",
			slog.String("event", string(eventType)),
			slog.Int("dropped", dropped))
	}
}

// SubscriberCount returns the number of live subscriptions
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Close closes every subscription; later publishes are discarded
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for sub := range b.subscribers {
		sub.once.Do(func() { close(sub.ch) })
		delete(b.subscribers, sub)
	}
}
