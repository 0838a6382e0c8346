package mocks

import (
	"sync"
	"time"

	"github.com/mcoot/mathlan/internal/dependencies/clock"
)

// MockClock is a mock implementation of Clock for testing.
// Timers and tickers created from it fire only when the clock is advanced.
type MockClock struct {
	mu          sync.Mutex
	CurrentTime time.Time
	timers      []*mockTimer
	tickers     []*mockTicker
}

// Ensure MockClock implements Clock
var _ clock.Clock = (*MockClock)(nil)

// NewMockClock creates a MockClock set to the given time
func NewMockClock(t time.Time) *MockClock {
	return &MockClock{CurrentTime: t}
}

// Now returns the mocked current time
func (c *MockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.CurrentTime
}

// Advance moves the clock forward by the given duration, firing any
// timers and tickers that fall due
func (c *MockClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.CurrentTime = c.CurrentTime.Add(d)
	c.fireLocked()
	c.mu.Unlock()
}

// Set sets the clock to the given time
func (c *MockClock) Set(t time.Time) {
	c.mu.Lock()
	c.CurrentTime = t
	c.fireLocked()
	c.mu.Unlock()
}

// NewTimer creates a timer that fires once the clock reaches now+d
func (c *MockClock) NewTimer(d time.Duration) clock.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &mockTimer{
		clock: c,
		at:    c.CurrentTime.Add(d),
		ch:    make(chan time.Time, 1),
	}
	c.timers = append(c.timers, t)
	return t
}

// NewTicker creates a ticker that fires every d of mocked time
func (c *MockClock) NewTicker(d time.Duration) clock.Ticker {
	if d <= 0 {
		panic("mocks: non-positive ticker interval")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &mockTicker{
		clock:    c,
		interval: d,
		next:     c.CurrentTime.Add(d),
		ch:       make(chan time.Time, 1),
	}
	c.tickers = append(c.tickers, t)
	return t
}

// Pending returns the number of live timers and tickers
func (c *MockClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers) + len(c.tickers)
}

func (c *MockClock) fireLocked() {
	now := c.CurrentTime

	remaining := c.timers[:0]
	for _, t := range c.timers {
		if !now.Before(t.at) {
			select {
			case t.ch <- now:
			default:
			}
			continue
		}
		remaining = append(remaining, t)
	}
	c.timers = remaining

	for _, t := range c.tickers {
		if now.Before(t.next) {
			continue
		}
		// Like time.Ticker, a slow reader drops ticks rather than queueing them
		select {
		case t.ch <- now:
		default:
		}
		for !now.Before(t.next) {
			t.next = t.next.Add(t.interval)
		}
	}
}

func (c *MockClock) removeTimer(target *mockTimer) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, t := range c.timers {
		if t == target {
			c.timers = append(c.timers[:i], c.timers[i+1:]...)
			return true
		}
	}
	return false
}

func (c *MockClock) removeTicker(target *mockTicker) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, t := range c.tickers {
		if t == target {
			c.tickers = append(c.tickers[:i], c.tickers[i+1:]...)
			return
		}
	}
}

type mockTimer struct {
	clock *MockClock
	at    time.Time
	ch    chan time.Time
}

func (t *mockTimer) C() <-chan time.Time { return t.ch }
func (t *mockTimer) Stop() bool          { return t.clock.removeTimer(t) }

type mockTicker struct {
	clock    *MockClock
	interval time.Duration
	next     time.Time
	ch       chan time.Time
}

func (t *mockTicker) C() <-chan time.Time { return t.ch }
func (t *mockTicker) Stop()               { t.clock.removeTicker(t) }
