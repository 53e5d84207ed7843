// Package domaintest provides test doubles for the domain package.
package domaintest

import (
	"sync"
	"time"

	"github.com/aelexs/marketplace-countdown/internal/domain"
)

// FakeClock is a deterministic, advanceable clock for tests.
// Tickers created from it fire only when Advance or Set moves time past
// their next due instant. Like time.Ticker, a ticker whose channel is full
// drops the tick.
type FakeClock struct {
	mu      sync.Mutex
	current time.Time
	tickers []*FakeTicker
}

// NewFakeClock creates a FakeClock set to the given time.
func NewFakeClock(t time.Time) *FakeClock {
	return &FakeClock{current: t}
}

// Now returns the fake clock's current time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// NewTicker registers a ticker that fires every d of fake time.
func (c *FakeClock) NewTicker(d time.Duration) domain.Ticker {
	if d <= 0 {
		panic("domaintest: non-positive interval for NewTicker")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &FakeTicker{
		clock:    c,
		interval: d,
		next:     c.current.Add(d),
		ch:       make(chan time.Time, 1),
	}
	c.tickers = append(c.tickers, t)
	return t
}

// Advance moves the fake clock forward by the given duration and fires any
// ticker that became due.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
	c.fireLocked()
}

// Set changes the fake clock to a specific time.
func (c *FakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = t
	c.fireLocked()
}

// ActiveTickers returns the number of tickers that have not been stopped.
func (c *FakeClock) ActiveTickers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tickers)
}

func (c *FakeClock) fireLocked() {
	for _, t := range c.tickers {
		if c.current.Before(t.next) {
			continue
		}
		select {
		case t.ch <- c.current:
		default:
		}
		for !c.current.Before(t.next) {
			t.next = t.next.Add(t.interval)
		}
	}
}

func (c *FakeClock) remove(t *FakeTicker) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, other := range c.tickers {
		if other == t {
			c.tickers = append(c.tickers[:i], c.tickers[i+1:]...)
			return
		}
	}
}

// FakeTicker is the Ticker handed out by FakeClock.
type FakeTicker struct {
	clock    *FakeClock
	interval time.Duration
	next     time.Time
	ch       chan time.Time
}

// C returns the tick channel.
func (t *FakeTicker) C() <-chan time.Time { return t.ch }

// Stop unregisters the ticker. No further ticks are delivered.
func (t *FakeTicker) Stop() { t.clock.remove(t) }

// Ensure FakeClock implements domain.Clock at compile time.
var _ domain.Clock = (*FakeClock)(nil)
