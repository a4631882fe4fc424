package testutil

import (
	"fmt"
	"sync"
	"time"
)

// Epoch is where FixedClock starts. The catalog keeps dates in milliseconds,
// so it has no sub-millisecond part and round-trips through SQLite unchanged.
var Epoch = time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

// StubClock is a hand-driven usbb.Clock. Safe for concurrent use, since the
// scheduler reads it from worker goroutines.
type StubClock struct {
	mu  sync.Mutex
	now time.Time
}

// FixedClock returns a StubClock stopped at Epoch.
func FixedClock() *StubClock {
	return &StubClock{now: Epoch}
}

func (c *StubClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d, e.g. between two scans whose dates
// must differ.
func (c *StubClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// StubIDGenerator hands out device ids in the same 32 hex digit form as
// uuid.New without dashes, counting up from 1.
type StubIDGenerator struct {
	mu   sync.Mutex
	next uint64
}

func NewStubIDGenerator() *StubIDGenerator {
	return &StubIDGenerator{}
}

func (g *StubIDGenerator) New() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.next++
	return fmt.Sprintf("%032x", g.next)
}
