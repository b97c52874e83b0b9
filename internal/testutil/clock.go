package testutil

import (
	"sync"
	"time"
)

// ManualClock provides a thread-safe, manually advanced time source for tests.
//
// Guard windows, cooldowns and document timestamps all depend on wall-clock
// time. Tests drive a ManualClock instead of time.Now so that window and
// cooldown boundaries land exactly where the test puts them, and so that
// saved documents and golden traces carry byte-identical timestamps across
// runs.
//
// Pass the method value clock.Now wherever a func() time.Time is expected.
//
// Thread-safety: all methods are safe for concurrent use via internal mutex.
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

// Epoch is the conventional starting instant for deterministic tests and
// golden files.
var Epoch = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

// NewManualClock creates a clock frozen at start.
//
// If start is the zero time, the clock starts at Epoch.
func NewManualClock(start time.Time) *ManualClock {
	if start.IsZero() {
		start = Epoch
	}
	return &ManualClock{now: start}
}

// Now returns the clock's current instant without advancing it.
func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d and returns the new instant.
func (c *ManualClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

// Set jumps the clock to t.
//
// Used when a scenario specifies absolute instants rather than deltas.
func (c *ManualClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}
