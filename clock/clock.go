// Package clock provides the time source used for signature timestamps
// and circuit breaker timeouts.
package clock

import (
	"sync"
	"time"
)

// Clock provides the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock uses the system time.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}

// fixedClock always returns the same time, useful for testing.
type fixedClock struct {
	time time.Time
}

func (c fixedClock) Now() time.Time {
	return c.time
}

// FixedClock returns a Clock that always returns the same time.
// This is useful for testing to ensure deterministic timestamps.
func FixedClock(t time.Time) Clock {
	return fixedClock{time: t}
}

// Manual is a Clock that only moves when told to. It is safe for
// concurrent use.
type Manual struct {
	mu  sync.Mutex
	now time.Time
}

// NewManual creates a Manual clock starting at t.
func NewManual(t time.Time) *Manual {
	return &Manual{now: t}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Advance moves the clock forward by d.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	m.now = m.now.Add(d)
	m.mu.Unlock()
}
