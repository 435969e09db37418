// Package timeutil provides a testable abstraction over wall-clock time and
// a phase stopwatch for batch runs.
package timeutil

import (
	"sync"
	"time"
)

// Clock provides an abstraction over time operations for testability.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// Since returns the duration since t.
	Since(t time.Time) time.Duration
}

// RealClock implements Clock using the standard time package.
type RealClock struct{}

// Now returns the current time.
func (RealClock) Now() time.Time { return time.Now() }

// Since returns the duration since t.
func (RealClock) Since(t time.Time) time.Duration { return time.Since(t) }

// MockClock is a Clock whose time only moves when told to.
type MockClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewMockClock creates a new MockClock set to the given time.
func NewMockClock(t time.Time) *MockClock {
	return &MockClock{now: t}
}

// Now returns the mocked current time.
func (c *MockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set sets the mock clock to a specific time.
func (c *MockClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// Advance moves the mock clock forward by d.
func (c *MockClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Since returns the duration since t.
func (c *MockClock) Since(t time.Time) time.Duration {
	return c.Now().Sub(t)
}

// Phase is one timed section of a run.
type Phase struct {
	Name     string
	Duration time.Duration
}

// Stopwatch records consecutive named phases. Starting a phase ends the
// previous one.
type Stopwatch struct {
	clock   Clock
	started time.Time
	current string
	since   time.Time
	phases  []Phase
}

// NewStopwatch starts a stopwatch on clock. A nil clock uses RealClock.
func NewStopwatch(clock Clock) *Stopwatch {
	if clock == nil {
		clock = RealClock{}
	}
	now := clock.Now()
	return &Stopwatch{clock: clock, started: now}
}

// Start closes the running phase, if any, and opens a new one.
func (s *Stopwatch) Start(name string) {
	s.close()
	s.current = name
	s.since = s.clock.Now()
}

// Stop closes the running phase and returns every recorded phase.
func (s *Stopwatch) Stop() []Phase {
	s.close()
	out := make([]Phase, len(s.phases))
	copy(out, s.phases)
	return out
}

// Total is the time elapsed since the stopwatch was created.
func (s *Stopwatch) Total() time.Duration {
	return s.clock.Since(s.started)
}

// StartedAt is when the stopwatch was created.
func (s *Stopwatch) StartedAt() time.Time { return s.started }

func (s *Stopwatch) close() {
	if s.current == "" {
		return
	}
	s.phases = append(s.phases, Phase{Name: s.current, Duration: s.clock.Since(s.since)})
	s.current = ""
}
