// Package clock provides the frame clock: monotonic elapsed time and the delta of the last tick.
package clock

import (
	"sync"
	"time"
)

// Clock measures elapsed time from its first tick. It never rewinds: a time source reading earlier
// than the previous tick yields a zero delta and leaves the elapsed time where it was.
type Clock struct {
	mu     *sync.Mutex
	source func() time.Time

	started bool
	start   time.Time
	last    time.Duration

	elapsed float32
	delta   float32
	ticks   uint64
}

// NewClock creates a Clock reading the wall clock's monotonic time unless WithSource overrides it.
//
// Parameters:
//   - options: functional options to configure the clock
//
// Returns:
//   - *Clock: the clock, not yet started
func NewClock(options ...ClockBuilderOption) *Clock {
	c := &Clock{
		mu:     &sync.Mutex{},
		source: time.Now,
	}
	for _, option := range options {
		option(c)
	}
	return c
}

// Tick advances the clock to the source's current time. The first tick starts the clock and
// reports zero elapsed time and zero delta.
//
// Returns:
//   - elapsed: seconds since the first tick
//   - delta: seconds since the previous tick
func (c *Clock) Tick() (elapsed, delta float32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.source()
	c.ticks++
	if !c.started {
		c.started = true
		c.start = now
		c.last = 0
		c.elapsed, c.delta = 0, 0
		return 0, 0
	}

	since := now.Sub(c.start)
	if since <= c.last {
		c.delta = 0
		return c.elapsed, 0
	}
	c.delta = float32((since - c.last).Seconds())
	c.last = since
	c.elapsed = float32(since.Seconds())
	return c.elapsed, c.delta
}

// Elapsed returns the elapsed time of the last tick in seconds.
func (c *Clock) Elapsed() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.elapsed
}

// Delta returns the delta of the last tick in seconds.
func (c *Clock) Delta() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.delta
}

// Ticks returns how many times Tick was called.
func (c *Clock) Ticks() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ticks
}
