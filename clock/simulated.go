package clock

import (
	"sync"
	"time"
)

// SimulatedClock provides control over the exact time and the amount to
// advance by. It is used by tests across packages.
type SimulatedClock struct {
	mux *sync.Mutex
	t   time.Time
}

func NewSimulatedClock(start time.Time) *SimulatedClock {
	return &SimulatedClock{mux: &sync.Mutex{}, t: start}
}

func (c *SimulatedClock) Now() time.Time {
	c.mux.Lock()
	defer c.mux.Unlock()
	return c.t
}

func (c *SimulatedClock) Advance(d time.Duration) {
	c.mux.Lock()
	c.t = c.t.Add(d)
	c.mux.Unlock()
}

// Set moves the clock to t, which may be earlier than the current time.
func (c *SimulatedClock) Set(t time.Time) {
	c.mux.Lock()
	c.t = t
	c.mux.Unlock()
}
