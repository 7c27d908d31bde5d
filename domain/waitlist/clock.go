package waitlist

import (
	"sync"
	"time"
)

// Clock supplies updated_at values.
type Clock interface {
	Now() time.Time
}

// monotonicClock never returns a value at or before the previous one, even if
// the wall clock steps backwards. Values are UTC at microsecond resolution, the
// precision postgres keeps for timestamptz.
type monotonicClock struct {
	mu   sync.Mutex
	last time.Time
	now  func() time.Time
}

func NewMonotonicClock() Clock {
	return &monotonicClock{now: time.Now}
}

func (c *monotonicClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := c.now().UTC().Truncate(time.Microsecond)
	if !t.After(c.last) {
		t = c.last.Add(time.Microsecond)
	}
	c.last = t

	return t
}
