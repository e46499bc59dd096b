// Package testutil has fakes shared by package tests.
package testutil

import (
	"sort"
	"sync"
	"time"

	"github.com/LavaJover/shvark-escrow-service/internal/domain"
)

// Clock is a manual clock. Its AfterFunc timers fire, in due order, when Advance or Set
// moves time past them.
type Clock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*timer
	seq    int
}

type timer struct {
	clock   *Clock
	due     time.Time
	seq     int
	fn      func()
	stopped bool
}

func NewClock(now time.Time) *Clock {
	return &Clock{now: now}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.Set(c.Now().Add(d))
}

// Set moves the clock to t and synchronously runs every timer that became due.
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	var due []*timer
	rest := c.timers[:0]
	for _, tm := range c.timers {
		if !tm.stopped && !tm.due.After(t) {
			due = append(due, tm)
		} else if !tm.stopped {
			rest = append(rest, tm)
		}
	}
	c.timers = rest
	c.mu.Unlock()

	sort.Slice(due, func(i, j int) bool {
		if due[i].due.Equal(due[j].due) {
			return due[i].seq < due[j].seq
		}
		return due[i].due.Before(due[j].due)
	})
	for _, tm := range due {
		tm.fn()
	}
}

// AfterFunc matches the shape of time.AfterFunc.
func (c *Clock) AfterFunc(d time.Duration, fn func()) domain.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	tm := &timer{clock: c, due: c.now.Add(d), seq: c.seq, fn: fn}
	c.timers = append(c.timers, tm)
	return tm
}

// Pending is the number of timers not yet fired or stopped.
func (c *Clock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, tm := range c.timers {
		if !tm.stopped {
			n++
		}
	}
	return n
}

func (t *timer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.stopped {
		return false
	}
	for _, tm := range t.clock.timers {
		if tm == t {
			t.stopped = true
			return true
		}
	}
	return false
}
