// Copyright 2026 The Muster Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"sort"
	"sync"
	"time"
)

// Fake returns a FakeClock frozen at the given time. Time moves only
// when Advance is called. Safe for concurrent use.
func Fake(initial time.Time) *FakeClock {
	fake := &FakeClock{current: initial}
	fake.changed = sync.NewCond(&fake.mu)
	return fake
}

// FakeClock is a deterministic Clock for tests. Sleeps, After waits,
// and tickers register waiters that fire when Advance moves the clock
// past their deadline, in deadline order.
type FakeClock struct {
	mu      sync.Mutex
	current time.Time
	waiters []*waiter
	changed *sync.Cond
}

type waiter struct {
	deadline time.Time
	channel  chan time.Time

	// interval is non-zero for ticker waiters; after firing, the
	// waiter reschedules at deadline + interval.
	interval time.Duration

	stopped bool
	fired   bool
}

// Now returns the current fake time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// After returns a channel that receives once the clock is advanced
// past duration d from now. If d <= 0 the channel receives immediately.
func (c *FakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	channel := make(chan time.Time, 1)
	if d <= 0 {
		channel <- c.current
		return channel
	}
	c.waiters = append(c.waiters, &waiter{deadline: c.current.Add(d), channel: channel})
	c.changed.Broadcast()
	return channel
}

// NewTicker returns a ticker that fires every d as the clock advances.
// A single Advance spanning several intervals fires once per interval.
func (c *FakeClock) NewTicker(d time.Duration) *Ticker {
	if d <= 0 {
		panic("clock: non-positive ticker interval")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	w := &waiter{
		deadline: c.current.Add(d),
		channel:  make(chan time.Time, 1),
		interval: d,
	}
	c.waiters = append(c.waiters, w)
	c.changed.Broadcast()

	return &Ticker{
		C: w.channel,
		stop: func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			w.stopped = true
		},
	}
}

// Sleep blocks until the clock is advanced past duration d. Returns
// immediately if d <= 0.
func (c *FakeClock) Sleep(d time.Duration) {
	<-c.After(d)
}

// Advance moves the fake time forward by d, firing every waiter whose
// deadline falls within the window, in deadline order. Ticker waiters
// fire once per elapsed interval.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	target := c.current.Add(d)
	for {
		next := c.nextDeadlineLocked(target)
		if next == nil {
			break
		}
		c.current = next.deadline
		c.fireLocked(next)
	}
	c.current = target
}

// WaitForWaiters blocks until at least n waiters (sleeps, After waits,
// or tickers) are registered. Use this to synchronize with a goroutine
// that registers its timer after the test calls Advance — the classic
// race that makes sleep-based tests flaky.
func (c *FakeClock) WaitForWaiters(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.activeWaitersLocked() < n {
		c.changed.Wait()
	}
}

// nextDeadlineLocked returns the unfired waiter with the earliest
// deadline at or before target, preferring earlier registrations on
// equal deadlines for determinism. Returns nil when none qualify.
func (c *FakeClock) nextDeadlineLocked(target time.Time) *waiter {
	candidates := make([]*waiter, 0, len(c.waiters))
	for _, w := range c.waiters {
		if !w.stopped && !w.fired && !w.deadline.After(target) {
			candidates = append(candidates, w)
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].deadline.Before(candidates[j].deadline)
	})
	return candidates[0]
}

// fireLocked delivers to a waiter and either retires it (one-shot) or
// reschedules it (ticker). Ticker sends are non-blocking: a full
// channel drops the tick, matching the real Ticker's capacity-1
// behavior.
func (c *FakeClock) fireLocked(w *waiter) {
	select {
	case w.channel <- c.current:
	default:
	}
	if w.interval > 0 {
		w.deadline = w.deadline.Add(w.interval)
	} else {
		w.fired = true
	}
}

func (c *FakeClock) activeWaitersLocked() int {
	count := 0
	for _, w := range c.waiters {
		if !w.stopped && !w.fired {
			count++
		}
	}
	return count
}
