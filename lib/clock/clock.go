// Copyright 2026 The Muster Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import "time"

// Clock abstracts the time operations the engine performs. The
// interface is deliberately small: the engine only needs the current
// time, one-shot waits, periodic ticks, and sleeps.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// After returns a channel that receives the current time once
	// duration d has elapsed. If d <= 0 the channel receives
	// immediately.
	After(d time.Duration) <-chan time.Time

	// NewTicker returns a Ticker delivering ticks every d. Panics if
	// d <= 0, matching time.NewTicker.
	NewTicker(d time.Duration) *Ticker

	// Sleep pauses the calling goroutine for at least d.
	Sleep(d time.Duration)
}

// Ticker delivers periodic ticks on C. Call Stop when done; Stop does
// not close C. The channel has capacity 1 — if the consumer falls
// behind, ticks are dropped rather than queued, which is the behavior
// the simulation loop wants (a slow tick should not be followed by a
// burst of catch-up ticks).
type Ticker struct {
	C <-chan time.Time

	stop func()
}

// Stop turns off the ticker. No ticks are delivered after Stop returns.
func (t *Ticker) Stop() { t.stop() }

// Real returns a Clock backed by the standard time package.
func Real() Clock { return realClock{} }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

func (realClock) NewTicker(d time.Duration) *Ticker {
	ticker := time.NewTicker(d)
	return &Ticker{C: ticker.C, stop: ticker.Stop}
}

func (realClock) Sleep(d time.Duration) { time.Sleep(d) }
