// Copyright 2026 The Muster Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source for the engine.
//
// Everything in the engine that observes wall-clock time — the tick
// ticker, the election timeout, heartbeat staleness — accepts a Clock
// instead of calling the time package directly. Production code
// injects Real(); tests inject Fake() and advance time explicitly, so
// timeout behavior (an election that stalls for 30 seconds, a follower
// that misses heartbeats for 10 seconds) is exercised deterministically
// instead of with real sleeps.
//
// A typical test drives a scheduler goroutine like this:
//
//	c := clock.Fake(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
//	sched := engine.New(engine.Config{Clock: c, ...})
//	go sched.Run(ctx)
//	c.WaitForWaiters(1)      // the run loop registered its ticker
//	c.Advance(time.Second)   // fire exactly one tick
package clock
