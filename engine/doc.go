// Copyright 2026 The Muster Authors
// SPDX-License-Identifier: Apache-2.0

// Package engine drives the simulation: a Scheduler owns the agent
// collection and the coordination registries and advances them in
// discrete ticks with a strict phase order (sensors, perception,
// behavior and physics, coordination, target discovery, metrics).
//
// Every phase runs single-threaded; the one exception is the
// perception phase, which fans out one goroutine per due agent with a
// hard per-call timeout and joins them before the behavior phase. A
// perception failure falls back to the local heuristic for that agent
// only — no tick ever completes with calls outstanding, and nothing
// in a tick is fatal.
package engine
