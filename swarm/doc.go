// Copyright 2026 The Muster Authors
// SPDX-License-Identifier: Apache-2.0

// Package swarm implements the coordination engine's data model and
// algorithms: agents with sensing and physics, the per-agent behavior
// state machine, alpha election, decentralized task sharing, geometric
// formation control, and quorum-based consensus.
//
// The package is deliberately free of scheduling concerns. Nothing
// here starts goroutines or owns a loop; the engine package drives
// these types in a strict per-tick phase order and owns the agent
// collection. All randomness flows through an injected *rand.Rand so
// a run is reproducible from its seed.
//
// # Determinism
//
// Every algorithm that the original distributed design left to map
// iteration order is pinned down here: election votes and vote tallies
// break score and count ties by lowest agent ID, task bids sort by
// score descending with insertion order preserved on equal scores, and
// consensus options are evaluated in proposal option order. Two runs
// with the same seed and inputs produce identical outcomes.
package swarm
