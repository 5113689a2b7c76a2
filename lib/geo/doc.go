// Copyright 2026 The Muster Authors
// SPDX-License-Identifier: Apache-2.0

// Package geo provides the 2D vector and rectangle math used by the
// swarm engine: positions, velocities, steering targets, and obstacle
// geometry. All coordinates are in world units on a flat plane with x
// increasing rightward and y increasing downward (screen convention,
// matching the scenario file format).
//
// The package is pure math with no dependencies. Every function is a
// value-in, value-out computation so call sites stay allocation-free
// inside the per-tick hot loop.
package geo
