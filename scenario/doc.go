// Copyright 2026 The Muster Authors
// SPDX-License-Identifier: Apache-2.0

// Package scenario defines the world-description file format: named
// sets of obstacles, targets, and agent spawns. Files are JSON;
// comments and trailing commas are tolerated on load so hand-edited
// scenarios can carry annotations. Saves are atomic (temp file, sync,
// rename) so a crash mid-save never corrupts an existing scenario.
package scenario
