// Copyright 2026 The Muster Authors
// SPDX-License-Identifier: Apache-2.0

// Package telemetry persists simulation output: per-tick metric rows
// in SQLite for querying, and full agent-state traces as LZ4-framed
// CBOR streams for offline replay. Both writers are fail-soft — a
// storage error is logged and disables further writes but never fails
// the tick that triggered it.
package telemetry
