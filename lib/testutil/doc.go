// Copyright 2026 The Muster Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers.
//
// [RequireReceive] and [RequireClosed] encapsulate the timeout safety
// valve pattern (select with a time.After fallback) so individual
// tests never hang when a goroutine under test deadlocks. These are
// the only places in the test suite where real wall-clock timeouts
// appear; everything else drives time through clock.Fake.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
package testutil
