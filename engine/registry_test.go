// Copyright 2026 The Muster Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"testing"
)

func TestRegistrySweepDropsStale(t *testing.T) {
	registry := NewFollowerRegistry(10)
	registry.Observe(1, 0)
	registry.Observe(2, 0)
	registry.Observe(3, 8)

	// At t=9 nobody is past the 10s window.
	if stale := registry.Sweep(9); len(stale) != 0 {
		t.Fatalf("swept %v at t=9", stale)
	}
	// At t=10.5, agents 1 and 2 are stale; agent 3 is not.
	stale := registry.Sweep(10.5)
	if len(stale) != 2 || stale[0] != 1 || stale[1] != 2 {
		t.Fatalf("swept %v, want [1 2]", stale)
	}
	if !registry.Contains(3) || registry.Len() != 1 {
		t.Fatalf("registry after sweep: len=%d", registry.Len())
	}
}

func TestRegistryHeartbeatRefreshes(t *testing.T) {
	registry := NewFollowerRegistry(10)
	registry.Observe(1, 0)
	registry.Observe(1, 9)
	if stale := registry.Sweep(15); len(stale) != 0 {
		t.Fatalf("refreshed follower swept: %v", stale)
	}
	if stale := registry.Sweep(20); len(stale) != 1 {
		t.Fatalf("swept %v at t=20", stale)
	}
}

func TestRegistryClear(t *testing.T) {
	registry := NewFollowerRegistry(10)
	registry.Observe(1, 0)
	registry.Clear()
	if registry.Len() != 0 || registry.Contains(1) {
		t.Fatal("registry not empty after clear")
	}
}
