// Copyright 2026 The Muster Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"sort"

	"github.com/muster-robotics/muster/swarm"
)

// FollowerRegistry is the alpha's view of its live followers. Entries
// are refreshed by heartbeats and swept when no heartbeat arrives for
// the staleness window. A swept follower disappears from the registry
// only; the agent itself stays in the simulation.
//
// Times are simulated seconds so staleness is deterministic under any
// tick rate.
type FollowerRegistry struct {
	staleAfter float64
	lastSeen   map[swarm.AgentID]float64
}

// NewFollowerRegistry creates a registry with the given staleness
// window in simulated seconds.
func NewFollowerRegistry(staleAfter float64) *FollowerRegistry {
	return &FollowerRegistry{
		staleAfter: staleAfter,
		lastSeen:   make(map[swarm.AgentID]float64),
	}
}

// Observe records a heartbeat from the follower at the given simulated
// time.
func (r *FollowerRegistry) Observe(id swarm.AgentID, now float64) {
	r.lastSeen[id] = now
}

// Sweep removes entries whose last heartbeat is older than the
// staleness window and returns the removed IDs in ascending order.
func (r *FollowerRegistry) Sweep(now float64) []swarm.AgentID {
	var stale []swarm.AgentID
	for id, seen := range r.lastSeen {
		if now-seen > r.staleAfter {
			stale = append(stale, id)
		}
	}
	for _, id := range stale {
		delete(r.lastSeen, id)
	}
	sort.Slice(stale, func(i, j int) bool { return stale[i] < stale[j] })
	return stale
}

// Contains reports whether the follower is currently registered.
func (r *FollowerRegistry) Contains(id swarm.AgentID) bool {
	_, ok := r.lastSeen[id]
	return ok
}

// Len returns the number of registered followers.
func (r *FollowerRegistry) Len() int { return len(r.lastSeen) }

// Clear drops all entries, used when leadership changes.
func (r *FollowerRegistry) Clear() {
	r.lastSeen = make(map[swarm.AgentID]float64)
}
