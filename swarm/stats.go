// Copyright 2026 The Muster Authors
// SPDX-License-Identifier: Apache-2.0

package swarm

import (
	"sort"

	"github.com/muster-robotics/muster/lib/geo"
)

// Center returns the centroid of the agents' positions. The zero
// vector for an empty slice.
func Center(agents []*Agent) geo.Vec {
	if len(agents) == 0 {
		return geo.Vec{}
	}
	var sum geo.Vec
	for _, agent := range agents {
		sum = sum.Add(agent.Pos)
	}
	return sum.Scale(1 / float64(len(agents)))
}

// Spread returns the mean distance of agents from the swarm centroid.
// Zero for fewer than two agents.
func Spread(agents []*Agent) float64 {
	if len(agents) < 2 {
		return 0
	}
	center := Center(agents)
	total := 0.0
	for _, agent := range agents {
		total += agent.Pos.Dist(center)
	}
	return total / float64(len(agents))
}

// Nearest returns the agents within maxDistance of the given agent,
// ordered nearest first. The agent itself is excluded. Equal distances
// order by agent ID for determinism.
func Nearest(agent *Agent, all []*Agent, maxDistance float64) []*Agent {
	type entry struct {
		agent *Agent
		dist  float64
	}
	var nearby []entry
	for _, other := range all {
		if other.ID == agent.ID {
			continue
		}
		if d := agent.Pos.Dist(other.Pos); d <= maxDistance {
			nearby = append(nearby, entry{other, d})
		}
	}
	sort.Slice(nearby, func(i, j int) bool {
		if nearby[i].dist != nearby[j].dist {
			return nearby[i].dist < nearby[j].dist
		}
		return nearby[i].agent.ID < nearby[j].agent.ID
	})
	result := make([]*Agent, len(nearby))
	for i, e := range nearby {
		result[i] = e.agent
	}
	return result
}

// sortVecs orders positions by x then y.
func sortVecs(vecs []geo.Vec) {
	sort.Slice(vecs, func(i, j int) bool {
		if vecs[i].X != vecs[j].X {
			return vecs[i].X < vecs[j].X
		}
		return vecs[i].Y < vecs[j].Y
	})
}
