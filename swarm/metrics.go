// Copyright 2026 The Muster Authors
// SPDX-License-Identifier: Apache-2.0

package swarm

// Metrics is the outward-facing performance snapshot computed every
// tick. All three values are percentages in [0, 100].
type Metrics struct {
	// MissionSuccessRate is the share of world targets found.
	MissionSuccessRate float64

	// FormationAccuracy is 100 minus the formation error, floored at
	// zero. 100 when no formation is active.
	FormationAccuracy float64

	// CommunicationEfficiency is the share of agents that can hear at
	// least one peer.
	CommunicationEfficiency float64
}

// ComputeMetrics evaluates the metric surface for the current tick.
// formationError is the active formation's mean slot distance, zero
// when no formation is set.
func ComputeMetrics(agents []*Agent, targetsFound, totalTargets int, formationError float64) Metrics {
	var m Metrics

	if totalTargets > 0 {
		m.MissionSuccessRate = 100 * float64(targetsFound) / float64(totalTargets)
	}

	m.FormationAccuracy = 100 - formationError
	if m.FormationAccuracy < 0 {
		m.FormationAccuracy = 0
	}

	if len(agents) > 0 {
		connected := 0
		for _, agent := range agents {
			if len(agent.DetectedAgents) > 0 {
				connected++
			}
		}
		m.CommunicationEfficiency = 100 * float64(connected) / float64(len(agents))
	}

	return m
}
