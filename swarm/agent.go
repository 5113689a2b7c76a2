// Copyright 2026 The Muster Authors
// SPDX-License-Identifier: Apache-2.0

package swarm

import (
	"fmt"
	"strings"

	"github.com/muster-robotics/muster/lib/geo"
)

// AgentID identifies an agent for the lifetime of a simulation.
type AgentID int

// Role is an agent's position in the swarm hierarchy.
type Role string

const (
	// RoleFollower is the default role. Followers obey formation and
	// task assignments issued under the current alpha.
	RoleFollower Role = "follower"
	// RoleAlpha is the single elected leader. At most one agent holds
	// this role once an election has completed.
	RoleAlpha Role = "alpha"
	// RoleScout marks agents specialized for wide-area searching.
	RoleScout Role = "scout"
)

// ParseRole validates a role string from a scenario file.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleFollower, RoleAlpha, RoleScout:
		return Role(s), nil
	}
	return "", fmt.Errorf("unknown agent role %q", s)
}

// Capability names a skill an agent can contribute to a task.
type Capability string

const (
	CapabilitySearch            Capability = "search"
	CapabilityRescue            Capability = "rescue"
	CapabilityCommunication     Capability = "communication"
	CapabilityFormationFlying   Capability = "formation_flying"
	CapabilityObstacleAvoidance Capability = "obstacle_avoidance"
)

// Default agent parameters. These match the reference rover platform:
// a communication radius just under twice the sensor radius, and a
// cruise speed of 2 world units per frame.
const (
	DefaultCommRange   = 150.0
	DefaultSensorRange = 100.0
	DefaultMaxSpeed    = 2.0
	FullBattery        = 100.0
)

// Agent is the unit of simulation state. The engine owns the agent
// collection; coordination algorithms borrow read/write access during
// their scheduled phase, so no locking happens at this level.
type Agent struct {
	ID AgentID

	Pos geo.Vec
	Vel geo.Vec

	// Target is the point the agent currently steers toward. Behavior
	// routines, formation control, and perception commands all express
	// movement by setting Target.
	Target geo.Vec

	// Home is the agent's spawn position, used by the returning-home
	// behavior.
	Home geo.Vec

	// Battery is the charge percentage in [0, 100]. It only decreases
	// (by the physics drain rate) except on Reset.
	Battery float64

	// Uptime is accumulated simulated seconds since spawn. Feeds the
	// leadership score.
	Uptime float64

	// Centrality is an externally supplied position-centrality score
	// for leadership elections. Zero unless an operator provides one.
	Centrality float64

	Role  Role
	State State

	Capabilities map[Capability]bool

	CommRange   float64
	SensorRange float64
	MaxSpeed    float64

	// CurrentTask is the ID of the task this agent is assigned to, or
	// empty.
	CurrentTask string

	// DiscoveredTargets is the set of target positions this agent has
	// sensed. Set semantics: a target is recorded once.
	DiscoveredTargets map[geo.Vec]bool

	// Sensor state, recomputed each tick before behavior runs.
	DetectedObstacles []geo.Rect
	DetectedAgents    []*Agent
}

// NewAgent creates an agent at the given position with the default
// platform parameters and every capability enabled.
func NewAgent(id AgentID, pos geo.Vec) *Agent {
	return &Agent{
		ID:      id,
		Pos:     pos,
		Target:  pos,
		Home:    pos,
		Battery: FullBattery,
		Role:    RoleFollower,
		State:   StateIdle,
		Capabilities: map[Capability]bool{
			CapabilitySearch:            true,
			CapabilityRescue:            true,
			CapabilityCommunication:     true,
			CapabilityFormationFlying:   true,
			CapabilityObstacleAvoidance: true,
		},
		CommRange:         DefaultCommRange,
		SensorRange:       DefaultSensorRange,
		MaxSpeed:          DefaultMaxSpeed,
		DiscoveredTargets: make(map[geo.Vec]bool),
	}
}

// UpdateSensors recomputes the agent's detected obstacles and peers
// and folds newly sensed targets into the discovered set. Called once
// per tick before behavior dispatch.
func (a *Agent) UpdateSensors(obstacles []geo.Rect, targets []geo.Vec, others []*Agent) {
	a.DetectedObstacles = a.DetectedObstacles[:0]
	for _, obstacle := range obstacles {
		if obstacle.Dist(a.Pos) <= a.SensorRange {
			a.DetectedObstacles = append(a.DetectedObstacles, obstacle)
		}
	}

	a.DetectedAgents = a.DetectedAgents[:0]
	for _, other := range others {
		if other.ID == a.ID {
			continue
		}
		if a.Pos.Dist(other.Pos) <= a.CommRange {
			a.DetectedAgents = append(a.DetectedAgents, other)
		}
	}

	for _, target := range targets {
		if a.Pos.Dist(target) <= a.SensorRange {
			a.DiscoveredTargets[target] = true
		}
	}
}

// SetTarget points the agent at a destination and requests the
// moving-to-target state. The transition is subject to the state
// machine; an illegal request leaves the state unchanged and is
// reported through the returned error.
func (a *Agent) SetTarget(target geo.Vec) error {
	a.Target = target
	return a.TransitionTo(StateMovingToTarget)
}

// SceneDescription renders the agent's local sensor state as text for
// the perception collaborator.
func (a *Agent) SceneDescription() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Agent %d at (%.1f, %.1f). ", a.ID, a.Pos.X, a.Pos.Y)

	if len(a.DetectedObstacles) > 0 {
		b.WriteString("Detected obstacles: ")
		for _, obstacle := range a.DetectedObstacles {
			fmt.Fprintf(&b, "a rectangle at (%.1f, %.1f) with size %.0fx%.0f; ",
				obstacle.X, obstacle.Y, obstacle.W, obstacle.H)
		}
	}
	if len(a.DiscoveredTargets) > 0 {
		b.WriteString("Discovered targets: ")
		for _, target := range sortedTargets(a.DiscoveredTargets) {
			fmt.Fprintf(&b, "a target at (%.1f, %.1f); ", target.X, target.Y)
		}
	}
	if len(a.DetectedAgents) > 0 {
		b.WriteString("Detected other agents: ")
		for _, other := range a.DetectedAgents {
			fmt.Fprintf(&b, "Agent %d (%s) at (%.1f, %.1f); ",
				other.ID, other.Role, other.Pos.X, other.Pos.Y)
		}
	}
	if len(a.DetectedObstacles) == 0 && len(a.DiscoveredTargets) == 0 && len(a.DetectedAgents) == 0 {
		b.WriteString("No significant objects or agents detected in immediate vicinity.")
	}
	return b.String()
}

// HasCapability reports whether the agent can contribute the named
// capability.
func (a *Agent) HasCapability(c Capability) bool { return a.Capabilities[c] }

// Reset restores the agent to its initial condition at a new spawn
// position: full battery, follower role, idle state, empty discovery
// set. The ID and platform parameters are preserved.
func (a *Agent) Reset(pos geo.Vec) {
	a.Pos = pos
	a.Target = pos
	a.Home = pos
	a.Vel = geo.Vec{}
	a.Battery = FullBattery
	a.Uptime = 0
	a.Role = RoleFollower
	a.State = StateIdle
	a.CurrentTask = ""
	a.DiscoveredTargets = make(map[geo.Vec]bool)
	a.DetectedObstacles = nil
	a.DetectedAgents = nil
}

// sortedTargets returns set members in deterministic order for stable
// scene descriptions.
func sortedTargets(set map[geo.Vec]bool) []geo.Vec {
	targets := make([]geo.Vec, 0, len(set))
	for target := range set {
		targets = append(targets, target)
	}
	sortVecs(targets)
	return targets
}
